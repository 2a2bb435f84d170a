package postgres

import (
	"context"
	"time"

	"buoycloud/internal/observability/metrics"
	observations "buoycloud/internal/observations/domain"
	storage "buoycloud/internal/storage/postgres"
)

// QualifiedRepository is a Postgres repository for qualified met-ocean
// observations. Reads can redact flagged measurements before the rows
// leave the repository.
type QualifiedRepository struct {
	repo     *storage.Repository[observations.QualifiedObservation]
	redactor *observations.Redactor[observations.QualifiedObservation]
}

// QualifiedOption configures the repository.
type QualifiedOption func(*qualifiedConfig)

type qualifiedConfig struct {
	table       string
	softCeiling int16
}

// WithQualifiedTable overrides the default table name.
func WithQualifiedTable(table string) QualifiedOption {
	return func(cfg *qualifiedConfig) {
		if table != "" {
			cfg.table = table
		}
	}
}

// WithQualifiedSoftCeiling overrides the advisory-flag upper bound.
func WithQualifiedSoftCeiling(ceiling int16) QualifiedOption {
	return func(cfg *qualifiedConfig) {
		if ceiling > 0 {
			cfg.softCeiling = ceiling
		}
	}
}

// NewQualifiedRepository constructs a repository.
func NewQualifiedRepository(db storage.DBTX, opts ...QualifiedOption) (*QualifiedRepository, error) {
	cfg := qualifiedConfig{softCeiling: observations.SoftFlagCeiling}
	for _, opt := range opts {
		opt(&cfg)
	}

	desc := observations.QualifiedDescriptor()
	if cfg.table != "" {
		desc.Table = cfg.table
	}
	repo, err := storage.NewRepository[observations.QualifiedObservation](db, desc)
	if err != nil {
		return nil, err
	}
	redactor := observations.NewRedactor(
		observations.QualifiedFlagPairs(),
		observations.WithSoftCeiling[observations.QualifiedObservation](cfg.softCeiling),
	)
	return &QualifiedRepository{repo: repo, redactor: redactor}, nil
}

// Show fetches one observation by id.
func (r *QualifiedRepository) Show(ctx context.Context, id int64) (observations.QualifiedObservation, error) {
	started := time.Now()
	row, err := r.repo.Show(ctx, id)
	metrics.ObserveQuery(r.repo.Table(), "show", err, time.Since(started))
	return row, err
}

// Window returns a buoy's observations inside the window, newest first,
// redacted per the threshold.
func (r *QualifiedRepository) Window(ctx context.Context, buoyID int64, window observations.Window, threshold observations.Threshold, limit int) ([]observations.QualifiedObservation, error) {
	started := time.Now()
	criteria := []storage.Criterion{
		storage.Eq("buoy_id", buoyID),
		storage.Gte("date_time", window.Start),
		storage.Lt("date_time", window.End),
	}
	rows, err := r.repo.List(ctx, criteria, storage.ListOptions{OrderByTimeDesc: true, Limit: limit})
	metrics.ObserveQuery(r.repo.Table(), "list", err, time.Since(started))
	if err != nil {
		return nil, err
	}

	rows, redacted := r.redactor.Redact(rows, threshold)
	metrics.AddRedactedValues(r.repo.Table(), redacted)
	return rows, nil
}

// LatestPerBuoy returns the most recent observation for every buoy
// matching the criteria, redacted per the threshold.
func (r *QualifiedRepository) LatestPerBuoy(ctx context.Context, criteria []storage.Criterion, threshold observations.Threshold) ([]observations.QualifiedObservation, error) {
	started := time.Now()
	rows, err := r.repo.LatestPerGroup(ctx, "buoy_id", criteria, false)
	metrics.ObserveQuery(r.repo.Table(), "latest", err, time.Since(started))
	if err != nil {
		return nil, err
	}

	rows, redacted := r.redactor.Redact(rows, threshold)
	metrics.AddRedactedValues(r.repo.Table(), redacted)
	return rows, nil
}

// Create inserts an observation.
func (r *QualifiedRepository) Create(ctx context.Context, row observations.QualifiedObservation) (observations.QualifiedObservation, error) {
	started := time.Now()
	created, err := r.repo.Create(ctx, row)
	metrics.ObserveQuery(r.repo.Table(), "create", err, time.Since(started))
	return created, err
}

// Update patches the given fields on an observation.
func (r *QualifiedRepository) Update(ctx context.Context, id int64, fields map[string]any) (observations.QualifiedObservation, error) {
	started := time.Now()
	updated, err := r.repo.Update(ctx, id, fields)
	metrics.ObserveQuery(r.repo.Table(), "update", err, time.Since(started))
	return updated, err
}

// Delete removes an observation and returns the deleted record.
func (r *QualifiedRepository) Delete(ctx context.Context, id int64) (observations.QualifiedObservation, error) {
	started := time.Now()
	deleted, err := r.repo.Delete(ctx, id)
	metrics.ObserveQuery(r.repo.Table(), "delete", err, time.Since(started))
	return deleted, err
}
