package postgres

import (
	"context"
	"time"

	"buoycloud/internal/observability/metrics"
	observations "buoycloud/internal/observations/domain"
	storage "buoycloud/internal/storage/postgres"
)

// DriftRepository is a Postgres repository for drifting-buoy observations.
type DriftRepository struct {
	repo     *storage.Repository[observations.DriftObservation]
	redactor *observations.Redactor[observations.DriftObservation]
}

// DriftOption configures the repository.
type DriftOption func(*driftConfig)

type driftConfig struct {
	table       string
	softCeiling int16
}

// WithDriftTable overrides the default table name.
func WithDriftTable(table string) DriftOption {
	return func(cfg *driftConfig) {
		if table != "" {
			cfg.table = table
		}
	}
}

// WithDriftSoftCeiling overrides the advisory-flag upper bound.
func WithDriftSoftCeiling(ceiling int16) DriftOption {
	return func(cfg *driftConfig) {
		if ceiling > 0 {
			cfg.softCeiling = ceiling
		}
	}
}

// NewDriftRepository constructs a repository.
func NewDriftRepository(db storage.DBTX, opts ...DriftOption) (*DriftRepository, error) {
	cfg := driftConfig{softCeiling: observations.SoftFlagCeiling}
	for _, opt := range opts {
		opt(&cfg)
	}

	desc := observations.DriftDescriptor()
	if cfg.table != "" {
		desc.Table = cfg.table
	}
	repo, err := storage.NewRepository[observations.DriftObservation](db, desc)
	if err != nil {
		return nil, err
	}
	redactor := observations.NewRedactor(
		observations.DriftFlagPairs(),
		observations.WithSoftCeiling[observations.DriftObservation](cfg.softCeiling),
	)
	return &DriftRepository{repo: repo, redactor: redactor}, nil
}

// Window returns a drifter's observations inside the window, newest first,
// redacted per the threshold.
func (r *DriftRepository) Window(ctx context.Context, buoyID int64, window observations.Window, threshold observations.Threshold, limit int) ([]observations.DriftObservation, error) {
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

// LatestPerBuoy returns the most recent observation for every drifter
// matching the criteria, redacted per the threshold.
func (r *DriftRepository) LatestPerBuoy(ctx context.Context, criteria []storage.Criterion, threshold observations.Threshold) ([]observations.DriftObservation, error) {
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

// Create inserts a drift observation.
func (r *DriftRepository) Create(ctx context.Context, row observations.DriftObservation) (observations.DriftObservation, error) {
	started := time.Now()
	created, err := r.repo.Create(ctx, row)
	metrics.ObserveQuery(r.repo.Table(), "create", err, time.Since(started))
	return created, err
}
