package postgres

import (
	"context"
	"time"

	fleet "buoycloud/internal/fleet/domain"
	"buoycloud/internal/observability/metrics"
	storage "buoycloud/internal/storage/postgres"
)

// DriftBuoyRepository is a Postgres repository for drifting buoy master data.
type DriftBuoyRepository struct {
	repo *storage.Repository[fleet.DriftBuoy]
}

// DriftBuoyOption configures the repository.
type DriftBuoyOption func(*storage.Descriptor[fleet.DriftBuoy])

// WithDriftBuoysTable overrides the default table name.
func WithDriftBuoysTable(table string) DriftBuoyOption {
	return func(desc *storage.Descriptor[fleet.DriftBuoy]) {
		if table != "" {
			desc.Table = table
		}
	}
}

// NewDriftBuoyRepository constructs a repository.
func NewDriftBuoyRepository(db storage.DBTX, opts ...DriftBuoyOption) (*DriftBuoyRepository, error) {
	desc := fleet.DriftBuoyDescriptor()
	for _, opt := range opts {
		opt(&desc)
	}
	repo, err := storage.NewRepository[fleet.DriftBuoy](db, desc)
	if err != nil {
		return nil, err
	}
	return &DriftBuoyRepository{repo: repo}, nil
}

// Show fetches one drift buoy by id.
func (r *DriftBuoyRepository) Show(ctx context.Context, buoyID int64) (fleet.DriftBuoy, error) {
	started := time.Now()
	buoy, err := r.repo.Show(ctx, buoyID)
	metrics.ObserveQuery(r.repo.Table(), "show", err, time.Since(started))
	return buoy, err
}

// List returns drift buoys matching the criteria.
func (r *DriftBuoyRepository) List(ctx context.Context, criteria []storage.Criterion) ([]fleet.DriftBuoy, error) {
	started := time.Now()
	buoys, err := r.repo.List(ctx, criteria, storage.ListOptions{})
	metrics.ObserveQuery(r.repo.Table(), "list", err, time.Since(started))
	return buoys, err
}

// Create inserts a drift buoy.
func (r *DriftBuoyRepository) Create(ctx context.Context, buoy fleet.DriftBuoy) (fleet.DriftBuoy, error) {
	started := time.Now()
	created, err := r.repo.Create(ctx, buoy)
	metrics.ObserveQuery(r.repo.Table(), "create", err, time.Since(started))
	return created, err
}

// Update patches the given fields on a drift buoy.
func (r *DriftBuoyRepository) Update(ctx context.Context, buoyID int64, fields map[string]any) (fleet.DriftBuoy, error) {
	started := time.Now()
	updated, err := r.repo.Update(ctx, buoyID, fields)
	metrics.ObserveQuery(r.repo.Table(), "update", err, time.Since(started))
	return updated, err
}

// Delete removes a drift buoy and returns the deleted record.
func (r *DriftBuoyRepository) Delete(ctx context.Context, buoyID int64) (fleet.DriftBuoy, error) {
	started := time.Now()
	deleted, err := r.repo.Delete(ctx, buoyID)
	metrics.ObserveQuery(r.repo.Table(), "delete", err, time.Since(started))
	return deleted, err
}
