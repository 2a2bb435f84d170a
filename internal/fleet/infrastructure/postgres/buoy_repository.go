package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	fleet "buoycloud/internal/fleet/domain"
	"buoycloud/internal/observability/metrics"
	storage "buoycloud/internal/storage/postgres"
)

// BuoyRepository is a Postgres repository for moored buoy master data.
type BuoyRepository struct {
	db   storage.DBTX
	repo *storage.Repository[fleet.Buoy]
}

// BuoyOption configures the repository.
type BuoyOption func(*storage.Descriptor[fleet.Buoy])

// WithBuoysTable overrides the default table name.
func WithBuoysTable(table string) BuoyOption {
	return func(desc *storage.Descriptor[fleet.Buoy]) {
		if table != "" {
			desc.Table = table
		}
	}
}

// NewBuoyRepository constructs a repository.
func NewBuoyRepository(db storage.DBTX, opts ...BuoyOption) (*BuoyRepository, error) {
	desc := fleet.BuoyDescriptor()
	for _, opt := range opts {
		opt(&desc)
	}
	repo, err := storage.NewRepository[fleet.Buoy](db, desc)
	if err != nil {
		return nil, err
	}
	return &BuoyRepository{db: db, repo: repo}, nil
}

// Show fetches one buoy by id.
func (r *BuoyRepository) Show(ctx context.Context, buoyID int64) (fleet.Buoy, error) {
	return r.observeOne(ctx, "show", func(ctx context.Context) (fleet.Buoy, error) {
		return r.repo.Show(ctx, buoyID)
	})
}

// List returns buoys matching the criteria.
func (r *BuoyRepository) List(ctx context.Context, criteria []storage.Criterion) ([]fleet.Buoy, error) {
	return r.observeMany(ctx, "list", func(ctx context.Context) ([]fleet.Buoy, error) {
		return r.repo.List(ctx, criteria, storage.ListOptions{})
	})
}

// ListOrdered returns buoys ordered the way the operations dashboard wants
// them: active platforms first, then by name.
func (r *BuoyRepository) ListOrdered(ctx context.Context, criteria []storage.Criterion) ([]fleet.Buoy, error) {
	return r.observeMany(ctx, "list", func(ctx context.Context) ([]fleet.Buoy, error) {
		predicate, args, err := storage.BuildPredicate(criteria, r.repo.Columns())
		if err != nil {
			return nil, err
		}

		query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE %s
ORDER BY status DESC, name ASC`, strings.Join(fleet.BuoyColumns, ", "), r.repo.Table(), predicate)

		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		desc := fleet.BuoyDescriptor()
		result := make([]fleet.Buoy, 0)
		for rows.Next() {
			buoy, err := desc.Scan(rows)
			if err != nil {
				return nil, err
			}
			result = append(result, buoy)
		}
		return result, rows.Err()
	})
}

// Create inserts a buoy, rejecting duplicate names.
func (r *BuoyRepository) Create(ctx context.Context, buoy fleet.Buoy) (fleet.Buoy, error) {
	return r.observeOne(ctx, "create", func(ctx context.Context) (fleet.Buoy, error) {
		existing, err := r.repo.List(ctx, []storage.Criterion{storage.Eq("name", buoy.Name)}, storage.ListOptions{Limit: 1})
		if err != nil {
			return fleet.Buoy{}, err
		}
		if len(existing) > 0 {
			return fleet.Buoy{}, fleet.ErrDuplicateName
		}
		return r.repo.Create(ctx, buoy)
	})
}

// Update patches the given fields on a buoy.
func (r *BuoyRepository) Update(ctx context.Context, buoyID int64, fields map[string]any) (fleet.Buoy, error) {
	return r.observeOne(ctx, "update", func(ctx context.Context) (fleet.Buoy, error) {
		return r.repo.Update(ctx, buoyID, fields)
	})
}

// Delete removes a buoy and returns the deleted record.
func (r *BuoyRepository) Delete(ctx context.Context, buoyID int64) (fleet.Buoy, error) {
	return r.observeOne(ctx, "delete", func(ctx context.Context) (fleet.Buoy, error) {
		return r.repo.Delete(ctx, buoyID)
	})
}

func (r *BuoyRepository) observeOne(ctx context.Context, op string, fn func(context.Context) (fleet.Buoy, error)) (fleet.Buoy, error) {
	started := time.Now()
	buoy, err := fn(ctx)
	metrics.ObserveQuery(r.repo.Table(), op, err, time.Since(started))
	return buoy, err
}

func (r *BuoyRepository) observeMany(ctx context.Context, op string, fn func(context.Context) ([]fleet.Buoy, error)) ([]fleet.Buoy, error) {
	started := time.Now()
	buoys, err := fn(ctx)
	metrics.ObserveQuery(r.repo.Table(), op, err, time.Since(started))
	return buoys, err
}
