package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	fleet "buoycloud/internal/fleet/domain"
	fleetrepo "buoycloud/internal/fleet/infrastructure/postgres"
	storage "buoycloud/internal/storage/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const buoysTestTable = "buoys_it"

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createBuoysTable(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+buoysTestTable+` (
	buoy_id BIGINT PRIMARY KEY,
	hull_id TEXT,
	name TEXT NOT NULL,
	deploy_date TIMESTAMPTZ,
	last_date_time TIMESTAMPTZ,
	latitude DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	status BOOLEAN,
	mode TEXT,
	watch_circle_distance SMALLINT,
	wmo_number TEXT,
	antenna_id TEXT,
	open_data BOOLEAN,
	metarea_section TEXT,
	project_id SMALLINT
)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DROP TABLE IF EXISTS `+buoysTestTable)
	})
}

func TestBuoyRepository_CRUD(t *testing.T) {
	db := openTestDB(t)
	createBuoysTable(t, db)
	ctx := context.Background()

	repo, err := fleetrepo.NewBuoyRepository(db, fleetrepo.WithBuoysTable(buoysTestTable))
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	active := true
	open := true
	first, err := repo.Create(ctx, fleet.Buoy{Name: "Itajai", Status: &active, OpenData: &open})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.BuoyID != 1 {
		t.Fatalf("first id: got %d", first.BuoyID)
	}

	second, err := repo.Create(ctx, fleet.Buoy{Name: "Santos"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.BuoyID != first.BuoyID+1 {
		t.Fatalf("id sequence: got %d after %d", second.BuoyID, first.BuoyID)
	}

	if _, err := repo.Create(ctx, fleet.Buoy{Name: "Itajai"}); !errors.Is(err, fleet.ErrDuplicateName) {
		t.Fatalf("duplicate name: got %v", err)
	}

	shown, err := repo.Show(ctx, first.BuoyID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if shown.Name != "Itajai" || !shown.IsOpenData() {
		t.Fatalf("show mismatch: %+v", shown)
	}

	// active first, then by name
	ordered, err := repo.ListOrdered(ctx, nil)
	if err != nil {
		t.Fatalf("list ordered: %v", err)
	}
	if len(ordered) != 2 || ordered[0].Name != "Itajai" {
		t.Fatalf("ordering: %+v", ordered)
	}

	filtered, err := repo.List(ctx, []storage.Criterion{storage.Eq("status", true)})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].BuoyID != first.BuoyID {
		t.Fatalf("filter: %+v", filtered)
	}

	updated, err := repo.Update(ctx, second.BuoyID, map[string]any{"mode": "fm", "status": true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Mode == nil || *updated.Mode != "fm" {
		t.Fatalf("update mode: %+v", updated)
	}

	if _, err := repo.Update(ctx, second.BuoyID, map[string]any{"nonexistent": 1}); !errors.Is(err, storage.ErrInvalidFilterField) {
		t.Fatalf("unknown column update: got %v", err)
	}

	deleted, err := repo.Delete(ctx, second.BuoyID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.BuoyID != second.BuoyID {
		t.Fatalf("delete returned %+v", deleted)
	}
	if _, err := repo.Show(ctx, second.BuoyID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("show after delete: got %v", err)
	}
}

func TestBuoyRepository_ListEmptyIsNotAnError(t *testing.T) {
	db := openTestDB(t)
	createBuoysTable(t, db)

	repo, err := fleetrepo.NewBuoyRepository(db, fleetrepo.WithBuoysTable(buoysTestTable))
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	buoys, err := repo.List(context.Background(), []storage.Criterion{storage.Eq("status", false)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if buoys == nil || len(buoys) != 0 {
		t.Fatalf("expected empty slice, got %#v", buoys)
	}
}
