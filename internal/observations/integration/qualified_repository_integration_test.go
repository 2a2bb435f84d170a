package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	observations "buoycloud/internal/observations/domain"
	obsrepo "buoycloud/internal/observations/infrastructure/postgres"
	storage "buoycloud/internal/storage/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const qualifiedTestTable = "qualified_data_it"

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

func createQualifiedTable(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), `
CREATE TABLE IF NOT EXISTS `+qualifiedTestTable+` (
	id BIGINT PRIMARY KEY,
	buoy_id BIGINT NOT NULL,
	date_time TIMESTAMPTZ NOT NULL,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	flag_latitude SMALLINT,
	flag_longitude SMALLINT,
	battery DOUBLE PRECISION, flag_battery SMALLINT,
	rh DOUBLE PRECISION, flag_rh SMALLINT,
	wspd1 DOUBLE PRECISION, flag_wspd1 SMALLINT,
	wdir1 SMALLINT, flag_wdir1 SMALLINT,
	gust1 DOUBLE PRECISION, flag_gust1 SMALLINT,
	atmp DOUBLE PRECISION, flag_atmp SMALLINT,
	pres DOUBLE PRECISION, flag_pres SMALLINT,
	dewpt DOUBLE PRECISION, flag_dewpt SMALLINT,
	sst DOUBLE PRECISION, flag_sst SMALLINT,
	cspd1 DOUBLE PRECISION, flag_cspd1 SMALLINT,
	cdir1 SMALLINT, flag_cdir1 SMALLINT,
	swvht1 DOUBLE PRECISION, flag_swvht1 SMALLINT,
	tp1 DOUBLE PRECISION, flag_tp1 SMALLINT,
	mxwvht1 DOUBLE PRECISION, flag_mxwvht1 SMALLINT,
	wvdir1 SMALLINT, flag_wvdir1 SMALLINT
)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DROP TABLE IF EXISTS `+qualifiedTestTable)
	})
}

func seedObservation(buoyID int64, at time.Time, wspd float64, wspdFlag int16) observations.QualifiedObservation {
	flag := wspdFlag
	value := wspd
	return observations.QualifiedObservation{
		BuoyID:    buoyID,
		DateTime:  at,
		Latitude:  -23.5,
		Longitude: -45.1,
		Wspd1:     &value,
		FlagWspd1: &flag,
	}
}

func TestQualifiedRepository_WindowAndRedaction(t *testing.T) {
	db := openTestDB(t)
	createQualifiedTable(t, db)
	ctx := context.Background()

	repo, err := obsrepo.NewQualifiedRepository(db, obsrepo.WithQualifiedTable(qualifiedTestTable))
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for hour := 0; hour < 6; hour++ {
		flag := int16(0)
		if hour == 2 {
			flag = 10 // advisory
		}
		if hour == 3 {
			flag = 60 // hard failure
		}
		if _, err := repo.Create(ctx, seedObservation(7, base.Add(time.Duration(hour)*time.Hour), 8.0+float64(hour), flag)); err != nil {
			t.Fatalf("seed %d: %v", hour, err)
		}
	}
	// another platform, newer record, outside buoy 7's results
	if _, err := repo.Create(ctx, seedObservation(8, base.Add(12*time.Hour), 5.0, 0)); err != nil {
		t.Fatalf("seed other buoy: %v", err)
	}

	window := observations.Window{Start: base.Add(1 * time.Hour), End: base.Add(5 * time.Hour)}

	rows, err := repo.Window(ctx, 7, window, observations.ThresholdNone, 0)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("window rows: got %d", len(rows))
	}
	// newest first
	if !rows[0].DateTime.After(rows[len(rows)-1].DateTime) {
		t.Fatalf("expected descending order: %v .. %v", rows[0].DateTime, rows[len(rows)-1].DateTime)
	}

	soft, err := repo.Window(ctx, 7, window, observations.ThresholdSoft, 0)
	if err != nil {
		t.Fatalf("window soft: %v", err)
	}
	for _, row := range soft {
		switch {
		case row.FlagWspd1 != nil && *row.FlagWspd1 == 10:
			if row.Wspd1 != nil {
				t.Fatalf("advisory flag not redacted: %+v", row)
			}
		case row.FlagWspd1 != nil && *row.FlagWspd1 == 60:
			if row.Wspd1 == nil {
				t.Fatalf("hard flag redacted at soft threshold: %+v", row)
			}
		}
	}

	all, err := repo.Window(ctx, 7, window, observations.ThresholdAll, 0)
	if err != nil {
		t.Fatalf("window all: %v", err)
	}
	for _, row := range all {
		if row.FlagWspd1 != nil && *row.FlagWspd1 > 0 && row.Wspd1 != nil {
			t.Fatalf("flagged value survived all threshold: %+v", row)
		}
		if row.Latitude == 0 || row.Longitude == 0 {
			t.Fatalf("coordinates must never be redacted: %+v", row)
		}
	}

	limited, err := repo.Window(ctx, 7, window, observations.ThresholdNone, 2)
	if err != nil {
		t.Fatalf("window limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit: got %d rows", len(limited))
	}
}

func TestQualifiedRepository_LatestPerBuoy(t *testing.T) {
	db := openTestDB(t)
	createQualifiedTable(t, db)
	ctx := context.Background()

	repo, err := obsrepo.NewQualifiedRepository(db, obsrepo.WithQualifiedTable(qualifiedTestTable))
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, seed := range []struct {
		buoyID int64
		at     time.Time
	}{
		{7, base},
		{7, base.Add(2 * time.Hour)},
		{8, base.Add(time.Hour)},
	} {
		if _, err := repo.Create(ctx, seedObservation(seed.buoyID, seed.at, 8.0, 0)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rows, err := repo.LatestPerBuoy(ctx, nil, observations.ThresholdNone)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected one row per buoy, got %d", len(rows))
	}
	for _, row := range rows {
		if row.BuoyID == 7 && !row.DateTime.Equal(base.Add(2*time.Hour)) {
			t.Fatalf("buoy 7 latest: got %v", row.DateTime)
		}
	}

	only7, err := repo.LatestPerBuoy(ctx, []storage.Criterion{storage.Eq("buoy_id", int64(7))}, observations.ThresholdNone)
	if err != nil {
		t.Fatalf("latest filtered: %v", err)
	}
	if len(only7) != 1 || only7[0].BuoyID != 7 {
		t.Fatalf("filtered latest: %+v", only7)
	}
}

func TestQualifiedRepository_ShowUpdateDelete(t *testing.T) {
	db := openTestDB(t)
	createQualifiedTable(t, db)
	ctx := context.Background()

	repo, err := obsrepo.NewQualifiedRepository(db, obsrepo.WithQualifiedTable(qualifiedTestTable))
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	created, err := repo.Create(ctx, seedObservation(7, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), 8.0, 0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	shown, err := repo.Show(ctx, created.ID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if shown.BuoyID != 7 {
		t.Fatalf("show: %+v", shown)
	}

	updated, err := repo.Update(ctx, created.ID, map[string]any{"sst": 26.4})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Sst == nil || *updated.Sst != 26.4 {
		t.Fatalf("update sst: %+v", updated)
	}

	if _, err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Show(ctx, created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("show after delete: got %v", err)
	}
}
