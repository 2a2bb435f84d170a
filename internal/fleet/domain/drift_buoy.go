package fleet

import (
	"database/sql"
	"time"

	storage "buoycloud/internal/storage/postgres"
)

const defaultDriftBuoysTable = "drift_buoys"

// DriftBuoy is the master-data record for a drifting platform.
type DriftBuoy struct {
	BuoyID          int64      `json:"buoy_id"`
	HullID          *string    `json:"hull_id"`
	Model           string     `json:"model"`
	LatitudeDeploy  float64    `json:"latitude_deploy"`
	LongitudeDeploy float64    `json:"longitude_deploy"`
	DeployDate      time.Time  `json:"deploy_date"`
	LastDateTime    *time.Time `json:"last_date_time"`
	LastLatitude    *float64   `json:"last_latitude"`
	LastLongitude   *float64   `json:"last_longitude"`
	AntennaID       *string    `json:"antenna_id"`
	ProjectID       *int16     `json:"project_id"`
}

// DriftBuoyColumns is the column list in scan order.
var DriftBuoyColumns = []string{
	"buoy_id", "hull_id", "model", "latitude_deploy", "longitude_deploy",
	"deploy_date", "last_date_time", "last_latitude", "last_longitude",
	"antenna_id", "project_id",
}

// DriftBuoyDescriptor describes the drift_buoys table.
func DriftBuoyDescriptor() storage.Descriptor[DriftBuoy] {
	return storage.Descriptor[DriftBuoy]{
		Table:         defaultDriftBuoysTable,
		Columns:       DriftBuoyColumns,
		PK:            "buoy_id",
		TimeColumn:    "last_date_time",
		PKMode:        storage.PKMaxPlusOne,
		InsertColumns: DriftBuoyColumns[1:],
		Scan:          scanDriftBuoy,
		InsertValues:  driftBuoyInsertValues,
	}
}

func scanDriftBuoy(row storage.RowScanner) (DriftBuoy, error) {
	var b DriftBuoy
	var (
		hullID, antenna  sql.NullString
		lastDateTime     sql.NullTime
		lastLat, lastLon sql.NullFloat64
		projectID        sql.NullInt16
	)

	err := row.Scan(
		&b.BuoyID, &hullID, &b.Model, &b.LatitudeDeploy, &b.LongitudeDeploy,
		&b.DeployDate, &lastDateTime, &lastLat, &lastLon,
		&antenna, &projectID,
	)
	if err != nil {
		return b, err
	}

	b.DeployDate = b.DeployDate.UTC()
	b.HullID = nullStringPtr(hullID)
	b.LastDateTime = nullTimePtr(lastDateTime)
	b.LastLatitude = nullFloatPtr(lastLat)
	b.LastLongitude = nullFloatPtr(lastLon)
	b.AntennaID = nullStringPtr(antenna)
	b.ProjectID = nullInt16Ptr(projectID)
	return b, nil
}

func driftBuoyInsertValues(b DriftBuoy) []any {
	return []any{
		b.HullID, b.Model, b.LatitudeDeploy, b.LongitudeDeploy,
		b.DeployDate, b.LastDateTime, b.LastLatitude, b.LastLongitude,
		b.AntennaID, b.ProjectID,
	}
}
