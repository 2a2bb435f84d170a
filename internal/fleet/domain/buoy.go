package fleet

import (
	"database/sql"
	"errors"
	"time"

	storage "buoycloud/internal/storage/postgres"
)

const defaultBuoysTable = "buoys"

// ErrDuplicateName is returned when creating a buoy whose name is taken.
var ErrDuplicateName = errors.New("fleet: buoy name already in use")

// Buoy is the master-data record for a moored platform. Position and
// last_date_time are maintained by ingestion; everything else is edited
// through the internal API.
type Buoy struct {
	BuoyID              int64      `json:"buoy_id"`
	HullID              *string    `json:"hull_id"`
	Name                string     `json:"name"`
	DeployDate          *time.Time `json:"deploy_date"`
	LastDateTime        *time.Time `json:"last_date_time"`
	Latitude            *float64   `json:"latitude"`
	Longitude           *float64   `json:"longitude"`
	Status              *bool      `json:"status"`
	Mode                *string    `json:"mode"`
	WatchCircleDistance *int16     `json:"watch_circle_distance"`
	WMONumber           *string    `json:"wmo_number"`
	AntennaID           *string    `json:"antenna_id"`
	OpenData            *bool      `json:"open_data"`
	MetareaSection      *string    `json:"metarea_section"`
	ProjectID           *int16     `json:"project_id"`
}

// IsOpenData reports whether the buoy's data is public.
func (b Buoy) IsOpenData() bool {
	return b.OpenData != nil && *b.OpenData
}

// BuoyColumns is the column list in scan order.
var BuoyColumns = []string{
	"buoy_id", "hull_id", "name", "deploy_date", "last_date_time",
	"latitude", "longitude", "status", "mode", "watch_circle_distance",
	"wmo_number", "antenna_id", "open_data", "metarea_section", "project_id",
}

// BuoyDescriptor describes the buoys table to the generic repository.
func BuoyDescriptor() storage.Descriptor[Buoy] {
	return storage.Descriptor[Buoy]{
		Table:         defaultBuoysTable,
		Columns:       BuoyColumns,
		PK:            "buoy_id",
		TimeColumn:    "last_date_time",
		PKMode:        storage.PKMaxPlusOne,
		InsertColumns: BuoyColumns[1:],
		Scan:          scanBuoy,
		InsertValues:  buoyInsertValues,
	}
}

func scanBuoy(row storage.RowScanner) (Buoy, error) {
	var b Buoy
	var (
		hullID, mode, wmo, antenna, metarea sql.NullString
		deployDate, lastDateTime            sql.NullTime
		latitude, longitude                 sql.NullFloat64
		status, openData                    sql.NullBool
		watchCircle, projectID              sql.NullInt16
	)

	err := row.Scan(
		&b.BuoyID, &hullID, &b.Name, &deployDate, &lastDateTime,
		&latitude, &longitude, &status, &mode, &watchCircle,
		&wmo, &antenna, &openData, &metarea, &projectID,
	)
	if err != nil {
		return b, err
	}

	b.HullID = nullStringPtr(hullID)
	b.DeployDate = nullTimePtr(deployDate)
	b.LastDateTime = nullTimePtr(lastDateTime)
	b.Latitude = nullFloatPtr(latitude)
	b.Longitude = nullFloatPtr(longitude)
	b.Status = nullBoolPtr(status)
	b.Mode = nullStringPtr(mode)
	b.WatchCircleDistance = nullInt16Ptr(watchCircle)
	b.WMONumber = nullStringPtr(wmo)
	b.AntennaID = nullStringPtr(antenna)
	b.OpenData = nullBoolPtr(openData)
	b.MetareaSection = nullStringPtr(metarea)
	b.ProjectID = nullInt16Ptr(projectID)
	return b, nil
}

func buoyInsertValues(b Buoy) []any {
	return []any{
		b.HullID, b.Name, b.DeployDate, b.LastDateTime,
		b.Latitude, b.Longitude, b.Status, b.Mode, b.WatchCircleDistance,
		b.WMONumber, b.AntennaID, b.OpenData, b.MetareaSection, b.ProjectID,
	}
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullBoolPtr(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func nullInt16Ptr(v sql.NullInt16) *int16 {
	if !v.Valid {
		return nil
	}
	i := v.Int16
	return &i
}
