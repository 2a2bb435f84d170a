package observations

import (
	"database/sql"
	"time"

	storage "buoycloud/internal/storage/postgres"
)

const defaultDriftTable = "drift_general"

// DriftObservation is one record from a drifting buoy. Drifters carry a
// reduced sensor set compared to moored platforms.
type DriftObservation struct {
	ID       int64     `json:"id"`
	BuoyID   int64     `json:"buoy_id"`
	DateTime time.Time `json:"date_time"`

	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	FlagLatitude  *int16  `json:"flag_latitude"`
	FlagLongitude *int16  `json:"flag_longitude"`

	Sst        *float64 `json:"sst"`
	FlagSst    *int16   `json:"flag_sst"`
	Wspd1      *float64 `json:"wspd1"`
	FlagWspd1  *int16   `json:"flag_wspd1"`
	Wdir1      *int16   `json:"wdir1"`
	FlagWdir1  *int16   `json:"flag_wdir1"`
	Swvht1     *float64 `json:"swvht1"`
	FlagSwvht1 *int16   `json:"flag_swvht1"`
	Tp1        *float64 `json:"tp1"`
	FlagTp1    *int16   `json:"flag_tp1"`
	Wvdir1     *int16   `json:"wvdir1"`
	FlagWvdir1 *int16   `json:"flag_wvdir1"`
}

// DriftColumns is the column list in scan order.
var DriftColumns = []string{
	"id", "buoy_id", "date_time",
	"latitude", "longitude", "flag_latitude", "flag_longitude",
	"sst", "flag_sst",
	"wspd1", "flag_wspd1",
	"wdir1", "flag_wdir1",
	"swvht1", "flag_swvht1",
	"tp1", "flag_tp1",
	"wvdir1", "flag_wvdir1",
}

// DriftDescriptor describes the drift_general table.
func DriftDescriptor() storage.Descriptor[DriftObservation] {
	return storage.Descriptor[DriftObservation]{
		Table:         defaultDriftTable,
		Columns:       DriftColumns,
		PK:            "id",
		TimeColumn:    "date_time",
		PKMode:        storage.PKMaxPlusOne,
		InsertColumns: DriftColumns[1:],
		Scan:          scanDrift,
		InsertValues:  driftInsertValues,
	}
}

func scanDrift(row storage.RowScanner) (DriftObservation, error) {
	var o DriftObservation
	var (
		sst, wspd1, swvht1, tp1 sql.NullFloat64
		wdir1, wvdir1           sql.NullInt16
		flags                   [8]sql.NullInt16
	)

	err := row.Scan(
		&o.ID, &o.BuoyID, &o.DateTime,
		&o.Latitude, &o.Longitude, &flags[0], &flags[1],
		&sst, &flags[2],
		&wspd1, &flags[3],
		&wdir1, &flags[4],
		&swvht1, &flags[5],
		&tp1, &flags[6],
		&wvdir1, &flags[7],
	)
	if err != nil {
		return o, err
	}

	o.DateTime = o.DateTime.UTC()
	o.FlagLatitude = nullInt16Ptr(flags[0])
	o.FlagLongitude = nullInt16Ptr(flags[1])
	o.Sst, o.FlagSst = nullFloatPtr(sst), nullInt16Ptr(flags[2])
	o.Wspd1, o.FlagWspd1 = nullFloatPtr(wspd1), nullInt16Ptr(flags[3])
	o.Wdir1, o.FlagWdir1 = nullInt16Ptr(wdir1), nullInt16Ptr(flags[4])
	o.Swvht1, o.FlagSwvht1 = nullFloatPtr(swvht1), nullInt16Ptr(flags[5])
	o.Tp1, o.FlagTp1 = nullFloatPtr(tp1), nullInt16Ptr(flags[6])
	o.Wvdir1, o.FlagWvdir1 = nullInt16Ptr(wvdir1), nullInt16Ptr(flags[7])
	return o, nil
}

func driftInsertValues(o DriftObservation) []any {
	return []any{
		o.BuoyID, o.DateTime,
		o.Latitude, o.Longitude, o.FlagLatitude, o.FlagLongitude,
		o.Sst, o.FlagSst,
		o.Wspd1, o.FlagWspd1,
		o.Wdir1, o.FlagWdir1,
		o.Swvht1, o.FlagSwvht1,
		o.Tp1, o.FlagTp1,
		o.Wvdir1, o.FlagWvdir1,
	}
}

// DriftFlagPairs declares the measurement/flag bindings for drifters.
func DriftFlagPairs() []FlagPair[DriftObservation] {
	return []FlagPair[DriftObservation]{
		{Field: "sst", Flag: func(o *DriftObservation) *int16 { return o.FlagSst }, Clear: func(o *DriftObservation) { o.Sst = nil }},
		{Field: "wspd1", Flag: func(o *DriftObservation) *int16 { return o.FlagWspd1 }, Clear: func(o *DriftObservation) { o.Wspd1 = nil }},
		{Field: "wdir1", Flag: func(o *DriftObservation) *int16 { return o.FlagWdir1 }, Clear: func(o *DriftObservation) { o.Wdir1 = nil }},
		{Field: "swvht1", Flag: func(o *DriftObservation) *int16 { return o.FlagSwvht1 }, Clear: func(o *DriftObservation) { o.Swvht1 = nil }},
		{Field: "tp1", Flag: func(o *DriftObservation) *int16 { return o.FlagTp1 }, Clear: func(o *DriftObservation) { o.Tp1 = nil }},
		{Field: "wvdir1", Flag: func(o *DriftObservation) *int16 { return o.FlagWvdir1 }, Clear: func(o *DriftObservation) { o.Wvdir1 = nil }},
	}
}
