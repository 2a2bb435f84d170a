package observations

import (
	"database/sql"
	"time"

	storage "buoycloud/internal/storage/postgres"
)

const defaultQualifiedTable = "qualified_data"

// QualifiedObservation is one fully quality-controlled met-ocean record.
// Measurement columns are nullable; each carries a companion flag_<field>
// column written by the QC pipeline. flag_latitude and flag_longitude mark
// position quality but the coordinates themselves are never redacted.
type QualifiedObservation struct {
	ID       int64     `json:"id"`
	BuoyID   int64     `json:"buoy_id"`
	DateTime time.Time `json:"date_time"`

	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	FlagLatitude  *int16  `json:"flag_latitude"`
	FlagLongitude *int16  `json:"flag_longitude"`

	Battery     *float64 `json:"battery"`
	FlagBattery *int16   `json:"flag_battery"`
	RH          *float64 `json:"rh"`
	FlagRH      *int16   `json:"flag_rh"`
	Wspd1       *float64 `json:"wspd1"`
	FlagWspd1   *int16   `json:"flag_wspd1"`
	Wdir1       *int16   `json:"wdir1"`
	FlagWdir1   *int16   `json:"flag_wdir1"`
	Gust1       *float64 `json:"gust1"`
	FlagGust1   *int16   `json:"flag_gust1"`
	Atmp        *float64 `json:"atmp"`
	FlagAtmp    *int16   `json:"flag_atmp"`
	Pres        *float64 `json:"pres"`
	FlagPres    *int16   `json:"flag_pres"`
	Dewpt       *float64 `json:"dewpt"`
	FlagDewpt   *int16   `json:"flag_dewpt"`
	Sst         *float64 `json:"sst"`
	FlagSst     *int16   `json:"flag_sst"`
	Cspd1       *float64 `json:"cspd1"`
	FlagCspd1   *int16   `json:"flag_cspd1"`
	Cdir1       *int16   `json:"cdir1"`
	FlagCdir1   *int16   `json:"flag_cdir1"`
	Swvht1      *float64 `json:"swvht1"`
	FlagSwvht1  *int16   `json:"flag_swvht1"`
	Tp1         *float64 `json:"tp1"`
	FlagTp1     *int16   `json:"flag_tp1"`
	Mxwvht1     *float64 `json:"mxwvht1"`
	FlagMxwvht1 *int16   `json:"flag_mxwvht1"`
	Wvdir1      *int16   `json:"wvdir1"`
	FlagWvdir1  *int16   `json:"flag_wvdir1"`
}

// QualifiedColumns is the column list in scan order.
var QualifiedColumns = []string{
	"id", "buoy_id", "date_time",
	"latitude", "longitude", "flag_latitude", "flag_longitude",
	"battery", "flag_battery",
	"rh", "flag_rh",
	"wspd1", "flag_wspd1",
	"wdir1", "flag_wdir1",
	"gust1", "flag_gust1",
	"atmp", "flag_atmp",
	"pres", "flag_pres",
	"dewpt", "flag_dewpt",
	"sst", "flag_sst",
	"cspd1", "flag_cspd1",
	"cdir1", "flag_cdir1",
	"swvht1", "flag_swvht1",
	"tp1", "flag_tp1",
	"mxwvht1", "flag_mxwvht1",
	"wvdir1", "flag_wvdir1",
}

// QualifiedDescriptor describes the qualified_data table to the generic
// repository. Ingestion mirrors the legacy id assignment, computed inside
// the insert statement.
func QualifiedDescriptor() storage.Descriptor[QualifiedObservation] {
	return storage.Descriptor[QualifiedObservation]{
		Table:         defaultQualifiedTable,
		Columns:       QualifiedColumns,
		PK:            "id",
		TimeColumn:    "date_time",
		PKMode:        storage.PKMaxPlusOne,
		InsertColumns: QualifiedColumns[1:],
		Scan:          scanQualified,
		InsertValues:  qualifiedInsertValues,
	}
}

func scanQualified(row storage.RowScanner) (QualifiedObservation, error) {
	var o QualifiedObservation
	var (
		battery, rh, wspd1, gust1, atmp, pres, dewpt, sst, cspd1, swvht1, tp1, mxwvht1 sql.NullFloat64
		wdir1, cdir1, wvdir1                                                           sql.NullInt16
		flags                                                                          [17]sql.NullInt16
	)

	err := row.Scan(
		&o.ID, &o.BuoyID, &o.DateTime,
		&o.Latitude, &o.Longitude, &flags[0], &flags[1],
		&battery, &flags[2],
		&rh, &flags[3],
		&wspd1, &flags[4],
		&wdir1, &flags[5],
		&gust1, &flags[6],
		&atmp, &flags[7],
		&pres, &flags[8],
		&dewpt, &flags[9],
		&sst, &flags[10],
		&cspd1, &flags[11],
		&cdir1, &flags[12],
		&swvht1, &flags[13],
		&tp1, &flags[14],
		&mxwvht1, &flags[15],
		&wvdir1, &flags[16],
	)
	if err != nil {
		return o, err
	}

	o.DateTime = o.DateTime.UTC()
	o.FlagLatitude = nullInt16Ptr(flags[0])
	o.FlagLongitude = nullInt16Ptr(flags[1])
	o.Battery, o.FlagBattery = nullFloatPtr(battery), nullInt16Ptr(flags[2])
	o.RH, o.FlagRH = nullFloatPtr(rh), nullInt16Ptr(flags[3])
	o.Wspd1, o.FlagWspd1 = nullFloatPtr(wspd1), nullInt16Ptr(flags[4])
	o.Wdir1, o.FlagWdir1 = nullInt16Ptr(wdir1), nullInt16Ptr(flags[5])
	o.Gust1, o.FlagGust1 = nullFloatPtr(gust1), nullInt16Ptr(flags[6])
	o.Atmp, o.FlagAtmp = nullFloatPtr(atmp), nullInt16Ptr(flags[7])
	o.Pres, o.FlagPres = nullFloatPtr(pres), nullInt16Ptr(flags[8])
	o.Dewpt, o.FlagDewpt = nullFloatPtr(dewpt), nullInt16Ptr(flags[9])
	o.Sst, o.FlagSst = nullFloatPtr(sst), nullInt16Ptr(flags[10])
	o.Cspd1, o.FlagCspd1 = nullFloatPtr(cspd1), nullInt16Ptr(flags[11])
	o.Cdir1, o.FlagCdir1 = nullInt16Ptr(cdir1), nullInt16Ptr(flags[12])
	o.Swvht1, o.FlagSwvht1 = nullFloatPtr(swvht1), nullInt16Ptr(flags[13])
	o.Tp1, o.FlagTp1 = nullFloatPtr(tp1), nullInt16Ptr(flags[14])
	o.Mxwvht1, o.FlagMxwvht1 = nullFloatPtr(mxwvht1), nullInt16Ptr(flags[15])
	o.Wvdir1, o.FlagWvdir1 = nullInt16Ptr(wvdir1), nullInt16Ptr(flags[16])
	return o, nil
}

func qualifiedInsertValues(o QualifiedObservation) []any {
	return []any{
		o.BuoyID, o.DateTime,
		o.Latitude, o.Longitude, o.FlagLatitude, o.FlagLongitude,
		o.Battery, o.FlagBattery,
		o.RH, o.FlagRH,
		o.Wspd1, o.FlagWspd1,
		o.Wdir1, o.FlagWdir1,
		o.Gust1, o.FlagGust1,
		o.Atmp, o.FlagAtmp,
		o.Pres, o.FlagPres,
		o.Dewpt, o.FlagDewpt,
		o.Sst, o.FlagSst,
		o.Cspd1, o.FlagCspd1,
		o.Cdir1, o.FlagCdir1,
		o.Swvht1, o.FlagSwvht1,
		o.Tp1, o.FlagTp1,
		o.Mxwvht1, o.FlagMxwvht1,
		o.Wvdir1, o.FlagWvdir1,
	}
}

// QualifiedFlagPairs declares the measurement/flag bindings for redaction.
// flag_latitude and flag_longitude are deliberately absent: they mark
// position quality without redacting the coordinates.
func QualifiedFlagPairs() []FlagPair[QualifiedObservation] {
	return []FlagPair[QualifiedObservation]{
		{Field: "battery", Flag: func(o *QualifiedObservation) *int16 { return o.FlagBattery }, Clear: func(o *QualifiedObservation) { o.Battery = nil }},
		{Field: "rh", Flag: func(o *QualifiedObservation) *int16 { return o.FlagRH }, Clear: func(o *QualifiedObservation) { o.RH = nil }},
		{Field: "wspd1", Flag: func(o *QualifiedObservation) *int16 { return o.FlagWspd1 }, Clear: func(o *QualifiedObservation) { o.Wspd1 = nil }},
		{Field: "wdir1", Flag: func(o *QualifiedObservation) *int16 { return o.FlagWdir1 }, Clear: func(o *QualifiedObservation) { o.Wdir1 = nil }},
		{Field: "gust1", Flag: func(o *QualifiedObservation) *int16 { return o.FlagGust1 }, Clear: func(o *QualifiedObservation) { o.Gust1 = nil }},
		{Field: "atmp", Flag: func(o *QualifiedObservation) *int16 { return o.FlagAtmp }, Clear: func(o *QualifiedObservation) { o.Atmp = nil }},
		{Field: "pres", Flag: func(o *QualifiedObservation) *int16 { return o.FlagPres }, Clear: func(o *QualifiedObservation) { o.Pres = nil }},
		{Field: "dewpt", Flag: func(o *QualifiedObservation) *int16 { return o.FlagDewpt }, Clear: func(o *QualifiedObservation) { o.Dewpt = nil }},
		{Field: "sst", Flag: func(o *QualifiedObservation) *int16 { return o.FlagSst }, Clear: func(o *QualifiedObservation) { o.Sst = nil }},
		{Field: "cspd1", Flag: func(o *QualifiedObservation) *int16 { return o.FlagCspd1 }, Clear: func(o *QualifiedObservation) { o.Cspd1 = nil }},
		{Field: "cdir1", Flag: func(o *QualifiedObservation) *int16 { return o.FlagCdir1 }, Clear: func(o *QualifiedObservation) { o.Cdir1 = nil }},
		{Field: "swvht1", Flag: func(o *QualifiedObservation) *int16 { return o.FlagSwvht1 }, Clear: func(o *QualifiedObservation) { o.Swvht1 = nil }},
		{Field: "tp1", Flag: func(o *QualifiedObservation) *int16 { return o.FlagTp1 }, Clear: func(o *QualifiedObservation) { o.Tp1 = nil }},
		{Field: "mxwvht1", Flag: func(o *QualifiedObservation) *int16 { return o.FlagMxwvht1 }, Clear: func(o *QualifiedObservation) { o.Mxwvht1 = nil }},
		{Field: "wvdir1", Flag: func(o *QualifiedObservation) *int16 { return o.FlagWvdir1 }, Clear: func(o *QualifiedObservation) { o.Wvdir1 = nil }},
	}
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt16Ptr(v sql.NullInt16) *int16 {
	if !v.Valid {
		return nil
	}
	i := v.Int16
	return &i
}
