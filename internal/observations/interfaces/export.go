package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	observations "buoycloud/internal/observations/domain"
)

// exportColumns is the column order shared by the CSV and XLSX builders.
var exportColumns = []string{
	"date_time", "buoy_id", "latitude", "longitude",
	"battery", "rh", "wspd1", "wdir1", "gust1", "atmp", "pres", "dewpt",
	"sst", "cspd1", "cdir1", "swvht1", "tp1", "mxwvht1", "wvdir1",
}

// ExportFilename composes a download name from the platform name and the
// query window, matching the historical naming scheme: lowercase, spaces
// collapsed to underscores, timestamps as yyyymmddHHMM.
func ExportFilename(buoyName string, window observations.Window) string {
	name := strings.ToLower(strings.TrimSpace(buoyName))
	name = strings.Join(strings.Fields(name), "_")
	if name == "" {
		name = "buoy"
	}
	return fmt.Sprintf("%s_%s_%s",
		name,
		window.Start.Format("200601021504"),
		window.End.Format("200601021504"),
	)
}

// BuildQualifiedCSV renders observations as CSV, newest row first as given.
func BuildQualifiedCSV(rows []observations.QualifiedObservation) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportColumns); err != nil {
		return nil, err
	}
	for _, o := range rows {
		record := []string{
			o.DateTime.UTC().Format("2006-01-02 15:04:05"),
			strconv.FormatInt(o.BuoyID, 10),
			strconv.FormatFloat(o.Latitude, 'f', -1, 64),
			strconv.FormatFloat(o.Longitude, 'f', -1, 64),
			formatFloat(o.Battery),
			formatFloat(o.RH),
			formatFloat(o.Wspd1),
			formatInt16(o.Wdir1),
			formatFloat(o.Gust1),
			formatFloat(o.Atmp),
			formatFloat(o.Pres),
			formatFloat(o.Dewpt),
			formatFloat(o.Sst),
			formatFloat(o.Cspd1),
			formatInt16(o.Cdir1),
			formatFloat(o.Swvht1),
			formatFloat(o.Tp1),
			formatFloat(o.Mxwvht1),
			formatInt16(o.Wvdir1),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildQualifiedXLSX renders observations as a single-sheet workbook.
func BuildQualifiedXLSX(buoyName string, rows []observations.QualifiedObservation) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "observations"
	f.SetSheetName("Sheet1", sheet)

	for i, column := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, column)
	}

	for rowIdx, o := range rows {
		values := []any{
			o.DateTime.UTC().Format("2006-01-02 15:04:05"),
			o.BuoyID,
			o.Latitude,
			o.Longitude,
			cellFloat(o.Battery),
			cellFloat(o.RH),
			cellFloat(o.Wspd1),
			cellInt16(o.Wdir1),
			cellFloat(o.Gust1),
			cellFloat(o.Atmp),
			cellFloat(o.Pres),
			cellFloat(o.Dewpt),
			cellFloat(o.Sst),
			cellFloat(o.Cspd1),
			cellInt16(o.Cdir1),
			cellFloat(o.Swvht1),
			cellFloat(o.Tp1),
			cellFloat(o.Mxwvht1),
			cellInt16(o.Wvdir1),
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildQualifiedPDF renders a compact report with the wind, pressure and
// wave columns that fit a portrait page.
func BuildQualifiedPDF(buoyName string, window observations.Window, rows []observations.QualifiedObservation) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Qualified Observations")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Buoy: %s", buoyName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Window: %s to %s",
		window.Start.Format("2006-01-02 15:04"),
		window.End.Format("2006-01-02 15:04")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Records: %d", len(rows)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(32, 6, "Time (UTC)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Wspd (m/s)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Wdir (deg)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Atmp (C)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Pres (hPa)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "SST (C)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Swvht (m)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Tp (s)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, o := range rows {
		pdf.CellFormat(32, 6, o.DateTime.UTC().Format("01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, formatFloat(o.Wspd1), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, formatInt16(o.Wdir1), "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 6, formatFloat(o.Atmp), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 6, formatFloat(o.Pres), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, formatFloat(o.Sst), "1", 0, "R", false, 0, "")
		pdf.CellFormat(24, 6, formatFloat(o.Swvht1), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, formatFloat(o.Tp1), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt16(v *int16) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(int64(*v), 10)
}

func cellFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func cellInt16(v *int16) any {
	if v == nil {
		return ""
	}
	return *v
}
