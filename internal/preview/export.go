package preview

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	catalog "demo-data-generator/internal/catalog/domain"
)

// BuildXLSX renders a workbook with a summary, hourly energy and 5-minute power.
func BuildXLSX(cat *catalog.Catalog, day Day) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	hourlySheet := "hourly"
	powerSheet := "power"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(hourlySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(powerSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Demo Day Preview")
	_ = f.SetCellValue(summarySheet, "A3", "Date")
	_ = f.SetCellValue(summarySheet, "B3", day.Date.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A4", "Seed")
	_ = f.SetCellValue(summarySheet, "B4", day.Seed)
	_ = f.SetCellValue(summarySheet, "A5", "Battery SoC (%)")
	_ = f.SetCellValue(summarySheet, "B5", day.BatterySoC)
	_ = f.SetCellValue(summarySheet, "A6", "Self-sufficiency")
	_ = f.SetCellValue(summarySheet, "B6", day.SelfSufficiency(cat))
	_ = f.SetCellValue(summarySheet, "A8", "Sensor")
	_ = f.SetCellValue(summarySheet, "B8", "Total")
	_ = f.SetCellValue(summarySheet, "C8", "Unit")

	accumulated := append(cat.ByDomain(catalog.DomainEnergy), cat.ByDomain(catalog.DomainWater)...)
	for i, s := range accumulated {
		row := i + 9
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), s.ID)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), day.Totals[s.ID])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), string(s.Unit))
	}

	if err := writeSeries(f, hourlySheet, day.Hours, accumulated, day.Energy); err != nil {
		return nil, err
	}
	if err := writeSeries(f, powerSheet, day.Ticks, cat.ByDomain(catalog.DomainPower), day.Power); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSeries(f *excelize.File, sheet string, at []time.Time, sensors []catalog.Sensor, values map[string][]float64) error {
	if err := f.SetCellValue(sheet, "A1", "Start"); err != nil {
		return err
	}
	for c, s := range sensors {
		cell, err := excelize.CoordinatesToCellName(c+2, 1)
		if err != nil {
			return err
		}
		_ = f.SetCellValue(sheet, cell, s.ObjectID())
	}
	for r, t := range at {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", r+2), t.Format("2006-01-02 15:04"))
		for c, s := range sensors {
			series := values[s.ID]
			if r >= len(series) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+2, r+2)
			if err != nil {
				return err
			}
			_ = f.SetCellValue(sheet, cell, series[r])
		}
	}
	return nil
}

// BuildPDF renders a one-page summary of the day.
func BuildPDF(cat *catalog.Catalog, day Day) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Demo Day Preview")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", day.Date.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Seed: %d", day.Seed))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Battery SoC at end of day: %.1f %%", day.BatterySoC))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Self-sufficiency: %.1f %%", 100*day.SelfSufficiency(cat)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 6, "Sensor", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Total", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Unit", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, s := range append(cat.ByDomain(catalog.DomainEnergy), cat.ByDomain(catalog.DomainWater)...) {
		pdf.CellFormat(90, 6, s.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.3f", day.Totals[s.ID]), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, string(s.Unit), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
