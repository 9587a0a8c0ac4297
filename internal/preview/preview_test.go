package preview

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	catalog "demo-data-generator/internal/catalog/domain"
	synthesis "demo-data-generator/internal/synthesis/domain"
)

func TestBuildDay(t *testing.T) {
	cat := catalog.Default()
	day, err := BuildDay(cat, time.Date(2024, 6, 15, 14, 0, 0, 0, time.UTC), 7, synthesis.DefaultConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(day.Hours) != 24 || len(day.Ticks) != 288 {
		t.Fatalf("unexpected sizes %d hours %d ticks", len(day.Hours), len(day.Ticks))
	}
	supply := day.Total(cat, catalog.RoleSolarProduction) + day.Total(cat, catalog.RoleBatteryOut) + day.Total(cat, catalog.RoleGridImport)
	demand := day.Total(cat, catalog.RoleBatteryIn) + day.Total(cat, catalog.RoleGridReturn) + day.Total(cat, catalog.RoleHouseConsumption)
	if math.Abs(supply-demand) > 1e-9 {
		t.Fatalf("day does not balance: %v vs %v", supply, demand)
	}
	if s := day.SelfSufficiency(cat); s <= 0 || s > 1 {
		t.Fatalf("summer self-sufficiency out of range: %v", s)
	}
}

func TestBuildXLSX(t *testing.T) {
	cat := catalog.Default()
	day, err := BuildDay(cat, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 7, synthesis.DefaultConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	data, err := BuildXLSX(cat, day)
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("summary", "B3"); v != "2024-01-10" {
		t.Fatalf("unexpected date cell %q", v)
	}
	rows, err := f.GetRows("power")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 289 {
		t.Fatalf("expected header plus 288 power rows, got %d", len(rows))
	}
	if rows[0][1] != "demo_boneio_solar_power" {
		t.Fatalf("unexpected header %q", rows[0][1])
	}
}

func TestBuildPDF(t *testing.T) {
	cat := catalog.Default()
	day, err := BuildDay(cat, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 7, synthesis.DefaultConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	data, err := BuildPDF(cat, day)
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}
