package synthesis

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

func TestBatteryStaysWithinBounds(t *testing.T) {
	cfg := DefaultBatteryConfig()
	b := NewBattery(cfg)
	r := rand.New(rand.NewPCG(1, 2))
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10000; i++ {
		surplus := (r.Float64()*2 - 1) * 6000
		charge, discharge := b.Step(at, surplus, TickInterval)
		if charge < 0 || discharge < 0 {
			t.Fatalf("negative battery flow %v %v", charge, discharge)
		}
		if charge > 0 && discharge > 0 {
			t.Fatalf("charge and discharge at once")
		}
		if charge > cfg.MaxChargeW || discharge > cfg.MaxDischargeW {
			t.Fatalf("power limit exceeded %v %v", charge, discharge)
		}
		soc := b.SoCPercent()
		if soc < cfg.FloorPercent-1e-9 || soc > cfg.CeilingPercent+1e-9 {
			t.Fatalf("soc %v outside bounds", soc)
		}
		at = at.Add(TickInterval)
	}
}

func TestBatteryStates(t *testing.T) {
	b := NewBattery(DefaultBatteryConfig())
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	charge, _ := b.Step(at, 1000, TickInterval)
	if charge != 1000 || b.State() != BatteryCharging {
		t.Fatalf("expected charging at 1000 W, got %v %s", charge, b.State())
	}
	if _, discharge := b.Step(at, 10, TickInterval); discharge != 0 || b.State() != BatteryIdle {
		t.Fatalf("deadband should keep the battery idle")
	}

	evening := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	_, discharge := b.Step(evening, -800, TickInterval)
	if discharge != 800 || b.State() != BatteryDischarging {
		t.Fatalf("expected full evening coverage, got %v %s", discharge, b.State())
	}
	_, discharge = b.Step(at, -1000, TickInterval)
	if math.Abs(discharge-300) > 1e-9 {
		t.Fatalf("expected midday coverage of 300 W, got %v", discharge)
	}
}

func TestBatteryStopsAtCeiling(t *testing.T) {
	cfg := DefaultBatteryConfig()
	b := NewBattery(cfg)
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		b.Step(at, 5000, TickInterval)
	}
	if math.Abs(b.SoCPercent()-cfg.CeilingPercent) > 1e-9 {
		t.Fatalf("expected soc at ceiling, got %v", b.SoCPercent())
	}
	if charge, _ := b.Step(at, 5000, TickInterval); charge != 0 {
		t.Fatalf("full battery still charging at %v", charge)
	}
}

func TestBalanceResidual(t *testing.T) {
	f := Balance(1000, 400, 300, 0)
	if f.GridReturnW != 300 || f.GridImportW != 0 {
		t.Fatalf("expected 300 W export, got %+v", f)
	}
	f = Balance(0, 500, 0, 200)
	if f.GridImportW != 300 || f.GridReturnW != 0 {
		t.Fatalf("expected 300 W import, got %+v", f)
	}
	if err := f.Check(); err != nil {
		t.Fatalf("balanced flows rejected: %v", err)
	}
	broken := Flows{SolarW: 10}
	if err := broken.Check(); err == nil {
		t.Fatalf("expected conservation error")
	}
}
