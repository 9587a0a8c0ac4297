package synthesis

import (
	"math"
	"time"
)

// BatteryConfig describes the home battery.
type BatteryConfig struct {
	CapacityKWh    float64 `yaml:"capacity_kwh"`
	MaxChargeW     float64 `yaml:"max_charge_w"`
	MaxDischargeW  float64 `yaml:"max_discharge_w"`
	FloorPercent   float64 `yaml:"floor_percent"`
	CeilingPercent float64 `yaml:"ceiling_percent"`
	InitialPercent float64 `yaml:"initial_percent"`
	// Efficiency applies on charge; discharge is taken at the AC side.
	Efficiency float64 `yaml:"efficiency"`
	// DeadbandW ignores surplus or deficit smaller than this.
	DeadbandW float64 `yaml:"deadband_w"`
}

// DefaultBatteryConfig returns a 10 kWh hybrid inverter battery.
func DefaultBatteryConfig() BatteryConfig {
	return BatteryConfig{
		CapacityKWh:    10,
		MaxChargeW:     2500,
		MaxDischargeW:  2500,
		FloorPercent:   10,
		CeilingPercent: 95,
		InitialPercent: 50,
		Efficiency:     0.95,
		DeadbandW:      50,
	}
}

// BatteryState is the state of the battery state machine.
type BatteryState string

const (
	BatteryIdle        BatteryState = "idle"
	BatteryCharging    BatteryState = "charging"
	BatteryDischarging BatteryState = "discharging"
)

// Battery charges from solar surplus and discharges to cover deficit within
// its capacity bounds. It is stateful and must see ticks in time order.
type Battery struct {
	cfg   BatteryConfig
	socWh float64
	state BatteryState
}

// NewBattery creates a battery at its initial state of charge.
func NewBattery(cfg BatteryConfig) *Battery {
	b := &Battery{cfg: cfg, state: BatteryIdle}
	b.socWh = b.capacityWh() * cfg.InitialPercent / 100
	b.socWh = math.Min(math.Max(b.socWh, b.floorWh()), b.ceilWh())
	return b
}

// Step advances the battery by dt given the household surplus (solar minus
// consumption, negative on deficit) and returns AC-side charge and discharge power.
func (b *Battery) Step(at time.Time, surplusW float64, dt time.Duration) (chargeW, dischargeW float64) {
	hours := dt.Hours()
	if hours <= 0 {
		return 0, 0
	}
	switch {
	case surplusW > b.cfg.DeadbandW:
		room := b.ceilWh() - b.socWh
		if room > 0 && b.cfg.Efficiency > 0 {
			chargeW = math.Min(math.Min(surplusW, b.cfg.MaxChargeW), room/(hours*b.cfg.Efficiency))
			b.socWh += chargeW * hours * b.cfg.Efficiency
		}
	case surplusW < -b.cfg.DeadbandW:
		avail := b.socWh - b.floorWh()
		if avail > 0 {
			want := -surplusW * dischargeCoverage(at.Hour())
			dischargeW = math.Min(math.Min(want, b.cfg.MaxDischargeW), avail/hours)
			b.socWh -= dischargeW * hours
		}
	}
	b.socWh = math.Min(math.Max(b.socWh, b.floorWh()), b.ceilWh())

	switch {
	case chargeW > 0:
		b.state = BatteryCharging
	case dischargeW > 0:
		b.state = BatteryDischarging
	default:
		b.state = BatteryIdle
	}
	return chargeW, dischargeW
}

// State returns the current state.
func (b *Battery) State() BatteryState { return b.state }

// SoCPercent returns the state of charge in percent of capacity.
func (b *Battery) SoCPercent() float64 {
	if b.capacityWh() <= 0 {
		return 0
	}
	return b.socWh / b.capacityWh() * 100
}

func (b *Battery) capacityWh() float64 { return b.cfg.CapacityKWh * 1000 }
func (b *Battery) floorWh() float64    { return b.capacityWh() * b.cfg.FloorPercent / 100 }
func (b *Battery) ceilWh() float64     { return b.capacityWh() * b.cfg.CeilingPercent / 100 }

// dischargeCoverage is the share of the deficit the battery covers at a
// local hour: fully in the evening peak, partly at night, little by day.
func dischargeCoverage(hour int) float64 {
	switch {
	case hour >= 17 && hour <= 22:
		return 1.0
	case hour >= 23 || hour < 6:
		return 0.5
	}
	return 0.3
}
