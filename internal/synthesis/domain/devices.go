package synthesis

import (
	"math"
	"time"

	catalog "demo-data-generator/internal/catalog/domain"
)

// Config bundles everything day synthesis needs besides the date.
type Config struct {
	Profile     ProfileConfig `yaml:"profile"`
	PeakSolarW  float64       `yaml:"peak_solar_w"`
	BaseLoadW   float64       `yaml:"base_load_w"`
	DeviceNoise float64       `yaml:"device_noise"`
	// EVChargeProbability is the chance that the car charges in a given night window.
	EVChargeProbability float64       `yaml:"ev_charge_probability"`
	Battery             BatteryConfig `yaml:"battery"`
}

// DefaultConfig returns the demo household.
func DefaultConfig() Config {
	return Config{
		Profile:             DefaultProfileConfig(),
		PeakSolarW:          6000,
		BaseLoadW:           150,
		DeviceNoise:         0.05,
		EVChargeProbability: 0.7,
		Battery:             DefaultBatteryConfig(),
	}
}

// DayLoads holds the per-tick demand and yield of one day before the battery
// and the grid are balanced. DeviceW is indexed like catalog.Devices.
type DayLoads struct {
	Profile      MasterProfile
	SolarW       []float64
	DeviceW      [][]float64
	BaseW        []float64
	WaterHouseL  []float64
	WaterGardenL []float64
}

// HouseW returns the total household consumption at tick i.
func (d DayLoads) HouseW(i int) float64 {
	total := d.BaseW[i]
	for _, series := range d.DeviceW {
		total += series[i]
	}
	return total
}

// SynthesizeDay derives the loads of the local day containing date. It is a
// pure function of (date, base seed, cfg).
func SynthesizeDay(date time.Time, base uint64, cfg Config) DayLoads {
	seed := DaySeed(LocalMidnight(date), base)
	profile := NewMasterProfile(date, seed, cfg.Profile)
	n := len(profile.Ticks)

	loads := DayLoads{
		Profile: profile,
		SolarW:  make([]float64, n),
		DeviceW: make([][]float64, len(catalog.Devices)),
		BaseW:   make([]float64, n),
	}
	for i, v := range profile.Solar {
		loads.SolarW[i] = cfg.PeakSolarW * v
	}

	ev := stream(seed, "ev-schedule")
	schedule := daySchedule{
		evMorning: ev.Float64() < cfg.EVChargeProbability,
		evEvening: ev.Float64() < cfg.EVChargeProbability,
	}

	for d, name := range catalog.Devices {
		model := deviceModels[name]
		r := stream(seed, "device:"+name)
		series := make([]float64, n)
		var smoothed float64
		for i, t := range profile.Ticks {
			c := tickContext{
				at:       t,
				load:     profile.Load[i],
				solar:    profile.Solar[i],
				schedule: schedule,
			}
			target := model.target(c) * (1 + jitter(r, cfg.DeviceNoise))
			if i == 0 {
				smoothed = target
			} else {
				smoothed = smoothed*model.smoothing + target*(1-model.smoothing)
			}
			series[i] = math.Max(0, smoothed)
		}
		loads.DeviceW[d] = series
	}

	r := stream(seed, "base-load")
	for i := range profile.Ticks {
		v := cfg.BaseLoadW * (0.7 + 0.6*profile.Load[i]) * (1 + jitter(r, cfg.DeviceNoise))
		loads.BaseW[i] = math.Max(0, v)
	}

	loads.WaterHouseL, loads.WaterGardenL = synthesizeWater(profile, stream(seed, "water"))
	return loads
}

type daySchedule struct {
	evMorning bool
	evEvening bool
}

type tickContext struct {
	at       time.Time
	load     float64
	solar    float64
	schedule daySchedule
}

type deviceModel struct {
	smoothing float64
	target    func(c tickContext) float64
}

var deviceModels = map[string]deviceModel{
	catalog.DeviceHeatPump: {smoothing: 0.90, target: func(c tickContext) float64 {
		base := 600.0
		if h := c.at.Hour(); h >= 6 && h <= 21 {
			base = 1200
		}
		return base * heatingFactor(c.at.Month()) * (0.8 + 0.4*c.load)
	}},
	catalog.DeviceInduction: {smoothing: 0.70, target: func(c tickContext) float64 {
		h, m := c.at.Hour(), c.at.Minute()
		switch {
		case h == 7 && m >= 20 && m <= 50:
			return 1200
		case h == 12 && m <= 40:
			return 1500
		case (h == 18 && m >= 30) || (h == 19 && m <= 30):
			return 2000
		}
		return 0
	}},
	catalog.DeviceWaterHeater: {smoothing: 0.80, target: func(c tickContext) float64 {
		switch c.at.Hour() {
		case 6, 7, 8, 19, 20, 21:
			return 1200
		}
		return 80
	}},
	catalog.DeviceAC: {smoothing: 0.90, target: func(c tickContext) float64 {
		return 1500 * coolingFactor(c.at)
	}},
	catalog.DeviceLighting: {smoothing: 0.85, target: func(c tickContext) float64 {
		target := 30.0
		switch h := c.at.Hour(); {
		case h >= 18:
			target = 200
		case h >= 6 && h <= 8:
			target = 120
		}
		return target * (1 - 0.6*c.solar)
	}},
	catalog.DeviceWashing: {smoothing: 0.75, target: func(c tickContext) float64 {
		h, m := c.at.Hour(), c.at.Minute()
		wd := c.at.Weekday()
		weekend := wd == time.Saturday || wd == time.Sunday
		if weekend && (h == 10 || h == 11 || h == 14 || h == 15) {
			return 800
		}
		if !weekend && h == 19 && m <= 30 {
			return 800
		}
		return 0
	}},
	catalog.DeviceEV: {smoothing: 0.95, target: func(c tickContext) float64 {
		h := c.at.Hour()
		if h <= 4 && c.schedule.evMorning {
			return 3500
		}
		if h == 23 && c.schedule.evEvening {
			return 3500
		}
		return 0
	}},
}

func heatingFactor(m time.Month) float64 {
	switch m {
	case time.December, time.January, time.February:
		return 1.0
	case time.March, time.November:
		return 0.6
	case time.April, time.October:
		return 0.3
	}
	return 0.1
}

func coolingFactor(t time.Time) float64 {
	switch t.Month() {
	case time.June, time.July, time.August:
	default:
		return 0
	}
	h := hourOfDay(t)
	if h < 12 || h > 22 {
		return 0
	}
	return math.Max(0, 1-math.Abs(h-16)/8)
}
