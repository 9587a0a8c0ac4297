package synthesis

import (
	"math"
	"time"
)

// TickInterval is the finest resolution of every generated series.
const TickInterval = 5 * time.Minute

// ProfileConfig shapes the master profile.
type ProfileConfig struct {
	// DayLengthAmplitudeH is the half swing of day length over the year, in hours.
	DayLengthAmplitudeH float64 `yaml:"day_length_amplitude_h"`
	// SolarNoonH is the local hour of peak irradiance.
	SolarNoonH float64 `yaml:"solar_noon_h"`
	// MinClearness bounds how dark an overcast day may get (0..1).
	MinClearness  float64 `yaml:"min_clearness"`
	SolarNoise    float64 `yaml:"solar_noise"`
	LoadNoise     float64 `yaml:"load_noise"`
	WeekendUplift float64 `yaml:"weekend_uplift"`
}

// DefaultProfileConfig returns a central-European looking profile.
func DefaultProfileConfig() ProfileConfig {
	return ProfileConfig{
		DayLengthAmplitudeH: 4,
		SolarNoonH:          12.5,
		MinClearness:        0.35,
		SolarNoise:          0.08,
		LoadNoise:           0.05,
		WeekendUplift:       0.15,
	}
}

// MasterProfile is the canonical shape of one local calendar day from which
// every sensor series of that day is derived. Solar and Load are fractions in [0,1].
type MasterProfile struct {
	Date      time.Time
	Seed      uint64
	Season    float64
	Clearness float64
	Ticks     []time.Time
	Solar     []float64
	Load      []float64
}

// NewMasterProfile builds the profile of the local day containing date.
func NewMasterProfile(date time.Time, seed uint64, cfg ProfileConfig) MasterProfile {
	midnight := LocalMidnight(date)
	ticks := DayTicks(midnight)
	doy := midnight.YearDay()

	r := stream(seed, "master")
	clearness := cfg.MinClearness + (1-cfg.MinClearness)*r.Float64()
	season := SeasonalFactor(doy)

	length := DayLengthHours(doy, cfg.DayLengthAmplitudeH)
	sunrise := cfg.SolarNoonH - length/2
	weekday := midnight.Weekday()
	weekend := weekday == time.Saturday || weekday == time.Sunday

	p := MasterProfile{
		Date:      midnight,
		Seed:      seed,
		Season:    season,
		Clearness: clearness,
		Ticks:     ticks,
		Solar:     make([]float64, len(ticks)),
		Load:      make([]float64, len(ticks)),
	}

	var solarNoise, loadNoise float64
	for i, t := range ticks {
		h := hourOfDay(t)

		solarNoise = 0.9*solarNoise + 0.1*jitter(r, cfg.SolarNoise)
		shape := solarShape(h, sunrise, length)
		p.Solar[i] = clamp01(shape * season * clearness * (1 + solarNoise))

		loadNoise = 0.8*loadNoise + 0.2*jitter(r, cfg.LoadNoise)
		load := loadShape(h)
		if weekend {
			load += cfg.WeekendUplift * gauss(h, 13, 3.5)
		}
		p.Load[i] = clamp01(load * weekdayFactor[weekday] * (1 + loadNoise))
	}
	return p
}

// SeasonalFactor scales solar yield by day of year, peaking at the June solstice.
func SeasonalFactor(dayOfYear int) float64 {
	return 0.3 + 0.7*(0.5+0.5*math.Sin(2*math.Pi*float64(dayOfYear-80)/365))
}

// DayLengthHours approximates daylight hours for a day of year.
func DayLengthHours(dayOfYear int, amplitude float64) float64 {
	return 12 + amplitude*math.Sin(2*math.Pi*float64(dayOfYear-80)/365)
}

// LocalMidnight returns the start of the local calendar day of t.
func LocalMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayTicks returns the 5-minute grid instants that fall in the local day
// starting at midnight. Consecutive days tile the time line without gaps.
func DayTicks(midnight time.Time) []time.Time {
	start := ceilTick(midnight)
	end := ceilTick(midnight.AddDate(0, 0, 1))
	ticks := make([]time.Time, 0, int(end.Sub(start)/TickInterval))
	for t := start; t.Before(end); t = t.Add(TickInterval) {
		ticks = append(ticks, t)
	}
	return ticks
}

func ceilTick(t time.Time) time.Time {
	c := t.Truncate(TickInterval)
	if c.Before(t) {
		c = c.Add(TickInterval)
	}
	return c.In(t.Location())
}

func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

func solarShape(h, sunrise, length float64) float64 {
	x := (h - sunrise) / length
	if x <= 0 || x >= 1 {
		return 0
	}
	return math.Pow(math.Sin(math.Pi*x), 1.3)
}

// loadShape is the weekday household baseline: low overnight, a morning
// bump and the evening peak.
func loadShape(h float64) float64 {
	return 0.92 * (0.3 + 0.4*gauss(h, 7.5, 1.2) + 0.15*gauss(h, 13, 2.5) + 0.7*gauss(h, 19.5, 1.8))
}

var weekdayFactor = [7]float64{
	time.Sunday:    1.08,
	time.Monday:    0.97,
	time.Tuesday:   0.96,
	time.Wednesday: 0.97,
	time.Thursday:  0.98,
	time.Friday:    1.0,
	time.Saturday:  1.06,
}

func gauss(x, mu, sigma float64) float64 {
	d := x - mu
	return math.Exp(-d * d / (2 * sigma * sigma))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
