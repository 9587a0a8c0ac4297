package preview

import (
	"fmt"
	"time"

	catalog "demo-data-generator/internal/catalog/domain"
	synthesis "demo-data-generator/internal/synthesis/domain"
)

// Day is the full synthetic picture of one local day.
type Day struct {
	Date       time.Time
	Seed       uint64
	Hours      []time.Time
	Ticks      []time.Time
	Energy     map[string][]float64
	Power      map[string][]float64
	Totals     map[string]float64
	BatterySoC float64
}

// BuildDay synthesizes the local day containing date. The battery starts at
// its initial charge since no earlier day is simulated.
func BuildDay(cat *catalog.Catalog, date time.Time, seed uint64, cfg synthesis.Config) (Day, error) {
	midnight := synthesis.LocalMidnight(date)
	next := midnight.AddDate(0, 0, 1)
	window := synthesis.Window{
		EnergyStart: ceilHour(midnight),
		EnergyEnd:   next.Truncate(time.Hour),
		PowerStart:  midnight,
		PowerEnd:    next,
	}

	seq := synthesis.NewSequencer(cat, window, cfg.Battery)
	points, err := seq.Day(synthesis.SynthesizeDay(midnight, seed, cfg))
	if err != nil {
		return Day{}, fmt.Errorf("preview %s: %w", midnight.Format("2006-01-02"), err)
	}
	tail, err := seq.Close()
	if err != nil {
		return Day{}, fmt.Errorf("preview %s: %w", midnight.Format("2006-01-02"), err)
	}
	points = append(points, tail...)

	day := Day{
		Date:       midnight,
		Seed:       seed,
		Energy:     make(map[string][]float64),
		Power:      make(map[string][]float64),
		Totals:     make(map[string]float64),
		BatterySoC: seq.Battery().SoCPercent(),
	}
	hours := make(map[time.Time]bool)
	ticks := make(map[time.Time]bool)
	for _, p := range points {
		if p.HasSum() {
			day.Energy[p.SensorID] = append(day.Energy[p.SensorID], p.Value)
			day.Totals[p.SensorID] += p.Value
			if !hours[p.Start] {
				hours[p.Start] = true
				day.Hours = append(day.Hours, p.Start.In(midnight.Location()))
			}
			continue
		}
		day.Power[p.SensorID] = append(day.Power[p.SensorID], p.Value)
		if !ticks[p.Start] {
			ticks[p.Start] = true
			day.Ticks = append(day.Ticks, p.Start.In(midnight.Location()))
		}
	}
	return day, nil
}

// Total returns the day total of the energy sensor observing a role.
func (d Day) Total(cat *catalog.Catalog, role catalog.Role) float64 {
	s, ok := cat.ByRole(catalog.DomainEnergy, role)
	if !ok {
		return 0
	}
	return d.Totals[s.ID]
}

// SelfSufficiency is the share of house consumption not drawn from the grid.
func (d Day) SelfSufficiency(cat *catalog.Catalog) float64 {
	house := d.Total(cat, catalog.RoleHouseConsumption)
	if house <= 0 {
		return 0
	}
	v := 1 - d.Total(cat, catalog.RoleGridImport)/house
	if v < 0 {
		return 0
	}
	return v
}

func ceilHour(t time.Time) time.Time {
	c := t.Truncate(time.Hour)
	if c.Before(t) {
		c = c.Add(time.Hour)
	}
	return c
}
