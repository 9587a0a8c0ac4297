package synthesis

import (
	"fmt"
	"time"

	catalog "demo-data-generator/internal/catalog/domain"
)

// Sequencer turns day loads into series points. It owns the state that
// crosses day boundaries (battery charge, the open hour, running sums), so
// days must be fed in time order by a single caller.
type Sequencer struct {
	window  Window
	energy  []catalog.Sensor
	power   []catalog.Sensor
	devices map[string]int
	battery *Battery

	hour       time.Time
	hourValues []float64
	hourTicks  int

	sums    []float64
	started bool

	last   time.Time
	counts map[string]int
}

// NewSequencer builds a sequencer for the catalog's energy, water and power sensors.
func NewSequencer(cat *catalog.Catalog, window Window, battery BatteryConfig) *Sequencer {
	var accumulated []catalog.Sensor
	accumulated = append(accumulated, cat.ByDomain(catalog.DomainEnergy)...)
	accumulated = append(accumulated, cat.ByDomain(catalog.DomainWater)...)

	devices := make(map[string]int, len(catalog.Devices))
	for i, name := range catalog.Devices {
		devices[name] = i
	}
	return &Sequencer{
		window:     window,
		energy:     accumulated,
		power:      cat.ByDomain(catalog.DomainPower),
		devices:    devices,
		battery:    NewBattery(battery),
		hourValues: make([]float64, len(accumulated)),
		sums:       make([]float64, len(accumulated)),
		counts:     make(map[string]int),
	}
}

type tickFlows struct {
	Flows
	waterHouseL  float64
	waterGardenL float64
}

// Day balances one day and returns the points it completes.
func (s *Sequencer) Day(d DayLoads) ([]SeriesPoint, error) {
	start, end := s.window.Start(), s.window.End()
	points := make([]SeriesPoint, 0, len(d.Profile.Ticks)*len(s.power)/4)

	for i, at := range d.Profile.Ticks {
		if at.Before(start) || !at.Before(end) {
			continue
		}
		if !s.last.IsZero() && !at.After(s.last) {
			return nil, fmt.Errorf("%w: tick %s after %s", ErrOutOfOrder, at.Format(time.RFC3339), s.last.Format(time.RFC3339))
		}
		s.last = at

		house := d.HouseW(i)
		charge, discharge := s.battery.Step(at, d.SolarW[i]-house, TickInterval)
		tf := tickFlows{
			Flows:        Balance(d.SolarW[i], house, charge, discharge),
			waterHouseL:  d.WaterHouseL[i],
			waterGardenL: d.WaterGardenL[i],
		}
		tf.DeviceW = make([]float64, len(d.DeviceW))
		for k := range d.DeviceW {
			tf.DeviceW[k] = d.DeviceW[k][i]
		}
		if err := tf.Check(); err != nil {
			return nil, fmt.Errorf("tick %s: %w", at.UTC().Format(time.RFC3339), err)
		}

		if s.window.ContainsPower(at) {
			for _, sensor := range s.power {
				points = append(points, SeriesPoint{
					SensorID: sensor.ID,
					Domain:   sensor.Domain,
					Start:    at.UTC(),
					Value:    s.value(sensor, tf),
				})
				s.counts[sensor.ID]++
			}
		}

		bucket := at.Truncate(time.Hour)
		if s.hourTicks > 0 && !bucket.Equal(s.hour) {
			closed, err := s.closeHour()
			if err != nil {
				return nil, err
			}
			points = append(points, closed...)
		}
		if s.hourTicks == 0 {
			s.hour = bucket
		}
		for k, sensor := range s.energy {
			v := s.value(sensor, tf)
			if sensor.Domain == catalog.DomainEnergy {
				v = v * TickInterval.Hours() / 1000
			}
			s.hourValues[k] += v
		}
		s.hourTicks++
	}
	return points, nil
}

// Close flushes the open hour. The sequencer must not be used afterwards.
func (s *Sequencer) Close() ([]SeriesPoint, error) {
	if s.hourTicks == 0 {
		return nil, nil
	}
	return s.closeHour()
}

// Counts returns the number of points emitted per sensor.
func (s *Sequencer) Counts() map[string]int {
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Battery exposes the battery for inspection.
func (s *Sequencer) Battery() *Battery { return s.battery }

func (s *Sequencer) closeHour() ([]SeriesPoint, error) {
	defer func() {
		for k := range s.hourValues {
			s.hourValues[k] = 0
		}
		s.hourTicks = 0
	}()
	if !s.window.ContainsEnergy(s.hour) {
		return nil, nil
	}
	if s.hourTicks != int(ticksPerHour) {
		return nil, fmt.Errorf("%w: hour %s has %d ticks", ErrInvalidWindow, s.hour.UTC().Format(time.RFC3339), s.hourTicks)
	}

	points := make([]SeriesPoint, 0, len(s.energy))
	for k, sensor := range s.energy {
		delta := s.hourValues[k]
		if delta < 0 {
			return nil, fmt.Errorf("%w: %s delta %v", ErrNegativeValue, sensor.ID, delta)
		}
		// the first hour of the window anchors every sum at zero
		if s.started {
			s.sums[k] += delta
		}
		points = append(points, SeriesPoint{
			SensorID: sensor.ID,
			Domain:   sensor.Domain,
			Start:    s.hour.UTC(),
			Value:    delta,
			Sum:      s.sums[k],
		})
		s.counts[sensor.ID]++
	}
	s.started = true
	return points, nil
}

func (s *Sequencer) value(sensor catalog.Sensor, tf tickFlows) float64 {
	switch sensor.Role {
	case catalog.RoleSolarProduction:
		return tf.SolarW
	case catalog.RoleBatteryIn:
		return tf.BatteryInW
	case catalog.RoleBatteryOut:
		return tf.BatteryOutW
	case catalog.RoleGridImport:
		return tf.GridImportW
	case catalog.RoleGridReturn:
		return tf.GridReturnW
	case catalog.RoleHouseConsumption:
		return tf.HouseW
	case catalog.RoleWaterHouse:
		return tf.waterHouseL
	case catalog.RoleWaterGarden:
		return tf.waterGardenL
	case catalog.RoleWaterTotal:
		return tf.waterHouseL + tf.waterGardenL
	}
	if sensor.Role.IsDevice() {
		if k, ok := s.devices[sensor.Role.Device()]; ok {
			return tf.DeviceW[k]
		}
	}
	return 0
}
