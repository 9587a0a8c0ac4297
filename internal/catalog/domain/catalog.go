package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCatalogMismatch is returned when generated or declared sensors differ from the catalog.
var ErrCatalogMismatch = errors.New("catalog: sensor mismatch")

// Metered household devices.
const (
	DeviceHeatPump    = "heat_pump"
	DeviceInduction   = "induction"
	DeviceWaterHeater = "water_heater"
	DeviceAC          = "ac"
	DeviceLighting    = "lighting"
	DeviceWashing     = "washing"
	DeviceEV          = "ev"
)

// Devices lists the metered devices in a stable order.
var Devices = []string{
	DeviceHeatPump,
	DeviceInduction,
	DeviceWaterHeater,
	DeviceAC,
	DeviceLighting,
	DeviceWashing,
	DeviceEV,
}

const idPrefix = "sensor.demo_boneio_"

func energy(suffix, name string, role Role) Sensor {
	return Sensor{ID: idPrefix + suffix, Name: "Demo " + name, Domain: DomainEnergy, Unit: UnitKWh, Role: role}
}

func power(suffix, name string, role Role) Sensor {
	return Sensor{ID: idPrefix + suffix, Name: "Demo " + name, Domain: DomainPower, Unit: UnitWatt, Role: role}
}

func water(suffix, name string, role Role) Sensor {
	return Sensor{ID: idPrefix + suffix, Name: "Demo " + name, Domain: DomainWater, Unit: UnitLitre, Role: role}
}

var sensors = []Sensor{
	energy("solar_production", "Solar Production", RoleSolarProduction),
	energy("battery_energy_in", "Battery Energy In", RoleBatteryIn),
	energy("battery_energy_out", "Battery Energy Out", RoleBatteryOut),
	energy("grid_consumption", "Grid Consumption", RoleGridImport),
	energy("grid_return", "Grid Return", RoleGridReturn),
	energy("house_consumption", "House Consumption", RoleHouseConsumption),
	energy("heat_pump_energy", "Heat Pump Energy", DeviceRole(DeviceHeatPump)),
	energy("induction_energy", "Induction Energy", DeviceRole(DeviceInduction)),
	energy("water_heater_energy", "Water Heater Energy", DeviceRole(DeviceWaterHeater)),
	energy("ac_energy", "AC Energy", DeviceRole(DeviceAC)),
	energy("lighting_energy", "Lighting Energy", DeviceRole(DeviceLighting)),
	energy("washing_energy", "Washing Energy", DeviceRole(DeviceWashing)),
	energy("ev_energy", "EV Energy", DeviceRole(DeviceEV)),

	water("water_total", "Water Total", RoleWaterTotal),
	water("water_house", "Water House", RoleWaterHouse),
	water("water_garden", "Water Garden", RoleWaterGarden),

	power("solar_power", "Solar Power", RoleSolarProduction),
	power("battery_power", "Battery Power", RoleBatteryOut),
	power("battery_charge_power", "Battery Charge Power", RoleBatteryIn),
	power("grid_power", "Grid Power", RoleGridImport),
	power("grid_return_power", "Grid Return Power", RoleGridReturn),
	power("house_power", "House Power", RoleHouseConsumption),
	power("heat_pump_power", "Heat Pump Power", DeviceRole(DeviceHeatPump)),
	power("induction_power", "Induction Power", DeviceRole(DeviceInduction)),
	power("water_heater_power", "Water Heater Power", DeviceRole(DeviceWaterHeater)),
	power("ac_power", "AC Power", DeviceRole(DeviceAC)),
	power("lighting_power", "Lighting Power", DeviceRole(DeviceLighting)),
	power("washing_power", "Washing Power", DeviceRole(DeviceWashing)),
	power("ev_power", "EV Power", DeviceRole(DeviceEV)),
}

// Catalog is the fixed set of sensors the generator writes.
type Catalog struct {
	sensors []Sensor
	byID    map[string]int
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(sensors)
	if err != nil {
		panic(err)
	}
	return c
}

// New builds a catalog, rejecting duplicates and invalid entries.
func New(list []Sensor) (*Catalog, error) {
	c := &Catalog{
		sensors: make([]Sensor, 0, len(list)),
		byID:    make(map[string]int, len(list)),
	}
	for _, s := range list {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", s.ID, err)
		}
		if _, ok := c.byID[s.ID]; ok {
			return nil, fmt.Errorf("catalog: duplicate sensor %s", s.ID)
		}
		c.byID[s.ID] = len(c.sensors)
		c.sensors = append(c.sensors, s)
	}
	return c, nil
}

// Sensors returns a copy of all catalog entries in declaration order.
func (c *Catalog) Sensors() []Sensor {
	out := make([]Sensor, len(c.sensors))
	copy(out, c.sensors)
	return out
}

// Len returns the number of sensors.
func (c *Catalog) Len() int { return len(c.sensors) }

// Lookup finds a sensor by entity id.
func (c *Catalog) Lookup(id string) (Sensor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Sensor{}, false
	}
	return c.sensors[i], true
}

// ByDomain returns the sensors of one domain in declaration order.
func (c *Catalog) ByDomain(domain Domain) []Sensor {
	var out []Sensor
	for _, s := range c.sensors {
		if s.Domain == domain {
			out = append(out, s)
		}
	}
	return out
}

// ByRole returns the sensor of the given domain observing a role.
func (c *Catalog) ByRole(domain Domain, role Role) (Sensor, bool) {
	for _, s := range c.sensors {
		if s.Domain == domain && s.Role == role {
			return s, true
		}
	}
	return Sensor{}, false
}

// VerifyCounts checks that every catalog sensor received exactly the expected
// number of points and that no unknown sensor appears.
func (c *Catalog) VerifyCounts(counts map[string]int, expected func(Sensor) int) error {
	var problems []string
	for id := range counts {
		if _, ok := c.byID[id]; !ok {
			problems = append(problems, "orphan "+id)
		}
	}
	for _, s := range c.sensors {
		got := counts[s.ID]
		want := expected(s)
		if got != want {
			problems = append(problems, fmt.Sprintf("%s got=%d want=%d", s.ID, got, want))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %s", ErrCatalogMismatch, strings.Join(problems, ", "))
}
