package catalog

import (
	"errors"
	"strings"
)

// Domain groups sensors by the kind of statistic the recorder keeps for them.
type Domain string

const (
	DomainEnergy Domain = "energy"
	DomainPower  Domain = "power"
	DomainWater  Domain = "water"
)

// HasSum reports whether sensors of the domain carry a cumulative sum.
func (d Domain) HasSum() bool {
	return d == DomainEnergy || d == DomainWater
}

// HasMean reports whether sensors of the domain carry mean/min/max values.
func (d Domain) HasMean() bool {
	return d == DomainPower
}

// Unit is the unit of measurement written to statistics_meta.
type Unit string

const (
	UnitKWh   Unit = "kWh"
	UnitWatt  Unit = "W"
	UnitLitre Unit = "L"
)

// Role names the physical flow a sensor observes. An energy sensor and a
// power sensor with the same role describe the same flow.
type Role string

const (
	RoleSolarProduction  Role = "solar_production"
	RoleBatteryIn        Role = "battery_in"
	RoleBatteryOut       Role = "battery_out"
	RoleGridImport       Role = "grid_import"
	RoleGridReturn       Role = "grid_return"
	RoleHouseConsumption Role = "house_consumption"

	RoleWaterTotal  Role = "water:total"
	RoleWaterHouse  Role = "water:house"
	RoleWaterGarden Role = "water:garden"
)

const devicePrefix = "device:"

// DeviceRole builds the role tag for a metered household device.
func DeviceRole(name string) Role {
	return Role(devicePrefix + name)
}

// IsDevice reports whether the role is a metered device.
func (r Role) IsDevice() bool {
	return strings.HasPrefix(string(r), devicePrefix)
}

// Device returns the device name of a device role.
func (r Role) Device() string {
	return strings.TrimPrefix(string(r), devicePrefix)
}

// Sensor is an immutable catalog entry.
type Sensor struct {
	ID     string
	Name   string
	Domain Domain
	Unit   Unit
	Role   Role
}

// ObjectID returns the entity id without its "sensor." platform prefix.
func (s Sensor) ObjectID() string {
	if i := strings.IndexByte(s.ID, '.'); i >= 0 {
		return s.ID[i+1:]
	}
	return s.ID
}

// Validate checks sensor invariants.
func (s Sensor) Validate() error {
	if s.ID == "" {
		return errors.New("sensor: empty id")
	}
	if s.Role == "" {
		return errors.New("sensor: empty role")
	}
	switch s.Domain {
	case DomainEnergy:
		if s.Unit != UnitKWh {
			return errors.New("sensor: energy sensors must use kWh")
		}
	case DomainPower:
		if s.Unit != UnitWatt {
			return errors.New("sensor: power sensors must use W")
		}
	case DomainWater:
		if s.Unit != UnitLitre {
			return errors.New("sensor: water sensors must use L")
		}
	default:
		return errors.New("sensor: unknown domain")
	}
	return nil
}
