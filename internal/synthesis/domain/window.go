package synthesis

import (
	"fmt"
	"time"
)

// Window bounds one regeneration. Energy statistics are hourly over
// [EnergyStart, EnergyEnd); power statistics are 5-minute over [PowerStart, PowerEnd).
type Window struct {
	EnergyStart time.Time `json:"energy_start"`
	EnergyEnd   time.Time `json:"energy_end"`
	PowerStart  time.Time `json:"power_start"`
	PowerEnd    time.Time `json:"power_end"`
}

// NewWindow computes the window ending at now. Energy history covers
// int(energyYears*365) whole days of hours, power history powerDays days of ticks.
func NewWindow(now time.Time, energyYears float64, powerDays int) (Window, error) {
	energyDays := int(energyYears * 365)
	if energyDays <= 0 {
		return Window{}, fmt.Errorf("%w: energy years %.3f covers no day", ErrInvalidWindow, energyYears)
	}
	if powerDays <= 0 {
		return Window{}, fmt.Errorf("%w: power days %d", ErrInvalidWindow, powerDays)
	}
	energyEnd := now.Truncate(time.Hour)
	powerEnd := now.Truncate(TickInterval)
	return Window{
		EnergyStart: energyEnd.Add(-time.Duration(energyDays) * 24 * time.Hour),
		EnergyEnd:   energyEnd,
		PowerStart:  powerEnd.Add(-time.Duration(powerDays) * 24 * time.Hour),
		PowerEnd:    powerEnd,
	}, nil
}

// Start returns the earliest instant any series needs.
func (w Window) Start() time.Time {
	if w.PowerStart.Before(w.EnergyStart) {
		return w.PowerStart
	}
	return w.EnergyStart
}

// End returns the exclusive end of the union of both windows.
func (w Window) End() time.Time {
	if w.PowerEnd.After(w.EnergyEnd) {
		return w.PowerEnd
	}
	return w.EnergyEnd
}

// EnergyHours is the number of hourly points per energy sensor.
func (w Window) EnergyHours() int {
	return int(w.EnergyEnd.Sub(w.EnergyStart) / time.Hour)
}

// PowerTicks is the number of 5-minute points per power sensor.
func (w Window) PowerTicks() int {
	return int(w.PowerEnd.Sub(w.PowerStart) / TickInterval)
}

// ContainsEnergy reports whether an hour starting at t belongs to the energy window.
func (w Window) ContainsEnergy(t time.Time) bool {
	return !t.Before(w.EnergyStart) && t.Before(w.EnergyEnd)
}

// ContainsPower reports whether a tick belongs to the power window.
func (w Window) ContainsPower(t time.Time) bool {
	return !t.Before(w.PowerStart) && t.Before(w.PowerEnd)
}

// Days lists the local midnights of every calendar day the window touches.
func (w Window) Days(loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.Local
	}
	first := LocalMidnight(w.Start().In(loc))
	last := w.End().Add(-time.Nanosecond).In(loc)
	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
