package synthesis

import (
	"time"

	catalog "demo-data-generator/internal/catalog/domain"
)

// SeriesPoint is one generated reading. Value is the instantaneous power for
// power sensors and the period delta for energy and water sensors, which also
// carry the running Sum.
type SeriesPoint struct {
	SensorID string
	Domain   catalog.Domain
	Start    time.Time
	Value    float64
	Sum      float64
}

// HasSum reports whether the point carries a cumulative sum.
func (p SeriesPoint) HasSum() bool { return p.Domain.HasSum() }

// Period is the length of the statistic period a point covers.
func (p SeriesPoint) Period() time.Duration {
	if p.Domain == catalog.DomainPower {
		return TickInterval
	}
	return time.Hour
}
