package statistics

import (
	"time"

	catalog "demo-data-generator/internal/catalog/domain"
	synthesis "demo-data-generator/internal/synthesis/domain"
)

// Table is a recorder statistics table.
type Table string

const (
	// TableHourly keeps hourly long-term statistics.
	TableHourly Table = "statistics"
	// TableShortTerm keeps 5-minute statistics.
	TableShortTerm Table = "statistics_short_term"
)

// Tables lists every statistics table in write order.
var Tables = []Table{TableHourly, TableShortTerm}

// TableFor returns the table a sensor domain is written to.
func TableFor(d catalog.Domain) Table {
	if d == catalog.DomainPower {
		return TableShortTerm
	}
	return TableHourly
}

const (
	// SourceRecorder marks statistics owned by the recorder integration.
	SourceRecorder = "recorder"

	meanTypeNone       = 0
	meanTypeArithmetic = 1

	// powerSpread is the relative width of the min/max band around a power mean.
	powerSpread = 0.05
)

// Metadata is one statistics_meta row.
type Metadata struct {
	StatisticID       string
	Source            string
	UnitOfMeasurement string
	Name              string
	HasMean           bool
	HasSum            bool
	MeanType          int
}

// MetadataFor describes a catalog sensor to the recorder.
func MetadataFor(s catalog.Sensor) Metadata {
	m := Metadata{
		StatisticID:       s.ID,
		Source:            SourceRecorder,
		UnitOfMeasurement: string(s.Unit),
		Name:              s.Name,
		HasMean:           s.Domain.HasMean(),
		HasSum:            s.Domain.HasSum(),
		MeanType:          meanTypeNone,
	}
	if m.HasMean {
		m.MeanType = meanTypeArithmetic
	}
	return m
}

// Row is one statistics or statistics_short_term row. Nil values are written as NULL.
type Row struct {
	MetadataID int64
	Start      time.Time
	Created    time.Time
	State      *float64
	Sum        *float64
	Mean       *float64
	Min        *float64
	Max        *float64
}

// Key identifies a row within its table.
type Key struct {
	MetadataID int64
	StartTS    int64
}

// Key returns the unique key of the row.
func (r Row) Key() Key {
	return Key{MetadataID: r.MetadataID, StartTS: r.Start.Unix()}
}

// Validate checks the row key.
func (r Row) Validate() error {
	if r.MetadataID <= 0 || r.Start.IsZero() {
		return ErrInvalidRow
	}
	return nil
}

// RowFromPoint converts a generated point. Energy and water rows carry the
// period delta as state plus the running sum; power rows carry mean, min and max.
// Created is the end of the period.
func RowFromPoint(metadataID int64, p synthesis.SeriesPoint) Row {
	row := Row{
		MetadataID: metadataID,
		Start:      p.Start.UTC(),
		Created:    p.Start.Add(p.Period()).UTC(),
	}
	if p.HasSum() {
		row.State = float64Ptr(p.Value)
		row.Sum = float64Ptr(p.Sum)
		return row
	}
	row.Mean = float64Ptr(p.Value)
	row.Min = float64Ptr(p.Value * (1 - powerSpread))
	row.Max = float64Ptr(p.Value * (1 + powerSpread))
	return row
}

func float64Ptr(v float64) *float64 { return &v }
