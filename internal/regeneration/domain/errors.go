package regeneration

import (
	"context"
	"errors"

	catalog "demo-data-generator/internal/catalog/domain"
	statistics "demo-data-generator/internal/statistics/domain"
	synthesis "demo-data-generator/internal/synthesis/domain"
)

var (
	// ErrConfig is returned for invalid or missing configuration. It is fatal
	// and raised before any writer activity.
	ErrConfig = errors.New("regeneration: invalid configuration")
	// ErrInvariant is returned when a completed run breaks a data invariant.
	ErrInvariant = errors.New("regeneration: invariant violation")
	// ErrRunActive is returned when a trigger arrives while a run is active.
	ErrRunActive = errors.New("regeneration: run already active")
)

// ErrorKind classifies a failed run.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindConfig           ErrorKind = "config_error"
	KindStoreUnavailable ErrorKind = "store_unavailable"
	KindInvariant        ErrorKind = "invariant_violation"
	KindPartialWrite     ErrorKind = "partial_write_failure"
	KindCanceled         ErrorKind = "canceled"
	KindUnknown          ErrorKind = "unknown"
)

// Kind maps an error onto the failure taxonomy.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrConfig):
		return KindConfig
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, statistics.ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, ErrInvariant),
		errors.Is(err, statistics.ErrNonMonotonic),
		errors.Is(err, synthesis.ErrConservationViolated),
		errors.Is(err, synthesis.ErrNegativeValue),
		errors.Is(err, synthesis.ErrOutOfOrder),
		errors.Is(err, synthesis.ErrInvalidWindow):
		return KindInvariant
	case errors.Is(err, statistics.ErrPartialWrite):
		return KindPartialWrite
	case errors.Is(err, catalog.ErrCatalogMismatch):
		return KindConfig
	}
	return KindUnknown
}
