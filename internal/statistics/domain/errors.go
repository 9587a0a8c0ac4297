package statistics

import "errors"

var (
	// ErrStoreUnavailable is returned when the database cannot be reached.
	ErrStoreUnavailable = errors.New("statistics: store unavailable")
	// ErrPartialWrite is returned when a chunk failed after earlier chunks committed.
	ErrPartialWrite = errors.New("statistics: partial write")
	// ErrNonMonotonic is returned when a cumulative sum decreases.
	ErrNonMonotonic = errors.New("statistics: non-monotonic sum")
	// ErrUnknownSensor is returned when a point references a sensor outside the catalog.
	ErrUnknownSensor = errors.New("statistics: unknown sensor")
	// ErrInvalidRow is returned when a row misses its key.
	ErrInvalidRow = errors.New("statistics: invalid row")
	// ErrWriterState is returned when writer calls are out of order.
	ErrWriterState = errors.New("statistics: writer not started")
)
