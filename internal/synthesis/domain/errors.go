package synthesis

import "errors"

var (
	// ErrConservationViolated is returned when a tick does not balance.
	ErrConservationViolated = errors.New("synthesis: conservation violated")
	// ErrNegativeValue is returned when a flow or delta is negative.
	ErrNegativeValue = errors.New("synthesis: negative value")
	// ErrInvalidWindow is returned when window bounds are unusable.
	ErrInvalidWindow = errors.New("synthesis: invalid window")
	// ErrOutOfOrder is returned when days are fed to the sequencer out of order.
	ErrOutOfOrder = errors.New("synthesis: day out of order")
)
