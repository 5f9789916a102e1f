package occupancy

import "errors"

// Engine errors. Callers match them with errors.Is.
var (
	ErrNoBeds         = errors.New("booking must select at least one bed")
	ErrBedUnavailable = errors.New("bed is not available")
	ErrInvalidNights  = errors.New("extension days must be positive")
	ErrInvalidDate    = errors.New("invalid stay date")
	ErrInvalidBatch   = errors.New("invalid room batch")
	ErrRoomOccupied   = errors.New("room has occupied beds")
	ErrGuestExists    = errors.New("guest id already registered")
	ErrUnknownCommand = errors.New("unknown command")
)
