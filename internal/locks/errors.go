package locks

import (
	"errors"
	"fmt"
)

// ErrEmptyRequest is returned when no seats were requested.
var ErrEmptyRequest = errors.New("no seats specified")

// ErrInvalidSeatID is returned for non-positive trip or seat ids.
var ErrInvalidSeatID = errors.New("trip and seat ids must be positive")

// ConflictError reports every seat that blocked an all-or-nothing lock
// request. No state was mutated when this error is returned. It is a
// recoverable condition (the customer picks another seat), distinct from
// infrastructure failures.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return "seat conflict"
	}
	// First conflict drives the customer-facing message.
	first := e.Conflicts[0]
	switch first.Kind {
	case ConflictBooked:
		return fmt.Sprintf("seat %d on trip %d is already booked", first.SeatID, first.TripID)
	default:
		return fmt.Sprintf("seat %d on trip %d is held by someone else", first.SeatID, first.TripID)
	}
}

// AsConflictError unwraps err into a *ConflictError if it is one.
func AsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
