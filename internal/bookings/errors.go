package bookings

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrBookingNotFound is returned when a booking id does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrItemNotFound is returned when a booking item id does not exist.
var ErrItemNotFound = errors.New("booking item not found")

// ErrBookingCancelled is returned when an override targets a cancelled
// booking.
var ErrBookingCancelled = errors.New("booking is cancelled")

// ErrSeatTaken is returned when an override targets a seat that is booked
// or held by an active session.
var ErrSeatTaken = errors.New("seat is not available")

// StaleStateError is returned when finalization reaches a draft that
// already expired or was cancelled. No booking is created.
type StaleStateError struct {
	DraftID uuid.UUID
	Status  string
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("draft %s cannot be finalized: status is %s", e.DraftID, e.Status)
}

// AsStaleState unwraps err into a *StaleStateError if it is one.
func AsStaleState(err error) (*StaleStateError, bool) {
	var se *StaleStateError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IntegrityError is returned when a draft's internal references cannot be
// resolved during finalization. The transaction is rolled back whole.
type IntegrityError struct {
	DraftID uuid.UUID
	Detail  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("draft %s failed integrity check: %s", e.DraftID, e.Detail)
}

// AsIntegrityError unwraps err into a *IntegrityError if it is one.
func AsIntegrityError(err error) (*IntegrityError, bool) {
	var ie *IntegrityError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
