package notifications

import (
	"context"
	"encoding/json"
	"time"
)

// Seat event types pushed to connected clients via the real-time layer.
const (
	EventSeatsLocked   = "seats.locked"
	EventSeatsUnlocked = "seats.unlocked"
	EventSeatBooked    = "seat.booked"
)

// SeatEvent is the broadcast payload. Seats are grouped per trip so
// subscribers watching a single trip page can filter cheaply.
type SeatEvent struct {
	Type        string             `json:"type"`
	SeatsByTrip map[int64][]int64  `json:"seats_by_trip"`
	BookingID   string             `json:"booking_id,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// ToJSON serializes the event for the wire.
func (e *SeatEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Broadcaster pushes seat state changes to the real-time layer. The core
// treats it as fire-and-forget: implementations report errors so callers
// can log them, but no caller lets a broadcast failure fail the operation.
type Broadcaster interface {
	SeatsLocked(ctx context.Context, seatsByTrip map[int64][]int64) error
	SeatsUnlocked(ctx context.Context, seatsByTrip map[int64][]int64) error
	SeatBooked(ctx context.Context, bookingID string, seatsByTrip map[int64][]int64) error
	Close() error
}
