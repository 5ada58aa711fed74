package locks

// ConflictKind says why a requested seat could not be locked.
type ConflictKind string

const (
	// ConflictBooked means the seat is permanently booked.
	ConflictBooked ConflictKind = "BOOKED"
	// ConflictLocked means another session currently holds the seat.
	ConflictLocked ConflictKind = "LOCKED"
)

// Conflict identifies one seat that blocked a lock request.
type Conflict struct {
	TripID int64        `json:"trip_id"`
	SeatID int64        `json:"seat_id"`
	Kind   ConflictKind `json:"kind"`
}
