package drafts

// Draft checkout lifecycle. PENDING and PAYING are the only states the
// expiry reconciler may transition to EXPIRED; PAID, CANCELLED and EXPIRED
// are terminal.
const (
	StatusPending   = "PENDING"
	StatusPaying    = "PAYING"
	StatusPaid      = "PAID"
	StatusCancelled = "CANCELLED"
	StatusExpired   = "EXPIRED"
)

// Leg types
const (
	LegOut    = "OUT"
	LegReturn = "RETURN"
)

// IsTerminal reports whether a draft in this status can still change.
func IsTerminal(status string) bool {
	switch status {
	case StatusPaid, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// CanFinalize reports whether a draft in this status may be promoted into
// a booking.
func CanFinalize(status string) bool {
	return status == StatusPending || status == StatusPaying
}
