package locks

import (
	"fmt"
	"strconv"
	"strings"
)

// Redis key namespace for the seat reservation pipeline.
// Pattern: seat/trip keys carry ids, session keys carry the checkout token.
// The Lua script in redis_store.go derives the same keys server-side and
// must stay in sync with these builders.

// SeatLockKey is the per-seat lock: value = holder token, TTL'd.
func SeatLockKey(tripID, seatID int64) string {
	return fmt.Sprintf("seat:%d:%d", tripID, seatID)
}

// TripLockedSetKey is the set of seat ids currently locked on a trip.
func TripLockedSetKey(tripID int64) string {
	return fmt.Sprintf("trip:%d:locked", tripID)
}

// TripBookedSetKey is the set of seat ids permanently booked on a trip.
func TripBookedSetKey(tripID int64) string {
	return fmt.Sprintf("trip:%d:booked", tripID)
}

// SessionTripsKey is the reverse index: trips a session holds seats on.
// Carries no TTL; the reconciler deletes it.
func SessionTripsKey(token string) string {
	return fmt.Sprintf("session:%s:trips", token)
}

// SessionSeatsKey is the reverse index: seats a session holds on one trip.
// Carries no TTL; the reconciler deletes it.
func SessionSeatsKey(token string, tripID int64) string {
	return fmt.Sprintf("session:%s:trip:%d", token, tripID)
}

// SessionTTLKey is the session marker whose keyspace-expiry event triggers
// cleanup of everything the session holds.
func SessionTTLKey(token string) string {
	return fmt.Sprintf("session:%s:ttl", token)
}

// ParseSessionTTLKey extracts the session token from an expired key name.
// Returns false for any key that is not a session TTL marker — seat lock
// keys expiring on their own are expected and must be ignored.
func ParseSessionTTLKey(key string) (string, bool) {
	if !strings.HasPrefix(key, "session:") || !strings.HasSuffix(key, ":ttl") {
		return "", false
	}
	token := strings.TrimSuffix(strings.TrimPrefix(key, "session:"), ":ttl")
	if token == "" || strings.Contains(token, ":") {
		return "", false
	}
	return token, true
}

// FormatID renders a trip or seat id the way set members are stored.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID parses a set member back into an id.
func ParseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
