package locks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "seat:42:7", SeatLockKey(42, 7))
	assert.Equal(t, "trip:42:locked", TripLockedSetKey(42))
	assert.Equal(t, "trip:42:booked", TripBookedSetKey(42))
	assert.Equal(t, "session:abc123:trips", SessionTripsKey("abc123"))
	assert.Equal(t, "session:abc123:trip:42", SessionSeatsKey("abc123", 42))
	assert.Equal(t, "session:abc123:ttl", SessionTTLKey("abc123"))
}

func TestParseSessionTTLKey(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantToken string
		wantMatch bool
	}{
		{"valid marker", "session:abc123:ttl", "abc123", true},
		{"uuid token", "session:d5f7a3c1-9b2e-4f60-8a11-0c2d3e4f5a6b:ttl", "d5f7a3c1-9b2e-4f60-8a11-0c2d3e4f5a6b", true},
		{"seat lock key", "seat:42:7", "", false},
		{"reverse index, not marker", "session:abc123:trips", "", false},
		{"per-trip index, not marker", "session:abc123:trip:42", "", false},
		{"empty token", "session::ttl", "", false},
		{"token with separator", "session:a:b:ttl", "", false},
		{"empty key", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, match := ParseSessionTTLKey(tt.key)
			assert.Equal(t, tt.wantMatch, match)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestFormatParseID(t *testing.T) {
	assert.Equal(t, "42", FormatID(42))

	id, err := ParseID("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParseID("not-a-number")
	assert.Error(t, err)
}
