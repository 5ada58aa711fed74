package locks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLSeconds(t *testing.T) {
	assert.Equal(t, 30, ttlSeconds(30*time.Second))
	assert.Equal(t, 1, ttlSeconds(time.Second))

	// SETEX rejects a zero TTL; sub-second values round up.
	assert.Equal(t, 1, ttlSeconds(500*time.Millisecond))
	assert.Equal(t, 1, ttlSeconds(0))
}

func TestParseLockResult(t *testing.T) {
	conflicts, err := parseLockResult([]interface{}{int64(1)})
	assert.NoError(t, err)
	assert.Empty(t, conflicts)

	conflicts, err = parseLockResult([]interface{}{int64(0), "10", "2", "LOCKED", "10", "5", "BOOKED"})
	assert.NoError(t, err)
	assert.Equal(t, []Conflict{
		{TripID: 10, SeatID: 2, Kind: ConflictLocked},
		{TripID: 10, SeatID: 5, Kind: ConflictBooked},
	}, conflicts)

	_, err = parseLockResult("nonsense")
	assert.Error(t, err)

	_, err = parseLockResult([]interface{}{int64(0), "10", "2"})
	assert.Error(t, err)
}
