package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToInt(t *testing.T) {
	// go-redis returns Lua integers as int64; older paths as strings.
	assert.Equal(t, 5, toInt(int64(5)))
	assert.Equal(t, 7, toInt("7"))
	assert.Equal(t, 0, toInt(nil))
	assert.Equal(t, 0, toInt(3.5))
	assert.Equal(t, 0, toInt("not-a-number"))
}

func TestGetRateLimitType(t *testing.T) {
	assert.Equal(t, RateLimitTypeHealth, getRateLimitType("/health"))
	assert.Equal(t, RateLimitTypeHealth, getRateLimitType("/ping"))
	assert.Equal(t, RateLimitTypeHold, getRateLimitType("/api/v1/holds"))
	assert.Equal(t, RateLimitTypeAdmin, getRateLimitType("/api/v1/admin/booking-items/:id/change-seat"))
	assert.Equal(t, RateLimitTypeDefault, getRateLimitType("/api/v1/drafts/:id"))
}
