package locks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua script for the atomic multi-seat, multi-trip lock. Executing the
// check-then-set server-side is what makes two racing requests safe: the
// loser observes the winner's writes, never a partial state.
//
// Key layout must stay in sync with keys.go.
const luaTryLockSeats = `
-- ARGV[1] = holder token
-- ARGV[2] = ttl seconds
-- ARGV[3] = trip count
-- ARGV[4..] = per trip: trip_id, seat_count, seat ids...

local token = ARGV[1]
local ttl = tonumber(ARGV[2])
local ntrips = tonumber(ARGV[3])

local idx = 4
local conflicts = {}
local trips = {}
local seats = {}

for t = 1, ntrips do
    local trip = ARGV[idx]
    local count = tonumber(ARGV[idx + 1])
    idx = idx + 2
    local group = {}
    for i = 1, count do
        local seat = ARGV[idx]
        idx = idx + 1
        group[#group + 1] = seat
        if redis.call("SISMEMBER", "trip:" .. trip .. ":booked", seat) == 1 then
            conflicts[#conflicts + 1] = trip
            conflicts[#conflicts + 1] = seat
            conflicts[#conflicts + 1] = "BOOKED"
        else
            local holder = redis.call("GET", "seat:" .. trip .. ":" .. seat)
            if holder and holder ~= token then
                conflicts[#conflicts + 1] = trip
                conflicts[#conflicts + 1] = seat
                conflicts[#conflicts + 1] = "LOCKED"
            end
        end
    end
    trips[#trips + 1] = trip
    seats[trip] = group
end

-- Any conflict aborts the whole request before a single write.
if #conflicts > 0 then
    local res = {0}
    for i = 1, #conflicts do
        res[#res + 1] = conflicts[i]
    end
    return res
end

for t = 1, #trips do
    local trip = trips[t]
    local group = seats[trip]
    for i = 1, #group do
        local seat = group[i]
        redis.call("SETEX", "seat:" .. trip .. ":" .. seat, ttl, token)
        redis.call("SADD", "trip:" .. trip .. ":locked", seat)
        redis.call("SADD", "session:" .. token .. ":trip:" .. trip, seat)
    end
    redis.call("SADD", "session:" .. token .. ":trips", trip)
end

-- The marker's expiry event is what later triggers session cleanup.
redis.call("SETEX", "session:" .. token .. ":ttl", ttl, "1")

return {1}
`

// RedisLockStore implements LockStore against a Redis server.
type RedisLockStore struct {
	client  *redis.Client
	lockSHA string
}

// NewRedisLockStore creates a Redis-backed lock store.
func NewRedisLockStore(client *redis.Client) *RedisLockStore {
	return &RedisLockStore{client: client}
}

// PreloadScripts loads the lock script into Redis so the hot path can use
// EVALSHA.
func (s *RedisLockStore) PreloadScripts(ctx context.Context) error {
	sha, err := s.client.ScriptLoad(ctx, luaTryLockSeats).Result()
	if err != nil {
		return fmt.Errorf("failed to load seat lock script: %w", err)
	}
	s.lockSHA = sha
	return nil
}

func (s *RedisLockStore) TryLockSeats(ctx context.Context, req map[int64][]int64, token string, ttl time.Duration) ([]Conflict, error) {
	args := make([]interface{}, 0, 3+len(req)*4)
	args = append(args,
		token,
		strconv.Itoa(ttlSeconds(ttl)),
		strconv.Itoa(len(req)),
	)
	for tripID, seatIDs := range req {
		args = append(args, FormatID(tripID), strconv.Itoa(len(seatIDs)))
		for _, seatID := range seatIDs {
			args = append(args, FormatID(seatID))
		}
	}

	var result interface{}
	var err error
	if s.lockSHA != "" {
		result, err = s.client.EvalSha(ctx, s.lockSHA, nil, args...).Result()
	}
	if s.lockSHA == "" || err != nil {
		// Script not loaded yet (or flushed), fall back to EVAL.
		result, err = s.client.Eval(ctx, luaTryLockSeats, nil, args...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to execute seat lock script: %w", err)
		}
	}

	return parseLockResult(result)
}

// ttlSeconds renders a TTL for SETEX, which rejects values below one
// second. Sub-second holds round up rather than failing the script.
func ttlSeconds(ttl time.Duration) int {
	seconds := int(ttl.Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

// parseLockResult decodes {1} or {0, trip, seat, kind, ...}.
func parseLockResult(result interface{}) ([]Conflict, error) {
	arr, ok := result.([]interface{})
	if !ok || len(arr) == 0 {
		return nil, fmt.Errorf("unexpected result format from seat lock script")
	}

	success, ok := arr[0].(int64)
	if !ok {
		return nil, fmt.Errorf("invalid success flag in seat lock script result")
	}
	if success == 1 {
		return nil, nil
	}

	if (len(arr)-1)%3 != 0 {
		return nil, fmt.Errorf("malformed conflict list in seat lock script result")
	}

	conflicts := make([]Conflict, 0, (len(arr)-1)/3)
	for i := 1; i < len(arr); i += 3 {
		tripStr, ok1 := arr[i].(string)
		seatStr, ok2 := arr[i+1].(string)
		kindStr, ok3 := arr[i+2].(string)
		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("malformed conflict entry in seat lock script result")
		}
		tripID, err := ParseID(tripStr)
		if err != nil {
			return nil, fmt.Errorf("invalid trip id in conflict entry: %w", err)
		}
		seatID, err := ParseID(seatStr)
		if err != nil {
			return nil, fmt.Errorf("invalid seat id in conflict entry: %w", err)
		}
		conflicts = append(conflicts, Conflict{
			TripID: tripID,
			SeatID: seatID,
			Kind:   ConflictKind(kindStr),
		})
	}

	return conflicts, nil
}

func (s *RedisLockStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lock store get: %w", err)
	}
	return val, nil
}

func (s *RedisLockStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("lock store set: %w", err)
	}
	return nil
}

func (s *RedisLockStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("lock store del: %w", err)
	}
	return nil
}

func (s *RedisLockStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("lock store ttl: %w", err)
	}
	// Redis reports -1 (no expiry) and -2 (missing) as negative durations.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *RedisLockStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SAdd(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("lock store sadd: %w", err)
	}
	return nil
}

func (s *RedisLockStore) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SRem(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("lock store srem: %w", err)
	}
	return nil
}

func (s *RedisLockStore) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock store smembers: %w", err)
	}
	return members, nil
}

func (s *RedisLockStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("lock store sismember: %w", err)
	}
	return ok, nil
}

func (s *RedisLockStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
