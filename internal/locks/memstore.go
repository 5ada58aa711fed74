package locks

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process LockStore for tests and single-node
// development. A single mutex around TryLockSeats gives it the same
// atomicity contract the Redis Lua script provides. Expired keys are
// reaped lazily on read; the clock is injectable so tests can advance
// time.
type MemoryStore struct {
	mu     sync.Mutex
	now    func() time.Time
	values map[string]memValue
	sets   map[string]map[string]struct{}
}

type memValue struct {
	val       string
	expiresAt time.Time // zero = no expiry
}

// NewMemoryStore creates an empty in-memory lock store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:    time.Now,
		values: make(map[string]memValue),
		sets:   make(map[string]map[string]struct{}),
	}
}

// SetClock replaces the store's time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// liveValue returns the value at key, reaping it if expired. Caller holds mu.
func (s *MemoryStore) liveValue(key string) (memValue, bool) {
	v, ok := s.values[key]
	if !ok {
		return memValue{}, false
	}
	if !v.expiresAt.IsZero() && !s.now().Before(v.expiresAt) {
		delete(s.values, key)
		return memValue{}, false
	}
	return v, true
}

func (s *MemoryStore) TryLockSeats(ctx context.Context, req map[int64][]int64, token string, ttl time.Duration) ([]Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tripIDs := make([]int64, 0, len(req))
	for tripID := range req {
		tripIDs = append(tripIDs, tripID)
	}
	sort.Slice(tripIDs, func(i, j int) bool { return tripIDs[i] < tripIDs[j] })

	var conflicts []Conflict
	for _, tripID := range tripIDs {
		booked := s.sets[TripBookedSetKey(tripID)]
		for _, seatID := range req[tripID] {
			if _, isBooked := booked[FormatID(seatID)]; isBooked {
				conflicts = append(conflicts, Conflict{TripID: tripID, SeatID: seatID, Kind: ConflictBooked})
				continue
			}
			if holder, ok := s.liveValue(SeatLockKey(tripID, seatID)); ok && holder.val != token {
				conflicts = append(conflicts, Conflict{TripID: tripID, SeatID: seatID, Kind: ConflictLocked})
			}
		}
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	expiry := s.now().Add(ttl)
	for _, tripID := range tripIDs {
		for _, seatID := range req[tripID] {
			s.values[SeatLockKey(tripID, seatID)] = memValue{val: token, expiresAt: expiry}
			s.addMember(TripLockedSetKey(tripID), FormatID(seatID))
			s.addMember(SessionSeatsKey(token, tripID), FormatID(seatID))
		}
		s.addMember(SessionTripsKey(token), FormatID(tripID))
	}
	s.values[SessionTTLKey(token)] = memValue{val: "1", expiresAt: expiry}

	return nil, nil
}

// addMember inserts into a set, creating it if needed. Caller holds mu.
func (s *MemoryStore) addMember(key, member string) {
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.liveValue(key)
	if !ok {
		return "", nil
	}
	return v.val, nil
}

func (s *MemoryStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = memValue{val: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
		delete(s.sets, key)
	}
	return nil
}

func (s *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.liveValue(key)
	if !ok || v.expiresAt.IsZero() {
		return 0, nil
	}
	return v.expiresAt.Sub(s.now()), nil
}

func (s *MemoryStore) SAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		s.addMember(key, m)
	}
	return nil
}

func (s *MemoryStore) SRem(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
	return nil
}

func (s *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		return nil, nil
	}
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	sort.Strings(members)
	return members, nil
}

func (s *MemoryStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		return false, nil
	}
	_, found := set[member]
	return found, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
