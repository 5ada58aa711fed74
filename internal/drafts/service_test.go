package drafts

import (
	"context"
	"testing"
	"time"

	"busly/internal/coupons"
	"busly/internal/locks"
	"busly/internal/trips"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRepo struct {
	drafts    map[uuid.UUID]*DraftCheckout
	cancelled int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{drafts: make(map[uuid.UUID]*DraftCheckout)}
}

func (f *fakeRepo) CreateDraft(ctx context.Context, draft *DraftCheckout) error {
	f.drafts[draft.ID] = draft
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*DraftCheckout, error) {
	draft, ok := f.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return draft, nil
}

func (f *fakeRepo) CancelActiveForSession(ctx context.Context, sessionToken string, except *uuid.UUID) (int64, error) {
	var n int64
	for _, draft := range f.drafts {
		if draft.SessionToken == sessionToken && !IsTerminal(draft.Status) {
			if except != nil && draft.ID == *except {
				continue
			}
			draft.Status = StatusCancelled
			n++
		}
	}
	f.cancelled += n
	return n, nil
}

func (f *fakeRepo) ExpireSessionDrafts(ctx context.Context, sessionToken string) (int64, error) {
	var n int64
	for _, draft := range f.drafts {
		if draft.SessionToken == sessionToken && !IsTerminal(draft.Status) {
			draft.Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) SetPaying(ctx context.Context, id uuid.UUID, provider, intentID string) (*DraftCheckout, error) {
	draft, ok := f.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if draft.Status != StatusPending && draft.Status != StatusPaying {
		return nil, ErrDraftNotActive
	}
	draft.Status = StatusPaying
	draft.PaymentProvider = &provider
	draft.PaymentIntentID = &intentID
	return draft, nil
}

func (f *fakeRepo) ApplyCoupon(ctx context.Context, id uuid.UUID, code string, discount, total float64) (*DraftCheckout, error) {
	draft, ok := f.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	draft.CouponCode = &code
	draft.Discount = discount
	draft.Total = total
	return draft, nil
}

func (f *fakeRepo) FindOverdue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return nil, nil
}

type fakeTripsRepo struct {
	trips map[int64]*trips.Trip
	seats map[int64]*trips.BusSeat
	fares map[int64]float64 // per trip
}

func newFakeTripsRepo() *fakeTripsRepo {
	return &fakeTripsRepo{
		trips: make(map[int64]*trips.Trip),
		seats: make(map[int64]*trips.BusSeat),
		fares: make(map[int64]float64),
	}
}

func (f *fakeTripsRepo) GetTrip(ctx context.Context, id int64) (*trips.Trip, error) {
	trip, ok := f.trips[id]
	if !ok {
		return nil, trips.ErrTripNotFound
	}
	return trip, nil
}

func (f *fakeTripsRepo) GetSeat(ctx context.Context, id int64) (*trips.BusSeat, error) {
	seat, ok := f.seats[id]
	if !ok {
		return nil, trips.ErrSeatNotFound
	}
	return seat, nil
}

func (f *fakeTripsRepo) GetSeatsByIDs(ctx context.Context, seatIDs []int64) ([]trips.BusSeat, error) {
	var out []trips.BusSeat
	for _, id := range seatIDs {
		if seat, ok := f.seats[id]; ok {
			out = append(out, *seat)
		}
	}
	return out, nil
}

func (f *fakeTripsRepo) FindSeatByLabel(ctx context.Context, busID int64, label string) (*trips.BusSeat, error) {
	for _, seat := range f.seats {
		if seat.BusID == busID && seat.Label == label {
			return seat, nil
		}
	}
	return nil, trips.ErrSeatNotFound
}

func (f *fakeTripsRepo) FareFor(ctx context.Context, tripID, fromLocationID, toLocationID int64) (float64, error) {
	fare, ok := f.fares[tripID]
	if !ok {
		return 0, trips.ErrFareNotFound
	}
	return fare, nil
}

func (f *fakeTripsRepo) UpsertSeatStatus(ctx context.Context, db *gorm.DB, statuses []trips.TripSeatStatus) error {
	return nil
}

func (f *fakeTripsRepo) ReleaseSeatStatus(ctx context.Context, db *gorm.DB, tripID, seatID int64) error {
	return nil
}

func (f *fakeTripsRepo) GetSeatStatus(ctx context.Context, tripID, seatID int64) (*trips.TripSeatStatus, error) {
	return nil, nil
}

func (f *fakeTripsRepo) GetBookedSeatIDs(ctx context.Context, tripID int64) ([]int64, error) {
	return nil, nil
}

func (f *fakeTripsRepo) ListUpcomingTripIDs(ctx context.Context, now time.Time) ([]int64, error) {
	return nil, nil
}

type fakeCoupons struct {
	discount float64
	err      error
}

func (f *fakeCoupons) Discount(ctx context.Context, total float64, code string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.discount, nil
}

type fakeBroadcaster struct {
	locked []map[int64][]int64
}

func (f *fakeBroadcaster) SeatsLocked(ctx context.Context, seatsByTrip map[int64][]int64) error {
	f.locked = append(f.locked, seatsByTrip)
	return nil
}

func (f *fakeBroadcaster) SeatsUnlocked(ctx context.Context, seatsByTrip map[int64][]int64) error {
	return nil
}

func (f *fakeBroadcaster) SeatBooked(ctx context.Context, bookingID string, seatsByTrip map[int64][]int64) error {
	return nil
}

func (f *fakeBroadcaster) Close() error { return nil }

type fixture struct {
	service     Service
	repo        *fakeRepo
	tripsRepo   *fakeTripsRepo
	couponSvc   *fakeCoupons
	broadcaster *fakeBroadcaster
	engine      *locks.Engine
	store       *locks.MemoryStore
}

func newFixture() *fixture {
	repo := newFakeRepo()
	tripsRepo := newFakeTripsRepo()
	couponSvc := &fakeCoupons{}
	broadcaster := &fakeBroadcaster{}
	store := locks.NewMemoryStore()
	engine := locks.NewEngine(store)

	tripsRepo.trips[10] = &trips.Trip{ID: 10, RouteID: 1, BusID: 5}
	tripsRepo.fares[10] = 150000
	tripsRepo.seats[1] = &trips.BusSeat{ID: 1, BusID: 5, Label: "A01", Active: true}
	tripsRepo.seats[2] = &trips.BusSeat{ID: 2, BusID: 5, Label: "B01", Active: true}
	tripsRepo.seats[3] = &trips.BusSeat{ID: 3, BusID: 5, Label: "A02", Active: false}
	tripsRepo.seats[4] = &trips.BusSeat{ID: 4, BusID: 9, Label: "A01", Active: true}

	return &fixture{
		service:     NewService(repo, tripsRepo, couponSvc, engine, broadcaster, nil, 30*time.Second),
		repo:        repo,
		tripsRepo:   tripsRepo,
		couponSvc:   couponSvc,
		broadcaster: broadcaster,
		engine:      engine,
		store:       store,
	}
}

func holdRequest(seatIDs ...int64) *CreateHoldRequest {
	return &CreateHoldRequest{
		Legs: []HoldLegRequest{{
			LegType:           LegOut,
			TripID:            10,
			PickupLocationID:  100,
			DropoffLocationID: 200,
			SeatIDs:           seatIDs,
		}},
		FromLocationID: 100,
		ToLocationID:   200,
	}
}

func TestCreateHold_PricesFromFares(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	resp, err := f.service.CreateHold(ctx, "token-a", nil, holdRequest(1, 2))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, resp.Status)
	assert.Equal(t, float64(300000), resp.Subtotal)
	assert.Equal(t, float64(300000), resp.Total)
	assert.Equal(t, "VND", resp.Currency)
	require.Len(t, resp.Legs, 1)
	require.Len(t, resp.Legs[0].Items, 2)
	assert.Equal(t, float64(150000), resp.Legs[0].Items[0].Price)
	assert.Equal(t, "A01", resp.Legs[0].Items[0].SeatLabel)
	assert.Greater(t, resp.Legs[0].Items[0].TTLLeftSeconds, int64(0))

	// The seats are actually held in the store.
	holder, err := f.engine.HolderOf(ctx, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, "token-a", holder)

	// The draft was persisted and one lock event went out.
	assert.Len(t, f.repo.drafts, 1)
	require.Len(t, f.broadcaster.locked, 1)
	assert.ElementsMatch(t, []int64{1, 2}, f.broadcaster.locked[0][10])
}

func TestCreateHold_CouponDiscount(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.couponSvc.discount = 50000

	req := holdRequest(1, 2)
	req.CouponCode = "WELCOME50"

	resp, err := f.service.CreateHold(ctx, "token-a", nil, req)
	require.NoError(t, err)

	assert.Equal(t, float64(300000), resp.Subtotal)
	assert.Equal(t, float64(50000), resp.Discount)
	assert.Equal(t, float64(250000), resp.Total)
	require.NotNil(t, resp.CouponCode)
	assert.Equal(t, "WELCOME50", *resp.CouponCode)
}

func TestCreateHold_SnapshotsLocationNames(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	req := holdRequest(1)
	req.FromLocationName = "Ben Xe Mien Dong"
	req.ToLocationName = "Ben Xe Da Lat"

	resp, err := f.service.CreateHold(ctx, "token-a", nil, req)
	require.NoError(t, err)

	assert.Equal(t, "Ben Xe Mien Dong", resp.FromLocationName)
	assert.Equal(t, "Ben Xe Da Lat", resp.ToLocationName)

	// The names are persisted on the draft, not just echoed back.
	draft := f.repo.drafts[resp.ID]
	require.NotNil(t, draft)
	assert.Equal(t, "Ben Xe Mien Dong", draft.FromLocationName)
	assert.Equal(t, "Ben Xe Da Lat", draft.ToLocationName)
}

func TestCreateHold_ConflictCreatesNoDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateHold(ctx, "token-a", nil, holdRequest(1))
	require.NoError(t, err)

	_, err = f.service.CreateHold(ctx, "token-b", nil, holdRequest(1, 2))
	require.Error(t, err)
	conflictErr, ok := locks.AsConflictError(err)
	require.True(t, ok)
	assert.Equal(t, locks.ConflictLocked, conflictErr.Conflicts[0].Kind)

	// Only the first session's draft exists; seat 2 stayed free.
	assert.Len(t, f.repo.drafts, 1)
	holder, err := f.engine.HolderOf(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, holder)
}

func TestCreateHold_InactiveSeatRejectedBeforeLocking(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.CreateHold(ctx, "token-a", nil, holdRequest(3))
	assert.ErrorIs(t, err, ErrSeatNotSellable)

	// Wrong bus likewise.
	_, err = f.service.CreateHold(ctx, "token-a", nil, holdRequest(4))
	assert.ErrorIs(t, err, ErrSeatNotSellable)

	// Nothing was locked for either attempt.
	holder, err := f.engine.HolderOf(ctx, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, holder)
	assert.Empty(t, f.repo.drafts)
}

func TestCreateHold_UnknownFare(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	delete(f.tripsRepo.fares, 10)

	_, err := f.service.CreateHold(ctx, "token-a", nil, holdRequest(1))
	assert.ErrorIs(t, err, trips.ErrFareNotFound)
	assert.Empty(t, f.repo.drafts)
}

func TestCreateHold_ForceNewCancelsSiblings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	first, err := f.service.CreateHold(ctx, "token-a", nil, holdRequest(1))
	require.NoError(t, err)

	req := holdRequest(2)
	req.ForceNew = true
	_, err = f.service.CreateHold(ctx, "token-a", nil, req)
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.repo.cancelled)
	assert.Equal(t, StatusCancelled, f.repo.drafts[first.ID].Status)
}

func TestApplyCoupon_OnlyOnPendingDraft(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.couponSvc.discount = 50000

	resp, err := f.service.CreateHold(ctx, "token-a", nil, holdRequest(1, 2))
	require.NoError(t, err)

	updated, err := f.service.ApplyCoupon(ctx, resp.ID, "WELCOME50")
	require.NoError(t, err)
	assert.Equal(t, float64(250000), updated.Total)

	f.repo.drafts[resp.ID].Status = StatusExpired
	_, err = f.service.ApplyCoupon(ctx, resp.ID, "WELCOME50")
	assert.ErrorIs(t, err, ErrDraftNotActive)
}

func TestApplyCoupon_NotApplicable(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	resp, err := f.service.CreateHold(ctx, "token-a", nil, holdRequest(1))
	require.NoError(t, err)

	f.couponSvc.err = coupons.ErrCouponNotApplicable
	_, err = f.service.ApplyCoupon(ctx, resp.ID, "SUMMER10")
	assert.ErrorIs(t, err, coupons.ErrCouponNotApplicable)
}

func TestBeginPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	resp, err := f.service.CreateHold(ctx, "token-a", nil, holdRequest(1))
	require.NoError(t, err)

	paying, err := f.service.BeginPayment(ctx, resp.ID, "momo", "intent-123")
	require.NoError(t, err)
	assert.Equal(t, StatusPaying, paying.Status)

	f.repo.drafts[resp.ID].Status = StatusExpired
	_, err = f.service.BeginPayment(ctx, resp.ID, "momo", "intent-456")
	assert.ErrorIs(t, err, ErrDraftNotActive)
}

func TestGetDraft_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.service.GetDraft(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrDraftNotFound)
}
