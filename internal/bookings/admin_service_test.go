package bookings

import (
	"context"
	"testing"
	"time"

	"busly/internal/drafts"
	"busly/internal/locks"
	"busly/internal/trips"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeOverrideRepo struct {
	booking    *Booking
	item       *BookingItem
	leg        *BookingLeg
	tripChange *TripChange
}

func (f *fakeOverrideRepo) FinalizeFromDraft(ctx context.Context, draftID uuid.UUID, payment PaymentMeta) (*Booking, bool, error) {
	return nil, false, ErrBookingNotFound
}

func (f *fakeOverrideRepo) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	if f.booking == nil || f.booking.ID != id {
		return nil, ErrBookingNotFound
	}
	return f.booking, nil
}

func (f *fakeOverrideRepo) GetItem(ctx context.Context, id uuid.UUID) (*BookingItem, error) {
	if f.item == nil || f.item.ID != id {
		return nil, ErrItemNotFound
	}
	return f.item, nil
}

func (f *fakeOverrideRepo) GetLeg(ctx context.Context, id uuid.UUID) (*BookingLeg, error) {
	if f.leg == nil || f.leg.ID != id {
		return nil, ErrItemNotFound
	}
	return f.leg, nil
}

func (f *fakeOverrideRepo) ApplySeatChange(ctx context.Context, item *BookingItem, newSeat *trips.BusSeat, userID *uuid.UUID) error {
	item.SeatID = newSeat.ID
	item.SeatLabel = newSeat.Label
	return nil
}

func (f *fakeOverrideRepo) ApplyTripChange(ctx context.Context, change *TripChange) error {
	f.tripChange = change
	change.Item.LegID = uuid.New()
	change.Item.TripID = change.NewTrip.ID
	change.Item.SeatID = change.NewSeat.ID
	change.Item.SeatLabel = change.NewSeat.Label
	change.Item.Price = change.NewPrice
	return nil
}

type fakeOverrideTrips struct {
	trips map[int64]*trips.Trip
	seats map[int64]*trips.BusSeat
	fares map[int64]float64 // per trip
}

func (f *fakeOverrideTrips) GetTrip(ctx context.Context, id int64) (*trips.Trip, error) {
	trip, ok := f.trips[id]
	if !ok {
		return nil, trips.ErrTripNotFound
	}
	return trip, nil
}

func (f *fakeOverrideTrips) GetSeat(ctx context.Context, id int64) (*trips.BusSeat, error) {
	seat, ok := f.seats[id]
	if !ok {
		return nil, trips.ErrSeatNotFound
	}
	return seat, nil
}

func (f *fakeOverrideTrips) GetSeatsByIDs(ctx context.Context, seatIDs []int64) ([]trips.BusSeat, error) {
	var out []trips.BusSeat
	for _, id := range seatIDs {
		if seat, ok := f.seats[id]; ok {
			out = append(out, *seat)
		}
	}
	return out, nil
}

func (f *fakeOverrideTrips) FindSeatByLabel(ctx context.Context, busID int64, label string) (*trips.BusSeat, error) {
	for _, seat := range f.seats {
		if seat.BusID == busID && seat.Label == label {
			return seat, nil
		}
	}
	return nil, trips.ErrSeatNotFound
}

func (f *fakeOverrideTrips) FareFor(ctx context.Context, tripID, fromLocationID, toLocationID int64) (float64, error) {
	fare, ok := f.fares[tripID]
	if !ok {
		return 0, trips.ErrFareNotFound
	}
	return fare, nil
}

func (f *fakeOverrideTrips) UpsertSeatStatus(ctx context.Context, db *gorm.DB, statuses []trips.TripSeatStatus) error {
	return nil
}

func (f *fakeOverrideTrips) ReleaseSeatStatus(ctx context.Context, db *gorm.DB, tripID, seatID int64) error {
	return nil
}

func (f *fakeOverrideTrips) GetSeatStatus(ctx context.Context, tripID, seatID int64) (*trips.TripSeatStatus, error) {
	return nil, nil
}

func (f *fakeOverrideTrips) GetBookedSeatIDs(ctx context.Context, tripID int64) ([]int64, error) {
	return nil, nil
}

func (f *fakeOverrideTrips) ListUpcomingTripIDs(ctx context.Context, now time.Time) ([]int64, error) {
	return nil, nil
}

type overrideFixture struct {
	repo        *fakeOverrideRepo
	service     AdminService
	engine      *locks.Engine
	broadcaster *fakeBroadcaster
	itemID      uuid.UUID
	bookingID   uuid.UUID
}

func newOverrideFixture() *overrideFixture {
	bookingID := uuid.New()
	legID := uuid.New()
	itemID := uuid.New()

	repo := &fakeOverrideRepo{
		booking: &Booking{ID: bookingID, Status: StatusConfirmed},
		item:    &BookingItem{ID: itemID, LegID: legID, BookingID: bookingID, TripID: 10, SeatID: 1, SeatLabel: "A01", Price: 150000},
		leg:     &BookingLeg{ID: legID, BookingID: bookingID, TripID: 10, LegType: drafts.LegOut},
	}
	tripsRepo := &fakeOverrideTrips{
		trips: map[int64]*trips.Trip{
			10: {ID: 10, RouteID: 1, BusID: 5},
			11: {ID: 11, RouteID: 2, BusID: 6},
		},
		seats: map[int64]*trips.BusSeat{
			1: {ID: 1, BusID: 5, Label: "A01", Active: true},
			2: {ID: 2, BusID: 5, Label: "B01", Active: true},
			7: {ID: 7, BusID: 6, Label: "A01", Active: true},
			8: {ID: 8, BusID: 6, Label: "B01", Active: true},
		},
		fares: map[int64]float64{10: 150000, 11: 180000},
	}
	engine := locks.NewEngine(locks.NewMemoryStore())
	broadcaster := &fakeBroadcaster{}

	return &overrideFixture{
		repo:        repo,
		service:     NewAdminService(repo, tripsRepo, engine, broadcaster, nil),
		engine:      engine,
		broadcaster: broadcaster,
		itemID:      itemID,
		bookingID:   bookingID,
	}
}

func TestChangeSeat_MovesItem(t *testing.T) {
	ctx := context.Background()
	f := newOverrideFixture()

	_, err := f.service.ChangeSeat(ctx, f.itemID, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), f.repo.item.SeatID)
	assert.Equal(t, "B01", f.repo.item.SeatLabel)

	booked, err := f.engine.IsBooked(ctx, 10, 2)
	require.NoError(t, err)
	assert.True(t, booked)
}

func TestChangeTrip_SeatOmittedKeepsLabel(t *testing.T) {
	ctx := context.Background()
	f := newOverrideFixture()

	// No new_seat_id: the A01 seat on the new trip's bus is chosen.
	req := &ChangeTripRequest{NewTripID: 11, PickupLocationID: 100, DropoffLocationID: 200}
	_, err := f.service.ChangeTrip(ctx, f.itemID, req, nil)
	require.NoError(t, err)

	require.NotNil(t, f.repo.tripChange)
	assert.Equal(t, int64(7), f.repo.tripChange.NewSeat.ID)
	assert.Equal(t, "A01", f.repo.tripChange.NewSeat.Label)
	assert.Equal(t, float64(180000), f.repo.tripChange.NewPrice)

	// Fare rose by 30000, recorded as an additional payment.
	adj := f.repo.tripChange.Adjustment
	require.NotNil(t, adj)
	assert.Equal(t, AdjustmentAdditionalPayment, adj.Kind)
	assert.Equal(t, float64(30000), adj.Amount)

	booked, err := f.engine.IsBooked(ctx, 11, 7)
	require.NoError(t, err)
	assert.True(t, booked)
	require.Len(t, f.broadcaster.booked, 1)
	assert.Equal(t, f.bookingID.String(), f.broadcaster.booked[0])
}

func TestChangeTrip_ExplicitSeat(t *testing.T) {
	ctx := context.Background()
	f := newOverrideFixture()

	req := &ChangeTripRequest{NewTripID: 11, NewSeatID: 8, PickupLocationID: 100, DropoffLocationID: 200}
	_, err := f.service.ChangeTrip(ctx, f.itemID, req, nil)
	require.NoError(t, err)

	require.NotNil(t, f.repo.tripChange)
	assert.Equal(t, int64(8), f.repo.tripChange.NewSeat.ID)
}

func TestChangeTrip_TargetSeatBookedRejected(t *testing.T) {
	ctx := context.Background()
	f := newOverrideFixture()

	require.NoError(t, f.engine.AdminBookSeat(ctx, 11, 7))

	req := &ChangeTripRequest{NewTripID: 11, PickupLocationID: 100, DropoffLocationID: 200}
	_, err := f.service.ChangeTrip(ctx, f.itemID, req, nil)
	assert.ErrorIs(t, err, ErrSeatTaken)
	assert.Nil(t, f.repo.tripChange)
}
