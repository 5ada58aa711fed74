package bookings

import (
	"context"
	"fmt"

	"busly/internal/locks"
	"busly/internal/notifications"
	"busly/internal/trips"
	"busly/pkg/logger"

	"github.com/google/uuid"
)

// AdminService is the operator override path. Calls are serialized by the
// operator, so availability checks are plain reads rather than the atomic
// lock script.
type AdminService interface {
	// ChangeSeat moves a booked item to another seat on the same trip.
	ChangeSeat(ctx context.Context, itemID uuid.UUID, newSeatID int64, operatorID *uuid.UUID) (*Booking, error)

	// ChangeTrip moves a booked item to a seat on another trip, recomputes
	// the fare and records the price delta as an adjustment. Refunds are
	// recorded, never executed.
	ChangeTrip(ctx context.Context, itemID uuid.UUID, req *ChangeTripRequest, operatorID *uuid.UUID) (*Booking, error)
}

type adminService struct {
	repo        Repository
	tripsRepo   trips.Repository
	engine      *locks.Engine
	broadcaster notifications.Broadcaster
	log         *logger.Logger
}

func NewAdminService(repo Repository, tripsRepo trips.Repository, engine *locks.Engine, broadcaster notifications.Broadcaster, log *logger.Logger) AdminService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &adminService{
		repo:        repo,
		tripsRepo:   tripsRepo,
		engine:      engine,
		broadcaster: broadcaster,
		log:         log,
	}
}

func (s *adminService) ChangeSeat(ctx context.Context, itemID uuid.UUID, newSeatID int64, operatorID *uuid.UUID) (*Booking, error) {
	item, booking, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if newSeatID == item.SeatID {
		return booking, nil
	}

	trip, err := s.tripsRepo.GetTrip(ctx, item.TripID)
	if err != nil {
		return nil, err
	}
	newSeat, err := s.sellableSeat(ctx, trip, newSeatID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAvailable(ctx, trip.ID, newSeatID); err != nil {
		return nil, err
	}

	oldSeatID := item.SeatID
	if err := s.repo.ApplySeatChange(ctx, item, newSeat, operatorID); err != nil {
		return nil, err
	}

	s.swapStoreSeat(ctx, item.TripID, oldSeatID, item.TripID, newSeatID)
	s.broadcast(ctx, booking.ID, item.TripID, oldSeatID, item.TripID, newSeatID)
	s.log.LogSeatChanged(ctx, booking.ID.String(), item.TripID, newSeatID)

	return s.repo.GetBooking(ctx, booking.ID)
}

func (s *adminService) ChangeTrip(ctx context.Context, itemID uuid.UUID, req *ChangeTripRequest, operatorID *uuid.UUID) (*Booking, error) {
	item, booking, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	newTrip, err := s.tripsRepo.GetTrip(ctx, req.NewTripID)
	if err != nil {
		return nil, err
	}
	newSeat, err := s.resolveTargetSeat(ctx, newTrip, req.NewSeatID, item.SeatLabel)
	if err != nil {
		return nil, err
	}
	if err := s.checkAvailable(ctx, newTrip.ID, newSeat.ID); err != nil {
		return nil, err
	}

	newPrice, err := s.tripsRepo.FareFor(ctx, newTrip.ID, req.PickupLocationID, req.DropoffLocationID)
	if err != nil {
		return nil, err
	}

	oldLeg, err := s.repo.GetLeg(ctx, item.LegID)
	if err != nil {
		return nil, err
	}

	change := &TripChange{
		Item:      item,
		NewTrip:   newTrip,
		NewSeat:   newSeat,
		LegType:   oldLeg.LegType,
		PickupID:  req.PickupLocationID,
		DropoffID: req.DropoffLocationID,
		NewPrice:  newPrice,
		UserID:    operatorID,
	}
	if delta := newPrice - item.Price; delta != 0 {
		adjID := item.ID
		adj := &BookingAdjustment{
			ID:        uuid.New(),
			BookingID: booking.ID,
			ItemID:    &adjID,
		}
		if delta > 0 {
			adj.Kind = AdjustmentAdditionalPayment
			adj.Amount = delta
			adj.Note = fmt.Sprintf("trip change to %d: fare increased", newTrip.ID)
		} else {
			adj.Kind = AdjustmentPendingRefund
			adj.Amount = -delta
			adj.Note = fmt.Sprintf("trip change to %d: fare decreased, refund pending", newTrip.ID)
		}
		change.Adjustment = adj
	}

	oldTripID, oldSeatID := item.TripID, item.SeatID
	if err := s.repo.ApplyTripChange(ctx, change); err != nil {
		return nil, err
	}

	s.swapStoreSeat(ctx, oldTripID, oldSeatID, newTrip.ID, newSeat.ID)
	s.broadcast(ctx, booking.ID, oldTripID, oldSeatID, newTrip.ID, newSeat.ID)
	s.log.LogSeatChanged(ctx, booking.ID.String(), newTrip.ID, newSeat.ID)

	return s.repo.GetBooking(ctx, booking.ID)
}

func (s *adminService) loadItem(ctx context.Context, itemID uuid.UUID) (*BookingItem, *Booking, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	booking, err := s.repo.GetBooking(ctx, item.BookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.Status == StatusCancelled {
		return nil, nil, ErrBookingCancelled
	}
	return item, booking, nil
}

// resolveTargetSeat picks the override target: the requested seat, or the
// seat with the same label on the new trip's bus when none was given.
func (s *adminService) resolveTargetSeat(ctx context.Context, trip *trips.Trip, seatID int64, label string) (*trips.BusSeat, error) {
	if seatID > 0 {
		return s.sellableSeat(ctx, trip, seatID)
	}
	seat, err := s.tripsRepo.FindSeatByLabel(ctx, trip.BusID, label)
	if err != nil {
		return nil, err
	}
	if !seat.Active {
		return nil, fmt.Errorf("seat %s on trip %d: %w", label, trip.ID, ErrSeatTaken)
	}
	return seat, nil
}

func (s *adminService) sellableSeat(ctx context.Context, trip *trips.Trip, seatID int64) (*trips.BusSeat, error) {
	seat, err := s.tripsRepo.GetSeat(ctx, seatID)
	if err != nil {
		return nil, err
	}
	if !seat.Active || seat.BusID != trip.BusID {
		return nil, fmt.Errorf("seat %d on trip %d: %w", seatID, trip.ID, ErrSeatTaken)
	}
	return seat, nil
}

// checkAvailable verifies a target seat is neither booked nor held. Both
// the store and TripSeatStatus are consulted; the status table wins on
// disagreement since it is the durable truth.
func (s *adminService) checkAvailable(ctx context.Context, tripID, seatID int64) error {
	booked, err := s.engine.IsBooked(ctx, tripID, seatID)
	if err != nil {
		return fmt.Errorf("seat lock store unavailable: %w", err)
	}
	if booked {
		return fmt.Errorf("seat %d on trip %d is booked: %w", seatID, tripID, ErrSeatTaken)
	}

	holder, err := s.engine.HolderOf(ctx, tripID, seatID)
	if err != nil {
		return fmt.Errorf("seat lock store unavailable: %w", err)
	}
	if holder != "" {
		return fmt.Errorf("seat %d on trip %d is held by a session: %w", seatID, tripID, ErrSeatTaken)
	}

	status, err := s.tripsRepo.GetSeatStatus(ctx, tripID, seatID)
	if err != nil {
		return err
	}
	if status != nil && status.IsBooked {
		return fmt.Errorf("seat %d on trip %d is booked: %w", seatID, tripID, ErrSeatTaken)
	}
	return nil
}

func (s *adminService) swapStoreSeat(ctx context.Context, oldTripID, oldSeatID, newTripID, newSeatID int64) {
	if err := s.engine.AdminReleaseSeat(ctx, oldTripID, oldSeatID); err != nil {
		s.log.WithError(err).WarnContext(ctx, "failed to release old seat in store",
			"trip_id", oldTripID, "seat_id", oldSeatID)
	}
	if err := s.engine.AdminBookSeat(ctx, newTripID, newSeatID); err != nil {
		s.log.WithError(err).WarnContext(ctx, "failed to book new seat in store",
			"trip_id", newTripID, "seat_id", newSeatID)
	}
}

func (s *adminService) broadcast(ctx context.Context, bookingID uuid.UUID, oldTripID, oldSeatID, newTripID, newSeatID int64) {
	if err := s.broadcaster.SeatsUnlocked(ctx, map[int64][]int64{oldTripID: {oldSeatID}}); err != nil {
		s.log.WithError(err).WarnContext(ctx, "seat unlock broadcast failed")
	}
	if err := s.broadcaster.SeatBooked(ctx, bookingID.String(), map[int64][]int64{newTripID: {newSeatID}}); err != nil {
		s.log.WithError(err).WarnContext(ctx, "seat booked broadcast failed")
	}
}
