package bookings

import (
	"context"

	"busly/internal/drafts"
	"busly/internal/locks"
	"busly/internal/notifications"
	"busly/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	// Finalize promotes a draft into a booking after payment succeeded.
	// Replaying the call for an already finalized draft returns the same
	// booking.
	Finalize(ctx context.Context, draftID uuid.UUID, payment PaymentMeta) (*Booking, error)

	// GetBooking loads a booking with its legs, items and adjustments.
	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
}

type service struct {
	repo        Repository
	draftsRepo  drafts.Repository
	engine      *locks.Engine
	broadcaster notifications.Broadcaster
	log         *logger.Logger
}

func NewService(repo Repository, draftsRepo drafts.Repository, engine *locks.Engine, broadcaster notifications.Broadcaster, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:        repo,
		draftsRepo:  draftsRepo,
		engine:      engine,
		broadcaster: broadcaster,
		log:         log,
	}
}

func (s *service) Finalize(ctx context.Context, draftID uuid.UUID, payment PaymentMeta) (*Booking, error) {
	booking, created, err := s.repo.FinalizeFromDraft(ctx, draftID, payment)
	if err != nil {
		return nil, err
	}
	if !created {
		// Idempotent replay; the store transitions already happened.
		return booking, nil
	}

	// The booking is durable from here on. Store transitions after commit
	// are best-effort: if they fail, the seat keys expire on their own and
	// the booked sets are rebuilt from TripSeatStatus on warmup.
	seatsByTrip := booking.SeatsByTrip()
	if err := s.engine.MarkSeatsBooked(ctx, seatsByTrip); err != nil {
		s.log.WithError(err).ErrorContext(ctx, "failed to move seats to booked set", "booking_id", booking.ID)
	}

	draft, err := s.draftsRepo.GetByID(ctx, draftID)
	if err == nil {
		if err := s.engine.ClearSession(ctx, draft.SessionToken); err != nil {
			s.log.WithError(err).WarnContext(ctx, "failed to clear session indexes", "booking_id", booking.ID)
		}
	}

	if err := s.broadcaster.SeatBooked(ctx, booking.ID.String(), seatsByTrip); err != nil {
		s.log.WithError(err).WarnContext(ctx, "seat booked broadcast failed")
	}

	s.log.LogBookingFinalized(ctx, booking.ID.String(), draftID.String())
	return booking, nil
}

func (s *service) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.repo.GetBooking(ctx, id)
}
