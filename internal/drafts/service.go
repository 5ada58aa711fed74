package drafts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"busly/internal/coupons"
	"busly/internal/locks"
	"busly/internal/notifications"
	"busly/internal/trips"
	"busly/pkg/logger"

	"github.com/google/uuid"
)

// ErrDraftNotActive is returned when an operation needs a pending or paying
// draft and the draft has already reached a terminal state.
var ErrDraftNotActive = errors.New("draft is no longer active")

// ErrSeatNotSellable is returned when a requested seat is inactive or does
// not belong to the trip's bus.
var ErrSeatNotSellable = errors.New("seat is not sellable on this trip")

// ErrDuplicateTripLeg is returned when two legs of one request name the
// same trip.
var ErrDuplicateTripLeg = errors.New("duplicate trip across legs")

type Service interface {
	// CreateHold locks the requested seats for the session and, on
	// success, persists a draft checkout priced from the route fares.
	CreateHold(ctx context.Context, sessionToken string, userID *uuid.UUID, req *CreateHoldRequest) (*DraftResponse, error)

	// GetDraft returns a draft summary for status polling.
	GetDraft(ctx context.Context, id uuid.UUID) (*DraftResponse, error)

	// ApplyCoupon applies a coupon code to a pending draft and recomputes
	// its totals.
	ApplyCoupon(ctx context.Context, id uuid.UUID, code string) (*DraftResponse, error)

	// BeginPayment moves a draft to paying and records the payment intent.
	BeginPayment(ctx context.Context, id uuid.UUID, provider, intentID string) (*DraftResponse, error)
}

type service struct {
	repo        Repository
	tripsRepo   trips.Repository
	coupons     coupons.Service
	engine      *locks.Engine
	broadcaster notifications.Broadcaster
	log         *logger.Logger
	holdTTL     time.Duration
}

func NewService(repo Repository, tripsRepo trips.Repository, couponSvc coupons.Service, engine *locks.Engine, broadcaster notifications.Broadcaster, log *logger.Logger, holdTTL time.Duration) Service {
	if holdTTL <= 0 {
		holdTTL = locks.DefaultHoldTTL
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:        repo,
		tripsRepo:   tripsRepo,
		coupons:     couponSvc,
		engine:      engine,
		broadcaster: broadcaster,
		log:         log,
		holdTTL:     holdTTL,
	}
}

// pricedLeg carries one validated leg before persistence.
type pricedLeg struct {
	req      HoldLegRequest
	seatFare float64
	seats    []trips.BusSeat
}

func (s *service) CreateHold(ctx context.Context, sessionToken string, userID *uuid.UUID, req *CreateHoldRequest) (*DraftResponse, error) {
	if req.ForceNew {
		cancelled, err := s.repo.CancelActiveForSession(ctx, sessionToken, nil)
		if err != nil {
			return nil, err
		}
		if cancelled > 0 {
			s.log.WithSession(sessionToken).InfoContext(ctx, "cancelled prior drafts", "count", cancelled)
		}
	}

	priced, seatsByTrip, err := s.validateAndPrice(ctx, req)
	if err != nil {
		return nil, err
	}

	// Lock before persisting: a draft must never exist for seats the
	// session does not hold.
	if err := s.engine.TryLockSeats(ctx, seatsByTrip, sessionToken, s.holdTTL); err != nil {
		return nil, err
	}

	draft, err := s.buildDraft(ctx, sessionToken, userID, req, priced)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateDraft(ctx, draft); err != nil {
		// Locks stay in place and fall off with the TTL.
		return nil, err
	}

	if err := s.broadcaster.SeatsLocked(ctx, seatsByTrip); err != nil {
		s.log.WithError(err).WarnContext(ctx, "seat lock broadcast failed")
	}

	seatCount := 0
	for _, seats := range seatsByTrip {
		seatCount += len(seats)
	}
	s.log.LogHoldCreated(ctx, draft.ID.String(), sessionToken, seatCount)

	return s.toResponse(ctx, draft), nil
}

func (s *service) validateAndPrice(ctx context.Context, req *CreateHoldRequest) ([]pricedLeg, map[int64][]int64, error) {
	seatsByTrip := make(map[int64][]int64, len(req.Legs))
	priced := make([]pricedLeg, 0, len(req.Legs))

	for _, legReq := range req.Legs {
		if _, dup := seatsByTrip[legReq.TripID]; dup {
			return nil, nil, ErrDuplicateTripLeg
		}

		trip, err := s.tripsRepo.GetTrip(ctx, legReq.TripID)
		if err != nil {
			return nil, nil, err
		}

		fare, err := s.tripsRepo.FareFor(ctx, legReq.TripID, legReq.PickupLocationID, legReq.DropoffLocationID)
		if err != nil {
			return nil, nil, err
		}

		seats, err := s.tripsRepo.GetSeatsByIDs(ctx, legReq.SeatIDs)
		if err != nil {
			return nil, nil, err
		}
		byID := make(map[int64]trips.BusSeat, len(seats))
		for _, seat := range seats {
			byID[seat.ID] = seat
		}
		ordered := make([]trips.BusSeat, 0, len(legReq.SeatIDs))
		for _, seatID := range legReq.SeatIDs {
			seat, ok := byID[seatID]
			if !ok {
				return nil, nil, trips.ErrSeatNotFound
			}
			if !seat.Active || seat.BusID != trip.BusID {
				return nil, nil, fmt.Errorf("seat %d: %w", seatID, ErrSeatNotSellable)
			}
			ordered = append(ordered, seat)
		}

		priced = append(priced, pricedLeg{req: legReq, seatFare: fare, seats: ordered})
		seatsByTrip[legReq.TripID] = legReq.SeatIDs
	}

	return priced, seatsByTrip, nil
}

func (s *service) buildDraft(ctx context.Context, sessionToken string, userID *uuid.UUID, req *CreateHoldRequest, priced []pricedLeg) (*DraftCheckout, error) {
	now := time.Now().UTC()
	draft := &DraftCheckout{
		ID:             uuid.New(),
		SessionToken:   sessionToken,
		UserID:         userID,
		Status:         StatusPending,
		Currency:       "VND",
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,

		FromLocationName: req.FromLocationName,
		ToLocationName:   req.ToLocationName,

		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		ExpiresAt:    now.Add(s.holdTTL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var subtotal float64
	for _, leg := range priced {
		dLeg := DraftCheckoutLeg{
			ID:                uuid.New(),
			DraftID:           draft.ID,
			TripID:            leg.req.TripID,
			LegType:           leg.req.LegType,
			PickupLocationID:  leg.req.PickupLocationID,
			DropoffLocationID: leg.req.DropoffLocationID,
		}
		for _, seat := range leg.seats {
			dLeg.Items = append(dLeg.Items, DraftCheckoutItem{
				ID:        uuid.New(),
				LegID:     dLeg.ID,
				TripID:    leg.req.TripID,
				SeatID:    seat.ID,
				SeatLabel: seat.Label,
				Price:     leg.seatFare,
			})
			dLeg.Price += leg.seatFare
		}
		subtotal += dLeg.Price
		draft.Legs = append(draft.Legs, dLeg)
	}

	draft.Subtotal = subtotal
	draft.Total = subtotal

	if req.CouponCode != "" {
		discount, err := s.coupons.Discount(ctx, subtotal, req.CouponCode)
		if err != nil {
			return nil, err
		}
		code := req.CouponCode
		draft.CouponCode = &code
		draft.Discount = discount
		draft.Total = subtotal - discount
	}

	return draft, nil
}

func (s *service) GetDraft(ctx context.Context, id uuid.UUID) (*DraftResponse, error) {
	draft, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, draft), nil
}

func (s *service) ApplyCoupon(ctx context.Context, id uuid.UUID, code string) (*DraftResponse, error) {
	draft, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.Status != StatusPending {
		return nil, ErrDraftNotActive
	}

	discount, err := s.coupons.Discount(ctx, draft.Subtotal, code)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.ApplyCoupon(ctx, id, code, discount, draft.Subtotal-discount)
	if err != nil {
		return nil, err
	}
	updated.Legs = draft.Legs
	return s.toResponse(ctx, updated), nil
}

func (s *service) BeginPayment(ctx context.Context, id uuid.UUID, provider, intentID string) (*DraftResponse, error) {
	draft, err := s.repo.SetPaying(ctx, id, provider, intentID)
	if err != nil {
		return nil, err
	}
	full, err := s.repo.GetByID(ctx, draft.ID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, full), nil
}

// toResponse maps a draft to its API shape, reading each seat's remaining
// TTL back from the lock store so the client sees the real countdown.
func (s *service) toResponse(ctx context.Context, draft *DraftCheckout) *DraftResponse {
	resp := &DraftResponse{
		ID:           draft.ID,
		Status:       draft.Status,
		Currency:     draft.Currency,
		Subtotal:     draft.Subtotal,
		Discount:     draft.Discount,
		Total:        draft.Total,
		CouponCode:   draft.CouponCode,
		BookingID:    draft.BookingID,
		ExpiresAt:    draft.ExpiresAt,

		FromLocationName: draft.FromLocationName,
		ToLocationName:   draft.ToLocationName,

		ContactName:  draft.ContactName,
		ContactPhone: draft.ContactPhone,
		ContactEmail: draft.ContactEmail,
	}

	active := draft.Status == StatusPending || draft.Status == StatusPaying
	for _, leg := range draft.Legs {
		legResp := HoldLegResponse{
			LegType:           leg.LegType,
			TripID:            leg.TripID,
			PickupLocationID:  leg.PickupLocationID,
			DropoffLocationID: leg.DropoffLocationID,
			Price:             leg.Price,
		}
		for _, item := range leg.Items {
			itemResp := HoldItemResponse{
				SeatID:    item.SeatID,
				SeatLabel: item.SeatLabel,
				Price:     item.Price,
			}
			if active {
				if ttl, err := s.engine.RemainingTTL(ctx, leg.TripID, item.SeatID); err == nil {
					itemResp.TTLLeftSeconds = int64(ttl.Seconds())
				}
			}
			legResp.Items = append(legResp.Items, itemResp)
		}
		resp.Legs = append(resp.Legs, legResp)
	}
	return resp
}
