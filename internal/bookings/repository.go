package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"busly/internal/drafts"
	"busly/internal/trips"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentMeta is what the finalize call records about the completed
// payment.
type PaymentMeta struct {
	Provider string
	IntentID string
}

// TripChange is the unit of work for an admin trip override: move an item
// onto a (possibly new) leg of another trip at a recomputed price, and
// record the money delta.
type TripChange struct {
	Item       *BookingItem
	NewTrip    *trips.Trip
	NewSeat    *trips.BusSeat
	LegType    string
	PickupID   int64
	DropoffID  int64
	NewPrice   float64
	Adjustment *BookingAdjustment
	UserID     *uuid.UUID
}

type Repository interface {
	// FinalizeFromDraft promotes a draft into a booking inside one
	// transaction. The bool reports whether a booking was created by this
	// call; false means the draft already carried one (idempotent replay).
	FinalizeFromDraft(ctx context.Context, draftID uuid.UUID, payment PaymentMeta) (*Booking, bool, error)

	// GetBooking loads a booking with legs, items and adjustments.
	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)

	// GetItem loads a single booking item.
	GetItem(ctx context.Context, id uuid.UUID) (*BookingItem, error)

	// GetLeg loads a single booking leg.
	GetLeg(ctx context.Context, id uuid.UUID) (*BookingLeg, error)

	// ApplySeatChange swaps an item onto a new seat of the same trip:
	// releases the old seat's status row, books the new one, updates the
	// item. One transaction.
	ApplySeatChange(ctx context.Context, item *BookingItem, newSeat *trips.BusSeat, userID *uuid.UUID) error

	// ApplyTripChange moves an item to another trip: creates or reuses the
	// target leg, re-seats the item at the new price, swaps the seat
	// status rows and records the adjustment. One transaction.
	ApplyTripChange(ctx context.Context, change *TripChange) error
}

type repository struct {
	db        *gorm.DB
	tripsRepo trips.Repository
}

func NewRepository(db *gorm.DB, tripsRepo trips.Repository) Repository {
	return &repository{db: db, tripsRepo: tripsRepo}
}

func (r *repository) FinalizeFromDraft(ctx context.Context, draftID uuid.UUID, payment PaymentMeta) (*Booking, bool, error) {
	var bookingID uuid.UUID
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row-lock the draft: the expiry reconciler and a concurrent
		// finalize replay serialize here.
		var draft drafts.DraftCheckout
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&draft, "id = ?", draftID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return drafts.ErrDraftNotFound
			}
			return err
		}

		if draft.BookingID != nil {
			bookingID = *draft.BookingID
			return nil
		}
		if !drafts.CanFinalize(draft.Status) {
			return &StaleStateError{DraftID: draft.ID, Status: draft.Status}
		}

		var draftLegs []drafts.DraftCheckoutLeg
		if err := tx.Where("draft_id = ?", draft.ID).Find(&draftLegs).Error; err != nil {
			return err
		}
		if len(draftLegs) == 0 {
			return &IntegrityError{DraftID: draft.ID, Detail: "draft has no legs"}
		}
		legIDs := make([]uuid.UUID, 0, len(draftLegs))
		for _, leg := range draftLegs {
			legIDs = append(legIDs, leg.ID)
		}
		var draftItems []drafts.DraftCheckoutItem
		if err := tx.Where("leg_id IN ?", legIDs).Find(&draftItems).Error; err != nil {
			return err
		}
		if len(draftItems) == 0 {
			return &IntegrityError{DraftID: draft.ID, Detail: "draft has no items"}
		}

		now := time.Now().UTC()
		booking := Booking{
			ID:              uuid.New(),
			BookingRef:      GenerateBookingRef(),
			DraftID:         draft.ID,
			Status:          StatusConfirmed,
			UserID:          draft.UserID,
			Currency:        draft.Currency,
			Subtotal:        draft.Subtotal,
			Discount:        draft.Discount,
			Total:           draft.Total,
			CouponCode:      draft.CouponCode,
			PaymentProvider: &payment.Provider,
			PaymentIntentID: &payment.IntentID,
			FromLocationID:  draft.FromLocationID,
			ToLocationID:    draft.ToLocationID,

			FromLocationName: draft.FromLocationName,
			ToLocationName:   draft.ToLocationName,

			ContactName:  draft.ContactName,
			ContactPhone: draft.ContactPhone,
			ContactEmail: draft.ContactEmail,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		legIDByDraftLeg := make(map[uuid.UUID]uuid.UUID, len(draftLegs))
		legIDByTrip := make(map[int64]uuid.UUID, len(draftLegs))
		for _, draftLeg := range draftLegs {
			leg := BookingLeg{
				ID:                uuid.New(),
				BookingID:         booking.ID,
				TripID:            draftLeg.TripID,
				LegType:           draftLeg.LegType,
				PickupLocationID:  draftLeg.PickupLocationID,
				DropoffLocationID: draftLeg.DropoffLocationID,
				Price:             draftLeg.Price,
			}
			if err := tx.Create(&leg).Error; err != nil {
				return fmt.Errorf("failed to create booking leg: %w", err)
			}
			legIDByDraftLeg[draftLeg.ID] = leg.ID
			legIDByTrip[draftLeg.TripID] = leg.ID
		}

		statuses := make([]trips.TripSeatStatus, 0, len(draftItems))
		for _, draftItem := range draftItems {
			// Resolve the target leg by draft leg id first; a trip-level
			// fallback catches items whose leg reference went stale.
			legID, ok := legIDByDraftLeg[draftItem.LegID]
			if !ok {
				legID, ok = legIDByTrip[draftItem.TripID]
			}
			if !ok {
				return &IntegrityError{
					DraftID: draft.ID,
					Detail:  fmt.Sprintf("item %s references unknown leg %s", draftItem.ID, draftItem.LegID),
				}
			}
			tripID := draftItem.TripID

			item := BookingItem{
				ID:        uuid.New(),
				LegID:     legID,
				BookingID: booking.ID,
				TripID:    tripID,
				SeatID:    draftItem.SeatID,
				SeatLabel: draftItem.SeatLabel,
				Price:     draftItem.Price,
				UpdatedAt: now,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("failed to create booking item: %w", err)
			}
			statuses = append(statuses, trips.NewBookedStatus(tripID, draftItem.SeatID, booking.ID, draft.UserID, now))
		}

		if err := r.tripsRepo.UpsertSeatStatus(ctx, tx, statuses); err != nil {
			return err
		}

		err = tx.Model(&drafts.DraftCheckout{}).
			Where("id = ?", draft.ID).
			Updates(map[string]interface{}{
				"status":            drafts.StatusPaid,
				"booking_id":        booking.ID,
				"payment_provider":  payment.Provider,
				"payment_intent_id": payment.IntentID,
				"updated_at":        now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to mark draft paid: %w", err)
		}

		bookingID = booking.ID
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	booking, err := r.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, false, err
	}
	return booking, created, nil
}

func (r *repository) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Preload("Legs.Items").
		Preload("Legs").
		Preload("Adjustments").
		First(&booking, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *repository) GetItem(ctx context.Context, id uuid.UUID) (*BookingItem, error) {
	var item BookingItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get booking item: %w", err)
	}
	return &item, nil
}

func (r *repository) GetLeg(ctx context.Context, id uuid.UUID) (*BookingLeg, error) {
	var leg BookingLeg
	err := r.db.WithContext(ctx).First(&leg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("booking leg %s: %w", id, ErrItemNotFound)
		}
		return nil, fmt.Errorf("failed to get booking leg: %w", err)
	}
	return &leg, nil
}

func (r *repository) ApplySeatChange(ctx context.Context, item *BookingItem, newSeat *trips.BusSeat, userID *uuid.UUID) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.tripsRepo.ReleaseSeatStatus(ctx, tx, item.TripID, item.SeatID); err != nil {
			return err
		}
		statuses := []trips.TripSeatStatus{
			trips.NewBookedStatus(item.TripID, newSeat.ID, item.BookingID, userID, now),
		}
		if err := r.tripsRepo.UpsertSeatStatus(ctx, tx, statuses); err != nil {
			return err
		}
		return tx.Model(&BookingItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"seat_id":    newSeat.ID,
				"seat_label": newSeat.Label,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to apply seat change: %w", err)
	}
	item.SeatID = newSeat.ID
	item.SeatLabel = newSeat.Label
	return nil
}

func (r *repository) ApplyTripChange(ctx context.Context, change *TripChange) error {
	item := change.Item
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Reuse an existing leg for this trip and direction if the booking
		// already has one, otherwise create it.
		var leg BookingLeg
		err := tx.Where("booking_id = ? AND trip_id = ? AND leg_type = ?",
			item.BookingID, change.NewTrip.ID, change.LegType).
			First(&leg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			leg = BookingLeg{
				ID:                uuid.New(),
				BookingID:         item.BookingID,
				TripID:            change.NewTrip.ID,
				LegType:           change.LegType,
				PickupLocationID:  change.PickupID,
				DropoffLocationID: change.DropoffID,
			}
			if err := tx.Create(&leg).Error; err != nil {
				return fmt.Errorf("failed to create booking leg: %w", err)
			}
		} else if err != nil {
			return err
		}

		if err := r.tripsRepo.ReleaseSeatStatus(ctx, tx, item.TripID, item.SeatID); err != nil {
			return err
		}
		statuses := []trips.TripSeatStatus{
			trips.NewBookedStatus(change.NewTrip.ID, change.NewSeat.ID, item.BookingID, change.UserID, now),
		}
		if err := r.tripsRepo.UpsertSeatStatus(ctx, tx, statuses); err != nil {
			return err
		}

		err = tx.Model(&BookingItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"leg_id":     leg.ID,
				"trip_id":    change.NewTrip.ID,
				"seat_id":    change.NewSeat.ID,
				"seat_label": change.NewSeat.Label,
				"price":      change.NewPrice,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}

		// Keep leg totals consistent with their items.
		if err := recalcLegPrice(tx, item.LegID); err != nil {
			return err
		}
		if err := recalcLegPrice(tx, leg.ID); err != nil {
			return err
		}

		if change.Adjustment != nil {
			if err := tx.Create(change.Adjustment).Error; err != nil {
				return fmt.Errorf("failed to record adjustment: %w", err)
			}
		}

		item.LegID = leg.ID
		item.TripID = change.NewTrip.ID
		item.SeatID = change.NewSeat.ID
		item.SeatLabel = change.NewSeat.Label
		item.Price = change.NewPrice
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply trip change: %w", err)
	}
	return nil
}

func recalcLegPrice(tx *gorm.DB, legID uuid.UUID) error {
	return tx.Model(&BookingLeg{}).
		Where("id = ?", legID).
		Update("price", tx.Model(&BookingItem{}).
			Select("COALESCE(SUM(price), 0)").
			Where("leg_id = ?", legID)).Error
}
