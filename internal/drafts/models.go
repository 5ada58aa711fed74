package drafts

import (
	"time"

	"github.com/google/uuid"
)

// DraftCheckout is the durable snapshot of everything a session is trying
// to buy. It is created only after the seat locks succeeded; its expires_at
// mirrors the lock TTL so the sweeper can catch sessions the keyspace
// listener missed.
type DraftCheckout struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	SessionToken string     `gorm:"index;not null" json:"session_token"`
	UserID       *uuid.UUID `gorm:"type:uuid" json:"user_id,omitempty"`
	Status       string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`

	Currency   string  `gorm:"type:varchar(3);not null;default:'VND'" json:"currency"`
	Subtotal   float64 `gorm:"not null" json:"subtotal"`
	Discount   float64 `gorm:"not null;default:0" json:"discount"`
	Total      float64 `gorm:"not null" json:"total"`
	CouponCode *string `json:"coupon_code,omitempty"`

	PaymentProvider *string `json:"payment_provider,omitempty"`
	PaymentIntentID *string `json:"payment_intent_id,omitempty"`

	FromLocationID   int64  `gorm:"not null" json:"from_location_id"`
	ToLocationID     int64  `gorm:"not null" json:"to_location_id"`
	FromLocationName string `json:"from_location_name"`
	ToLocationName   string `json:"to_location_name"`

	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`

	// Set by the finalizer; a non-nil value makes finalization idempotent.
	BookingID *uuid.UUID `gorm:"type:uuid" json:"booking_id,omitempty"`

	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Legs []DraftCheckoutLeg `json:"legs,omitempty" gorm:"foreignKey:DraftID"`
}

// DraftCheckoutLeg is one direction of travel. A draft holds at most one
// leg per trip.
type DraftCheckoutLeg struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	DraftID uuid.UUID `gorm:"type:uuid;index:idx_draft_trip,unique;not null" json:"draft_id"`
	TripID  int64     `gorm:"index:idx_draft_trip,unique;not null" json:"trip_id"`
	LegType string    `gorm:"type:varchar(10);not null" json:"leg_type"`

	PickupLocationID  int64   `gorm:"not null" json:"pickup_location_id"`
	DropoffLocationID int64   `gorm:"not null" json:"dropoff_location_id"`
	Price             float64 `gorm:"not null" json:"price"`

	Items []DraftCheckoutItem `json:"items,omitempty" gorm:"foreignKey:LegID"`
}

// DraftCheckoutItem is one held seat with its price snapshot. Prices are
// frozen at hold time; later fare edits do not touch existing drafts.
type DraftCheckoutItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	LegID     uuid.UUID `gorm:"type:uuid;index;not null" json:"leg_id"`
	TripID    int64     `gorm:"not null" json:"trip_id"`
	SeatID    int64     `gorm:"not null" json:"seat_id"`
	SeatLabel string    `json:"seat_label"`
	Price     float64   `gorm:"not null" json:"price"`
}

func (DraftCheckout) TableName() string     { return "draft_checkouts" }
func (DraftCheckoutLeg) TableName() string  { return "draft_checkout_legs" }
func (DraftCheckoutItem) TableName() string { return "draft_checkout_items" }

// SeatsByTrip groups the draft's held seats per trip, the shape the lock
// engine and broadcaster work with.
func (d *DraftCheckout) SeatsByTrip() map[int64][]int64 {
	out := make(map[int64][]int64, len(d.Legs))
	for _, leg := range d.Legs {
		for _, item := range leg.Items {
			out[leg.TripID] = append(out[leg.TripID], item.SeatID)
		}
	}
	return out
}
