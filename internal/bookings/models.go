package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Booking is the permanent record a draft is promoted into. One draft
// produces at most one booking; draft_id is unique to back that up at the
// storage layer.
type Booking struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	BookingRef string     `gorm:"uniqueIndex;not null" json:"booking_ref"`
	DraftID    uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"draft_id"`
	Status     string     `gorm:"type:varchar(20);not null;default:'CONFIRMED'" json:"status"`
	UserID     *uuid.UUID `gorm:"type:uuid" json:"user_id,omitempty"`

	Currency   string  `gorm:"type:varchar(3);not null" json:"currency"`
	Subtotal   float64 `gorm:"not null" json:"subtotal"`
	Discount   float64 `gorm:"not null;default:0" json:"discount"`
	Total      float64 `gorm:"not null" json:"total"`
	CouponCode *string `json:"coupon_code,omitempty"`

	PaymentProvider *string `json:"payment_provider,omitempty"`
	PaymentIntentID *string `json:"payment_intent_id,omitempty"`

	FromLocationID int64 `gorm:"not null" json:"from_location_id"`
	ToLocationID   int64 `gorm:"not null" json:"to_location_id"`

	// Name snapshots copied from the draft; tickets keep rendering the
	// route as sold even if locations are renamed later.
	FromLocationName string `json:"from_location_name"`
	ToLocationName   string `json:"to_location_name"`

	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Legs        []BookingLeg        `json:"legs,omitempty" gorm:"foreignKey:BookingID"`
	Adjustments []BookingAdjustment `json:"adjustments,omitempty" gorm:"foreignKey:BookingID"`
}

// BookingLeg is one direction of travel on the booking.
type BookingLeg struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`
	TripID    int64     `gorm:"index;not null" json:"trip_id"`
	LegType   string    `gorm:"type:varchar(10);not null" json:"leg_type"`

	PickupLocationID  int64   `gorm:"not null" json:"pickup_location_id"`
	DropoffLocationID int64   `gorm:"not null" json:"dropoff_location_id"`
	Price             float64 `gorm:"not null" json:"price"`

	Items []BookingItem `json:"items,omitempty" gorm:"foreignKey:LegID"`
}

// BookingItem is one booked seat. BookingID and TripID are denormalized so
// the admin override path resolves an item without walking the leg.
type BookingItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	LegID     uuid.UUID `gorm:"type:uuid;index;not null" json:"leg_id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`
	TripID    int64     `gorm:"index;not null" json:"trip_id"`

	SeatID    int64   `gorm:"not null" json:"seat_id"`
	SeatLabel string  `json:"seat_label"`
	Price     float64 `gorm:"not null" json:"price"`

	UpdatedAt time.Time `json:"updated_at"`
}

// BookingAdjustment records a money delta caused by an admin override.
// Refunds are recorded as PENDING_REFUND and settled out of band; this
// system never moves money.
type BookingAdjustment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	BookingID uuid.UUID  `gorm:"type:uuid;index;not null" json:"booking_id"`
	ItemID    *uuid.UUID `gorm:"type:uuid" json:"item_id,omitempty"`
	Kind      string     `gorm:"type:varchar(24);not null" json:"kind"`
	Amount    float64    `gorm:"not null" json:"amount"`
	Note      string     `json:"note"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Booking) TableName() string           { return "bookings" }
func (BookingLeg) TableName() string        { return "booking_legs" }
func (BookingItem) TableName() string       { return "booking_items" }
func (BookingAdjustment) TableName() string { return "booking_adjustments" }

// SeatsByTrip groups the booking's seats per trip.
func (b *Booking) SeatsByTrip() map[int64][]int64 {
	out := make(map[int64][]int64, len(b.Legs))
	for _, leg := range b.Legs {
		for _, item := range leg.Items {
			out[item.TripID] = append(out[item.TripID], item.SeatID)
		}
	}
	return out
}
