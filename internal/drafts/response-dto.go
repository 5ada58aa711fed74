package drafts

import (
	"time"

	"github.com/google/uuid"
)

// HoldItemResponse is one held seat with the customer-visible countdown.
type HoldItemResponse struct {
	SeatID    int64   `json:"seat_id"`
	SeatLabel string  `json:"seat_label"`
	Price     float64 `json:"price"`

	// TTLLeftSeconds is read back from the lock store after the hold, so
	// the client renders the real countdown rather than the nominal TTL.
	TTLLeftSeconds int64 `json:"ttl_left_seconds"`
}

// HoldLegResponse is one leg of the draft with its held seats.
type HoldLegResponse struct {
	LegType           string             `json:"leg_type"`
	TripID            int64              `json:"trip_id"`
	PickupLocationID  int64              `json:"pickup_location_id"`
	DropoffLocationID int64              `json:"dropoff_location_id"`
	Price             float64            `json:"price"`
	Items             []HoldItemResponse `json:"items"`
}

// DraftResponse is the draft summary returned on hold creation and polling.
type DraftResponse struct {
	ID         uuid.UUID  `json:"id"`
	Status     string     `json:"status"`
	Currency   string     `json:"currency"`
	Subtotal   float64    `json:"subtotal"`
	Discount   float64    `json:"discount"`
	Total      float64    `json:"total"`
	CouponCode *string    `json:"coupon_code,omitempty"`
	BookingID  *uuid.UUID `json:"booking_id,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`

	FromLocationName string `json:"from_location_name,omitempty"`
	ToLocationName   string `json:"to_location_name,omitempty"`

	ContactName  string `json:"contact_name,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`

	Legs []HoldLegResponse `json:"legs"`
}
