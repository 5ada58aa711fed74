package drafts

// HoldLegRequest is one direction of travel in a hold request.
type HoldLegRequest struct {
	LegType           string  `json:"leg_type" binding:"required,oneof=OUT RETURN"`
	TripID            int64   `json:"trip_id" binding:"required,gt=0"`
	PickupLocationID  int64   `json:"pickup_location_id" binding:"required,gt=0"`
	DropoffLocationID int64   `json:"dropoff_location_id" binding:"required,gt=0"`
	SeatIDs           []int64 `json:"seat_ids" binding:"required,min=1,dive,gt=0"`
}

// CreateHoldRequest locks seats and opens a draft checkout in one call.
type CreateHoldRequest struct {
	Legs []HoldLegRequest `json:"legs" binding:"required,min=1,max=2,dive"`

	FromLocationID int64 `json:"from_location_id" binding:"required,gt=0"`
	ToLocationID   int64 `json:"to_location_id" binding:"required,gt=0"`

	// Display names are snapshotted on the draft so tickets render the
	// route as the customer saw it, even if locations are renamed later.
	FromLocationName string `json:"from_location_name" binding:"omitempty,max=120"`
	ToLocationName   string `json:"to_location_name" binding:"omitempty,max=120"`

	// ForceNew cancels the session's other open drafts before holding.
	ForceNew bool `json:"force_new"`

	CouponCode string `json:"coupon_code" binding:"omitempty,max=64"`

	ContactName  string `json:"contact_name" binding:"omitempty,max=120"`
	ContactPhone string `json:"contact_phone" binding:"omitempty,vn_phone"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
}

// BeginPaymentRequest moves a draft into the paying state.
type BeginPaymentRequest struct {
	Provider string `json:"provider" binding:"required,oneof=stripe momo zalopay cash"`
	IntentID string `json:"intent_id" binding:"required,max=128"`
}

// ApplyCouponRequest applies a coupon code to an open draft.
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required,max=64"`
}
