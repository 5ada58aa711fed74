package bookings

// FinalizeRequest carries the payment confirmation for a draft.
type FinalizeRequest struct {
	Provider string `json:"provider" binding:"required,oneof=stripe momo zalopay cash"`
	IntentID string `json:"intent_id" binding:"required,max=128"`
}

// ChangeSeatRequest moves a booking item to another seat on its trip.
type ChangeSeatRequest struct {
	NewSeatID int64 `json:"new_seat_id" binding:"required,gt=0"`
}

// ChangeTripRequest moves a booking item to a seat on another trip. When
// new_seat_id is omitted the seat with the same label on the new trip's
// bus is used.
type ChangeTripRequest struct {
	NewTripID         int64 `json:"new_trip_id" binding:"required,gt=0"`
	NewSeatID         int64 `json:"new_seat_id" binding:"omitempty,gt=0"`
	PickupLocationID  int64 `json:"pickup_location_id" binding:"required,gt=0"`
	DropoffLocationID int64 `json:"dropoff_location_id" binding:"required,gt=0"`
}
