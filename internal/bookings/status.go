package bookings

// Booking statuses
const (
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// Adjustment kinds
const (
	AdjustmentAdditionalPayment = "ADDITIONAL_PAYMENT"
	AdjustmentPendingRefund     = "PENDING_REFUND"
)
