package bookings

import (
	"errors"
	"net/http"

	"busly/internal/drafts"
	"busly/internal/shared/utils/response"
	"busly/internal/trips"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// Finalize handles POST /drafts/:id/finalize
func (ctrl *Controller) Finalize(c *gin.Context) {
	draftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid draft id", nil, err.Error())
		return
	}

	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	booking, err := ctrl.service.Finalize(c.Request.Context(), draftID, PaymentMeta{
		Provider: req.Provider,
		IntentID: req.IntentID,
	})
	if err != nil {
		respondBookingError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking confirmed", booking, nil)
}

// GetBooking handles GET /bookings/:id
func (ctrl *Controller) GetBooking(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid booking id", nil, err.Error())
		return
	}

	booking, err := ctrl.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Booking retrieved", booking, nil)
}

func respondBookingError(c *gin.Context, err error) {
	if stale, ok := AsStaleState(err); ok {
		response.RespondJSON(c, "error", http.StatusConflict, stale.Error(), nil, gin.H{
			"draft_status": stale.Status,
		})
		return
	}
	if integrity, ok := AsIntegrityError(err); ok {
		response.RespondJSON(c, "error", http.StatusUnprocessableEntity, integrity.Error(), nil, nil)
		return
	}

	switch {
	case errors.Is(err, drafts.ErrDraftNotFound):
		response.RespondJSON(c, "error", http.StatusNotFound, "Draft not found", nil, nil)
	case errors.Is(err, ErrBookingNotFound):
		response.RespondJSON(c, "error", http.StatusNotFound, "Booking not found", nil, nil)
	case errors.Is(err, ErrItemNotFound):
		response.RespondJSON(c, "error", http.StatusNotFound, "Booking item not found", nil, nil)
	case errors.Is(err, ErrBookingCancelled):
		response.RespondJSON(c, "error", http.StatusConflict, "Booking is cancelled", nil, nil)
	case errors.Is(err, ErrSeatTaken):
		response.RespondJSON(c, "error", http.StatusConflict, err.Error(), nil, nil)
	case errors.Is(err, trips.ErrTripNotFound),
		errors.Is(err, trips.ErrSeatNotFound),
		errors.Is(err, trips.ErrFareNotFound):
		response.RespondJSON(c, "error", http.StatusUnprocessableEntity, err.Error(), nil, nil)
	default:
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
	}
}
