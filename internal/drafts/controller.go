package drafts

import (
	"errors"
	"net/http"

	"busly/internal/coupons"
	"busly/internal/locks"
	"busly/internal/shared/middleware"
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

// CreateHold handles POST /holds
func (ctrl *Controller) CreateHold(c *gin.Context) {
	var req CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	sessionToken := middleware.SessionToken(c)
	userID := optionalUserID(c)

	draft, err := ctrl.service.CreateHold(c.Request.Context(), sessionToken, userID, &req)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusCreated, "Seats held", draft, nil)
}

// GetDraft handles GET /drafts/:id
func (ctrl *Controller) GetDraft(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	draft, err := ctrl.service.GetDraft(c.Request.Context(), id)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Draft retrieved", draft, nil)
}

// ApplyCoupon handles POST /drafts/:id/coupon
func (ctrl *Controller) ApplyCoupon(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	draft, err := ctrl.service.ApplyCoupon(c.Request.Context(), id, req.Code)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Coupon applied", draft, nil)
}

// BeginPayment handles POST /drafts/:id/payment
func (ctrl *Controller) BeginPayment(c *gin.Context) {
	id, ok := draftID(c)
	if !ok {
		return
	}

	var req BeginPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	draft, err := ctrl.service.BeginPayment(c.Request.Context(), id, req.Provider, req.IntentID)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Payment started", draft, nil)
}

func draftID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid draft id", nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func optionalUserID(c *gin.Context) *uuid.UUID {
	raw := c.GetString(middleware.ContextUserID)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// respondDraftError maps the service error taxonomy to HTTP codes:
// conflicts and stale state are 409, unknown references 404/422, anything
// else an infrastructure 500.
func respondDraftError(c *gin.Context, err error) {
	if conflictErr, ok := locks.AsConflictError(err); ok {
		response.RespondJSON(c, "error", http.StatusConflict, conflictErr.Error(), nil, gin.H{
			"conflicts": conflictErr.Conflicts,
		})
		return
	}

	switch {
	case errors.Is(err, ErrDraftNotFound):
		response.RespondJSON(c, "error", http.StatusNotFound, "Draft not found", nil, nil)
	case errors.Is(err, ErrDraftNotActive):
		response.RespondJSON(c, "error", http.StatusConflict, "Draft is no longer active", nil, err.Error())
	case errors.Is(err, locks.ErrEmptyRequest),
		errors.Is(err, locks.ErrInvalidSeatID),
		errors.Is(err, ErrDuplicateTripLeg):
		response.RespondJSON(c, "error", http.StatusBadRequest, err.Error(), nil, nil)
	case errors.Is(err, trips.ErrTripNotFound),
		errors.Is(err, trips.ErrSeatNotFound),
		errors.Is(err, trips.ErrFareNotFound),
		errors.Is(err, ErrSeatNotSellable),
		errors.Is(err, coupons.ErrCouponNotFound),
		errors.Is(err, coupons.ErrCouponNotApplicable):
		response.RespondJSON(c, "error", http.StatusUnprocessableEntity, err.Error(), nil, nil)
	default:
		response.RespondJSON(c, "error", http.StatusInternalServerError, "Internal server error", nil, nil)
	}
}
