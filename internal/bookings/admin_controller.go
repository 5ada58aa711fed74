package bookings

import (
	"net/http"

	"busly/internal/shared/middleware"
	"busly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminController struct {
	service AdminService
}

func NewAdminController(service AdminService) *AdminController {
	return &AdminController{service: service}
}

// ChangeSeat handles POST /admin/booking-items/:id/change-seat
func (ctrl *AdminController) ChangeSeat(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid booking item id", nil, err.Error())
		return
	}

	var req ChangeSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	booking, err := ctrl.service.ChangeSeat(c.Request.Context(), itemID, req.NewSeatID, operatorID(c))
	if err != nil {
		respondBookingError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Seat changed", booking, nil)
}

// ChangeTrip handles POST /admin/booking-items/:id/change-trip
func (ctrl *AdminController) ChangeTrip(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid booking item id", nil, err.Error())
		return
	}

	var req ChangeTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	booking, err := ctrl.service.ChangeTrip(c.Request.Context(), itemID, &req, operatorID(c))
	if err != nil {
		respondBookingError(c, err)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Trip changed", booking, nil)
}

func operatorID(c *gin.Context) *uuid.UUID {
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
