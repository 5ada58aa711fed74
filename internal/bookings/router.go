package bookings

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts finalize and booking lookup on the API group.
func RegisterRoutes(rg *gin.RouterGroup, ctrl *Controller) {
	rg.POST("/drafts/:id/finalize", ctrl.Finalize)
	rg.GET("/bookings/:id", ctrl.GetBooking)
}

// RegisterAdminRoutes mounts the operator override endpoints. The group is
// expected to carry JWT auth and the admin role check.
func RegisterAdminRoutes(rg *gin.RouterGroup, ctrl *AdminController) {
	items := rg.Group("/booking-items")
	{
		items.POST("/:id/change-seat", ctrl.ChangeSeat)
		items.POST("/:id/change-trip", ctrl.ChangeTrip)
	}
}
