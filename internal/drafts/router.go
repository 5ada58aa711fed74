package drafts

import (
	"busly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the hold and draft endpoints on the API group.
// Extra middleware (rate limiting) applies to hold creation only.
func RegisterRoutes(rg *gin.RouterGroup, ctrl *Controller, holdMiddleware ...gin.HandlerFunc) {
	holds := rg.Group("/holds")
	holds.Use(middleware.RequireSessionToken())
	holds.Use(holdMiddleware...)
	{
		holds.POST("", ctrl.CreateHold)
	}

	draftGroup := rg.Group("/drafts")
	{
		draftGroup.GET("/:id", ctrl.GetDraft)
		draftGroup.POST("/:id/coupon", ctrl.ApplyCoupon)
		draftGroup.POST("/:id/payment", ctrl.BeginPayment)
	}
}
