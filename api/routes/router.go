// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"busly/internal/bookings"
	"busly/internal/coupons"
	"busly/internal/drafts"
	"busly/internal/locks"
	"busly/internal/notifications"
	"busly/internal/shared/config"
	"busly/internal/shared/database"
	"busly/internal/shared/middleware"
	"busly/internal/trips"
	"busly/pkg/cache"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config      *config.Config
	db          *database.DB
	engine      *locks.Engine
	broadcaster notifications.Broadcaster

	draftsRepo drafts.Repository // shared between checkout and finalize wiring
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, engine *locks.Engine, broadcaster notifications.Broadcaster) *Router {
	return &Router{
		config:      cfg,
		db:          db,
		engine:      engine,
		broadcaster: broadcaster,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupCheckoutRoutes(api)
		r.setupAdminRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "busly-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "busly-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}

// setupCheckoutRoutes wires the hold, draft and finalize endpoints.
func (r *Router) setupCheckoutRoutes(rg *gin.RouterGroup) {
	pg := r.db.GetPostgreSQL()
	cacheService := cache.NewService(r.db.GetRedisClient())

	tripsRepo := trips.NewCachedRepository(pg, cacheService, r.config.Redis.CacheTTL)
	couponService := coupons.NewService(pg)

	r.draftsRepo = drafts.NewRepository(pg)
	draftService := drafts.NewService(r.draftsRepo, tripsRepo, couponService, r.engine, r.broadcaster, nil, r.config.Redis.SeatHoldTTL)
	drafts.RegisterRoutes(rg, drafts.NewController(draftService))

	bookingsRepo := bookings.NewRepository(pg, tripsRepo)
	bookingService := bookings.NewService(bookingsRepo, r.draftsRepo, r.engine, r.broadcaster, nil)
	bookings.RegisterRoutes(rg, bookings.NewController(bookingService))
}

// setupAdminRoutes wires the JWT-guarded operator override endpoints.
func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	pg := r.db.GetPostgreSQL()
	tripsRepo := trips.NewRepository(pg)

	bookingsRepo := bookings.NewRepository(pg, tripsRepo)
	adminService := bookings.NewAdminService(bookingsRepo, tripsRepo, r.engine, r.broadcaster, nil)

	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuthWithConfig(r.config), middleware.AdminOnly())
	bookings.RegisterAdminRoutes(admin, bookings.NewAdminController(adminService))
}
