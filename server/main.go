package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"busly/api/routes"
	"busly/internal/drafts"
	"busly/internal/expiry"
	"busly/internal/locks"
	"busly/internal/notifications"
	"busly/internal/shared/config"
	"busly/internal/shared/database"
	"busly/internal/shared/utils/validation"
	"busly/internal/trips"
	"busly/pkg/logger"
	"busly/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)
	validation.RegisterCustomValidators()

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Lock store and engine. Preloading the Lua script is best-effort; it
	// loads on first use otherwise.
	lockStore := locks.NewRedisLockStore(db.GetRedisClient())
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := lockStore.PreloadScripts(ctx); err != nil {
			appLogger.Error("Failed to preload Redis Lua scripts", slog.Any("error", err))
		} else {
			appLogger.Info("✅ Redis Lua scripts preloaded for atomic seat locking")
		}
		cancel()
	}
	lockEngine := locks.NewEngine(lockStore)

	warmBookedSets(db, lockEngine, appLogger)

	// Broadcast layer. Without Kafka the core logs events and moves on.
	var broadcaster notifications.Broadcaster
	if cfg.Kafka.Enabled {
		kafkaCfg := notifications.DefaultKafkaProducerConfig()
		kafkaCfg.Brokers = cfg.Kafka.Brokers
		kafkaCfg.SeatsTopic = cfg.Kafka.SeatsTopic
		kafkaCfg.RetryMax = cfg.Kafka.RetryMax
		kafkaCfg.TimeoutMs = cfg.Kafka.TimeoutMs

		kafkaBroadcaster, err := notifications.NewKafkaBroadcaster(kafkaCfg)
		if err != nil {
			appLogger.Error("Failed to initialize Kafka producer, falling back to log-only events", slog.Any("error", err))
			broadcaster = notifications.NewLogBroadcaster(appLogger)
		} else {
			broadcaster = kafkaBroadcaster
			appLogger.Info("Kafka seat event producer initialized", slog.Any("brokers", cfg.Kafka.Brokers))
		}
	} else {
		broadcaster = notifications.NewLogBroadcaster(appLogger)
		appLogger.Info("Kafka disabled, seat events will be logged only")
	}
	defer broadcaster.Close()

	// Expiry reconciliation: keyspace listener plus the safety-net sweeper.
	expiryCtx, expiryCancel := context.WithCancel(context.Background())
	defer expiryCancel()

	draftsRepo := drafts.NewRepository(db.GetPostgreSQL())
	reconciler := expiry.NewReconciler(lockStore, draftsRepo, broadcaster, appLogger)
	listener := expiry.NewListener(db.GetRedisClient(), cfg.Redis.DB, reconciler, cfg.Expiry.Workers, appLogger)
	sweeper := expiry.NewSweeper(draftsRepo, reconciler, cfg.Expiry.SweepInterval, appLogger)

	go listener.Run(expiryCtx)
	go sweeper.Run(expiryCtx)
	appLogger.Info("Expiry reconciliation started",
		slog.Int("workers", cfg.Expiry.Workers),
		slog.Duration("sweep_interval", cfg.Expiry.SweepInterval),
	)

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			HoldRequests:    cfg.RateLimit.HoldRequests,
			AdminRequests:   cfg.RateLimit.DefaultRequests,
			HealthRequests:  cfg.RateLimit.DefaultRequests * 5,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("hold_requests", cfg.RateLimit.HoldRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	router := setupRouter(cfg, db, lockEngine, broadcaster, rateLimiter)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", cfg.APIVersion),
			slog.Bool("kafka", cfg.Kafka.Enabled),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	expiryCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

// warmBookedSets rebuilds the per-trip booked sets from TripSeatStatus so
// the lock script sees permanent bookings after a Redis restart.
func warmBookedSets(db *database.DB, engine *locks.Engine, appLogger *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tripsRepo := trips.NewRepository(db.GetPostgreSQL())
	tripIDs, err := tripsRepo.ListUpcomingTripIDs(ctx, time.Now().UTC())
	if err != nil {
		appLogger.Error("Failed to list trips for booked-set warmup", slog.Any("error", err))
		return
	}

	warmed := 0
	for _, tripID := range tripIDs {
		seatIDs, err := tripsRepo.GetBookedSeatIDs(ctx, tripID)
		if err != nil {
			appLogger.Error("Failed to load booked seats", slog.Int64("trip_id", tripID), slog.Any("error", err))
			continue
		}
		if len(seatIDs) == 0 {
			continue
		}
		members := make([]string, 0, len(seatIDs))
		for _, seatID := range seatIDs {
			members = append(members, locks.FormatID(seatID))
		}
		if err := engine.Store().SAdd(ctx, locks.TripBookedSetKey(tripID), members...); err != nil {
			appLogger.Error("Failed to warm booked set", slog.Int64("trip_id", tripID), slog.Any("error", err))
			continue
		}
		warmed++
	}
	if warmed > 0 {
		appLogger.Info("Booked sets warmed", slog.Int("trips", warmed))
	}
}

func setupRouter(cfg *config.Config, db *database.DB, lockEngine *locks.Engine, broadcaster notifications.Broadcaster, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Session-Token"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
	}

	appRouter := routes.NewRouter(cfg, db, lockEngine, broadcaster)
	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
