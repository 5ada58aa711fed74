package database

import (
	"fmt"
	"log"

	"busly/internal/bookings"
	"busly/internal/coupons"
	"busly/internal/drafts"
	"busly/internal/trips"

	"gorm.io/gorm"
)

// Migrate runs GORM auto-migration for every persisted model.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("failed to create uuid extension: %w", err)
	}

	err := db.AutoMigrate(
		// Trip inventory
		&trips.Location{},
		&trips.Route{},
		&trips.RouteFare{},
		&trips.Bus{},
		&trips.BusSeat{},
		&trips.Trip{},
		&trips.TripSeatStatus{},

		// Checkout
		&coupons.Coupon{},
		&drafts.DraftCheckout{},
		&drafts.DraftCheckoutLeg{},
		&drafts.DraftCheckoutItem{},

		// Finalized orders
		&bookings.Booking{},
		&bookings.BookingLeg{},
		&bookings.BookingItem{},
		&bookings.BookingAdjustment{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	log.Println("✅ Database migrations completed")
	return nil
}
