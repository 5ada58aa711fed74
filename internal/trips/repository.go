package trips

import (
	"context"
	"errors"
	"fmt"
	"time"

	"busly/pkg/cache"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrFareNotFound is returned when a route has no fare for a segment.
var ErrFareNotFound = errors.New("no fare configured for segment")

// ErrSeatNotFound is returned when a seat id does not exist.
var ErrSeatNotFound = errors.New("seat not found")

// ErrTripNotFound is returned when a trip id does not exist.
var ErrTripNotFound = errors.New("trip not found")

type Repository interface {
	GetTrip(ctx context.Context, id int64) (*Trip, error)
	GetSeat(ctx context.Context, id int64) (*BusSeat, error)
	GetSeatsByIDs(ctx context.Context, seatIDs []int64) ([]BusSeat, error)
	FindSeatByLabel(ctx context.Context, busID int64, label string) (*BusSeat, error)

	// FareFor resolves the per-seat price for a (from, to) segment of a
	// trip's route.
	FareFor(ctx context.Context, tripID, fromLocationID, toLocationID int64) (float64, error)

	// Seat status (permanent bookings). Upsert, not insert: a seat may
	// carry a stale unbooked row from a previous failed attempt.
	UpsertSeatStatus(ctx context.Context, db *gorm.DB, statuses []TripSeatStatus) error
	ReleaseSeatStatus(ctx context.Context, db *gorm.DB, tripID, seatID int64) error
	GetSeatStatus(ctx context.Context, tripID, seatID int64) (*TripSeatStatus, error)
	GetBookedSeatIDs(ctx context.Context, tripID int64) ([]int64, error)

	// ListUpcomingTripIDs lists trips that have not departed yet, used to
	// warm the store's booked sets at startup.
	ListUpcomingTripIDs(ctx context.Context, now time.Time) ([]int64, error)
}

type repository struct {
	db           *gorm.DB
	cacheService cache.Service
	cacheTTL     time.Duration
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// NewCachedRepository wraps fare reads with a cache-aside layer.
func NewCachedRepository(db *gorm.DB, cacheService cache.Service, ttl time.Duration) Repository {
	return &repository{db: db, cacheService: cacheService, cacheTTL: ttl}
}

func (r *repository) GetTrip(ctx context.Context, id int64) (*Trip, error) {
	var trip Trip
	err := r.db.WithContext(ctx).Preload("Route").Preload("Bus").First(&trip, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

func (r *repository) GetSeat(ctx context.Context, id int64) (*BusSeat, error) {
	var seat BusSeat
	err := r.db.WithContext(ctx).First(&seat, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeatNotFound
		}
		return nil, fmt.Errorf("failed to get seat: %w", err)
	}
	return &seat, nil
}

func (r *repository) GetSeatsByIDs(ctx context.Context, seatIDs []int64) ([]BusSeat, error) {
	var seats []BusSeat
	err := r.db.WithContext(ctx).Where("id IN ?", seatIDs).Find(&seats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}
	return seats, nil
}

func (r *repository) FindSeatByLabel(ctx context.Context, busID int64, label string) (*BusSeat, error) {
	var seat BusSeat
	err := r.db.WithContext(ctx).Where("bus_id = ? AND label = ?", busID, label).First(&seat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSeatNotFound
		}
		return nil, fmt.Errorf("failed to find seat by label: %w", err)
	}
	return &seat, nil
}

func (r *repository) FareFor(ctx context.Context, tripID, fromLocationID, toLocationID int64) (float64, error) {
	fetch := func() (float64, error) {
		var trip Trip
		if err := r.db.WithContext(ctx).Select("id, route_id").First(&trip, "id = ?", tripID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, ErrTripNotFound
			}
			return 0, fmt.Errorf("failed to resolve trip route: %w", err)
		}

		var fare RouteFare
		err := r.db.WithContext(ctx).
			Where("route_id = ? AND from_location_id = ? AND to_location_id = ?",
				trip.RouteID, fromLocationID, toLocationID).
			First(&fare).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, ErrFareNotFound
			}
			return 0, fmt.Errorf("failed to look up fare: %w", err)
		}
		return fare.Price, nil
	}

	if r.cacheService == nil {
		return fetch()
	}

	cacheKey := fmt.Sprintf("busly:fares:trip:%d:%d:%d", tripID, fromLocationID, toLocationID)
	var price float64
	err := r.cacheService.GetOrSet(ctx, cacheKey, r.cacheTTL, func() (interface{}, error) {
		return fetch()
	}, &price)
	if err != nil {
		// Cache layer errors include fetch errors; fall through to the
		// sentinel-preserving direct path.
		return fetch()
	}
	return price, nil
}

func (r *repository) UpsertSeatStatus(ctx context.Context, db *gorm.DB, statuses []TripSeatStatus) error {
	if db == nil {
		db = r.db
	}
	if len(statuses) == 0 {
		return nil
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trip_id"}, {Name: "seat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_booked", "booking_id", "booked_by_user_id", "booked_at", "updated_at",
		}),
	}).Create(&statuses).Error
	if err != nil {
		return fmt.Errorf("failed to upsert trip seat status: %w", err)
	}
	return nil
}

func (r *repository) ReleaseSeatStatus(ctx context.Context, db *gorm.DB, tripID, seatID int64) error {
	if db == nil {
		db = r.db
	}
	err := db.WithContext(ctx).Model(&TripSeatStatus{}).
		Where("trip_id = ? AND seat_id = ?", tripID, seatID).
		Updates(map[string]interface{}{
			"is_booked":         false,
			"booking_id":        nil,
			"booked_by_user_id": nil,
			"booked_at":         nil,
			"updated_at":        time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to release trip seat status: %w", err)
	}
	return nil
}

func (r *repository) GetSeatStatus(ctx context.Context, tripID, seatID int64) (*TripSeatStatus, error) {
	var status TripSeatStatus
	err := r.db.WithContext(ctx).
		Where("trip_id = ? AND seat_id = ?", tripID, seatID).
		First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip seat status: %w", err)
	}
	return &status, nil
}

func (r *repository) GetBookedSeatIDs(ctx context.Context, tripID int64) ([]int64, error) {
	var seatIDs []int64
	err := r.db.WithContext(ctx).Model(&TripSeatStatus{}).
		Where("trip_id = ? AND is_booked = ?", tripID, true).
		Pluck("seat_id", &seatIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list booked seats: %w", err)
	}
	return seatIDs, nil
}

func (r *repository) ListUpcomingTripIDs(ctx context.Context, now time.Time) ([]int64, error) {
	var tripIDs []int64
	err := r.db.WithContext(ctx).Model(&Trip{}).
		Where("departs_at > ?", now).
		Pluck("id", &tripIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming trips: %w", err)
	}
	return tripIDs, nil
}

// helper kept close to the model: build a booked status row
func NewBookedStatus(tripID, seatID int64, bookingID uuid.UUID, userID *uuid.UUID, at time.Time) TripSeatStatus {
	return TripSeatStatus{
		TripID:         tripID,
		SeatID:         seatID,
		IsBooked:       true,
		BookingID:      &bookingID,
		BookedByUserID: userID,
		BookedAt:       &at,
		UpdatedAt:      at,
	}
}
