package trips

import (
	"time"

	"github.com/google/uuid"
)

// Location is a pickup/dropoff point on a route.
type Location struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Province  string    `json:"province"`
	CreatedAt time.Time `json:"created_at"`
}

// Route is an ordered corridor of locations served by trips.
type Route struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// RouteFare is the price of one (from, to) segment of a route.
type RouteFare struct {
	ID             int64   `gorm:"primaryKey" json:"id"`
	RouteID        int64   `gorm:"index:idx_route_segment,unique;not null" json:"route_id"`
	FromLocationID int64   `gorm:"index:idx_route_segment,unique;not null" json:"from_location_id"`
	ToLocationID   int64   `gorm:"index:idx_route_segment,unique;not null" json:"to_location_id"`
	Price          float64 `gorm:"not null" json:"price"`
}

// Bus is a physical vehicle with a fixed seat layout.
type Bus struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	PlateNo   string    `gorm:"unique" json:"plate_no"`
	CreatedAt time.Time `json:"created_at"`

	Seats []BusSeat `json:"seats,omitempty" gorm:"foreignKey:BusID"`
}

// BusSeat is one seat on a bus. Inactive seats (broken, crew) are never
// sellable.
type BusSeat struct {
	ID     int64  `gorm:"primaryKey" json:"id"`
	BusID  int64  `gorm:"index;not null" json:"bus_id"`
	Label  string `gorm:"not null" json:"label"`
	Active bool   `gorm:"default:true" json:"active"`
}

// Trip is one scheduled departure of a bus along a route.
type Trip struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	RouteID   int64     `gorm:"index;not null" json:"route_id"`
	BusID     int64     `gorm:"index;not null" json:"bus_id"`
	DepartsAt time.Time `gorm:"index;not null" json:"departs_at"`
	Status    string    `gorm:"type:varchar(20);default:'SCHEDULED'" json:"status"`
	CreatedAt time.Time `json:"created_at"`

	Route *Route `json:"route,omitempty" gorm:"foreignKey:RouteID"`
	Bus   *Bus   `json:"bus,omitempty" gorm:"foreignKey:BusID"`
}

// TripSeatStatus is the permanent source of truth for "is this seat
// booked." Rows are written only by the finalizer and the admin override
// path; uniqueness on (trip_id, seat_id) is enforced by upsert semantics.
type TripSeatStatus struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	TripID         int64      `gorm:"index:idx_trip_seat,unique;not null" json:"trip_id"`
	SeatID         int64      `gorm:"index:idx_trip_seat,unique;not null" json:"seat_id"`
	IsBooked       bool       `gorm:"not null;default:false" json:"is_booked"`
	BookingID      *uuid.UUID `gorm:"type:uuid" json:"booking_id,omitempty"`
	BookedByUserID *uuid.UUID `gorm:"type:uuid" json:"booked_by_user_id,omitempty"`
	BookedAt       *time.Time `json:"booked_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Location) TableName() string       { return "locations" }
func (Route) TableName() string          { return "routes" }
func (RouteFare) TableName() string      { return "route_fares" }
func (Bus) TableName() string            { return "buses" }
func (BusSeat) TableName() string        { return "bus_seats" }
func (Trip) TableName() string           { return "trips" }
func (TripSeatStatus) TableName() string { return "trip_seat_status" }
