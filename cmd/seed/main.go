package main

import (
	"fmt"
	"log"
	"time"

	"busly/internal/coupons"
	"busly/internal/shared/config"
	"busly/internal/shared/database"
	"busly/internal/trips"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Busly Database Seeder...")

	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in reverse dependency order.
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"booking_adjustments",
		"booking_items",
		"booking_legs",
		"bookings",
		"draft_checkout_items",
		"draft_checkout_legs",
		"draft_checkouts",
		"trip_seat_status",
		"coupons",
		"trips",
		"bus_seats",
		"buses",
		"route_fares",
		"routes",
		"locations",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds the trip inventory and a few coupons.
func (s *Seeder) SeedAll() error {
	locations, err := s.SeedLocations()
	if err != nil {
		return fmt.Errorf("failed to seed locations: %w", err)
	}

	routes, err := s.SeedRoutesAndFares(locations)
	if err != nil {
		return fmt.Errorf("failed to seed routes: %w", err)
	}

	buses, err := s.SeedBuses()
	if err != nil {
		return fmt.Errorf("failed to seed buses: %w", err)
	}

	if err := s.SeedTrips(routes, buses); err != nil {
		return fmt.Errorf("failed to seed trips: %w", err)
	}

	if err := s.SeedCoupons(); err != nil {
		return fmt.Errorf("failed to seed coupons: %w", err)
	}

	return nil
}

func (s *Seeder) SeedLocations() ([]trips.Location, error) {
	locations := []trips.Location{
		{Name: "Ben Xe Mien Dong", Province: "Ho Chi Minh"},
		{Name: "Ben Xe Da Lat", Province: "Lam Dong"},
		{Name: "Ben Xe Nha Trang", Province: "Khanh Hoa"},
		{Name: "Ben Xe Mien Tay", Province: "Ho Chi Minh"},
		{Name: "Ben Xe Can Tho", Province: "Can Tho"},
	}
	if err := s.db.PostgreSQL.Create(&locations).Error; err != nil {
		return nil, err
	}
	fmt.Printf("  Seeded %d locations\n", len(locations))
	return locations, nil
}

func (s *Seeder) SeedRoutesAndFares(locations []trips.Location) ([]trips.Route, error) {
	routes := []trips.Route{
		{Name: "Sai Gon - Da Lat", Active: true},
		{Name: "Sai Gon - Nha Trang", Active: true},
		{Name: "Sai Gon - Can Tho", Active: true},
	}
	if err := s.db.PostgreSQL.Create(&routes).Error; err != nil {
		return nil, err
	}

	fares := []trips.RouteFare{
		{RouteID: routes[0].ID, FromLocationID: locations[0].ID, ToLocationID: locations[1].ID, Price: 150000},
		{RouteID: routes[0].ID, FromLocationID: locations[1].ID, ToLocationID: locations[0].ID, Price: 150000},
		{RouteID: routes[1].ID, FromLocationID: locations[0].ID, ToLocationID: locations[2].ID, Price: 180000},
		{RouteID: routes[1].ID, FromLocationID: locations[2].ID, ToLocationID: locations[0].ID, Price: 180000},
		{RouteID: routes[2].ID, FromLocationID: locations[3].ID, ToLocationID: locations[4].ID, Price: 120000},
		{RouteID: routes[2].ID, FromLocationID: locations[4].ID, ToLocationID: locations[3].ID, Price: 120000},
	}
	if err := s.db.PostgreSQL.Create(&fares).Error; err != nil {
		return nil, err
	}

	fmt.Printf("  Seeded %d routes with %d fares\n", len(routes), len(fares))
	return routes, nil
}

func (s *Seeder) SeedBuses() ([]trips.Bus, error) {
	buses := []trips.Bus{
		{Name: "Limousine 34", PlateNo: "51B-123.45"},
		{Name: "Sleeper 40", PlateNo: "51B-678.90"},
	}
	if err := s.db.PostgreSQL.Create(&buses).Error; err != nil {
		return nil, err
	}

	seatCounts := []int{34, 40}
	total := 0
	for i, bus := range buses {
		seats := make([]trips.BusSeat, 0, seatCounts[i])
		for n := 1; n <= seatCounts[i]; n++ {
			row := (n-1)/2 + 1
			side := "A"
			if n%2 == 0 {
				side = "B"
			}
			seats = append(seats, trips.BusSeat{
				BusID:  bus.ID,
				Label:  fmt.Sprintf("%s%02d", side, row),
				Active: true,
			})
		}
		if err := s.db.PostgreSQL.Create(&seats).Error; err != nil {
			return nil, err
		}
		total += len(seats)
	}

	fmt.Printf("  Seeded %d buses with %d seats\n", len(buses), total)
	return buses, nil
}

func (s *Seeder) SeedTrips(routes []trips.Route, buses []trips.Bus) error {
	departure := time.Now().UTC().Truncate(time.Hour).Add(24 * time.Hour)

	var seeded []trips.Trip
	for day := 0; day < 7; day++ {
		for i, route := range routes {
			seeded = append(seeded, trips.Trip{
				RouteID:   route.ID,
				BusID:     buses[i%len(buses)].ID,
				DepartsAt: departure.AddDate(0, 0, day).Add(time.Duration(8+i*4) * time.Hour),
				Status:    "SCHEDULED",
			})
		}
	}
	if err := s.db.PostgreSQL.Create(&seeded).Error; err != nil {
		return err
	}

	fmt.Printf("  Seeded %d trips over 7 days\n", len(seeded))
	return nil
}

func (s *Seeder) SeedCoupons() error {
	validUntil := time.Now().UTC().AddDate(0, 3, 0)
	seeded := []coupons.Coupon{
		{Code: "WELCOME50", DiscountType: coupons.DiscountFlat, DiscountValue: 50000, MinTotal: 200000, Active: true, ValidUntil: &validUntil},
		{Code: "SUMMER10", DiscountType: coupons.DiscountPercent, DiscountValue: 10, MaxDiscount: 100000, Active: true, ValidUntil: &validUntil},
		{Code: "EXPIRED", DiscountType: coupons.DiscountFlat, DiscountValue: 10000, Active: false},
	}
	if err := s.db.PostgreSQL.Create(&seeded).Error; err != nil {
		return err
	}

	fmt.Printf("  Seeded %d coupons\n", len(seeded))
	return nil
}
