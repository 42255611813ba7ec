package locations

import (
	"context"
	"errors"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Location{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestLocationService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

func seedLocation(t *testing.T, db *gorm.DB, id string, lat, lng float64, active bool) {
	t.Helper()
	location := Location{
		ID:             id,
		OrganizationID: "org-1",
		Name:           "Site " + id,
		CountryCode:    "US",
		Latitude:       lat,
		Longitude:      lng,
		IsActive:       active,
	}
	if err := db.Create(&location).Error; err != nil {
		t.Fatalf("failed to seed location %s: %v", id, err)
	}
}

func TestGetMissingLocation(t *testing.T) {
	service, _ := newTestLocationService(t)
	_, err := service.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateAssignsIDAndPersists(t *testing.T) {
	service, db := newTestLocationService(t)
	created, err := service.Create(context.Background(), Location{
		OrganizationID: "org-1",
		Name:           "Acme Downtown",
		CountryCode:    "US",
		Latitude:       45.52,
		Longitude:      -122.67,
		IsActive:       true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	var stored Location
	if err := db.Where("id = ?", created.ID).Take(&stored).Error; err != nil {
		t.Fatalf("failed to reload location: %v", err)
	}
	if stored.Name != "Acme Downtown" {
		t.Fatalf("unexpected stored name %q", stored.Name)
	}
}

func TestCreateRejectsInvalidCoordinates(t *testing.T) {
	service, _ := newTestLocationService(t)
	_, err := service.Create(context.Background(), Location{
		OrganizationID: "org-1",
		Name:           "Nowhere",
		Latitude:       95,
		Longitude:      0,
	})
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestNearbyOrdersByDistance(t *testing.T) {
	service, db := newTestLocationService(t)
	center := [2]float64{45.5200, -122.6700}
	seedLocation(t, db, "close", 45.5210, -122.6700, true)
	seedLocation(t, db, "mid", 45.5500, -122.6700, true)
	seedLocation(t, db, "far", 45.6000, -122.6700, true)

	results, err := service.Nearby(context.Background(), center[0], center[1], 20, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []string{"close", "mid", "far"}
	for i, id := range want {
		if results[i].Location.ID != id {
			t.Fatalf("expected %s at position %d, got %s", id, i, results[i].Location.ID)
		}
	}
	if results[0].DistanceKM >= results[1].DistanceKM || results[1].DistanceKM >= results[2].DistanceKM {
		t.Fatalf("expected strictly increasing distances: %f, %f, %f",
			results[0].DistanceKM, results[1].DistanceKM, results[2].DistanceKM)
	}
}

func TestNearbyExcludesBeyondRadius(t *testing.T) {
	service, db := newTestLocationService(t)
	seedLocation(t, db, "inside", 45.5210, -122.6700, true)
	// ~55km north of center, outside a 10km radius.
	seedLocation(t, db, "outside", 46.0200, -122.6700, true)

	results, err := service.Nearby(context.Background(), 45.5200, -122.6700, 10, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Location.ID != "inside" {
		t.Fatalf("expected only the in-radius location, got %+v", results)
	}
}

func TestNearbySkipsInactiveLocations(t *testing.T) {
	service, db := newTestLocationService(t)
	seedLocation(t, db, "active", 45.5210, -122.6700, true)
	seedLocation(t, db, "closed", 45.5211, -122.6701, false)

	results, err := service.Nearby(context.Background(), 45.5200, -122.6700, 10, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Location.ID != "active" {
		t.Fatalf("expected inactive location filtered, got %+v", results)
	}
}

func TestNearbyHonorsLimit(t *testing.T) {
	service, db := newTestLocationService(t)
	seedLocation(t, db, "a", 45.5210, -122.6700, true)
	seedLocation(t, db, "b", 45.5220, -122.6700, true)
	seedLocation(t, db, "c", 45.5230, -122.6700, true)

	results, err := service.Nearby(context.Background(), 45.5200, -122.6700, 10, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(results))
	}
}

func TestNearbyRejectsInvalidCoordinates(t *testing.T) {
	service, _ := newTestLocationService(t)
	_, err := service.Nearby(context.Background(), 91, 0, 10, 10)
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestListByOrganizationOrdersByReportCount(t *testing.T) {
	service, db := newTestLocationService(t)
	first := Location{ID: "busy", OrganizationID: "org-1", Name: "Busy", CountryCode: "US", IsActive: true, WageReportsCount: 10}
	second := Location{ID: "quiet", OrganizationID: "org-1", Name: "Quiet", CountryCode: "US", IsActive: true, WageReportsCount: 2}
	inactive := Location{ID: "closed", OrganizationID: "org-1", Name: "Closed", CountryCode: "US", IsActive: false, WageReportsCount: 50}
	for _, location := range []Location{second, first, inactive} {
		seeded := location
		if err := db.Create(&seeded).Error; err != nil {
			t.Fatalf("failed to seed: %v", err)
		}
	}

	results, err := service.ListByOrganization(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected inactive excluded, got %d results", len(results))
	}
	if results[0].ID != "busy" || results[1].ID != "quiet" {
		t.Fatalf("unexpected ordering: %s, %s", results[0].ID, results[1].ID)
	}
}
