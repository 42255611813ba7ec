package orgs

import (
	"context"
	"errors"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestOrgService(t *testing.T) (*Service, *gorm.DB) {
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
	if err := db.AutoMigrate(&Organization{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Acme Diner", "acme-diner"},
		{"  Joe's Pizza & Pasta  ", "joe-s-pizza-pasta"},
		{"ALLCAPS", "allcaps"},
		{"already-slugged", "already-slugged"},
		{"trailing---", "trailing"},
		{"123 Main", "123-main"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.name); got != tc.want {
			t.Fatalf("Slugify(%q): got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCreateDerivesSlug(t *testing.T) {
	service, _ := newTestOrgService(t)
	org, err := service.Create(context.Background(), "Acme Diner", "", "acmediner.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org.Slug != "acme-diner" {
		t.Fatalf("expected derived slug, got %q", org.Slug)
	}
	if org.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestCreateRejectsEmptyName(t *testing.T) {
	service, _ := newTestOrgService(t)
	_, err := service.Create(context.Background(), "   ", "", "")
	if !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestGetBySlug(t *testing.T) {
	service, _ := newTestOrgService(t)
	created, err := service.Create(context.Background(), "Acme Diner", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := service.GetBySlug(context.Background(), "acme-diner")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.ID != created.ID {
		t.Fatalf("expected id %s, got %s", created.ID, loaded.ID)
	}

	_, err = service.GetBySlug(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchMatchesSubstringOrderedByReports(t *testing.T) {
	service, db := newTestOrgService(t)
	seed := []Organization{
		{ID: "1", Name: "Acme Diner", Slug: "acme-diner", WageReportsCount: 5},
		{ID: "2", Name: "Acme Burger", Slug: "acme-burger", WageReportsCount: 12},
		{ID: "3", Name: "Zed Coffee", Slug: "zed-coffee", WageReportsCount: 40},
	}
	for _, org := range seed {
		row := org
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("failed to seed: %v", err)
		}
	}

	results, err := service.Search(context.Background(), "acme", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(results))
	}
	if results[0].ID != "2" || results[1].ID != "1" {
		t.Fatalf("expected most-reported first, got %s then %s", results[0].ID, results[1].ID)
	}
}

func TestSearchEmptyQueryListsAll(t *testing.T) {
	service, db := newTestOrgService(t)
	for _, org := range []Organization{
		{ID: "1", Name: "Acme", Slug: "acme", WageReportsCount: 1},
		{ID: "2", Name: "Zed", Slug: "zed", WageReportsCount: 9},
	} {
		row := org
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("failed to seed: %v", err)
		}
	}

	results, err := service.Search(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 || results[0].ID != "2" {
		t.Fatalf("expected all orgs most-reported first, got %+v", results)
	}
}
