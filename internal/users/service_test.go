package users

import (
	"context"
	"errors"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestUserService(t *testing.T) (*Service, *gorm.DB) {
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
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

func TestRegisterCreatesAccount(t *testing.T) {
	service, _ := newTestUserService(t)
	user, err := service.Register(context.Background(), "user-1", "a@example.com", "Alex")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" || user.Points != 0 || user.ApprovedSubmissions != 0 {
		t.Fatalf("unexpected new account state: %+v", user)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	service, db := newTestUserService(t)
	ctx := context.Background()
	if _, err := service.Register(ctx, "user-1", "a@example.com", "Alex"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.Model(&User{}).Where("id = ?", "user-1").
		UpdateColumn("points", 50).Error; err != nil {
		t.Fatalf("failed to set points: %v", err)
	}

	// Re-registering must not reset existing reward state.
	if _, err := service.Register(ctx, "user-1", "other@example.com", "Alexandra"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user, err := service.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Points != 50 {
		t.Fatalf("expected existing points preserved, got %d", user.Points)
	}
}

func TestRegisterRejectsEmptyID(t *testing.T) {
	service, _ := newTestUserService(t)
	_, err := service.Register(context.Background(), "   ", "", "")
	if !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestGetMissingUser(t *testing.T) {
	service, _ := newTestUserService(t)
	_, err := service.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordApprovedSubmissionFirstAwardsBonus(t *testing.T) {
	service, db := newTestUserService(t)
	ctx := context.Background()

	if err := service.RecordApprovedSubmission(ctx, db, "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user, err := service.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := int64(PointsPerApprovedSubmission + FirstSubmissionBonus)
	if user.Points != want {
		t.Fatalf("expected first submission to award %d, got %d", want, user.Points)
	}
	if user.ApprovedSubmissions != 1 {
		t.Fatalf("expected 1 approved submission, got %d", user.ApprovedSubmissions)
	}
}

func TestRecordApprovedSubmissionRepeatAwardsBase(t *testing.T) {
	service, db := newTestUserService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := service.RecordApprovedSubmission(ctx, db, "user-1"); err != nil {
			t.Fatalf("submission %d failed: %v", i+1, err)
		}
	}
	user, err := service.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := int64(FirstSubmissionBonus + 3*PointsPerApprovedSubmission)
	if user.Points != want {
		t.Fatalf("expected %d points after 3 submissions, got %d", want, user.Points)
	}
	if user.ApprovedSubmissions != 3 {
		t.Fatalf("expected 3 approved submissions, got %d", user.ApprovedSubmissions)
	}
}

func TestRecordApprovedSubmissionCreatesUnknownSubmitter(t *testing.T) {
	service, db := newTestUserService(t)
	ctx := context.Background()

	if err := service.RecordApprovedSubmission(ctx, db, "fresh"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user, err := service.Get(ctx, "fresh")
	if err != nil {
		t.Fatalf("expected account row created, got %v", err)
	}
	if user.ApprovedSubmissions != 1 {
		t.Fatalf("expected 1 approved submission, got %d", user.ApprovedSubmissions)
	}
}

func TestRecordApprovedSubmissionRejectsEmptyID(t *testing.T) {
	service, db := newTestUserService(t)
	if err := service.RecordApprovedSubmission(context.Background(), db, "  "); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}
