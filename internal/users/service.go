package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Reward values in points. The first approved submission earns a bonus on top
// of the per-submission award.
const (
	PointsPerApprovedSubmission = 10
	FirstSubmissionBonus        = 40
)

var (
	// ErrInvalidUserID indicates an empty submitter identifier.
	ErrInvalidUserID = errors.New("users: invalid user id")
	// ErrNotFound indicates no user matches the identifier.
	ErrNotFound = errors.New("users: user not found")

	errMissingDatabase = errors.New("users: database connection required")
)

// ServiceConfig describes the dependencies for the submitter service.
type ServiceConfig struct {
	Database *gorm.DB
}

// Service manages submitter accounts and their reward state. It implements the
// wage service's Rewarder collaborator.
type Service struct {
	db *gorm.DB
}

// NewService constructs the submitter service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	return &Service{db: cfg.Database}, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates the account row for a submitter if it does not exist yet.
func (s *Service) Register(ctx context.Context, id, email, displayName string) (*User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidUserID
	}
	user := User{ID: id, Email: strings.TrimSpace(email), DisplayName: strings.TrimSpace(displayName)}
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RecordApprovedSubmission awards points for one approved submission inside
// the caller's transaction. The submission counter and point total move in a
// single set-based UPDATE so concurrent approvals cannot lose increments, and
// the first-submission bonus keys off the pre-update counter value.
func (s *Service) RecordApprovedSubmission(ctx context.Context, tx *gorm.DB, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidUserID
	}
	if tx == nil {
		tx = s.db
	}
	tx = tx.WithContext(ctx)

	// Unknown submitters get an account row on their first approved report.
	placeholder := User{ID: userID}
	if err := tx.Where("id = ?", userID).FirstOrCreate(&placeholder).Error; err != nil {
		return err
	}

	return tx.Model(&User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"points": gorm.Expr(
			"points + ? + CASE WHEN approved_submissions = 0 THEN ? ELSE 0 END",
			PointsPerApprovedSubmission, FirstSubmissionBonus,
		),
		"approved_submissions": gorm.Expr("approved_submissions + 1"),
	}).Error
}
