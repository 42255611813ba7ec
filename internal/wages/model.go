package wages

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Period enumerates the pay periods a wage report may be submitted with.
type Period string

const (
	PeriodHourly   Period = "hourly"
	PeriodWeekly   Period = "weekly"
	PeriodBiweekly Period = "biweekly"
	PeriodMonthly  Period = "monthly"
	PeriodYearly   Period = "yearly"
	PeriodPerShift Period = "per_shift"
)

// Status enumerates the moderation states of a wage report. Status is always
// computed by the write path; callers never supply it.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidPeriod indicates an unrecognized wage period value.
	ErrInvalidPeriod = errors.New("wages: invalid wage period")
	// ErrOutOfBounds indicates a normalized hourly wage outside the accepted range.
	ErrOutOfBounds = errors.New("wages: normalized hourly wage out of bounds")
	// ErrInvalidStatus indicates an unrecognized report status value.
	ErrInvalidStatus = errors.New("wages: invalid report status")
	// ErrInvalidAmount indicates a non-positive submitted amount.
	ErrInvalidAmount = errors.New("wages: amount must be positive")
	// ErrInvalidLocationID indicates an empty or oversized location identifier.
	ErrInvalidLocationID = errors.New("wages: invalid location id")
)

// NewPeriod validates raw input and returns a Period.
func NewPeriod(rawInput string) (Period, error) {
	period := Period(strings.TrimSpace(strings.ToLower(rawInput)))
	switch period {
	case PeriodHourly, PeriodWeekly, PeriodBiweekly, PeriodMonthly, PeriodYearly, PeriodPerShift:
		return period, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, rawInput)
}

// NewStatus validates raw input and returns a Status.
func NewStatus(rawInput string) (Status, error) {
	status := Status(strings.TrimSpace(strings.ToLower(rawInput)))
	switch status {
	case StatusPending, StatusApproved, StatusRejected:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, rawInput)
}

// WageReport models one crowdsourced wage submission together with its derived
// normalization and scoring state.
type WageReport struct {
	ID                    string         `gorm:"column:id;primaryKey;size:36;not null"`
	UserID                *string        `gorm:"column:user_id;size:190;index"`
	OrganizationID        *string        `gorm:"column:organization_id;size:36;index:idx_wage_reports_org_status,priority:1"`
	LocationID            string         `gorm:"column:location_id;size:36;not null;index:idx_wage_reports_loc_status,priority:1"`
	JobTitle              string         `gorm:"column:job_title;size:190;not null"`
	PositionCategoryID    *string        `gorm:"column:position_category_id;size:36;index"`
	AmountCents           int64          `gorm:"column:amount_cents;not null"`
	Currency              string         `gorm:"column:currency;size:3;not null;default:USD"`
	Period                Period         `gorm:"column:wage_period;size:16;not null"`
	HoursPerWeek          int            `gorm:"column:hours_per_week;not null;default:40"`
	ShiftHours            int            `gorm:"column:shift_hours;not null;default:8"`
	NormalizedHourlyCents int64          `gorm:"column:normalized_hourly_cents;not null"`
	SanityScore           int            `gorm:"column:sanity_score;not null;default:0"`
	Status                Status         `gorm:"column:status;size:16;not null;index:idx_wage_reports_loc_status,priority:2;index:idx_wage_reports_org_status,priority:2"`
	CreatedAt             int64          `gorm:"column:created_at_s;not null;autoCreateTime"`
	UpdatedAt             int64          `gorm:"column:updated_at_s;not null;autoUpdateTime"`
	DeletedAt             gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// TableName provides the explicit table binding for GORM.
func (WageReport) TableName() string {
	return "wage_reports"
}

// Counted reports whether this record contributes to parent aggregate counters.
// Only approved, non-deleted reports count.
func (r *WageReport) Counted() bool {
	if r == nil {
		return false
	}
	return r.Status == StatusApproved && !r.DeletedAt.Valid
}
