package wages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openwagemap/openwagemap/internal/cache"
	"github.com/openwagemap/openwagemap/internal/locations"
	"github.com/openwagemap/openwagemap/internal/orgs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultMinLocationSample is the smallest location population the scorer will
// use before falling back to the organization-wide population.
const DefaultMinLocationSample = 5

var (
	errMissingDatabase    = errors.New("database handle is required")
	errMissingIDProvider  = errors.New("id provider is required")
	errMissingInvalidator = errors.New("cache invalidator is required")
	// ErrReportNotFound indicates no wage report matches the identifier.
	ErrReportNotFound = errors.New("wages: report not found")
	// ErrReportNotDeleted indicates a restore was attempted on a live report.
	ErrReportNotDeleted = errors.New("wages: report is not deleted")

	noOpLogger = zap.NewNop()
)

// ServiceError carries a dotted operation code alongside the underlying cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code for the failure.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew    = "wages.service.new"
	opCreate        = "wages.create"
	opUpdateAmounts = "wages.update_amounts"
	opUpdateStatus  = "wages.update_status"
	opDelete        = "wages.delete"
	opForceDelete   = "wages.force_delete"
	opRestore       = "wages.restore"
	opGet           = "wages.get"
	opList          = "wages.list"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for new wage reports.
type IDProvider interface {
	NewID() (string, error)
}

// Rewarder receives the reward signal for an approved submission by a known
// user. Implementations run inside the caller's transaction.
type Rewarder interface {
	RecordApprovedSubmission(ctx context.Context, tx *gorm.DB, userID string) error
}

type noOpRewarder struct{}

func (noOpRewarder) RecordApprovedSubmission(context.Context, *gorm.DB, string) error {
	return nil
}

// ServiceConfig describes the dependencies of the wage report service.
type ServiceConfig struct {
	Database    *gorm.DB
	Invalidator *cache.Invalidator
	Rewarder    Rewarder
	IDProvider  IDProvider
	Clock       func() time.Time
	Logger      *zap.Logger

	// MinLocationSample is the location population size below which scoring
	// falls back to the organization population. Zero selects the default.
	MinLocationSample int
	// ApproveThreshold is the robust z cutoff in hundredths. Zero selects the
	// default.
	ApproveThreshold int
}

// Service owns the wage report write path: normalization, outlier scoring,
// denormalized counter maintenance, and cache version bumps, sequenced
// explicitly per operation inside a single transaction.
type Service struct {
	db                *gorm.DB
	invalidator       *cache.Invalidator
	rewarder          Rewarder
	idProvider        IDProvider
	clock             func() time.Time
	logger            *zap.Logger
	minLocationSample int
	approveThreshold  int
}

// NewService constructs the wage report service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Invalidator == nil {
		return nil, newServiceError(opServiceNew, "missing_invalidator", errMissingInvalidator)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	rewarder := cfg.Rewarder
	if rewarder == nil {
		rewarder = noOpRewarder{}
	}
	minSample := cfg.MinLocationSample
	if minSample <= 0 {
		minSample = DefaultMinLocationSample
	}
	threshold := cfg.ApproveThreshold
	if threshold <= 0 {
		threshold = DefaultApproveThreshold
	}

	return &Service{
		db:                cfg.Database,
		invalidator:       cfg.Invalidator,
		rewarder:          rewarder,
		idProvider:        cfg.IDProvider,
		clock:             clock,
		logger:            logger,
		minLocationSample: minSample,
		approveThreshold:  threshold,
	}, nil
}

// CreateRequest carries the validated inputs for a new wage report. Status is
// absent on purpose: the pipeline always computes it.
type CreateRequest struct {
	UserID             *string
	OrganizationID     *string
	LocationID         string
	JobTitle           string
	PositionCategoryID *string
	AmountCents        int64
	Currency           string
	Period             Period
	HoursPerWeek       int
	ShiftHours         int
}

// Create runs the full submission pipeline: derive the organization from the
// location when absent, normalize, score against the reference population,
// persist, adjust parent counters, signal rewards, and bump cache versions.
// A normalization failure aborts everything; no counter or cache state moves.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*WageReport, error) {
	locationID := strings.TrimSpace(req.LocationID)
	if locationID == "" || len(locationID) > maxIdentifierLength {
		return nil, newServiceError(opCreate, "invalid_location", ErrInvalidLocationID)
	}

	var report *WageReport
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var location locations.Location
		err := tx.Where("id = ?", locationID).Take(&location).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opCreate, "location_not_found", locations.ErrNotFound)
		}
		if err != nil {
			s.logError(opCreate, "location_select_failed", err, zap.String("location_id", locationID))
			return newServiceError(opCreate, "location_select_failed", err)
		}

		organizationID := req.OrganizationID
		if organizationID == nil && location.OrganizationID != "" {
			derived := location.OrganizationID
			organizationID = &derived
		}

		hoursPerWeek := req.HoursPerWeek
		if hoursPerWeek <= 0 {
			hoursPerWeek = DefaultHoursPerWeek
		}
		shiftHours := req.ShiftHours
		if shiftHours <= 0 {
			shiftHours = DefaultShiftHours
		}

		normalized, err := Normalize(req.AmountCents, req.Period, hoursPerWeek, shiftHours)
		if err != nil {
			return newServiceError(opCreate, "normalization_failed", err)
		}

		population, err := s.referencePopulation(tx, locationID, organizationID)
		if err != nil {
			s.logError(opCreate, "population_query_failed", err, zap.String("location_id", locationID))
			return newServiceError(opCreate, "population_query_failed", err)
		}
		scored := Score(normalized, population, s.approveThreshold)

		id, err := s.idProvider.NewID()
		if err != nil {
			s.logError(opCreate, "id_generation_failed", err)
			return newServiceError(opCreate, "id_generation_failed", err)
		}

		currency := strings.ToUpper(strings.TrimSpace(req.Currency))
		if currency == "" {
			currency = "USD"
		}

		created := WageReport{
			ID:                    id,
			UserID:                req.UserID,
			OrganizationID:        organizationID,
			LocationID:            locationID,
			JobTitle:              strings.TrimSpace(req.JobTitle),
			PositionCategoryID:    req.PositionCategoryID,
			AmountCents:           req.AmountCents,
			Currency:              currency,
			Period:                req.Period,
			HoursPerWeek:          hoursPerWeek,
			ShiftHours:            shiftHours,
			NormalizedHourlyCents: normalized,
			SanityScore:           scored.SanityScore,
			Status:                scored.Status,
		}
		if err := tx.Create(&created).Error; err != nil {
			s.logError(opCreate, "report_insert_failed", err, zap.String("report_id", id))
			return newServiceError(opCreate, "report_insert_failed", err)
		}

		if err := s.applyEffects(tx, transition(nil, &created)); err != nil {
			s.logError(opCreate, "counter_update_failed", err, zap.String("report_id", id))
			return newServiceError(opCreate, "counter_update_failed", err)
		}

		if created.UserID != nil && created.Status == StatusApproved {
			if err := s.rewarder.RecordApprovedSubmission(ctx, tx, *created.UserID); err != nil {
				s.logError(opCreate, "reward_failed", err, zap.String("user_id", *created.UserID))
				return newServiceError(opCreate, "reward_failed", err)
			}
		}

		report = &created
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.bumpVersions(ctx, opCreate)
	return report, nil
}

// AmountUpdate carries the mutable pay fields of an existing report. Nil
// fields are left untouched.
type AmountUpdate struct {
	AmountCents  *int64
	Period       *Period
	HoursPerWeek *int
}

// UpdateAmounts re-normalizes a report whose pay inputs changed. Status and
// counters are untouched; the stored normalized rate never goes stale.
func (s *Service) UpdateAmounts(ctx context.Context, reportID string, update AmountUpdate) (*WageReport, error) {
	var report *WageReport
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.loadReport(tx, opUpdateAmounts, reportID, false)
		if err != nil {
			return err
		}

		changed := false
		if update.AmountCents != nil && *update.AmountCents != existing.AmountCents {
			existing.AmountCents = *update.AmountCents
			changed = true
		}
		if update.Period != nil && *update.Period != existing.Period {
			existing.Period = *update.Period
			changed = true
		}
		if update.HoursPerWeek != nil && *update.HoursPerWeek != existing.HoursPerWeek {
			existing.HoursPerWeek = *update.HoursPerWeek
			changed = true
		}

		if changed {
			normalized, err := Normalize(existing.AmountCents, existing.Period, existing.HoursPerWeek, existing.ShiftHours)
			if err != nil {
				return newServiceError(opUpdateAmounts, "normalization_failed", err)
			}
			existing.NormalizedHourlyCents = normalized

			if err := tx.Model(&WageReport{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
				"amount_cents":            existing.AmountCents,
				"wage_period":             existing.Period,
				"hours_per_week":          existing.HoursPerWeek,
				"normalized_hourly_cents": existing.NormalizedHourlyCents,
			}).Error; err != nil {
				s.logError(opUpdateAmounts, "report_update_failed", err, zap.String("report_id", existing.ID))
				return newServiceError(opUpdateAmounts, "report_update_failed", err)
			}
		}

		report = existing
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// The version bump happens for every update operation, changed fields or not.
	s.bumpVersions(ctx, opUpdateAmounts)
	return report, nil
}

// UpdateStatus applies a moderation decision. Counter deltas follow the
// counted-status transition; an unchanged status moves no counters but still
// counts as a write for cache versioning.
func (s *Service) UpdateStatus(ctx context.Context, reportID string, next Status) (*WageReport, error) {
	if _, err := NewStatus(string(next)); err != nil {
		return nil, newServiceError(opUpdateStatus, "invalid_status", err)
	}

	var report *WageReport
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.loadReport(tx, opUpdateStatus, reportID, false)
		if err != nil {
			return err
		}

		before := *existing
		existing.Status = next
		if err := tx.Model(&WageReport{}).Where("id = ?", existing.ID).Update("status", next).Error; err != nil {
			s.logError(opUpdateStatus, "report_update_failed", err, zap.String("report_id", existing.ID))
			return newServiceError(opUpdateStatus, "report_update_failed", err)
		}

		if err := s.applyEffects(tx, transition(&before, existing)); err != nil {
			s.logError(opUpdateStatus, "counter_update_failed", err, zap.String("report_id", existing.ID))
			return newServiceError(opUpdateStatus, "counter_update_failed", err)
		}

		report = existing
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.bumpVersions(ctx, opUpdateStatus)
	return report, nil
}

// Delete soft-deletes a report, releasing its counter contribution if it was
// counted.
func (s *Service) Delete(ctx context.Context, reportID string) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.loadReport(tx, opDelete, reportID, false)
		if err != nil {
			return err
		}

		if err := tx.Delete(&WageReport{}, "id = ?", existing.ID).Error; err != nil {
			s.logError(opDelete, "report_delete_failed", err, zap.String("report_id", existing.ID))
			return newServiceError(opDelete, "report_delete_failed", err)
		}

		if err := s.applyEffects(tx, transition(existing, nil)); err != nil {
			s.logError(opDelete, "counter_update_failed", err, zap.String("report_id", existing.ID))
			return newServiceError(opDelete, "counter_update_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	s.bumpVersions(ctx, opDelete)
	return nil
}

// ForceDelete permanently removes a report. A live counted report releases its
// counter contribution; a report that was already soft-deleted contributed
// nothing.
func (s *Service) ForceDelete(ctx context.Context, reportID string) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.loadReport(tx, opForceDelete, reportID, true)
		if err != nil {
			return err
		}

		if err := tx.Unscoped().Delete(&WageReport{}, "id = ?", existing.ID).Error; err != nil {
			s.logError(opForceDelete, "report_delete_failed", err, zap.String("report_id", existing.ID))
			return newServiceError(opForceDelete, "report_delete_failed", err)
		}

		if err := s.applyEffects(tx, transition(existing, nil)); err != nil {
			s.logError(opForceDelete, "counter_update_failed", err, zap.String("report_id", existing.ID))
			return newServiceError(opForceDelete, "counter_update_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	s.bumpVersions(ctx, opForceDelete)
	return nil
}

// Restore brings a soft-deleted report back, reinstating its counter
// contribution if its status is approved.
func (s *Service) Restore(ctx context.Context, reportID string) (*WageReport, error) {
	var report *WageReport
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.loadReport(tx, opRestore, reportID, true)
		if err != nil {
			return err
		}
		if !existing.DeletedAt.Valid {
			return newServiceError(opRestore, "not_deleted", ErrReportNotDeleted)
		}

		before := *existing
		if err := tx.Unscoped().Model(&WageReport{}).Where("id = ?", existing.ID).Update("deleted_at", nil).Error; err != nil {
			s.logError(opRestore, "report_restore_failed", err, zap.String("report_id", existing.ID))
			return newServiceError(opRestore, "report_restore_failed", err)
		}
		existing.DeletedAt = gorm.DeletedAt{}

		if err := s.applyEffects(tx, transition(&before, existing)); err != nil {
			s.logError(opRestore, "counter_update_failed", err, zap.String("report_id", existing.ID))
			return newServiceError(opRestore, "counter_update_failed", err)
		}

		report = existing
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.bumpVersions(ctx, opRestore)
	return report, nil
}

// Get returns the report with the given id, excluding soft-deleted records.
func (s *Service) Get(ctx context.Context, reportID string) (*WageReport, error) {
	var report WageReport
	err := s.db.WithContext(ctx).Where("id = ?", reportID).Take(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newServiceError(opGet, "not_found", ErrReportNotFound)
	}
	if err != nil {
		return nil, newServiceError(opGet, "query_failed", err)
	}
	return &report, nil
}

// ListByLocation returns the newest reports for a location.
func (s *Service) ListByLocation(ctx context.Context, locationID string, limit int) ([]WageReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	var reports []WageReport
	err := s.db.WithContext(ctx).
		Where("location_id = ?", locationID).
		Order("created_at_s DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, newServiceError(opList, "query_failed", err)
	}
	return reports, nil
}

// referencePopulation gathers approved normalized wages for scoring. The
// location population is preferred; when it is smaller than the configured
// minimum the organization-wide population takes over. Both empty means cold
// start and the caller receives an empty slice.
func (s *Service) referencePopulation(tx *gorm.DB, locationID string, organizationID *string) ([]int64, error) {
	var locationWages []int64
	err := tx.Model(&WageReport{}).
		Where("location_id = ? AND status = ?", locationID, StatusApproved).
		Pluck("normalized_hourly_cents", &locationWages).Error
	if err != nil {
		return nil, err
	}
	if len(locationWages) >= s.minLocationSample {
		return locationWages, nil
	}

	if organizationID != nil {
		var orgWages []int64
		err := tx.Model(&WageReport{}).
			Where("organization_id = ? AND status = ?", *organizationID, StatusApproved).
			Pluck("normalized_hourly_cents", &orgWages).Error
		if err != nil {
			return nil, err
		}
		if len(orgWages) > 0 {
			return orgWages, nil
		}
	}

	return locationWages, nil
}

// applyEffects adjusts the parent counters with single set-based UPDATEs. The
// CASE expression clamps at zero inside the database, so concurrent writers
// cannot race the counter negative and a stray double-decrement degrades to a
// no-op instead of corrupting the column.
func (s *Service) applyEffects(tx *gorm.DB, effects CounterEffects) error {
	if effects.Empty() {
		return nil
	}
	clamped := gorm.Expr(
		"CASE WHEN wage_reports_count + ? < 0 THEN 0 ELSE wage_reports_count + ? END",
		effects.Delta, effects.Delta,
	)
	if effects.OrganizationID != nil {
		err := tx.Model(&orgs.Organization{}).
			Where("id = ?", *effects.OrganizationID).
			UpdateColumn("wage_reports_count", clamped).Error
		if err != nil {
			return err
		}
	}
	if effects.LocationID != "" {
		err := tx.Model(&locations.Location{}).
			Where("id = ?", effects.LocationID).
			UpdateColumn("wage_reports_count", clamped).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// loadReport loads a report inside the caller's transaction. includeDeleted
// widens the lookup past the soft-delete filter.
func (s *Service) loadReport(tx *gorm.DB, operation, reportID string, includeDeleted bool) (*WageReport, error) {
	query := tx
	if includeDeleted {
		query = query.Unscoped()
	}
	var report WageReport
	err := query.Where("id = ?", strings.TrimSpace(reportID)).Take(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newServiceError(operation, "not_found", ErrReportNotFound)
	}
	if err != nil {
		s.logError(operation, "report_select_failed", err, zap.String("report_id", reportID))
		return nil, newServiceError(operation, "report_select_failed", err)
	}
	return &report, nil
}

// bumpVersions advances the cache version counters after a committed write.
// Failures are logged, not surfaced: the write itself already succeeded and
// stale cache entries expire on their own TTLs.
func (s *Service) bumpVersions(ctx context.Context, operation string) {
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logError(operation, "cache_bump_failed", err)
	}
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("wage service error", attrs...)
}
