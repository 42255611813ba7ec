package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/openwagemap/openwagemap/internal/cache"
	"github.com/openwagemap/openwagemap/internal/wages"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCacheTTL = 15 * time.Minute

var (
	errMissingDatabase    = errors.New("stats: database connection required")
	errMissingInvalidator = errors.New("stats: cache invalidator is required")
	errMissingObjectStore = errors.New("stats: object store is required")
)

// Summary aggregates the approved normalized wages of one parent entity. All
// values are hourly cents.
type Summary struct {
	Count       int64 `json:"count"`
	MinCents    int64 `json:"min_cents"`
	MaxCents    int64 `json:"max_cents"`
	MedianCents int64 `json:"median_cents"`
	P25Cents    int64 `json:"p25_cents"`
	P75Cents    int64 `json:"p75_cents"`
}

// ServiceConfig describes the dependencies for the statistics service.
type ServiceConfig struct {
	Database    *gorm.DB
	Invalidator *cache.Invalidator
	Objects     cache.ObjectStore
	CacheTTL    time.Duration
	Logger      *zap.Logger
}

// Service computes wage summaries for locations and organizations. Results are
// cached under keys prefixed with the current wages version counter, so every
// wage write invalidates them implicitly.
type Service struct {
	db          *gorm.DB
	invalidator *cache.Invalidator
	objects     cache.ObjectStore
	ttl         time.Duration
	logger      *zap.Logger
}

// NewService constructs the statistics service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Invalidator == nil {
		return nil, errMissingInvalidator
	}
	if cfg.Objects == nil {
		return nil, errMissingObjectStore
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:          cfg.Database,
		invalidator: cfg.Invalidator,
		objects:     cfg.Objects,
		ttl:         ttl,
		logger:      logger,
	}, nil
}

// LocationSummary returns the wage summary for one location.
func (s *Service) LocationSummary(ctx context.Context, locationID string) (Summary, error) {
	return s.summary(ctx, "location", "location_id", locationID)
}

// OrganizationSummary returns the wage summary across all of an organization's
// locations.
func (s *Service) OrganizationSummary(ctx context.Context, organizationID string) (Summary, error) {
	return s.summary(ctx, "organization", "organization_id", organizationID)
}

func (s *Service) summary(ctx context.Context, scope, column, id string) (Summary, error) {
	key, err := s.cacheKey(ctx, scope, id)
	if err == nil {
		var cached Summary
		hit, getErr := s.objects.Get(ctx, key, &cached)
		if getErr != nil {
			s.logger.Warn("stats cache read failed", zap.String("key", key), zap.Error(getErr))
		} else if hit {
			return cached, nil
		}
	}

	var population []int64
	queryErr := s.db.WithContext(ctx).
		Model(&wages.WageReport{}).
		Where(fmt.Sprintf("%s = ? AND status = ?", column), id, wages.StatusApproved).
		Pluck("normalized_hourly_cents", &population).Error
	if queryErr != nil {
		return Summary{}, queryErr
	}

	summary := Summarize(population)
	if err == nil {
		if setErr := s.objects.Set(ctx, key, summary, s.ttl); setErr != nil {
			s.logger.Warn("stats cache write failed", zap.String("key", key), zap.Error(setErr))
		}
	}
	return summary, nil
}

func (s *Service) cacheKey(ctx context.Context, scope, id string) (string, error) {
	version, err := s.invalidator.Version(ctx, cache.KeyWagesVersion)
	if err != nil {
		s.logger.Warn("stats version read failed", zap.Error(err))
		return "", err
	}
	return fmt.Sprintf("wages:v%d:stats:%s:%s", version, scope, id), nil
}

// Summarize computes the summary for a wage population. Percentiles use the
// nearest-rank index on the sorted slice, matching the integer truncation used
// elsewhere in the pipeline.
func Summarize(population []int64) Summary {
	if len(population) == 0 {
		return Summary{}
	}
	sorted := make([]int64, len(population))
	copy(sorted, population)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	percentile := func(p int) int64 {
		return sorted[(p*(n-1))/100]
	}
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return Summary{
		Count:       int64(n),
		MinCents:    sorted[0],
		MaxCents:    sorted[n-1],
		MedianCents: median,
		P25Cents:    percentile(25),
		P75Cents:    percentile(75),
	}
}
