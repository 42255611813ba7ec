package locations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultNearbyLimit  = 25
	defaultNearbyRadius = 10.0
	maxNearbyRadius     = 100.0
)

var (
	// ErrNotFound indicates no location matches the identifier.
	ErrNotFound = errors.New("locations: location not found")
	// ErrInvalidCoordinates indicates latitude or longitude outside valid ranges.
	ErrInvalidCoordinates = errors.New("locations: invalid coordinates")

	errMissingDatabase = errors.New("locations: database connection required")
)

// ServiceConfig describes the dependencies for the location service.
type ServiceConfig struct {
	Database *gorm.DB
}

// Service exposes location lookups and proximity search.
type Service struct {
	db *gorm.DB
}

// NewService constructs the location service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	return &Service{db: cfg.Database}, nil
}

// Get returns the location with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Location, error) {
	var location Location
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&location).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &location, nil
}

// ListByOrganization returns all active locations for an organization, most
// reported first.
func (s *Service) ListByOrganization(ctx context.Context, organizationID string) ([]Location, error) {
	var results []Location
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", organizationID, true).
		Order("wage_reports_count DESC, name ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Create persists a new location under an organization.
func (s *Service) Create(ctx context.Context, location Location) (*Location, error) {
	if strings.TrimSpace(location.OrganizationID) == "" {
		return nil, errors.New("locations: organization id is required")
	}
	if err := validateCoordinates(location.Latitude, location.Longitude); err != nil {
		return nil, err
	}
	if location.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		location.ID = id.String()
	}
	if err := s.db.WithContext(ctx).Create(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

// NearbyResult pairs a location with its distance from the query point.
type NearbyResult struct {
	Location   Location
	DistanceKM float64
}

// Nearby returns active locations within radiusKM of the coordinates, nearest
// first. The database narrows candidates with a bounding-box filter on the
// indexed latitude/longitude columns; exact great-circle distances are
// computed in process.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]NearbyResult, error) {
	if err := validateCoordinates(lat, lng); err != nil {
		return nil, err
	}
	if radiusKM <= 0 {
		radiusKM = defaultNearbyRadius
	}
	if radiusKM > maxNearbyRadius {
		radiusKM = maxNearbyRadius
	}
	if limit <= 0 || limit > 100 {
		limit = defaultNearbyLimit
	}

	minLat, maxLat, minLng, maxLng := boundingBox(lat, lng, radiusKM)
	var candidates []Location
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLng, maxLng).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	results := make([]NearbyResult, 0, len(candidates))
	for _, candidate := range candidates {
		distance := haversineKM(lat, lng, candidate.Latitude, candidate.Longitude)
		if distance <= radiusKM {
			results = append(results, NearbyResult{Location: candidate, DistanceKM: distance})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKM != results[j].DistanceKM {
			return results[i].DistanceKM < results[j].DistanceKM
		}
		return results[i].Location.ID < results[j].Location.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: (%f, %f)", ErrInvalidCoordinates, lat, lng)
	}
	return nil
}
