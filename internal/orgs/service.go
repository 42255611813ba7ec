package orgs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultSearchLimit = 25

var (
	// ErrNotFound indicates no organization matches the identifier.
	ErrNotFound = errors.New("orgs: organization not found")
	// ErrInvalidName indicates an empty organization name.
	ErrInvalidName = errors.New("orgs: organization name is required")

	errMissingDatabase = errors.New("orgs: database connection required")
)

// ServiceConfig describes the dependencies for the organization service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service exposes organization lookups and creation. The wage_reports_count
// column is intentionally never written here; the wage write path owns it.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the organization service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock}, nil
}

// Get returns the organization with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Organization, error) {
	var org Organization
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetBySlug returns the organization with the given slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	var org Organization
	err := s.db.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).Take(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: slug %s", ErrNotFound, slug)
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Search lists organizations whose name contains the query, most reported
// first. An empty query lists the most reported organizations overall.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Organization, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultSearchLimit
	}
	tx := s.db.WithContext(ctx).Model(&Organization{})
	trimmed := strings.TrimSpace(query)
	if trimmed != "" {
		tx = tx.Where("name LIKE ?", "%"+trimmed+"%")
	}
	var results []Organization
	if err := tx.Order("wage_reports_count DESC, name ASC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Create persists a new organization, deriving a slug from the name when none
// is supplied.
func (s *Service) Create(ctx context.Context, name, slug, domain string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if strings.TrimSpace(slug) == "" {
		slug = Slugify(name)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	org := Organization{
		ID:     id.String(),
		Name:   name,
		Slug:   slug,
		Domain: strings.TrimSpace(domain),
	}
	if err := s.db.WithContext(ctx).Create(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// Slugify lowercases the name and collapses runs of non-alphanumerics to
// single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
