package locations

// Location models a physical workplace belonging to an organization.
// WageReportsCount is denormalized and owned by the wage write path, exactly
// like the organization counter.
type Location struct {
	ID               string  `gorm:"column:id;primaryKey;size:36;not null"`
	OrganizationID   string  `gorm:"column:organization_id;size:36;not null;index"`
	Name             string  `gorm:"column:name;size:190;not null"`
	AddressLine      string  `gorm:"column:address_line;size:255"`
	City             string  `gorm:"column:city;size:120;index"`
	Region           string  `gorm:"column:region;size:120"`
	PostalCode       string  `gorm:"column:postal_code;size:20"`
	CountryCode      string  `gorm:"column:country_code;size:2;not null;default:US"`
	Latitude         float64 `gorm:"column:latitude;not null;index:idx_locations_lat"`
	Longitude        float64 `gorm:"column:longitude;not null;index:idx_locations_lng"`
	IsActive         bool    `gorm:"column:is_active;not null;default:true"`
	WageReportsCount int64   `gorm:"column:wage_reports_count;not null;default:0"`
	CreatedAt        int64   `gorm:"column:created_at_s;not null;autoCreateTime"`
	UpdatedAt        int64   `gorm:"column:updated_at_s;not null;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Location) TableName() string {
	return "locations"
}
