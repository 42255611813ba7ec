package orgs

// Organization models an employer aggregate. WageReportsCount is denormalized:
// it is written only by the wage write path and always equals the number of
// approved, non-deleted reports attached to the organization.
type Organization struct {
	ID               string `gorm:"column:id;primaryKey;size:36;not null"`
	Name             string `gorm:"column:name;size:190;not null;index"`
	Slug             string `gorm:"column:slug;size:190;not null;uniqueIndex"`
	Domain           string `gorm:"column:domain;size:190"`
	IndustryID       *string `gorm:"column:industry_id;size:36;index"`
	IsVerified       bool   `gorm:"column:is_verified;not null;default:false"`
	WageReportsCount int64  `gorm:"column:wage_reports_count;not null;default:0"`
	CreatedAt        int64  `gorm:"column:created_at_s;not null;autoCreateTime"`
	UpdatedAt        int64  `gorm:"column:updated_at_s;not null;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Organization) TableName() string {
	return "organizations"
}
