package users

// User is a registered submitter. Point totals are denormalized reward state
// adjusted atomically when submissions are approved.
type User struct {
	ID                  string `gorm:"column:id;primaryKey;size:190;not null"`
	Email               string `gorm:"column:email;size:320;uniqueIndex"`
	DisplayName         string `gorm:"column:display_name;size:320"`
	Points              int64  `gorm:"column:points;not null;default:0"`
	ApprovedSubmissions int64  `gorm:"column:approved_submissions;not null;default:0"`
	CreatedAt           int64  `gorm:"column:created_at_s;not null;autoCreateTime"`
	UpdatedAt           int64  `gorm:"column:updated_at_s;not null;autoUpdateTime"`
}

// TableName exposes the table backing submitter accounts.
func (User) TableName() string {
	return "users"
}
