package taxonomy

// Industry is one node of the industry taxonomy, stored as an adjacency list.
// Root industries have a nil parent.
type Industry struct {
	ID        string  `gorm:"column:id;primaryKey;size:36;not null"`
	ParentID  *string `gorm:"column:parent_id;size:36;index"`
	Slug      string  `gorm:"column:slug;size:190;not null;uniqueIndex"`
	Name      string  `gorm:"column:name;size:190;not null"`
	SortOrder int     `gorm:"column:sort_order;not null;default:0"`
}

// TableName provides the explicit table binding for GORM.
func (Industry) TableName() string {
	return "industries"
}

// PositionCategory is a job-position grouping inside an industry.
type PositionCategory struct {
	ID         string `gorm:"column:id;primaryKey;size:36;not null"`
	IndustryID string `gorm:"column:industry_id;size:36;not null;index"`
	Slug       string `gorm:"column:slug;size:190;not null;uniqueIndex"`
	Name       string `gorm:"column:name;size:190;not null"`
}

// TableName provides the explicit table binding for GORM.
func (PositionCategory) TableName() string {
	return "position_categories"
}

// IndustryNode is an industry with its resolved children.
type IndustryNode struct {
	Industry Industry
	Children []*IndustryNode
}
