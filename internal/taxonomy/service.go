package taxonomy

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("taxonomy: database connection required")

// ServiceConfig describes the dependencies for the taxonomy service.
type ServiceConfig struct {
	Database *gorm.DB
}

// Service exposes read access to the industry and position taxonomies.
type Service struct {
	db *gorm.DB
}

// NewService constructs the taxonomy service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	return &Service{db: cfg.Database}, nil
}

// Tree loads every industry and assembles the nested hierarchy.
func (s *Service) Tree(ctx context.Context) ([]*IndustryNode, error) {
	var industries []Industry
	if err := s.db.WithContext(ctx).Find(&industries).Error; err != nil {
		return nil, err
	}
	return BuildTree(industries), nil
}

// Positions lists the position categories for an industry, sorted by name.
func (s *Service) Positions(ctx context.Context, industryID string) ([]PositionCategory, error) {
	var positions []PositionCategory
	err := s.db.WithContext(ctx).
		Where("industry_id = ?", industryID).
		Order("name ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

// BuildTree assembles industries into their parent/child hierarchy in a single
// pass. Rows referencing a missing parent are treated as roots rather than
// dropped. Siblings order by sort_order, then name.
func BuildTree(industries []Industry) []*IndustryNode {
	nodes := make(map[string]*IndustryNode, len(industries))
	for _, industry := range industries {
		nodes[industry.ID] = &IndustryNode{Industry: industry}
	}

	var roots []*IndustryNode
	for _, industry := range industries {
		node := nodes[industry.ID]
		if industry.ParentID != nil {
			if parent, ok := nodes[*industry.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	var sortNodes func([]*IndustryNode)
	sortNodes = func(list []*IndustryNode) {
		sort.Slice(list, func(i, j int) bool {
			if list[i].Industry.SortOrder != list[j].Industry.SortOrder {
				return list[i].Industry.SortOrder < list[j].Industry.SortOrder
			}
			return list[i].Industry.Name < list[j].Industry.Name
		})
		for _, node := range list {
			sortNodes(node.Children)
		}
	}
	sortNodes(roots)
	return roots
}
