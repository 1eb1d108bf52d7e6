package inventory

import (
	"context"
	"fmt"
	"strings"

	"sari-go/internal/model"
)

// CategoryNode is a root category with its direct subcategories.
type CategoryNode struct {
	Category *model.Category
	Children []*model.Category
}

// AddCategory creates a root-level category.
func (s *Service) AddCategory(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "Category name is required.")
	}

	c, err := s.database.CreateCategory(ctx, name, model.Root())
	if err != nil {
		return nil, fmt.Errorf("creating category %q: %w", name, err)
	}

	s.logger.Info("category created", "id", c.ID, "name", c.Name)
	return c, nil
}

// AddSubcategory creates a category under parentID. Only one level of
// nesting is allowed, so the parent must itself be a root category.
func (s *Service) AddSubcategory(ctx context.Context, name string, parentID int64) (*model.Category, error) {
	if parentID == 0 {
		return nil, NewValidationError("parent_id", "Please select a parent category.")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "Subcategory name is required.")
	}

	parent, err := s.database.FindCategory(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("finding parent category %d: %w", parentID, err)
	}
	if !parent.Parent.IsRoot() {
		return nil, NewValidationError("parent_id", "Subcategories cannot have subcategories of their own.")
	}

	c, err := s.database.CreateCategory(ctx, name, model.ChildOf(parent.ID))
	if err != nil {
		return nil, fmt.Errorf("creating subcategory %q: %w", name, err)
	}

	s.logger.Info("subcategory created", "id", c.ID, "name", c.Name, "parent_id", parent.ID)
	return c, nil
}

// RenameCategory renames a category, keeping it under the same parent.
func (s *Service) RenameCategory(ctx context.Context, id int64, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "Category name is required.")
	}

	c, err := s.database.RenameCategory(ctx, id, name)
	if err != nil {
		return nil, fmt.Errorf("renaming category %d: %w", id, err)
	}

	s.logger.Info("category renamed", "id", c.ID, "name", c.Name)
	return c, nil
}

// DeleteCategory removes a category, its subcategories and their products,
// then deletes the images of every removed product.
// Returns the number of products removed. The error is non-nil only when
// nothing was deleted; image cleanup failures are logged.
func (s *Service) DeleteCategory(ctx context.Context, id int64) (int, error) {
	removed, err := s.database.DeleteCategory(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("deleting category %d: %w", id, err)
	}

	for _, p := range removed {
		if err := s.removeImage(ctx, p.Image); err != nil {
			s.logger.Error("removing product image failed", "product_id", p.ID, "image", p.Image, "error", err)
		}
	}

	s.logger.Info("category deleted", "id", id, "products_removed", len(removed))
	return len(removed), nil
}

// GetCategory returns a single category.
func (s *Service) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	return s.database.FindCategory(ctx, id)
}

// ListCategories returns every category, roots and subcategories alike.
func (s *Service) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return s.database.ListCategories(ctx)
}

// CategoryTree groups categories under their root category, preserving
// store order. Subcategories whose parent is not a root are dropped.
func (s *Service) CategoryTree(ctx context.Context) ([]*CategoryNode, error) {
	cats, err := s.database.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return BuildTree(cats), nil
}

// BuildTree arranges a flat category list into root nodes with children.
func BuildTree(cats []*model.Category) []*CategoryNode {
	byID := make(map[int64]*CategoryNode)
	var roots []*CategoryNode
	for _, c := range cats {
		if c.Parent.IsRoot() {
			node := &CategoryNode{Category: c}
			byID[c.ID] = node
			roots = append(roots, node)
		}
	}

	for _, c := range cats {
		parentID, ok := c.Parent.ID()
		if !ok {
			continue
		}
		if node, exists := byID[parentID]; exists {
			node.Children = append(node.Children, c)
		}
	}
	return roots
}
