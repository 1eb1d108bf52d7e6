package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sari-go/internal/model"
)

// ProductInput is the validated content of a product form.
// When both are set, CategoryID (the subcategory select) wins over
// MainCategoryID.
type ProductInput struct {
	Name           string
	CategoryID     int64
	MainCategoryID int64
	Quantity       int
	Price          decimal.Decimal
}

// categoryID resolves which of the two category fields applies.
func (in ProductInput) categoryID() int64 {
	if in.CategoryID != 0 {
		return in.CategoryID
	}
	return in.MainCategoryID
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewValidationError("name", "Product name is required.")
	}
	if in.categoryID() == 0 {
		return NewValidationError("category", "Please select a category.")
	}
	if in.Quantity < 0 {
		return NewValidationError("qty", "Quantity cannot be negative.")
	}
	if in.Price.IsNegative() {
		return NewValidationError("price", "Price cannot be negative.")
	}
	return nil
}

// CreateProduct validates the input, stores the image (if any) and inserts
// the product. The image is removed again if the insert fails.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput, img *Upload) (*model.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	categoryID := in.categoryID()
	if _, err := s.database.FindCategory(ctx, categoryID); err != nil {
		return nil, fmt.Errorf("finding category %d: %w", categoryID, err)
	}

	image, err := s.storeImage(ctx, img)
	if err != nil {
		return nil, err
	}

	p, err := s.database.CreateProduct(ctx, &model.Product{
		Name:       strings.TrimSpace(in.Name),
		CategoryID: categoryID,
		Quantity:   in.Quantity,
		Price:      in.Price,
		Image:      image,
	})
	if err != nil {
		s.discardImage(ctx, image)
		return nil, fmt.Errorf("creating product: %w", err)
	}

	s.logger.Info("product created", "id", p.ID, "name", p.Name, "category_id", p.CategoryID, "qty", p.Quantity)
	return p, nil
}

// UpdateProduct replaces every editable field of a product. The image is
// replaced only when img carries a file; the previous image is then deleted.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput, img *Upload) (*model.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	existing, err := s.database.FindProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding product %d: %w", id, err)
	}

	categoryID := in.categoryID()
	if _, err := s.database.FindCategory(ctx, categoryID); err != nil {
		return nil, fmt.Errorf("finding category %d: %w", categoryID, err)
	}

	image, err := s.storeImage(ctx, img)
	if err != nil {
		return nil, err
	}

	p, err := s.database.UpdateProduct(ctx, &model.Product{
		ID:         id,
		Name:       strings.TrimSpace(in.Name),
		CategoryID: categoryID,
		Quantity:   in.Quantity,
		Price:      in.Price,
		Image:      image,
	})
	if err != nil {
		s.discardImage(ctx, image)
		return nil, fmt.Errorf("updating product %d: %w", id, err)
	}

	if image != "" && existing.Image != "" && existing.Image != image {
		if err := s.removeImage(ctx, existing.Image); err != nil {
			s.logger.Error("removing replaced image failed", "product_id", id, "image", existing.Image, "error", err)
		}
	}

	s.logger.Info("product updated", "id", p.ID, "name", p.Name, "qty", p.Quantity)
	return p, nil
}

// DeleteProduct removes a product and, if it has one, its image.
// Products without an image never touch the image store. A failure to
// remove the image is logged; the product stays deleted.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	p, err := s.database.DeleteProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}

	if p.HasImage() {
		if err := s.removeImage(ctx, p.Image); err != nil {
			s.logger.Error("removing product image failed", "product_id", p.ID, "image", p.Image, "error", err)
		}
	}

	s.logger.Info("product deleted", "id", p.ID, "name", p.Name)
	return nil
}

// Purchase takes qty units out of stock. It fails without changing anything
// when qty is not positive or exceeds the quantity on hand.
//
// The check and the decrement are one conditional UPDATE, so concurrent
// buyers cannot push the quantity below zero.
func (s *Service) Purchase(ctx context.Context, id int64, qty int) (*model.Product, error) {
	if qty <= 0 {
		return nil, NewValidationError("qty", "Quantity must be at least 1.")
	}

	p, err := s.database.DecrementStock(ctx, id, qty)
	if err != nil {
		return nil, fmt.Errorf("purchasing %d of product %d: %w", qty, id, err)
	}

	s.logger.Info("purchase", "product_id", p.ID, "qty", qty, "remaining", p.Quantity)
	return p, nil
}

// GetProduct returns a single product.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.database.FindProduct(ctx, id)
}

// ListProducts returns every product with its category name.
func (s *Service) ListProducts(ctx context.Context) ([]*model.Product, error) {
	return s.database.ListProducts(ctx)
}
