package inventory

import (
	"context"

	"sari-go/internal/model"
)

// Database provides an interface for catalog storage operations.
// Each write touches a single row except DeleteCategory, which runs in one
// transaction.
type Database interface {
	// Category operations

	// CreateCategory inserts a category. Returns ErrDuplicate if a sibling with
	// the same name exists and ErrNotFound if the parent does not exist.
	CreateCategory(ctx context.Context, name string, parent model.Parent) (*model.Category, error)

	// FindCategory returns the category with the given ID or ErrNotFound.
	FindCategory(ctx context.Context, id int64) (*model.Category, error)

	// RenameCategory changes a category's name. The duplicate check is scoped to
	// the category's own parent and ignores the category itself.
	RenameCategory(ctx context.Context, id int64, name string) (*model.Category, error)

	// DeleteCategory removes a category together with its subcategories and all
	// products attached to any of them. The removed products are returned.
	DeleteCategory(ctx context.Context, id int64) ([]*model.Product, error)

	// ListCategories returns every category ordered by ID.
	ListCategories(ctx context.Context) ([]*model.Category, error)

	// Product operations

	// CreateProduct inserts a product. Returns ErrNotFound if the category does
	// not exist.
	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)

	// FindProduct returns the product with the given ID or ErrNotFound.
	FindProduct(ctx context.Context, id int64) (*model.Product, error)

	// UpdateProduct replaces name, category, quantity and price. The image is
	// replaced only when p.Image is non-empty.
	UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error)

	// DecrementStock subtracts amount from the product's quantity when
	// 0 < amount <= quantity. Otherwise nothing changes and
	// ErrInsufficientStock is returned.
	DecrementStock(ctx context.Context, id int64, amount int) (*model.Product, error)

	// DeleteProduct removes the product row and returns it. The image store is
	// not touched.
	DeleteProduct(ctx context.Context, id int64) (*model.Product, error)

	// ListProducts returns every product ordered by ID, with CategoryName set.
	ListProducts(ctx context.Context) ([]*model.Product, error)

	// Maintenance

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(ctx context.Context, destPath string) error

	// CheckMigrations verifies the schema is at the latest version.
	CheckMigrations() error

	// Close closes the database connection.
	Close() error
}
