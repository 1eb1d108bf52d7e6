package model

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// Parent is the position of a category in the tree: either the root level or
// directly under another category.
type Parent struct {
	id int64 // 0 means root
}

// Root returns the parent value for a top-level category.
func Root() Parent { return Parent{} }

// ChildOf returns the parent value for a category nested under parentID.
func ChildOf(parentID int64) Parent { return Parent{id: parentID} }

// ParentFromNull converts a nullable parent_id column into a Parent.
func ParentFromNull(n sql.NullInt64) Parent {
	if !n.Valid {
		return Root()
	}
	return ChildOf(n.Int64)
}

// IsRoot reports whether the category sits at the top level.
func (p Parent) IsRoot() bool { return p.id == 0 }

// ID returns the parent category ID and false for root categories.
func (p Parent) ID() (int64, bool) { return p.id, p.id != 0 }

// Null converts the parent into a value suitable for the parent_id column.
func (p Parent) Null() sql.NullInt64 {
	return sql.NullInt64{Int64: p.id, Valid: p.id != 0}
}

// Category groups products. Names are unique among siblings.
type Category struct {
	ID     int64
	Name   string
	Parent Parent
}

// Product is a stocked item belonging to exactly one category.
type Product struct {
	ID           int64
	Name         string
	CategoryID   int64
	CategoryName string // joined for display; empty when not loaded
	Quantity     int
	Price        decimal.Decimal
	Image        string // filename in the image store; empty when none
}

// HasImage reports whether the product references an uploaded image.
func (p *Product) HasImage() bool {
	return p.Image != ""
}

// Value is quantity × price.
func (p *Product) Value() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
}
