package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"sari-go/internal/model"
)

// LowStockThreshold is the quantity at or below which a product is low on stock.
const LowStockThreshold = 5

// Summary holds the totals shown on the dashboard and the stock report.
type Summary struct {
	TotalProducts int
	TotalStock    int
	TotalValue    decimal.Decimal
	LowStockItems int
}

// LowStockEntry is a product at or under LowStockThreshold.
type LowStockEntry struct {
	Product *model.Product
	Status  string // "Out of Stock" or "Low Stock"
}

// Dashboard is the data behind the home page.
type Dashboard struct {
	Summary
	Products []*model.Product
}

// StockReport is the data behind the stock reports page.
type StockReport struct {
	Summary
	Products []*model.Product
	LowStock []LowStockEntry
}

// Summarize computes the totals for a set of products.
func Summarize(products []*model.Product) Summary {
	sum := Summary{
		TotalProducts: len(products),
		TotalValue:    decimal.Zero,
	}
	for _, p := range products {
		sum.TotalStock += p.Quantity
		sum.TotalValue = sum.TotalValue.Add(p.Value())
		if p.Quantity <= LowStockThreshold {
			sum.LowStockItems++
		}
	}
	return sum
}

// LowStock lists the products at or below LowStockThreshold in input order.
func LowStock(products []*model.Product) []LowStockEntry {
	var entries []LowStockEntry
	for _, p := range products {
		if p.Quantity > LowStockThreshold {
			continue
		}
		status := "Low Stock"
		if p.Quantity == 0 {
			status = "Out of Stock"
		}
		entries = append(entries, LowStockEntry{Product: p, Status: status})
	}
	return entries
}

// Dashboard returns the home page totals along with every product.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	products, err := s.database.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return &Dashboard{Summary: Summarize(products), Products: products}, nil
}

// StockReport returns the totals, every product and the low-stock alerts.
func (s *Service) StockReport(ctx context.Context) (*StockReport, error) {
	products, err := s.database.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return &StockReport{
		Summary:  Summarize(products),
		Products: products,
		LowStock: LowStock(products),
	}, nil
}
