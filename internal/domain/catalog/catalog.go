package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is read-only reference data cached from the server so the
// register keeps selling while disconnected.
type Product struct {
	ID         uuid.UUID
	Name       string
	SKU        string
	Barcode    string
	CategoryID uuid.UUID
	Price      decimal.Decimal
	TaxRate    decimal.Decimal
	Active     bool
	UpdatedAt  time.Time
}

// Category groups products for the register's browse screens
type Category struct {
	ID       uuid.UUID
	Name     string
	ParentID *uuid.UUID
	Position int
}

// Repository is the terminal-side catalog cache. Product refresh merges:
// entries absent from the incoming set are preserved. Category refresh
// replaces the full set when one is supplied.
type Repository interface {
	UpsertProducts(ctx context.Context, products []Product) error
	FindProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	ReplaceCategories(ctx context.Context, categories []Category) error
	ListCategories(ctx context.Context) ([]Category, error)
}
