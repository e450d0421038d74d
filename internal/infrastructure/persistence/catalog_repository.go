package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/shared"
)

// GormCatalogRepository implements catalog.Repository for the ledger's
// master catalog, the source terminals refresh their caches from.
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// UpsertProducts creates or updates products by id
func (r *GormCatalogRepository) UpsertProducts(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	models := make([]ProductModel, len(products))
	for i, p := range products {
		models[i].FromDomain(p)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&models).Error
}

// FindProduct finds a product by id
func (r *GormCatalogRepository) FindProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model ProductModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	p := model.ToDomain()
	return &p, nil
}

// ListProducts returns all products
func (r *GormCatalogRepository) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var models []ProductModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.Product, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

// ReplaceCategories swaps the full category set atomically
func (r *GormCatalogRepository) ReplaceCategories(ctx context.Context, categories []catalog.Category) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&CategoryModel{}).Error; err != nil {
			return err
		}
		if len(categories) == 0 {
			return nil
		}
		models := make([]CategoryModel, len(categories))
		for i, c := range categories {
			models[i].FromDomain(c)
		}
		return tx.Create(&models).Error
	})
}

// ListCategories returns all categories in display order
func (r *GormCatalogRepository) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var models []CategoryModel
	if err := r.db.WithContext(ctx).Order("position ASC, name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.Category, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}
