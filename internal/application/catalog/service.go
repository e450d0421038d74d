// Package catalog keeps the register's local product and category cache
// fresh. The cache is read-only reference data: a stale price is better
// than a register that cannot sell.
package catalog

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pos/backend/internal/domain/catalog"
)

// Fetcher retrieves master catalog data from the ledger. The ledger
// client implements it.
type Fetcher interface {
	FetchProducts(ctx context.Context) ([]catalog.Product, error)
	FetchCategories(ctx context.Context) ([]catalog.Category, error)
}

// RefreshResult summarizes one catalog refresh
type RefreshResult struct {
	ProductsReceived   int
	CategoriesReceived int
}

// Service is the terminal-side catalog application service
type Service struct {
	cache   catalog.Repository
	fetcher Fetcher
	logger  *zap.Logger
}

// NewService creates the catalog service
func NewService(cache catalog.Repository, fetcher Fetcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cache:   cache,
		fetcher: fetcher,
		logger:  logger.Named("catalog"),
	}
}

// Refresh pulls the master catalog and folds it into the local cache.
// Products merge, so an entry the server omits stays sellable. Categories
// replace wholesale, but an empty category answer is treated as no data
// rather than an instruction to clear the browse screens.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	products, err := s.fetcher.FetchProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.UpsertProducts(ctx, products); err != nil {
		return nil, err
	}

	result := &RefreshResult{ProductsReceived: len(products)}

	categories, err := s.fetcher.FetchCategories(ctx)
	if err != nil {
		// Products already landed; a failed category fetch does not undo that.
		s.logger.Warn("category refresh failed", zap.Error(err))
		return result, nil
	}
	if len(categories) > 0 {
		if err := s.cache.ReplaceCategories(ctx, categories); err != nil {
			return nil, err
		}
		result.CategoriesReceived = len(categories)
	}

	s.logger.Info("catalog refreshed",
		zap.Int("products", result.ProductsReceived),
		zap.Int("categories", result.CategoriesReceived),
	)
	return result, nil
}

// FindProduct returns one cached product
func (s *Service) FindProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return s.cache.FindProduct(ctx, id)
}

// ListProducts returns the cached product set
func (s *Service) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return s.cache.ListProducts(ctx)
}

// ListCategories returns the cached category set
func (s *Service) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return s.cache.ListCategories(ctx)
}
