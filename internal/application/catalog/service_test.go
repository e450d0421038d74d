package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/infrastructure/localstore"
)

type fakeFetcher struct {
	products      []catalog.Product
	categories    []catalog.Category
	productErr    error
	categoriesErr error
}

func (f *fakeFetcher) FetchProducts(context.Context) ([]catalog.Product, error) {
	return f.products, f.productErr
}

func (f *fakeFetcher) FetchCategories(context.Context) ([]catalog.Category, error) {
	return f.categories, f.categoriesErr
}

func newService(t *testing.T, fetcher *fakeFetcher) *Service {
	t.Helper()
	store, err := localstore.OpenInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(localstore.NewGormCatalogRepository(store.DB), fetcher, nil)
}

func product(name string, price int64) catalog.Product {
	return catalog.Product{
		ID:        uuid.New(),
		Name:      name,
		SKU:       "SKU-" + name,
		Price:     decimal.NewFromInt(price),
		Active:    true,
		UpdatedAt: time.Now(),
	}
}

func TestRefresh_MergesProducts(t *testing.T) {
	fetcher := &fakeFetcher{products: []catalog.Product{product("Milo", 2200), product("Peak Milk", 1800)}}
	svc := newService(t, fetcher)
	ctx := context.Background()

	result, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ProductsReceived)

	// A later refresh omitting one product updates the other and keeps both.
	updated := fetcher.products[0]
	updated.Price = decimal.NewFromInt(2500)
	fetcher.products = []catalog.Product{updated}

	_, err = svc.Refresh(ctx)
	require.NoError(t, err)

	cached, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	repriced, err := svc.FindProduct(ctx, updated.ID)
	require.NoError(t, err)
	assert.True(t, repriced.Price.Equal(decimal.NewFromInt(2500)))
}

func TestRefresh_ReplacesCategories(t *testing.T) {
	fetcher := &fakeFetcher{categories: []catalog.Category{
		{ID: uuid.New(), Name: "Beverages", Position: 1},
		{ID: uuid.New(), Name: "Dairy", Position: 2},
	}}
	svc := newService(t, fetcher)
	ctx := context.Background()

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	fetcher.categories = []catalog.Category{{ID: uuid.New(), Name: "Groceries", Position: 1}}
	_, err = svc.Refresh(ctx)
	require.NoError(t, err)

	cached, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "Groceries", cached[0].Name)
}

func TestRefresh_EmptyCategoryAnswerKeepsCache(t *testing.T) {
	fetcher := &fakeFetcher{categories: []catalog.Category{{ID: uuid.New(), Name: "Beverages", Position: 1}}}
	svc := newService(t, fetcher)
	ctx := context.Background()

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	fetcher.categories = nil
	_, err = svc.Refresh(ctx)
	require.NoError(t, err)

	cached, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestRefresh_ProductFetchFailureChangesNothing(t *testing.T) {
	fetcher := &fakeFetcher{products: []catalog.Product{product("Gala", 500)}}
	svc := newService(t, fetcher)
	ctx := context.Background()

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	fetcher.productErr = errors.New("connection refused")
	_, err = svc.Refresh(ctx)
	require.Error(t, err)

	cached, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1, "failed refresh leaves the cache as it was")
}

func TestRefresh_CategoryFetchFailureKeepsProducts(t *testing.T) {
	fetcher := &fakeFetcher{
		products:      []catalog.Product{product("Indomie", 350)},
		categoriesErr: errors.New("timeout"),
	}
	svc := newService(t, fetcher)

	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProductsReceived)
	assert.Zero(t, result.CategoriesReceived)
}
