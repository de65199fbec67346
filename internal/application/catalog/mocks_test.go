package catalog

import (
	"context"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCatalogRepository is a mock implementation of catalog.CatalogRepository
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*catalog.Catalog, error) {
	args := m.Called(ctx, merchantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Catalog), args.Error(1)
}

func (m *MockCatalogRepository) FindAllForMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]catalog.Catalog, int64, error) {
	args := m.Called(ctx, merchantID, filter)
	return args.Get(0).([]catalog.Catalog), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalogRepository) FindSyncEnabled(ctx context.Context) ([]catalog.Catalog, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.Catalog), args.Error(1)
}

func (m *MockCatalogRepository) FindByProductIDs(ctx context.Context, merchantID uuid.UUID, productIDs []string) ([]catalog.Catalog, error) {
	args := m.Called(ctx, merchantID, productIDs)
	return args.Get(0).([]catalog.Catalog), args.Error(1)
}

func (m *MockCatalogRepository) Create(ctx context.Context, c *catalog.Catalog) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCatalogRepository) Update(ctx context.Context, c *catalog.Catalog) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCatalogRepository) SaveItem(ctx context.Context, item *catalog.CatalogProductItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockCatalogRepository) DeleteItem(ctx context.Context, catalogID uuid.UUID, productID string) error {
	args := m.Called(ctx, catalogID, productID)
	return args.Error(0)
}

func (m *MockCatalogRepository) DeleteForMerchant(ctx context.Context, merchantID, id uuid.UUID) error {
	args := m.Called(ctx, merchantID, id)
	return args.Error(0)
}

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, merchantID uuid.UUID, ids []string) ([]catalog.Product, error) {
	args := m.Called(ctx, merchantID, ids)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) SaveBatch(ctx context.Context, products []*catalog.Product) error {
	args := m.Called(ctx, products)
	return args.Error(0)
}
