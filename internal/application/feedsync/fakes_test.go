package feedsync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
	return m.Called(ctx, c).Error(0)
}

func (m *MockCatalogRepository) Update(ctx context.Context, c *catalog.Catalog) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCatalogRepository) SaveItem(ctx context.Context, item *catalog.CatalogProductItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockCatalogRepository) DeleteItem(ctx context.Context, catalogID uuid.UUID, productID string) error {
	return m.Called(ctx, catalogID, productID).Error(0)
}

func (m *MockCatalogRepository) DeleteForMerchant(ctx context.Context, merchantID, id uuid.UUID) error {
	return m.Called(ctx, merchantID, id).Error(0)
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
	return m.Called(ctx, products).Error(0)
}

// MockNotifier is a mock implementation of feedsync.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifySyncSuccess(ctx context.Context, merchantID uuid.UUID, catalogName string, platform catalog.AdPlatform) error {
	return m.Called(ctx, merchantID, catalogName, platform).Error(0)
}

func (m *MockNotifier) NotifySyncFailure(ctx context.Context, merchantID uuid.UUID, catalogName string, platform catalog.AdPlatform, message, code string) error {
	return m.Called(ctx, merchantID, catalogName, platform, message, code).Error(0)
}

// memoryHistoryRepository keeps sync history rows in memory
type memoryHistoryRepository struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]feedsync.SyncHistory
	saves   int
	saveErr error
}

func newMemoryHistoryRepository() *memoryHistoryRepository {
	return &memoryHistoryRepository{rows: make(map[uuid.UUID]feedsync.SyncHistory)}
}

func (r *memoryHistoryRepository) Create(_ context.Context, h *feedsync.SyncHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[h.ID] = *h
	return nil
}

func (r *memoryHistoryRepository) Save(_ context.Context, h *feedsync.SyncHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.rows[h.ID]; !ok {
		return errors.New("history row not found")
	}
	r.saves++
	r.rows[h.ID] = *h
	return nil
}

func (r *memoryHistoryRepository) sorted(catalogID uuid.UUID, platform catalog.AdPlatform) []feedsync.SyncHistory {
	var out []feedsync.SyncHistory
	for _, h := range r.rows {
		if h.CatalogID == catalogID && (!platform.IsSet() || h.AdPlatform == platform) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SyncStartedAt.After(out[j].SyncStartedAt) })
	return out
}

func (r *memoryHistoryRepository) FindByCatalog(_ context.Context, catalogID uuid.UUID, platform catalog.AdPlatform, _ shared.Filter) ([]feedsync.SyncHistory, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.sorted(catalogID, platform)
	return rows, int64(len(rows)), nil
}

func (r *memoryHistoryRepository) FindLatestPerPlatform(_ context.Context, catalogID uuid.UUID) ([]feedsync.SyncHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[catalog.AdPlatform]bool{}
	var out []feedsync.SyncHistory
	for _, h := range r.sorted(catalogID, "") {
		if !seen[h.AdPlatform] {
			seen[h.AdPlatform] = true
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *memoryHistoryRepository) FindRecentTerminal(_ context.Context, catalogID uuid.UUID, platform catalog.AdPlatform, limit int, exclude ...feedsync.SyncStatus) ([]feedsync.SyncHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []feedsync.SyncHistory
	for _, h := range r.sorted(catalogID, platform) {
		if !h.Status.IsTerminal() || containsStatus(exclude, h.Status) {
			continue
		}
		out = append(out, h)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memoryHistoryRepository) FindLatest(_ context.Context, catalogID uuid.UUID, platform catalog.AdPlatform) (*feedsync.SyncHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.sorted(catalogID, platform)
	if len(rows) == 0 {
		return nil, nil
	}
	latest := rows[0]
	return &latest, nil
}

func (r *memoryHistoryRepository) all() []feedsync.SyncHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]feedsync.SyncHistory, 0, len(r.rows))
	for _, h := range r.rows {
		out = append(out, h)
	}
	return out
}

func (r *memoryHistoryRepository) seed(catalogID uuid.UUID, platform catalog.AdPlatform, status feedsync.SyncStatus, startedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ended := startedAt.Add(time.Second)
	h := feedsync.SyncHistory{
		ID:            uuid.New(),
		CatalogID:     catalogID,
		AdPlatform:    platform,
		TriggerType:   feedsync.TriggerScheduledEnqueued,
		Status:        status,
		SyncStartedAt: startedAt,
		SyncEndedAt:   &ended,
	}
	r.rows[h.ID] = h
}

func containsStatus(list []feedsync.SyncStatus, s feedsync.SyncStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// memoryStorage records uploads
type memoryStorage struct {
	mu      sync.Mutex
	uploads map[string][]byte
	err     error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{uploads: make(map[string][]byte)}
}

func (s *memoryStorage) Upload(_ context.Context, content []byte, fileName, _ string, merchantID, catalogID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	url := "https://feeds.test/" + merchantID.String() + "/" + catalogID.String() + "/" + fileName
	s.uploads[url] = content
	return url, nil
}

func (s *memoryStorage) content(url string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.uploads[url])
}

func (s *memoryStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// scriptedClient returns the scripted errors in order, then succeeds
type scriptedClient struct {
	mu       sync.Mutex
	errs     []error
	response *feedsync.SubmitResponse
	calls    int
}

func (c *scriptedClient) Platform() catalog.AdPlatform { return catalog.AdPlatformGoogleMerchantCenter }

func (c *scriptedClient) SubmitFeed(_ context.Context, _ string, _ feedsync.Credentials, _ string) (*feedsync.SubmitResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls <= len(c.errs) {
		return nil, c.errs[c.calls-1]
	}
	if c.response != nil {
		return c.response, nil
	}
	return &feedsync.SubmitResponse{Accepted: true}, nil
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type staticResolver struct {
	client feedsync.PlatformClient
}

func (r staticResolver) Client(catalog.AdPlatform) (feedsync.PlatformClient, error) {
	return r.client, nil
}

type staticCredentials struct {
	err error
}

func (s staticCredentials) Credentials(context.Context, uuid.UUID, catalog.AdPlatform) (feedsync.Credentials, error) {
	if s.err != nil {
		return feedsync.Credentials{}, s.err
	}
	return feedsync.Credentials{AccountID: "acct-1", APIKey: "key-1"}, nil
}

// recordingPublisher records published triggers
type recordingPublisher struct {
	mu       sync.Mutex
	triggers []feedsync.SyncTrigger
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, t feedsync.SyncTrigger) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.triggers = append(p.triggers, t)
	return nil
}

func (p *recordingPublisher) published() []feedsync.SyncTrigger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]feedsync.SyncTrigger(nil), p.triggers...)
}

// failingGenerators resolves every format to a generator that fails
type failingGenerators struct {
	err error
}

func (g failingGenerators) Get(catalog.FeedFormat) (feedsync.FeedGenerator, error) {
	return nil, g.err
}

func testProduct(merchantID uuid.UUID, id string, stock int) catalog.Product {
	availability := catalog.AvailabilityInStock
	if stock <= 0 {
		availability = catalog.AvailabilityOutOfStock
	}
	return catalog.Product{
		ID:           id,
		MerchantID:   merchantID,
		Title:        "Product " + id,
		Description:  "Description of " + id,
		Price:        decimal.RequireFromString("19.90"),
		Currency:     "USD",
		Availability: availability,
		StockLevel:   stock,
		ProductURL:   "https://shop.test/p/" + id,
		ImageURL:     "https://shop.test/img/" + id + ".jpg",
	}
}
