package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/repository"
	"github.com/candleworks/candela/internal/storage"
)

// =============================================================================
// MockUserRepository
// =============================================================================

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	users      map[int64]*domain.User
	referenced map[int64]bool
	nextID     int64
	createErr  error
	getErr     error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:      make(map[int64]*domain.User),
		referenced: make(map[int64]bool),
		nextID:     1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	if m.referenced[id] {
		return repository.ErrConstraintViolation
	}
	delete(m.users, id)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	var ids []int64
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var items []*domain.User
	for i, id := range ids {
		if i < opts.Offset {
			continue
		}
		if opts.Limit > 0 && len(items) >= opts.Limit {
			break
		}
		items = append(items, m.users[id])
	}

	return &repository.ListResult[domain.User]{
		Items:  items,
		Total:  int64(len(m.users)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// MockCandleRepository
// =============================================================================

// MockCandleRepository is a mock implementation of repository.CandleRepository.
// The referenced set simulates blocking order_items references: deleting a
// candle in it fails with ErrConstraintViolation.
type MockCandleRepository struct {
	candles    map[int64]*domain.Candle
	images     map[int64][]*domain.CandleImage
	referenced map[int64]bool
	tags       []*domain.Tag
	nextID     int64
	deleteErr  error

	// purged records which candle ids were deleted with cascade on.
	purged []int64
}

func NewMockCandleRepository() *MockCandleRepository {
	return &MockCandleRepository{
		candles:    make(map[int64]*domain.Candle),
		images:     make(map[int64][]*domain.CandleImage),
		referenced: make(map[int64]bool),
		nextID:     1,
	}
}

func (m *MockCandleRepository) Create(ctx context.Context, candle *domain.Candle) error {
	candle.ID = m.nextID
	m.nextID++
	m.candles[candle.ID] = candle
	return nil
}

func (m *MockCandleRepository) GetByID(ctx context.Context, id int64) (*domain.Candle, error) {
	if c, ok := m.candles[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockCandleRepository) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Candle], error) {
	var ids []int64
	for id := range m.candles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var items []*domain.Candle
	for i, id := range ids {
		if i < opts.Offset {
			continue
		}
		if opts.Limit > 0 && len(items) >= opts.Limit {
			break
		}
		items = append(items, m.candles[id])
	}

	return &repository.ListResult[domain.Candle]{
		Items:  items,
		Total:  int64(len(m.candles)),
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func (m *MockCandleRepository) Update(ctx context.Context, candle *domain.Candle) error {
	if _, ok := m.candles[candle.ID]; !ok {
		return repository.ErrNotFound
	}
	m.candles[candle.ID] = candle
	return nil
}

func (m *MockCandleRepository) Delete(ctx context.Context, id int64, cascadeDisposable bool) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.candles[id]; !ok {
		return repository.ErrNotFound
	}
	if m.referenced[id] {
		return repository.ErrConstraintViolation
	}
	if cascadeDisposable {
		m.purged = append(m.purged, id)
	}
	delete(m.candles, id)
	delete(m.images, id)
	return nil
}

func (m *MockCandleRepository) AddImage(ctx context.Context, img *domain.CandleImage) error {
	if _, ok := m.candles[img.CandleID]; !ok {
		return repository.ErrNotFound
	}
	img.ID = m.nextID
	m.nextID++
	m.images[img.CandleID] = append(m.images[img.CandleID], img)
	return nil
}

func (m *MockCandleRepository) ListImages(ctx context.Context, candleID int64) ([]*domain.CandleImage, error) {
	return m.images[candleID], nil
}

func (m *MockCandleRepository) ListImageStorageKeys(ctx context.Context) ([]string, error) {
	var keys []string
	for _, imgs := range m.images {
		for _, img := range imgs {
			keys = append(keys, img.StorageKey)
		}
	}
	return keys, nil
}

func (m *MockCandleRepository) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return m.tags, nil
}

// =============================================================================
// MockCategoryRepository
// =============================================================================

// MockCategoryRepository is a mock implementation of repository.CategoryRepository.
type MockCategoryRepository struct {
	categories map[int64]*domain.Category
	nextID     int64
}

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{
		categories: make(map[int64]*domain.Category),
		nextID:     1,
	}
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, c := range m.categories {
		if c.Name == category.Name {
			return domain.ErrCategoryAlreadyExists
		}
	}
	category.ID = m.nextID
	m.nextID++
	m.categories[category.ID] = category
	return nil
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	if c, ok := m.categories[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	var result []*domain.Category
	for _, c := range m.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return repository.ErrNotFound
	}
	m.categories[category.ID] = category
	return nil
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.categories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

// =============================================================================
// MockReferenceRepository
// =============================================================================

// MockReferenceRepository returns canned audits per candle id.
type MockReferenceRepository struct {
	audits map[int64]*domain.ReferenceAudit
}

func NewMockReferenceRepository() *MockReferenceRepository {
	return &MockReferenceRepository{
		audits: make(map[int64]*domain.ReferenceAudit),
	}
}

func (m *MockReferenceRepository) Audit(ctx context.Context, candleID int64, maxRows int) (*domain.ReferenceAudit, error) {
	if a, ok := m.audits[candleID]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

// =============================================================================
// MockStorageBackend
// =============================================================================

// MockStorageBackend is an in-memory implementation of storage.Backend.
type MockStorageBackend struct {
	mu       sync.Mutex
	objects  map[string][]byte
	modTimes map[string]time.Time
	storeErr error
}

func NewMockStorageBackend() *MockStorageBackend {
	return &MockStorageBackend{
		objects:  make(map[string][]byte),
		modTimes: make(map[string]time.Time),
	}
}

func (m *MockStorageBackend) Store(ctx context.Context, key string, reader io.Reader, size int64) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[key] = data
	m.modTimes[key] = time.Now()
	m.mu.Unlock()
	return nil
}

func (m *MockStorageBackend) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrMediaNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStorageBackend) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return domain.ErrMediaNotFound
	}
	delete(m.objects, key)
	delete(m.modTimes, key)
	return nil
}

func (m *MockStorageBackend) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MockStorageBackend) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var objects []storage.ObjectInfo
	for key, data := range m.objects {
		objects = append(objects, storage.ObjectInfo{
			Key:     key,
			Size:    int64(len(data)),
			ModTime: m.modTimes[key],
		})
	}
	return objects, nil
}

// setModTime backdates an object so it clears the GC grace period.
func (m *MockStorageBackend) setModTime(key string, t time.Time) {
	m.mu.Lock()
	m.modTimes[key] = t
	m.mu.Unlock()
}
