package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/candleworks/candela/internal/auth"
	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/repository"
	"github.com/candleworks/candela/internal/service"
	"github.com/candleworks/candela/internal/storage"
	"github.com/candleworks/candela/internal/token"
)

const (
	testAdminKey = "admin-key"
	testWriteKey = "write-key"
)

// =============================================================================
// In-memory test repositories
// =============================================================================

type testUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64
}

func newTestUserRepo() *testUserRepo {
	return &testUserRepo{users: make(map[int64]*domain.User), nextID: 1}
}

func (r *testUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return nil
}

func (r *testUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *testUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *testUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *testUserRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *testUserRepo) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*domain.User
	for _, u := range r.users {
		items = append(items, u)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &repository.ListResult[domain.User]{Items: items, Total: int64(len(items))}, nil
}

func (r *testUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	return false, nil
}

type testCandleRepo struct {
	mu         sync.Mutex
	candles    map[int64]*domain.Candle
	images     map[int64][]*domain.CandleImage
	referenced map[int64]bool
	nextID     int64
}

func newTestCandleRepo() *testCandleRepo {
	return &testCandleRepo{
		candles:    make(map[int64]*domain.Candle),
		images:     make(map[int64][]*domain.CandleImage),
		referenced: make(map[int64]bool),
		nextID:     1,
	}
}

func (r *testCandleRepo) Create(ctx context.Context, candle *domain.Candle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	candle.ID = r.nextID
	r.nextID++
	r.candles[candle.ID] = candle
	return nil
}

func (r *testCandleRepo) GetByID(ctx context.Context, id int64) (*domain.Candle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.candles[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (r *testCandleRepo) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.Candle], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*domain.Candle
	for _, c := range r.candles {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &repository.ListResult[domain.Candle]{Items: items, Total: int64(len(items))}, nil
}

func (r *testCandleRepo) Update(ctx context.Context, candle *domain.Candle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.candles[candle.ID]; !ok {
		return repository.ErrNotFound
	}
	r.candles[candle.ID] = candle
	return nil
}

func (r *testCandleRepo) Delete(ctx context.Context, id int64, cascadeDisposable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.candles[id]; !ok {
		return repository.ErrNotFound
	}
	if r.referenced[id] {
		return repository.ErrConstraintViolation
	}
	delete(r.candles, id)
	delete(r.images, id)
	return nil
}

func (r *testCandleRepo) AddImage(ctx context.Context, img *domain.CandleImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.candles[img.CandleID]; !ok {
		return repository.ErrNotFound
	}
	img.ID = r.nextID
	r.nextID++
	r.images[img.CandleID] = append(r.images[img.CandleID], img)
	return nil
}

func (r *testCandleRepo) ListImages(ctx context.Context, candleID int64) ([]*domain.CandleImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.images[candleID], nil
}

func (r *testCandleRepo) ListImageStorageKeys(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for _, imgs := range r.images {
		for _, img := range imgs {
			keys = append(keys, img.StorageKey)
		}
	}
	return keys, nil
}

func (r *testCandleRepo) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	return nil, nil
}

type testCategoryRepo struct {
	mu         sync.Mutex
	categories map[int64]*domain.Category
	nextID     int64
}

func newTestCategoryRepo() *testCategoryRepo {
	return &testCategoryRepo{categories: make(map[int64]*domain.Category), nextID: 1}
}

func (r *testCategoryRepo) Create(ctx context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.categories {
		if c.Name == category.Name {
			return domain.ErrCategoryAlreadyExists
		}
	}
	category.ID = r.nextID
	r.nextID++
	r.categories[category.ID] = category
	return nil
}

func (r *testCategoryRepo) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.categories[id]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (r *testCategoryRepo) List(ctx context.Context) ([]*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*domain.Category
	for _, c := range r.categories {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r *testCategoryRepo) Update(ctx context.Context, category *domain.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[category.ID]; !ok {
		return repository.ErrNotFound
	}
	r.categories[category.ID] = category
	return nil
}

func (r *testCategoryRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

// testReferenceRepo derives the audit from the candle repo's state.
type testReferenceRepo struct {
	candles *testCandleRepo
}

func (r *testReferenceRepo) Audit(ctx context.Context, candleID int64, maxRows int) (*domain.ReferenceAudit, error) {
	if _, err := r.candles.GetByID(ctx, candleID); err != nil {
		return nil, err
	}

	audit := &domain.ReferenceAudit{CandleID: candleID}
	for _, rc := range domain.CandleRelations {
		rel := domain.RelationAudit{Relation: rc.Relation, Disposable: rc.Disposable}
		if rc.Relation == domain.RelationOrderItems && r.candles.referenced[candleID] {
			rel.Count = 1
			rel.Rows = []domain.ReferenceRow{{ID: 1, Detail: "order 1, qty 2"}}
		}
		audit.Relations = append(audit.Relations, rel)
	}
	return audit, nil
}

// testStorage is a minimal in-memory media backend.
type testStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newTestStorage() *testStorage {
	return &testStorage{objects: make(map[string][]byte)}
}

func (s *testStorage) Store(ctx context.Context, key string, reader io.Reader, size int64) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return nil
}

func (s *testStorage) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrMediaNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *testStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *testStorage) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *testStorage) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var objects []storage.ObjectInfo
	for key, data := range s.objects {
		objects = append(objects, storage.ObjectInfo{Key: key, Size: int64(len(data))})
	}
	return objects, nil
}

// =============================================================================
// Test environment
// =============================================================================

type testEnv struct {
	server     *httptest.Server
	userRepo   *testUserRepo
	candleRepo *testCandleRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	userRepo := newTestUserRepo()
	candleRepo := newTestCandleRepo()
	categoryRepo := newTestCategoryRepo()
	referenceRepo := &testReferenceRepo{candles: candleRepo}
	media := newTestStorage()

	tokens := token.NewService("test-secret", 30*time.Minute)
	authenticator := auth.NewAuthenticator(tokens, userRepo, nil, logger)

	authService := service.NewAuthService(userRepo, tokens, testAdminKey, logger)
	userService := service.NewUserService(userRepo, logger)
	catalogService := service.NewCatalogService(candleRepo, categoryRepo, media, logger)
	deletionService := service.NewDeletionService(candleRepo, referenceRepo, nil, logger)

	router := NewRouter(RouterConfig{
		AuthHandler:     NewAuthHandler(authService, userService, authenticator, nil, logger),
		CatalogHandler:  NewCatalogHandler(catalogService, logger),
		DeletionHandler: NewDeletionHandler(deletionService, logger),
		Authenticator:   authenticator,
		WriteAPIKey:     testWriteKey,
		Logger:          logger,
	})

	server := httptest.NewServer(router.Handler())
	t.Cleanup(server.Close)

	return &testEnv{server: server, userRepo: userRepo, candleRepo: candleRepo}
}

// do sends a JSON request and decodes the JSON response into out (when
// out is non-nil and the body is non-empty).
func (e *testEnv) do(t *testing.T, method, path, token string, body, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		if len(data) > 0 {
			require.NoError(t, json.Unmarshal(data, out), "body: %s", data)
		}
	}
	return resp
}

// adminToken registers an admin account and logs it in.
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	// The admin key rides in the X-API-Key header.
	reqBody, _ := json.Marshal(map[string]string{
		"email":    "admin@example.com",
		"password": "password123",
	})
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/api/auth/create-admin", bytes.NewReader(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAdminKey)
	createResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	createResp.Body.Close()
	require.Equal(t, http.StatusCreated, createResp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	loginResp := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "admin@example.com",
		"password": "password123",
		"api_key":  testAdminKey,
	}, &login)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	require.NotEmpty(t, login.Token)
	return login.Token
}

// userToken registers a regular account and logs it in.
func (e *testEnv) userToken(t *testing.T, email string) string {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": "password123",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	loginResp := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	}, &login)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	return login.Token
}

func (e *testEnv) createCandle(t *testing.T, token, name string) int64 {
	t.Helper()

	var candle domain.Candle
	resp := e.do(t, http.MethodPost, "/api/v2/candles", token, map[string]any{
		"name":           name,
		"price":          "24.90",
		"stock_quantity": 10,
	}, &candle)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotZero(t, candle.ID)
	return candle.ID
}
