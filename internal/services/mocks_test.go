package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"agencydesk/internal/models"
	"agencydesk/internal/repositories"

	"github.com/google/uuid"
	"github.com/labstack/gommon/random"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret-access-secret-0123456789"
	testRefreshSecret = "refresh-secret-refresh-secret-0123456789"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCodec(t *testing.T, clock *testClock) TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(TokenCodecConfig{
		AccessSecret:  testAccessSecret,
		AccessTTL:     15 * time.Minute,
		RefreshSecret: testRefreshSecret,
		RefreshTTL:    7 * 24 * time.Hour,
	}, clock.Now)
	require.NoError(t, err)
	return codec
}

func newTestHasher(t *testing.T) PasswordHasher {
	t.Helper()
	hasher, err := NewBcryptHasher(4)
	require.NoError(t, err)
	return hasher
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.User, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) CreateWithOwner(ctx context.Context, tenant *models.Tenant, profile *models.ClientProfile, owner *models.User) error {
	args := m.Called(ctx, tenant, profile, owner)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetProfile(ctx context.Context, tenantID uuid.UUID) (*models.ClientProfile, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClientProfile), args.Error(1)
}

func (m *MockTenantRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockTenantRepository) List(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

type MockBootstrapRepository struct {
	mock.Mock
}

func (m *MockBootstrapRepository) HasAdmin(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockBootstrapRepository) GetOrCreateSystemTenant(ctx context.Context, name string) (*models.Tenant, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockBootstrapRepository) CreateFirstAdmin(ctx context.Context, systemTenantName string, admin *models.User) (*models.Tenant, error) {
	args := m.Called(ctx, systemTenantName, admin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

// memSessionRepo mirrors the compare-and-swap semantics of the SQL repository.
type memSessionRepo struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]models.Session
	refreshTTL time.Duration
	now        func() time.Time
}

func newMemSessionRepo(refreshTTL time.Duration, now func() time.Time) *memSessionRepo {
	return &memSessionRepo{rows: map[uuid.UUID]models.Session{}, refreshTTL: refreshTTL, now: now}
}

func (r *memSessionRepo) Create(_ context.Context, userID uuid.UUID, tenantID *uuid.UUID) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	s := models.Session{
		ID:           uuid.New(),
		UserID:       userID,
		TenantID:     tenantID,
		RefreshToken: random.String(64),
		ExpiresAt:    now.Add(r.refreshTTL),
		CreatedAt:    now,
	}
	r.rows[s.ID] = s
	return &s, nil
}

func (r *memSessionRepo) Lookup(_ context.Context, id uuid.UUID) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (r *memSessionRepo) UpdateToken(_ context.Context, id uuid.UUID, previous, next string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok || s.RefreshToken != previous {
		return repositories.ErrSessionConflict
	}
	s.RefreshToken = next
	s.ExpiresAt = expiresAt
	r.rows[id] = s
	return nil
}

func (r *memSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

// deleteUser drops every session of a user, as deactivation does in the SQL repository.
func (r *memSessionRepo) deleteUser(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.rows {
		if s.UserID == userID {
			delete(r.rows, id)
		}
	}
}

func (r *memSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.rows {
		if s.ExpiresAt.Before(before) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// unbindableSessionRepo creates sessions but can never store the signed refresh token.
type unbindableSessionRepo struct {
	*memSessionRepo
}

func (r unbindableSessionRepo) UpdateToken(context.Context, uuid.UUID, string, string, time.Time) error {
	return errors.New("connection reset")
}
