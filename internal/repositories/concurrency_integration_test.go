package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"agencydesk/internal/models"
	"agencydesk/internal/repositories"
	"agencydesk/testhelpers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFirstAdmin_ConcurrentAttemptsCreateOneAdmin(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := repositories.NewBootstrapRepo(db.Pool)

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			admin := &models.User{
				Name:         fmt.Sprintf("Admin %d", i),
				Email:        fmt.Sprintf("admin%d@agency.test", i),
				PasswordHash: "hash",
			}
			_, err := repo.CreateFirstAdmin(context.Background(), "System", admin)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, repositories.ErrAdminExists):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, rejected)
	assert.Equal(t, 1, testhelpers.CountRows(t, db, `SELECT COUNT(*) FROM users WHERE role = 'ADMIN'`))
	assert.Equal(t, 1, testhelpers.CountRows(t, db, `SELECT COUNT(*) FROM tenants WHERE is_system`))

	has, err := repo.HasAdmin(context.Background())
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGetOrCreateSystemTenant_ConcurrentCallersShareOneRow(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	repo := repositories.NewBootstrapRepo(db.Pool)

	const callers = 6
	ids := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tenant, err := repo.GetOrCreateSystemTenant(context.Background(), "System")
			if assert.NoError(t, err) {
				ids <- tenant.ID.String()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
}

func TestUpdateToken_ConcurrentRotationsOneWins(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	tenant := testhelpers.SetupTestTenant(t, db)
	user := testhelpers.SetupTestUser(t, db, &tenant.ID, models.RoleClient)
	repo := repositories.NewSessionRepo(db.Pool, time.Hour, nil)

	session, err := repo.Create(context.Background(), user.ID, &tenant.ID)
	require.NoError(t, err)

	const racers = 5
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := fmt.Sprintf("rotated-%d", i)
			results <- repo.UpdateToken(context.Background(), session.ID, session.RefreshToken, next, time.Now().Add(time.Hour))
		}(i)
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, repositories.ErrSessionConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)

	stored, err := repo.Lookup(context.Background(), session.ID)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, stored.RefreshToken)
}

func TestDeactivate_RevokesSessionsAndKeepsOneAdmin(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	tenant := testhelpers.SetupTestTenant(t, db)
	first := testhelpers.SetupTestUser(t, db, &tenant.ID, models.RoleAdmin)
	second := testhelpers.SetupTestUser(t, db, &tenant.ID, models.RoleAdmin)
	users := repositories.NewUserRepo(db.Pool)
	sessions := repositories.NewSessionRepo(db.Pool, time.Hour, nil)

	firstSession, err := sessions.Create(context.Background(), first.ID, &tenant.ID)
	require.NoError(t, err)
	secondSession, err := sessions.Create(context.Background(), second.ID, &tenant.ID)
	require.NoError(t, err)

	// Each admin tries to deactivate the other at the same time.
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, target := range []*models.User{first, second} {
		wg.Add(1)
		go func(target *models.User) {
			defer wg.Done()
			results <- users.Deactivate(context.Background(), target.ID)
		}(target)
	}
	wg.Wait()
	close(results)

	var done, refused int
	for err := range results {
		switch {
		case err == nil:
			done++
		case errors.Is(err, repositories.ErrLastAdmin):
			refused++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, refused)
	assert.Equal(t, 1, testhelpers.CountRows(t, db, `SELECT COUNT(*) FROM users WHERE role = 'ADMIN' AND is_active`))

	// Only the deactivated admin lost its session.
	var remaining int
	for _, id := range []uuid.UUID{firstSession.ID, secondSession.ID} {
		if _, err := sessions.Lookup(context.Background(), id); err == nil {
			remaining++
		} else {
			assert.ErrorIs(t, err, repositories.ErrNotFound)
		}
	}
	assert.Equal(t, 1, remaining)
}
