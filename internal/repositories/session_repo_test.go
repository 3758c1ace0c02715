package repositories

import (
	"context"
	"testing"
	"time"

	"agencydesk/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionRepoWithMock(t *testing.T) (pgxmock.PgxPoolIface, SessionRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock, NewSessionRepo(mock, 7*24*time.Hour, func() time.Time { return fixedTime })
}

func TestSessionRepo_CreateGeneratesPlaceholderAndExpiry(t *testing.T) {
	mock, repo := newSessionRepoWithMock(t)
	userID, tenantID := uuid.New(), uuid.New()

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), userID, &tenantID, pgxmock.AnyArg(), fixedTime.Add(7*24*time.Hour), fixedTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	session, err := repo.Create(context.Background(), userID, &tenantID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Len(t, session.RefreshToken, placeholderLength)
	assert.Equal(t, fixedTime.Add(7*24*time.Hour), session.ExpiresAt)
	assert.Equal(t, tenantID, *session.TenantID)
}

func TestSessionRepo_CreatePlaceholdersDiffer(t *testing.T) {
	mock, repo := newSessionRepoWithMock(t)
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs(pgxmock.AnyArg(), userID, (*uuid.UUID)(nil), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	first, err := repo.Create(context.Background(), userID, nil)
	require.NoError(t, err)
	second, err := repo.Create(context.Background(), userID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSessionRepo_Lookup(t *testing.T) {
	mock, repo := newSessionRepoWithMock(t)
	session := &models.Session{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		RefreshToken: "signed.refresh.token",
		ExpiresAt:    fixedTime.Add(time.Hour),
		CreatedAt:    fixedTime,
	}

	mock.ExpectQuery(`FROM sessions\s+WHERE id = \$1`).
		WithArgs(session.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "tenant_id", "refresh_token", "expires_at", "created_at"}).
			AddRow(session.ID, session.UserID, nil, session.RefreshToken, session.ExpiresAt, session.CreatedAt))

	result, err := repo.Lookup(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.RefreshToken, result.RefreshToken)
	assert.Nil(t, result.TenantID)
}

func TestSessionRepo_LookupMissing(t *testing.T) {
	mock, repo := newSessionRepoWithMock(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM sessions`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	result, err := repo.Lookup(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, result)
}

func TestSessionRepo_UpdateTokenCompareAndSwap(t *testing.T) {
	mock, repo := newSessionRepoWithMock(t)
	id := uuid.New()
	expiry := fixedTime.Add(48 * time.Hour)

	mock.ExpectExec(`UPDATE sessions\s+SET refresh_token = \$1, expires_at = \$2\s+WHERE id = \$3 AND refresh_token = \$4`).
		WithArgs("new", expiry, id, "old").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE sessions`).
		WithArgs("newer", expiry, id, "old").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.UpdateToken(context.Background(), id, "old", "new", expiry))

	// A second writer still holding the old value loses the race.
	err := repo.UpdateToken(context.Background(), id, "old", "newer", expiry)
	assert.ErrorIs(t, err, ErrSessionConflict)
}

func TestSessionRepo_Delete(t *testing.T) {
	mock, repo := newSessionRepoWithMock(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(context.Background(), id))
}

func TestSessionRepo_DeleteExpired(t *testing.T) {
	mock, repo := newSessionRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).
		WithArgs(fixedTime).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.DeleteExpired(context.Background(), fixedTime)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
