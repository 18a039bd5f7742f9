// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gwozai/DailyNotes/internal/models"
	"github.com/gwozai/DailyNotes/internal/repository"
	"github.com/gwozai/DailyNotes/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newToken(userID int64, hash string, tokenType models.TokenType, expiresAt time.Time) *models.AuthToken {
	return &models.AuthToken{
		UUID:      uuid.NewString(),
		UserID:    userID,
		TokenHash: hash,
		TokenType: tokenType,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
}

func TestCreateAuthToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser", "test@example.com")
	expiresAt := time.Now().UTC().Add(time.Hour)

	err := repo.CreateAuthToken(ctx, newToken(user.ID, "hash1", models.TokenTypePasswordReset, expiresAt))
	require.NoError(t, err)

	token, err := repo.GetAuthTokenByHash(ctx, "hash1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, token.UserID)
	assert.Equal(t, models.TokenTypePasswordReset, token.TokenType)
	assert.False(t, token.UsedAt.Valid)
	assert.WithinDuration(t, expiresAt, token.ExpiresAt, time.Second)
}

func TestCreateAuthToken_ReplacesUnusedOfSameType(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser", "test@example.com")
	expiresAt := time.Now().UTC().Add(time.Hour)

	err := repo.CreateAuthToken(ctx, newToken(user.ID, "old", models.TokenTypePasswordReset, expiresAt))
	require.NoError(t, err)
	err = repo.CreateAuthToken(ctx, newToken(user.ID, "new", models.TokenTypePasswordReset, expiresAt))
	require.NoError(t, err)

	// Prior unused token of the same type is gone
	_, err = repo.GetAuthTokenByHash(ctx, "old")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetAuthTokenByHash(ctx, "new")
	require.NoError(t, err)
}

func TestCreateAuthToken_KeepsOtherTypes(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser", "test@example.com")
	expiresAt := time.Now().UTC().Add(time.Hour)

	err := repo.CreateAuthToken(ctx, newToken(user.ID, "reset", models.TokenTypePasswordReset, expiresAt))
	require.NoError(t, err)
	err = repo.CreateAuthToken(ctx, newToken(user.ID, "magic", models.TokenTypeMagicLink, expiresAt))
	require.NoError(t, err)

	_, err = repo.GetAuthTokenByHash(ctx, "reset")
	require.NoError(t, err)
	_, err = repo.GetAuthTokenByHash(ctx, "magic")
	require.NoError(t, err)
}

func TestCreateAuthToken_KeepsUsedTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser", "test@example.com")
	expiresAt := time.Now().UTC().Add(time.Hour)

	used := newToken(user.ID, "used", models.TokenTypePasswordReset, expiresAt)
	err := repo.CreateAuthToken(ctx, used)
	require.NoError(t, err)
	err = repo.MarkAuthTokenUsed(ctx, used.UUID, time.Now().UTC())
	require.NoError(t, err)

	err = repo.CreateAuthToken(ctx, newToken(user.ID, "fresh", models.TokenTypePasswordReset, expiresAt))
	require.NoError(t, err)

	// Consumed tokens are kept for the audit window
	_, err = repo.GetAuthTokenByHash(ctx, "used")
	require.NoError(t, err)
}

func TestGetValidAuthToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser", "test@example.com")
	now := time.Now().UTC()

	err := repo.CreateAuthToken(ctx, newToken(user.ID, "hash1", models.TokenTypeMagicLink, now.Add(15*time.Minute)))
	require.NoError(t, err)

	token, err := repo.GetValidAuthToken(ctx, "hash1", models.TokenTypeMagicLink, now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, token.UserID)
}

func TestGetValidAuthToken_WrongType(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser", "test@example.com")
	now := time.Now().UTC()

	err := repo.CreateAuthToken(ctx, newToken(user.ID, "hash1", models.TokenTypeMagicLink, now.Add(15*time.Minute)))
	require.NoError(t, err)

	_, err = repo.GetValidAuthToken(ctx, "hash1", models.TokenTypePasswordReset, now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetValidAuthToken_Expired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser", "test@example.com")
	now := time.Now().UTC()

	err := repo.CreateAuthToken(ctx, newToken(user.ID, "hash1", models.TokenTypeMagicLink, now.Add(-time.Minute)))
	require.NoError(t, err)

	_, err = repo.GetValidAuthToken(ctx, "hash1", models.TokenTypeMagicLink, now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMarkAuthTokenUsed(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser", "test@example.com")
	now := time.Now().UTC()

	token := newToken(user.ID, "hash1", models.TokenTypePasswordReset, now.Add(time.Hour))
	err := repo.CreateAuthToken(ctx, token)
	require.NoError(t, err)

	err = repo.MarkAuthTokenUsed(ctx, token.UUID, now)
	require.NoError(t, err)

	stored, err := repo.GetAuthTokenByHash(ctx, "hash1")
	require.NoError(t, err)
	assert.True(t, stored.UsedAt.Valid)
	assert.WithinDuration(t, now, stored.UsedAt.Time, time.Second)

	// Consumed tokens no longer validate
	_, err = repo.GetValidAuthToken(ctx, "hash1", models.TokenTypePasswordReset, now)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteExpiredAuthTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser", "test@example.com")
	now := time.Now().UTC()

	err := repo.CreateAuthToken(ctx, newToken(user.ID, "expired", models.TokenTypePasswordReset, now.Add(-time.Hour)))
	require.NoError(t, err)
	err = repo.CreateAuthToken(ctx, newToken(user.ID, "valid", models.TokenTypeMagicLink, now.Add(time.Hour)))
	require.NoError(t, err)

	removed, err := repo.DeleteExpiredAuthTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.GetAuthTokenByHash(ctx, "expired")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetAuthTokenByHash(ctx, "valid")
	require.NoError(t, err)
}

func TestDeleteUsedAuthTokensBefore(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "testuser", "test@example.com")
	now := time.Now().UTC()

	old := newToken(user.ID, "old-used", models.TokenTypePasswordReset, now.Add(time.Hour))
	err := repo.CreateAuthToken(ctx, old)
	require.NoError(t, err)
	err = repo.MarkAuthTokenUsed(ctx, old.UUID, now.Add(-48*time.Hour))
	require.NoError(t, err)

	recent := newToken(user.ID, "recent-used", models.TokenTypeMagicLink, now.Add(time.Hour))
	err = repo.CreateAuthToken(ctx, recent)
	require.NoError(t, err)
	err = repo.MarkAuthTokenUsed(ctx, recent.UUID, now)
	require.NoError(t, err)

	removed, err := repo.DeleteUsedAuthTokensBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.GetAuthTokenByHash(ctx, "old-used")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetAuthTokenByHash(ctx, "recent-used")
	require.NoError(t, err)
}
