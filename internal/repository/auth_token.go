// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gwozai/DailyNotes/internal/models"
)

// CreateAuthToken stores a new auth token. Any unused tokens of the same
// type for the same user are deleted in the same transaction, so at most
// one unused token per (user, type) exists afterwards.
func (r *Repository) CreateAuthToken(ctx context.Context, token *models.AuthToken) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE user_id = ? AND token_type = ? AND used_at IS NULL`,
		token.UserID, token.TokenType)
	if err != nil {
		return fmt.Errorf("deleting prior unused tokens: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO auth_tokens (uuid, user_id, token_hash, token_type, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		token.UUID, token.UserID, token.TokenHash, token.TokenType, token.CreatedAt, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}

	return tx.Commit()
}

// GetValidAuthToken retrieves an unused, unexpired token by hash and type.
func (r *Repository) GetValidAuthToken(ctx context.Context, tokenHash string, tokenType models.TokenType, now time.Time) (*models.AuthToken, error) {
	var token models.AuthToken
	err := r.db.GetContext(ctx, &token,
		`SELECT * FROM auth_tokens
		 WHERE token_hash = ? AND token_type = ? AND used_at IS NULL AND expires_at > ?`,
		tokenHash, tokenType, now)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// GetAuthTokenByHash retrieves a token by hash regardless of validity.
func (r *Repository) GetAuthTokenByHash(ctx context.Context, tokenHash string) (*models.AuthToken, error) {
	var token models.AuthToken
	err := r.db.GetContext(ctx, &token,
		`SELECT * FROM auth_tokens WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// MarkAuthTokenUsed sets the consumption time of a token.
func (r *Repository) MarkAuthTokenUsed(ctx context.Context, uuid string, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE auth_tokens SET used_at = ? WHERE uuid = ?`, usedAt, uuid)
	return err
}

// DeleteExpiredAuthTokens deletes tokens whose expiry lies before now and
// returns the number of rows removed.
func (r *Repository) DeleteExpiredAuthTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteUsedAuthTokensBefore deletes tokens consumed before the cutoff.
func (r *Repository) DeleteUsedAuthTokensBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE used_at IS NOT NULL AND used_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
