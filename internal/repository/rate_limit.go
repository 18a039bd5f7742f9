// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/gwozai/DailyNotes/internal/models"
)

// CreateRateLimit inserts one rate limit record, committed immediately.
func (r *Repository) CreateRateLimit(ctx context.Context, rl *models.RateLimit) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rate_limits (uuid, identifier, action_type, timestamp) VALUES (?, ?, ?, ?)`,
		rl.UUID, rl.Identifier, rl.ActionType, rl.Timestamp)
	return err
}

// CountRateLimits counts records for an identifier and action type with a
// timestamp after the cutoff.
func (r *Repository) CountRateLimits(ctx context.Context, identifier string, actionType models.TokenType, since time.Time) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT count(*) FROM rate_limits
		 WHERE identifier = ? AND action_type = ? AND timestamp > ?`,
		identifier, actionType, since)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteRateLimitsBefore deletes records older than the cutoff and returns
// the number of rows removed.
func (r *Repository) DeleteRateLimitsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM rate_limits WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
