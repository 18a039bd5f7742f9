// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and validates single-use auth secrets for password
// reset and magic link login, and enforces the per-email rate limit.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gwozai/DailyNotes/internal/models"
	"github.com/gwozai/DailyNotes/internal/repository"
)

const (
	// SecretLength is the number of random bytes in a raw secret.
	SecretLength = 32
	// PasswordResetExpiry is how long password reset tokens are valid.
	PasswordResetExpiry = time.Hour
	// MagicLinkExpiry is how long magic link tokens are valid.
	MagicLinkExpiry = 15 * time.Minute
	// RateLimitWindow is the trailing interval over which attempts count.
	RateLimitWindow = time.Hour
	// RateLimitMaxRequests is the ceiling of attempts per window.
	RateLimitMaxRequests = 3
	// usedTokenRetention is how long consumed tokens are kept for audit.
	usedTokenRetention = 24 * time.Hour
)

// ErrInvalidToken is returned for any token that does not validate. Not
// found, expired and wrong type are deliberately indistinguishable so the
// caller cannot leak which case occurred.
var ErrInvalidToken = errors.New("invalid or expired token")

// Service is the token manager. It holds no state between calls; all
// token and rate limit rows live in the store.
type Service struct {
	repo *repository.Repository
}

// NewService creates a new token service.
func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// GenerateSecret produces a raw secret with SecretLength bytes of
// cryptographically secure randomness, encoded as a 43-character URL-safe
// string.
func GenerateSecret() (string, error) {
	bytes := make([]byte, SecretLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// HashSecret computes the SHA-256 hash of a raw secret as lowercase hex.
// Only the hash is ever persisted.
func HashSecret(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(hash[:])
}

// HashEmail hashes a normalized email for rate limit bucketing, so the
// rate limit table stores no PII.
func HashEmail(email string) string {
	return HashSecret(strings.ToLower(strings.TrimSpace(email)))
}

// CheckRateLimit reports whether another attempt is allowed for this email
// and action type. Pure read; call RecordRateLimit to count the attempt.
// The check and the record are not atomic together, so heavy concurrent
// load can transiently admit more than the ceiling. Accepted for the
// self-hosted, low-concurrency deployment this targets.
func (s *Service) CheckRateLimit(ctx context.Context, email string, actionType models.TokenType) (bool, error) {
	cutoff := time.Now().UTC().Add(-RateLimitWindow)
	count, err := s.repo.CountRateLimits(ctx, HashEmail(email), actionType, cutoff)
	if err != nil {
		return false, fmt.Errorf("counting rate limits: %w", err)
	}
	return count < RateLimitMaxRequests, nil
}

// RecordRateLimit records one attempt for this email and action type.
func (s *Service) RecordRateLimit(ctx context.Context, email string, actionType models.TokenType) error {
	rl := &models.RateLimit{
		UUID:       uuid.NewString(),
		Identifier: HashEmail(email),
		ActionType: actionType,
		Timestamp:  time.Now().UTC(),
	}
	return s.repo.CreateRateLimit(ctx, rl)
}

// Issue creates a new auth token for the user, replacing any unused token
// of the same type, and returns the raw secret. This is the only moment
// the raw value exists outside the delivery email.
func (s *Service) Issue(ctx context.Context, user *models.User, tokenType models.TokenType) (string, error) {
	rawSecret, err := GenerateSecret()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	expiry := PasswordResetExpiry
	if tokenType == models.TokenTypeMagicLink {
		expiry = MagicLinkExpiry
	}

	authToken := &models.AuthToken{
		UUID:      uuid.NewString(),
		UserID:    user.ID,
		TokenHash: HashSecret(rawSecret),
		TokenType: tokenType,
		CreatedAt: now,
		ExpiresAt: now.Add(expiry),
	}
	if err := s.repo.CreateAuthToken(ctx, authToken); err != nil {
		return "", fmt.Errorf("storing token: %w", err)
	}

	slog.Info("created auth token", "type", tokenType, "user", user.Username)
	return rawSecret, nil
}

// Validate resolves a raw secret to its owning user. The token must match
// the given type, be unused and be unexpired; any other case yields
// ErrInvalidToken. Validate does not consume the token.
func (s *Service) Validate(ctx context.Context, rawSecret string, tokenType models.TokenType) (*models.User, error) {
	authToken, err := s.repo.GetValidAuthToken(ctx, HashSecret(rawSecret), tokenType, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("invalid or expired token attempted", "type", tokenType)
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("looking up token: %w", err)
	}

	user, err := s.repo.GetUserByID(ctx, authToken.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("resolving token owner: %w", err)
	}
	return user, nil
}

// Invalidate marks a token as consumed, regardless of its validity, and
// reports whether a matching token existed. Callers run validate then
// invalidate as two calls; a narrow replay window between them is accepted
// given the short expiries.
func (s *Service) Invalidate(ctx context.Context, rawSecret string) (bool, error) {
	authToken, err := s.repo.GetAuthTokenByHash(ctx, HashSecret(rawSecret))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("looking up token: %w", err)
	}

	if err := s.repo.MarkAuthTokenUsed(ctx, authToken.UUID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("marking token used: %w", err)
	}

	slog.Info("invalidated auth token", "type", authToken.TokenType)
	return true, nil
}

// Cleanup removes expired tokens, tokens consumed more than a day ago and
// rate limit rows older than the window. Idempotent; safe to run
// concurrently with issuance. Meant to be triggered periodically by an
// external scheduler.
func (s *Service) Cleanup(ctx context.Context) error {
	now := time.Now().UTC()

	expired, err := s.repo.DeleteExpiredAuthTokens(ctx, now)
	if err != nil {
		return fmt.Errorf("deleting expired tokens: %w", err)
	}

	used, err := s.repo.DeleteUsedAuthTokensBefore(ctx, now.Add(-usedTokenRetention))
	if err != nil {
		return fmt.Errorf("deleting used tokens: %w", err)
	}

	rateLimits, err := s.repo.DeleteRateLimitsBefore(ctx, now.Add(-RateLimitWindow))
	if err != nil {
		return fmt.Errorf("deleting rate limit records: %w", err)
	}

	slog.Info("cleanup complete",
		"expired_tokens", expired,
		"used_tokens", used,
		"rate_limit_records", rateLimits,
	)
	return nil
}

// FindUserByEmail matches an email case-insensitively after trimming.
// The email column may be encrypted at rest and cannot be filtered in
// SQL, so this scans all users. Acceptable for small self-hosted
// populations only.
func (s *Service) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, repository.ErrNotFound
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	for i := range users {
		if users[i].Email != "" && strings.ToLower(users[i].Email) == normalized {
			return &users[i], nil
		}
	}
	return nil, repository.ErrNotFound
}
