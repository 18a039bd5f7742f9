// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"fmt"
	"time"
)

// TokenType distinguishes password reset tokens from magic link tokens.
// The type governs the expiry duration and the email template used.
type TokenType string

const (
	TokenTypePasswordReset TokenType = "password_reset"
	TokenTypeMagicLink     TokenType = "magic_link"
)

// ParseTokenType validates a token type received from the outside.
func ParseTokenType(s string) (TokenType, error) {
	switch TokenType(s) {
	case TokenTypePasswordReset, TokenTypeMagicLink:
		return TokenType(s), nil
	}
	return "", fmt.Errorf("unknown token type %q", s)
}

// AuthToken stores the SHA-256 hash of an issued single-use secret.
// The raw secret is never persisted.
type AuthToken struct { //nolint:govet // fieldalignment: readability over optimization
	UUID      string       `db:"uuid" json:"uuid"`
	UserID    int64        `db:"user_id" json:"user_id"`
	TokenHash string       `db:"token_hash" json:"-"`
	TokenType TokenType    `db:"token_type" json:"token_type"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	ExpiresAt time.Time    `db:"expires_at" json:"expires_at"`
	UsedAt    sql.NullTime `db:"used_at" json:"used_at"`
}
