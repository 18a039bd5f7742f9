// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// RateLimit records one rate-limited action attempt. Rows accumulate
// without a unique constraint and are counted within a sliding window.
// The identifier is a SHA-256 hash of the normalized email, so no PII
// is stored.
type RateLimit struct { //nolint:govet // fieldalignment: readability over optimization
	UUID       string    `db:"uuid" json:"uuid"`
	Identifier string    `db:"identifier" json:"-"`
	ActionType TokenType `db:"action_type" json:"action_type"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
}
