// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues and verifies signed login cookies.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// DefaultMaxAge is how long a login session stays valid.
const DefaultMaxAge = 7 * 24 * time.Hour

// ErrNoSession is returned when the request carries no valid session cookie.
var ErrNoSession = errors.New("no valid session")

// Session is the payload stored in the signed cookie.
type Session struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Manager creates and parses signed session cookies.
type Manager struct {
	sc         *securecookie.SecureCookie
	cookieName string
	maxAge     time.Duration
	secure     bool
}

// NewManager creates a session manager. Keys are generated per process,
// so sessions do not survive a restart.
func NewManager(cookieName string, secure bool) *Manager {
	hashKey := securecookie.GenerateRandomKey(32)
	blockKey := securecookie.GenerateRandomKey(32)

	return &Manager{
		sc:         securecookie.New(hashKey, blockKey),
		cookieName: cookieName,
		maxAge:     DefaultMaxAge,
		secure:     secure,
	}
}

// Create builds a signed session cookie for the given user.
func (m *Manager) Create(userID int64, username string) (*http.Cookie, error) {
	encoded, err := m.sc.Encode(m.cookieName, Session{UserID: userID, Username: username})
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Parse extracts the session from the request's cookie.
func (m *Manager) Parse(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, ErrNoSession
	}

	var sess Session
	if err := m.sc.Decode(m.cookieName, cookie.Value, &sess); err != nil {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// Clear returns an expired cookie that removes the session.
func (m *Manager) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
