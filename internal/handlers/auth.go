// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gwozai/DailyNotes/internal/i18n"
	"github.com/gwozai/DailyNotes/internal/models"
	"github.com/gwozai/DailyNotes/internal/repository"
	"github.com/gwozai/DailyNotes/internal/services/email"
	"github.com/gwozai/DailyNotes/internal/services/session"
	"github.com/gwozai/DailyNotes/internal/services/token"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandlers contains handlers for the token-based auth flows.
type AuthHandlers struct {
	repo     *repository.Repository
	tokens   *token.Service
	notifier *email.Service
	sessions *session.Manager
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(repo *repository.Repository, tokens *token.Service, notifier *email.Service, sessions *session.Manager) *AuthHandlers {
	return &AuthHandlers{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		sessions: sessions,
	}
}

// EmailRequest is the request body for forgot-password and magic-link.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the request body for reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// ForgotPassword issues a password reset token and emails it. The
// response is identical whether or not the email is registered, and
// whether or not the request was rate limited, so the endpoint cannot be
// used to enumerate accounts.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	return h.requestToken(c, models.TokenTypePasswordReset)
}

// MagicLink issues a magic link login token and emails it. Same
// anti-enumeration response as ForgotPassword.
func (h *AuthHandlers) MagicLink(c echo.Context) error {
	return h.requestToken(c, models.TokenTypeMagicLink)
}

func (h *AuthHandlers) requestToken(c echo.Context, tokenType models.TokenType) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "a valid email address is required"})
	}

	ctx := c.Request().Context()

	allowed, err := h.tokens.CheckRateLimit(ctx, req.Email, tokenType)
	if err != nil {
		slog.Error("rate limit check failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	if !allowed {
		slog.Warn("rate limited token request", "type", tokenType)
		return h.genericResponse(c)
	}

	if err := h.tokens.RecordRateLimit(ctx, req.Email, tokenType); err != nil {
		slog.Error("recording rate limit failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	user, err := h.tokens.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return h.genericResponse(c)
		}
		slog.Error("user lookup failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	rawSecret, err := h.tokens.Issue(ctx, user, tokenType)
	if err != nil {
		slog.Error("issuing token failed", "error", err, "type", tokenType)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	if tokenType == models.TokenTypeMagicLink {
		h.notifier.SendMagicLink(ctx, user.Email, rawSecret)
	} else {
		h.notifier.SendPasswordReset(ctx, user.Email, rawSecret)
	}

	return h.genericResponse(c)
}

// ResetPassword sets a new password for the owner of a valid reset token
// and consumes the token.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "a token and a password of at least 8 characters are required"})
	}

	ctx := c.Request().Context()

	user, err := h.tokens.Validate(ctx, req.Token, models.TokenTypePasswordReset)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": i18n.T(ctx, "auth_invalid_token")})
		}
		slog.Error("token validation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("password hashing failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	if err := h.repo.UpdateUserPassword(ctx, user.ID, string(hash)); err != nil {
		slog.Error("password update failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	if _, err := h.tokens.Invalidate(ctx, req.Token); err != nil {
		slog.Error("token invalidation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": i18n.T(ctx, "auth_password_updated")})
}

// VerifyMagicLink logs the user in for a valid magic link token, consumes
// the token and sets a signed session cookie.
func (h *AuthHandlers) VerifyMagicLink(c echo.Context) error {
	rawSecret := c.QueryParam("token")
	ctx := c.Request().Context()

	if rawSecret == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": i18n.T(ctx, "auth_invalid_token")})
	}

	user, err := h.tokens.Validate(ctx, rawSecret, models.TokenTypeMagicLink)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": i18n.T(ctx, "auth_invalid_token")})
		}
		slog.Error("token validation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	if _, err := h.tokens.Invalidate(ctx, rawSecret); err != nil {
		slog.Error("token invalidation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	cookie, err := h.sessions.Create(user.ID, user.Username)
	if err != nil {
		slog.Error("session creation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]any{
		"id":       user.ID,
		"username": user.Username,
	})
}

func (h *AuthHandlers) genericResponse(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": i18n.T(c.Request().Context(), "auth_generic_response"),
	})
}
