// Package http provides HTTP handlers for user registration, password
// login and token-protected profile access.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/gophlogin/internal/form"
	"github.com/atinyakov/gophlogin/internal/logger"
	"github.com/atinyakov/gophlogin/internal/metrics"
	"github.com/atinyakov/gophlogin/internal/middleware"
	"github.com/atinyakov/gophlogin/internal/models"
	"github.com/atinyakov/gophlogin/internal/service"
	"go.uber.org/zap"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// Register creates an account. Invalid input yields *form.ValidationError,
	// a taken email service.ErrUserExists.
	Register(ctx context.Context, creds models.Credentials) (models.User, error)
	// Login returns an access token or service.ErrInvalidCredentials.
	Login(ctx context.Context, creds models.Credentials) (string, error)
	// Logout closes the session behind claims.
	Logout(ctx context.Context, claims *service.Claims) error
}

// AuthHandler handles HTTP requests for registration, login and profile.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	// Metrics counts outcomes. May be nil.
	Metrics *metrics.Metrics
	// Log may be nil.
	Log *zap.Logger
}

func (h *AuthHandler) log() *zap.Logger { return logger.OrNop(h.Log) }

func decodeCredentials(r *http.Request) (models.Credentials, bool) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		return creds, false
	}
	return creds, creds.Email != "" && creds.Password != ""
}

// Register handles user registration requests.
// It expects a JSON body with "email" and "password" and answers 201 with
// the new user's profile.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(r)
	if !ok {
		h.Metrics.Registration(metrics.ResultInvalid)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	u, err := h.AuthService.Register(r.Context(), creds)
	var verr *form.ValidationError
	switch {
	case errors.As(err, &verr):
		h.Metrics.Registration(metrics.ResultInvalid)
		http.Error(w, verr.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrUserExists):
		h.Metrics.Registration(metrics.ResultRejected)
		http.Error(w, "user already exists", http.StatusConflict)
		return
	case err != nil:
		h.Metrics.Registration(metrics.ResultError)
		h.log().Error("register failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.Metrics.Registration(metrics.ResultSuccess)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(models.Profile{UserID: u.ID, Email: u.Email})
}

// writeEnvelope answers with the login envelope. The HTTP status mirrors
// statusCode.
func writeEnvelope(w http.ResponseWriter, resp models.LoginResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// Login handles password login requests.
// It always answers with the {statusCode, message, content} envelope:
// 200 with content.accessToken, 400 for malformed input, 401 for wrong
// credentials and 500 otherwise.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(r)
	if !ok {
		h.Metrics.LoginAttempt(metrics.ResultInvalid)
		writeEnvelope(w, models.LoginResponse{StatusCode: http.StatusBadRequest, Message: "invalid request"})
		return
	}

	token, err := h.AuthService.Login(r.Context(), creds)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.Metrics.LoginAttempt(metrics.ResultRejected)
		writeEnvelope(w, models.LoginResponse{StatusCode: http.StatusUnauthorized, Message: "invalid credentials"})
		return
	case err != nil:
		h.Metrics.LoginAttempt(metrics.ResultError)
		h.log().Error("login failed", zap.Error(err))
		writeEnvelope(w, models.LoginResponse{StatusCode: http.StatusInternalServerError, Message: "internal error"})
		return
	}

	h.Metrics.LoginAttempt(metrics.ResultSuccess)
	writeEnvelope(w, models.LoginResponse{
		StatusCode: http.StatusOK,
		Content:    models.LoginContent{AccessToken: token},
	})
}

// Me returns the profile of the authenticated caller.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(models.Profile{UserID: claims.UserID(), Email: claims.Email})
}

// Logout revokes the caller's session and answers 204.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID := middleware.GetUserIDFromContext(r.Context())
	if err := h.AuthService.Logout(r.Context(), claims); err != nil {
		h.log().Error("logout failed", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.log().Info("session revoked", zap.String("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}
