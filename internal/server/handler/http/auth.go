// Package http provides the HTTP handlers of the contacts API: account
// signup, login and email confirmation, profile and contacts endpoints.
package http

import (
	"context"
	"errors"
	"mime"
	"net/http"

	"github.com/atinyakov/GophContacts/internal/middleware"
	"github.com/atinyakov/GophContacts/internal/models"
	"github.com/atinyakov/GophContacts/internal/security"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthService defines the account operations required by AuthHandler.
type AuthService interface {
	Signup(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	ConfirmEmail(ctx context.Context, token string) (bool, error)
	RequestEmail(ctx context.Context, email string) (bool, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
}

// AuthHandler handles signup, login, email confirmation and token refresh.
type AuthHandler struct {
	// AuthService performs the underlying account operations.
	AuthService AuthService
	Log         *zap.Logger
}

// SignupRequest is the payload of POST /signup.
type SignupRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
	// bcrypt ignores everything past 72 bytes.
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the payload of POST /login. Username carries the email.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RequestEmailRequest is the payload of POST /request_email.
type RequestEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

const (
	msgCheckEmail       = "Check your email"
	msgCheckEmailResend = "Check your email for confirmation."
	msgConfirmed        = "Email confirmed"
	msgAlreadyConfirmed = "Your email is already confirmed"
)

// Signup registers a new account and schedules the verification mail.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.AuthService.Signup(r.Context(), req.Email, req.Password); err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: msgCheckEmail})
}

// Login accepts either a JSON body or an OAuth2 password-style form.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
		if !validRequest(w, &req) {
			return
		}
	default:
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	pair, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Confirm handles GET /confirm/{token}.
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	already, err := h.AuthService.ConfirmEmail(r.Context(), token)
	switch {
	case errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrExpiredToken),
		errors.Is(err, security.ErrInvalidScope):
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid token for email verification")
		return
	case err != nil:
		writeServiceError(w, h.Log, err)
		return
	}

	if already {
		writeJSON(w, http.StatusOK, messageResponse{Message: msgAlreadyConfirmed})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgConfirmed})
}

// RequestEmail re-sends the verification mail. The response does not reveal
// whether the address is registered.
func (h *AuthHandler) RequestEmail(w http.ResponseWriter, r *http.Request) {
	var req RequestEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	already, err := h.AuthService.RequestEmail(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	if already {
		writeJSON(w, http.StatusOK, messageResponse{Message: msgAlreadyConfirmed})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgCheckEmailResend})
}

// RefreshToken exchanges the refresh token presented as bearer for a new pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		middleware.Unauthorized(w, middleware.UnauthenticatedDetail)
		return
	}

	pair, err := h.AuthService.Refresh(r.Context(), token)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}
