package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/atinyakov/GophContacts/internal/middleware"
	"github.com/atinyakov/GophContacts/internal/security"
	"github.com/atinyakov/GophContacts/internal/service"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type detailResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

// decodeJSON decodes the body into dst and validates it.
// It writes a 422 response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return false
	}
	return validRequest(w, dst)
}

func validRequest(w http.ResponseWriter, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request")
		return false
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed on %s", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	writeDetail(w, http.StatusUnprocessableEntity, strings.Join(msgs, "; "))
	return false
}

// writeServiceError maps service errors to their HTTP representation.
// Anything unrecognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrUserExists):
		writeDetail(w, http.StatusConflict, "Account already exists")
	case errors.Is(err, service.ErrInvalidEmail):
		writeDetail(w, http.StatusUnauthorized, "Invalid email")
	case errors.Is(err, service.ErrInvalidPassword):
		writeDetail(w, http.StatusUnauthorized, "Invalid password")
	case errors.Is(err, service.ErrEmailNotConfirmed):
		writeDetail(w, http.StatusUnauthorized, "Email not confirmed")
	case errors.Is(err, service.ErrVerification):
		writeDetail(w, http.StatusBadRequest, "Verification error")
	case errors.Is(err, service.ErrUnauthenticated):
		middleware.Unauthorized(w, middleware.UnauthenticatedDetail)
	case errors.Is(err, security.ErrInvalidScope):
		middleware.Unauthorized(w, "Invalid scope for token")
	case errors.Is(err, service.ErrContactNotFound):
		writeDetail(w, http.StatusNotFound, "Contact not found")
	case errors.Is(err, service.ErrAvatarStorageDisabled):
		writeDetail(w, http.StatusServiceUnavailable, "Avatar storage is not configured")
	case errors.Is(err, service.ErrAvatarTooLarge):
		writeDetail(w, http.StatusRequestEntityTooLarge, "Avatar is too large")
	case errors.Is(err, service.ErrUnsupportedAvatar):
		writeDetail(w, http.StatusUnsupportedMediaType, "Unsupported avatar image")
	default:
		log.Error("request failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}
