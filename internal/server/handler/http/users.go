package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/atinyakov/GophContacts/internal/middleware"
	"github.com/atinyakov/GophContacts/internal/models"
	"github.com/atinyakov/GophContacts/internal/service"
	"go.uber.org/zap"
)

// UserService defines the profile operations required by UserHandler.
type UserService interface {
	UpdateAvatar(ctx context.Context, user *models.User, body io.Reader, size int64) (*models.User, error)
}

// UserHandler serves the authenticated user's profile.
type UserHandler struct {
	UserService UserService
	Log         *zap.Logger
}

// multipartOverhead leaves room for boundaries and part headers around the avatar.
const multipartOverhead = 64 << 10

// Me returns the authenticated user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.UserFromContext(r.Context()))
}

// UpdateAvatar accepts a multipart upload with the image in the "file" field.
func (h *UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAvatarSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "Avatar is too large")
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, "Multipart field \"file\" is required")
		return
	}
	defer file.Close()

	if header.Size > service.MaxAvatarSize {
		writeDetail(w, http.StatusRequestEntityTooLarge, "Avatar is too large")
		return
	}

	user := middleware.UserFromContext(r.Context())
	updated, err := h.UserService.UpdateAvatar(r.Context(), user, file, header.Size)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
