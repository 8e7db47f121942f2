package http

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/atinyakov/GophContacts/internal/middleware"
	"github.com/atinyakov/GophContacts/internal/models"
	"github.com/atinyakov/GophContacts/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ContactService defines the owner-scoped contact operations required by ContactHandler.
type ContactService interface {
	Create(ctx context.Context, owner *models.User, in models.ContactInput) (*models.Contact, error)
	List(ctx context.Context, owner *models.User, limit, offset int) ([]models.Contact, error)
	Get(ctx context.Context, owner *models.User, id int64) (*models.Contact, error)
	Update(ctx context.Context, owner *models.User, id int64, in models.ContactInput) (*models.Contact, error)
	Delete(ctx context.Context, owner *models.User, id int64) error
	Search(ctx context.Context, owner *models.User, query string) ([]models.Contact, error)
	UpcomingBirthdays(ctx context.Context, owner *models.User, days int) ([]models.Contact, error)
}

// ContactHandler serves the /contacts endpoints. Every operation acts on
// the contacts of the authenticated user only.
type ContactHandler struct {
	ContactService ContactService
	Log            *zap.Logger
}

// ContactRequest is the payload of POST /contacts and PUT /contacts/{id}.
type ContactRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Surname  string `json:"surname" validate:"max=100"`
	Email    string `json:"email" validate:"omitempty,email,max=100"`
	Birthday string `json:"birthday" validate:"required,datetime=2006-01-02"`
	Notes    string `json:"notes" validate:"max=2000"`
}

func (req ContactRequest) input() (models.ContactInput, error) {
	birthday, err := models.ParseDate(req.Birthday)
	if err != nil {
		return models.ContactInput{}, err
	}
	return models.ContactInput{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Birthday: birthday,
		Notes:    req.Notes,
	}, nil
}

func (h *ContactHandler) decodeContact(w http.ResponseWriter, r *http.Request) (models.ContactInput, bool) {
	var req ContactRequest
	if !decodeJSON(w, r, &req) {
		return models.ContactInput{}, false
	}
	in, err := req.input()
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "birthday: failed on datetime=2006-01-02")
		return models.ContactInput{}, false
	}
	return in, true
}

func contactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid contact id")
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, name string, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid query parameter "+name)
		return 0, false
	}
	return v, true
}

// List handles GET /contacts?limit=&offset=.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0, service.MaxPageSize)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0, math.MaxInt32)
	if !ok {
		return
	}

	contacts, err := h.ContactService.List(r.Context(), middleware.UserFromContext(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

// Create handles POST /contacts.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeContact(w, r)
	if !ok {
		return
	}

	c, err := h.ContactService.Create(r.Context(), middleware.UserFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Get handles GET /contacts/{id}.
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	c, err := h.ContactService.Get(r.Context(), middleware.UserFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update handles PUT /contacts/{id}.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeContact(w, r)
	if !ok {
		return
	}

	c, err := h.ContactService.Update(r.Context(), middleware.UserFromContext(r.Context()), id, in)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /contacts/{id}.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	if err := h.ContactService.Delete(r.Context(), middleware.UserFromContext(r.Context()), id); err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /contacts/search?q=.
func (h *ContactHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "Query parameter q is required")
		return
	}

	contacts, err := h.ContactService.Search(r.Context(), middleware.UserFromContext(r.Context()), q)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

// Birthdays handles GET /contacts/birthdays?days=.
func (h *ContactHandler) Birthdays(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days", 1, service.MaxBirthdayDays)
	if !ok {
		return
	}

	contacts, err := h.ContactService.UpcomingBirthdays(r.Context(), middleware.UserFromContext(r.Context()), days)
	if err != nil {
		writeServiceError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}
