package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atinyakov/GophContacts/internal/models"
	"github.com/atinyakov/GophContacts/internal/service"
	"go.uber.org/zap"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type resolverFunc func(ctx context.Context, token string) (*models.User, error)

func (f resolverFunc) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	return f(ctx, token)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := BearerToken(req)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = (%q, %v); want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	resolver := resolverFunc(func(ctx context.Context, token string) (*models.User, error) {
		return nil, service.ErrUnauthenticated
	})

	for _, header := range []string{"", "Token abc", "Bearer bad"} {
		dummy := &dummyHandler{}
		h := Authenticate(resolver, zap.NewNop())(dummy)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(rec, req)

		if dummy.called {
			t.Errorf("header %q: next handler must not be called", header)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rec.Code)
		}
		if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
			t.Errorf("header %q: WWW-Authenticate = %q; want Bearer", header, got)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["detail"] != UnauthenticatedDetail {
			t.Errorf("header %q: detail = %q; want %q", header, body["detail"], UnauthenticatedDetail)
		}
	}
}

func TestAuthenticate_Success(t *testing.T) {
	want := &models.User{ID: 3, Email: "a@x.com"}
	resolver := resolverFunc(func(ctx context.Context, token string) (*models.User, error) {
		if token != "good" {
			t.Errorf("resolver got token %q; want %q", token, "good")
		}
		return want, nil
	})
	dummy := &dummyHandler{}
	h := Authenticate(resolver, zap.NewNop())(dummy)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set("Authorization", "Bearer good")
	h.ServeHTTP(rec, req)

	if !dummy.called {
		t.Fatal("expected next handler to be called")
	}
	if got := UserFromContext(dummy.ctx); got != want {
		t.Errorf("UserFromContext = %+v; want %+v", got, want)
	}
}

func TestAuthenticate_ResolverFailure(t *testing.T) {
	resolver := resolverFunc(func(ctx context.Context, token string) (*models.User, error) {
		return nil, errors.New("db down")
	})
	dummy := &dummyHandler{}
	h := Authenticate(resolver, zap.NewNop())(dummy)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.Header.Set("Authorization", "Bearer good")
	h.ServeHTTP(rec, req)

	if dummy.called {
		t.Error("next handler must not be called")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	if u := UserFromContext(context.Background()); u != nil {
		t.Errorf("expected nil user, got %+v", u)
	}
}
