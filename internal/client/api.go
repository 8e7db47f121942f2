package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/GophContacts/internal/models"
)

// ErrNotLoggedIn is returned by authenticated calls without a session.
var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx response from the server.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Detail)
}

// NewHTTPClient returns an HTTP client that additionally trusts the PEM
// certificate at caFile, if given, so a self-signed dev server can be reached.
func NewHTTPClient(caFile string) (*http.Client, error) {
	if caFile == "" {
		return &http.Client{Timeout: 10 * time.Second}, nil
	}
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
	}
	return &http.Client{Transport: transport, Timeout: 10 * time.Second}, nil
}

// API is a client of the contacts HTTP API. Calls that need authentication
// use the session's access token and transparently refresh it once on 401.
type API struct {
	BaseURL string
	HTTP    *http.Client
	Session *Session
}

// NewAPI creates an API client for baseURL.
func NewAPI(baseURL string, httpClient *http.Client, session *Session) *API {
	return &API{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient, Session: session}
}

// ContactPayload is the body of contact create and update requests.
type ContactPayload struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Birthday string `json:"birthday"`
	Notes    string `json:"notes"`
}

type messageBody struct {
	Message string `json:"message"`
}

// Signup registers an account and returns the server's message.
func (a *API) Signup(ctx context.Context, email, password string) (string, error) {
	var out messageBody
	err := a.doJSON(ctx, http.MethodPost, "/signup", "", map[string]string{"email": email, "password": password}, &out)
	return out.Message, err
}

// Login exchanges credentials for a token pair and stores it in the session.
func (a *API) Login(ctx context.Context, email, password string) error {
	form := url.Values{"username": {email}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var pair models.TokenPair
	if err := a.send(req, &pair); err != nil {
		return err
	}
	a.Session.Set(email, pair.AccessToken, pair.RefreshToken)
	return a.Session.Save()
}

// Confirm submits a verification token taken from the confirmation link.
func (a *API) Confirm(ctx context.Context, token string) (string, error) {
	var out messageBody
	err := a.doJSON(ctx, http.MethodGet, "/confirm/"+url.PathEscape(token), "", nil, &out)
	return out.Message, err
}

// RequestEmail asks the server to send the verification mail again.
func (a *API) RequestEmail(ctx context.Context, email string) (string, error) {
	var out messageBody
	err := a.doJSON(ctx, http.MethodPost, "/request_email", "", map[string]string{"email": email}, &out)
	return out.Message, err
}

// Refresh replaces the session's tokens using its refresh token.
func (a *API) Refresh(ctx context.Context) error {
	_, refresh := a.Session.Tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	var pair models.TokenPair
	if err := a.doJSON(ctx, http.MethodGet, "/refresh_token", refresh, nil, &pair); err != nil {
		return err
	}
	a.Session.Set("", pair.AccessToken, pair.RefreshToken)
	return a.Session.Save()
}

// Me returns the logged-in user.
func (a *API) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := a.authed(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListContacts returns a page of contacts.
func (a *API) ListContacts(ctx context.Context, limit, offset int) ([]models.Contact, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/contacts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []models.Contact
	err := a.authed(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// GetContact returns a single contact.
func (a *API) GetContact(ctx context.Context, id int64) (*models.Contact, error) {
	var c models.Contact
	if err := a.authed(ctx, http.MethodGet, contactPath(id), nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateContact adds a contact.
func (a *API) CreateContact(ctx context.Context, p ContactPayload) (*models.Contact, error) {
	var c models.Contact
	if err := a.authed(ctx, http.MethodPost, "/contacts", p, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateContact replaces every field of a contact.
func (a *API) UpdateContact(ctx context.Context, id int64, p ContactPayload) (*models.Contact, error) {
	var c models.Contact
	if err := a.authed(ctx, http.MethodPut, contactPath(id), p, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteContact removes a contact.
func (a *API) DeleteContact(ctx context.Context, id int64) error {
	return a.authed(ctx, http.MethodDelete, contactPath(id), nil, nil)
}

// SearchContacts matches query against name, surname and email.
func (a *API) SearchContacts(ctx context.Context, query string) ([]models.Contact, error) {
	var out []models.Contact
	err := a.authed(ctx, http.MethodGet, "/contacts/search?q="+url.QueryEscape(query), nil, &out)
	return out, err
}

// Birthdays lists contacts with a birthday in the next days days.
func (a *API) Birthdays(ctx context.Context, days int) ([]models.Contact, error) {
	path := "/contacts/birthdays"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	var out []models.Contact
	err := a.authed(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// UploadAvatar sends the image file at path as the new avatar.
func (a *API) UploadAvatar(ctx context.Context, path string) (*models.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}

	build := func(token string) (*http.Request, error) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(data); err != nil {
			return nil, err
		}
		if err := mw.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, a.BaseURL+"/users/avatar", &body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	}

	var u models.User
	if err := a.withRefresh(ctx, build, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func contactPath(id int64) string {
	return "/contacts/" + strconv.FormatInt(id, 10)
}

// authed performs a JSON request with the access token, refreshing once on 401.
func (a *API) authed(ctx context.Context, method, path string, in, out any) error {
	build := func(token string) (*http.Request, error) {
		return a.newJSONRequest(ctx, method, path, token, in)
	}
	return a.withRefresh(ctx, build, out)
}

func (a *API) withRefresh(ctx context.Context, build func(token string) (*http.Request, error), out any) error {
	access, _ := a.Session.Tokens()
	if access == "" {
		return ErrNotLoggedIn
	}
	req, err := build(access)
	if err != nil {
		return err
	}
	err = a.send(req, out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}
	if rerr := a.Refresh(ctx); rerr != nil {
		return err
	}

	access, _ = a.Session.Tokens()
	req, err = build(access)
	if err != nil {
		return err
	}
	return a.send(req, out)
}

func (a *API) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	req, err := a.newJSONRequest(ctx, method, path, token, in)
	if err != nil {
		return err
	}
	return a.send(req, out)
}

func (a *API) newJSONRequest(ctx context.Context, method, path, token string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send executes req and decodes a 2xx JSON body into out.
func (a *API) send(req *http.Request, out any) error {
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &detail) != nil || detail.Detail == "" {
			detail.Detail = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Detail: detail.Detail}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
