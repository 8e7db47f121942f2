package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/GophContacts/internal/models"
	"github.com/atinyakov/GophContacts/internal/repository"
	"github.com/atinyakov/GophContacts/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	FindByEmailFunc  func(ctx context.Context, email string) (*models.User, error)
	CreateFunc       func(ctx context.Context, email, passwordHash string) (*models.User, error)
	UpdateTokensFunc func(ctx context.Context, userID int64, access, refresh string) error
	ConfirmFunc      func(ctx context.Context, email string) (bool, error)
	UpdateAvatarFunc func(ctx context.Context, userID int64, url string) (*models.User, error)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.FindByEmailFunc(ctx, email)
}
func (m *mockUserRepo) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	return m.CreateFunc(ctx, email, passwordHash)
}
func (m *mockUserRepo) UpdateTokens(ctx context.Context, userID int64, access, refresh string) error {
	return m.UpdateTokensFunc(ctx, userID, access, refresh)
}
func (m *mockUserRepo) Confirm(ctx context.Context, email string) (bool, error) {
	return m.ConfirmFunc(ctx, email)
}
func (m *mockUserRepo) UpdateAvatar(ctx context.Context, userID int64, url string) (*models.User, error) {
	return m.UpdateAvatarFunc(ctx, userID, url)
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  map[string]string
	calls int
}

func (n *recordingNotifier) NotifyVerification(email, token string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[string]string)
	}
	n.sent[email] = token
	n.calls++
}

type authFixture struct {
	svc      *AuthService
	repo     *mockUserRepo
	hasher   *security.PasswordHasher
	tokens   *security.TokenService
	notifier *recordingNotifier
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	tokens, err := security.NewTokenService("unit-secret", "HS256", security.TTLs{})
	require.NoError(t, err)
	f := &authFixture{
		repo:     &mockUserRepo{},
		hasher:   security.NewPasswordHasher(bcrypt.MinCost),
		tokens:   tokens,
		notifier: &recordingNotifier{},
	}
	f.svc = NewAuthService(f.repo, f.hasher, f.tokens, f.notifier, zap.NewNop())
	return f
}

func (f *authFixture) user(t *testing.T, email, password string, confirmed bool) *models.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return &models.User{ID: 1, Email: email, PasswordHash: hash, Confirmed: confirmed, CreatedAt: time.Now()}
}

func TestSignup_Success(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.CreateFunc = func(ctx context.Context, email, passwordHash string) (*models.User, error) {
		assert.Equal(t, "a@x.com", email)
		assert.NotEqual(t, "pw", passwordHash, "password must be hashed")
		assert.True(t, f.hasher.Verify("pw", passwordHash))
		return &models.User{ID: 1, Email: email, PasswordHash: passwordHash}, nil
	}

	u, err := f.svc.Signup(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)
	assert.False(t, u.Confirmed)

	token, ok := f.notifier.sent["a@x.com"]
	require.True(t, ok, "verification mail not scheduled")
	sub, err := f.tokens.Validate(token, security.ScopeEmailVerification)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sub)
}

func TestSignup_Duplicate(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.CreateFunc = func(ctx context.Context, email, passwordHash string) (*models.User, error) {
		return nil, repository.ErrDuplicate
	}

	_, err := f.svc.Signup(context.Background(), "a@x.com", "pw")
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Zero(t, f.notifier.calls)
}

func TestSignup_RepoError(t *testing.T) {
	f := newAuthFixture(t)
	wantErr := errors.New("db down")
	f.repo.CreateFunc = func(ctx context.Context, email, passwordHash string) (*models.User, error) {
		return nil, wantErr
	}

	_, err := f.svc.Signup(context.Background(), "a@x.com", "pw")
	assert.ErrorIs(t, err, wantErr)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		stored   func(t *testing.T, f *authFixture) (*models.User, error)
		password string
		wantErr  error
	}{
		{
			name:     "unknown email",
			stored:   func(*testing.T, *authFixture) (*models.User, error) { return nil, repository.ErrNotFound },
			password: "pw",
			wantErr:  ErrInvalidEmail,
		},
		{
			name: "wrong password",
			stored: func(t *testing.T, f *authFixture) (*models.User, error) {
				return f.user(t, "a@x.com", "pw", true), nil
			},
			password: "nope",
			wantErr:  ErrInvalidPassword,
		},
		{
			name: "wrong password on unconfirmed account",
			stored: func(t *testing.T, f *authFixture) (*models.User, error) {
				return f.user(t, "a@x.com", "pw", false), nil
			},
			password: "nope",
			wantErr:  ErrInvalidPassword,
		},
		{
			name: "unconfirmed",
			stored: func(t *testing.T, f *authFixture) (*models.User, error) {
				return f.user(t, "a@x.com", "pw", false), nil
			},
			password: "pw",
			wantErr:  ErrEmailNotConfirmed,
		},
		{
			name: "success",
			stored: func(t *testing.T, f *authFixture) (*models.User, error) {
				return f.user(t, "a@x.com", "pw", true), nil
			},
			password: "pw",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.repo.FindByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
				return tt.stored(t, f)
			}
			var stored []string
			f.repo.UpdateTokensFunc = func(ctx context.Context, userID int64, access, refresh string) error {
				stored = []string{access, refresh}
				return nil
			}

			pair, err := f.svc.Login(context.Background(), "a@x.com", tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, pair)
				assert.Nil(t, stored, "no tokens may be stored on failure")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "bearer", pair.TokenType)
			assert.Equal(t, []string{pair.AccessToken, pair.RefreshToken}, stored)

			sub, err := f.tokens.Validate(pair.AccessToken, security.ScopeAccess)
			require.NoError(t, err)
			assert.Equal(t, "a@x.com", sub)
			sub, err = f.tokens.Validate(pair.RefreshToken, security.ScopeRefresh)
			require.NoError(t, err)
			assert.Equal(t, "a@x.com", sub)
		})
	}
}

func TestLogin_StoreTokensError(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.FindByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		return f.user(t, email, "pw", true), nil
	}
	f.repo.UpdateTokensFunc = func(ctx context.Context, userID int64, access, refresh string) error {
		return errors.New("write failed")
	}

	_, err := f.svc.Login(context.Background(), "a@x.com", "pw")
	assert.Error(t, err)
}

func TestConfirmEmail(t *testing.T) {
	f := newAuthFixture(t)
	token, err := f.tokens.IssueEmailVerification("a@x.com")
	require.NoError(t, err)

	confirmed := false
	f.repo.ConfirmFunc = func(ctx context.Context, email string) (bool, error) {
		assert.Equal(t, "a@x.com", email)
		already := confirmed
		confirmed = true
		return already, nil
	}

	already, err := f.svc.ConfirmEmail(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, already)

	already, err = f.svc.ConfirmEmail(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, already, "second confirmation is idempotent")
}

func TestConfirmEmail_UnknownUser(t *testing.T) {
	f := newAuthFixture(t)
	token, err := f.tokens.IssueEmailVerification("ghost@x.com")
	require.NoError(t, err)
	f.repo.ConfirmFunc = func(ctx context.Context, email string) (bool, error) {
		return false, repository.ErrNotFound
	}

	_, err = f.svc.ConfirmEmail(context.Background(), token)
	assert.ErrorIs(t, err, ErrVerification)
}

func TestConfirmEmail_RejectsOtherScopes(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.ConfirmFunc = func(ctx context.Context, email string) (bool, error) {
		t.Fatal("Confirm must not be called for an invalid token")
		return false, nil
	}

	access, err := f.tokens.IssueAccess("a@x.com")
	require.NoError(t, err)
	_, err = f.svc.ConfirmEmail(context.Background(), access)
	assert.ErrorIs(t, err, security.ErrInvalidScope)

	_, err = f.svc.ConfirmEmail(context.Background(), "garbage")
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.FindByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		if email != "a@x.com" {
			return nil, repository.ErrNotFound
		}
		return f.user(t, email, "pw", true), nil
	}
	f.repo.UpdateTokensFunc = func(ctx context.Context, userID int64, access, refresh string) error {
		return nil
	}

	refresh, err := f.tokens.IssueRefresh("a@x.com")
	require.NoError(t, err)
	pair, err := f.svc.Refresh(context.Background(), refresh)
	require.NoError(t, err)
	sub, err := f.tokens.Validate(pair.AccessToken, security.ScopeAccess)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", sub)

	access, err := f.tokens.IssueAccess("a@x.com")
	require.NoError(t, err)
	_, err = f.svc.Refresh(context.Background(), access)
	assert.ErrorIs(t, err, security.ErrInvalidScope)

	_, err = f.svc.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	orphan, err := f.tokens.IssueRefresh("gone@x.com")
	require.NoError(t, err)
	_, err = f.svc.Refresh(context.Background(), orphan)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequestEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.FindByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		switch email {
		case "new@x.com":
			return f.user(t, email, "pw", false), nil
		case "done@x.com":
			return f.user(t, email, "pw", true), nil
		default:
			return nil, repository.ErrNotFound
		}
	}

	already, err := f.svc.RequestEmail(context.Background(), "new@x.com")
	require.NoError(t, err)
	assert.False(t, already)
	assert.Contains(t, f.notifier.sent, "new@x.com")

	already, err = f.svc.RequestEmail(context.Background(), "done@x.com")
	require.NoError(t, err)
	assert.True(t, already)

	already, err = f.svc.RequestEmail(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.False(t, already)

	assert.Equal(t, 1, f.notifier.calls)
}

func TestCurrentUser(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.FindByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		if email == "a@x.com" {
			return f.user(t, email, "pw", true), nil
		}
		return nil, repository.ErrNotFound
	}

	access, err := f.tokens.IssueAccess("a@x.com")
	require.NoError(t, err)
	u, err := f.svc.CurrentUser(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)

	refresh, err := f.tokens.IssueRefresh("a@x.com")
	require.NoError(t, err)
	verification, err := f.tokens.IssueEmailVerification("a@x.com")
	require.NoError(t, err)
	orphan, err := f.tokens.IssueAccess("deleted@x.com")
	require.NoError(t, err)
	expiredSvc, err := security.NewTokenService("unit-secret", "HS256", security.TTLs{},
		security.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	require.NoError(t, err)
	expired, err := expiredSvc.IssueAccess("a@x.com")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"refresh scope":      refresh,
		"verification scope": verification,
		"unknown subject":    orphan,
		"expired":            expired,
		"malformed":          "x.y.z",
		"empty":              "",
	} {
		_, err := f.svc.CurrentUser(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnauthenticated, name)
	}
}

func TestCurrentUser_RepoError(t *testing.T) {
	f := newAuthFixture(t)
	wantErr := errors.New("db down")
	f.repo.FindByEmailFunc = func(ctx context.Context, email string) (*models.User, error) {
		return nil, wantErr
	}
	access, err := f.tokens.IssueAccess("a@x.com")
	require.NoError(t, err)

	_, err = f.svc.CurrentUser(context.Background(), access)
	assert.ErrorIs(t, err, wantErr)
}
