// Package service provides the business logic for accounts and contacts,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/GophContacts/internal/models"
	"github.com/atinyakov/GophContacts/internal/repository"
	"github.com/atinyakov/GophContacts/internal/security"
	"go.uber.org/zap"
)

// UserRepository defines the persistence operations on accounts.
type UserRepository interface {
	// FindByEmail returns repository.ErrNotFound when no account matches.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// Create returns repository.ErrDuplicate when the email is taken.
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)
	UpdateTokens(ctx context.Context, userID int64, accessToken, refreshToken string) error
	// Confirm reports whether the account was already confirmed.
	Confirm(ctx context.Context, email string) (bool, error)
	UpdateAvatar(ctx context.Context, userID int64, url string) (*models.User, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenService issues and validates scoped bearer tokens.
type TokenService interface {
	IssueAccess(subject string) (string, error)
	IssueRefresh(subject string) (string, error)
	IssueEmailVerification(subject string) (string, error)
	Validate(token string, expected security.Scope) (string, error)
}

// VerificationNotifier delivers verification links. Delivery is
// asynchronous and failures are reported by the notifier itself.
type VerificationNotifier interface {
	NotifyVerification(email, token string)
}

// AuthService implements signup, login, email confirmation, token refresh
// and bearer token resolution.
type AuthService struct {
	users    UserRepository
	hasher   PasswordHasher
	tokens   TokenService
	notifier VerificationNotifier
	log      *zap.Logger
}

// NewAuthService constructs an AuthService from its collaborators.
func NewAuthService(
	users UserRepository,
	hasher PasswordHasher,
	tokens TokenService,
	notifier VerificationNotifier,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		log:      log,
	}
}

// Signup registers an unconfirmed account and schedules a verification mail.
// A mail that cannot be scheduled does not fail the signup.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, email, hash)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, err
	}

	s.sendVerification(user.Email)
	return user, nil
}

func (s *AuthService) sendVerification(email string) {
	token, err := s.tokens.IssueEmailVerification(email)
	if err != nil {
		s.log.Error("failed to issue verification token", zap.String("email", email), zap.Error(err))
		return
	}
	s.notifier.NotifyVerification(email, token)
}

// Login checks credentials and issues a fresh token pair, which replaces
// the pair stored on the account.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidEmail
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidPassword
	}
	if !user.Confirmed {
		return nil, ErrEmailNotConfirmed
	}
	return s.issuePair(ctx, user)
}

// Refresh exchanges a refresh token for a new token pair. A token with the
// wrong scope yields security.ErrInvalidScope; every other failure yields
// ErrUnauthenticated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	email, err := s.tokens.Validate(refreshToken, security.ScopeRefresh)
	if errors.Is(err, security.ErrInvalidScope) {
		return nil, security.ErrInvalidScope
	}
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return s.issuePair(ctx, user)
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	access, err := s.tokens.IssueAccess(user.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateTokens(ctx, user.ID, access, refresh); err != nil {
		return nil, fmt.Errorf("store tokens: %w", err)
	}
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// ConfirmEmail confirms the account named by an email verification token.
// Token failures are returned as the security package errors; a valid token
// for an unknown account yields ErrVerification. Confirming twice is not an
// error and reports alreadyConfirmed.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (alreadyConfirmed bool, err error) {
	email, err := s.tokens.Validate(token, security.ScopeEmailVerification)
	if err != nil {
		return false, err
	}

	already, err := s.users.Confirm(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrVerification
	}
	if err != nil {
		return false, err
	}
	if !already {
		s.log.Info("email confirmed", zap.String("email", email))
	}
	return already, nil
}

// RequestEmail sends a new verification mail to an unconfirmed account.
// Unknown emails are ignored so that callers cannot probe for accounts.
func (s *AuthService) RequestEmail(ctx context.Context, email string) (alreadyConfirmed bool, err error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if user.Confirmed {
		return true, nil
	}
	s.sendVerification(user.Email)
	return false, nil
}

// CurrentUser resolves an access token to its account. Any token failure or
// a subject without an account yields ErrUnauthenticated.
func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	email, err := s.tokens.Validate(accessToken, security.ScopeAccess)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
