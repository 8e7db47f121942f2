package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope tags a token with the single purpose it may be used for.
type Scope string

const (
	ScopeAccess            Scope = "access_token"
	ScopeRefresh           Scope = "refresh_token"
	ScopeEmailVerification Scope = "email_verification"
)

var (
	// ErrInvalidToken covers bad signatures, malformed tokens, unexpected
	// algorithms and tokens without a subject.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned once exp has passed.
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidScope is returned when the scope claim differs from the expected one.
	ErrInvalidScope = errors.New("invalid token scope")
)

// Default lifetimes for each scope.
const (
	DefaultAccessTTL            = 15 * time.Minute
	DefaultRefreshTTL           = 7 * 24 * time.Hour
	DefaultEmailVerificationTTL = 7 * 24 * time.Hour
)

// Claims is the full claim set carried by every token.
type Claims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

// TTLs holds the lifetime of each token scope.
type TTLs struct {
	Access            time.Duration
	Refresh           time.Duration
	EmailVerification time.Duration
}

// TokenService issues and validates HMAC-signed JWTs.
// It is safe for concurrent use; its key and algorithm never change after construction.
type TokenService struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttls   TTLs
	now    func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the time source, mostly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService builds a TokenService for the given secret and HMAC algorithm
// (HS256, HS384 or HS512). Zero TTLs are replaced with the defaults.
func NewTokenService(secret, algorithm string, ttls TTLs, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if ttls.Access <= 0 {
		ttls.Access = DefaultAccessTTL
	}
	if ttls.Refresh <= 0 {
		ttls.Refresh = DefaultRefreshTTL
	}
	if ttls.EmailVerification <= 0 {
		ttls.EmailVerification = DefaultEmailVerificationTTL
	}

	s := &TokenService{
		secret: []byte(secret),
		method: method,
		ttls:   ttls,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for subject with the given scope, valid for ttl from now.
func (s *TokenService) Issue(subject string, scope Scope, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssueAccess issues an access token with the configured lifetime.
func (s *TokenService) IssueAccess(subject string) (string, error) {
	return s.Issue(subject, ScopeAccess, s.ttls.Access)
}

// IssueRefresh issues a refresh token with the configured lifetime.
func (s *TokenService) IssueRefresh(subject string) (string, error) {
	return s.Issue(subject, ScopeRefresh, s.ttls.Refresh)
}

// IssueEmailVerification issues an email verification token with the configured lifetime.
func (s *TokenService) IssueEmailVerification(subject string) (string, error) {
	return s.Issue(subject, ScopeEmailVerification, s.ttls.EmailVerification)
}

// Validate checks signature, expiry and scope and returns the token subject.
func (s *TokenService) Validate(token string, expected Scope) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredToken
	case err != nil:
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	if claims.Scope != expected {
		return "", ErrInvalidScope
	}
	return claims.Subject, nil
}
