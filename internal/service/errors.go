package service

import "errors"

// Errors returned by the services. Handlers map them to HTTP responses.
var (
	ErrUserExists        = errors.New("account already exists")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	ErrVerification      = errors.New("verification error")
	ErrUnauthenticated   = errors.New("could not validate credentials")
	ErrContactNotFound   = errors.New("contact not found")

	ErrAvatarStorageDisabled = errors.New("avatar storage is not configured")
	ErrUnsupportedAvatar     = errors.New("unsupported avatar format")
	ErrAvatarTooLarge        = errors.New("avatar is too large")
)
