package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/atinyakov/GophContacts/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxAvatarSize is the largest accepted avatar upload in bytes.
const MaxAvatarSize = 5 << 20

// avatarTypes maps accepted sniffed content types to object key extensions.
var avatarTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AvatarStore persists avatar images and returns their public URL.
type AvatarStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// UserService manages profile data of an authenticated user.
type UserService struct {
	users UserRepository
	store AvatarStore
	log   *zap.Logger
}

// NewUserService constructs a UserService. store may be nil, in which case
// avatar uploads fail with ErrAvatarStorageDisabled.
func NewUserService(users UserRepository, store AvatarStore, log *zap.Logger) *UserService {
	return &UserService{users: users, store: store, log: log}
}

// UpdateAvatar stores the image read from body as the user's avatar and
// returns the updated user. The content type is detected from the data,
// not taken from the client.
func (s *UserService) UpdateAvatar(ctx context.Context, user *models.User, body io.Reader, size int64) (*models.User, error) {
	if s.store == nil {
		return nil, ErrAvatarStorageDisabled
	}
	if size > MaxAvatarSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit", ErrAvatarTooLarge, size)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAvatar, err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := avatarTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAvatar, contentType)
	}

	key := fmt.Sprintf("avatars/%d/%s%s", user.ID, uuid.NewString(), ext)
	url, err := s.store.Upload(ctx, key, io.MultiReader(bytes.NewReader(head), body), size, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	updated, err := s.users.UpdateAvatar(ctx, user.ID, url)
	if err != nil {
		return nil, err
	}
	s.log.Info("avatar updated", zap.Int64("user_id", user.ID), zap.String("url", url))
	return updated, nil
}
