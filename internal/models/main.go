// Package models defines the core data structures for users and contacts.
package models

import "time"

// User represents an account holder.
type User struct {
	// ID is the unique identifier for the user.
	ID int64 `json:"id"`
	// Email is the login identity and the subject of every issued token.
	Email string `json:"email"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-"`
	// AccessToken is the last access token issued on login, if any.
	AccessToken *string `json:"-"`
	// RefreshToken is the last refresh token issued on login, if any.
	RefreshToken *string `json:"-"`
	// Confirmed is set once the email address has been verified.
	Confirmed bool `json:"confirmed"`
	// AvatarURL is the public URL of the uploaded avatar.
	AvatarURL *string `json:"avatar"`
	// CreatedAt is the registration time.
	CreatedAt time.Time `json:"-"`
}

// Contact is an address book entry owned by exactly one user.
type Contact struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Birthday Date   `json:"birthday"`
	Notes    string `json:"notes"`
	// OwnerID references the owning user and is never exposed.
	OwnerID int64 `json:"-"`
}

// ContactInput carries the writable contact fields for create and update.
type ContactInput struct {
	Name     string
	Surname  string
	Email    string
	Birthday Date
	Notes    string
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
