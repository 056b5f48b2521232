// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// UserID is the login name (an email address) and Nickname is the public
// display name. Both are unique. ID is our own xid so primary keys are not
// tied to anything the user can change or pick.
//
// PasswordHash is a bcrypt string. The json:"-" tag keeps it out of every
// response body, even if a handler serializes a User by mistake.
type User struct {
	ID           string    `json:"-"         db:"id"`
	UserID       string    `json:"userId"    db:"user_id"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	Nickname     string    `json:"nickname"  db:"nickname"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Identity returns the public view of the user.
func (u *User) Identity() Identity {
	return Identity{ID: u.UserID, Nickname: u.Nickname}
}

// Identity is the only user shape sent to clients and embedded in tokens.
// ID carries the user-id (email), not the internal record ID.
type Identity struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// NewUser is the input to credential creation. Password is plaintext and
// never persisted.
type NewUser struct {
	UserID   string
	Password string
	Nickname string
}
