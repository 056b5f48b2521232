// Package repository declares the storage interfaces the services depend on.
// Implementations live in the sqlite and postgres subpackages.
package repository

import (
	"context"

	"github.com/sakif/chat-auth/internal/model"
)

// UserRepository stores user records.
//
// Lookups return an error wrapping apperror.ErrNotFound when nothing
// matches. Create returns an error wrapping apperror.ErrDuplicateKey when
// user_id or nickname is already taken; it does not say which.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByUserID(ctx context.Context, userID string) (*model.User, error)
	GetByNickname(ctx context.Context, nickname string) (*model.User, error)
}
