package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/chat-auth/internal/apperror"
	"github.com/sakif/chat-auth/internal/model"
	"github.com/sakif/chat-auth/internal/repository"
)

// CredentialStore owns user records and their password hashes.
//
// Passwords enter as plaintext and are hashed immediately before the insert;
// nothing outside this type ever sees a hash.
type CredentialStore struct {
	users     repository.UserRepository
	passwords *PasswordService
}

func NewCredentialStore(users repository.UserRepository, passwords *PasswordService) *CredentialStore {
	return &CredentialStore{users: users, passwords: passwords}
}

func (s *CredentialStore) FindByUserID(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByUserID(ctx, userID)
}

func (s *CredentialStore) FindByNickname(ctx context.Context, nickname string) (*model.User, error) {
	return s.users.GetByNickname(ctx, nickname)
}

// Create registers a new user.
//
// Both unique keys are checked up front so a single DuplicateKey error can
// report a taken user-id and a taken nickname together. Two concurrent
// registrations can both pass that check; the storage unique constraint then
// rejects the loser, and the collision is re-diagnosed so the caller still
// gets a field-level DuplicateKey rather than an internal error.
func (s *CredentialStore) Create(ctx context.Context, in model.NewUser) (*model.User, error) {
	fields, err := s.duplicates(ctx, in.UserID, in.Nickname)
	if err != nil {
		return nil, err
	}
	if !fields.Empty() {
		return nil, apperror.DuplicateKey(MsgRegisterInvalid, fields)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	user := &model.User{
		UserID:       in.UserID,
		PasswordHash: hash,
		Nickname:     in.Nickname,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrDuplicateKey) {
			return nil, fmt.Errorf("creating user: %w", err)
		}
		fields, derr := s.duplicates(ctx, in.UserID, in.Nickname)
		if derr != nil {
			return nil, derr
		}
		if fields.Empty() {
			// The conflicting row is gone again; report the user-id as taken.
			fields.Add(FieldUserID, MsgUserIDExists)
		}
		return nil, apperror.DuplicateKey(MsgRegisterInvalid, fields)
	}
	return user, nil
}

// Verify checks a password against the user's stored hash.
func (s *CredentialStore) Verify(user *model.User, password string) error {
	return s.passwords.Verify(user.PasswordHash, password)
}

// duplicates returns registration Fields naming every taken unique key.
func (s *CredentialStore) duplicates(ctx context.Context, userID, nickname string) (apperror.Fields, error) {
	fields := apperror.NewFields(FieldUserID, FieldPassword, FieldNickname)

	taken, err := s.exists(ctx, s.users.GetByUserID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking user id: %w", err)
	}
	if taken {
		fields.Add(FieldUserID, MsgUserIDExists)
	}

	taken, err = s.exists(ctx, s.users.GetByNickname, nickname)
	if err != nil {
		return nil, fmt.Errorf("checking nickname: %w", err)
	}
	if taken {
		fields.Add(FieldNickname, MsgNicknameExists)
	}
	return fields, nil
}

func (s *CredentialStore) exists(ctx context.Context, get func(context.Context, string) (*model.User, error), key string) (bool, error) {
	_, err := get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperror.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
