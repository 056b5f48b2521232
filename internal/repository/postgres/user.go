package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/xid"

	"github.com/sakif/chat-auth/internal/apperror"
	"github.com/sakif/chat-auth/internal/model"
	"github.com/sakif/chat-auth/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

var userColumns = []string{"id", "user_id", "password_hash", "nickname", "created_at", "updated_at"}

// Create inserts a new user. A unique_violation (23505) on user_id or
// nickname returns apperror.ErrDuplicateKey.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := db.sb.
		Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.UserID, user.PasswordHash, user.Nickname, user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("postgres: building insert: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return apperror.DuplicateKey("user already exists", nil)
		}
		return fmt.Errorf("postgres: inserting user %s: %w", user.UserID, err)
	}
	return nil
}

func (db *DB) GetByUserID(ctx context.Context, userID string) (*model.User, error) {
	return db.getOne(ctx, sq.Eq{"user_id": userID}, userID)
}

func (db *DB) GetByNickname(ctx context.Context, nickname string) (*model.User, error) {
	return db.getOne(ctx, sq.Eq{"nickname": nickname}, nickname)
}

func (db *DB) getOne(ctx context.Context, where sq.Eq, key string) (*model.User, error) {
	query, args, err := db.sb.
		Select(userColumns...).
		From("users").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres: building select: %w", err)
	}

	var u model.User
	err = db.conn.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.UserID, &u.PasswordHash, &u.Nickname, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", key, err)
	}
	return &u, nil
}
