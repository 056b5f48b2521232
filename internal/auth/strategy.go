package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sakif/chat-auth/internal/apperror"
	"github.com/sakif/chat-auth/internal/model"
	"github.com/sakif/chat-auth/internal/validation"
)

// Kind identifies one of the four authentication strategies.
type Kind int

const (
	KindPassword Kind = iota
	KindRegister
	KindAccessBearer
	KindRefreshBearer
)

func (k Kind) String() string {
	switch k {
	case KindPassword:
		return "password"
	case KindRegister:
		return "register"
	case KindAccessBearer:
		return "access-bearer"
	case KindRefreshBearer:
		return "refresh-bearer"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Credentials is everything a strategy may look at. Password strategies read
// UserID/Password/Nickname; bearer strategies read Token.
type Credentials struct {
	UserID   string
	Password string
	Nickname string
	Token    string
}

// Strategy authenticates one kind of credential.
//
// On failure the error is an *apperror.AppError for anything the client
// caused (bad input, wrong password, bad token) and a plain wrapped error for
// anything it did not (storage down). Handlers map the former to 4xx and the
// latter to 500.
type Strategy interface {
	Kind() Kind
	Authenticate(ctx context.Context, c Credentials) (model.Identity, error)
}

var (
	_ Strategy = (*PasswordStrategy)(nil)
	_ Strategy = (*RegisterStrategy)(nil)
	_ Strategy = (*BearerStrategy)(nil)
)

// =========================================================================
// PASSWORD
// =========================================================================

// PasswordStrategy logs in an existing user with user-id and password.
type PasswordStrategy struct {
	store *CredentialStore
}

func NewPasswordStrategy(store *CredentialStore) *PasswordStrategy {
	return &PasswordStrategy{store: store}
}

func (s *PasswordStrategy) Kind() Kind { return KindPassword }

// Authenticate validates input, then looks up and verifies the user.
// Unknown user and wrong password produce the same error.
func (s *PasswordStrategy) Authenticate(ctx context.Context, c Credentials) (model.Identity, error) {
	fields := apperror.NewFields(FieldUserID, FieldPassword)

	if v := validation.ValidateLogin(c.UserID, c.Password); !v.Valid() {
		fields.Add(FieldUserID, v.UserID)
		fields.Add(FieldPassword, v.Password)
		return model.Identity{}, apperror.Validation(MsgInvalidCredentials, fields)
	}

	user, err := s.store.FindByUserID(ctx, c.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Identity{}, apperror.InvalidCredentials(MsgInvalidCredentials, fields)
		}
		return model.Identity{}, fmt.Errorf("password strategy: %w", err)
	}

	if err := s.store.Verify(user, c.Password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return model.Identity{}, apperror.InvalidCredentials(MsgInvalidCredentials, fields)
		}
		return model.Identity{}, fmt.Errorf("password strategy: %w", err)
	}

	return user.Identity(), nil
}

// =========================================================================
// REGISTER
// =========================================================================

// RegisterStrategy creates a user and authenticates as them.
type RegisterStrategy struct {
	store *CredentialStore
}

func NewRegisterStrategy(store *CredentialStore) *RegisterStrategy {
	return &RegisterStrategy{store: store}
}

func (s *RegisterStrategy) Kind() Kind { return KindRegister }

func (s *RegisterStrategy) Authenticate(ctx context.Context, c Credentials) (model.Identity, error) {
	if v := validation.ValidateRegister(c.UserID, c.Password, c.Nickname); !v.Valid() {
		fields := apperror.NewFields(FieldUserID, FieldPassword, FieldNickname)
		fields.Add(FieldUserID, v.UserID)
		fields.Add(FieldPassword, v.Password)
		fields.Add(FieldNickname, v.Nickname)
		return model.Identity{}, apperror.Validation(MsgRegisterInvalid, fields)
	}

	user, err := s.store.Create(ctx, model.NewUser{
		UserID:   c.UserID,
		Password: c.Password,
		Nickname: c.Nickname,
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return model.Identity{}, err
		}
		return model.Identity{}, fmt.Errorf("register strategy: %w", err)
	}
	return user.Identity(), nil
}

// =========================================================================
// BEARER
// =========================================================================

// BearerStrategy authenticates a signed token taken from a cookie.
//
// The token only proves who the caller was when it was signed. The user is
// re-read from the store by the token's id, so a deleted account stops
// authenticating immediately and the nickname always comes from the store.
type BearerStrategy struct {
	kind   Kind
	cookie string
	tokens *TokenService
	store  *CredentialStore
	reject func() *apperror.AppError
}

// NewAccessBearer verifies accessToken cookies. Failures are Unauthorized.
func NewAccessBearer(tokens *TokenService, store *CredentialStore) *BearerStrategy {
	return &BearerStrategy{
		kind:   KindAccessBearer,
		cookie: AccessCookie,
		tokens: tokens,
		store:  store,
		reject: func() *apperror.AppError { return apperror.Unauthorized(MsgAccessInvalid) },
	}
}

// NewRefreshBearer verifies refreshToken cookies. Failures are InvalidToken.
func NewRefreshBearer(tokens *TokenService, store *CredentialStore) *BearerStrategy {
	return &BearerStrategy{
		kind:   KindRefreshBearer,
		cookie: RefreshCookie,
		tokens: tokens,
		store:  store,
		reject: func() *apperror.AppError { return apperror.InvalidToken(MsgRefreshInvalid) },
	}
}

func (s *BearerStrategy) Kind() Kind { return s.kind }

// CookieName is the cookie this strategy reads its token from.
func (s *BearerStrategy) CookieName() string { return s.cookie }

// TokenFromRequest returns the token cookie value, or "" when absent.
func (s *BearerStrategy) TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(s.cookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *BearerStrategy) Authenticate(ctx context.Context, c Credentials) (model.Identity, error) {
	if c.Token == "" {
		return model.Identity{}, s.reject()
	}

	claims, err := s.tokens.Validate(c.Token)
	if err != nil {
		return model.Identity{}, s.reject()
	}

	user, err := s.store.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Identity{}, s.reject()
		}
		return model.Identity{}, fmt.Errorf("%s strategy: %w", s.kind, err)
	}
	return user.Identity(), nil
}
