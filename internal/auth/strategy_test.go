package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/chat-auth/internal/apperror"
	"github.com/sakif/chat-auth/internal/model"
	"github.com/sakif/chat-auth/internal/validation"
)

// appErrorOf fails the test unless err carries an *apperror.AppError.
func appErrorOf(t *testing.T, err error) *apperror.AppError {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an *apperror.AppError", err)
	}
	return appErr
}

// =========================================================================
// PASSWORD STRATEGY
// =========================================================================

func TestPasswordStrategy_Success(t *testing.T) {
	store, _ := newTestCredentialStore(t)
	mustRegister(t, store, "alice@example.com", "secret123", "alice")

	id, err := NewPasswordStrategy(store).Authenticate(context.Background(),
		Credentials{UserID: "alice@example.com", Password: "secret123"})

	require.NoError(t, err)
	assert.Equal(t, model.Identity{ID: "alice@example.com", Nickname: "alice"}, id)
}

func TestPasswordStrategy_ValidationFailure(t *testing.T) {
	store, _ := newTestCredentialStore(t)

	_, err := NewPasswordStrategy(store).Authenticate(context.Background(),
		Credentials{UserID: "not-an-email", Password: "short"})

	appErr := appErrorOf(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, MsgInvalidCredentials, appErr.Message)
	assert.Equal(t, []string{validation.MsgInvalidUserID}, appErr.Fields[FieldUserID])
	assert.Equal(t, []string{validation.MsgInvalidPassword}, appErr.Fields[FieldPassword])
}

func TestPasswordStrategy_UnknownUserAndWrongPasswordLookTheSame(t *testing.T) {
	store, _ := newTestCredentialStore(t)
	mustRegister(t, store, "alice@example.com", "secret123", "alice")
	s := NewPasswordStrategy(store)

	_, unknownErr := s.Authenticate(context.Background(),
		Credentials{UserID: "nobody@example.com", Password: "secret123"})
	_, wrongErr := s.Authenticate(context.Background(),
		Credentials{UserID: "alice@example.com", Password: "wrongpass1"})

	a, b := appErrorOf(t, unknownErr), appErrorOf(t, wrongErr)
	assert.ErrorIs(t, unknownErr, apperror.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, apperror.ErrInvalidCredentials)
	assert.Equal(t, a.Message, b.Message)
	assert.Equal(t, a.Fields, b.Fields)
	assert.Equal(t, apperror.Fields{FieldUserID: {}, FieldPassword: {}}, a.Fields)
}

func TestPasswordStrategy_StorageFailureIsInternal(t *testing.T) {
	store, repo := newTestCredentialStore(t)
	repo.getErr = errors.New("connection reset")

	_, err := NewPasswordStrategy(store).Authenticate(context.Background(),
		Credentials{UserID: "alice@example.com", Password: "secret123"})

	require.Error(t, err)
	var appErr *apperror.AppError
	assert.False(t, errors.As(err, &appErr))
}

// =========================================================================
// REGISTER STRATEGY
// =========================================================================

func TestRegisterStrategy_Success(t *testing.T) {
	store, _ := newTestCredentialStore(t)

	id, err := NewRegisterStrategy(store).Authenticate(context.Background(),
		Credentials{UserID: "bob@example.com", Password: "secret123", Nickname: "bob"})

	require.NoError(t, err)
	assert.Equal(t, model.Identity{ID: "bob@example.com", Nickname: "bob"}, id)

	_, err = store.FindByNickname(context.Background(), "bob")
	assert.NoError(t, err)
}

func TestRegisterStrategy_ValidationFailure(t *testing.T) {
	store, _ := newTestCredentialStore(t)

	_, err := NewRegisterStrategy(store).Authenticate(context.Background(),
		Credentials{UserID: "bob@example.com", Password: "secret123", Nickname: "b"})

	appErr := appErrorOf(t, err)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, MsgRegisterInvalid, appErr.Message)
	assert.Empty(t, appErr.Fields[FieldUserID])
	assert.Empty(t, appErr.Fields[FieldPassword])
	assert.Equal(t, []string{validation.MsgInvalidNickname}, appErr.Fields[FieldNickname])
}

func TestRegisterStrategy_Duplicate(t *testing.T) {
	store, _ := newTestCredentialStore(t)
	mustRegister(t, store, "bob@example.com", "secret123", "bob")

	_, err := NewRegisterStrategy(store).Authenticate(context.Background(),
		Credentials{UserID: "bob@example.com", Password: "secret123", Nickname: "bobby"})

	appErr := appErrorOf(t, err)
	assert.ErrorIs(t, err, apperror.ErrDuplicateKey)
	assert.Equal(t, []string{MsgUserIDExists}, appErr.Fields[FieldUserID])
}

// =========================================================================
// BEARER STRATEGIES
// =========================================================================

func newTestBearers(t *testing.T) (access, refresh *BearerStrategy, issuer *Issuer, store *CredentialStore, repo *fakeUserRepo) {
	t.Helper()
	store, repo = newTestCredentialStore(t)
	issuer = newTestIssuer(t, false)
	return NewAccessBearer(issuer.access, store), NewRefreshBearer(issuer.refresh, store), issuer, store, repo
}

func TestBearer_AccessRoundTrip(t *testing.T) {
	access, _, issuer, store, _ := newTestBearers(t)
	mustRegister(t, store, "alice@example.com", "secret123", "alice")
	pair, _ := issuer.Mint(alice)

	id, err := access.Authenticate(context.Background(), Credentials{Token: pair.AccessToken})

	require.NoError(t, err)
	assert.Equal(t, alice, id)
	assert.Equal(t, KindAccessBearer, access.Kind())
	assert.Equal(t, AccessCookie, access.CookieName())
}

func TestBearer_NicknameComesFromStore(t *testing.T) {
	access, _, issuer, store, _ := newTestBearers(t)
	mustRegister(t, store, "alice@example.com", "secret123", "alice")
	pair, _ := issuer.Mint(model.Identity{ID: "alice@example.com", Nickname: "stale"})

	id, err := access.Authenticate(context.Background(), Credentials{Token: pair.AccessToken})

	require.NoError(t, err)
	assert.Equal(t, "alice", id.Nickname)
}

func TestBearer_FailureKinds(t *testing.T) {
	access, refresh, issuer, store, repo := newTestBearers(t)
	mustRegister(t, store, "alice@example.com", "secret123", "alice")
	pair, _ := issuer.Mint(alice)

	expired := issuer.access
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	oldToken, _, _ := expired.Generate(alice)
	expired.now = time.Now

	cases := []struct {
		name     string
		strategy *BearerStrategy
		token    string
		sentinel error
	}{
		{"access: empty", access, "", apperror.ErrUnauthorized},
		{"access: garbage", access, "garbage", apperror.ErrUnauthorized},
		{"access: refresh token", access, pair.RefreshToken, apperror.ErrUnauthorized},
		{"access: expired", access, oldToken, apperror.ErrUnauthorized},
		{"refresh: access token", refresh, pair.AccessToken, apperror.ErrInvalidToken},
		{"refresh: garbage", refresh, "x.y.z", apperror.ErrInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.strategy.Authenticate(context.Background(), Credentials{Token: tc.token})
			assert.ErrorIs(t, err, tc.sentinel)
		})
	}

	t.Run("deleted user", func(t *testing.T) {
		repo.delete("alice@example.com")
		_, err := refresh.Authenticate(context.Background(), Credentials{Token: pair.RefreshToken})
		assert.ErrorIs(t, err, apperror.ErrInvalidToken)
		assert.Equal(t, MsgRefreshInvalid, appErrorOf(t, err).Message)
	})
}

func TestBearer_StorageFailureIsInternal(t *testing.T) {
	access, _, issuer, _, repo := newTestBearers(t)
	pair, _ := issuer.Mint(alice)
	repo.getErr = errors.New("timeout")

	_, err := access.Authenticate(context.Background(), Credentials{Token: pair.AccessToken})

	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "password", KindPassword.String())
	assert.Equal(t, "refresh-bearer", KindRefreshBearer.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
