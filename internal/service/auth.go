// Package service holds the authentication and chat business logic.
//
// AuthService is the layer between the HTTP handlers and the auth package:
//
//	AuthHandler (HTTP) → AuthService (flows) → Strategy (who is this?)
//	                                         ↘ Issuer (sign token pairs)
//
// Each public method is one client-visible flow: log in, register, verify
// an access token, refresh, look up a session user. The service decides
// WHICH strategy runs and WHETHER tokens are minted. It never touches
// cookies or sessions; those are HTTP concerns left to the handler.
//
// ERRORS:
// Everything the client caused comes back as *apperror.AppError with the
// exact message the client shows. Everything else (storage down, signing
// failed) is a plain wrapped error that the handler turns into a 500.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/chat-auth/internal/apperror"
	"github.com/sakif/chat-auth/internal/auth"
	"github.com/sakif/chat-auth/internal/model"
)

// AuthService runs the login, register and token flows.
//
// DEPENDENCIES (injected via NewAuthService):
//   - store    *auth.CredentialStore → user lookup, creation, password checks
//   - access   *auth.TokenService    → verifies accessToken cookies
//   - refresh  *auth.TokenService    → verifies refreshToken cookies
//   - issuer   *auth.Issuer          → signs a fresh access + refresh pair
//   - logger   *slog.Logger          → structured logging
type AuthService struct {
	login    auth.Strategy
	register auth.Strategy
	access   auth.Strategy
	refresh  auth.Strategy
	issuer   *auth.Issuer
	store    *auth.CredentialStore
	logger   *slog.Logger
}

func NewAuthService(
	store *auth.CredentialStore,
	access, refresh *auth.TokenService,
	issuer *auth.Issuer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		login:    auth.NewPasswordStrategy(store),
		register: auth.NewRegisterStrategy(store),
		access:   auth.NewAccessBearer(access, store),
		refresh:  auth.NewRefreshBearer(refresh, store),
		issuer:   issuer,
		store:    store,
		logger:   logger,
	}
}

// AuthResult is the outcome of a flow that authenticates someone.
// Tokens is nil when the flow does not mint tokens (a login without
// keepLogged relies on a server session instead).
type AuthResult struct {
	Identity model.Identity
	Tokens   *auth.TokenPair
}

// Login checks user-id and password. With keepLogged a token pair is
// minted; without it the caller is expected to start a server session.
func (s *AuthService) Login(ctx context.Context, userID, password string, keepLogged bool) (*AuthResult, error) {
	id, err := s.login.Authenticate(ctx, auth.Credentials{UserID: userID, Password: password})
	if err != nil {
		return nil, err
	}

	result := &AuthResult{Identity: id}
	if keepLogged {
		if result.Tokens, err = s.issuer.Mint(id); err != nil {
			return nil, fmt.Errorf("service/auth: minting tokens for %s: %w", id.ID, err)
		}
	}

	s.logger.Info("user logged in",
		slog.String("userId", id.ID),
		slog.Bool("keepLogged", keepLogged),
	)
	return result, nil
}

// Register creates the account and always mints a token pair.
func (s *AuthService) Register(ctx context.Context, userID, password, nickname string) (*AuthResult, error) {
	id, err := s.register.Authenticate(ctx, auth.Credentials{
		UserID:   userID,
		Password: password,
		Nickname: nickname,
	})
	if err != nil {
		return nil, err
	}

	pair, err := s.issuer.Mint(id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: minting tokens for %s: %w", id.ID, err)
	}

	s.logger.Info("user registered",
		slog.String("userId", id.ID),
		slog.String("nickname", id.Nickname),
	)
	return &AuthResult{Identity: id, Tokens: pair}, nil
}

// VerifyAccess returns the identity behind an access token.
func (s *AuthService) VerifyAccess(ctx context.Context, token string) (model.Identity, error) {
	return s.access.Authenticate(ctx, auth.Credentials{Token: token})
}

// Refresh trades a refresh token for a new token pair.
//
// The new access token is verified once more before the pair is handed
// back, exactly as a client would use it. If that second check fails the
// refresh is reported as failed (400) rather than invalid (401): the
// caller's refresh token was fine, the server could not produce a usable
// access token from it.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apperror.NoToken(auth.MsgRefreshNoToken)
	}

	id, err := s.refresh.Authenticate(ctx, auth.Credentials{Token: refreshToken})
	if err != nil {
		return nil, err
	}

	pair, err := s.issuer.Mint(id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: minting tokens for %s: %w", id.ID, err)
	}

	verified, err := s.access.Authenticate(ctx, auth.Credentials{Token: pair.AccessToken})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			s.logger.Warn("fresh access token failed verification",
				slog.String("userId", id.ID),
				slog.String("error", err.Error()),
			)
			return nil, apperror.BadRequest(auth.MsgRefreshFailed)
		}
		return nil, err
	}
	if verified.Nickname == "" {
		return nil, apperror.BadRequest(auth.MsgRefreshFailed)
	}

	return &AuthResult{Identity: verified, Tokens: pair}, nil
}

// SessionUser resolves the user-id stored in a server session. ok is false
// when the account no longer exists.
func (s *AuthService) SessionUser(ctx context.Context, userID string) (model.Identity, bool, error) {
	user, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Identity{}, false, nil
		}
		return model.Identity{}, false, fmt.Errorf("service/auth: loading session user: %w", err)
	}
	return user.Identity(), true, nil
}
