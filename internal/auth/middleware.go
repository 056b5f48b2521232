package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/chat-auth/internal/apperror"
	"github.com/sakif/chat-auth/internal/model"
)

// contextKey is unexported so only this package can set or read identities
// in a request context.
type contextKey string

const identityKey contextKey = "identity"

// Guard resolves the caller's identity from either an access-token cookie
// or a server-side session, in that order.
type Guard struct {
	access   *BearerStrategy
	sessions *SessionManager
	store    *CredentialStore
	logger   *slog.Logger
}

func NewGuard(access *BearerStrategy, sessions *SessionManager, store *CredentialStore, logger *slog.Logger) *Guard {
	return &Guard{access: access, sessions: sessions, store: store, logger: logger}
}

// Resolve returns the caller's identity. It returns an error wrapping
// apperror.ErrUnauthorized when neither credential is usable.
func (g *Guard) Resolve(r *http.Request) (model.Identity, error) {
	if token := g.access.TokenFromRequest(r); token != "" {
		id, err := g.access.Authenticate(r.Context(), Credentials{Token: token})
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, apperror.ErrUnauthorized) {
			return model.Identity{}, err
		}
	}

	userID, ok := g.sessions.UserID(r)
	if !ok {
		return model.Identity{}, apperror.Unauthorized(MsgAccessInvalid)
	}
	user, err := g.store.FindByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Identity{}, apperror.Unauthorized(MsgAccessInvalid)
		}
		return model.Identity{}, err
	}
	return user.Identity(), nil
}

// RequireAuth rejects requests without a usable identity with 401 and puts
// the identity in the context for the rest.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Resolve(r)
		if err != nil {
			status := http.StatusUnauthorized
			message := MsgAccessInvalid
			if !errors.Is(err, apperror.ErrUnauthorized) {
				g.logger.Error("resolving identity", slog.String("error", err.Error()))
				status = http.StatusInternalServerError
				message = MsgAccessInternal
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{"message": message, "status": status})
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromContext returns the identity RequireAuth stored, if any.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.ID != ""
}
