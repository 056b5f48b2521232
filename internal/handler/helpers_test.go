package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/chat-auth/internal/apperror"
	"github.com/sakif/chat-auth/internal/auth"
	"github.com/sakif/chat-auth/internal/chat"
	"github.com/sakif/chat-auth/internal/handler"
	"github.com/sakif/chat-auth/internal/model"
	"github.com/sakif/chat-auth/internal/service"
)

// =========================================================================
// FAKE REPOSITORY
// =========================================================================

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	getErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.UserID == u.UserID || existing.Nickname == u.Nickname {
			return apperror.DuplicateKey("user already exists", nil)
		}
	}
	u.ID = "fake-" + u.UserID
	copied := *u
	f.users[u.UserID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByUserID(_ context.Context, userID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.users[userID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, apperror.NotFound("user", userID)
}

func (f *fakeUserRepo) GetByNickname(_ context.Context, nickname string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Nickname == nickname {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", nickname)
}

func (f *fakeUserRepo) failLookups(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

// =========================================================================
// TEST SERVER
// =========================================================================

type testEnv struct {
	server *httptest.Server
	client *http.Client
	repo   *fakeUserRepo
}

// newTestEnv wires the real handlers, services and auth pieces over a fake
// repository and memory chat backend, mounted the way the server mounts them.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	access, err := auth.NewTokenService("access-secret-0123456789", auth.AccessTokenTTL)
	require.NoError(t, err)
	refresh, err := auth.NewTokenService("refresh-secret-0123456789", auth.RefreshTokenTTL)
	require.NoError(t, err)
	sessions, err := auth.NewFilesystemSessions(filepath.Join(t.TempDir(), "sessions"),
		[]byte("session-secret-0123456789abcdef"), false)
	require.NoError(t, err)

	repo := newFakeUserRepo()
	store := auth.NewCredentialStore(repo, auth.NewPasswordService(bcrypt.MinCost))
	issuer := auth.NewIssuer(access, refresh, false)
	guard := auth.NewGuard(auth.NewAccessBearer(access, store), sessions, store, logger)

	broker := chat.NewMemoryBroker()
	t.Cleanup(func() { broker.Close() })

	authHandler := handler.NewAuthHandler(
		service.NewAuthService(store, access, refresh, issuer, logger), issuer, sessions, logger)
	chatHandler := handler.NewChatHandler(
		service.NewChatService(chat.NewMemoryStore(), broker, logger), "http://frontend.test", logger)

	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/access-token", authHandler.HandleAccessToken)
		r.Post("/refresh-token", authHandler.HandleRefreshToken)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/check-session", authHandler.HandleCheckSession)
	})
	r.Route("/api/chat", func(r chi.Router) {
		r.Use(guard.RequireAuth)
		r.Get("/messages", chatHandler.HandleList)
		r.Post("/messages", chatHandler.HandlePost)
		r.Get("/subscribe", chatHandler.HandleSubscribe)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, client: newClient(t), repo: repo}
}

// newClient returns a client with its own cookie jar, like a browser tab.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (e *testEnv) do(t *testing.T, c *http.Client, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (e *testEnv) register(t *testing.T, c *http.Client, userID, password, nickname string) {
	t.Helper()
	resp, body := e.do(t, c, http.MethodPost, "/api/auth/register",
		map[string]string{"userId": userID, "password": password, "nickname": nickname})
	require.Equal(t, http.StatusOK, resp.StatusCode, "register: %v", body)
}

func cookieNamed(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
