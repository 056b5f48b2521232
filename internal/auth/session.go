package auth

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/sessions"
)

const (
	sessionName   = "chat.sid"
	sessionUserID = "uid"

	// SessionTTL is the lifetime of a server-side login session.
	SessionTTL = time.Hour
)

// SessionManager tracks logins that did not ask for persistent tokens.
//
// The browser holds only a signed session ID cookie; the session values live
// server-side in the gorilla/sessions store (files under SESSION_DIR in
// production).
type SessionManager struct {
	store sessions.Store
}

// NewFilesystemSessions creates a SessionManager backed by a
// FilesystemStore in dir, creating the directory if needed.
func NewFilesystemSessions(dir string, secret []byte, secure bool) (*SessionManager, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("auth: creating session dir: %w", err)
	}
	fs := sessions.NewFilesystemStore(dir, secret)
	fs.Options = sessionOptions(secure)
	return &SessionManager{store: fs}, nil
}

// NewSessionManager wraps any gorilla sessions.Store.
func NewSessionManager(store sessions.Store) *SessionManager {
	return &SessionManager{store: store}
}

func sessionOptions(secure bool) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Login binds the user-id to the caller's session.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, userID string) error {
	// A decode error only means the old cookie is unusable; Get still
	// returns a fresh session to write into.
	session, _ := m.store.Get(r, sessionName)
	session.Values[sessionUserID] = userID
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("auth: saving session: %w", err)
	}
	return nil
}

// UserID returns the user-id bound to the caller's session, if any.
func (m *SessionManager) UserID(r *http.Request) (string, bool) {
	session, err := m.store.Get(r, sessionName)
	if err != nil || session.IsNew {
		return "", false
	}
	id, ok := session.Values[sessionUserID].(string)
	return id, ok && id != ""
}

// Logout destroys the caller's session. Calling it without a session is not
// an error.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, sessionName)
	delete(session.Values, sessionUserID)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("auth: destroying session: %w", err)
	}
	return nil
}
