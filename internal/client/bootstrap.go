package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/chat-auth/internal/auth"
	"github.com/sakif/chat-auth/internal/model"
)

// Page is the screen the client shows.
type Page string

const (
	PageLogin    Page = "login"
	PageRegister Page = "register"
	PageChat     Page = "chat"
)

// State is the client's view of who is signed in. The zero value is the
// login page with nobody signed in.
type State struct {
	mu   sync.RWMutex
	page Page
	user *model.Identity
}

func (s *State) Page() Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.page == "" {
		return PageLogin
	}
	return s.page
}

// LoggedUser returns a copy of the signed-in identity, or nil.
func (s *State) LoggedUser() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *State) SetPage(p Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = p
}

// SignIn records id and moves to the chat page.
func (s *State) SignIn(id model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = PageChat
	s.user = &id
}

// SignOut forgets the user and returns to the login page.
func (s *State) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = PageLogin
	s.user = nil
}

// Outcome says which path a bootstrap run took.
type Outcome string

const (
	OutcomeNoSession       Outcome = "no-session"
	OutcomeAccessVerified  Outcome = "access-verified"
	OutcomeRefreshed       Outcome = "refreshed"
	OutcomeRefreshRejected Outcome = "refresh-rejected"
)

// SessionAPI is what the bootstrapper needs from the API client.
type SessionAPI interface {
	ReadAnnouncement(name string) (auth.Announcement, bool)
	AccessToken(ctx context.Context) (*Session, error)
	RefreshToken(ctx context.Context) (*Session, error)
}

// Bootstrapper restores a session on start-up from the announcement
// cookies, without asking the user for credentials.
//
// FLOW:
//
//	accessTokenData present and not expired → POST access-token
//	  ok   → chat + user, done
//	  fail → fall through
//	refreshTokenData absent or expired      → stay on login, no call
//	POST refresh-token
//	  ok   → chat + user
//	  fail → login, no user
type Bootstrapper struct {
	api    SessionAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewBootstrapper(api SessionAPI, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{api: api, logger: logger, now: time.Now}
}

// Run updates state and reports which path was taken. API failures are
// not returned; they only decide the page.
func (b *Bootstrapper) Run(ctx context.Context, state *State) Outcome {
	now := b.now()

	if a, ok := b.api.ReadAnnouncement(auth.AccessDataCookie); ok && now.Before(a.ValidUntil) {
		res, err := b.api.AccessToken(ctx)
		if err == nil && res.User != nil {
			state.SignIn(*res.User)
			return OutcomeAccessVerified
		}
		b.logFailure("access token rejected", err)
	}

	a, ok := b.api.ReadAnnouncement(auth.RefreshDataCookie)
	if !ok || !now.Before(a.ValidUntil) {
		return OutcomeNoSession
	}

	res, err := b.api.RefreshToken(ctx)
	if err != nil || res.User == nil {
		b.logFailure("refresh token rejected", err)
		state.SignOut()
		return OutcomeRefreshRejected
	}
	state.SignIn(*res.User)
	return OutcomeRefreshed
}

func (b *Bootstrapper) logFailure(msg string, err error) {
	if err == nil {
		b.logger.Debug(msg)
		return
	}
	b.logger.Debug(msg, slog.String("error", err.Error()))
}
