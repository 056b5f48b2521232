// Package handler contains the HTTP handlers.
//
// Handlers parse the request, call a service, and write the response. They
// hold no business rules; the status code for an error is decided in one
// place, writeError.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/chat-auth/internal/auth"
	"github.com/sakif/chat-auth/internal/model"
	"github.com/sakif/chat-auth/internal/service"
)

// AuthHandler serves the /api/auth endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin         → password login; tokens or a server session
//   - HandleRegister      → create the account, always tokens
//   - HandleAccessToken   → who does this accessToken cookie belong to?
//   - HandleRefreshToken  → trade the refreshToken cookie for a new pair
//   - HandleLogout        → clear all four cookies and the session
//   - HandleCheckSession  → is there a server session?
//
// The service decides who the caller is. This handler owns everything HTTP:
// reading cookies and bodies, writing cookies, starting and ending sessions.
type AuthHandler struct {
	svc      *service.AuthService
	issuer   *auth.Issuer
	sessions *auth.SessionManager
	logger   *slog.Logger
}

func NewAuthHandler(
	svc *service.AuthService,
	issuer *auth.Issuer,
	sessions *auth.SessionManager,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		issuer:   issuer,
		sessions: sessions,
		logger:   logger,
	}
}

type loginRequest struct {
	UserID     string `json:"userId"`
	Password   string `json:"password"`
	KeepLogged bool   `json:"keepLogged"`
}

type registerRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// userResponse is the success body of every auth endpoint except
// check-session. User is null after logout.
type userResponse struct {
	Message string          `json:"message"`
	User    *model.Identity `json:"user"`
}

type sessionResponse struct {
	LoggedIn bool            `json:"loggedIn"`
	User     *model.Identity `json:"user,omitempty"`
}

// HandleLogin authenticates with user-id and password.
//
// HTTP: POST /api/auth/login {userId, password, keepLogged}
//
// keepLogged=true  → access + refresh cookies, no session
// keepLogged=false → a server session cookie, no tokens
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req := decodeBody[loginRequest](w, r)

	res, err := h.svc.Login(r.Context(), req.UserID, req.Password, req.KeepLogged)
	if err != nil {
		writeError(w, h.logger, err, auth.MsgLoginInternal)
		return
	}

	if res.Tokens != nil {
		err = h.issuer.WriteCookies(w, res.Tokens)
	} else {
		err = h.sessions.Login(w, r, res.Identity.ID)
	}
	if err != nil {
		writeError(w, h.logger, err, auth.MsgLoginInternal)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Message: auth.MsgLoginSuccess, User: &res.Identity})
}

// HandleRegister creates an account and logs it in with tokens.
//
// HTTP: POST /api/auth/register {userId, password, nickname}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req := decodeBody[registerRequest](w, r)

	res, err := h.svc.Register(r.Context(), req.UserID, req.Password, req.Nickname)
	if err != nil {
		writeError(w, h.logger, err, auth.MsgRegisterInternal)
		return
	}
	if err := h.issuer.WriteCookies(w, res.Tokens); err != nil {
		writeError(w, h.logger, err, auth.MsgRegisterInternal)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Message: auth.MsgRegisterSuccess, User: &res.Identity})
}

// HandleAccessToken verifies the accessToken cookie.
//
// HTTP: POST /api/auth/access-token
func (h *AuthHandler) HandleAccessToken(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.VerifyAccess(r.Context(), cookieValue(r, auth.AccessCookie))
	if err != nil {
		writeError(w, h.logger, err, auth.MsgAccessInternal)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Message: auth.MsgUserVerified, User: &id})
}

// HandleRefreshToken issues a new token pair for a valid refreshToken cookie.
//
// HTTP: POST /api/auth/refresh-token
//
// Cookies are only rewritten once the whole refresh succeeded; a failed
// refresh leaves the client's cookies as they were.
func (h *AuthHandler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Refresh(r.Context(), cookieValue(r, auth.RefreshCookie))
	if err != nil {
		writeError(w, h.logger, err, auth.MsgRefreshInternal)
		return
	}
	if err := h.issuer.WriteCookies(w, res.Tokens); err != nil {
		writeError(w, h.logger, err, auth.MsgRefreshInternal)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Message: auth.MsgTokenRefreshed, User: &res.Identity})
}

// HandleLogout clears every auth cookie and ends the server session.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.issuer.ClearCookies(w)
	if err := h.sessions.Logout(w, r); err != nil {
		writeError(w, h.logger, err, auth.MsgLogoutInternal)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{Message: auth.MsgLogoutSuccess, User: nil})
}

// HandleCheckSession reports whether the caller has a server session.
// Token cookies are not consulted here.
//
// HTTP: GET /api/auth/check-session
func (h *AuthHandler) HandleCheckSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.sessions.UserID(r)
	if !ok {
		writeJSON(w, http.StatusOK, sessionResponse{LoggedIn: false})
		return
	}

	id, found, err := h.svc.SessionUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load session user",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
	}
	if err != nil || !found {
		writeJSON(w, http.StatusOK, sessionResponse{LoggedIn: false})
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{LoggedIn: true, User: &id})
}

// cookieValue returns the named cookie's value, or "" when absent.
func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
