// Package client talks to the auth API the way the browser frontend does:
// JSON requests, cookies kept in a jar, and a fixed fallback payload when
// the server cannot be reached at all.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"

	"github.com/sakif/chat-auth/internal/apperror"
	"github.com/sakif/chat-auth/internal/auth"
	"github.com/sakif/chat-auth/internal/model"
)

// Fallback messages, returned with status 500 when no usable response
// came back.
const (
	MsgLoginUnavailable    = "Login: Server error. Please try again later."
	MsgAccessUnavailable   = "Access: Server error. Please try again later."
	MsgRefreshUnavailable  = "Refresh: Server error. Please try again later."
	MsgRegisterUnavailable = "Register: Server error. Please try again later."
	MsgLogoutUnavailable   = "Logout: Server error. Please try again later."
	MsgSessionUnavailable  = "Session: Server error. Please try again later."
)

const (
	pathLogin        = "/api/auth/login"
	pathRegister     = "/api/auth/register"
	pathAccessToken  = "/api/auth/access-token"
	pathRefreshToken = "/api/auth/refresh-token"
	pathLogout       = "/api/auth/logout"
	pathCheckSession = "/api/auth/check-session"
)

// APIError is a failed call. Status and Message come from the server's
// error body, or from the fallback when there was none.
type APIError struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Fields  apperror.Fields `json:"fields,omitempty"`

	// Err is the transport or decoding failure behind a fallback.
	Err error `json:"-"`
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// AsAPIError reports whether err carries an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// Session is the success body of login, register, the token endpoints and
// logout. User is nil after logout.
type Session struct {
	Message string          `json:"message"`
	User    *model.Identity `json:"user"`
}

// SessionStatus is the check-session body.
type SessionStatus struct {
	LoggedIn bool            `json:"loggedIn"`
	User     *model.Identity `json:"user,omitempty"`
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is safe for concurrent use. All calls share one cookie jar.
type Client struct {
	rest *resty.Client
	jar  http.CookieJar
	base *url.URL
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:7000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: base url %q needs a scheme and host", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("client: creating cookie jar: %w", err)
	}

	rest := resty.New().
		SetBaseURL(base.String()).
		SetTimeout(cfg.Timeout).
		SetCookieJar(jar)

	return &Client{rest: rest, jar: jar, base: base}, nil
}

// Login posts credentials. With keepLogged the server answers with token
// cookies, otherwise with a server session cookie.
func (c *Client) Login(ctx context.Context, userID, password string, keepLogged bool) (*Session, error) {
	body := map[string]any{"userId": userID, "password": password, "keepLogged": keepLogged}
	fallback := &APIError{
		Status:  http.StatusInternalServerError,
		Message: MsgLoginUnavailable,
		Fields:  apperror.NewFields(auth.FieldUserID, auth.FieldPassword),
	}
	var out Session
	if err := c.post(ctx, pathLogin, body, &out, fallback); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, userID, password, nickname string) (*Session, error) {
	body := map[string]string{"userId": userID, "password": password, "nickname": nickname}
	fallback := &APIError{
		Status:  http.StatusInternalServerError,
		Message: MsgRegisterUnavailable,
		Fields:  apperror.NewFields(auth.FieldUserID, auth.FieldPassword, auth.FieldNickname),
	}
	var out Session
	if err := c.post(ctx, pathRegister, body, &out, fallback); err != nil {
		return nil, err
	}
	return &out, nil
}

// AccessToken asks the server to verify the accessToken cookie.
func (c *Client) AccessToken(ctx context.Context) (*Session, error) {
	var out Session
	if err := c.post(ctx, pathAccessToken, nil, &out, unavailable(MsgAccessUnavailable)); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken trades the refreshToken cookie for a fresh pair.
func (c *Client) RefreshToken(ctx context.Context) (*Session, error) {
	var out Session
	if err := c.post(ctx, pathRefreshToken, nil, &out, unavailable(MsgRefreshUnavailable)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, userID string) (*Session, error) {
	body := map[string]string{"userId": userID}
	var out Session
	if err := c.post(ctx, pathLogout, body, &out, unavailable(MsgLogoutUnavailable)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CheckSession(ctx context.Context) (*SessionStatus, error) {
	var out SessionStatus
	resp, reqErr := c.rest.R().SetContext(ctx).Get(pathCheckSession)
	if err := decodeResponse(resp, reqErr, &out, unavailable(MsgSessionUnavailable)); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadAnnouncement returns the parsed value of one of the script-readable
// *Data cookies. ok is false when the cookie is absent or unreadable.
func (c *Client) ReadAnnouncement(name string) (auth.Announcement, bool) {
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name != name {
			continue
		}
		a, err := auth.DecodeAnnouncement(ck.Value)
		if err != nil {
			return auth.Announcement{}, false
		}
		return a, true
	}
	return auth.Announcement{}, false
}

func (c *Client) post(ctx context.Context, path string, body, out any, fallback *APIError) error {
	req := c.rest.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Post(path)
	return decodeResponse(resp, err, out, fallback)
}

// decodeResponse fills out from a 2xx body. A non-2xx answer becomes the
// server's own error body; anything unreadable becomes fallback.
func decodeResponse(resp *resty.Response, reqErr error, out any, fallback *APIError) error {
	if reqErr != nil {
		return withCause(fallback, reqErr)
	}

	raw := resp.Body()
	if !resp.IsSuccess() {
		var apiErr APIError
		if err := json.Unmarshal(raw, &apiErr); err != nil {
			return withCause(fallback, fmt.Errorf("decoding %d response: %w", resp.StatusCode(), err))
		}
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode()
		}
		return &apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return withCause(fallback, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func unavailable(message string) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: message}
}

func withCause(fallback *APIError, err error) *APIError {
	fallback.Err = err
	return fallback
}
