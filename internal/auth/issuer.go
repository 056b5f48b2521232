package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sakif/chat-auth/internal/model"
)

// Cookie names. The two *Data cookies are readable by scripts and only
// announce when the matching token expires; they grant nothing.
const (
	AccessCookie      = "accessToken"
	RefreshCookie     = "refreshToken"
	AccessDataCookie  = "accessTokenData"
	RefreshDataCookie = "refreshTokenData"
)

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Announcement is the payload of the *Data cookies.
type Announcement struct {
	ValidUntil time.Time `json:"validUntil"`
}

// EncodeAnnouncement renders an announcement as a cookie value.
//
// The JSON is URL-escaped: net/http drops '"' from cookie values, and the
// client side unescapes before parsing.
func EncodeAnnouncement(a Announcement) (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("auth: encoding announcement: %w", err)
	}
	return url.QueryEscape(string(b)), nil
}

// DecodeAnnouncement parses a cookie value written by EncodeAnnouncement.
func DecodeAnnouncement(raw string) (Announcement, error) {
	var a Announcement
	s, err := url.QueryUnescape(raw)
	if err != nil {
		return a, fmt.Errorf("auth: unescaping announcement: %w", err)
	}
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return a, fmt.Errorf("auth: decoding announcement: %w", err)
	}
	return a, nil
}

// Issuer mints token pairs and writes them as cookies.
type Issuer struct {
	access  *TokenService
	refresh *TokenService
	secure  bool
}

// NewIssuer wires the access and refresh token services. secure marks every
// cookie Secure, which browsers only honour over HTTPS; set it in production.
func NewIssuer(access, refresh *TokenService, secure bool) *Issuer {
	return &Issuer{access: access, refresh: refresh, secure: secure}
}

// Mint signs a new access and refresh token for the identity.
func (i *Issuer) Mint(id model.Identity) (*TokenPair, error) {
	accessToken, accessExp, err := i.access.Generate(id)
	if err != nil {
		return nil, fmt.Errorf("minting access token: %w", err)
	}
	refreshToken, refreshExp, err := i.refresh.Generate(id)
	if err != nil {
		return nil, fmt.Errorf("minting refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// WriteCookies sets the four token cookies for pair.
//
//	accessToken       HttpOnly  15m
//	refreshToken      HttpOnly  7d
//	accessTokenData   readable  15m   {"validUntil": <access exp>}
//	refreshTokenData  readable  7d    {"validUntil": <refresh exp>}
func (i *Issuer) WriteCookies(w http.ResponseWriter, pair *TokenPair) error {
	accessData, err := EncodeAnnouncement(Announcement{ValidUntil: pair.AccessExpiresAt})
	if err != nil {
		return err
	}
	refreshData, err := EncodeAnnouncement(Announcement{ValidUntil: pair.RefreshExpiresAt})
	if err != nil {
		return err
	}

	http.SetCookie(w, i.cookie(AccessCookie, pair.AccessToken, i.access.TTL(), true))
	http.SetCookie(w, i.cookie(RefreshCookie, pair.RefreshToken, i.refresh.TTL(), true))
	http.SetCookie(w, i.cookie(AccessDataCookie, accessData, i.access.TTL(), false))
	http.SetCookie(w, i.cookie(RefreshDataCookie, refreshData, i.refresh.TTL(), false))
	return nil
}

// ClearCookies expires all four token cookies.
func (i *Issuer) ClearCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := i.cookie(name, "", 0, true)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
	for _, name := range []string{AccessDataCookie, RefreshDataCookie} {
		c := i.cookie(name, "", 0, false)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (i *Issuer) cookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: httpOnly,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
