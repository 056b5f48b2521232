package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T, secure bool) *Issuer {
	t.Helper()
	return NewIssuer(
		newTestTokenService(t, testAccessSecret, AccessTokenTTL),
		newTestTokenService(t, testRefreshSecret, RefreshTokenTTL),
		secure,
	)
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

// =========================================================================
// MINT TESTS
// =========================================================================

func TestMint_TokensVerifyOnlyWithTheirOwnSecret(t *testing.T) {
	iss := newTestIssuer(t, false)

	pair, err := iss.Mint(alice)
	require.NoError(t, err)

	claims, err := iss.access.Validate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.Identity())

	claims, err = iss.refresh.Validate(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.Identity())

	_, err = iss.access.Validate(pair.RefreshToken)
	assert.Error(t, err)
}

func TestMint_Lifetimes(t *testing.T) {
	iss := newTestIssuer(t, false)
	before := time.Now().Truncate(time.Second)

	pair, err := iss.Mint(alice)
	require.NoError(t, err)

	assert.WithinDuration(t, before.Add(15*time.Minute), pair.AccessExpiresAt, 2*time.Second)
	assert.WithinDuration(t, before.Add(7*24*time.Hour), pair.RefreshExpiresAt, 2*time.Second)
}

// =========================================================================
// COOKIE TESTS
// =========================================================================

func TestWriteCookies_Attributes(t *testing.T) {
	iss := newTestIssuer(t, false)
	pair, err := iss.Mint(alice)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, iss.WriteCookies(rec, pair))
	got := cookiesByName(rec)

	tests := []struct {
		name     string
		httpOnly bool
		maxAge   int
	}{
		{AccessCookie, true, 900},
		{RefreshCookie, true, 604800},
		{AccessDataCookie, false, 900},
		{RefreshDataCookie, false, 604800},
	}
	for _, tt := range tests {
		c, ok := got[tt.name]
		if !assert.True(t, ok, "cookie %s not set", tt.name) {
			continue
		}
		assert.Equal(t, tt.httpOnly, c.HttpOnly, "%s HttpOnly", tt.name)
		assert.Equal(t, tt.maxAge, c.MaxAge, "%s MaxAge", tt.name)
		assert.False(t, c.Secure, "%s Secure outside production", tt.name)
		assert.Equal(t, "/", c.Path)
	}

	assert.Equal(t, pair.AccessToken, got[AccessCookie].Value)
	assert.Equal(t, pair.RefreshToken, got[RefreshCookie].Value)
}

func TestWriteCookies_SecureInProduction(t *testing.T) {
	iss := newTestIssuer(t, true)
	pair, _ := iss.Mint(alice)

	rec := httptest.NewRecorder()
	require.NoError(t, iss.WriteCookies(rec, pair))

	for name, c := range cookiesByName(rec) {
		assert.True(t, c.Secure, "%s should be Secure", name)
	}
}

func TestWriteCookies_AnnouncementMatchesTokenExpiry(t *testing.T) {
	iss := newTestIssuer(t, false)
	pair, _ := iss.Mint(alice)

	rec := httptest.NewRecorder()
	require.NoError(t, iss.WriteCookies(rec, pair))
	got := cookiesByName(rec)

	access, err := DecodeAnnouncement(got[AccessDataCookie].Value)
	require.NoError(t, err)
	claims, err := iss.access.Validate(pair.AccessToken)
	require.NoError(t, err)
	assert.True(t, access.ValidUntil.Equal(claims.ExpiresAt.Time),
		"validUntil %v != exp %v", access.ValidUntil, claims.ExpiresAt.Time)

	refresh, err := DecodeAnnouncement(got[RefreshDataCookie].Value)
	require.NoError(t, err)
	assert.True(t, refresh.ValidUntil.Equal(pair.RefreshExpiresAt))
}

func TestClearCookies_ExpiresAllFour(t *testing.T) {
	iss := newTestIssuer(t, false)
	rec := httptest.NewRecorder()

	iss.ClearCookies(rec)

	got := cookiesByName(rec)
	require.Len(t, got, 4)
	for name, c := range got {
		assert.Equal(t, -1, c.MaxAge, "%s should be expired", name)
		assert.Empty(t, c.Value)
	}
}

func TestDecodeAnnouncement_Garbage(t *testing.T) {
	_, err := DecodeAnnouncement("%7Bnot-json")
	assert.Error(t, err)

	_, err = DecodeAnnouncement("%zz")
	assert.Error(t, err)
}
