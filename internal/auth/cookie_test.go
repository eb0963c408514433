package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionCookies() *SessionCookies {
	codec := NewTokenCodec(testSecret, time.Hour)
	return NewSessionCookies(codec, CookieConfig{
		Domain:   "example.com",
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func findSessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			return cookie
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionCookiesIssue(t *testing.T) {
	sessions := newTestSessionCookies()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	w := httptest.NewRecorder()
	require.NoError(t, sessions.Issue(w, 42, now))

	cookie := findSessionCookie(t, w)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, "example.com", cookie.Domain)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteNoneMode, cookie.SameSite)
	assert.WithinDuration(t, now.Add(time.Hour), cookie.Expires, time.Second)

	// The cookie value is a verifiable token for the same user.
	userID, err := sessions.codec.Verify(cookie.Value, now)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
}

func TestSessionCookiesRead(t *testing.T) {
	sessions := newTestSessionCookies()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := sessions.Read(r)
	assert.False(t, ok, "absent cookie should read as unauthenticated")

	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "token-value"})
	token, ok := sessions.Read(r)
	assert.True(t, ok)
	assert.Equal(t, "token-value", token)
}

func TestSessionCookiesClearMatchesIssueAttributes(t *testing.T) {
	sessions := newTestSessionCookies()
	now := time.Now()

	issued := httptest.NewRecorder()
	require.NoError(t, sessions.Issue(issued, 1, now))
	issuedCookie := findSessionCookie(t, issued)

	cleared := httptest.NewRecorder()
	sessions.Clear(cleared)
	clearedCookie := findSessionCookie(t, cleared)

	// Browsers only delete a cookie when the deletion instruction
	// carries the same scope attributes it was set with.
	assert.Equal(t, issuedCookie.Path, clearedCookie.Path)
	assert.Equal(t, issuedCookie.Domain, clearedCookie.Domain)
	assert.Equal(t, issuedCookie.Secure, clearedCookie.Secure)
	assert.Equal(t, issuedCookie.SameSite, clearedCookie.SameSite)
	assert.Negative(t, clearedCookie.MaxAge)
	assert.Empty(t, clearedCookie.Value)
}
