package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "session"

// CookieConfig holds the cookie attributes resolved once at startup.
type CookieConfig struct {
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// SessionCookies writes and reads the session token on HTTP responses
// and requests.
type SessionCookies struct {
	codec *TokenCodec
	cfg   CookieConfig
}

func NewSessionCookies(codec *TokenCodec, cfg CookieConfig) *SessionCookies {
	return &SessionCookies{codec: codec, cfg: cfg}
}

// Issue signs a token for the user and sets it as the session cookie,
// expiring together with the token.
func (s *SessionCookies) Issue(w http.ResponseWriter, userID int, now time.Time) error {
	token, err := s.codec.Sign(userID, now)
	if err != nil {
		return err
	}

	cookie := s.newCookie()
	cookie.Value = token
	cookie.Expires = now.Add(s.codec.TTL())
	http.SetCookie(w, cookie)
	return nil
}

// Read returns the session token from the request. A missing cookie is
// not an error; it means the request is unauthenticated.
func (s *SessionCookies) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Clear instructs the client to delete the session cookie.
func (s *SessionCookies) Clear(w http.ResponseWriter) {
	cookie := s.newCookie()
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
}

// newCookie is the single source of cookie attributes. Issue and Clear
// must use the same attribute set or browsers will refuse to delete the
// cookie.
func (s *SessionCookies) newCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		Domain:   s.cfg.Domain,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: s.cfg.SameSite,
	}
}
