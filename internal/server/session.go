package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/slowvak/midel/internal/auth"
)

// Cookie names. The pair mirrors the two persisted session keys.
const (
	userCookie    = "midel_user"
	sessionCookie = "midel_session"
	flashCookie   = "midel_flash"
)

// cookieMaxAge keeps the login for as long as browsers allow.
const cookieMaxAge = 400 * 24 * time.Hour

// cookieStore is an auth.Store over one request/response pair.
type cookieStore struct {
	w http.ResponseWriter
	r *http.Request
}

var _ auth.Store = (*cookieStore)(nil)

func (c *cookieStore) Load() (auth.Session, error) {
	var s auth.Session
	if ck, err := c.r.Cookie(userCookie); err == nil {
		s.Username, _ = url.QueryUnescape(ck.Value)
	}
	if ck, err := c.r.Cookie(sessionCookie); err == nil {
		s.Marker = ck.Value
	}
	if s.Username == "" || s.Marker == "" {
		// Both keys or neither
		return auth.Session{}, nil
	}
	return s, nil
}

func (c *cookieStore) Save(s auth.Session) error {
	http.SetCookie(c.w, newCookie(userCookie, url.QueryEscape(s.Username), cookieMaxAge))
	http.SetCookie(c.w, newCookie(sessionCookie, s.Marker, cookieMaxAge))
	return nil
}

func (c *cookieStore) Clear() error {
	http.SetCookie(c.w, newCookie(userCookie, "", -1))
	http.SetCookie(c.w, newCookie(sessionCookie, "", -1))
	return nil
}

func newCookie(name, value string, maxAge time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		ck.MaxAge = -1
	} else {
		ck.MaxAge = int(maxAge.Seconds())
	}
	return ck
}

// setFlash stores a one-shot message for the next page view.
func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, newCookie(flashCookie, url.QueryEscape(msg), time.Minute))
}

// popFlash returns and clears the pending message.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	ck, err := r.Cookie(flashCookie)
	if err != nil || ck.Value == "" {
		return ""
	}
	http.SetCookie(w, newCookie(flashCookie, "", -1))
	msg, err := url.QueryUnescape(ck.Value)
	if err != nil {
		return ""
	}
	return msg
}
