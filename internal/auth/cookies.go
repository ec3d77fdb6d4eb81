// AngelaMos | 2026
// cookies.go

package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/carterperez-dev/ledger-backend/internal/config"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
	refreshPath      = "/api/auth"
)

// Cookies writes and reads the session cookies. The access cookie is sent
// on every request; the refresh cookie only to the auth routes.
type Cookies struct {
	cfg config.SessionConfig
}

func NewCookies(cfg config.SessionConfig) *Cookies {
	return &Cookies{cfg: cfg}
}

func (c *Cookies) AccessName() string {
	return c.cfg.AccessCookie
}

func (c *Cookies) SetSession(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, c.cookie(c.cfg.AccessCookie, s.AccessToken, "/", s.AccessExpiresAt))
	http.SetCookie(w, c.cookie(c.cfg.RefreshCookie, s.RefreshToken, refreshPath, s.RefreshExpiresAt))
}

func (c *Cookies) Clear(w http.ResponseWriter) {
	expired := c.cookie(c.cfg.AccessCookie, "", "/", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)

	expired = c.cookie(c.cfg.RefreshCookie, "", refreshPath, time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)
}

func (c *Cookies) RefreshToken(r *http.Request) string {
	cookie, err := r.Cookie(c.cfg.RefreshCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetOAuthState stores the state and PKCE verifier for the callback.
func (c *Cookies) SetOAuthState(w http.ResponseWriter, state, verifier string) {
	http.SetCookie(w, c.cookie(
		oauthStateCookie,
		state+"."+verifier,
		refreshPath+"/oauth",
		time.Now().Add(oauthStateTTL),
	))
}

func (c *Cookies) OAuthState(r *http.Request) (state, verifier string, ok bool) {
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		return "", "", false
	}
	state, verifier, ok = strings.Cut(cookie.Value, ".")
	return state, verifier, ok && state != "" && verifier != ""
}

func (c *Cookies) ClearOAuthState(w http.ResponseWriter) {
	expired := c.cookie(oauthStateCookie, "", refreshPath+"/oauth", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)
}

func (c *Cookies) cookie(name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.cfg.Domain,
		Expires:  expires,
		Secure:   c.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
