package auth

import (
	"crypto/sha256"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/syllasync/syllasync/internal/config"
)

const (
	accessTokenCookie = "calendar_access_token"
	oauthStateCookie  = "calendar_oauth_state"

	stateTTL = 10 * time.Minute
	// minTokenMaxAge floors provider-reported expiries to avoid cookie churn.
	minTokenMaxAge = 60 * time.Second
)

// Cookies encodes and decodes the credential and one-time state cookies.
// Both are HttpOnly, SameSite=Lax, scoped to the whole application path, and
// sealed with securecookie so page script can neither read nor forge them.
type Cookies struct {
	codec      *securecookie.SecureCookie
	stateCodec *securecookie.SecureCookie
	secure     bool
}

func NewCookies(cfg *config.Config) *Cookies {
	hash := sha256.Sum256([]byte(cfg.Session.Secret))

	tokenCodec := securecookie.New(hash[:], hash[:])
	tokenCodec.MaxAge(0)

	// The state codec enforces the handshake TTL server-side as well, so a
	// replayed stale cookie fails to decode even if the client kept it.
	stateCodec := securecookie.New(hash[:], hash[:])
	stateCodec.MaxAge(int(stateTTL.Seconds()))

	secure := true
	if base, err := url.Parse(cfg.BaseURL); err == nil && base.Scheme != "https" {
		secure = false
	}

	return &Cookies{codec: tokenCodec, stateCodec: stateCodec, secure: secure}
}

// SetState stores the pending handshake state, overwriting any prior one.
func (c *Cookies) SetState(w http.ResponseWriter, state string) error {
	encoded, err := c.stateCodec.Encode(oauthStateCookie, state)
	if err != nil {
		return err
	}
	http.SetCookie(w, c.cookie(oauthStateCookie, encoded, int(stateTTL.Seconds())))
	return nil
}

// ReadState returns the pending handshake state, if any.
func (c *Cookies) ReadState(r *http.Request) (string, bool) {
	return c.readWith(r, c.stateCodec, oauthStateCookie)
}

// ClearState removes the one-time state cookie.
func (c *Cookies) ClearState(w http.ResponseWriter) {
	http.SetCookie(w, c.expired(oauthStateCookie))
}

// SetAccessToken stores the provider credential. A non-positive ttl means the
// provider did not report an expiry and the cookie lives for the browser
// session; otherwise max-age is the reported ttl floored to a minute.
func (c *Cookies) SetAccessToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	encoded, err := c.codec.Encode(accessTokenCookie, token)
	if err != nil {
		return err
	}

	maxAge := 0
	if ttl > 0 {
		if ttl < minTokenMaxAge {
			ttl = minTokenMaxAge
		}
		maxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, c.cookie(accessTokenCookie, encoded, maxAge))
	return nil
}

// ReadAccessToken returns the stored credential, trimmed; an empty or
// undecodable value is treated as absent.
func (c *Cookies) ReadAccessToken(r *http.Request) (string, bool) {
	return c.read(r, accessTokenCookie)
}

// ClearAccessToken removes the credential cookie.
func (c *Cookies) ClearAccessToken(w http.ResponseWriter) {
	http.SetCookie(w, c.expired(accessTokenCookie))
}

func (c *Cookies) read(r *http.Request, name string) (string, bool) {
	return c.readWith(r, c.codec, name)
}

func (c *Cookies) readWith(r *http.Request, codec *securecookie.SecureCookie, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	var value string
	if err := codec.Decode(name, cookie.Value, &value); err != nil {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

func (c *Cookies) cookie(name, value string, maxAge int) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		ck.MaxAge = maxAge
		ck.Expires = time.Now().Add(time.Duration(maxAge) * time.Second)
	}
	return ck
}

func (c *Cookies) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
