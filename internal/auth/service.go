package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/syllasync/syllasync/internal/config"
)

// calendarScope grants read/write access to the user's calendars.
const calendarScope = "https://www.googleapis.com/auth/calendar"

// ExchangeFunc swaps an authorization code for a token. Overridable in tests
// so handshake failures can be asserted to never reach the provider.
type ExchangeFunc func(ctx context.Context, code string) (*oauth2.Token, error)

// Service runs the authorization-code handshake and owns the credential
// cookie lifecycle.
type Service struct {
	cfg      *config.Config
	cookies  *Cookies
	oauth    *oauth2.Config
	exchange ExchangeFunc
}

// Option customizes a Service.
type Option func(*Service)

// WithExchange replaces the provider token exchange.
func WithExchange(fn ExchangeFunc) Option {
	return func(s *Service) { s.exchange = fn }
}

func NewService(cfg *config.Config, cookies *Cookies, opts ...Option) *Service {
	oc := &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
		Scopes:       []string{calendarScope},
		Endpoint:     google.Endpoint,
	}

	s := &Service{cfg: cfg, cookies: cookies, oauth: oc}
	s.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		return oc.Exchange(ctx, code)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginHandshake generates a fresh CSRF state, persists it in the short-lived
// state cookie (replacing any pending handshake), and returns the provider
// authorization URL. An empty promptMode defaults to "consent".
func (s *Service) BeginHandshake(w http.ResponseWriter, promptMode string) (string, error) {
	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	if err := s.cookies.SetState(w, state); err != nil {
		return "", fmt.Errorf("persist state: %w", err)
	}

	if promptMode == "" {
		promptMode = "consent"
	}
	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", promptMode),
	), nil
}

// CompleteHandshake consumes the callback request. The state cookie is
// cleared on every outcome, making each state value single-use. On a state
// mismatch the credential cookie is cleared too and no exchange is attempted.
// On success the access token is stored with a max-age derived from the
// provider-reported expiry.
func (s *Service) CompleteHandshake(ctx context.Context, w http.ResponseWriter, r *http.Request) *Error {
	defer s.cookies.ClearState(w)

	q := r.URL.Query()
	stored, ok := s.cookies.ReadState(r)
	if !ok || q.Get("state") != stored {
		s.cookies.ClearAccessToken(w)
		return &Error{Code: CodeInvalidState}
	}

	if providerErr := q.Get("error"); providerErr != "" {
		return &Error{Code: NormalizeProviderError(providerErr)}
	}

	code := q.Get("code")
	if code == "" {
		return &Error{Code: CodeMissingCode}
	}

	token, err := s.exchange(ctx, code)
	if err != nil {
		return &Error{Code: CodeCallbackError, Err: err}
	}
	if token == nil || token.AccessToken == "" {
		return &Error{Code: CodeNoAccessToken}
	}

	var ttl time.Duration
	if !token.Expiry.IsZero() {
		ttl = time.Until(token.Expiry)
	}
	if err := s.cookies.SetAccessToken(w, token.AccessToken, ttl); err != nil {
		return &Error{Code: CodeCallbackError, Err: err}
	}
	return nil
}

// Token returns the current credential, if present.
func (s *Service) Token(r *http.Request) (string, bool) {
	return s.cookies.ReadAccessToken(r)
}

// Disconnect clears the credential cookie without contacting the provider.
func (s *Service) Disconnect(w http.ResponseWriter) {
	s.cookies.ClearAccessToken(w)
}

// generateState returns an unguessable handshake state of 256 bits.
func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
