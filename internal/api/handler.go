// Package api implements the JSON endpoints the calendar UI talks to:
// OAuth connect/callback/session/disconnect plus event listing, creation,
// editing and the ranked schedule suggestions.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/syllasync/syllasync/internal/auth"
	"github.com/syllasync/syllasync/internal/config"
	"github.com/syllasync/syllasync/internal/gcal"
	"github.com/syllasync/syllasync/internal/http/weberr"
	"github.com/syllasync/syllasync/internal/synccache"
)

// CalendarProvider is the slice of the calendar gateway the handlers need.
type CalendarProvider interface {
	List(ctx context.Context, token string, timeMin, timeMax time.Time, calendarIDs []string) ([]gcal.EventRecord, error)
	Create(ctx context.Context, token string, events []gcal.EventInput, calendarID string) ([]string, error)
	Update(ctx context.Context, token, eventID string, patch gcal.EventPatch) error
	Delete(ctx context.Context, token, eventID string) error
	Calendars(ctx context.Context, token string) ([]gcal.CalendarInfo, error)
}

// Handler carries the wiring all API endpoints share.
type Handler struct {
	cfg      *config.Config
	auth     *auth.Service
	provider CalendarProvider
	caches   *synccache.Registry
}

func NewHandler(cfg *config.Config, authSvc *auth.Service, provider CalendarProvider) *Handler {
	h := &Handler{cfg: cfg, auth: authSvc, provider: provider}
	h.caches = synccache.NewRegistry(func(token string) synccache.Fetcher {
		return func(ctx context.Context, key synccache.Key) ([]gcal.EventRecord, error) {
			return provider.List(ctx, token, key.WindowStart, key.WindowEnd, key.CalendarIDs())
		}
	})
	return h
}

type connectResponse struct {
	Success bool   `json:"success"`
	AuthURL string `json:"authUrl"`
}

// Connect starts the OAuth handshake: mints the state cookie and hands the
// provider authorization URL back to the UI.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.auth.BeginHandshake(w, r.URL.Query().Get("prompt"))
	if err != nil {
		weberr.Internal(w, r, err)
		return
	}
	weberr.WriteJSON(w, r, http.StatusOK, connectResponse{Success: true, AuthURL: authURL})
}

// Callback finishes the handshake and always lands the browser back on the
// app page, flagging the outcome in the query string.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	if authErr := h.auth.CompleteHandshake(r.Context(), w, r); authErr != nil {
		weberr.LogError(r, "oauth callback failed", authErr)
		dest := h.cfg.LandingPath + "?auth_success=false&error=" + url.QueryEscape(authErr.Code)
		http.Redirect(w, r, dest, http.StatusFound)
		return
	}
	http.Redirect(w, r, h.cfg.LandingPath+"?auth_success=true", http.StatusFound)
}

type sessionResponse struct {
	Connected bool `json:"connected"`
}

// Session reports whether a calendar connection exists, without touching the
// provider.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	_, connected := h.auth.Token(r)
	weberr.WriteJSON(w, r, http.StatusOK, sessionResponse{Connected: connected})
}

type successResponse struct {
	Success bool `json:"success"`
}

// Disconnect clears the token cookie and discards the session's event cache.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if token, ok := h.auth.Token(r); ok {
		h.caches.Drop(token)
	}
	h.auth.Disconnect(w)
	weberr.WriteJSON(w, r, http.StatusOK, successResponse{Success: true})
}

// requireToken resolves the session's access token or answers 401.
func (h *Handler) requireToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, ok := h.auth.Token(r)
	if !ok {
		weberr.Unauthorized(w, r, "Not connected to Google Calendar")
		return "", false
	}
	return token, true
}

// writeProviderError maps gateway failures onto API responses: expired
// credentials prompt a reconnect, anything else surfaces the provider's
// message.
func writeProviderError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *gcal.ProviderError
	switch {
	case gcal.IsUnauthorized(err):
		weberr.LogError(r, "provider rejected token", err)
		weberr.Unauthorized(w, r, "Invalid or expired token. Please re-authenticate.")
	case errors.As(err, &perr):
		weberr.Write(w, r, http.StatusInternalServerError, perr.Message, err)
	default:
		weberr.Internal(w, r, err)
	}
}
