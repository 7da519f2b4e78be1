package httpserver

import (
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/syllasync/syllasync/internal/api"
	"github.com/syllasync/syllasync/internal/auth"
	"github.com/syllasync/syllasync/internal/config"
	"github.com/syllasync/syllasync/internal/http/ratelimit"
	"github.com/syllasync/syllasync/internal/metrics"
)

// NewRouter wires every HTTP route: health endpoints, the OAuth handshake,
// the calendar API and the post-callback landing page.
func NewRouter(cfg *config.Config, authService *auth.Service, apiHandler *api.Handler) http.Handler {
	r := chi.NewRouter()

	// OAuth endpoints get a tighter budget than the rest of the API.
	authRateLimiter := ratelimit.NewIPRateLimiter(rate.Limit(5), 10, 5*time.Minute, cfg.TrustedProxies)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(authRateLimiter.Middleware())
		r.Get("/api/calendar/auth", apiHandler.Connect)
		r.Get("/api/callback", apiHandler.Callback)
	})

	r.Route("/api/calendar", func(r chi.Router) {
		r.Get("/session", apiHandler.Session)
		r.Get("/events", apiHandler.ListEvents)
		r.Get("/calendars", apiHandler.Calendars)

		// Cookie-authenticated mutations are CSRF-sensitive: the origin
		// check runs before any handler side effect.
		r.Group(func(r chi.Router) {
			r.Use(authService.RequireSameOrigin)
			r.Post("/disconnect", apiHandler.Disconnect)
			r.Post("/events", apiHandler.CreateEvents)
			r.Patch("/events", apiHandler.UpdateEvent)
			r.Delete("/events", apiHandler.DeleteEvent)
		})
	})

	r.Get("/api/schedule/suggestions", apiHandler.Suggestions)

	r.Get(cfg.LandingPath, landingPage)

	return r
}

// landingPage is where the OAuth callback drops the browser. It reflects the
// handshake outcome from the query string; the real UI reads the same
// parameters.
func landingPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var status string
	switch q.Get("auth_success") {
	case "true":
		status = "Connected to Google Calendar."
	case "false":
		status = "Connection failed."
		if code := q.Get("error"); code != "" {
			status += " (" + html.EscapeString(code) + ")"
		}
	default:
		status = "Sync your syllabus deadlines to Google Calendar."
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!doctype html><title>SyllaSync</title><h1>SyllaSync</h1><p>%s</p>", status)
}
