package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

type Config struct {
	ListenAddr string
	BaseURL    string

	Google struct {
		ClientID     string
		ClientSecret string
		RedirectPath string
	}

	Session struct {
		Secret string
	}

	// LandingPath is the application page the OAuth callback redirects to,
	// with auth_success and error query parameters appended.
	LandingPath string

	PrometheusEnabled bool
	TrustedProxies    []string
}

func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ListenAddr = getenvDefault("APP_LISTEN_ADDR", ":8080")
	cfg.BaseURL = strings.TrimRight(getenvDefault("APP_BASE_URL", "http://localhost:8080"), "/")

	cfg.Google.ClientID = os.Getenv("APP_GOOGLE_CLIENT_ID")
	cfg.Google.ClientSecret = os.Getenv("APP_GOOGLE_CLIENT_SECRET")
	cfg.Google.RedirectPath = getenvDefault("APP_GOOGLE_REDIRECT_PATH", "/api/callback")
	cfg.Session.Secret = os.Getenv("APP_SESSION_SECRET")
	cfg.LandingPath = getenvDefault("APP_LANDING_PATH", "/protected")
	cfg.PrometheusEnabled = getenvBool("APP_PROMETHEUS_ENDPOINT_ENABLED", false)
	cfg.TrustedProxies = getenvList("APP_TRUSTED_PROXIES")

	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		return nil, errors.New("google oauth configuration is required: APP_GOOGLE_CLIENT_ID and APP_GOOGLE_CLIENT_SECRET")
	}
	if cfg.Session.Secret == "" {
		return nil, errors.New("APP_SESSION_SECRET is required")
	}
	if len(cfg.Session.Secret) < 32 {
		return nil, fmt.Errorf("APP_SESSION_SECRET must be at least 32 characters long (got %d)", len(cfg.Session.Secret))
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("APP_BASE_URL is not a valid URL: %w", err)
	}

	if len(cfg.TrustedProxies) == 0 {
		fmt.Println("WARNING: No APP_TRUSTED_PROXIES configured. All proxies will be trusted - not recommended for public environments.")
	}

	return cfg, nil
}

// Origin returns the scheme://host part of the configured base URL.
func (c *Config) Origin() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return c.BaseURL
	}
	return u.Scheme + "://" + u.Host
}

// RedirectURL is the absolute OAuth callback URL registered with the provider.
func (c *Config) RedirectURL() string {
	return c.BaseURL + c.Google.RedirectPath
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func getenvList(key string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return nil
}
