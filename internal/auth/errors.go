package auth

import "strings"

// Handshake failure codes surfaced to the landing page. Provider-denied
// codes pass through only when they are on the allow-list below; anything
// else is replaced by CodeOAuthError so attacker-controlled free text is
// never reflected.
const (
	CodeInvalidState  = "invalid_state"
	CodeMissingCode   = "missing_code"
	CodeNoAccessToken = "no_access_token"
	CodeCallbackError = "callback_error"
	CodeOAuthError    = "oauth_error"
)

// allowedProviderErrors are the OAuth error codes considered safe to reflect.
var allowedProviderErrors = map[string]struct{}{
	"access_denied":           {},
	"invalid_request":         {},
	"invalid_scope":           {},
	"server_error":            {},
	"temporarily_unavailable": {},
}

// Error is a handshake or origin-check failure with a stable, URL-safe code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// NormalizeProviderError maps a provider-supplied OAuth error parameter onto
// the allow-list, lower-cased and trimmed, falling back to CodeOAuthError.
func NormalizeProviderError(raw string) string {
	code := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := allowedProviderErrors[code]; ok {
		return code
	}
	return CodeOAuthError
}
