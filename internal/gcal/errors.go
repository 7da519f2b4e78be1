package gcal

import (
	"errors"

	"google.golang.org/api/googleapi"
)

// Class buckets provider failures for the HTTP boundary.
type Class int

const (
	// ClassUnknown is an opaque provider failure; Message carries the
	// provider's text when present.
	ClassUnknown Class = iota
	// ClassUnauthorized means the session expired; the caller should prompt
	// the user to reconnect. Local credential state is not auto-cleared here.
	ClassUnauthorized
	// ClassForbidden means the token lacks access to the resource.
	ClassForbidden
)

const (
	unauthorizedMessage = "Invalid or expired token. Please re-authenticate."
	forbiddenMessage    = "Access to this calendar is forbidden."
	genericMessage      = "Calendar provider request failed."
)

// ProviderError is a normalized provider failure.
type ProviderError struct {
	Class   Class
	Message string
	Err     error
}

func (e *ProviderError) Error() string { return e.Message }

func (e *ProviderError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a provider 401.
func IsUnauthorized(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Class == ClassUnauthorized
}

func normalizeError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 401:
			return &ProviderError{Class: ClassUnauthorized, Message: unauthorizedMessage, Err: err}
		case 403:
			return &ProviderError{Class: ClassForbidden, Message: forbiddenMessage, Err: err}
		}
		if gerr.Message != "" {
			return &ProviderError{Class: ClassUnknown, Message: gerr.Message, Err: err}
		}
	}
	return &ProviderError{Class: ClassUnknown, Message: genericMessage, Err: err}
}
