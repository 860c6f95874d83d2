package genai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNoAPIKey      = errors.New("no API key selected")
	ErrNoVideo       = errors.New("no video generated")
	ErrNoImage       = errors.New("no image generated")
	ErrPollTimeout   = errors.New("video operation timed out")
	ErrPollExhausted = errors.New("video operation poll attempts exhausted")
)

// credentialMarker is what the service returns when the selected key or
// project no longer resolves.
const credentialMarker = "Requested entity was not found"

// APIError is a non-2xx answer from the generation service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("generation request failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors are permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// IsCredential reports whether the key needs to be re-selected.
func (e *APIError) IsCredential() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return strings.Contains(e.Body, credentialMarker)
}

// IsCredentialError classifies err as a credential failure. Besides typed
// API errors it matches on the message text, so wrapped or foreign errors
// carrying the service's wording are caught too.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoAPIKey) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsCredential() {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, credentialMarker) || strings.Contains(msg, "404")
}
