package core

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
)

// ErrNotFound is a sentinel error for "not found" cases
var ErrNotFound = errors.New("not found")

// ErrNoCredentials is returned when an operation needs a session and none is stored
var ErrNoCredentials = errors.New("no credentials")

// ErrSessionExpired is surfaced to callers once a token refresh has failed
var ErrSessionExpired = errors.New("session expired")

// IsNotFoundError checks if an error is a "not found" error, including 404 API errors
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	if IsAPIStatus(err, http.StatusNotFound) {
		return true
	}
	return notFoundPattern.MatchString(err.Error())
}

var notFoundPattern = regexp.MustCompile(`(?i)not found`)

// APIError is a non-2xx REST response
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsAPIError checks if an error is an APIError
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsAPIStatus reports whether err is an APIError with the given status code
func IsAPIStatus(err error, status int) bool {
	apiErr, ok := IsAPIError(err)
	return ok && apiErr.StatusCode == status
}

// AuthError means the session could not be refreshed. Credentials have been cleared.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%v: %v", ErrSessionExpired, e.Err)
}

func (e *AuthError) Unwrap() []error {
	return []error{ErrSessionExpired, e.Err}
}

// IsAuthError checks if an error is an AuthError
func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// ConnectionError describes an unintentional gateway socket loss
type ConnectionError struct {
	ConnectionID string
	Err          error
	// Reconnecting is false only when the close was requested locally
	Reconnecting bool
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("gateway connection %s lost: %v", e.ConnectionID, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError checks if an error is a ConnectionError
func IsConnectionError(err error) (*ConnectionError, bool) {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr, true
	}
	return nil, false
}

// OptimisticMutationError is returned after a locally applied change was reverted
// because the server rejected it.
type OptimisticMutationError struct {
	Action string
	Err    error
}

func (e *OptimisticMutationError) Error() string {
	return fmt.Sprintf("%s rolled back: %v", e.Action, e.Err)
}

func (e *OptimisticMutationError) Unwrap() error {
	return e.Err
}

// IsOptimisticMutationError checks if an error is an OptimisticMutationError
func IsOptimisticMutationError(err error) (*OptimisticMutationError, bool) {
	var mutErr *OptimisticMutationError
	if errors.As(err, &mutErr) {
		return mutErr, true
	}
	return nil, false
}
