package orbit_client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NetworkError is a transport-level failure (DNS, timeout, connection
// refused); no HTTP response was received.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("Orbit API: network error calling %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx HTTP response other than an unrecoverable 401.
type APIError struct {
	Status int
	Body   json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Orbit API: status %d: %s", e.Status, bytes.TrimSpace(e.Body))
}

// AuthError is a 401 that could not be resolved by a token refresh, either
// because no refresh token was available, the request was already retried,
// or the refresh itself failed (Err then carries the RefreshError).
// Callers should treat it as "must log in again".
type AuthError struct {
	Status int
	Body   json.RawMessage
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Orbit API: unauthorized (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("Orbit API: unauthorized (status %d)", e.Status)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RefreshError is a failure of the token refresh call itself.
type RefreshError struct {
	Status int
	Err    error
}

func (e *RefreshError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("Orbit API: token refresh failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("Orbit API: token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}
