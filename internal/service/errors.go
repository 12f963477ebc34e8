package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned by Login when the username or password does not match.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnsuccessful is returned when the backend answers 2xx with success=false.
	ErrUnsuccessful = errors.New("backend reported an unsuccessful response")
)

// RequestError is a non-2xx answer from the backend.
type RequestError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d - %s", e.StatusCode, e.Body)
}

// AuthError is a 401 from the backend. It unwraps to the underlying RequestError.
type AuthError struct {
	RequestError
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("unauthorized access to %s: check admin credentials and secret keys", e.Endpoint)
}

func (e *AuthError) Unwrap() error {
	return &e.RequestError
}

// NetworkError means no HTTP response was received.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request %s failed: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// MalformedDataError is a 2xx body that cannot be read as the expected JSON shape.
type MalformedDataError struct {
	Endpoint string
	Err      error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Endpoint, e.Err)
}

func (e *MalformedDataError) Unwrap() error {
	return e.Err
}

// UserMessage maps client errors onto the short text shown in panel error cards.
func UserMessage(err error, fallback string) string {
	var authErr *AuthError
	var netErr *NetworkError
	var badData *MalformedDataError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authErr):
		return "Unauthorized access. Please check admin credentials and secret keys."
	case errors.As(err, &netErr):
		return "Cannot reach the GoodAds backend. Please check your connection and try again."
	case errors.As(err, &badData):
		return "The backend returned data in an unexpected format."
	default:
		return fallback
	}
}
