// Package apperr holds the error values shared between the browser flow and its callers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	// ErrNotConfigured marks an optional integration (LLM, mail) that is off.
	ErrNotConfigured = errors.New("not configured")

	// ErrMissingCredentials is returned before any browser work when the
	// Xuexitong username or password is not configured.
	ErrMissingCredentials = errors.New("xuexitong username and password are required")
)

// LaunchError reports that the browser process could not be started.
type LaunchError struct {
	ExecutablePath string
	Headless       bool
	Err            error
}

func (e *LaunchError) Error() string {
	if e.ExecutablePath != "" {
		return fmt.Sprintf("launch browser %s: %v", e.ExecutablePath, e.Err)
	}
	return fmt.Sprintf("launch browser: %v", e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// AuthenticationError reports a login form that could not be submitted or
// that did not lead back to the note site in time.
type AuthenticationError struct {
	URL string
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("login failed at %s: %v", e.URL, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// EditorUnreachableError reports that every strategy for opening the note
// editor failed. LastURL is where the page ended up.
type EditorUnreachableError struct {
	LastURL string
	Err     error
}

func (e *EditorUnreachableError) Error() string {
	return fmt.Sprintf("note editor unreachable (last url %s): %v", e.LastURL, e.Err)
}

func (e *EditorUnreachableError) Unwrap() error { return e.Err }

// PublishError reports a failed save. Content may be partially entered.
type PublishError struct {
	Title string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %q: %v", e.Title, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
