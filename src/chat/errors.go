package chat

import (
	"errors"
	"fmt"

	"github.com/elee1766/chatportal/src/portalapi"
)

var (
	// ErrSendInFlight is returned when a send is attempted while another
	// send for the same thread has not resolved yet.
	ErrSendInFlight = errors.New("a message is already being sent")

	// ErrThreadLoading is returned when a send is attempted before the
	// active conversation finished loading.
	ErrThreadLoading = errors.New("conversation is still loading")
)

// ValidationError reports input rejected before any request is made
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return "invalid input: " + e.Message
}

// FetchError wraps a failed store call
type FetchError struct {
	Op             string
	ConversationID portalapi.ID
	Err            error
}

func (e *FetchError) Error() string {
	if !e.ConversationID.IsZero() {
		return fmt.Sprintf("failed to %s (conversation %s): %v", e.Op, e.ConversationID, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AuthError is a FetchError caused by a missing or rejected token.
// errors.As matches both *AuthError and *FetchError.
type AuthError struct {
	Fetch *FetchError
}

func (e *AuthError) Error() string {
	return "not authorized: " + e.Fetch.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Fetch
}

// fetchError classifies a store failure
func fetchError(op string, id portalapi.ID, err error) error {
	fe := &FetchError{Op: op, ConversationID: id, Err: err}
	if portalapi.IsAuthError(err) {
		return &AuthError{Fetch: fe}
	}
	return fe
}

// IsFetchError reports whether err came from a failed store call
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsAuthError reports whether err is an authorization failure
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
