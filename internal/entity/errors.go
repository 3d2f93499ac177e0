package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConnectionNotFound = &NotFoundError{Resource: "connection"}
	ErrPropertyNotFound   = &NotFoundError{Resource: "property"}
)

// NotFoundError means the keyed record does not exist.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found for %q", e.Resource, e.Key)
}

// Is lets errors.Is(err, ErrConnectionNotFound) match any key.
func (e *NotFoundError) Is(target error) bool {
	t, ok := target.(*NotFoundError)
	return ok && t.Resource == e.Resource && (t.Key == "" || t.Key == e.Key)
}

// TokenRefreshError means the OAuth provider refused or failed a refresh.
// Detail carries the provider's response body when there is one.
type TokenRefreshError struct {
	LocationID string
	Detail     string
	Err        error
}

func (e *TokenRefreshError) Error() string {
	msg := "failed to refresh token for location " + e.LocationID + ", please re-link the account"
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *TokenRefreshError) Unwrap() error { return e.Err }

// AuthorizationError means the initial code exchange failed.
type AuthorizationError struct {
	Detail string
	Err    error
}

func (e *AuthorizationError) Error() string {
	if e.Detail == "" {
		return "token exchange failed"
	}
	return "token exchange failed: " + e.Detail
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// APIError is a non-2xx answer from a downstream REST API.
type APIError struct {
	Service string
	Status  int
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api returned %d: %s", e.Service, e.Status, e.Body)
}

// ValidationError is malformed caller input, rejected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors reports every problem found in one input at once.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
