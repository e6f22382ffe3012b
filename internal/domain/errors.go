package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("campingcare: not found")
	ErrUnauthorized = errors.New("campingcare: unauthorized")
	ErrForbidden    = errors.New("campingcare: forbidden")

	// ErrValidation marks missing or malformed caller input. It is reported
	// before any upstream call is made.
	ErrValidation = errors.New("validation failed")

	ErrNoData         = errors.New("no data found in the specified range")
	ErrHeaderNotFound = errors.New("header row not found")
	ErrColumnNotFound = errors.New("column not found in headers")
	ErrNoWebhookID    = errors.New("webhook created but no ID was returned from the API")
)

// Required reports a missing required parameter.
func Required(field string) error {
	return fmt.Errorf("%w: %s is required", ErrValidation, field)
}

// Invalid reports a parameter with an unusable value.
func Invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}
