package domain

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a record is missing or hidden by a default filter.
type NotFoundError struct {
	Resource string
	Msg      string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("No %s found with that ID", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// ConflictError reports a duplicate value on a unique column.
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// AuthenticationError means the caller could not be identified.
type AuthenticationError struct {
	Msg string
	Err error
}

func (e AuthenticationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "authentication required"
}

func (e AuthenticationError) Unwrap() error { return e.Err }

// AuthorizationError means the caller is known but not allowed.
type AuthorizationError struct {
	Msg string
}

func (e AuthorizationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "You do not have permission to perform this action"
}

// IntegrationError wraps a failure of an external collaborator (mail, payments, images).
// Msg is safe to show to clients, Err is not.
type IntegrationError struct {
	Service string
	Msg     string
	Err     error
}

func (e IntegrationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Service != "" {
		return fmt.Sprintf("%s unavailable", e.Service)
	}
	return "integration failure"
}

func (e IntegrationError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsAuthentication(err error) bool {
	var target AuthenticationError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target AuthorizationError
	return errors.As(err, &target)
}

func IsIntegration(err error) bool {
	var target IntegrationError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}
