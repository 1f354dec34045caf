package types

import (
	"github.com/juju/errors"
)

var (
	_ error = &ValidationError{}
	_ error = &ProviderError{}
)

// NewValidationError marks a malformed graph: the run is not attempted and
// is recorded as a single Failed step.
func NewValidationError(otherErr error) error {
	return &ValidationError{baseError: newBaseErr(otherErr)}
}

func NewValidationErrorf(format string, args ...interface{}) error {
	return NewValidationError(errors.Errorf(format, args...))
}

// NewProviderError marks a failed broker/price/notification call. It is
// localized to one Failed step and never aborts sibling nodes.
func NewProviderError(provider string, otherErr error) error {
	return &ProviderError{baseError: newBaseErr(otherErr), Provider: provider}
}

func NewProviderErrorf(provider, format string, args ...interface{}) error {
	return NewProviderError(provider, errors.Errorf(format, args...))
}

func IsValidation(err error) bool {
	_, ok := errors.Unwrap(err).(*ValidationError)
	if ok {
		return true
	}
	_, ok = err.(*ValidationError)
	return ok
}

func newBaseErr(otherErr error) *baseError {
	return &baseError{unwrapErr(otherErr)}
}

func unwrapErr(err error) error {
	if err == nil {
		return nil
	}
	if ue, ok := err.(wrappedErr); ok {
		return unwrapErr(ue.UnwrapLocal())
	}
	return err
}

type wrappedErr interface {
	UnwrapLocal() error
}

type baseError struct {
	BaseErr error
}

func (e *baseError) Error() string {
	return e.BaseErr.Error()
}

func (e *baseError) UnwrapLocal() error {
	return e.BaseErr
}

type ValidationError struct {
	*baseError
}

type ProviderError struct {
	*baseError
	Provider string
}
