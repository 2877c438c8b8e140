package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the backflow library

var (
	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCapacityExceeded indicates that a capacity limit was exceeded
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrCanceled indicates that a subscription was canceled before it terminated
	ErrCanceled = errors.New("subscription canceled")
)

// ValidationError describes a configuration value that was rejected.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError without a hint.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap allows errors.Is(err, ErrInvalidConfiguration).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError wraps a runtime failure with the module and operation that hit it.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra detail and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// ContractError is the panic value used when a caller misuses an API, for
// example by completing a stream twice. It is never returned as an error.
type ContractError struct {
	Module    string
	Operation string
	Reason    string
}

// NewContractError creates a ContractError.
func NewContractError(module, operation, reason string) *ContractError {
	return &ContractError{
		Module:    module,
		Operation: operation,
		Reason:    reason,
	}
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s.%s: contract violation: %s", e.Module, e.Operation, e.Reason)
}

// IsRetryable returns true if the error indicates a condition that might
// be resolved by retrying the operation
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrCapacityExceeded)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsContractViolation reports whether a value recovered from a panic is a
// *ContractError.
func IsContractViolation(recovered interface{}) bool {
	err, ok := recovered.(error)
	if !ok {
		return false
	}
	var cerr *ContractError
	return errors.As(err, &cerr)
}
