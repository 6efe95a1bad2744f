package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors built with NewDomainError match the sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound        = "NOT_FOUND"
	CodeAlreadyExists   = "ALREADY_EXISTS"
	CodeValidation      = "VALIDATION"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInvalidState    = "INVALID_STATE"
	CodeCanceled        = "CANCELED"
	CodeSourceShape     = "SOURCE_SHAPE"
	CodeSchemaMigration = "SCHEMA_MIGRATION"
	CodeTransaction     = "TRANSACTION"
	CodeIO              = "IO"
)

// Common domain errors
var (
	ErrNotFound        = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists   = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrValidation      = NewDomainError(CodeValidation, "Validation failed")
	ErrUnauthorized    = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrInvalidState    = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrCanceled        = NewDomainError(CodeCanceled, "Operation canceled")
	ErrSourceShape     = NewDomainError(CodeSourceShape, "External source is missing required tables")
	ErrSchemaMigration = NewDomainError(CodeSchemaMigration, "Schema migration failed")
	ErrTransaction     = NewDomainError(CodeTransaction, "Transaction failed")
	ErrIO              = NewDomainError(CodeIO, "I/O error")
)

// NewValidationError creates a validation error carrying a field-level message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewNotFoundError creates a not-found error for the given resource and key
func NewNotFoundError(resource string, key any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %v not found", resource, key))
}

// TransactionError wraps a failure raised inside a begin/commit block.
// The transaction has been rolled back when this error is returned.
type TransactionError struct {
	Op  string
	Err error
}

// NewTransactionError wraps err as a failure of the named operation
func NewTransactionError(op string, err error) *TransactionError {
	return &TransactionError{Op: op, Err: err}
}

// Error implements the error interface
func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction rolled back: %v", e.Op, e.Err)
}

// Unwrap returns the underlying failure
func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Is makes TransactionError match ErrTransaction
func (e *TransactionError) Is(target error) bool {
	return target == ErrTransaction
}

// WrapTransaction classifies an error returned from a transaction body.
// Domain errors pass through unchanged; anything else becomes a
// TransactionError for op. A nil error stays nil.
func WrapTransaction(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	var te *TransactionError
	if errors.As(err, &te) {
		return err
	}
	return NewTransactionError(op, err)
}
