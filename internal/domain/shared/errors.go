package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState  = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrTillNotOpen   = NewDomainError("TILL_NOT_OPEN", "Till is not open")
	ErrStoreDegraded = NewDomainError("STORE_DEGRADED", "Local store unavailable, running without durability")
)

// NewPendingSyncError reports a till close blocked by queued transactions.
// The count makes the message actionable for the cashier.
func NewPendingSyncError(pending int) *DomainError {
	noun := "transactions"
	if pending == 1 {
		noun = "transaction"
	}
	return NewDomainError("PENDING_SYNC",
		fmt.Sprintf("%d %s pending, sync before closing till", pending, noun))
}
