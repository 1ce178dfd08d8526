package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidChunkType          = NewDomainError(ErrCodeValidation, "invalid knowledge chunk type")
	ErrInvalidVerificationStatus = NewDomainError(ErrCodeValidation, "invalid verification status")
	ErrInvalidGapCategory        = NewDomainError(ErrCodeValidation, "invalid gap category")
	ErrInvalidVoteAction         = NewDomainError(ErrCodeValidation, "invalid vote action")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrKnowledgeEntryNotFound  = NewDomainError(ErrCodeNotFound, "knowledge entry not found")
	ErrConversationNotFound    = NewDomainError(ErrCodeNotFound, "conversation not found")
	ErrPipelineRunNotFound     = NewDomainError(ErrCodeNotFound, "pipeline run not found")
	ErrEscalationItemNotFound  = NewDomainError(ErrCodeNotFound, "escalation item not found")
	ErrConversationMsgNotFound = NewDomainError(ErrCodeNotFound, "conversation message not found")
)

// Operation errors
var (
	// ErrEscalationConflict is returned when a reviewer acts on an item that
	// another reviewer already resolved. The stored state is unchanged.
	ErrEscalationConflict = NewDomainError(ErrCodeConflict, "escalation item already resolved")

	// ErrVerificationDowngrade guards the monotonic trust ladder: a knowledge
	// entry's verification status never decreases.
	ErrVerificationDowngrade = NewDomainError(ErrCodeInvalidOperation, "verification status cannot decrease")

	ErrDuplicateVote = NewDomainError(ErrCodeConflict, "reviewer already voted on this item")
)

// ErrRateLimited is returned when a learner exhausts the per-window call
// budget. Surfaced distinctly so the UI can explain it.
var ErrRateLimited = NewDomainError(ErrCodeRateLimited, "request budget exhausted, try again shortly")
