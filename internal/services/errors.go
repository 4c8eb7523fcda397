package services

import (
	"errors"
	"fmt"
)

// Sentinel failures for the request path. Generation failures are not
// listed here because they are recovered locally with a fallback reply
// and never surface to the caller.
var (
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrSynthesisFailed     = errors.New("synthesis failed")
	ErrCallNotFound        = errors.New("call not found")
	ErrSummaryNotReady     = errors.New("summary not ready")
	ErrInvalidTransition   = errors.New("invalid call status transition")
)

// RejectionReason is the typed outcome of a Policy Gate denial.
type RejectionReason string

const (
	RejectDisabled     RejectionReason = "disabled"
	RejectNotAllowed   RejectionReason = "not_allowed"
	RejectBlocked      RejectionReason = "blocked"
	RejectOutsideHours RejectionReason = "outside_hours"
)

// PolicyRejectionError carries a gate denial to the HTTP layer. It is a
// decision, not a fault; handlers map it to 403.
type PolicyRejectionError struct {
	Reason RejectionReason
}

func (e *PolicyRejectionError) Error() string {
	return fmt.Sprintf("call rejected by policy: %s", e.Reason)
}

// ValidationError reports a malformed settings update.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
