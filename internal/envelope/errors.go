package envelope

import (
	"fmt"
)

// ErrorKind is the closed canonical error taxonomy every gateway error is
// classified into.
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation"
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	KindAuthorizationFailed  ErrorKind = "authorization_failed"
	KindInsufficientFunds    ErrorKind = "insufficient_funds"
	KindCardDeclined         ErrorKind = "card_declined"
	KindAlreadyProcessed     ErrorKind = "already_processed"
	KindRateLimited          ErrorKind = "rate_limited"
	KindTransient            ErrorKind = "transient"
	KindNotSupported         ErrorKind = "not_supported"
	KindUnknown              ErrorKind = "unknown"
)

// Retryable reports whether the kind is a hint that the caller may safely
// retry. The framework itself never retries; this is classification only.
func (k ErrorKind) Retryable() bool {
	return k == KindTransient || k == KindRateLimited
}

// ErrorResponse is the fully-populated failure outcome of an operation.
// An operation returns either a complete success response or a complete
// ErrorResponse, never a partial mix of both.
type ErrorResponse struct {
	StatusCode int       `json:"status_code"`
	Kind       ErrorKind `json:"kind"`
	Code       string    `json:"code"` // raw gateway code, preserved for diagnostics
	Message    string    `json:"message"`
	Reason     string    `json:"reason,omitempty"`

	// AttemptStatusHint is set when the classification implies a canonical
	// attempt status, e.g. AlreadyProcessed resolving to the existing
	// terminal status.
	AttemptStatusHint *AttemptStatus `json:"attempt_status,omitempty"`

	ConnectorTransactionID string `json:"connector_transaction_id,omitempty"`
	NetworkDeclineCode     string `json:"network_decline_code,omitempty"`
	NetworkAdviceCode      string `json:"network_advice_code,omitempty"`
	NetworkErrorMessage    string `json:"network_error_message,omitempty"`
}

// MissingRequiredFieldError reports a field the flow cannot run without,
// e.g. an absent transaction id on a capture or sync. It is surfaced to the
// caller immediately and never retried.
type MissingRequiredFieldError struct {
	Field string
	Flow  Flow
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("missing required field %q for flow %q", e.Field, e.Flow)
}

// NewMissingRequiredField builds the error for a named field on a flow.
func NewMissingRequiredField(flow Flow, field string) *MissingRequiredFieldError {
	return &MissingRequiredFieldError{Field: field, Flow: flow}
}
