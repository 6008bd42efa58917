// Package envelope defines the generic per-call container every flow
// invocation travels in: a flow marker, shared common data, a flow-specific
// request, and a write-once response slot populated exactly once by the
// adapter's response or error handler.
//
// Envelopes hold no cross-call state. A caller constructs one per external
// call, threads it through the adapter's pure functions, consumes the
// populated response, and discards it.
package envelope

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CommonData carries the fields every flow needs regardless of its
// flow-specific request payload.
type CommonData struct {
	// Status is the canonical attempt status. It only moves forward through
	// the finality lattice; use AdvanceStatus, never assign directly after
	// construction.
	Status AttemptStatus

	// ReferenceID is the caller-side correlation id for this attempt.
	ReferenceID string
	// ConnectorRequestReferenceID uniquely identifies this adapter call,
	// usable as an idempotency key.
	ConnectorRequestReferenceID string
	// ConnectorTransactionID is the gateway-side transaction id, once known.
	ConnectorTransactionID string

	Customer        Customer
	BillingAddress  Address
	ShippingAddress Address

	Config      GatewayConfig
	Credentials Credentials

	CreatedAt time.Time
}

// Outcome is the write-once result slot: exactly one of Response or Error is
// set once the adapter's handler has run.
type Outcome[Resp any] struct {
	Response *Resp
	Error    *ErrorResponse
}

// Envelope is the generic request/response container for one flow invocation.
// Req and Resp are the flow-specific input and success output types.
type Envelope[Req, Resp any] struct {
	flow    Flow
	Common  CommonData
	Request Req

	outcome *Outcome[Resp]
}

// New constructs an envelope for one flow invocation. It assigns a fresh
// ConnectorRequestReferenceID when the caller did not supply one.
func New[Req, Resp any](flow Flow, common CommonData, request Req) (*Envelope[Req, Resp], error) {
	if !flow.IsValid() {
		return nil, fmt.Errorf("envelope: unknown flow marker %q", flow)
	}
	if common.Status == "" {
		common.Status = StatusPending
	}
	if !common.Status.IsValid() {
		return nil, fmt.Errorf("envelope: invalid attempt status %q", common.Status)
	}
	if common.ConnectorRequestReferenceID == "" {
		common.ConnectorRequestReferenceID = uuid.NewString()
	}
	if common.CreatedAt.IsZero() {
		common.CreatedAt = time.Now().UTC()
	}
	return &Envelope[Req, Resp]{flow: flow, Common: common, Request: request}, nil
}

// Flow returns the envelope's flow marker.
func (e *Envelope[Req, Resp]) Flow() Flow {
	return e.flow
}

// Resolved reports whether the response slot has been populated.
func (e *Envelope[Req, Resp]) Resolved() bool {
	return e.outcome != nil
}

// Outcome returns the populated result, or (nil, false) when the envelope was
// never resolved — an unknown outcome the caller must treat as retry-unsafe
// unless an idempotency key was used.
func (e *Envelope[Req, Resp]) Outcome() (*Outcome[Resp], bool) {
	if e.outcome == nil {
		return nil, false
	}
	return e.outcome, true
}

// AdvanceStatus moves the canonical attempt status forward through the
// lattice. Regressing from a terminal state is refused.
func (e *Envelope[Req, Resp]) AdvanceStatus(next AttemptStatus) error {
	if !next.IsValid() {
		return fmt.Errorf("envelope: invalid attempt status %q", next)
	}
	if !e.Common.Status.CanTransition(next) {
		return fmt.Errorf("envelope: illegal status transition %q -> %q", e.Common.Status, next)
	}
	e.Common.Status = next
	return nil
}

// WithResponse returns a copy of the envelope resolved with a success
// response and the given canonical status. The receiver is never mutated;
// adapters return the copy to the caller.
func (e *Envelope[Req, Resp]) WithResponse(resp Resp, status AttemptStatus) (*Envelope[Req, Resp], error) {
	if e.outcome != nil {
		return nil, fmt.Errorf("envelope: response already populated for flow %q", e.flow)
	}
	out := *e
	if status != "" {
		if err := out.AdvanceStatus(status); err != nil {
			return nil, err
		}
	}
	out.outcome = &Outcome[Resp]{Response: &resp}
	return &out, nil
}

// WithError returns a copy of the envelope resolved with a fully-populated
// ErrorResponse. When the error carries an attempt status hint that the
// lattice permits, the copy's status advances to it.
func (e *Envelope[Req, Resp]) WithError(er ErrorResponse) (*Envelope[Req, Resp], error) {
	if e.outcome != nil {
		return nil, fmt.Errorf("envelope: response already populated for flow %q", e.flow)
	}
	out := *e
	if er.AttemptStatusHint != nil && out.Common.Status.CanTransition(*er.AttemptStatusHint) {
		out.Common.Status = *er.AttemptStatusHint
	}
	out.outcome = &Outcome[Resp]{Error: &er}
	return &out, nil
}
