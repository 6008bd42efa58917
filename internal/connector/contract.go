// Package connector defines the abstract operation set every flow
// implementation must expose — headers, URL, request body, response handling,
// error handling — and the adapter container a gateway plugs its flow
// implementations into.
//
// Flow implementations are pure, synchronous transformations over an
// envelope. The caller performs the actual network I/O between Body and
// HandleResponse; adapters hold no per-call state and are safe to share
// across concurrent calls.
package connector

import (
	"net/http"

	"github.com/yourorg/payment-connector/internal/envelope"
	"github.com/yourorg/payment-connector/internal/webhook"
)

// RawResponse is the transport-level result the caller feeds back into a
// flow's response or error handler.
type RawResponse struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Flow is the per-flow contract. Req and Resp are the flow-specific request
// and success response payload types carried by the envelope.
//
// Within one envelope lifecycle the strict sequence is
// Headers -> URL -> Body -> [network call] -> HandleResponse | HandleError.
// Each flow must be independently invocable: all correlation data travels in
// the envelope, never through adapter state.
type Flow[Req, Resp any] interface {
	// HTTPMethod returns the verb for the outgoing request.
	HTTPMethod() string
	// Headers builds the full header set, including auth material.
	Headers(e *envelope.Envelope[Req, Resp]) (http.Header, error)
	// URL builds the request URL as a pure function of envelope and static
	// gateway configuration.
	URL(e *envelope.Envelope[Req, Resp]) (string, error)
	// Body builds the request payload. An explicit empty object and an
	// absent body are distinct outcomes.
	Body(e *envelope.Envelope[Req, Resp]) (Body, error)
	// HandleResponse deserializes a success response, reconciles the
	// gateway status into the canonical set, and returns a new resolved
	// envelope. The input envelope is never mutated.
	HandleResponse(e *envelope.Envelope[Req, Resp], raw RawResponse) (*envelope.Envelope[Req, Resp], error)
	// HandleError builds the fully-populated canonical error response for
	// a failed operation. Idempotent over the same raw response.
	HandleError(raw RawResponse) envelope.ErrorResponse
}

// Typed flow aliases, one per operation in the contract.
type (
	AuthorizeFlow     = Flow[envelope.AuthorizeRequest, envelope.PaymentsResponse]
	CaptureFlow       = Flow[envelope.CaptureRequest, envelope.PaymentsResponse]
	VoidFlow          = Flow[envelope.VoidRequest, envelope.PaymentsResponse]
	RefundFlow        = Flow[envelope.RefundRequest, envelope.RefundResponse]
	PSyncFlow         = Flow[envelope.PSyncRequest, envelope.PaymentsResponse]
	RSyncFlow         = Flow[envelope.RSyncRequest, envelope.RefundResponse]
	CreateOrderFlow   = Flow[envelope.CreateOrderRequest, envelope.OrderResponse]
	SetupMandateFlow  = Flow[envelope.SetupMandateRequest, envelope.MandateResponse]
	DefendDisputeFlow = Flow[envelope.DefendDisputeRequest, envelope.DisputeResponse]
)

// Adapter is one gateway's complete plug-in: its flow implementations plus
// its webhook dialect. A nil flow means the gateway does not support that
// operation; callers surface it as a NotSupported error response rather than
// an execution failure.
type Adapter struct {
	Name   string
	Config envelope.GatewayConfig

	Authorize     AuthorizeFlow
	Capture       CaptureFlow
	Void          VoidFlow
	Refund        RefundFlow
	PSync         PSyncFlow
	RSync         RSyncFlow
	CreateOrder   CreateOrderFlow
	SetupMandate  SetupMandateFlow
	DefendDispute DefendDisputeFlow

	Webhook *webhook.Mapper
}

// Supports reports whether the adapter implements the given flow.
func (a *Adapter) Supports(flow envelope.Flow) bool {
	switch flow {
	case envelope.FlowAuthorize:
		return a.Authorize != nil
	case envelope.FlowCapture:
		return a.Capture != nil
	case envelope.FlowVoid:
		return a.Void != nil
	case envelope.FlowRefund:
		return a.Refund != nil
	case envelope.FlowPSync:
		return a.PSync != nil
	case envelope.FlowRSync:
		return a.RSync != nil
	case envelope.FlowCreateOrder:
		return a.CreateOrder != nil
	case envelope.FlowSetupMandate:
		return a.SetupMandate != nil
	case envelope.FlowDefendDispute:
		return a.DefendDispute != nil
	case envelope.FlowWebhook:
		return a.Webhook != nil
	default:
		return false
	}
}
