package envelope

import (
	"github.com/yourorg/payment-connector/internal/method"
)

// Address is the canonical billing/shipping address shape.
type Address struct {
	Line1       string `json:"line1,omitempty"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	CountryCode string `json:"country_code,omitempty"` // ISO 3166-1 alpha-2
}

// Customer is the canonical customer shape attached to common data.
type Customer struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// RedirectForm describes a customer redirection a gateway demands before the
// attempt can progress (3DS, bank redirect, hosted page).
type RedirectForm struct {
	URL    string            `json:"url"`
	Method string            `json:"method"` // GET or POST
	Fields map[string]string `json:"fields,omitempty"`
}

// AuthorizeRequest is the flow-specific input for Authorize.
type AuthorizeRequest struct {
	Amount               int64 // canonical minor units
	Currency             string
	PaymentMethod        method.Data
	CaptureAutomatically bool
	ReturnURL            string
	StatementDescriptor  string
	OrderID              string // gateway order reference, when CreateOrder ran first
	MandateID            string // gateway mandate reference, for off-session charges
}

// CaptureRequest is the flow-specific input for Capture. PaymentAmount is the
// originally authorized amount; AmountToCapture below it makes the capture
// partial.
type CaptureRequest struct {
	TransactionID   string
	AmountToCapture int64
	PaymentAmount   int64
	Currency        string
}

// IsPartial reports whether the capture settles less than was authorized.
func (r CaptureRequest) IsPartial() bool {
	return r.AmountToCapture > 0 && r.AmountToCapture < r.PaymentAmount
}

// VoidRequest is the flow-specific input for Void.
type VoidRequest struct {
	TransactionID      string
	CancellationReason string
}

// RefundRequest is the flow-specific input for Refund.
type RefundRequest struct {
	TransactionID string
	RefundID      string // caller-side refund reference
	RefundAmount  int64
	PaymentAmount int64
	Currency      string
	Reason        string
}

// PSyncRequest is the flow-specific input for a payment status sync.
type PSyncRequest struct {
	TransactionID string
}

// RSyncRequest is the flow-specific input for a refund status sync.
type RSyncRequest struct {
	TransactionID     string
	ConnectorRefundID string
}

// CreateOrderRequest is the flow-specific input for CreateOrder.
type CreateOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
}

// SetupMandateRequest is the flow-specific input for SetupMandate.
type SetupMandateRequest struct {
	PaymentMethod method.Data
	CustomerID    string
	ReturnURL     string
}

// DefendDisputeRequest is the flow-specific input for DefendDispute.
type DefendDisputeRequest struct {
	DisputeID string
	Evidence  map[string]string
}

// PaymentsResponse is the success outcome for payment-side flows
// (Authorize, Capture, Void, PSync).
type PaymentsResponse struct {
	TransactionID     string            `json:"transaction_id"`
	Status            AttemptStatus     `json:"status"`
	Redirect          *RedirectForm     `json:"redirect,omitempty"`
	NetworkTxnID      string            `json:"network_txn_id,omitempty"`
	CapturedAmount    *int64            `json:"captured_amount,omitempty"`
	ConnectorMetadata map[string]string `json:"connector_metadata,omitempty"`
}

// RefundResponse is the success outcome for refund-side flows (Refund, RSync).
type RefundResponse struct {
	ConnectorRefundID string       `json:"connector_refund_id"`
	Status            RefundStatus `json:"status"`
}

// OrderResponse is the success outcome for CreateOrder.
type OrderResponse struct {
	OrderID string `json:"order_id"`
}

// MandateResponse is the success outcome for SetupMandate.
type MandateResponse struct {
	MandateID string        `json:"mandate_id"`
	Status    AttemptStatus `json:"status"`
}

// DisputeResponse is the success outcome for DefendDispute.
type DisputeResponse struct {
	DisputeID string `json:"dispute_id"`
	Accepted  bool   `json:"accepted"`
}
