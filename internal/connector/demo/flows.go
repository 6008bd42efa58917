package demo

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/yourorg/payment-connector/internal/amount"
	"github.com/yourorg/payment-connector/internal/connector"
	"github.com/yourorg/payment-connector/internal/envelope"
	"github.com/yourorg/payment-connector/internal/method"
	"github.com/yourorg/payment-connector/internal/status"
)

// headersFor builds the full header set for a flow. The body is built first
// because HMAC auth signs it; flows are pure, so rebuilding is side-effect
// free and yields identical bytes.
func headersFor[Req, Resp any](b *base, f connector.Flow[Req, Resp], e *envelope.Envelope[Req, Resp]) (http.Header, error) {
	body, err := f.Body(e)
	if err != nil {
		return nil, err
	}
	return b.caps.RequestHeaders(e.Common, body)
}

// resolvePayment decodes a payment-side wire response, reconciles its status
// and resolves the envelope. requestedCapture supplies amount evidence when
// the wire response itself names none.
func resolvePayment[Req any](
	b *base,
	e *envelope.Envelope[Req, envelope.PaymentsResponse],
	raw connector.RawResponse,
	flow envelope.Flow,
	authorized int64,
	requestedCapture *int64,
) (*envelope.Envelope[Req, envelope.PaymentsResponse], error) {
	var wr wirePaymentResponse
	if err := json.Unmarshal(raw.Body, &wr); err != nil {
		return nil, fmt.Errorf("demo: decoding %s response: %w", flow, err)
	}
	captured := wr.Amount
	if captured == nil && requestedCapture != nil {
		captured = requestedCapture
	}
	st := b.statuses.ReconcilePayment(
		status.FromToken(wr.Status),
		flow,
		status.Amounts{Captured: captured, Authorized: authorized},
	)
	resp := envelope.PaymentsResponse{
		TransactionID:  wr.ID,
		Status:         st,
		NetworkTxnID:   wr.NetworkTxnID,
		CapturedAmount: captured,
	}
	if wr.RedirectURL != "" {
		resp.Redirect = &envelope.RedirectForm{URL: wr.RedirectURL, Method: http.MethodGet}
	}
	out, err := e.WithResponse(resp, st)
	if err != nil {
		return nil, err
	}
	if wr.ID != "" {
		out.Common.ConnectorTransactionID = wr.ID
	}
	return out, nil
}

// Authorize

type authorizeFlow struct{ *base }

func (f *authorizeFlow) HTTPMethod() string { return http.MethodPost }

func (f *authorizeFlow) URL(*envelope.Envelope[envelope.AuthorizeRequest, envelope.PaymentsResponse]) (string, error) {
	return f.url("v1", "payments"), nil
}

func (f *authorizeFlow) Headers(e *envelope.Envelope[envelope.AuthorizeRequest, envelope.PaymentsResponse]) (http.Header, error) {
	return headersFor(f.base, f, e)
}

func (f *authorizeFlow) Body(e *envelope.Envelope[envelope.AuthorizeRequest, envelope.PaymentsResponse]) (connector.Body, error) {
	req := e.Request
	rep, err := amount.Convert(req.Amount, req.Currency, amount.MinorInteger)
	if err != nil {
		return connector.Body{}, err
	}
	payload := map[string]any{
		"amount":    rep.MinorInt,
		"currency":  strings.ToUpper(req.Currency),
		"capture":   req.CaptureAutomatically,
		"reference": e.Common.ReferenceID,
	}
	if req.StatementDescriptor != "" {
		payload["statement_descriptor"] = req.StatementDescriptor
	}
	if req.OrderID != "" {
		payload["order_id"] = req.OrderID
	}
	if req.MandateID != "" {
		payload["mandate_id"] = req.MandateID
	}
	if email := e.Common.Customer.Email; email != "" {
		payload["customer_email"] = email
	}

	fragment, err := f.dispatch.Dispatch(req.PaymentMethod, method.FlowContext{
		Gateway:   GatewayName,
		Flow:      envelope.FlowAuthorize.String(),
		Amount:    req.Amount,
		Currency:  req.Currency,
		ReturnURL: req.ReturnURL,
	})
	if err != nil {
		return connector.Body{}, err
	}
	for k, v := range fragment {
		payload[k] = v
	}
	for k, v := range f.caps.BodyCredentials(e.Common.Credentials) {
		payload[k] = v
	}
	return connector.JSONBody(payload)
}

func (f *authorizeFlow) HandleResponse(e *envelope.Envelope[envelope.AuthorizeRequest, envelope.PaymentsResponse], raw connector.RawResponse) (*envelope.Envelope[envelope.AuthorizeRequest, envelope.PaymentsResponse], error) {
	return resolvePayment(f.base, e, raw, envelope.FlowAuthorize, e.Request.Amount, nil)
}

func (f *authorizeFlow) HandleError(raw connector.RawResponse) envelope.ErrorResponse {
	return f.handleError(raw)
}

// Capture

type captureFlow struct{ *base }

func (f *captureFlow) HTTPMethod() string { return http.MethodPost }

func (f *captureFlow) URL(e *envelope.Envelope[envelope.CaptureRequest, envelope.PaymentsResponse]) (string, error) {
	if e.Request.TransactionID == "" {
		return "", envelope.NewMissingRequiredField(envelope.FlowCapture, "transaction_id")
	}
	return f.url("v1", "payments", e.Request.TransactionID, "captures"), nil
}

func (f *captureFlow) Headers(e *envelope.Envelope[envelope.CaptureRequest, envelope.PaymentsResponse]) (http.Header, error) {
	return headersFor(f.base, f, e)
}

// Body follows demopay's settlement convention: partial captures carry the
// amount, full captures carry either a literal "{}" or no payload at all,
// depending on gateway configuration. The two are never interchangeable.
func (f *captureFlow) Body(e *envelope.Envelope[envelope.CaptureRequest, envelope.PaymentsResponse]) (connector.Body, error) {
	req := e.Request
	if req.IsPartial() {
		rep, err := amount.Convert(req.AmountToCapture, req.Currency, amount.MinorInteger)
		if err != nil {
			return connector.Body{}, err
		}
		return connector.JSONBody(map[string]any{"amount": rep.MinorInt})
	}
	if f.cfg.RequiresEmptyObjectForFullCapture {
		return connector.EmptyObject(), nil
	}
	return connector.NoBody(), nil
}

func (f *captureFlow) HandleResponse(e *envelope.Envelope[envelope.CaptureRequest, envelope.PaymentsResponse], raw connector.RawResponse) (*envelope.Envelope[envelope.CaptureRequest, envelope.PaymentsResponse], error) {
	var requested *int64
	if e.Request.AmountToCapture > 0 {
		v := e.Request.AmountToCapture
		requested = &v
	}
	return resolvePayment(f.base, e, raw, envelope.FlowCapture, e.Request.PaymentAmount, requested)
}

func (f *captureFlow) HandleError(raw connector.RawResponse) envelope.ErrorResponse {
	return f.handleError(raw)
}

// Void

type voidFlow struct{ *base }

func (f *voidFlow) HTTPMethod() string { return http.MethodPost }

func (f *voidFlow) URL(e *envelope.Envelope[envelope.VoidRequest, envelope.PaymentsResponse]) (string, error) {
	if e.Request.TransactionID == "" {
		return "", envelope.NewMissingRequiredField(envelope.FlowVoid, "transaction_id")
	}
	return f.url("v1", "payments", e.Request.TransactionID, "cancellations"), nil
}

func (f *voidFlow) Headers(e *envelope.Envelope[envelope.VoidRequest, envelope.PaymentsResponse]) (http.Header, error) {
	return headersFor(f.base, f, e)
}

func (f *voidFlow) Body(e *envelope.Envelope[envelope.VoidRequest, envelope.PaymentsResponse]) (connector.Body, error) {
	if e.Request.CancellationReason == "" {
		return connector.EmptyObject(), nil
	}
	return connector.JSONBody(map[string]any{"reason": e.Request.CancellationReason})
}

func (f *voidFlow) HandleResponse(e *envelope.Envelope[envelope.VoidRequest, envelope.PaymentsResponse], raw connector.RawResponse) (*envelope.Envelope[envelope.VoidRequest, envelope.PaymentsResponse], error) {
	return resolvePayment(f.base, e, raw, envelope.FlowVoid, 0, nil)
}

func (f *voidFlow) HandleError(raw connector.RawResponse) envelope.ErrorResponse {
	return f.handleError(raw)
}

// Refund

type refundFlow struct{ *base }

func (f *refundFlow) HTTPMethod() string { return http.MethodPost }

func (f *refundFlow) URL(e *envelope.Envelope[envelope.RefundRequest, envelope.RefundResponse]) (string, error) {
	if e.Request.TransactionID == "" {
		return "", envelope.NewMissingRequiredField(envelope.FlowRefund, "transaction_id")
	}
	return f.url("v1", "payments", e.Request.TransactionID, "refunds"), nil
}

func (f *refundFlow) Headers(e *envelope.Envelope[envelope.RefundRequest, envelope.RefundResponse]) (http.Header, error) {
	return headersFor(f.base, f, e)
}

func (f *refundFlow) Body(e *envelope.Envelope[envelope.RefundRequest, envelope.RefundResponse]) (connector.Body, error) {
	req := e.Request
	rep, err := amount.Convert(req.RefundAmount, req.Currency, amount.MinorInteger)
	if err != nil {
		return connector.Body{}, err
	}
	payload := map[string]any{
		"amount":    rep.MinorInt,
		"reference": req.RefundID,
	}
	if req.Reason != "" {
		payload["reason"] = req.Reason
	}
	return connector.JSONBody(payload)
}

func (f *refundFlow) HandleResponse(e *envelope.Envelope[envelope.RefundRequest, envelope.RefundResponse], raw connector.RawResponse) (*envelope.Envelope[envelope.RefundRequest, envelope.RefundResponse], error) {
	var wr wireRefundResponse
	if err := json.Unmarshal(raw.Body, &wr); err != nil {
		return nil, fmt.Errorf("demo: decoding refund response: %w", err)
	}
	resp := envelope.RefundResponse{
		ConnectorRefundID: wr.ID,
		Status:            f.statuses.ReconcileRefund(status.FromToken(wr.Status)),
	}
	return e.WithResponse(resp, "")
}

func (f *refundFlow) HandleError(raw connector.RawResponse) envelope.ErrorResponse {
	return f.handleError(raw)
}

// PSync

type psyncFlow struct{ *base }

func (f *psyncFlow) HTTPMethod() string { return http.MethodGet }

func (f *psyncFlow) URL(e *envelope.Envelope[envelope.PSyncRequest, envelope.PaymentsResponse]) (string, error) {
	if e.Request.TransactionID == "" {
		return "", envelope.NewMissingRequiredField(envelope.FlowPSync, "transaction_id")
	}
	return f.url("v1", "payments", e.Request.TransactionID), nil
}

func (f *psyncFlow) Headers(e *envelope.Envelope[envelope.PSyncRequest, envelope.PaymentsResponse]) (http.Header, error) {
	return headersFor(f.base, f, e)
}

func (f *psyncFlow) Body(*envelope.Envelope[envelope.PSyncRequest, envelope.PaymentsResponse]) (connector.Body, error) {
	return connector.NoBody(), nil
}

func (f *psyncFlow) HandleResponse(e *envelope.Envelope[envelope.PSyncRequest, envelope.PaymentsResponse], raw connector.RawResponse) (*envelope.Envelope[envelope.PSyncRequest, envelope.PaymentsResponse], error) {
	return resolvePayment(f.base, e, raw, envelope.FlowPSync, 0, nil)
}

func (f *psyncFlow) HandleError(raw connector.RawResponse) envelope.ErrorResponse {
	return f.handleError(raw)
}

// RSync

type rsyncFlow struct{ *base }

func (f *rsyncFlow) HTTPMethod() string { return http.MethodGet }

func (f *rsyncFlow) URL(e *envelope.Envelope[envelope.RSyncRequest, envelope.RefundResponse]) (string, error) {
	if e.Request.ConnectorRefundID == "" {
		return "", envelope.NewMissingRequiredField(envelope.FlowRSync, "connector_refund_id")
	}
	return f.url("v1", "refunds", e.Request.ConnectorRefundID), nil
}

func (f *rsyncFlow) Headers(e *envelope.Envelope[envelope.RSyncRequest, envelope.RefundResponse]) (http.Header, error) {
	return headersFor(f.base, f, e)
}

func (f *rsyncFlow) Body(*envelope.Envelope[envelope.RSyncRequest, envelope.RefundResponse]) (connector.Body, error) {
	return connector.NoBody(), nil
}

func (f *rsyncFlow) HandleResponse(e *envelope.Envelope[envelope.RSyncRequest, envelope.RefundResponse], raw connector.RawResponse) (*envelope.Envelope[envelope.RSyncRequest, envelope.RefundResponse], error) {
	var wr wireRefundResponse
	if err := json.Unmarshal(raw.Body, &wr); err != nil {
		return nil, fmt.Errorf("demo: decoding refund sync response: %w", err)
	}
	resp := envelope.RefundResponse{
		ConnectorRefundID: wr.ID,
		Status:            f.statuses.ReconcileRefund(status.FromToken(wr.Status)),
	}
	return e.WithResponse(resp, "")
}

func (f *rsyncFlow) HandleError(raw connector.RawResponse) envelope.ErrorResponse {
	return f.handleError(raw)
}

// CreateOrder

type createOrderFlow struct{ *base }

type wireOrderResponse struct {
	ID string `json:"id"`
}

func (f *createOrderFlow) HTTPMethod() string { return http.MethodPost }

func (f *createOrderFlow) URL(*envelope.Envelope[envelope.CreateOrderRequest, envelope.OrderResponse]) (string, error) {
	return f.url("v1", "orders"), nil
}

func (f *createOrderFlow) Headers(e *envelope.Envelope[envelope.CreateOrderRequest, envelope.OrderResponse]) (http.Header, error) {
	return headersFor(f.base, f, e)
}

func (f *createOrderFlow) Body(e *envelope.Envelope[envelope.CreateOrderRequest, envelope.OrderResponse]) (connector.Body, error) {
	rep, err := amount.Convert(e.Request.Amount, e.Request.Currency, amount.MinorInteger)
	if err != nil {
		return connector.Body{}, err
	}
	return connector.JSONBody(map[string]any{
		"amount":   rep.MinorInt,
		"currency": strings.ToUpper(e.Request.Currency),
		"receipt":  e.Request.Receipt,
	})
}

func (f *createOrderFlow) HandleResponse(e *envelope.Envelope[envelope.CreateOrderRequest, envelope.OrderResponse], raw connector.RawResponse) (*envelope.Envelope[envelope.CreateOrderRequest, envelope.OrderResponse], error) {
	var wr wireOrderResponse
	if err := json.Unmarshal(raw.Body, &wr); err != nil {
		return nil, fmt.Errorf("demo: decoding order response: %w", err)
	}
	return e.WithResponse(envelope.OrderResponse{OrderID: wr.ID}, "")
}

func (f *createOrderFlow) HandleError(raw connector.RawResponse) envelope.ErrorResponse {
	return f.handleError(raw)
}

// SetupMandate

type setupMandateFlow struct{ *base }

type wireMandateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (f *setupMandateFlow) HTTPMethod() string { return http.MethodPost }

func (f *setupMandateFlow) URL(*envelope.Envelope[envelope.SetupMandateRequest, envelope.MandateResponse]) (string, error) {
	return f.url("v1", "mandates"), nil
}

func (f *setupMandateFlow) Headers(e *envelope.Envelope[envelope.SetupMandateRequest, envelope.MandateResponse]) (http.Header, error) {
	return headersFor(f.base, f, e)
}

func (f *setupMandateFlow) Body(e *envelope.Envelope[envelope.SetupMandateRequest, envelope.MandateResponse]) (connector.Body, error) {
	payload := map[string]any{
		"customer_id": e.Request.CustomerID,
	}
	fragment, err := f.dispatch.Dispatch(e.Request.PaymentMethod, method.FlowContext{
		Gateway:   GatewayName,
		Flow:      envelope.FlowSetupMandate.String(),
		ReturnURL: e.Request.ReturnURL,
	})
	if err != nil {
		return connector.Body{}, err
	}
	for k, v := range fragment {
		payload[k] = v
	}
	for k, v := range f.caps.BodyCredentials(e.Common.Credentials) {
		payload[k] = v
	}
	return connector.JSONBody(payload)
}

func (f *setupMandateFlow) HandleResponse(e *envelope.Envelope[envelope.SetupMandateRequest, envelope.MandateResponse], raw connector.RawResponse) (*envelope.Envelope[envelope.SetupMandateRequest, envelope.MandateResponse], error) {
	var wr wireMandateResponse
	if err := json.Unmarshal(raw.Body, &wr); err != nil {
		return nil, fmt.Errorf("demo: decoding mandate response: %w", err)
	}
	st := f.statuses.ReconcilePayment(status.FromToken(wr.Status), envelope.FlowSetupMandate, status.Amounts{})
	return e.WithResponse(envelope.MandateResponse{MandateID: wr.ID, Status: st}, st)
}

func (f *setupMandateFlow) HandleError(raw connector.RawResponse) envelope.ErrorResponse {
	return f.handleError(raw)
}

// DefendDispute

type defendDisputeFlow struct{ *base }

type wireDisputeResponse struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
}

func (f *defendDisputeFlow) HTTPMethod() string { return http.MethodPost }

func (f *defendDisputeFlow) URL(e *envelope.Envelope[envelope.DefendDisputeRequest, envelope.DisputeResponse]) (string, error) {
	if e.Request.DisputeID == "" {
		return "", envelope.NewMissingRequiredField(envelope.FlowDefendDispute, "dispute_id")
	}
	return f.url("v1", "disputes", e.Request.DisputeID, "defend"), nil
}

func (f *defendDisputeFlow) Headers(e *envelope.Envelope[envelope.DefendDisputeRequest, envelope.DisputeResponse]) (http.Header, error) {
	return headersFor(f.base, f, e)
}

func (f *defendDisputeFlow) Body(e *envelope.Envelope[envelope.DefendDisputeRequest, envelope.DisputeResponse]) (connector.Body, error) {
	if len(e.Request.Evidence) == 0 {
		return connector.EmptyObject(), nil
	}
	return connector.JSONBody(map[string]any{"evidence": e.Request.Evidence})
}

func (f *defendDisputeFlow) HandleResponse(e *envelope.Envelope[envelope.DefendDisputeRequest, envelope.DisputeResponse], raw connector.RawResponse) (*envelope.Envelope[envelope.DefendDisputeRequest, envelope.DisputeResponse], error) {
	var wr wireDisputeResponse
	if err := json.Unmarshal(raw.Body, &wr); err != nil {
		return nil, fmt.Errorf("demo: decoding dispute response: %w", err)
	}
	return e.WithResponse(envelope.DisputeResponse{DisputeID: wr.ID, Accepted: wr.Accepted}, "")
}

func (f *defendDisputeFlow) HandleError(raw connector.RawResponse) envelope.ErrorResponse {
	return f.handleError(raw)
}
