// Package demo is the in-tree reference adapter for the fictional "demopay"
// gateway. It exercises every flow in the contract — JSON bodies, GET syncs,
// empty-object settlement, partial captures, HMAC-signed webhooks — and is
// the template a real gateway plug-in follows.
package demo

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/yourorg/payment-connector/internal/connector"
	"github.com/yourorg/payment-connector/internal/envelope"
	"github.com/yourorg/payment-connector/internal/errtax"
	"github.com/yourorg/payment-connector/internal/method"
	"github.com/yourorg/payment-connector/internal/status"
	"github.com/yourorg/payment-connector/internal/webhook"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const GatewayName = "demopay"

// statusVocabulary is demopay's declared payment/refund status vocabulary.
func statusVocabulary() status.Vocabulary {
	return status.Vocabulary{
		Payment: map[string]envelope.AttemptStatus{
			"pending":                 envelope.StatusPending,
			"authorised":              envelope.StatusAuthorized,
			"authentication_required": envelope.StatusAuthenticationPending,
			"captured":                envelope.StatusCharged,
			"sentForSettlement":       envelope.StatusCharged,
			"refused":                 envelope.StatusAuthorizationFailed,
			"cancelled":               envelope.StatusVoided,
			"cancel_failed":           envelope.StatusVoidFailed,
			"error":                   envelope.StatusFailure,
		},
		Refund: map[string]envelope.RefundStatus{
			"refund_pending": envelope.RefundPending,
			"refunded":       envelope.RefundSuccess,
			"refund_failed":  envelope.RefundFailure,
		},
	}
}

// errorTable is demopay's declared error-code taxonomy.
func errorTable() map[string]errtax.Entry {
	return map[string]errtax.Entry{
		"invalid_request":    {Kind: envelope.KindValidation},
		"invalid_api_key":    {Kind: envelope.KindAuthenticationFailed},
		"forbidden":          {Kind: envelope.KindAuthorizationFailed},
		"insufficient_funds": {Kind: envelope.KindInsufficientFunds, StatusHint: envelope.StatusAuthorizationFailed},
		"card_refused":       {Kind: envelope.KindCardDeclined, StatusHint: envelope.StatusAuthorizationFailed},
		"already_captured":   {Kind: envelope.KindAlreadyProcessed, StatusHint: envelope.StatusCharged},
		"already_refunded":   {Kind: envelope.KindAlreadyProcessed},
		"already_cancelled":  {Kind: envelope.KindAlreadyProcessed, StatusHint: envelope.StatusVoided},
	}
}

// classificationRules extends the code table with expression rules.
func classificationRules() []errtax.RuleConfig {
	return []errtax.RuleConfig{
		{Name: "throttled", Expression: "http_status == 429 || code == 'too_many_requests'", Kind: envelope.KindRateLimited},
		{Name: "gateway-down", Expression: "http_status >= 500", Kind: envelope.KindTransient},
	}
}

// branchTable registers the payment methods demopay supports. Everything
// absent here dispatches to NotSupported naming the gateway and the method.
func branchTable() map[method.Kind]method.Branch {
	return map[method.Kind]method.Branch{
		method.KindCard: func(data method.Data, _ method.FlowContext) (method.Fragment, error) {
			card, ok := data.(method.Card)
			if !ok {
				return nil, fmt.Errorf("demopay: card branch received %T", data)
			}
			return method.Fragment{
				"payment_method": map[string]any{
					"type":         "card",
					"number":       card.Number,
					"expiry_month": card.ExpiryMonth,
					"expiry_year":  card.ExpiryYear,
					"cvc":          card.CVC,
					"holder_name":  card.HolderName,
				},
			}, nil
		},
		method.KindWallet: func(data method.Data, _ method.FlowContext) (method.Fragment, error) {
			wallet, ok := data.(method.Wallet)
			if !ok {
				return nil, fmt.Errorf("demopay: wallet branch received %T", data)
			}
			return method.Fragment{
				"payment_method": map[string]any{
					"type":   "wallet",
					"scheme": string(wallet.Type),
					"token":  wallet.Token,
				},
			}, nil
		},
		method.KindBankRedirect: func(data method.Data, ctx method.FlowContext) (method.Fragment, error) {
			redirect, ok := data.(method.BankRedirect)
			if !ok {
				return nil, fmt.Errorf("demopay: bank redirect branch received %T", data)
			}
			return method.Fragment{
				"payment_method": map[string]any{
					"type":    "bank_redirect",
					"scheme":  string(redirect.Scheme),
					"issuer":  redirect.Issuer,
					"country": redirect.CountryCode,
				},
				"return_url": ctx.ReturnURL,
			}, nil
		},
		method.KindPayLater: func(data method.Data, ctx method.FlowContext) (method.Fragment, error) {
			bnpl, ok := data.(method.PayLater)
			if !ok {
				return nil, fmt.Errorf("demopay: pay later branch received %T", data)
			}
			return method.Fragment{
				"payment_method": map[string]any{
					"type":   "pay_later",
					"issuer": string(bnpl.Issuer),
					"token":  bnpl.Token,
				},
				"return_url": ctx.ReturnURL,
			}, nil
		},
	}
}

// webhookConfig is demopay's webhook dialect: hex HMAC-SHA256 signatures,
// event token in "event_type", reference id in "data.reference".
func webhookConfig() webhook.Config {
	return webhook.Config{
		Gateway:        GatewayName,
		Scheme:         webhook.SignatureHexHMAC,
		EventField:     "event_type",
		ReferenceField: "data.reference",
		Events: map[string]webhook.EventType{
			"payment.authorised": webhook.PaymentAuthorized,
			"payment.captured":   webhook.PaymentCaptured,
			"payment.failed":     webhook.PaymentFailed,
			"payment.cancelled":  webhook.PaymentCancelled,
			"refund.succeeded":   webhook.RefundSucceeded,
			"refund.failed":      webhook.RefundFailed,
			"dispute.opened":     webhook.DisputeOpened,
			"dispute.won":        webhook.DisputeWon,
			"dispute.lost":       webhook.DisputeLost,
		},
		PayloadSchema: `{
			"type": "object",
			"required": ["event_type", "data"],
			"properties": {
				"event_type": {"type": "string"},
				"data": {
					"type": "object",
					"required": ["reference"],
					"properties": {"reference": {"type": "string"}}
				}
			}
		}`,
	}
}

// base carries the cross-flow machinery every demopay flow shares.
type base struct {
	cfg      envelope.GatewayConfig
	caps     connector.CommonCapabilities
	dispatch *method.Dispatcher
	statuses *status.Reconciler
}

func (b *base) url(segments ...string) string {
	return strings.TrimSuffix(b.cfg.BaseURL, "/") + "/" + strings.Join(segments, "/")
}

// wire shapes

type wirePaymentResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       *int64 `json:"amount,omitempty"` // captured amount, minor units
	RedirectURL  string `json:"redirect_url,omitempty"`
	NetworkTxnID string `json:"network_transaction_id,omitempty"`
}

type wireRefundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type wireError struct {
	Error struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		DeclineCode string `json:"decline_code,omitempty"`
	} `json:"error"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// handleError decodes demopay's error envelope and classifies it. Shared by
// every flow; duplicating it per flow would be a defect.
func (b *base) handleError(raw connector.RawResponse) envelope.ErrorResponse {
	var we wireError
	rawErr := errtax.RawError{}
	txnID := ""
	if err := json.Unmarshal(raw.Body, &we); err == nil {
		rawErr.Code = we.Error.Code
		rawErr.Message = we.Error.Message
		rawErr.DeclineCode = we.Error.DeclineCode
		txnID = we.TransactionID
	}
	return b.caps.BuildError(raw.StatusCode, rawErr, txnID)
}

// New constructs the demopay adapter from static gateway configuration.
// The returned adapter is stateless and safe for concurrent use.
func New(cfg envelope.GatewayConfig) (*connector.Adapter, error) {
	if cfg.Gateway == "" {
		cfg.Gateway = GatewayName
	}
	if cfg.Gateway != GatewayName {
		return nil, fmt.Errorf("demo: config is for gateway %q, not %q", cfg.Gateway, GatewayName)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("demo: base url is required")
	}
	if cfg.Auth == "" {
		cfg.Auth = envelope.AuthBearer
	}

	errors, err := errtax.NewMapper(GatewayName, errorTable(), classificationRules())
	if err != nil {
		return nil, fmt.Errorf("demo: building error mapper: %w", err)
	}
	hooks, err := webhook.NewMapper(webhookConfig())
	if err != nil {
		return nil, fmt.Errorf("demo: building webhook mapper: %w", err)
	}

	b := &base{
		cfg: cfg,
		caps: connector.CommonCapabilities{
			Gateway: GatewayName,
			Auth:    cfg.Auth,
			Errors:  errors,
		},
		dispatch: method.NewDispatcher(GatewayName, branchTable()),
		statuses: status.NewReconciler(GatewayName, statusVocabulary()),
	}

	return &connector.Adapter{
		Name:          GatewayName,
		Config:        cfg,
		Authorize:     &authorizeFlow{b},
		Capture:       &captureFlow{b},
		Void:          &voidFlow{b},
		Refund:        &refundFlow{b},
		PSync:         &psyncFlow{b},
		RSync:         &rsyncFlow{b},
		CreateOrder:   &createOrderFlow{b},
		SetupMandate:  &setupMandateFlow{b},
		DefendDispute: &defendDisputeFlow{b},
		Webhook:       hooks,
	}, nil
}
