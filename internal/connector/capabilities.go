package connector

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/yourorg/payment-connector/internal/envelope"
	"github.com/yourorg/payment-connector/internal/errtax"
)

// CommonCapabilities is the cross-flow machinery an adapter implements once
// and reuses from every flow: auth header construction, content type, and
// generic error building. Duplicating any of this per flow is a defect.
type CommonCapabilities struct {
	Gateway string
	Auth    envelope.AuthScheme
	Errors  *errtax.Mapper
}

// AuthHeaders derives the auth material for one outgoing request from the
// configured scheme and the per-call credentials. For HMAC the signature
// covers the request body, so the body must be built first. Body-embedded
// auth contributes no headers; the adapter merges BodyCredentials into its
// payload instead.
func (c CommonCapabilities) AuthHeaders(creds envelope.Credentials, body Body) (http.Header, error) {
	headers := make(http.Header)
	switch c.Auth {
	case envelope.AuthBearer:
		if creds.APIKey == "" {
			return nil, fmt.Errorf("connector %s: bearer auth requires an api key", c.Gateway)
		}
		headers.Set("Authorization", "Bearer "+creds.APIKey)
	case envelope.AuthBasic:
		if creds.APIKey == "" {
			return nil, fmt.Errorf("connector %s: basic auth requires an api key", c.Gateway)
		}
		token := base64.StdEncoding.EncodeToString([]byte(creds.APIKey + ":" + creds.APISecret))
		headers.Set("Authorization", "Basic "+token)
	case envelope.AuthHMAC:
		if creds.APIKey == "" || creds.APISecret == "" {
			return nil, fmt.Errorf("connector %s: hmac auth requires a key id and secret", c.Gateway)
		}
		payload, _ := body.Bytes()
		mac := hmac.New(sha256.New, []byte(creds.APISecret))
		mac.Write(payload)
		headers.Set("X-Api-Key", creds.APIKey)
		headers.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	case envelope.AuthBodyEmbedded:
		// Credentials ride in the request body; nothing to add here.
	default:
		return nil, fmt.Errorf("connector %s: unknown auth scheme %q", c.Gateway, c.Auth)
	}
	return headers, nil
}

// BodyCredentials returns the fields a body-embedded auth scheme merges into
// the outgoing payload.
func (c CommonCapabilities) BodyCredentials(creds envelope.Credentials) map[string]string {
	if c.Auth != envelope.AuthBodyEmbedded {
		return nil
	}
	fields := map[string]string{"api_key": creds.APIKey}
	if creds.APISecret != "" {
		fields["api_secret"] = creds.APISecret
	}
	if creds.MerchantAccount != "" {
		fields["merchant_account"] = creds.MerchantAccount
	}
	return fields
}

// RequestHeaders assembles the full header set for one outgoing request:
// content type from the body encoding, idempotency key from the envelope
// reference, and the auth material.
func (c CommonCapabilities) RequestHeaders(common envelope.CommonData, body Body) (http.Header, error) {
	headers, err := c.AuthHeaders(common.Credentials, body)
	if err != nil {
		return nil, err
	}
	if ct := body.ContentType(); ct != "" {
		headers.Set("Content-Type", ct)
	}
	headers.Set("Accept", "application/json")
	if common.ConnectorRequestReferenceID != "" {
		headers.Set("Idempotency-Key", common.ConnectorRequestReferenceID)
	}
	return headers, nil
}

// BuildError assembles the fully-populated canonical error response for a
// failed operation. Idempotent: the same raw inputs produce identical values.
func (c CommonCapabilities) BuildError(httpStatus int, raw errtax.RawError, connectorTxnID string) envelope.ErrorResponse {
	classification := errtax.Classification{Kind: envelope.KindUnknown, RawCode: raw.Code}
	if c.Errors != nil {
		classification = c.Errors.Map(raw, httpStatus)
	}
	message := raw.Message
	if message == "" {
		message = fmt.Sprintf("gateway %s returned HTTP %d", c.Gateway, httpStatus)
	}
	return envelope.ErrorResponse{
		StatusCode:             httpStatus,
		Kind:                   classification.Kind,
		Code:                   classification.RawCode,
		Message:                message,
		AttemptStatusHint:      classification.StatusHint,
		ConnectorTransactionID: connectorTxnID,
		NetworkDeclineCode:     raw.DeclineCode,
	}
}

// NotSupported is the canonical error response for a flow or payment method
// the gateway does not implement.
func NotSupported(gateway string, what string) envelope.ErrorResponse {
	return envelope.ErrorResponse{
		StatusCode: http.StatusNotImplemented,
		Kind:       envelope.KindNotSupported,
		Code:       "NOT_SUPPORTED",
		Message:    fmt.Sprintf("%s is not supported by gateway %q", what, gateway),
	}
}
