// Package webhook verifies inbound gateway webhooks and maps their event
// payloads into the canonical event set. Verification always runs before any
// payload field is trusted; classification never rejects a delivery merely
// because the event type is one the framework does not yet act on.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/xeipuuv/gojsonschema"

	"github.com/yourorg/payment-connector/internal/envelope"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventType is the closed canonical webhook event set.
type EventType string

const (
	PaymentAuthorized EventType = "payment_authorized"
	PaymentCaptured   EventType = "payment_captured"
	PaymentFailed     EventType = "payment_failed"
	PaymentCancelled  EventType = "payment_cancelled"
	RefundSucceeded   EventType = "refund_succeeded"
	RefundFailed      EventType = "refund_failed"
	DisputeOpened     EventType = "dispute_opened"
	DisputeWon        EventType = "dispute_won"
	DisputeLost       EventType = "dispute_lost"
	EventNotSupported EventType = "event_not_supported"
)

// AttemptStatus returns the canonical attempt status an event implies, if any.
func (t EventType) AttemptStatus() (envelope.AttemptStatus, bool) {
	switch t {
	case PaymentAuthorized:
		return envelope.StatusAuthorized, true
	case PaymentCaptured:
		return envelope.StatusCharged, true
	case PaymentFailed:
		return envelope.StatusFailure, true
	case PaymentCancelled:
		return envelope.StatusVoided, true
	default:
		return "", false
	}
}

// RefundStatus returns the canonical refund status an event implies, if any.
func (t EventType) RefundStatus() (envelope.RefundStatus, bool) {
	switch t {
	case RefundSucceeded:
		return envelope.RefundSuccess, true
	case RefundFailed:
		return envelope.RefundFailure, true
	default:
		return "", false
	}
}

// SignatureScheme selects how the gateway signs webhook payloads.
type SignatureScheme string

const (
	// SignatureHexHMAC is hex(HMAC-SHA256(payload)) in the signature header.
	SignatureHexHMAC SignatureScheme = "hex_hmac"
	// SignatureBase64HMAC is base64(HMAC-SHA256(payload)).
	SignatureBase64HMAC SignatureScheme = "base64_hmac"
	// SignatureTimestampedHMAC is "t=<ts>,v1=<hex>" over "<ts>.<payload>".
	SignatureTimestampedHMAC SignatureScheme = "timestamped_hmac"
)

// SignatureError reports a webhook that failed authenticity verification.
type SignatureError struct {
	Gateway string
	Reason  string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("webhook signature rejected for gateway %q: %s", e.Gateway, e.Reason)
}

// Config declares one gateway's webhook dialect.
type Config struct {
	Gateway string
	Scheme  SignatureScheme

	// EventField is the JSON path of the gateway's event type token,
	// dotted for nesting, e.g. "event_type" or "data.event".
	EventField string
	// ReferenceField is the JSON path of the object reference id used to
	// correlate the event back to an attempt or refund.
	ReferenceField string

	// Events maps gateway event tokens (case-insensitive) to canonical
	// events. Tokens absent from the table classify as EventNotSupported.
	Events map[string]EventType

	// PayloadSchema optionally validates payload shape before extraction.
	PayloadSchema string
}

// Mapper verifies and classifies one gateway's webhooks. Immutable after
// construction and safe for concurrent use.
type Mapper struct {
	cfg    Config
	events map[string]EventType
	schema *gojsonschema.Schema
}

// NewMapper builds a webhook mapper from a gateway dialect declaration.
func NewMapper(cfg Config) (*Mapper, error) {
	if cfg.Gateway == "" {
		panic("webhook mapper gateway name cannot be empty")
	}
	if cfg.EventField == "" || cfg.ReferenceField == "" {
		return nil, fmt.Errorf("webhook: event and reference fields are required for gateway %q", cfg.Gateway)
	}
	events := make(map[string]EventType, len(cfg.Events))
	for token, event := range cfg.Events {
		events[strings.ToLower(strings.TrimSpace(token))] = event
	}
	m := &Mapper{cfg: cfg, events: events}
	if cfg.PayloadSchema != "" {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(cfg.PayloadSchema))
		if err != nil {
			return nil, fmt.Errorf("webhook: compiling payload schema for gateway %q: %w", cfg.Gateway, err)
		}
		m.schema = schema
	}
	return m, nil
}

// Gateway returns the gateway this mapper serves.
func (m *Mapper) Gateway() string { return m.cfg.Gateway }

// Verify checks payload authenticity against the signature header using the
// per-gateway shared secret. Constant-time comparison throughout.
func (m *Mapper) Verify(payload []byte, signatureHeader, secret string) error {
	if secret == "" {
		return &SignatureError{Gateway: m.cfg.Gateway, Reason: "no webhook secret configured"}
	}
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" {
		return &SignatureError{Gateway: m.cfg.Gateway, Reason: "signature header is empty"}
	}

	switch m.cfg.Scheme {
	case SignatureHexHMAC:
		expected := hex.EncodeToString(signPayload(payload, secret))
		if !hmac.Equal([]byte(strings.ToLower(signatureHeader)), []byte(expected)) {
			return &SignatureError{Gateway: m.cfg.Gateway, Reason: "signature mismatch"}
		}
	case SignatureBase64HMAC:
		expected := base64.StdEncoding.EncodeToString(signPayload(payload, secret))
		if !hmac.Equal([]byte(signatureHeader), []byte(expected)) {
			return &SignatureError{Gateway: m.cfg.Gateway, Reason: "signature mismatch"}
		}
	case SignatureTimestampedHMAC:
		ts, sig, err := parseTimestampedHeader(signatureHeader)
		if err != nil {
			return &SignatureError{Gateway: m.cfg.Gateway, Reason: err.Error()}
		}
		signed := append([]byte(ts+"."), payload...)
		expected := hex.EncodeToString(signPayload(signed, secret))
		if !hmac.Equal([]byte(strings.ToLower(sig)), []byte(expected)) {
			return &SignatureError{Gateway: m.cfg.Gateway, Reason: "signature mismatch"}
		}
	default:
		return &SignatureError{Gateway: m.cfg.Gateway, Reason: fmt.Sprintf("unknown signature scheme %q", m.cfg.Scheme)}
	}
	return nil
}

func signPayload(payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

func parseTimestampedHeader(header string) (ts, sig string, err error) {
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig = v
		}
	}
	if ts == "" || sig == "" {
		return "", "", fmt.Errorf("malformed timestamped signature header")
	}
	return ts, sig, nil
}

// ExtractReference pulls the object reference id out of a verified payload.
func (m *Mapper) ExtractReference(payload []byte) (string, error) {
	doc, err := m.decode(payload)
	if err != nil {
		return "", err
	}
	value, ok := lookupPath(doc, m.cfg.ReferenceField)
	if !ok {
		return "", fmt.Errorf("webhook: payload has no reference field %q", m.cfg.ReferenceField)
	}
	ref, ok := value.(string)
	if !ok || ref == "" {
		return "", fmt.Errorf("webhook: reference field %q is not a non-empty string", m.cfg.ReferenceField)
	}
	return ref, nil
}

// Classify maps the payload's gateway event token to a canonical event.
// Tokens outside the declared table resolve to EventNotSupported so that
// delivery is never rejected for an event the framework does not act on.
func (m *Mapper) Classify(payload []byte) (EventType, error) {
	doc, err := m.decode(payload)
	if err != nil {
		return EventNotSupported, err
	}
	value, ok := lookupPath(doc, m.cfg.EventField)
	if !ok {
		return EventNotSupported, nil
	}
	token, ok := value.(string)
	if !ok {
		return EventNotSupported, nil
	}
	if event, found := m.events[strings.ToLower(strings.TrimSpace(token))]; found {
		return event, nil
	}
	return EventNotSupported, nil
}

func (m *Mapper) decode(payload []byte) (map[string]any, error) {
	if m.schema != nil {
		result, err := m.schema.Validate(gojsonschema.NewBytesLoader(payload))
		if err != nil {
			return nil, fmt.Errorf("webhook: validating payload: %w", err)
		}
		if !result.Valid() {
			descs := make([]string, 0, len(result.Errors()))
			for _, d := range result.Errors() {
				descs = append(descs, d.String())
			}
			return nil, fmt.Errorf("webhook: payload failed schema validation: %s", strings.Join(descs, "; "))
		}
	}
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("webhook: decoding payload: %w", err)
	}
	return doc, nil
}

// lookupPath walks a dotted JSON path through nested objects.
func lookupPath(doc map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = doc
	for _, seg := range segments {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
