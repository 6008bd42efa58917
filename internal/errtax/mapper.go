// Package errtax classifies gateway-specific error codes and HTTP statuses
// into the canonical ErrorKind taxonomy. Classification never fails: unknown
// codes resolve to Unknown with the raw code preserved for diagnostics.
package errtax

import (
	"strings"

	"github.com/yourorg/payment-connector/internal/envelope"
)

// RawError is the gateway-side error material available for classification.
type RawError struct {
	Code        string // application-level error code
	Message     string
	DeclineCode string // network decline code, e.g. "insufficient_funds"
}

// Classification is the canonical reading of a gateway error.
type Classification struct {
	Kind envelope.ErrorKind
	// StatusHint is set when the kind implies a canonical attempt status,
	// e.g. AlreadyProcessed on a second capture resolving to Charged so
	// idempotent retries do not report spurious failures.
	StatusHint *envelope.AttemptStatus
	// RawCode preserves the gateway's literal code for diagnostics.
	RawCode string
}

// Entry is one row of a gateway's declared error-code table.
type Entry struct {
	Kind       envelope.ErrorKind
	StatusHint envelope.AttemptStatus // optional; empty means no hint
}

// Mapper classifies one gateway's errors. Immutable after construction and
// safe for concurrent use.
type Mapper struct {
	gateway string
	codes   map[string]Entry
	rules   []compiledRule
}

// NewMapper builds a mapper from a gateway's code table and optional
// expression rules. Code lookup is case-insensitive.
func NewMapper(gateway string, codes map[string]Entry, rules []RuleConfig) (*Mapper, error) {
	if gateway == "" {
		panic("error mapper gateway name cannot be empty")
	}
	normalized := make(map[string]Entry, len(codes))
	for code, entry := range codes {
		normalized[strings.ToLower(strings.TrimSpace(code))] = entry
	}
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	return &Mapper{gateway: gateway, codes: normalized, rules: compiled}, nil
}

// Gateway returns the gateway this mapper serves.
func (m *Mapper) Gateway() string { return m.gateway }

// Map classifies a gateway error. The application-level code wins over the
// HTTP status; the HTTP fallback applies only when the code is absent or
// unrecognized. Map is idempotent: the same inputs always produce an
// identical Classification.
func (m *Mapper) Map(raw RawError, httpStatus int) Classification {
	out := Classification{Kind: envelope.KindUnknown, RawCode: raw.Code}
	if out.RawCode == "" {
		out.RawCode = raw.DeclineCode
	}

	// 1. Declared code table: decline code first, it is the more specific signal.
	for _, code := range []string{raw.DeclineCode, raw.Code} {
		key := strings.ToLower(strings.TrimSpace(code))
		if key == "" {
			continue
		}
		if entry, ok := m.codes[key]; ok {
			out.Kind = entry.Kind
			if entry.StatusHint != "" {
				hint := entry.StatusHint
				out.StatusHint = &hint
			}
			return out
		}
	}

	// 2. Expression rules, in declaration order.
	if kind, hint, ok := m.evalRules(raw, httpStatus); ok {
		out.Kind = kind
		if hint != "" {
			h := hint
			out.StatusHint = &h
		}
		return out
	}

	// 3. HTTP-status fallback.
	if kind, ok := classifyHTTP(httpStatus); ok {
		out.Kind = kind
	}
	return out
}

// classifyHTTP is the status-code fallback applied when no application-level
// signal classified the error.
func classifyHTTP(status int) (envelope.ErrorKind, bool) {
	switch {
	case status == 401:
		return envelope.KindAuthenticationFailed, true
	case status == 403:
		return envelope.KindAuthorizationFailed, true
	case status == 404 || status == 422 || status == 400:
		return envelope.KindValidation, true
	case status == 429:
		return envelope.KindRateLimited, true
	case status >= 500 && status <= 599:
		return envelope.KindTransient, true
	default:
		return envelope.KindUnknown, false
	}
}
