// Package status reconciles arbitrary gateway status vocabularies into the
// canonical AttemptStatus/RefundStatus sets. Reconciliation is total: every
// raw input maps to some canonical value, with unknown inputs resolving to
// Pending rather than being dropped.
package status

import (
	"strconv"
	"strings"

	"github.com/yourorg/payment-connector/internal/envelope"
)

// RawShape distinguishes the three heterogeneous raw-status shapes gateways
// use on the wire.
type RawShape int

const (
	// ShapeToken is a string enumeration, matched case-insensitively.
	ShapeToken RawShape = iota
	// ShapeFlag is a boolean success flag plus a secondary reason code.
	ShapeFlag
	// ShapeCode is a numeric or coded status.
	ShapeCode
)

// Raw is one gateway status value in whichever shape the gateway uses.
type Raw struct {
	shape  RawShape
	token  string
	flag   bool
	reason string
	code   int
}

// FromToken wraps a string-enumeration status.
func FromToken(token string) Raw {
	return Raw{shape: ShapeToken, token: token}
}

// FromFlag wraps a boolean success flag with its secondary reason code.
func FromFlag(ok bool, reason string) Raw {
	return Raw{shape: ShapeFlag, flag: ok, reason: reason}
}

// FromCode wraps a numeric status code.
func FromCode(code int) Raw {
	return Raw{shape: ShapeCode, code: code}
}

// normalize folds casing and separators so "Succeeded", "SUCCESS" and
// "succeeded" all hit the same vocabulary key.
func normalize(token string) string {
	s := strings.ToLower(strings.TrimSpace(token))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// Vocabulary is one gateway's declared status vocabulary: normalized tokens
// (or decimal renderings of numeric codes) to canonical statuses.
type Vocabulary struct {
	Payment map[string]envelope.AttemptStatus
	Refund  map[string]envelope.RefundStatus

	// FlagSuccess/FlagFailure interpret boolean-shaped statuses. A reason
	// code present in Payment/Refund overrides the flag mapping.
	FlagSuccess       envelope.AttemptStatus
	FlagFailure       envelope.AttemptStatus
	FlagRefundSuccess envelope.RefundStatus
	FlagRefundFailure envelope.RefundStatus
}

// Amounts carries the amount evidence for the partial-capture override.
// Captured is nil when the gateway response carried no amount field.
type Amounts struct {
	Captured   *int64
	Authorized int64
}

// Reconciler maps one gateway's raw statuses into the canonical sets.
// Immutable after construction; safe for concurrent use.
type Reconciler struct {
	gateway string
	vocab   Vocabulary
}

// NewReconciler builds a reconciler over one gateway's vocabulary.
func NewReconciler(gateway string, vocab Vocabulary) *Reconciler {
	if gateway == "" {
		panic("reconciler gateway name cannot be empty")
	}
	normPay := make(map[string]envelope.AttemptStatus, len(vocab.Payment))
	for k, v := range vocab.Payment {
		normPay[normalize(k)] = v
	}
	normRef := make(map[string]envelope.RefundStatus, len(vocab.Refund))
	for k, v := range vocab.Refund {
		normRef[normalize(k)] = v
	}
	vocab.Payment = normPay
	vocab.Refund = normRef
	if vocab.FlagSuccess == "" {
		vocab.FlagSuccess = envelope.StatusCharged
	}
	if vocab.FlagFailure == "" {
		vocab.FlagFailure = envelope.StatusFailure
	}
	if vocab.FlagRefundSuccess == "" {
		vocab.FlagRefundSuccess = envelope.RefundSuccess
	}
	if vocab.FlagRefundFailure == "" {
		vocab.FlagRefundFailure = envelope.RefundFailure
	}
	return &Reconciler{gateway: gateway, vocab: vocab}
}

// Gateway returns the gateway this reconciler serves.
func (r *Reconciler) Gateway() string { return r.gateway }

func (r *Raw) key() (string, bool) {
	switch r.shape {
	case ShapeToken:
		return normalize(r.token), r.token != ""
	case ShapeCode:
		return strconv.Itoa(r.code), true
	default:
		return "", false
	}
}

// ReconcilePayment maps a raw gateway status to a canonical AttemptStatus.
//
// Amount evidence overrides the literal status: when the response names a
// captured amount below the authorized amount, the result is PartialCharged
// even if the gateway's own token is a generic success. Unmapped inputs
// resolve to Pending.
func (r *Reconciler) ReconcilePayment(raw Raw, flow envelope.Flow, amounts Amounts) envelope.AttemptStatus {
	status := envelope.StatusPending

	if raw.shape == ShapeFlag {
		if key := normalize(raw.reason); key != "" {
			if mapped, ok := r.vocab.Payment[key]; ok {
				status = mapped
			} else if raw.flag {
				status = r.vocab.FlagSuccess
			} else {
				status = r.vocab.FlagFailure
			}
		} else if raw.flag {
			status = r.vocab.FlagSuccess
		} else {
			status = r.vocab.FlagFailure
		}
	} else if key, ok := raw.key(); ok {
		if mapped, found := r.vocab.Payment[key]; found {
			status = mapped
		}
	}

	// A void flow cannot settle a charge; a generic success token there
	// means the cancellation went through.
	if flow == envelope.FlowVoid && status == envelope.StatusCharged {
		status = envelope.StatusVoided
	}

	if status == envelope.StatusCharged && amounts.Captured != nil &&
		amounts.Authorized > 0 && *amounts.Captured < amounts.Authorized {
		status = envelope.StatusPartialCharged
	}
	return status
}

// ReconcileRefund maps a raw gateway status to a canonical RefundStatus.
// Unmapped inputs resolve to RefundPending.
func (r *Reconciler) ReconcileRefund(raw Raw) envelope.RefundStatus {
	if raw.shape == ShapeFlag {
		if key := normalize(raw.reason); key != "" {
			if mapped, ok := r.vocab.Refund[key]; ok {
				return mapped
			}
		}
		if raw.flag {
			return r.vocab.FlagRefundSuccess
		}
		return r.vocab.FlagRefundFailure
	}
	if key, ok := raw.key(); ok {
		if mapped, found := r.vocab.Refund[key]; found {
			return mapped
		}
	}
	return envelope.RefundPending
}
