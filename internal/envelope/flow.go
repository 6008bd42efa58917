package envelope

// Flow marks which payment operation an envelope carries. Exactly one flow
// marker exists per envelope instance.
type Flow string

const (
	FlowAuthorize     Flow = "authorize"
	FlowCapture       Flow = "capture"
	FlowVoid          Flow = "void"
	FlowRefund        Flow = "refund"
	FlowPSync         Flow = "psync"
	FlowRSync         Flow = "rsync"
	FlowCreateOrder   Flow = "create_order"
	FlowSetupMandate  Flow = "setup_mandate"
	FlowDefendDispute Flow = "defend_dispute"
	FlowWebhook       Flow = "webhook"
)

var allFlows = map[Flow]struct{}{
	FlowAuthorize:     {},
	FlowCapture:       {},
	FlowVoid:          {},
	FlowRefund:        {},
	FlowPSync:         {},
	FlowRSync:         {},
	FlowCreateOrder:   {},
	FlowSetupMandate:  {},
	FlowDefendDispute: {},
	FlowWebhook:       {},
}

// IsValid reports whether f is a known flow marker.
func (f Flow) IsValid() bool {
	_, ok := allFlows[f]
	return ok
}

// IsRefundFlow reports whether the flow reconciles into RefundStatus rather
// than AttemptStatus.
func (f Flow) IsRefundFlow() bool {
	return f == FlowRefund || f == FlowRSync
}

func (f Flow) String() string {
	return string(f)
}
