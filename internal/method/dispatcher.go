package method

import (
	"fmt"
)

// Fragment is the set of fields a dispatch branch contributes to the outgoing
// gateway request. The adapter merges it into its flow-specific body; the
// branch itself knows nothing about HTTP.
type Fragment map[string]any

// FlowContext carries the read-only call context a branch may consult.
type FlowContext struct {
	Gateway   string
	Flow      string
	Amount    int64 // canonical minor units
	Currency  string
	ReturnURL string
}

// Branch transforms one payment method variant into a request fragment.
// Branches must be pure: same data and context, same fragment.
type Branch func(data Data, ctx FlowContext) (Fragment, error)

// NotSupportedError reports that a gateway has no branch for a payment method.
// Silent fallthrough is forbidden; a missing branch always produces this error
// naming both the gateway and the method.
type NotSupportedError struct {
	Gateway string
	Method  Kind
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("payment method %q is not supported by gateway %q", e.Method, e.Gateway)
}

// Dispatcher routes a payment method variant to the gateway-specific branch
// registered for its kind. A Dispatcher is immutable after construction and
// safe for concurrent use.
type Dispatcher struct {
	gateway  string
	branches map[Kind]Branch
}

// NewDispatcher builds a dispatcher for one gateway from its branch table.
// Kinds absent from the table dispatch to NotSupportedError.
func NewDispatcher(gateway string, branches map[Kind]Branch) *Dispatcher {
	if gateway == "" {
		panic("dispatcher gateway name cannot be empty")
	}
	copied := make(map[Kind]Branch, len(branches))
	for k, b := range branches {
		if b == nil {
			panic(fmt.Sprintf("nil branch registered for payment method %q", k))
		}
		copied[k] = b
	}
	return &Dispatcher{gateway: gateway, branches: copied}
}

// Gateway returns the gateway this dispatcher serves.
func (d *Dispatcher) Gateway() string {
	return d.gateway
}

// Supports reports whether a branch is registered for the given kind.
func (d *Dispatcher) Supports(kind Kind) bool {
	_, ok := d.branches[kind]
	return ok
}

// Dispatch selects and runs the branch for the variant's kind.
func (d *Dispatcher) Dispatch(data Data, ctx FlowContext) (Fragment, error) {
	if data == nil {
		return nil, fmt.Errorf("method: payment method data cannot be nil")
	}
	branch, ok := d.branches[data.Kind()]
	if !ok {
		return nil, &NotSupportedError{Gateway: d.gateway, Method: data.Kind()}
	}
	return branch(data, ctx)
}
