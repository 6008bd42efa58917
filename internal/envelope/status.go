package envelope

// AttemptStatus is the canonical, gateway-agnostic status of a payment
// attempt. The lattice is ordered by finality, not by enum value:
//
//	Pending -> {Authorized, AuthenticationPending}
//	        -> {Charged, PartialCharged, Failure, Voided,
//	            AuthorizationFailed, VoidFailed}
//
// Terminal states never regress.
type AttemptStatus string

const (
	StatusPending               AttemptStatus = "pending"
	StatusAuthenticationPending AttemptStatus = "authentication_pending"
	StatusAuthorized            AttemptStatus = "authorized"
	StatusCharged               AttemptStatus = "charged"
	StatusPartialCharged        AttemptStatus = "partial_charged"
	StatusVoided                AttemptStatus = "voided"
	StatusFailure               AttemptStatus = "failure"
	StatusAuthorizationFailed   AttemptStatus = "authorization_failed"
	StatusVoidFailed            AttemptStatus = "void_failed"
)

// attemptRank orders statuses by finality. Transitions may only move to an
// equal or higher rank, and never away from a terminal state.
var attemptRank = map[AttemptStatus]int{
	StatusPending:               0,
	StatusAuthenticationPending: 1,
	StatusAuthorized:            1,
	StatusCharged:               2,
	StatusPartialCharged:        2,
	StatusVoided:                2,
	StatusFailure:               2,
	StatusAuthorizationFailed:   2,
	StatusVoidFailed:            2,
}

// IsTerminal reports whether no further transition is permitted from s.
func (s AttemptStatus) IsTerminal() bool {
	return attemptRank[s] == 2
}

// IsValid reports whether s is a member of the canonical set.
func (s AttemptStatus) IsValid() bool {
	_, ok := attemptRank[s]
	return ok
}

// CanTransition reports whether moving from s to next respects the lattice.
// Re-asserting the current status is always allowed (idempotent syncs).
func (s AttemptStatus) CanTransition(next AttemptStatus) bool {
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	return attemptRank[next] >= attemptRank[s]
}

// RefundStatus is the canonical status of a refund: Pending until the gateway
// settles it as Success or Failure.
type RefundStatus string

const (
	RefundPending RefundStatus = "pending"
	RefundSuccess RefundStatus = "success"
	RefundFailure RefundStatus = "failure"
)

// IsTerminal reports whether the refund has settled.
func (s RefundStatus) IsTerminal() bool {
	return s == RefundSuccess || s == RefundFailure
}

// IsValid reports whether s is a member of the canonical set.
func (s RefundStatus) IsValid() bool {
	return s == RefundPending || s.IsTerminal()
}
