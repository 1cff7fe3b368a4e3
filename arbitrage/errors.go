package arbitrage

import "errors"

// Every error below aborts the whole operation: state is restored to the
// pre-call checkpoint and nothing is retried internally. The caller
// observes "operation did not happen" with a reason.
var (
	// ErrUnauthorized is returned when an entrypoint or withdrawal is
	// invoked by a non-controller identity.
	ErrUnauthorized = errors.New("caller is not the controller")

	// ErrInvalidCallbackSender is returned when the settlement callback is
	// invoked by an address other than the venue recorded in the matching
	// context. This is the single most important authentication check in
	// the system.
	ErrInvalidCallbackSender = errors.New("settlement callback from unexpected sender")

	// ErrUnexpectedCallback is returned when a callback arrives with no
	// pending settlement context, or with a context that is not the one in
	// flight. A context is consumed exactly once and never reused.
	ErrUnexpectedCallback = errors.New("no matching settlement context")

	// ErrNothingToSettle is returned when a callback reports no positive
	// delta: there is no debt to repay, which is a logic error rather than
	// a legitimate zero-trade.
	ErrNothingToSettle = errors.New("callback reported no amount owed")

	// ErrNoProfit is returned when the post-sequence base-asset balance
	// does not strictly exceed the pre-trade balance.
	ErrNoProfit = errors.New("sequence produced no profit")

	// ErrDistributionInconsistent is returned when the balance remaining
	// after the proposer payment no longer exceeds the pre-trade balance.
	ErrDistributionInconsistent = errors.New("balance after distribution does not exceed pre-trade balance")

	// ErrInvalidPercentage is returned under the reject policy for a
	// proposer percentage outside [0, 100].
	ErrInvalidPercentage = errors.New("proposer percentage out of range")

	// ErrExecutionInFlight is returned when Execute is entered while a
	// settlement context is still pending. The core assumes at most one
	// in-flight execution; this guard is defensive, not a mutex.
	ErrExecutionInFlight = errors.New("execution already in flight")

	// ErrInvalidParams is returned for a nil venue or non-positive input.
	ErrInvalidParams = errors.New("invalid execution parameters")
)
