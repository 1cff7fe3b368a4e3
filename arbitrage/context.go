package arbitrage

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/crossarb/crossarb-go/venues"
)

// SettlementContext is the data that survives the reentrant boundary
// between "leg one initiated" and the settlement callback. It is strongly
// typed internally and passed to the venue as an opaque payload; the
// coordinator owns it for exactly one operation, consumes it exactly once,
// and never accepts it from a sender other than the recorded owing pool.
type SettlementContext struct {
	// Beneficiary receives the second leg's output.
	Beneficiary common.Address
	// OwingPool is venue A: the only address allowed to deliver this
	// context back through the callback.
	OwingPool common.Address
	// SecondLeg is venue B, swapped against inside the callback.
	SecondLeg venues.ReservePool
	// BorrowedAsset is the base asset owed back to venue A.
	BorrowedAsset common.Address
	// IntermediateAsset is the asset venue A paid to venue B.
	IntermediateAsset common.Address
	// AmountOwed is the exact input committed to venue A.
	AmountOwed *big.Int
	// BaseIsToken0 is the direction flag on venue A: true when the base
	// asset sits at index 0 of A's pair.
	BaseIsToken0 bool
}

// ExecuteParams are the inputs to one atomic arbitrage attempt.
type ExecuteParams struct {
	VenueA venues.FlashVenue
	VenueB venues.ReservePool
	// AmountIn is the base-asset input borrowed from venue A.
	AmountIn *big.Int
	// ProposerPercentage of the profit paid to the block proposer, [0,100]
	// under the default policy.
	ProposerPercentage uint64
}

// Result records a committed operation. The invariant After > Before has
// already been enforced; Retained is what stays in custody after the
// proposer payment.
type Result struct {
	ID              uuid.UUID
	Before          *big.Int
	After           *big.Int
	Profit          *big.Int
	ProposerPayment *big.Int
	Retained        *big.Int
}
