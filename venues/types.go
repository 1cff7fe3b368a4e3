// Package venues defines the venue model shared by the simulated liquidity
// sources and the arbitrage coordinator: the venue interfaces, the
// settlement-callback contract, and the address registry.
package venues

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Kind identifies the pricing model of a venue.
type Kind uint8

const (
	// ConstantProduct venues price by the ratio of two held reserves.
	ConstantProduct Kind = iota
	// ConcentratedLiquidity venues price by a continuous sqrt-price value
	// with an enforceable bound per trade.
	ConcentratedLiquidity
)

func (k Kind) String() string {
	switch k {
	case ConstantProduct:
		return "constant-product"
	case ConcentratedLiquidity:
		return "concentrated-liquidity"
	default:
		return "unknown"
	}
}

// Venue is the common surface of a simulated liquidity source. Token0/Token1
// report the venue-assigned asset ordering; callers must discover which
// index holds the base asset, never assume it.
type Venue interface {
	Address() common.Address
	Token0() common.Address
	Token1() common.Address
	Kind() Kind
	FeeBps() uint16

	// Checkpoint captures the venue's pool state and returns a function
	// that restores it. Used by the coordinator's all-or-nothing unwind.
	Checkpoint() (restore func())
}

// SettlementHandler receives the mid-swap settlement callback. The deltas
// are signed from the venue's perspective: positive is owed to the venue,
// negative has been paid out by the venue. The handler must authenticate
// sender against the pool recorded in its settlement context.
type SettlementHandler interface {
	SettlementCallback(sender common.Address, amount0Delta, amount1Delta *big.Int, payload any) error
}

// FlashVenue is a venue that can run the first leg of the atomic sequence:
// it pays the swap output to recipient, invokes the settlement callback
// before its own Swap returns, and then enforces repayment of the positive
// delta. amountSpecified is an exact input; sqrtPriceLimitX96 bounds the
// price movement for concentrated venues and is ignored by constant-product
// ones (they are sized by amount alone).
type FlashVenue interface {
	Venue
	Swap(
		recipient common.Address,
		zeroForOne bool,
		amountSpecified *big.Int,
		sqrtPriceLimitX96 *big.Int,
		handler SettlementHandler,
		payload any,
	) (amount0, amount1 *big.Int, err error)
}

// ReservePool is the second-leg venue shape: reserves are readable and a
// swap releases already-paid-for output to a recipient, verified against
// the fee-adjusted invariant.
type ReservePool interface {
	Venue
	GetReserves() (reserve0, reserve1 *big.Int)
	SwapOut(amount0Out, amount1Out *big.Int, recipient common.Address, data []byte) error
}

// ErrUnknownVenue is returned by the registry for an unregistered address.
var ErrUnknownVenue = errors.New("unknown venue")
