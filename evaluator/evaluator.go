// Package evaluator is the pure quoting and sizing math for a two-venue
// arbitrage: no side effects, no venue state changes. It prices
// constant-product legs itself and delegates concentrated-liquidity legs to
// the venue's own quoter.
package evaluator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crossarb/crossarb-go/venues/uniswapv2/calculator"
	"github.com/crossarb/crossarb-go/venues/uniswapv3/calculator/tickmath"
)

var (
	// ErrInvalidReserves is returned when a reserve is nil or non-positive.
	ErrInvalidReserves = errors.New("reserves must be positive")
	// ErrInvalidAmount is returned when an amount is nil or negative.
	ErrInvalidAmount = errors.New("amount must be non-nil and non-negative")
	// ErrAssetNotInPool is returned when the base asset is on neither index
	// of a pool's pair.
	ErrAssetNotInPool = errors.New("asset not in pool")
	// ErrUnquotableVenue is returned when a venue exposes neither reserves
	// nor its own quoter.
	ErrUnquotableVenue = errors.New("venue cannot be quoted")

	one = big.NewInt(1)
)

// Pool is the minimal venue surface the evaluator needs: identity and the
// venue-assigned asset ordering.
type Pool interface {
	Address() common.Address
	Token0() common.Address
	Token1() common.Address
}

// ReserveQuoter is a pool whose pricing the evaluator derives from reserves.
type ReserveQuoter interface {
	Pool
	GetReserves() (reserve0, reserve1 *big.Int)
	FeeBps() uint16
}

// ExactInputQuoter is a pool that prices its own trades (concentrated
// liquidity); the evaluator never re-derives that math.
type ExactInputQuoter interface {
	Pool
	QuoteExactInput(tokenIn common.Address, amountIn, sqrtPriceLimitX96 *big.Int) (*big.Int, error)
}

// SwapQuote is the result of evaluating one hypothetical trade against one
// pool. ZeroForOne is true when trading from the index-0 asset to the
// index-1 asset.
type SwapQuote struct {
	AmountIn   *big.Int
	AmountOut  *big.Int
	ZeroForOne bool
}

// Preview is the expected outcome of a full two-leg sequence.
type Preview struct {
	LegA   SwapQuote
	LegB   SwapQuote
	Profit *big.Int // AmountOut of leg B minus AmountIn of leg A; may be negative.
}

// QuoteConstantProduct prices an exact input against constant-product
// reserves. The arithmetic lives in the venue calculator; this wrapper adds
// the evaluator's stricter preconditions (a pool with empty reserves is an
// error here, not a zero quote). Output is monotonically non-decreasing in
// amountIn and strictly below reserveOut.
func QuoteConstantProduct(amountIn, reserveIn, reserveOut *big.Int, feeBps uint16) (*big.Int, error) {
	if reserveIn == nil || reserveIn.Sign() <= 0 || reserveOut == nil || reserveOut.Sign() <= 0 {
		return nil, ErrInvalidReserves
	}
	if amountIn == nil || amountIn.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return calculator.GetAmountOut(amountIn, reserveIn, reserveOut, feeBps)
}

// BaseIsToken0 reports whether the base asset sits at index 0 of the pool's
// venue-assigned ordering. The two orderings are mirror images; every
// caller parameterizes one code path on this flag instead of duplicating it.
func BaseIsToken0(pool Pool, baseAsset common.Address) (bool, error) {
	switch baseAsset {
	case pool.Token0():
		return true, nil
	case pool.Token1():
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s not in pool %s", ErrAssetNotInPool, baseAsset, pool.Address())
	}
}

// PriceLimit returns the maximally permissive sqrt price bound for the
// trade's direction, so the sequence is sized by amount and never halted by
// price movement.
func PriceLimit(zeroForOne bool) *big.Int {
	if zeroForOne {
		return new(big.Int).Add(tickmath.MIN_SQRT_RATIO, one)
	}
	return new(big.Int).Sub(tickmath.MAX_SQRT_RATIO, one)
}

// PreviewSequence estimates the profit of selling amountIn of the base
// asset into venue A and selling A's output back into venue B. Both legs
// are quoted against fresh state; nothing is cached between evaluation and
// execution.
func PreviewSequence(venueA, venueB Pool, baseAsset common.Address, amountIn *big.Int) (*Preview, error) {
	aZeroForOne, err := BaseIsToken0(venueA, baseAsset)
	if err != nil {
		return nil, err
	}
	intermediate := venueA.Token1()
	if !aZeroForOne {
		intermediate = venueA.Token0()
	}

	legAOut, err := quoteVenue(venueA, baseAsset, amountIn, aZeroForOne)
	if err != nil {
		return nil, fmt.Errorf("leg A: %w", err)
	}

	bBaseIsToken0, err := BaseIsToken0(venueB, baseAsset)
	if err != nil {
		return nil, err
	}
	bZeroForOne := !bBaseIsToken0 // selling the intermediate asset for base
	legBOut, err := quoteVenue(venueB, intermediate, legAOut, bZeroForOne)
	if err != nil {
		return nil, fmt.Errorf("leg B: %w", err)
	}

	return &Preview{
		LegA:   SwapQuote{AmountIn: new(big.Int).Set(amountIn), AmountOut: legAOut, ZeroForOne: aZeroForOne},
		LegB:   SwapQuote{AmountIn: new(big.Int).Set(legAOut), AmountOut: legBOut, ZeroForOne: bZeroForOne},
		Profit: new(big.Int).Sub(legBOut, amountIn),
	}, nil
}

func quoteVenue(pool Pool, tokenIn common.Address, amountIn *big.Int, zeroForOne bool) (*big.Int, error) {
	switch q := pool.(type) {
	case ExactInputQuoter:
		return q.QuoteExactInput(tokenIn, amountIn, nil)
	case ReserveQuoter:
		reserve0, reserve1 := q.GetReserves()
		reserveIn, reserveOut := reserve0, reserve1
		if !zeroForOne {
			reserveIn, reserveOut = reserveOut, reserveIn
		}
		return QuoteConstantProduct(amountIn, reserveIn, reserveOut, q.FeeBps())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnquotableVenue, pool.Address())
	}
}
