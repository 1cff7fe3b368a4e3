package uniswapv3

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crossarb/crossarb-go/ledger"
	"github.com/crossarb/crossarb-go/venues"
	"github.com/crossarb/crossarb-go/venues/uniswapv3/calculator/sqrtpricemath"
	"github.com/crossarb/crossarb-go/venues/uniswapv3/calculator/swapmath"
	"github.com/crossarb/crossarb-go/venues/uniswapv3/calculator/tickmath"
)

var (
	// ErrInvalidAmountIn is returned when the exact input is nil or non-positive.
	ErrInvalidAmountIn = errors.New("amountIn must be greater than zero")
	// ErrInvalidPriceLimit is returned when the price limit is on the wrong
	// side of the current price for the trade direction.
	ErrInvalidPriceLimit = errors.New("invalid sqrt price limit")
	// ErrInsufficientInput is returned when the settlement callback did not
	// repay the amount owed.
	ErrInsufficientInput = errors.New("insufficient input amount")
	// ErrTokenMismatch is returned when a quoted token is not in the pool.
	ErrTokenMismatch = errors.New("token mismatch")
)

// Venue is a stateful concentrated-liquidity venue backed by the shared
// ledger. Swaps are exact-input within a single in-range step: the
// two-venue sequence is sized by amount with a maximally permissive price
// limit, so tick crossings never bound it.
type Venue struct {
	pool   Pool
	ledger *ledger.Ledger
}

var _ venues.FlashVenue = (*Venue)(nil)

// NewVenue creates the venue and funds its ledger balances with the pool's
// virtual reserves so it can pay out either token. A nil SqrtPriceX96 is
// derived from the configured tick.
func NewVenue(pool Pool, l *ledger.Ledger) (*Venue, error) {
	p := pool
	if p.Liquidity == nil || p.Liquidity.Sign() <= 0 {
		return nil, fmt.Errorf("venue %s: liquidity must be positive", p.Address)
	}
	if p.SqrtPriceX96 == nil {
		p.SqrtPriceX96 = new(big.Int)
		if err := tickmath.GetSqrtRatioAtTick(p.SqrtPriceX96, p.Tick); err != nil {
			return nil, fmt.Errorf("venue %s: %w", p.Address, err)
		}
	}
	p = p.Copy()

	reserve0, reserve1 := virtualReserves(p)
	if err := l.Mint(p.Token0, p.Address, reserve0); err != nil {
		return nil, err
	}
	if err := l.Mint(p.Token1, p.Address, reserve1); err != nil {
		return nil, err
	}
	return &Venue{pool: p, ledger: l}, nil
}

func (v *Venue) Address() common.Address { return v.pool.Address }
func (v *Venue) Token0() common.Address  { return v.pool.Token0 }
func (v *Venue) Token1() common.Address  { return v.pool.Token1 }
func (v *Venue) Kind() venues.Kind       { return venues.ConcentratedLiquidity }

// FeeBps reports the pool fee rounded down to basis points.
func (v *Venue) FeeBps() uint16 { return uint16(v.pool.Fee / 100) }

// Pool returns a copy of the current pool state.
func (v *Venue) Pool() Pool { return v.pool.Copy() }

// Checkpoint captures the pool state. Ledger balances are checkpointed
// separately by the coordinator.
func (v *Venue) Checkpoint() (restore func()) {
	saved := v.pool.Copy()
	done := false
	return func() {
		if done {
			return
		}
		done = true
		v.pool = saved
	}
}

// QuoteExactInput previews the output for an exact input with no state
// change. Quoting is the venue's own job; callers never re-derive
// concentrated-liquidity pricing.
func (v *Venue) QuoteExactInput(tokenIn common.Address, amountIn, sqrtPriceLimitX96 *big.Int) (*big.Int, error) {
	zeroForOne, err := v.direction(tokenIn)
	if err != nil {
		return nil, err
	}
	_, _, amountOut, err := v.step(zeroForOne, amountIn, sqrtPriceLimitX96)
	if err != nil {
		return nil, err
	}
	return amountOut, nil
}

// Swap executes an exact-input swap: pays the output to recipient, invokes
// the settlement callback with the signed deltas, and aborts unless the
// owed input arrived before the callback returned.
func (v *Venue) Swap(
	recipient common.Address,
	zeroForOne bool,
	amountSpecified *big.Int,
	sqrtPriceLimitX96 *big.Int,
	handler venues.SettlementHandler,
	payload any,
) (amount0, amount1 *big.Int, err error) {
	nextPrice, amountOwed, amountOut, err := v.step(zeroForOne, amountSpecified, sqrtPriceLimitX96)
	if err != nil {
		return nil, nil, err
	}

	tokenIn, tokenOut := v.pool.Token0, v.pool.Token1
	if !zeroForOne {
		tokenIn, tokenOut = tokenOut, tokenIn
	}

	if zeroForOne {
		amount0 = new(big.Int).Set(amountOwed)
		amount1 = new(big.Int).Neg(amountOut)
	} else {
		amount0 = new(big.Int).Neg(amountOut)
		amount1 = new(big.Int).Set(amountOwed)
	}

	// Pay the output first; the recipient may be the second venue, which
	// needs the funds before the callback runs the second leg.
	if err := v.ledger.Transfer(tokenOut, v.pool.Address, recipient, amountOut); err != nil {
		return nil, nil, err
	}

	balanceBefore := v.ledger.BalanceOf(tokenIn, v.pool.Address)
	if err := handler.SettlementCallback(v.pool.Address, amount0, amount1, payload); err != nil {
		return nil, nil, fmt.Errorf("settlement callback: %w", err)
	}

	balanceAfter := v.ledger.BalanceOf(tokenIn, v.pool.Address)
	owedTotal := new(big.Int).Add(balanceBefore, amountOwed)
	if balanceAfter.Cmp(owedTotal) < 0 {
		return nil, nil, fmt.Errorf("%w: owed %s, received %s", ErrInsufficientInput,
			amountOwed, new(big.Int).Sub(balanceAfter, balanceBefore))
	}

	v.pool.SqrtPriceX96.Set(nextPrice)
	if tick, tickErr := tickmath.GetTickAtSqrtRatio(nextPrice); tickErr == nil {
		v.pool.Tick = tick
	}
	return amount0, amount1, nil
}

// step runs one in-range swap step and returns the resulting price, the
// total input owed (including fee), and the output produced.
func (v *Venue) step(zeroForOne bool, amountIn, sqrtPriceLimitX96 *big.Int) (nextPrice, amountOwed, amountOut *big.Int, err error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, nil, nil, ErrInvalidAmountIn
	}
	limit, err := v.priceLimit(zeroForOne, sqrtPriceLimitX96)
	if err != nil {
		return nil, nil, nil, err
	}

	nextPrice = new(big.Int)
	stepIn := new(big.Int)
	amountOut = new(big.Int)
	fee := new(big.Int)
	err = swapmath.ComputeSwapStep(
		nextPrice, stepIn, amountOut, fee,
		v.pool.SqrtPriceX96,
		limit,
		v.pool.Liquidity,
		amountIn,
		new(big.Int).SetUint64(v.pool.Fee),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	return nextPrice, stepIn.Add(stepIn, fee), amountOut, nil
}

func (v *Venue) priceLimit(zeroForOne bool, limit *big.Int) (*big.Int, error) {
	if limit == nil {
		if zeroForOne {
			return new(big.Int).Add(tickmath.MIN_SQRT_RATIO, big.NewInt(1)), nil
		}
		return new(big.Int).Sub(tickmath.MAX_SQRT_RATIO, big.NewInt(1)), nil
	}
	if zeroForOne {
		if limit.Cmp(v.pool.SqrtPriceX96) >= 0 || limit.Cmp(tickmath.MIN_SQRT_RATIO) <= 0 {
			return nil, fmt.Errorf("%w: %s for zeroForOne at price %s", ErrInvalidPriceLimit, limit, v.pool.SqrtPriceX96)
		}
	} else {
		if limit.Cmp(v.pool.SqrtPriceX96) <= 0 || limit.Cmp(tickmath.MAX_SQRT_RATIO) >= 0 {
			return nil, fmt.Errorf("%w: %s for oneForZero at price %s", ErrInvalidPriceLimit, limit, v.pool.SqrtPriceX96)
		}
	}
	return limit, nil
}

func (v *Venue) direction(tokenIn common.Address) (bool, error) {
	switch tokenIn {
	case v.pool.Token0:
		return true, nil
	case v.pool.Token1:
		return false, nil
	default:
		return false, fmt.Errorf("%w: token %s is not in pool %s", ErrTokenMismatch, tokenIn, v.pool.Address)
	}
}

// virtualReserves derives the balances implied by liquidity and price:
// reserve0 = L<<96 / sqrtP, reserve1 = L * sqrtP >> 96.
func virtualReserves(p Pool) (*big.Int, *big.Int) {
	reserve0 := new(big.Int).Div(new(big.Int).Lsh(p.Liquidity, 96), p.SqrtPriceX96)
	reserve1 := new(big.Int).Div(new(big.Int).Mul(p.Liquidity, p.SqrtPriceX96), sqrtpricemath.Q96)
	return reserve0, reserve1
}
