package uniswapv2

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crossarb/crossarb-go/ledger"
	"github.com/crossarb/crossarb-go/venues"
	"github.com/crossarb/crossarb-go/venues/uniswapv2/calculator"
)

var (
	// ErrInsufficientOutput is returned when a swap requests no output at all.
	ErrInsufficientOutput = errors.New("insufficient output amount")
	// ErrInsufficientLiquidity is returned when a swap requests more output than the reserves hold.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInsufficientInput is returned when no input reached the pair before settlement.
	ErrInsufficientInput = errors.New("insufficient input amount")
	// ErrInvariantViolated is returned when the fee-adjusted constant product would shrink.
	ErrInvariantViolated = errors.New("constant product invariant violated")
	// ErrInvalidRecipient is returned when the swap recipient is one of the pair's tokens.
	ErrInvalidRecipient = errors.New("invalid recipient")
)

var basisPointDivisor = big.NewInt(10000)

// Pair is a stateful constant-product venue backed by the shared ledger.
// Reserves track the pair's own ledger balances; a swap settles by
// comparing actual balances against the fee-adjusted invariant, so input
// can arrive either before the call (second-leg shape) or during the
// settlement callback (first-leg flash shape).
type Pair struct {
	pool   Pool
	ledger *ledger.Ledger
}

var _ venues.FlashVenue = (*Pair)(nil)
var _ venues.ReservePool = (*Pair)(nil)

// NewPair creates the venue and seeds the ledger with the pool's reserves
// so balances and reserves start in sync.
func NewPair(pool Pool, l *ledger.Ledger) (*Pair, error) {
	if pool.Reserve0 == nil || pool.Reserve1 == nil {
		return nil, fmt.Errorf("pair %s: nil reserves", pool.Address)
	}
	if err := l.Mint(pool.Token0, pool.Address, pool.Reserve0); err != nil {
		return nil, err
	}
	if err := l.Mint(pool.Token1, pool.Address, pool.Reserve1); err != nil {
		return nil, err
	}
	return &Pair{pool: pool.Copy(), ledger: l}, nil
}

func (p *Pair) Address() common.Address { return p.pool.Address }
func (p *Pair) Token0() common.Address  { return p.pool.Token0 }
func (p *Pair) Token1() common.Address  { return p.pool.Token1 }
func (p *Pair) Kind() venues.Kind       { return venues.ConstantProduct }
func (p *Pair) FeeBps() uint16          { return p.pool.FeeBps }

// Pool returns a copy of the current pool state.
func (p *Pair) Pool() Pool { return p.pool.Copy() }

// GetReserves returns copies of the current reserves.
func (p *Pair) GetReserves() (reserve0, reserve1 *big.Int) {
	return new(big.Int).Set(p.pool.Reserve0), new(big.Int).Set(p.pool.Reserve1)
}

// Checkpoint captures the pool state. Ledger balances are checkpointed
// separately by the coordinator.
func (p *Pair) Checkpoint() (restore func()) {
	saved := p.pool.Copy()
	done := false
	return func() {
		if done {
			return
		}
		done = true
		p.pool = saved
	}
}

// SwapOut releases output to recipient and settles against the invariant.
// The input must already sit on the pair's balance (the first leg delivered
// it directly). data is accepted for interface fidelity and ignored.
func (p *Pair) SwapOut(amount0Out, amount1Out *big.Int, recipient common.Address, data []byte) error {
	_ = data
	return p.swapOut(amount0Out, amount1Out, recipient)
}

// Swap runs the first-leg flash shape: pay the output to recipient, hand
// control to the settlement callback, then settle against the invariant.
// sqrtPriceLimitX96 is ignored; a constant-product trade is sized by amount
// alone.
func (p *Pair) Swap(
	recipient common.Address,
	zeroForOne bool,
	amountSpecified *big.Int,
	sqrtPriceLimitX96 *big.Int,
	handler venues.SettlementHandler,
	payload any,
) (amount0, amount1 *big.Int, err error) {
	_ = sqrtPriceLimitX96
	if amountSpecified == nil || amountSpecified.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: exact input required", ErrInsufficientInput)
	}

	tokenOut := p.pool.Token1
	reserveIn, reserveOut := p.pool.Reserve0, p.pool.Reserve1
	if !zeroForOne {
		tokenOut = p.pool.Token0
		reserveIn, reserveOut = reserveOut, reserveIn
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: empty reserves", ErrInsufficientLiquidity)
	}
	amountOut, err := calculator.GetAmountOut(amountSpecified, reserveIn, reserveOut, p.pool.FeeBps)
	if err != nil {
		return nil, nil, err
	}

	// Signed deltas from the venue's perspective.
	if zeroForOne {
		amount0 = new(big.Int).Set(amountSpecified)
		amount1 = new(big.Int).Neg(amountOut)
	} else {
		amount0 = new(big.Int).Neg(amountOut)
		amount1 = new(big.Int).Set(amountSpecified)
	}

	if err := p.payOut(tokenOut, recipient, amountOut); err != nil {
		return nil, nil, err
	}

	if err := handler.SettlementCallback(p.pool.Address, amount0, amount1, payload); err != nil {
		return nil, nil, fmt.Errorf("settlement callback: %w", err)
	}

	if err := p.settle(); err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

func (p *Pair) swapOut(amount0Out, amount1Out *big.Int, recipient common.Address) error {
	if amount0Out == nil {
		amount0Out = new(big.Int)
	}
	if amount1Out == nil {
		amount1Out = new(big.Int)
	}
	if amount0Out.Sign() <= 0 && amount1Out.Sign() <= 0 {
		return ErrInsufficientOutput
	}
	if amount0Out.Cmp(p.pool.Reserve0) >= 0 || amount1Out.Cmp(p.pool.Reserve1) >= 0 {
		return fmt.Errorf("%w: requested (%s, %s) of (%s, %s)", ErrInsufficientLiquidity,
			amount0Out, amount1Out, p.pool.Reserve0, p.pool.Reserve1)
	}
	if amount0Out.Sign() > 0 {
		if err := p.payOut(p.pool.Token0, recipient, amount0Out); err != nil {
			return err
		}
	}
	if amount1Out.Sign() > 0 {
		if err := p.payOut(p.pool.Token1, recipient, amount1Out); err != nil {
			return err
		}
	}
	return p.settle()
}

func (p *Pair) payOut(token, recipient common.Address, amount *big.Int) error {
	if recipient == p.pool.Token0 || recipient == p.pool.Token1 {
		return ErrInvalidRecipient
	}
	return p.ledger.Transfer(token, p.pool.Address, recipient, amount)
}

// settle compares the pair's actual balances against its recorded reserves,
// derives the implied inputs, checks the fee-adjusted constant product, and
// syncs reserves to balances.
func (p *Pair) settle() error {
	balance0 := p.ledger.BalanceOf(p.pool.Token0, p.pool.Address)
	balance1 := p.ledger.BalanceOf(p.pool.Token1, p.pool.Address)

	amount0In := impliedInput(balance0, p.pool.Reserve0)
	amount1In := impliedInput(balance1, p.pool.Reserve1)
	if amount0In.Sign() == 0 && amount1In.Sign() == 0 {
		return ErrInsufficientInput
	}

	fee := big.NewInt(int64(p.pool.FeeBps))
	adjusted0 := new(big.Int).Mul(balance0, basisPointDivisor)
	adjusted0.Sub(adjusted0, new(big.Int).Mul(amount0In, fee))
	adjusted1 := new(big.Int).Mul(balance1, basisPointDivisor)
	adjusted1.Sub(adjusted1, new(big.Int).Mul(amount1In, fee))

	left := new(big.Int).Mul(adjusted0, adjusted1)
	right := new(big.Int).Mul(p.pool.Reserve0, p.pool.Reserve1)
	right.Mul(right, new(big.Int).Mul(basisPointDivisor, basisPointDivisor))
	if left.Cmp(right) < 0 {
		return ErrInvariantViolated
	}

	p.pool.Reserve0 = balance0
	p.pool.Reserve1 = balance1
	return nil
}

// impliedInput is balance - reserve when positive, zero otherwise. Input
// and output arrive on opposite token sides in both supported flows, so any
// excess over the recorded reserve is input.
func impliedInput(balance, reserve *big.Int) *big.Int {
	if balance.Cmp(reserve) > 0 {
		return new(big.Int).Sub(balance, reserve)
	}
	return new(big.Int)
}
