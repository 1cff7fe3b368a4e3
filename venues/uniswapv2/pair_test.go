package uniswapv2

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossarb/crossarb-go/ledger"
	"github.com/crossarb/crossarb-go/venues"
)

var (
	pairAddr = common.HexToAddress("0x0000000000000000000000000000000000000e02")
	token0   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token1   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	trader   = common.HexToAddress("0x0000000000000000000000000000000000000c09")
)

type callbackFunc func(sender common.Address, amount0Delta, amount1Delta *big.Int, payload any) error

func (f callbackFunc) SettlementCallback(sender common.Address, amount0Delta, amount1Delta *big.Int, payload any) error {
	return f(sender, amount0Delta, amount1Delta, payload)
}

func newTestPair(t *testing.T) (*Pair, *ledger.Ledger) {
	t.Helper()
	l := ledger.New()
	pair, err := NewPair(Pool{
		Address:  pairAddr,
		Token0:   token0,
		Token1:   token1,
		Reserve0: big.NewInt(1_000_000),
		Reserve1: big.NewInt(1_000_000),
		FeeBps:   30,
	}, l)
	require.NoError(t, err)
	return pair, l
}

func TestNewPairSeedsLedger(t *testing.T) {
	pair, l := newTestPair(t)
	assert.Zero(t, big.NewInt(1_000_000).Cmp(l.BalanceOf(token0, pairAddr)))
	assert.Zero(t, big.NewInt(1_000_000).Cmp(l.BalanceOf(token1, pairAddr)))
	assert.Equal(t, venues.ConstantProduct, pair.Kind())
	assert.Equal(t, uint16(30), pair.FeeBps())
}

func TestSwapFlashRepaidInCallback(t *testing.T) {
	pair, l := newTestPair(t)
	require.NoError(t, l.Mint(token0, trader, big.NewInt(10_000)))

	var seenSender common.Address
	var seenDelta0, seenDelta1 *big.Int
	handler := callbackFunc(func(sender common.Address, amount0Delta, amount1Delta *big.Int, payload any) error {
		seenSender = sender
		seenDelta0, seenDelta1 = amount0Delta, amount1Delta
		// Repay the debt from the trader's own balance mid-swap.
		return l.Transfer(token0, trader, pairAddr, amount0Delta)
	})

	amount0, amount1, err := pair.Swap(trader, true, big.NewInt(10_000), nil, handler, "payload")
	require.NoError(t, err)

	assert.Equal(t, pairAddr, seenSender)
	assert.Zero(t, big.NewInt(10_000).Cmp(seenDelta0))
	assert.Zero(t, big.NewInt(-9_871).Cmp(seenDelta1))
	assert.Zero(t, big.NewInt(10_000).Cmp(amount0))
	assert.Zero(t, big.NewInt(-9_871).Cmp(amount1))

	// Output was delivered before the callback and reserves synced after.
	assert.Zero(t, big.NewInt(9_871).Cmp(l.BalanceOf(token1, trader)))
	reserve0, reserve1 := pair.GetReserves()
	assert.Zero(t, big.NewInt(1_010_000).Cmp(reserve0))
	assert.Zero(t, big.NewInt(990_129).Cmp(reserve1))
}

// The opposite direction orients the reserves the other way around before
// quoting: same numbers, mirrored sides.
func TestSwapFlashOneForZero(t *testing.T) {
	pair, l := newTestPair(t)
	require.NoError(t, l.Mint(token1, trader, big.NewInt(10_000)))

	handler := callbackFunc(func(_ common.Address, _, amount1Delta *big.Int, _ any) error {
		return l.Transfer(token1, trader, pairAddr, amount1Delta)
	})

	amount0, amount1, err := pair.Swap(trader, false, big.NewInt(10_000), nil, handler, nil)
	require.NoError(t, err)

	assert.Zero(t, big.NewInt(-9_871).Cmp(amount0))
	assert.Zero(t, big.NewInt(10_000).Cmp(amount1))
	assert.Zero(t, big.NewInt(9_871).Cmp(l.BalanceOf(token0, trader)))

	reserve0, reserve1 := pair.GetReserves()
	assert.Zero(t, big.NewInt(990_129).Cmp(reserve0))
	assert.Zero(t, big.NewInt(1_010_000).Cmp(reserve1))
}

func TestSwapRejectsUnderpayment(t *testing.T) {
	pair, l := newTestPair(t)
	require.NoError(t, l.Mint(token0, trader, big.NewInt(10_000)))

	handler := callbackFunc(func(_ common.Address, _, _ *big.Int, _ any) error {
		return l.Transfer(token0, trader, pairAddr, big.NewInt(9_000))
	})
	_, _, err := pair.Swap(trader, true, big.NewInt(10_000), nil, handler, nil)
	assert.ErrorIs(t, err, ErrInvariantViolated)
}

func TestSwapRejectsNoRepayment(t *testing.T) {
	pair, _ := newTestPair(t)

	handler := callbackFunc(func(_ common.Address, _, _ *big.Int, _ any) error {
		return nil
	})
	_, _, err := pair.Swap(trader, true, big.NewInt(10_000), nil, handler, nil)
	assert.ErrorIs(t, err, ErrInsufficientInput)
}

func TestSwapPropagatesCallbackError(t *testing.T) {
	pair, _ := newTestPair(t)

	handler := callbackFunc(func(_ common.Address, _, _ *big.Int, _ any) error {
		return assert.AnError
	})
	_, _, err := pair.Swap(trader, true, big.NewInt(10_000), nil, handler, nil)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSwapOutWithPredeliveredInput(t *testing.T) {
	pair, l := newTestPair(t)
	require.NoError(t, l.Mint(token0, trader, big.NewInt(10_000)))
	require.NoError(t, l.Transfer(token0, trader, pairAddr, big.NewInt(10_000)))

	require.NoError(t, pair.SwapOut(nil, big.NewInt(9_871), trader, nil))
	assert.Zero(t, big.NewInt(9_871).Cmp(l.BalanceOf(token1, trader)))

	reserve0, reserve1 := pair.GetReserves()
	assert.Zero(t, big.NewInt(1_010_000).Cmp(reserve0))
	assert.Zero(t, big.NewInt(990_129).Cmp(reserve1))
}

func TestSwapOutRejectsExcessOutput(t *testing.T) {
	pair, l := newTestPair(t)
	require.NoError(t, l.Mint(token0, pairAddr, big.NewInt(10_000)))

	// One unit above the fee-adjusted quote breaks the invariant.
	err := pair.SwapOut(nil, big.NewInt(9_872), trader, nil)
	assert.ErrorIs(t, err, ErrInvariantViolated)
}

func TestSwapOutValidation(t *testing.T) {
	pair, _ := newTestPair(t)

	t.Run("no output requested", func(t *testing.T) {
		assert.ErrorIs(t, pair.SwapOut(nil, nil, trader, nil), ErrInsufficientOutput)
	})
	t.Run("more than reserves", func(t *testing.T) {
		err := pair.SwapOut(big.NewInt(1_000_000), nil, trader, nil)
		assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	})
	t.Run("recipient is a pool token", func(t *testing.T) {
		err := pair.SwapOut(big.NewInt(1), nil, token0, nil)
		assert.ErrorIs(t, err, ErrInvalidRecipient)
	})
}

func TestCheckpointRestoresReserves(t *testing.T) {
	pair, l := newTestPair(t)
	require.NoError(t, l.Mint(token0, trader, big.NewInt(10_000)))

	restoreLedger := l.Checkpoint()
	restorePair := pair.Checkpoint()

	handler := callbackFunc(func(_ common.Address, amount0Delta, _ *big.Int, _ any) error {
		return l.Transfer(token0, trader, pairAddr, amount0Delta)
	})
	_, _, err := pair.Swap(trader, true, big.NewInt(10_000), nil, handler, nil)
	require.NoError(t, err)

	restorePair()
	restoreLedger()

	reserve0, reserve1 := pair.GetReserves()
	assert.Zero(t, big.NewInt(1_000_000).Cmp(reserve0))
	assert.Zero(t, big.NewInt(1_000_000).Cmp(reserve1))
	assert.Zero(t, big.NewInt(10_000).Cmp(l.BalanceOf(token0, trader)))
	assert.Zero(t, l.BalanceOf(token1, trader).Sign())
}
