package calculator

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBigIntFromString is a helper function to create a big.Int from a string,
// which is necessary for numbers larger than a standard int64.
func newBigIntFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("failed to set string for big.Int")
	}
	return n
}

// The standard fixture: 100 USDC (6 decimals) against 50 WETH (18 decimals).
var (
	usdcReserve = big.NewInt(100_000_000)
	wethReserve = newBigIntFromString("50000000000000000000")
)

func TestGetAmountOut(t *testing.T) {
	testCases := []struct {
		name           string
		amountIn       *big.Int
		reserveIn      *big.Int
		reserveOut     *big.Int
		feeBps         uint16
		expectedAmount *big.Int
		expectedErr    error
	}{
		{
			name:           "Standard Swap (USDC -> WETH)",
			amountIn:       big.NewInt(1_000_000), // 1 USDC
			reserveIn:      usdcReserve,
			reserveOut:     wethReserve,
			feeBps:         30,
			expectedAmount: newBigIntFromString("493579017198530649"),
		},
		{
			name:           "Standard Swap (WETH -> USDC)",
			amountIn:       newBigIntFromString("1000000000000000000"), // 1 WETH
			reserveIn:      wethReserve,
			reserveOut:     usdcReserve,
			feeBps:         30,
			expectedAmount: big.NewInt(1955016),
		},
		{
			name:           "Swap with Different Fee",
			amountIn:       big.NewInt(1_000_000),
			reserveIn:      usdcReserve,
			reserveOut:     wethReserve,
			feeBps:         100, // 1% fee
			expectedAmount: newBigIntFromString("490147539360332706"),
		},
		{
			name:           "Edge Case: Zero Liquidity",
			amountIn:       big.NewInt(1_000_000),
			reserveIn:      big.NewInt(0),
			reserveOut:     wethReserve,
			feeBps:         30,
			expectedAmount: big.NewInt(0),
		},
		{
			name:        "Invalid Input: Nil AmountIn",
			amountIn:    nil,
			reserveIn:   usdcReserve,
			reserveOut:  wethReserve,
			feeBps:      30,
			expectedErr: ErrNilAmount,
		},
		{
			name:        "Invalid Input: Negative AmountIn",
			amountIn:    big.NewInt(-100),
			reserveIn:   usdcReserve,
			reserveOut:  wethReserve,
			feeBps:      30,
			expectedErr: ErrInvalidAmount,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amountOut, err := GetAmountOut(tc.amountIn, tc.reserveIn, tc.reserveOut, tc.feeBps)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				require.NoError(t, err)
				require.NotNil(t, amountOut)
				assert.Zero(t, tc.expectedAmount.Cmp(amountOut), "Expected %s, but got %s", tc.expectedAmount.String(), amountOut.String())
			}
		})
	}
}

func TestGetAmountIn(t *testing.T) {
	testCases := []struct {
		name           string
		amountOut      *big.Int
		reserveIn      *big.Int
		reserveOut     *big.Int
		feeBps         uint16
		expectedAmount *big.Int
		expectedErr    error
	}{
		{
			name:           "Standard Swap (USDC -> WETH)",
			amountOut:      newBigIntFromString("493579017198530649"),
			reserveIn:      usdcReserve,
			reserveOut:     wethReserve,
			feeBps:         30,
			expectedAmount: big.NewInt(1_000_000),
		},
		{
			name:           "Standard Swap (WETH -> USDC)",
			amountOut:      big.NewInt(1955016),
			reserveIn:      wethReserve,
			reserveOut:     usdcReserve,
			feeBps:         30,
			expectedAmount: newBigIntFromString("999999498234537320"),
		},
		{
			name:        "Invalid Input: Nil AmountOut",
			amountOut:   nil,
			reserveIn:   usdcReserve,
			reserveOut:  wethReserve,
			feeBps:      30,
			expectedErr: ErrNilAmount,
		},
		{
			name:        "Invalid Input: Negative AmountOut",
			amountOut:   big.NewInt(-100),
			reserveIn:   usdcReserve,
			reserveOut:  wethReserve,
			feeBps:      30,
			expectedErr: ErrInvalidAmount,
		},
		{
			name:        "Invalid State: Insufficient Liquidity",
			amountOut:   newBigIntFromString("60000000000000000000"),
			reserveIn:   usdcReserve,
			reserveOut:  wethReserve,
			feeBps:      30,
			expectedErr: ErrInsufficientLiquidity,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			amountIn, err := GetAmountIn(tc.amountOut, tc.reserveIn, tc.reserveOut, tc.feeBps)

			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				require.NoError(t, err)
				require.NotNil(t, amountIn)
				assert.Zero(t, tc.expectedAmount.Cmp(amountIn), "Expected %s, but got %s", tc.expectedAmount.String(), amountIn.String())
			}
		})
	}
}

// The +1 rounding on GetAmountIn means the returned input always buys at
// least the requested output.
func TestGetAmountInCoversRequestedOutput(t *testing.T) {
	for _, amountIn := range []*big.Int{
		big.NewInt(1), big.NewInt(997), big.NewInt(1_000_000),
		newBigIntFromString("123456789012345"),
	} {
		amountOut, err := GetAmountOut(amountIn, usdcReserve, wethReserve, 30)
		require.NoError(t, err)
		if amountOut.Sign() == 0 {
			continue
		}
		required, err := GetAmountIn(amountOut, usdcReserve, wethReserve, 30)
		require.NoError(t, err)
		bought, err := GetAmountOut(required, usdcReserve, wethReserve, 30)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, bought.Cmp(amountOut), 0,
			"input %s buys %s, want at least %s", required, bought, amountOut)
	}
}

// result is a package-level variable to ensure the compiler does not optimize away the benchmarked function call.
var result *big.Int

func BenchmarkGetAmountOut(b *testing.B) {
	reserveIn := newBigIntFromString("1000000000000000000000")
	reserveOut := newBigIntFromString("2000000000000")
	amountIn := newBigIntFromString("1000000000000000000")

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		amountOut, _ := GetAmountOut(amountIn, reserveIn, reserveOut, 30)
		result = amountOut
	}
}

func BenchmarkGetAmountIn(b *testing.B) {
	reserveIn := newBigIntFromString("1000000000000000000000")
	reserveOut := newBigIntFromString("2000000000000")
	amountOut := newBigIntFromString("1994000000")

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		amountIn, _ := GetAmountIn(amountOut, reserveIn, reserveOut, 30)
		result = amountIn
	}
}
