package uniswapv3

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool is the observed state of a concentrated-liquidity venue: a
// continuous Q64.96 sqrt price and the liquidity active at it. Fee is in
// hundredths of a basis point (3000 = 30bps).
type Pool struct {
	Address      common.Address `json:"address"`
	Token0       common.Address `json:"token0"`
	Token1       common.Address `json:"token1"`
	Fee          uint64         `json:"fee"`
	Tick         int64          `json:"tick"`
	Liquidity    *big.Int       `json:"liquidity"`
	SqrtPriceX96 *big.Int       `json:"sqrtPriceX96"`
}

// Copy returns a deep copy of the pool state.
func (p Pool) Copy() Pool {
	cp := p
	cp.Liquidity = new(big.Int).Set(p.Liquidity)
	cp.SqrtPriceX96 = new(big.Int).Set(p.SqrtPriceX96)
	return cp
}
