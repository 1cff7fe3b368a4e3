package uniswapv2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Pool is the observed state of a constant-product venue. It is a value
// type: reads are fresh copies, never shared references, so a snapshot
// taken before a trade stays valid after it.
type Pool struct {
	Address  common.Address `json:"address"`
	Token0   common.Address `json:"token0"`
	Token1   common.Address `json:"token1"`
	Reserve0 *big.Int       `json:"reserve0"`
	Reserve1 *big.Int       `json:"reserve1"`
	FeeBps   uint16         `json:"feeBps"` // i.e 30 for 0.3%
}

// Copy returns a deep copy of the pool state.
func (p Pool) Copy() Pool {
	cp := p
	cp.Reserve0 = new(big.Int).Set(p.Reserve0)
	cp.Reserve1 = new(big.Int).Set(p.Reserve1)
	return cp
}
