package venues

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVenue implements only the base Venue surface.
type fakeVenue struct {
	addr common.Address
}

func (v *fakeVenue) Address() common.Address        { return v.addr }
func (v *fakeVenue) Token0() common.Address         { return common.Address{} }
func (v *fakeVenue) Token1() common.Address         { return common.Address{} }
func (v *fakeVenue) Kind() Kind                     { return ConstantProduct }
func (v *fakeVenue) FeeBps() uint16                 { return 30 }
func (v *fakeVenue) Checkpoint() (restore func())   { return func() {} }

// fakeReservePool adds the second-leg surface on top.
type fakeReservePool struct {
	fakeVenue
}

func (v *fakeReservePool) GetReserves() (*big.Int, *big.Int) {
	return new(big.Int), new(big.Int)
}

func (v *fakeReservePool) SwapOut(_, _ *big.Int, _ common.Address, _ []byte) error {
	return nil
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()
	addr := common.HexToAddress("0xe01")
	venue := &fakeReservePool{fakeVenue{addr: addr}}
	registry.Register(venue)

	got, err := registry.Get(addr)
	require.NoError(t, err)
	assert.Same(t, venue, got)
	assert.Equal(t, 1, registry.Len())

	pool, err := registry.ReservePool(addr)
	require.NoError(t, err)
	assert.Same(t, venue, pool)
}

func TestRegistryUnknownAddress(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Get(common.HexToAddress("0xdead"))
	assert.ErrorIs(t, err, ErrUnknownVenue)
}

func TestRegistryCapabilityChecks(t *testing.T) {
	registry := NewRegistry()
	addr := common.HexToAddress("0xe01")
	registry.Register(&fakeVenue{addr: addr})

	_, err := registry.FlashVenue(addr)
	assert.ErrorIs(t, err, ErrUnknownVenue)
	_, err = registry.ReservePool(addr)
	assert.ErrorIs(t, err, ErrUnknownVenue)
}

func TestRegistryReRegisterReplaces(t *testing.T) {
	registry := NewRegistry()
	addr := common.HexToAddress("0xe01")
	first := &fakeVenue{addr: addr}
	second := &fakeReservePool{fakeVenue{addr: addr}}

	registry.Register(first)
	registry.Register(second)
	require.Equal(t, 1, registry.Len())

	got, err := registry.Get(addr)
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "constant-product", ConstantProduct.String())
	assert.Equal(t, "concentrated-liquidity", ConcentratedLiquidity.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
