// Package ledger simulates the host chain's token custody: per-asset,
// per-holder balances that venues and the arbitrage coordinator mutate.
// A Checkpoint captures the full balance set so a failed operation can be
// rolled back as one unit.
package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientBalance is returned when a transfer or burn exceeds the
	// holder's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount is returned when an amount is nil or negative.
	ErrInvalidAmount = errors.New("amount must be non-nil and non-negative")
)

// NativeAsset is the reserved asset identifier for the network-native coin.
var NativeAsset = common.Address{}

// Ledger holds all simulated balances. It is not safe for concurrent use;
// the core executes one atomic operation at a time (see arbitrage.Coordinator).
type Ledger struct {
	// asset -> holder -> balance
	balances map[common.Address]map[common.Address]*big.Int
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (l *Ledger) assetBalances(asset common.Address) map[common.Address]*big.Int {
	holders, ok := l.balances[asset]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		l.balances[asset] = holders
	}
	return holders
}

// BalanceOf returns a copy of holder's balance of asset. Never nil.
func (l *Ledger) BalanceOf(asset, holder common.Address) *big.Int {
	if holders, ok := l.balances[asset]; ok {
		if b, ok := holders[holder]; ok {
			return new(big.Int).Set(b)
		}
	}
	return new(big.Int)
}

// Mint credits amount of asset to holder. Used to seed scenarios and by the
// wrapped-native contract.
func (l *Ledger) Mint(asset, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	holders := l.assetBalances(asset)
	b, ok := holders[to]
	if !ok {
		b = new(big.Int)
		holders[to] = b
	}
	b.Add(b, amount)
	return nil
}

// Burn removes amount of asset from holder.
func (l *Ledger) Burn(asset, from common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	holders := l.assetBalances(asset)
	b, ok := holders[from]
	if !ok || b.Cmp(amount) < 0 {
		return fmt.Errorf("%w: burn %s of asset %s from %s", ErrInsufficientBalance, amount, asset, from)
	}
	b.Sub(b, amount)
	return nil
}

// Transfer moves amount of asset from one holder to another.
func (l *Ledger) Transfer(asset, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	holders := l.assetBalances(asset)
	fromBal, ok := holders[from]
	if !ok || fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: transfer %s of asset %s from %s", ErrInsufficientBalance, amount, asset, from)
	}
	toBal, ok := holders[to]
	if !ok {
		toBal = new(big.Int)
		holders[to] = toBal
	}
	fromBal.Sub(fromBal, amount)
	toBal.Add(toBal, amount)
	return nil
}

// Checkpoint captures the full balance set and returns a function that
// restores it. Restoring twice is a no-op the second time.
func (l *Ledger) Checkpoint() (restore func()) {
	saved := make(map[common.Address]map[common.Address]*big.Int, len(l.balances))
	for asset, holders := range l.balances {
		savedHolders := make(map[common.Address]*big.Int, len(holders))
		for holder, b := range holders {
			savedHolders[holder] = new(big.Int).Set(b)
		}
		saved[asset] = savedHolders
	}
	done := false
	return func() {
		if done {
			return
		}
		done = true
		l.balances = saved
	}
}
