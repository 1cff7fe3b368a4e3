package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// WrappedNative simulates the wrap contract for the network-native coin.
// The wrapped token is the base asset every profit calculation is
// denominated in. Deposit is open to any holder; the contract's own native
// balance always backs the wrapped supply one-to-one.
type WrappedNative struct {
	addr   common.Address
	ledger *Ledger
}

// NewWrappedNative binds a wrap contract at addr to the ledger.
func NewWrappedNative(addr common.Address, l *Ledger) *WrappedNative {
	return &WrappedNative{addr: addr, ledger: l}
}

// Address returns the wrapped token's asset identifier.
func (w *WrappedNative) Address() common.Address {
	return w.addr
}

// Deposit converts holder's native coin into the wrapped base asset.
func (w *WrappedNative) Deposit(holder common.Address, amount *big.Int) error {
	if err := w.ledger.Transfer(NativeAsset, holder, w.addr, amount); err != nil {
		return fmt.Errorf("wrap deposit: %w", err)
	}
	return w.ledger.Mint(w.addr, holder, amount)
}

// Withdraw converts holder's wrapped base asset back into native coin.
func (w *WrappedNative) Withdraw(holder common.Address, amount *big.Int) error {
	if err := w.ledger.Burn(w.addr, holder, amount); err != nil {
		return fmt.Errorf("wrap withdraw: %w", err)
	}
	return w.ledger.Transfer(NativeAsset, w.addr, holder, amount)
}
