package venues

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Registry resolves venues by address for the strategy and runtime layers.
// Registration happens once at scenario build time; lookups are read-only
// afterwards.
type Registry struct {
	byAddress map[common.Address]Venue
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byAddress: make(map[common.Address]Venue)}
}

// Register adds a venue. Re-registering the same address replaces the entry.
func (r *Registry) Register(v Venue) {
	r.byAddress[v.Address()] = v
}

// Get returns the venue at addr.
func (r *Registry) Get(addr common.Address) (Venue, error) {
	v, ok := r.byAddress[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVenue, addr)
	}
	return v, nil
}

// FlashVenue returns the venue at addr if it can run a first leg.
func (r *Registry) FlashVenue(addr common.Address) (FlashVenue, error) {
	v, err := r.Get(addr)
	if err != nil {
		return nil, err
	}
	fv, ok := v.(FlashVenue)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not flash-capable", ErrUnknownVenue, addr)
	}
	return fv, nil
}

// ReservePool returns the venue at addr if it exposes the second-leg shape.
func (r *Registry) ReservePool(addr common.Address) (ReservePool, error) {
	v, err := r.Get(addr)
	if err != nil {
		return nil, err
	}
	rp, ok := v.(ReservePool)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a reserve pool", ErrUnknownVenue, addr)
	}
	return rp, nil
}

// Len reports the number of registered venues.
func (r *Registry) Len() int {
	return len(r.byAddress)
}
