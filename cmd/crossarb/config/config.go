// Package config defines the crossarb binary's configuration: coordinator
// identities, venue definitions, the pair table, and the replayed event
// list that drives a run.
package config

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crossarb/crossarb-go/arbitrage"
)

// Config is the root configuration decoded from TOML.
type Config struct {
	LogLevel string `toml:"log_level"`

	Coordinator CoordinatorConfig `toml:"coordinator"`
	Strategy    StrategyConfig    `toml:"strategy"`
	Stream      StreamConfig      `toml:"stream"`
	Venues      VenuesConfig      `toml:"venues"`
	Events      []EventConfig     `toml:"events"`
}

// CoordinatorConfig names the identities the coordinator runs under and
// how much base-asset custody it starts with.
type CoordinatorConfig struct {
	Address          string `toml:"address"`
	Controller       string `toml:"controller"`
	Coinbase         string `toml:"coinbase"`
	WrappedNative    string `toml:"wrapped_native"`
	InitialDeposit   string `toml:"initial_deposit"`
	PercentagePolicy string `toml:"percentage_policy"`
}

// StrategyConfig locates the pair table and sets the proposer split.
type StrategyConfig struct {
	PairTable          string `toml:"pair_table"`
	ProposerPercentage uint64 `toml:"proposer_percentage"`
}

// StreamConfig points at a live pool-touch feed. When the URL is empty the
// binary replays the configured event list instead.
type StreamConfig struct {
	URL        string `toml:"url"`
	BufferSize uint   `toml:"buffer_size"`
}

// VenuesConfig declares the simulated venues registered at startup.
type VenuesConfig struct {
	ConstantProduct       []ConstantProductVenueConfig       `toml:"constant_product"`
	ConcentratedLiquidity []ConcentratedLiquidityVenueConfig `toml:"concentrated_liquidity"`
}

// ConstantProductVenueConfig is one reserve-backed pair. Reserves are
// decimal strings in the token's smallest unit.
type ConstantProductVenueConfig struct {
	Address  string `toml:"address"`
	Token0   string `toml:"token0"`
	Token1   string `toml:"token1"`
	Reserve0 string `toml:"reserve0"`
	Reserve1 string `toml:"reserve1"`
	FeeBps   uint16 `toml:"fee_bps"`
}

// ConcentratedLiquidityVenueConfig is one tick-priced venue. Fee is in
// hundredths of a basis point.
type ConcentratedLiquidityVenueConfig struct {
	Address   string `toml:"address"`
	Token0    string `toml:"token0"`
	Token1    string `toml:"token1"`
	Fee       uint64 `toml:"fee"`
	Tick      int64  `toml:"tick"`
	Liquidity string `toml:"liquidity"`
}

// EventConfig is one replayed pool-touched event.
type EventConfig struct {
	Pool   string `toml:"pool"`
	TxHash string `toml:"tx_hash"`
}

// Defaults returns the built-in configuration, overridden by the TOML file
// and then the environment.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Coordinator: CoordinatorConfig{
			PercentagePolicy: "reject",
			InitialDeposit:   "0",
		},
	}
}

// Validate checks the configuration for structural errors. Parse helpers
// re-validate individual fields at use sites; this catches whole-file
// problems early with a readable message.
func (c *Config) Validate() error {
	var errs []error
	for name, field := range map[string]string{
		"coordinator.address":        c.Coordinator.Address,
		"coordinator.controller":     c.Coordinator.Controller,
		"coordinator.coinbase":       c.Coordinator.Coinbase,
		"coordinator.wrapped_native": c.Coordinator.WrappedNative,
	} {
		if !common.IsHexAddress(field) {
			errs = append(errs, fmt.Errorf("%s: %q is not an address", name, field))
		}
	}
	if _, err := ParseAmount(c.Coordinator.InitialDeposit); err != nil {
		errs = append(errs, fmt.Errorf("coordinator.initial_deposit: %w", err))
	}
	if _, err := c.Coordinator.ParsePercentagePolicy(); err != nil {
		errs = append(errs, err)
	}
	if c.Strategy.PairTable == "" {
		errs = append(errs, errors.New("strategy.pair_table is required"))
	}
	if c.Strategy.ProposerPercentage > 100 {
		errs = append(errs, fmt.Errorf("strategy.proposer_percentage: %d is above 100", c.Strategy.ProposerPercentage))
	}
	for i, v := range c.Venues.ConstantProduct {
		if !common.IsHexAddress(v.Address) {
			errs = append(errs, fmt.Errorf("venues.constant_product[%d].address: %q is not an address", i, v.Address))
		}
	}
	for i, v := range c.Venues.ConcentratedLiquidity {
		if !common.IsHexAddress(v.Address) {
			errs = append(errs, fmt.Errorf("venues.concentrated_liquidity[%d].address: %q is not an address", i, v.Address))
		}
	}
	return errors.Join(errs...)
}

// ParsePercentagePolicy maps the configured policy name to its enum value.
func (c *CoordinatorConfig) ParsePercentagePolicy() (arbitrage.PercentagePolicy, error) {
	switch c.PercentagePolicy {
	case "", "reject":
		return arbitrage.PercentageReject, nil
	case "saturate":
		return arbitrage.PercentageSaturate, nil
	case "trust":
		return arbitrage.PercentageTrust, nil
	default:
		return 0, fmt.Errorf("coordinator.percentage_policy: unknown policy %q", c.PercentagePolicy)
	}
}

// ParseAmount parses a non-negative decimal amount in smallest units.
func ParseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%q is not a non-negative decimal amount", s)
	}
	return amount, nil
}

// ParseAddress parses a hex address with validation.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not an address", s)
	}
	return common.HexToAddress(s), nil
}
