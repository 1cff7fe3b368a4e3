package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crossarb/crossarb-go/arbitrage"
	"github.com/crossarb/crossarb-go/evaluator"
	"github.com/crossarb/crossarb-go/venues"
)

// CoordinatorExecutor applies attempts by resolving their venues through
// the registry and driving the coordinator. A quote preview screens out
// attempts with no expected edge before any state is touched; an attempt
// that still yields no profit at execution time is churn, not failure.
type CoordinatorExecutor struct {
	coordinator *arbitrage.Coordinator
	registry    *venues.Registry
	caller      common.Address
	logger      Logger
}

// ExecutorConfig holds the executor's construction-time dependencies.
// Caller is the identity attempts are executed under; it must be the
// coordinator's controller for attempts to pass the gate.
type ExecutorConfig struct {
	Coordinator *arbitrage.Coordinator
	Registry    *venues.Registry
	Caller      common.Address
	Logger      Logger
}

// NewCoordinatorExecutor validates the config and returns the executor.
func NewCoordinatorExecutor(cfg ExecutorConfig) (*CoordinatorExecutor, error) {
	if cfg.Coordinator == nil {
		return nil, fmt.Errorf("config: Coordinator is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("config: Registry is required")
	}
	if cfg.Caller == (common.Address{}) {
		return nil, fmt.Errorf("config: Caller is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("config: Logger is required")
	}
	return &CoordinatorExecutor{
		coordinator: cfg.Coordinator,
		registry:    cfg.Registry,
		caller:      cfg.Caller,
		logger:      cfg.Logger,
	}, nil
}

// Execute runs one attempt end to end. ErrNoProfit is logged and swallowed;
// every other abort is surfaced to the engine.
func (x *CoordinatorExecutor) Execute(_ context.Context, attempt Attempt) error {
	venueA, err := x.registry.FlashVenue(attempt.VenueA)
	if err != nil {
		return fmt.Errorf("attempt %s: %w", attempt.ID, err)
	}
	venueB, err := x.registry.ReservePool(attempt.VenueB)
	if err != nil {
		return fmt.Errorf("attempt %s: %w", attempt.ID, err)
	}

	preview, err := evaluator.PreviewSequence(venueA, venueB, x.coordinator.BaseAsset(), attempt.AmountIn)
	if err != nil {
		return fmt.Errorf("attempt %s: preview: %w", attempt.ID, err)
	}
	if preview.Profit.Sign() <= 0 {
		x.logger.Debug("attempt screened out",
			"id", attempt.ID, "amountIn", attempt.AmountIn.String(),
			"previewProfit", preview.Profit.String())
		return nil
	}

	result, err := x.coordinator.Execute(x.caller, arbitrage.ExecuteParams{
		VenueA:             venueA,
		VenueB:             venueB,
		AmountIn:           attempt.AmountIn,
		ProposerPercentage: attempt.ProposerPercentage,
	})
	if errors.Is(err, arbitrage.ErrNoProfit) {
		x.logger.Debug("attempt yielded no profit at execution",
			"id", attempt.ID, "amountIn", attempt.AmountIn.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("attempt %s: %w", attempt.ID, err)
	}

	x.logger.Info("attempt committed",
		"id", attempt.ID, "executionID", result.ID,
		"amountIn", attempt.AmountIn.String(), "profit", result.Profit.String(),
		"proposerPayment", result.ProposerPayment.String())
	return nil
}
