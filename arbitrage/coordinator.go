// Package arbitrage implements the execution coordinator: the atomic
// two-leg protocol that borrows the base asset from venue A, swaps the
// intermediate asset on venue B inside venue A's settlement callback,
// repays the debt, validates profit, and distributes the proposer share.
// The whole sequence is one synchronous call chain; the callback is nested
// invocation, not concurrency, and a failure anywhere restores every
// balance and both venues to the pre-call checkpoint.
package arbitrage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/crossarb/crossarb-go/evaluator"
	"github.com/crossarb/crossarb-go/ledger"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PercentagePolicy decides what happens to a proposer percentage above 100.
// The observed upstream design left this unbounded; it is surfaced here as
// explicit configuration instead of a guess.
type PercentagePolicy uint8

const (
	// PercentageReject fails the operation for values above 100. Default.
	PercentageReject PercentagePolicy = iota
	// PercentageSaturate clamps values above 100 down to 100.
	PercentageSaturate
	// PercentageTrust passes the value through unchecked; bounding it is
	// the caller's responsibility.
	PercentageTrust
)

var oneHundred = big.NewInt(100)

// Config holds the coordinator's construction-time dependencies. The
// controller is the single identity allowed to execute and withdraw;
// changing it later goes through SetController, never ambient mutation.
type Config struct {
	Ledger  *ledger.Ledger
	Wrapped *ledger.WrappedNative
	// Address is the coordinator's own custody identity on the ledger.
	Address common.Address
	// Controller is the designated operator.
	Controller common.Address
	// Coinbase is the block proposer paid a share of each profit.
	Coinbase common.Address

	PercentagePolicy PercentagePolicy
	Logger           Logger
	Registry         prometheus.Registerer
}

func (c *Config) validate() error {
	if c.Ledger == nil {
		return errors.New("config: Ledger is required")
	}
	if c.Wrapped == nil {
		return errors.New("config: Wrapped is required")
	}
	if c.Address == (common.Address{}) {
		return errors.New("config: Address is required")
	}
	if c.Controller == (common.Address{}) {
		return errors.New("config: Controller is required")
	}
	if c.Coinbase == (common.Address{}) {
		return errors.New("config: Coinbase is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	if c.Registry == nil {
		return errors.New("config: Registry is required")
	}
	return nil
}

// Coordinator drives the atomic arbitrage protocol. It assumes at most one
// in-flight execution at a time; overlapping calls by the controller must
// be serialized by the caller.
type Coordinator struct {
	ledger     *ledger.Ledger
	wrapped    *ledger.WrappedNative
	baseAsset  common.Address
	addr       common.Address
	controller common.Address
	coinbase   common.Address
	policy     PercentagePolicy
	logger     Logger
	metrics    *Metrics

	// pending is the settlement context of the in-flight operation; nil
	// outside Execute and after the callback consumes it.
	pending *SettlementContext
}

// NewCoordinator validates the config and returns a coordinator with
// registered metrics.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Coordinator{
		ledger:     cfg.Ledger,
		wrapped:    cfg.Wrapped,
		baseAsset:  cfg.Wrapped.Address(),
		addr:       cfg.Address,
		controller: cfg.Controller,
		coinbase:   cfg.Coinbase,
		policy:     cfg.PercentagePolicy,
		logger:     cfg.Logger,
		metrics:    NewMetrics(cfg.Registry),
	}, nil
}

// Address returns the coordinator's custody identity.
func (c *Coordinator) Address() common.Address { return c.addr }

// Controller returns the current controller identity.
func (c *Coordinator) Controller() common.Address { return c.controller }

// BaseAsset returns the asset profits are denominated in.
func (c *Coordinator) BaseAsset() common.Address { return c.baseAsset }

// Execute runs one atomic arbitrage attempt: borrow AmountIn of the base
// asset from venue A with venue B as the swap recipient, settle both legs
// inside A's callback, then require the custody balance to have strictly
// grown before distributing the proposer share. Any failure restores the
// pre-call state completely.
func (c *Coordinator) Execute(caller common.Address, p ExecuteParams) (*Result, error) {
	timer := prometheus.NewTimer(c.metrics.executionDuration)
	defer timer.ObserveDuration()

	if caller != c.controller {
		c.metrics.executionsTotal.WithLabelValues("unauthorized").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	if c.pending != nil {
		c.metrics.executionsTotal.WithLabelValues("in_flight").Inc()
		return nil, ErrExecutionInFlight
	}
	if p.VenueA == nil || p.VenueB == nil {
		return nil, fmt.Errorf("%w: nil venue", ErrInvalidParams)
	}
	if p.AmountIn == nil || p.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amountIn must be positive", ErrInvalidParams)
	}
	percentage, err := c.boundPercentage(p.ProposerPercentage)
	if err != nil {
		c.metrics.executionsTotal.WithLabelValues("invalid_percentage").Inc()
		return nil, err
	}

	aBaseIsToken0, err := evaluator.BaseIsToken0(p.VenueA, c.baseAsset)
	if err != nil {
		return nil, err
	}
	intermediate := p.VenueA.Token1()
	if !aBaseIsToken0 {
		intermediate = p.VenueA.Token0()
	}

	restoreLedger := c.ledger.Checkpoint()
	restoreA := p.VenueA.Checkpoint()
	restoreB := p.VenueB.Checkpoint()
	abort := func() {
		restoreB()
		restoreA()
		restoreLedger()
		c.pending = nil
	}

	before := c.ledger.BalanceOf(c.baseAsset, c.addr)

	sctx := &SettlementContext{
		Beneficiary:       c.addr,
		OwingPool:         p.VenueA.Address(),
		SecondLeg:         p.VenueB,
		BorrowedAsset:     c.baseAsset,
		IntermediateAsset: intermediate,
		AmountOwed:        new(big.Int).Set(p.AmountIn),
		BaseIsToken0:      aBaseIsToken0,
	}
	c.pending = sctx

	c.logger.Debug("leg one initiated",
		"venueA", sctx.OwingPool, "venueB", p.VenueB.Address(),
		"amountIn", p.AmountIn.String(), "zeroForOne", aBaseIsToken0)

	// Venue B receives leg one's output directly; no intermediate transfer.
	_, _, err = p.VenueA.Swap(
		p.VenueB.Address(),
		aBaseIsToken0,
		p.AmountIn,
		evaluator.PriceLimit(aBaseIsToken0),
		c,
		sctx,
	)
	if err != nil {
		abort()
		c.metrics.executionsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}
	if c.pending != nil {
		// Venue A returned without delivering the callback.
		abort()
		c.metrics.executionsTotal.WithLabelValues("nothing_to_settle").Inc()
		return nil, fmt.Errorf("%w: venue %s never settled", ErrNothingToSettle, sctx.OwingPool)
	}

	after := c.ledger.BalanceOf(c.baseAsset, c.addr)
	if after.Cmp(before) <= 0 {
		abort()
		c.metrics.executionsTotal.WithLabelValues("no_profit").Inc()
		return nil, fmt.Errorf("%w: before %s, after %s", ErrNoProfit, before, after)
	}
	profit := new(big.Int).Sub(after, before)

	payment := ProposerShare(profit, percentage)
	if payment.Sign() > 0 {
		if err := c.payProposer(payment); err != nil {
			abort()
			c.metrics.executionsTotal.WithLabelValues("distribution_failed").Inc()
			return nil, err
		}
	}
	remaining := c.ledger.BalanceOf(c.baseAsset, c.addr)
	if remaining.Cmp(before) <= 0 {
		abort()
		c.metrics.executionsTotal.WithLabelValues("distribution_inconsistent").Inc()
		return nil, fmt.Errorf("%w: before %s, remaining %s", ErrDistributionInconsistent, before, remaining)
	}

	result := &Result{
		ID:              uuid.New(),
		Before:          before,
		After:           after,
		Profit:          profit,
		ProposerPayment: payment,
		Retained:        new(big.Int).Sub(remaining, before),
	}
	c.metrics.executionsTotal.WithLabelValues("committed").Inc()
	profitApprox, _ := new(big.Float).SetInt(profit).Float64()
	c.metrics.profit.Observe(profitApprox)
	c.logger.Info("arbitrage committed",
		"id", result.ID, "profit", profit.String(),
		"proposerPayment", payment.String(), "retained", result.Retained.String())
	return result, nil
}

// SettlementCallback is invoked by venue A mid-swap, before its own Swap
// returns. It authenticates the sender against the owing pool recorded in
// the context, runs the second leg against venue B's fresh reserves, and
// repays the debt. Exposed exactly in the venue-facing shape.
func (c *Coordinator) SettlementCallback(sender common.Address, amount0Delta, amount1Delta *big.Int, payload any) error {
	sctx, ok := payload.(*SettlementContext)
	if !ok {
		return fmt.Errorf("%w: unrecognized payload", ErrUnexpectedCallback)
	}
	if sender != sctx.OwingPool {
		return fmt.Errorf("%w: got %s, want %s", ErrInvalidCallbackSender, sender, sctx.OwingPool)
	}
	if c.pending == nil || sctx != c.pending {
		return fmt.Errorf("%w: context is not in flight", ErrUnexpectedCallback)
	}
	// Consumed exactly once; a second delivery fails above.
	c.pending = nil

	owed, owedAsset, received, err := splitDeltas(amount0Delta, amount1Delta, sctx)
	if err != nil {
		return err
	}

	// Second leg: read venue B fresh and size by what actually arrived.
	b := sctx.SecondLeg
	bBaseIsToken0, err := evaluator.BaseIsToken0(b, sctx.BorrowedAsset)
	if err != nil {
		return err
	}
	reserve0, reserve1 := b.GetReserves()
	reserveIn, reserveOut := reserve1, reserve0
	if !bBaseIsToken0 {
		reserveIn, reserveOut = reserve0, reserve1
	}
	baseOut, err := evaluator.QuoteConstantProduct(received, reserveIn, reserveOut, b.FeeBps())
	if err != nil {
		return fmt.Errorf("second leg quote: %w", err)
	}

	amount0Out, amount1Out := baseOut, new(big.Int)
	if !bBaseIsToken0 {
		amount0Out, amount1Out = amount1Out, amount0Out
	}
	if err := b.SwapOut(amount0Out, amount1Out, sctx.Beneficiary, nil); err != nil {
		return fmt.Errorf("second leg swap: %w", err)
	}

	if err := c.ledger.Transfer(owedAsset, c.addr, sctx.OwingPool, owed); err != nil {
		return fmt.Errorf("repay venue A: %w", err)
	}
	c.logger.Debug("legs settled",
		"owed", owed.String(), "received", received.String(), "baseOut", baseOut.String())
	return nil
}

// WithdrawBaseAsset moves the coordinator's whole base-asset custody to the
// controller. Controller-gated.
func (c *Coordinator) WithdrawBaseAsset(caller common.Address) (*big.Int, error) {
	if caller != c.controller {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	balance := c.ledger.BalanceOf(c.baseAsset, c.addr)
	if balance.Sign() == 0 {
		return balance, nil
	}
	if err := c.ledger.Transfer(c.baseAsset, c.addr, c.controller, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// WithdrawNative moves the coordinator's whole native-coin custody to the
// controller. Controller-gated.
func (c *Coordinator) WithdrawNative(caller common.Address) (*big.Int, error) {
	if caller != c.controller {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	balance := c.ledger.BalanceOf(ledger.NativeAsset, c.addr)
	if balance.Sign() == 0 {
		return balance, nil
	}
	if err := c.ledger.Transfer(ledger.NativeAsset, c.addr, c.controller, balance); err != nil {
		return nil, err
	}
	return balance, nil
}

// DepositNative wraps a native-coin deposit from any caller into the base
// asset held by the coordinator. Deliberately unrestricted.
func (c *Coordinator) DepositNative(from common.Address, amount *big.Int) error {
	if err := c.ledger.Transfer(ledger.NativeAsset, from, c.addr, amount); err != nil {
		return err
	}
	return c.wrapped.Deposit(c.addr, amount)
}

// SetController hands control to a new identity. Only the current
// controller may do this; there is no implicit global to mutate.
func (c *Coordinator) SetController(caller, next common.Address) error {
	if caller != c.controller {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	if next == (common.Address{}) {
		return fmt.Errorf("%w: zero controller", ErrInvalidParams)
	}
	c.logger.Info("controller changed", "from", c.controller, "to", next)
	c.controller = next
	return nil
}

// ProposerShare is floor(profit * percentage / 100).
func ProposerShare(profit *big.Int, percentage uint64) *big.Int {
	share := new(big.Int).Mul(profit, new(big.Int).SetUint64(percentage))
	return share.Div(share, oneHundred)
}

func (c *Coordinator) boundPercentage(p uint64) (uint64, error) {
	if p <= 100 {
		return p, nil
	}
	switch c.policy {
	case PercentageSaturate:
		return 100, nil
	case PercentageTrust:
		return p, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidPercentage, p)
	}
}

// payProposer unwraps the payment and sends native coin to the coinbase.
func (c *Coordinator) payProposer(payment *big.Int) error {
	if err := c.wrapped.Withdraw(c.addr, payment); err != nil {
		return err
	}
	return c.ledger.Transfer(ledger.NativeAsset, c.addr, c.coinbase, payment)
}

// splitDeltas finds the owed (positive) delta and the paid-out (negative)
// delta and maps them to assets using the direction recorded in the
// context.
func splitDeltas(amount0Delta, amount1Delta *big.Int, sctx *SettlementContext) (owed *big.Int, owedAsset common.Address, received *big.Int, err error) {
	token0, token1 := sctx.BorrowedAsset, sctx.IntermediateAsset
	if !sctx.BaseIsToken0 {
		token0, token1 = token1, token0
	}
	switch {
	case amount0Delta != nil && amount0Delta.Sign() > 0:
		owed = new(big.Int).Set(amount0Delta)
		owedAsset = token0
		received = new(big.Int).Neg(amount1Delta)
	case amount1Delta != nil && amount1Delta.Sign() > 0:
		owed = new(big.Int).Set(amount1Delta)
		owedAsset = token1
		received = new(big.Int).Neg(amount0Delta)
	default:
		return nil, common.Address{}, nil, ErrNothingToSettle
	}
	if received.Sign() <= 0 {
		return nil, common.Address{}, nil, fmt.Errorf("%w: venue paid nothing out", ErrNothingToSettle)
	}
	return owed, owedAsset, received, nil
}

// outcomeLabel maps an abort cause to a metrics label.
func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCallbackSender):
		return "invalid_callback_sender"
	case errors.Is(err, ErrUnexpectedCallback):
		return "unexpected_callback"
	case errors.Is(err, ErrNothingToSettle):
		return "nothing_to_settle"
	case errors.Is(err, ErrNoProfit):
		return "no_profit"
	default:
		return "venue_error"
	}
}
