package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/crossarb/crossarb-go/arbitrage"
	"github.com/crossarb/crossarb-go/cmd/crossarb/config"
	"github.com/crossarb/crossarb-go/ledger"
	"github.com/crossarb/crossarb-go/runtime"
	"github.com/crossarb/crossarb-go/strategy"
	"github.com/crossarb/crossarb-go/streams/jsonrpc/feed"
	"github.com/crossarb/crossarb-go/venues"
	"github.com/crossarb/crossarb-go/venues/uniswapv2"
	"github.com/crossarb/crossarb-go/venues/uniswapv3"
)

// replaySource feeds the configured event list through the engine once.
type replaySource struct {
	events []strategy.PoolTouched
}

func (s *replaySource) EventStream(ctx context.Context) (<-chan strategy.PoolTouched, error) {
	out := make(chan strategy.PoolTouched, len(s.events))
	go func() {
		defer close(out)
		for _, event := range s.events {
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	// All setup and teardown lives in run so deferred cleanup executes
	// before the process exits.
	if err := run(cfg, rootLogger); err != nil {
		rootLogger.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, rootLogger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	prometheusRegistry := prometheus.DefaultRegisterer

	// Cancel on interrupt or termination so a run can be cut short cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := ledger.New()
	wrappedAddr, _ := config.ParseAddress(cfg.Coordinator.WrappedNative)
	wrapped := ledger.NewWrappedNative(wrappedAddr, l)

	coordinatorAddr, _ := config.ParseAddress(cfg.Coordinator.Address)
	controllerAddr, _ := config.ParseAddress(cfg.Coordinator.Controller)
	coinbaseAddr, _ := config.ParseAddress(cfg.Coordinator.Coinbase)
	policy, _ := cfg.Coordinator.ParsePercentagePolicy()

	coordinator, err := arbitrage.NewCoordinator(arbitrage.Config{
		Ledger:           l,
		Wrapped:          wrapped,
		Address:          coordinatorAddr,
		Controller:       controllerAddr,
		Coinbase:         coinbaseAddr,
		PercentagePolicy: policy,
		Logger:           rootLogger.With("component", "coordinator"),
		Registry:         prometheusRegistry,
	})
	if err != nil {
		return fmt.Errorf("initialize coordinator: %w", err)
	}

	if err := seedCustody(l, coordinator, controllerAddr, cfg.Coordinator.InitialDeposit); err != nil {
		return fmt.Errorf("seed coordinator custody: %w", err)
	}

	registry, err := buildVenues(cfg, l)
	if err != nil {
		return fmt.Errorf("build venues: %w", err)
	}
	rootLogger.Info("Venues registered", "count", registry.Len())

	pairTable, err := os.Open(cfg.Strategy.PairTable)
	if err != nil {
		return fmt.Errorf("open pair table %s: %w", cfg.Strategy.PairTable, err)
	}
	defer pairTable.Close()

	arbStrategy, err := strategy.New(strategy.Config{
		Records:            pairTable,
		ProposerPercentage: cfg.Strategy.ProposerPercentage,
		Logger:             rootLogger.With("component", "strategy"),
	})
	if err != nil {
		return fmt.Errorf("initialize strategy: %w", err)
	}

	executor, err := strategy.NewCoordinatorExecutor(strategy.ExecutorConfig{
		Coordinator: coordinator,
		Registry:    registry,
		Caller:      controllerAddr,
		Logger:      rootLogger.With("component", "executor"),
	})
	if err != nil {
		return fmt.Errorf("initialize executor: %w", err)
	}

	source, err := eventSource(cfg, rootLogger)
	if err != nil {
		return fmt.Errorf("initialize event source: %w", err)
	}

	engine := runtime.NewEngine[strategy.PoolTouched, strategy.Attempt](rootLogger.With("component", "engine")).
		AddEventSource(source).
		AddStrategy(arbStrategy).
		AddExecutor(executor)

	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("engine stopped: %w", err)
	}

	rootLogger.Info("Run complete",
		"baseAssetCustody", l.BalanceOf(wrappedAddr, coordinatorAddr).String(),
		"coinbaseNative", l.BalanceOf(ledger.NativeAsset, coinbaseAddr).String())
	return nil
}

func loadConfig() (*config.Config, error) {
	configPath := flag.String("config", "config.toml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("Loading configuration from: %s", *configPath)
	return config.Load(*configPath)
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// seedCustody funds the coordinator's base-asset custody from thin air:
// the controller is minted native coin and deposits it through the open
// entrypoint.
func seedCustody(l *ledger.Ledger, coordinator *arbitrage.Coordinator, controller common.Address, deposit string) error {
	amount, err := config.ParseAmount(deposit)
	if err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.Mint(ledger.NativeAsset, controller, amount); err != nil {
		return err
	}
	return coordinator.DepositNative(controller, amount)
}

func buildVenues(cfg *config.Config, l *ledger.Ledger) (*venues.Registry, error) {
	registry := venues.NewRegistry()
	for _, v := range cfg.Venues.ConstantProduct {
		pool, err := constantProductPool(v)
		if err != nil {
			return nil, err
		}
		pair, err := uniswapv2.NewPair(pool, l)
		if err != nil {
			return nil, err
		}
		registry.Register(pair)
	}
	for _, v := range cfg.Venues.ConcentratedLiquidity {
		pool, err := concentratedLiquidityPool(v)
		if err != nil {
			return nil, err
		}
		venue, err := uniswapv3.NewVenue(pool, l)
		if err != nil {
			return nil, err
		}
		registry.Register(venue)
	}
	return registry, nil
}

func constantProductPool(v config.ConstantProductVenueConfig) (uniswapv2.Pool, error) {
	pool := uniswapv2.Pool{FeeBps: v.FeeBps}
	var err error
	if pool.Address, err = config.ParseAddress(v.Address); err != nil {
		return pool, err
	}
	if pool.Token0, err = config.ParseAddress(v.Token0); err != nil {
		return pool, err
	}
	if pool.Token1, err = config.ParseAddress(v.Token1); err != nil {
		return pool, err
	}
	if pool.Reserve0, err = config.ParseAmount(v.Reserve0); err != nil {
		return pool, err
	}
	if pool.Reserve1, err = config.ParseAmount(v.Reserve1); err != nil {
		return pool, err
	}
	return pool, nil
}

func concentratedLiquidityPool(v config.ConcentratedLiquidityVenueConfig) (uniswapv3.Pool, error) {
	pool := uniswapv3.Pool{Fee: v.Fee, Tick: v.Tick}
	var err error
	if pool.Address, err = config.ParseAddress(v.Address); err != nil {
		return pool, err
	}
	if pool.Token0, err = config.ParseAddress(v.Token0); err != nil {
		return pool, err
	}
	if pool.Token1, err = config.ParseAddress(v.Token1); err != nil {
		return pool, err
	}
	var liquidity *big.Int
	if liquidity, err = config.ParseAmount(v.Liquidity); err != nil {
		return pool, err
	}
	pool.Liquidity = liquidity
	return pool, nil
}

// eventSource picks between a live touch feed and the configured replay
// list. A replay run ends when the list is exhausted; a live run ends on
// interrupt.
func eventSource(cfg *config.Config, logger *slog.Logger) (runtime.EventSource[strategy.PoolTouched], error) {
	if cfg.Stream.URL == "" {
		return &replaySource{events: replayEvents(cfg)}, nil
	}
	return feed.NewSource(feed.Config{
		URL:        cfg.Stream.URL,
		BufferSize: cfg.Stream.BufferSize,
		Logger:     logger.With("component", "feed"),
	})
}

func replayEvents(cfg *config.Config) []strategy.PoolTouched {
	events := make([]strategy.PoolTouched, 0, len(cfg.Events))
	for _, e := range cfg.Events {
		events = append(events, strategy.PoolTouched{
			Pool:   common.HexToAddress(e.Pool),
			TxHash: common.HexToHash(e.TxHash),
		})
	}
	return events
}
