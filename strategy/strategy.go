// Package strategy turns pool-activity events into sized arbitrage
// attempts. It knows which concentrated pool pairs with which
// constant-product pool and tries a ladder of input sizes against each
// recognized opportunity; everything stateful happens downstream in the
// executor.
package strategy

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// attemptSizes is the input ladder tried per opportunity: every power of
// ten from 1e5 through 1e18 base-asset units.
// TODO: replace with sizing derived from observed fill rates.
var attemptSizes = func() []*big.Int {
	sizes := make([]*big.Int, 0, 14)
	ten := big.NewInt(10)
	for exp := int64(5); exp <= 18; exp++ {
		sizes = append(sizes, new(big.Int).Exp(ten, big.NewInt(exp), nil))
	}
	return sizes
}()

// PoolTouched is the input event: a venue's state changed in a transaction
// worth backrunning.
type PoolTouched struct {
	Pool   common.Address
	TxHash common.Hash
}

// Attempt is one sized arbitrage try. Venues are carried by address; the
// executor resolves them through the registry at execution time so it
// always trades against live state.
type Attempt struct {
	ID                 uuid.UUID
	VenueA             common.Address
	VenueB             common.Address
	AmountIn           *big.Int
	ProposerPercentage uint64
}

// Config holds the strategy's construction-time inputs. Records is read
// once during SyncState.
type Config struct {
	Records            io.Reader
	ProposerPercentage uint64
	Logger             Logger
}

// Strategy emits one Attempt per ladder size when a recognized
// concentrated pool is touched, nothing otherwise.
type Strategy struct {
	records            io.Reader
	proposerPercentage uint64
	logger             Logger

	pairsByV3 map[common.Address]PairRecord
}

// New returns an unsynced strategy; call SyncState before processing.
func New(cfg Config) (*Strategy, error) {
	if cfg.Records == nil {
		return nil, fmt.Errorf("config: Records is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("config: Logger is required")
	}
	return &Strategy{
		records:            cfg.Records,
		proposerPercentage: cfg.ProposerPercentage,
		logger:             cfg.Logger,
	}, nil
}

// SyncState loads the pair table into memory. Runs once at startup.
func (s *Strategy) SyncState(_ context.Context) error {
	records, err := LoadRecords(s.records)
	if err != nil {
		return fmt.Errorf("load pair table: %w", err)
	}
	s.pairsByV3 = make(map[common.Address]PairRecord, len(records))
	for _, record := range records {
		s.pairsByV3[record.V3Pool] = record
	}
	s.logger.Info("pair table loaded", "pairs", len(s.pairsByV3))
	return nil
}

// ProcessEvent emits the full size ladder for a touched pool that has a
// known counterpart.
func (s *Strategy) ProcessEvent(_ context.Context, event PoolTouched) []Attempt {
	record, ok := s.pairsByV3[event.Pool]
	if !ok {
		return nil
	}
	s.logger.Info("opportunity matched",
		"v3Pool", event.Pool, "v2Pool", record.V2Pool, "txHash", event.TxHash)

	attempts := make([]Attempt, 0, len(attemptSizes))
	for _, size := range attemptSizes {
		attempts = append(attempts, Attempt{
			ID:                 uuid.New(),
			VenueA:             record.V3Pool,
			VenueB:             record.V2Pool,
			AmountIn:           new(big.Int).Set(size),
			ProposerPercentage: s.proposerPercentage,
		})
	}
	return attempts
}
