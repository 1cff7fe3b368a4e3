// Package feed subscribes to a JSON-RPC stream of pool-touch notifications
// and exposes them as an event source for the engine. The connection is
// re-established with exponential backoff when the server drops it.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/crossarb/crossarb-go/strategy"
)

// Constants for reconnection logic
const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second

	// RpcNamespace is the namespace under which the streamer is registered.
	RpcNamespace                = "mempool"
	PoolTouchSubscriptionMethod = "subscribePoolTouches"

	defaultBufferSize = 256
)

// ErrMalformedMessage is returned when a notification cannot be decoded
// into a pool touch.
var ErrMalformedMessage = errors.New("malformed touch message")

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// TouchMessage is the wire form of a single notification.
type TouchMessage struct {
	Pool   string `json:"pool"`
	TxHash string `json:"txHash"`
}

// Config holds the configuration for the source.
type Config struct {
	URL        string
	Logger     Logger
	BufferSize uint
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("config: URL is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

// Source streams pool touches from a remote JSON-RPC endpoint.
type Source struct {
	url        string
	bufferSize uint
	logger     Logger
}

// NewSource creates a source; no connection is made until EventStream.
func NewSource(cfg Config) (*Source, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = defaultBufferSize
	}
	return &Source{
		url:        cfg.URL,
		bufferSize: cfg.BufferSize,
		logger:     cfg.Logger,
	}, nil
}

// EventStream dials the endpoint in the background and returns the channel
// touches are delivered on. The channel is closed when ctx is canceled.
func (s *Source) EventStream(ctx context.Context) (<-chan strategy.PoolTouched, error) {
	out := make(chan strategy.PoolTouched, s.bufferSize)
	go s.run(ctx, out)
	return out, nil
}

// run handles the networking lifecycle and feeds decoded touches downstream.
func (s *Source) run(ctx context.Context, out chan<- strategy.PoolTouched) {
	defer close(out)
	reconnectDelay := initialReconnectDelay

	for {
		if ctx.Err() != nil {
			s.logger.Info("Feed context canceled, shutting down.")
			return
		}

		s.logger.Info("Attempting to connect to touch feed", "url", s.url)
		rpcClient, err := rpc.DialContext(ctx, s.url)
		if err != nil {
			s.logger.Error("Failed to connect to touch feed, will retry...", "error", err, "delay", reconnectDelay)
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
			continue
		}

		s.logger.Info("Successfully connected to touch feed.")
		reconnectDelay = initialReconnectDelay

		err = s.subscribeAndForward(ctx, rpcClient, out)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Info("Context canceled, shutting down.")
				return
			}
			s.logger.Error("Subscription failed, will reconnect...", "error", err, "delay", reconnectDelay)
			if !sleepCtx(ctx, reconnectDelay) {
				return
			}
			reconnectDelay = min(reconnectDelay*2, maxReconnectDelay)
		}
	}
}

func (s *Source) subscribeAndForward(ctx context.Context, rpcClient *rpc.Client, out chan<- strategy.PoolTouched) error {
	defer rpcClient.Close()

	msgCh := make(chan TouchMessage)
	sub, err := rpcClient.Subscribe(ctx, RpcNamespace, msgCh, PoolTouchSubscriptionMethod)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	s.logger.Info("Successfully subscribed. Waiting for touches...")
	for {
		select {
		case msg := <-msgCh:
			event, err := DecodeTouch(msg)
			if err != nil {
				s.logger.Warn("Discarding message", "error", err, "pool", msg.Pool)
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DecodeTouch converts a wire message into a pool touch.
func DecodeTouch(msg TouchMessage) (strategy.PoolTouched, error) {
	if !common.IsHexAddress(msg.Pool) {
		return strategy.PoolTouched{}, fmt.Errorf("%w: pool %q", ErrMalformedMessage, msg.Pool)
	}
	return strategy.PoolTouched{
		Pool:   common.HexToAddress(msg.Pool),
		TxHash: common.HexToHash(msg.TxHash),
	}, nil
}

// sleepCtx waits for d unless ctx is canceled first; it reports whether the
// full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
