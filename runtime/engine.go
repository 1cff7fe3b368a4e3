// Package runtime is the event-driven plumbing around the atomic core:
// event sources feed strategies, strategies emit actions, executors apply
// them. The engine owns the channels and the goroutines; everything inside
// one action stays synchronous.
package runtime

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

const defaultChannelCapacity = 512

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// EventSource produces the engine's input events. The returned channel must
// be closed when the source is exhausted or the context is canceled.
type EventSource[E any] interface {
	EventStream(ctx context.Context) (<-chan E, error)
}

// Strategy turns events into zero or more actions. SyncState runs once
// before any event is delivered.
type Strategy[E, A any] interface {
	SyncState(ctx context.Context) error
	ProcessEvent(ctx context.Context, event E) []A
}

// Executor applies one action. Errors are reported to the engine's logger
// and do not stop the run; an executor that must halt the engine cancels
// the context instead.
type Executor[A any] interface {
	Execute(ctx context.Context, action A) error
}

// Engine fans events out to every strategy and actions out to every
// executor. It drains to completion: when all sources close their streams
// the pipeline flushes stage by stage and Run returns.
type Engine[E, A any] struct {
	sources    []EventSource[E]
	strategies []Strategy[E, A]
	executors  []Executor[A]

	eventCapacity  int
	actionCapacity int
	logger         Logger
}

// NewEngine returns an engine with default channel capacities.
func NewEngine[E, A any](logger Logger) *Engine[E, A] {
	return &Engine[E, A]{
		eventCapacity:  defaultChannelCapacity,
		actionCapacity: defaultChannelCapacity,
		logger:         logger,
	}
}

// AddEventSource registers a source. Returns the engine for chaining.
func (e *Engine[E, A]) AddEventSource(s EventSource[E]) *Engine[E, A] {
	e.sources = append(e.sources, s)
	return e
}

// AddStrategy registers a strategy. Returns the engine for chaining.
func (e *Engine[E, A]) AddStrategy(s Strategy[E, A]) *Engine[E, A] {
	e.strategies = append(e.strategies, s)
	return e
}

// AddExecutor registers an executor. Returns the engine for chaining.
func (e *Engine[E, A]) AddExecutor(x Executor[A]) *Engine[E, A] {
	e.executors = append(e.executors, x)
	return e
}

// Run syncs every strategy, then drives the pipeline until all sources are
// exhausted or the context is canceled.
func (e *Engine[E, A]) Run(ctx context.Context) error {
	for _, s := range e.strategies {
		if err := s.SyncState(ctx); err != nil {
			return fmt.Errorf("sync strategy state: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	events := make(chan E, e.eventCapacity)
	actions := make(chan A, e.actionCapacity)

	// Sources merge into one event channel, closed when the last source
	// stream is drained.
	var sourceWG sync.WaitGroup
	for _, src := range e.sources {
		stream, err := src.EventStream(ctx)
		if err != nil {
			return fmt.Errorf("start event source: %w", err)
		}
		sourceWG.Add(1)
		g.Go(func() error {
			defer sourceWG.Done()
			e.logger.Info("event source started")
			return forward(ctx, stream, events)
		})
	}
	g.Go(func() error {
		sourceWG.Wait()
		close(events)
		return nil
	})

	// Every strategy sees every event.
	strategyChans := make([]chan E, len(e.strategies))
	for i := range strategyChans {
		strategyChans[i] = make(chan E, e.eventCapacity)
	}
	g.Go(func() error {
		defer func() {
			for _, ch := range strategyChans {
				close(ch)
			}
		}()
		return broadcast(ctx, events, strategyChans)
	})

	var strategyWG sync.WaitGroup
	for i, s := range e.strategies {
		s := s
		in := strategyChans[i]
		strategyWG.Add(1)
		g.Go(func() error {
			defer strategyWG.Done()
			e.logger.Info("strategy started")
			for event := range in {
				for _, action := range s.ProcessEvent(ctx, event) {
					select {
					case actions <- action:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		strategyWG.Wait()
		close(actions)
		return nil
	})

	// Every executor sees every action.
	executorChans := make([]chan A, len(e.executors))
	for i := range executorChans {
		executorChans[i] = make(chan A, e.actionCapacity)
	}
	g.Go(func() error {
		defer func() {
			for _, ch := range executorChans {
				close(ch)
			}
		}()
		return broadcast(ctx, actions, executorChans)
	})

	for i, x := range e.executors {
		x := x
		in := executorChans[i]
		g.Go(func() error {
			e.logger.Info("executor started")
			for action := range in {
				if err := x.Execute(ctx, action); err != nil {
					e.logger.Error("action failed", "error", err)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func forward[T any](ctx context.Context, in <-chan T, out chan<- T) error {
	for v := range in {
		select {
		case out <- v:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func broadcast[T any](ctx context.Context, in <-chan T, outs []chan T) error {
	for v := range in {
		for _, out := range outs {
			select {
			case out <- v:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}
