package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"

	"github.com/kbukum/orthotile/errors"
)

// Stage is one link of a Chain. C is the per-session context handed to
// Setup; T is the element type flowing through the chain.
//
// Produce must not do any work until the returned iterator is pulled, and
// must close upstream when its own iterator is closed. Wrapping upstream with
// From and the operators of this package does both.
type Stage[C, T any] interface {
	Name() string
	Setup(ctx context.Context, c C) error
	Produce(ctx context.Context, upstream Iterator[T]) Iterator[T]
	Cleanup() error
}

// StageFuncs builds a Stage from functions. A nil SetupFn or CleanupFn is a
// no-op; a nil ProduceFn passes upstream through unchanged.
type StageFuncs[C, T any] struct {
	StageName string
	SetupFn   func(ctx context.Context, c C) error
	ProduceFn func(ctx context.Context, upstream Iterator[T]) Iterator[T]
	CleanupFn func() error
}

func (s *StageFuncs[C, T]) Name() string { return s.StageName }

func (s *StageFuncs[C, T]) Setup(ctx context.Context, c C) error {
	if s.SetupFn == nil {
		return nil
	}
	return s.SetupFn(ctx, c)
}

func (s *StageFuncs[C, T]) Produce(ctx context.Context, upstream Iterator[T]) Iterator[T] {
	if s.ProduceFn == nil {
		return upstream
	}
	return s.ProduceFn(ctx, upstream)
}

func (s *StageFuncs[C, T]) Cleanup() error {
	if s.CleanupFn == nil {
		return nil
	}
	return s.CleanupFn()
}

// Chain composes stages left to right. The first stage receives an empty
// upstream.
type Chain[C, T any] struct {
	stages []Stage[C, T]
}

// NewChain builds a chain from stages. Nil stages are skipped, so a disabled
// stage can be passed as nil and its upstream flows through unchanged.
func NewChain[C, T any](stages ...Stage[C, T]) *Chain[C, T] {
	kept := make([]Stage[C, T], 0, len(stages))
	for _, s := range stages {
		if isNilStage(s) {
			continue
		}
		kept = append(kept, s)
	}
	return &Chain[C, T]{stages: kept}
}

// Stages returns the stages of the chain in order.
func (c *Chain[C, T]) Stages() []Stage[C, T] {
	out := make([]Stage[C, T], len(c.stages))
	copy(out, c.stages)
	return out
}

// Open runs every stage's Setup in order and wires their iterators. If a
// Setup fails, every stage whose Setup was called, the failing one included,
// is cleaned up in reverse order and the setup error is returned joined with
// any cleanup errors.
//
// The returned iterator must be closed. Close releases the iterator cascade
// and then calls Cleanup on every stage exactly once, last stage first.
func (c *Chain[C, T]) Open(ctx context.Context, sc C) (Iterator[T], error) {
	for i, s := range c.stages {
		if err := s.Setup(ctx, sc); err != nil {
			err = fmt.Errorf("setup %s: %w", s.Name(), err)
			return nil, stderrors.Join(err, cleanupReverse(c.stages[:i+1]))
		}
	}

	var it Iterator[T] = Empty[T]()
	for _, s := range c.stages {
		it = s.Produce(ctx, it)
	}
	return &chainIter[C, T]{inner: it, stages: c.stages}, nil
}

// Run opens the chain, passes every element to sink and closes the chain.
// Cleanup errors are joined with the iteration error.
func (c *Chain[C, T]) Run(ctx context.Context, sc C, sink func(context.Context, T) error) error {
	it, err := c.Open(ctx, sc)
	if err != nil {
		return err
	}
	runErr := drainIter(ctx, it, sink)
	return stderrors.Join(runErr, it.Close())
}

func drainIter[T any](ctx context.Context, it Iterator[T], sink func(context.Context, T) error) error {
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if sink == nil {
			continue
		}
		if err := sink(ctx, v); err != nil {
			return err
		}
	}
}

type chainIter[C, T any] struct {
	inner  Iterator[T]
	stages []Stage[C, T]
	closed bool
	done   bool
}

func (it *chainIter[C, T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if it.closed || it.done {
		return zero, false, nil
	}
	if err := ctx.Err(); err != nil {
		it.done = true
		return zero, false, errors.Canceled(err)
	}
	v, ok, err := it.inner.Next(ctx)
	if err != nil || !ok {
		it.done = true
		return zero, false, err
	}
	return v, true, nil
}

func (it *chainIter[C, T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	closeErr := it.inner.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close: %w", closeErr)
	}
	return stderrors.Join(closeErr, cleanupReverse(it.stages))
}

func cleanupReverse[C, T any](stages []Stage[C, T]) error {
	var errs []error
	for i := len(stages) - 1; i >= 0; i-- {
		if err := stages[i].Cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("cleanup %s: %w", stages[i].Name(), err))
		}
	}
	return stderrors.Join(errs...)
}

// isNilStage reports whether s is nil or a typed nil pointer wrapped in the
// interface.
func isNilStage[C, T any](s Stage[C, T]) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
