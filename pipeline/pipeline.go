package pipeline

import "context"

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator and its upstream.
	Close() error
}

// Pipeline represents a lazy, pull-based data pipeline.
// No work happens until values are pulled via Collect, Drain, or ForEach.
type Pipeline[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// Runnable is a fully-configured pipeline ready to execute.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run executes the pipeline until completion or the first error.
func (r *Runnable) Run(ctx context.Context) error {
	return r.run(ctx)
}

// --- Constructors ---

// From creates a pipeline from an existing Iterator.
func From[T any](iter Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] {
			return iter
		},
	}
}

// FromSlice creates a pipeline from a slice of values.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] {
			return &sliceIter[T]{items: items}
		},
	}
}

// FromFunc creates a pipeline from a generator. fn is called once per Next
// and reports exhaustion with ok=false. close, if non-nil, runs on Close.
func FromFunc[T any](fn func(ctx context.Context) (T, bool, error), close func() error) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(_ context.Context) Iterator[T] {
			return &funcIter[T]{next: fn, close: close}
		},
	}
}

// Empty returns an iterator that is exhausted from the start.
func Empty[T any]() Iterator[T] {
	return &sliceIter[T]{}
}

// --- Terminals ---

// Drain creates a Runnable that pulls all values and sends each to sink.
// The iterator is closed when the run ends and its Close error is reported
// when nothing else failed.
func Drain[T any](p *Pipeline[T], sink func(context.Context, T) error) *Runnable {
	return &Runnable{
		run: func(ctx context.Context) (err error) {
			iter := p.create(ctx)
			defer func() {
				if cerr := iter.Close(); err == nil {
					err = cerr
				}
			}()
			for {
				val, ok, err := iter.Next(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if err := sink(ctx, val); err != nil {
					return err
				}
			}
		},
	}
}

// Collect runs the pipeline and returns all values as a slice.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var result []T
	err := ForEach(ctx, p, func(_ context.Context, v T) error {
		result = append(result, v)
		return nil
	})
	return result, err
}

// ForEach pulls all values and calls fn for each. Convenience wrapper around Drain.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T) error) error {
	return Drain(p, fn).Run(ctx)
}

// Iter returns the raw Iterator for this pipeline. The caller must Close() it.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	return p.create(ctx)
}

// --- Internal iterators ---

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type funcIter[T any] struct {
	next  func(ctx context.Context) (T, bool, error)
	close func() error
	done  bool
}

func (it *funcIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if it.done {
		return zero, false, nil
	}
	val, ok, err := it.next(ctx)
	if err != nil || !ok {
		it.done = true
		return zero, false, err
	}
	return val, true, nil
}

func (it *funcIter[T]) Close() error {
	it.done = true
	if it.close != nil {
		c := it.close
		it.close = nil
		return c()
	}
	return nil
}
