package pipeline

import "context"

// Batch groups consecutive values into slices of size elements. The final
// batch holds whatever remains and may be shorter. A size below 1 is
// treated as 1.
//
// When the source fails after a partial batch has been collected, the
// partial batch is emitted first and the error is returned by the following
// Next call.
func Batch[T any](p *Pipeline[T], size int) *Pipeline[[]T] {
	if size < 1 {
		size = 1
	}
	return &Pipeline[[]T]{
		create: func(ctx context.Context) Iterator[[]T] {
			return &batchIter[T]{source: p.create(ctx), size: size}
		},
	}
}

type batchIter[T any] struct {
	source  Iterator[T]
	size    int
	pending error
	done    bool
}

func (it *batchIter[T]) Next(ctx context.Context) ([]T, bool, error) {
	if it.pending != nil {
		err := it.pending
		it.pending = nil
		it.done = true
		return nil, false, err
	}
	if it.done {
		return nil, false, nil
	}

	batch := make([]T, 0, it.size)
	for len(batch) < it.size {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			if len(batch) > 0 {
				it.pending = err
				return batch, true, nil
			}
			it.done = true
			return nil, false, err
		}
		if !ok {
			it.done = true
			if len(batch) > 0 {
				return batch, true, nil
			}
			return nil, false, nil
		}
		batch = append(batch, val)
	}
	return batch, true, nil
}

func (it *batchIter[T]) Close() error { return it.source.Close() }
