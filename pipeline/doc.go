// Package pipeline provides the lazy, pull-based processing substrate of
// orthotile.
//
// A Pipeline is a factory of Iterators. No work happens until a consumer
// pulls: each Next call pulls exactly as much from upstream as it needs to
// produce one value, so at most one tile is in flight outside of the batch
// currently being formed. Everything runs on the caller's goroutine.
//
// # Operators
//
//   - Map: transform each value
//   - Filter: keep values matching a predicate
//   - Tap: side-effect without altering the value
//   - Batch: group values into slices of a fixed size; the last may be short
//
// # Stages
//
// A Stage has a per-session lifecycle around its iterator: Setup acquires
// resources for one session, Produce wraps the upstream iterator, Cleanup
// releases what Setup acquired. A Chain composes stages left to right and
// guarantees that every stage whose Setup ran is cleaned up exactly once,
// in reverse order, whatever happens in between.
//
//	chain := pipeline.NewChain[session.Session, *tiling.Batch](extractor, classifier, sink)
//	err := chain.Run(ctx, sess, func(ctx context.Context, b *tiling.Batch) error {
//	    progress.Add(b.Len())
//	    return nil
//	})
package pipeline
