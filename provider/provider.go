package provider

import "context"

// Provider is a named backend that may be unavailable.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider from its typed configuration.
type Factory[C any, T Provider] func(cfg C) (T, error)

// RequestResponse is a provider answering one input with one output.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Middleware decorates a RequestResponse. The result keeps the name and
// availability of the wrapped provider.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain folds mws into one middleware. The first one is outermost, so
// Chain(a, b)(p) calls a, then b, then p. Nil entries are skipped.
func Chain[I, O any](mws ...Middleware[I, O]) Middleware[I, O] {
	return func(p RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				p = mws[i](p)
			}
		}
		return p
	}
}
