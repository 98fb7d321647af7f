// Package provider wraps request-response backends with cross-cutting
// behaviour.
//
// A RequestResponse[I, O] takes one input and returns one output. The
// classification capability is one, and every call to it goes through a
// middleware chain:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[In, Out](log),
//	    provider.WithMetrics[In, Out](metrics),
//	    provider.WithTracing[In, Out]("orthotile"),
//	)(backend)
//
// Registry maps backend names to typed factories so the run configuration
// can select one by name.
package provider
