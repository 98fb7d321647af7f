package provider

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/orthotile/observability"
)

// WithTracing returns a Middleware that creates a span named
// "{serviceName}.{providerName}" around each Execute call.
func WithTracing[I, O any](serviceName string) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &tracingRR[I, O]{inner: inner, serviceName: serviceName}
	}
}

type tracingRR[I, O any] struct {
	inner       RequestResponse[I, O]
	serviceName string
}

func (t *tracingRR[I, O]) Name() string                         { return t.inner.Name() }
func (t *tracingRR[I, O]) IsAvailable(ctx context.Context) bool { return t.inner.IsAvailable(ctx) }

func (t *tracingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	ctx, span := observability.StartSpan(ctx, t.serviceName+"."+t.inner.Name())
	span.SetAttributes(attribute.String("provider.name", t.inner.Name()))

	output, err := t.inner.Execute(ctx, input)
	observability.EndSpan(span, err)
	return output, err
}
