// Package telemetry records discovery and invocation signals into OpenTelemetry.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "toolbridge"

// Observer records discovery and tool invocation metrics and spans. A nil
// Observer is valid and records nothing.
type Observer struct {
	tracer trace.Tracer

	servers     metric.Int64Counter
	tools       metric.Int64Counter
	invocations metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewObserver creates an observer bound to the provided meter/tracer.
func NewObserver(meter metric.Meter, tracer trace.Tracer) (*Observer, error) {
	servers, err := meter.Int64Counter(
		"toolbridge.discovery.servers",
		metric.WithDescription("Number of server discoveries"),
	)
	if err != nil {
		return nil, err
	}
	tools, err := meter.Int64Counter(
		"toolbridge.discovery.tools",
		metric.WithDescription("Number of tools discovered"),
	)
	if err != nil {
		return nil, err
	}
	invocations, err := meter.Int64Counter(
		"toolbridge.tool.invocations",
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"toolbridge.tool.latency",
		metric.WithDescription("Tool invocation latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Observer{
		tracer:      tracer,
		servers:     servers,
		tools:       tools,
		invocations: invocations,
		latency:     latency,
	}, nil
}

// NewGlobalObserver binds to the globally installed providers.
func NewGlobalObserver() (*Observer, error) {
	return NewObserver(otel.Meter(instrumentationName), otel.Tracer(instrumentationName))
}

// StartDiscovery opens a discovery span for server. The returned func must be
// called once with the number of tools found and the failure, if any.
func (o *Observer) StartDiscovery(ctx context.Context, server string) (context.Context, func(tools int, err error)) {
	if o == nil {
		return ctx, func(int, error) {}
	}

	serverAttr := attribute.String("server", server)
	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "discovery.server", trace.WithAttributes(serverAttr))
	}

	return ctx, func(tools int, err error) {
		attrs := []attribute.KeyValue{serverAttr, attribute.Bool("success", err == nil)}
		bg := context.Background()
		o.servers.Add(bg, 1, metric.WithAttributes(attrs...))
		if tools > 0 {
			o.tools.Add(bg, int64(tools), metric.WithAttributes(serverAttr))
		}

		if span == nil {
			return
		}
		span.SetAttributes(attribute.Int("tools", tools))
		endSpan(span, err)
	}
}

// StartInvocation opens a tool.invoke span. The returned func must be called
// once when the call finishes.
func (o *Observer) StartInvocation(ctx context.Context, tool, server, callID string) (context.Context, func(err error)) {
	if o == nil {
		return ctx, func(error) {}
	}

	start := time.Now()
	base := []attribute.KeyValue{
		attribute.String("tool", tool),
		attribute.String("server", server),
	}
	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "tool.invoke",
			trace.WithAttributes(append(base, attribute.String("call_id", callID))...))
	}

	return ctx, func(err error) {
		attrs := append(base, attribute.Bool("success", err == nil))
		options := metric.WithAttributes(attrs...)
		bg := context.Background()
		o.invocations.Add(bg, 1, options)
		o.latency.Record(bg, time.Since(start).Seconds(), options)

		if span != nil {
			endSpan(span, err)
		}
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
