// Package tracing wires up OpenTelemetry tracing for the proxy data
// path. It is grounded directly on cmd/gateway/main.go's initTracer from
// the air-blackbox-gateway example: tracing is entirely optional, off by
// default, and enabled only when an OTLP gRPC endpoint is configured —
// there is no separate on/off flag, the endpoint's presence is the flag.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "replayr"
	serviceVersion = "0.1.0"
)

// Init builds a TracerProvider backed by an OTLP gRPC exporter at
// endpoint. An empty endpoint returns a nil provider and a no-op tracer —
// every span created through that tracer is a harmless no-op, so callers
// never need a nil check before starting a span.
func Init(ctx context.Context, endpoint string) (*sdktrace.TracerProvider, trace.Tracer, error) {
	if endpoint == "" {
		return nil, trace.NewNoopTracerProvider().Tracer(serviceName), nil
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: dial %s: %w", endpoint, err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: build exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp, tp.Tracer(serviceName), nil
}
