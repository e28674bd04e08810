// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tracing wraps an OpenTelemetry TracerProvider so the scheduler
// can open one span per process run without depending on otel directly.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Provider implements internal/scheduler.Tracer on top of an OpenTelemetry
// TracerProvider.
type Provider struct {
	tracer trace.Tracer
}

// New builds a Provider with a resource tagged as the tuttle service. It
// takes span processor options so the caller can wire in an exporter (or
// none, for a no-op provider suitable for tests).
func New(opts ...sdktrace.TracerProviderOption) (*Provider, *sdktrace.TracerProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", semconv.ServiceName("tuttle")),
	)
	if err != nil {
		return nil, nil, err
	}

	allOpts := append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)
	tp := sdktrace.NewTracerProvider(allOpts...)

	return &Provider{tracer: tp.Tracer("tuttle/scheduler")}, tp, nil
}

// StartProcessSpan opens a "process.run" span carrying the process ID as
// the tuttle.process.id attribute and returns a function that ends it,
// recording the run's outcome as the span status.
func (p *Provider) StartProcessSpan(ctx context.Context, processID string) (context.Context, func(success bool)) {
	spanCtx, span := p.tracer.Start(ctx, "process.run", trace.WithAttributes(
		attribute.String("tuttle.process.id", processID),
	))
	return spanCtx, func(success bool) {
		if success {
			span.SetStatus(codes.Ok, "")
		} else {
			span.SetStatus(codes.Error, "process failed")
		}
		span.End()
	}
}
