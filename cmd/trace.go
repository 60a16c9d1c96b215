// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// logExporter writes finished spans to a logger at trace level.
type logExporter struct {
	log logrus.FieldLogger
}

var _ sdktrace.SpanExporter = (*logExporter)(nil)

func (e *logExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		fields := logrus.Fields{
			"span":     s.Name(),
			"duration": s.EndTime().Sub(s.StartTime()).String(),
		}
		for _, kv := range s.Attributes() {
			fields[string(kv.Key)] = kv.Value.Emit()
		}
		if p := s.Parent(); p.IsValid() {
			fields["parent"] = p.SpanID().String()
		}
		e.log.WithFields(fields).Trace("span end")
	}
	return nil
}

func (e *logExporter) Shutdown(context.Context) error { return nil }

// setupTracing installs a global tracer provider which logs every span of
// the analyzer, and returns its shutdown function.
func setupTracing(_ context.Context, log logrus.FieldLogger) func(context.Context) error {
	res := resource.NewWithAttributes(semconv.SchemaURL,
		semconv.ServiceName("phpsema"),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(&logExporter{log: log}),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
