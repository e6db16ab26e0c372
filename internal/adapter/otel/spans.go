package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Lambertain/ai-agent-factory-sub002/internal/domain/agent"
)

const tracerName = "factory"

// StartRunSpan starts a span covering one content run end to end.
func StartRunSpan(ctx context.Context, runID, domain string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "run.execute",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.domain", domain),
		),
	)
}

// StartPhaseSpan starts a span for one plan phase.
func StartPhaseSpan(ctx context.Context, runID string, phase int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "phase.execute",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("phase.index", phase),
		),
	)
}

// StartUnitSpan starts a span for one agent invocation unit.
func StartUnitSpan(ctx context.Context, unitID string, kind agent.Kind) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "unit.invoke",
		trace.WithAttributes(
			attribute.String("unit.id", unitID),
			attribute.String("unit.agent_kind", string(kind)),
		),
	)
}
