package workspace

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrName = "github.com/tilsley/quill"

type metrics struct {
	operations metric.Int64Counter
	commits    metric.Int64Counter
}

func newMetrics() metrics {
	m := otel.Meter(instrName)

	operations, _ := m.Int64Counter("quill.controller.operations",
		metric.WithDescription("Controller operations by name and outcome"))
	commits, _ := m.Int64Counter("quill.commits",
		metric.WithDescription("Commits written to the remote repository"))

	return metrics{operations: operations, commits: commits}
}

func (m metrics) record(ctx context.Context, op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrSuperseded):
		outcome = "superseded"
	default:
		outcome = "error"
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

func (m metrics) commit(ctx context.Context, kind string) {
	m.commits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
