package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tilsley/quill/apps/editor/internal/platform/telemetry"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := telemetry.New(context.Background(), telemetry.Options{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tel.Shutdown)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_Enabled_ShutsDownCleanly(t *testing.T) {
	// Exporters connect lazily, so no collector is needed to build them.
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://127.0.0.1:1")

	tel, err := telemetry.New(context.Background(), telemetry.Options{Enabled: true, Version: "test"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Flushing against a dead collector may fail; it must not hang.
	_ = tel.Shutdown(ctx)
}
