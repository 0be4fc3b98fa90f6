package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapTelemetryRecordsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	telemetry := NewZapTelemetry(zap.New(core))

	ctx := ContextWithActor(context.Background(), "admin@example.com")
	telemetry.Record(ctx, "inventory.catalog.fetch", map[string]any{
		"count": 3,
		"error": errors.New("boom"),
	})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "inventory.catalog.fetch", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "admin@example.com", fields["actor"])
	assert.EqualValues(t, 3, fields["count"])
	assert.Equal(t, "boom", fields["error"])
}

func TestNormalizeTelemetryFallsBackToNoop(t *testing.T) {
	telemetry := normalizeTelemetry(nil)
	telemetry.Record(context.Background(), "ignored", nil)
	assert.IsType(t, noopTelemetry{}, telemetry)
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTelemetry) Record(_ context.Context, event string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTelemetry) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
