package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, samplerFor(0.25).Description(), "ParentBased")
}

func TestFlushAndStop(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	var deadlineSet bool
	err := flushAndStop(context.Background(), "meter", log, func(ctx context.Context) error {
		_, deadlineSet = ctx.Deadline()
		return nil
	})
	require.NoError(t, err)
	assert.True(t, deadlineSet)

	boom := errors.New("exporter unreachable")
	err = flushAndStop(context.Background(), "tracer", log, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "shutdown tracer provider")

	failures := recorded.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, failures, 1)
	assert.Equal(t, "tracer", failures[0].ContextMap()["provider"])
}

func TestNewResource(t *testing.T) {
	res, err := newResource("inventory-test")
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "inventory-test", attrs["service.name"])
	assert.Equal(t, ServiceVersion, attrs["service.version"])
}
