package migration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewFromPath_MissingDirectory(t *testing.T) {
	m, err := NewFromPath(nil, filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, m)
}

func TestMigrateLog(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	l := migrateLog{logger: zap.New(core)}

	assert.True(t, l.Verbose())
	l.Printf("Read and execute %d/u %s\n", 3, "create_sync_audit_logs")

	entries := recorded.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "Read and execute 3/u create_sync_audit_logs", entries[0].Message)
	}

	quiet := migrateLog{logger: zap.New(core).WithOptions(zap.IncreaseLevel(zapcore.InfoLevel))}
	assert.False(t, quiet.Verbose())
}
