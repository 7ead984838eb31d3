package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kmallmaperez/geocore/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New(&config.LogConfig{Level: "warn", Format: format, Service: "geocore-api"})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, l.Core().Enabled(zapcore.ErrorLevel))
	}
}

func TestNew_ServiceAndInstanceFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocore.log")
	l, err := New(&config.LogConfig{
		Level:       "info",
		Format:      "json",
		Service:     "geocore-api",
		Instance:    "api-2",
		OutputPaths: []string{path},
	})
	require.NoError(t, err)
	l.Info("record saved")
	_ = l.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "record saved", entry["msg"])
	assert.Equal(t, "geocore-api", entry["service_name"])
	assert.Equal(t, "api-2", entry["instance"])
	assert.Contains(t, entry, "timestamp")
}

func TestFields_InstanceDefaultsToHostname(t *testing.T) {
	host, err := os.Hostname()
	if err != nil || host == "" {
		t.Skip("no hostname")
	}
	fields := Fields(&config.LogConfig{})
	require.Len(t, fields, 1)
	assert.Equal(t, "instance", fields[0].Key)
	assert.Equal(t, host, fields[0].String)
}
