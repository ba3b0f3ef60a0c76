package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	assert.NoError(t, os.Setenv("APP_ENV", "dev"))
	defer func() { assert.NoError(t, os.Unsetenv("APP_ENV")) }()
	l := NewZerologLogger("test")
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestNewWithWriterComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("sim", &buf)
	l.Infof("simulated %d packs", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sim", line["component"])
	assert.Equal(t, "simulated 3 packs", line["message"])
	assert.Equal(t, "info", line["level"])
}

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	require.NoError(t, SetLevel("warn"))
	var buf bytes.Buffer
	l := NewWithWriter("sim", &buf)
	l.Infof("hidden")
	assert.Zero(t, buf.Len())
	l.Warnf("shown")
	assert.Contains(t, buf.String(), "shown")

	assert.Error(t, SetLevel("loud"))
	assert.NoError(t, SetLevel(""))
}

func TestSetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "evpack.log")
	closer, err := SetFile(FileOptions{Path: path, MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)
	NewZerologLogger("store").Warnf("appended %d records", 2)
	require.NoError(t, closer.Close())

	_, err = SetFile(FileOptions{})
	require.NoError(t, err)
	NewZerologLogger("store").Warnf("not in file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "appended 2 records")
	assert.NotContains(t, string(data), "not in file")
	assert.Contains(t, string(data), `"component":"store"`)
}
