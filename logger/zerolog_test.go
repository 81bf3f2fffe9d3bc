package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapter_WithField(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	log := NewZerologAdapter(&zl).WithField("step", "css")

	log.Info("transformed 3 files")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "css", entry["step"])
	assert.Equal(t, "transformed 3 files", entry["message"])
}

func TestNew_ConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(Options{Writer: &buf})
	require.NoError(t, err)
	defer closer.Close()

	log.Debug("hidden")
	log.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	verbose, _, err := New(Options{Writer: &buf, Verbose: true})
	require.NoError(t, err)
	verbose.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "assetpipe.log")
	log, closer, err := New(Options{File: path})
	require.NoError(t, err)

	log.Warn("favicon missing")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"level":"warn"`))
}

func TestNullLogger(t *testing.T) {
	log := NewNullLogger()
	assert.NotPanics(t, func() {
		log.WithField("k", "v").Info("nothing")
	})
}
