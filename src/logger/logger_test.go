package logger_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketsim/src/config"
	"marketsim/src/logger"
)

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New("json", &buf)

	log.Info().Str("scenario", "noise-mm").Msg("done")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "noise-mm", line["scenario"])
	assert.Equal(t, "done", line["message"])
	assert.Contains(t, line, "time")
}

func TestNewPretty(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New("pretty", &buf)

	log.Warn().Msg("crossed")

	assert.Contains(t, buf.String(), "WRN")
	assert.Contains(t, buf.String(), "crossed")
}

func TestInitLoggerWritesFile(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	path := filepath.Join(t.TempDir(), "sim.log")
	logger.InitLogger(config.LoggerConfig{Level: "warn", File: path, Format: "json"})

	l := logger.GetLogger()
	l.Info().Msg("filtered")
	l.Warn().Msg("kept")
	logger.CloseLogger()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "filtered")
	assert.Contains(t, string(data), "kept")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
