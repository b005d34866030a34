package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"campusnews/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelDispatcher_RoutesErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	log := NewWithWriters("debug", &out, &errOut)

	log.Info("Aggregation run started", slog.Int("outlets", 3))
	log.Error("Failed to read registry", slog.String("error", errors.New("boom").Error()))

	assert.Contains(t, out.String(), "INFO")
	assert.Contains(t, out.String(), "Aggregation run started | outlets=3")
	assert.NotContains(t, out.String(), "Failed to read registry")
	assert.Contains(t, errOut.String(), `ERROR`)
	assert.Contains(t, errOut.String(), `error="boom"`)
}

func TestReadableHandler_KeepsWithAttrs(t *testing.T) {
	var out bytes.Buffer
	log := NewWithWriters("info", &out, &out).With(
		slog.String("component", "source"),
		slog.String("op", "FetchOutlet"),
		slog.String("outlet", "LPM Kavling"),
	)

	log.Info("Outlet fetched", slog.Int("count", 4), slog.Duration("duration", 1500*time.Millisecond))

	line := out.String()
	assert.Contains(t, line, "[source] (FetchOutlet)")
	assert.Contains(t, line, "<logger_test.go:")
	assert.Contains(t, line, "Outlet fetched | outlet=LPM Kavling, count=4, took=1.5s")
}

func TestReadableHandler_Groups(t *testing.T) {
	var out bytes.Buffer
	log := NewWithWriters("info", &out, &out).WithGroup("cache").With(slog.Int("size", 10))

	log.Info("Cache saved", slog.Int("count", 2))

	assert.Contains(t, out.String(), "cache.size=10, cache.count=2")
}

func TestReadableHandler_LevelFilter(t *testing.T) {
	var out bytes.Buffer
	log := NewWithWriters("WARN", &out, &out)

	log.Info("hidden")
	log.Debug("hidden too")
	log.Warn("shown")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "WARN")
}

func TestNew_WritesToFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.LoggerConfig{
		Level:     "info",
		File:      filepath.Join(dir, "logs", "campusnews.log"),
		ErrorFile: filepath.Join(dir, "logs", "campusnews_error.log"),
	}

	log, err := New(cfg)
	require.NoError(t, err)
	log.Info("started")
	log.Error("failed")

	data, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "started")
	errData, err := os.ReadFile(cfg.ErrorFile)
	require.NoError(t, err)
	assert.Contains(t, string(errData), "failed")
}

func TestReadableHandler_FormatsDomainAttrs(t *testing.T) {
	var out bytes.Buffer
	log := NewWithWriters("info", &out, &out)
	long := "https://lpmkavling.example.ac.id/wp-json/wp/v2/posts?per_page=100&after=2025-02-01T00:00:00&_embed"

	log.Info("Cache loaded",
		slog.Duration("age", 754*time.Second+300*time.Millisecond),
		slog.String("url", long),
		slog.String("registry", "data/lpms.csv"),
	)

	line := out.String()
	assert.Contains(t, line, "age=12m34s")
	assert.Contains(t, line, "url=https://lpmkavling.example.ac.id/wp-json/wp/v2/posts...")
	assert.NotContains(t, line, "per_page")
	assert.Contains(t, line, "registry=data/lpms.csv")
}
