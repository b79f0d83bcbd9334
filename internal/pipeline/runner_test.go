package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/json"
)

func failingFactory(context.Context, *config.IngestorConfig) (core.Adapter, error) {
	return nil, errors.New(errors.ErrorTypeConnection, "connection refused")
}

func writeFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644))
	}
	return dir
}

func TestRunnerStrictConstructionFailure(t *testing.T) {
	dir := writeFiles(t, "a.txt", "b.txt")
	reportPath := filepath.Join(t.TempDir(), "ingestion_report.json")

	r := &Runner{
		Run: config.RunConfig{
			Destination: "fake",
			Path:        dir,
			Strict:      true,
			Report:      true,
			ReportPath:  reportPath,
		},
		Ingestor: &config.IngestorConfig{DatabaseURL: "fake://"},
		Create:   failingFactory,
	}

	rep, err := r.Execute(context.Background())
	assert.ErrorIs(t, err, ErrStrictHalt)
	assert.Zero(t, rep.SuccessCount)
	assert.Equal(t, 1, rep.FailureCount)
	assert.Contains(t, rep.Errors[0].Error, "initialization failed")

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var saved Report
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, rep, saved)
}

func TestRunnerConstructionFailureNotFatal(t *testing.T) {
	r := &Runner{
		Run:      config.RunConfig{Destination: "fake", Path: writeFiles(t, "a.txt")},
		Ingestor: &config.IngestorConfig{DatabaseURL: "fake://"},
		Create:   failingFactory,
	}

	rep, err := r.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.FailureCount)
}

func TestRunnerDirectory(t *testing.T) {
	dir := writeFiles(t, "a.txt", "fail.txt", "c.txt")
	adapter := &fakeAdapter{}
	metricsFile := filepath.Join(t.TempDir(), "ingest.prom")

	r := &Runner{
		Run: config.RunConfig{
			Destination: "fake",
			Path:        dir,
			Concurrency: 2,
			MetricsFile: metricsFile,
		},
		Ingestor: &config.IngestorConfig{DatabaseURL: "fake://"},
		Reader:   pathReader{},
		Create: func(context.Context, *config.IngestorConfig) (core.Adapter, error) {
			return adapter, nil
		},
	}

	rep, err := r.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rep.TotalFiles)
	assert.Equal(t, 2, rep.SuccessCount)
	assert.Equal(t, 1, rep.FailureCount)
	assert.True(t, adapter.closed)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "ingest_units_total")
}

func TestRunnerMissingPath(t *testing.T) {
	r := &Runner{
		Run:      config.RunConfig{Destination: "fake", Path: filepath.Join(t.TempDir(), "nope")},
		Ingestor: &config.IngestorConfig{DatabaseURL: "fake://"},
		Create: func(context.Context, *config.IngestorConfig) (core.Adapter, error) {
			return &fakeAdapter{}, nil
		},
	}

	rep, err := r.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.FailureCount)
}

func TestRunnerValidatesRunConfig(t *testing.T) {
	_, err := (&Runner{Ingestor: &config.IngestorConfig{DatabaseURL: "x"}}).Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
