package observability

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
)

func TestInitializeWithoutTraceFile(t *testing.T) {
	shutdown, err := Initialize(Config{})
	require.NoError(t, err)

	_, span := StartTask(context.Background(), "a.csv", "sqlite")
	span.End(nil)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSpansWrittenToTraceFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceFile = filepath.Join(t.TempDir(), "trace.json")

	shutdown, err := Initialize(cfg)
	require.NoError(t, err)

	_, ok := StartTask(context.Background(), "ok.csv", "postgres")
	ok.SetAttribute("ingest.rows", int64(3))
	ok.End(nil)

	_, bad := StartTask(context.Background(), "bad.json", "postgres")
	elapsed := bad.End(errors.New(errors.ErrorTypeDatabase, "relation missing"))
	assert.GreaterOrEqual(t, elapsed.Nanoseconds(), int64(0))

	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(cfg.TraceFile)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "ingest.task")
	assert.Contains(t, out, "ok.csv")
	assert.Contains(t, out, "bad.json")
	assert.Contains(t, out, "relation missing")
	assert.Contains(t, out, "nebula-ingest")
}

func TestInitializeBadTraceFile(t *testing.T) {
	_, err := Initialize(Config{TraceFile: filepath.Join(t.TempDir(), "missing", "trace.json")})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}
