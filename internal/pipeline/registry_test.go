package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-ingest/pkg/json"
)

func TestRegistryCounts(t *testing.T) {
	r := NewRegistry(false, "")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				assert.NoError(t, r.RecordError("f", "boom"))
				return
			}
			r.RecordSuccess()
		}(i)
	}
	wg.Wait()

	rep := r.Snapshot()
	assert.Equal(t, 50, rep.TotalFiles)
	assert.Equal(t, 40, rep.SuccessCount)
	assert.Equal(t, 10, rep.FailureCount)
	assert.Len(t, rep.Errors, 10)
	assert.Equal(t, rep.TotalFiles, rep.SuccessCount+rep.FailureCount)
	assert.True(t, r.Failed())
}

func TestRegistryStrict(t *testing.T) {
	r := NewRegistry(true, "")
	r.RecordSuccess()
	assert.False(t, r.Failed())
	assert.ErrorIs(t, r.RecordError("a.csv", "bad"), ErrStrictHalt)
}

func TestSnapshotIsCopy(t *testing.T) {
	r := NewRegistry(false, "")
	require.NoError(t, r.RecordError("a", "x"))
	rep := r.Snapshot()
	rep.Errors[0].Path = "changed"
	assert.Equal(t, "a", r.Snapshot().Errors[0].Path)
}

func TestSaveReport(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		dir := t.TempDir()
		r := NewRegistry(false, "")
		require.NoError(t, r.SaveReport())
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("enabled", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ingestion_report.json")
		r := NewRegistry(false, path)
		r.RecordSuccess()
		require.NoError(t, r.RecordError("b.json", "invalid JSON"))
		require.NoError(t, r.SaveReport())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, float64(2), doc["total_files"])
		assert.Equal(t, float64(1), doc["success_count"])
		assert.Equal(t, float64(1), doc["failure_count"])
		assert.Equal(t, []any{map[string]any{"path": "b.json", "error": "invalid JSON"}}, doc["errors"])
	})

	t.Run("empty errors array", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "r.json")
		r := NewRegistry(false, path)
		require.NoError(t, r.SaveReport())
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"errors":[]`)
	})
}
