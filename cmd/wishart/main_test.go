package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wishart/internal/db"
	"github.com/banshee-data/wishart/internal/fsutil"
	"github.com/banshee-data/wishart/internal/monitoring"
	"github.com/banshee-data/wishart/internal/polsarpro"
	"github.com/banshee-data/wishart/internal/report"
	"github.com/banshee-data/wishart/internal/testutil"
	"github.com/banshee-data/wishart/internal/timeutil"
)

func quiet(t *testing.T) {
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

func sceneFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	src, _ := testutil.StripedRaster(t, 8, 8, testutil.Surface, testutil.Double)
	require.NoError(t, polsarpro.WriteDir(fsys, "scene/T3", src))
	return fsys
}

func TestRunHAlpha(t *testing.T) {
	quiet(t)
	fsys := sceneFS(t)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	prev := clock
	clock = timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	defer func() { clock = prev }()

	err := run(context.Background(), fsys, options{
		In:         "scene/T3",
		Classifier: "h-alpha",
		Window:     1,
		DBPath:     dbPath,
		Plots:      true,
	})
	require.NoError(t, err)

	out := filepath.Join("scene", "T3", "wishart")
	for _, name := range []string{polsarpro.ClassFile, "config.txt", "legend.json", "wishart_class.png", "class_map.png", "class_sizes.png", "legend.html"} {
		assert.True(t, fsys.Exists(filepath.Join(out, name)), name)
	}

	classes, err := polsarpro.ReadClassRaster(fsys, filepath.Join(out, polsarpro.ClassFile), 8, 8)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), classes[0])
	assert.Equal(t, uint16(1), classes[63])

	data, err := fsys.ReadFile(filepath.Join(out, "legend.json"))
	require.NoError(t, err)
	var legend report.Legend
	require.NoError(t, json.Unmarshal(data, &legend))
	assert.Equal(t, "h-alpha", legend.Classifier)
	assert.Len(t, legend.Classes, 2)

	database, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer database.Close()
	runs, err := db.NewRunStore(database).ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "scene/T3", runs[0].SourcePath)
	assert.Equal(t, 2, runs[0].NumClasses)
	assert.Contains(t, string(runs[0].ConfigJSON), `"classifier":"h-alpha"`)
	assert.Zero(t, runs[0].DurationMs, "mock clock never advances")
}

func TestRunWithConfigFile(t *testing.T) {
	quiet(t)
	fsys := sceneFS(t)
	cfgPath := filepath.Join(t.TempDir(), "fd.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"classifier":"fd","num_initial_classes":6,"num_final_classes":2,"window_size":3,"tile_size":4}`), 0644))

	require.NoError(t, run(context.Background(), fsys, options{In: "scene/T3", Out: "result", ConfigPath: cfgPath}))
	assert.True(t, fsys.Exists("result/legend.json"))
	assert.False(t, fsys.Exists("result/legend.html"), "plots are opt-in")
}

func TestRunRejectsBadInput(t *testing.T) {
	quiet(t)
	fsys := sceneFS(t)

	err := run(context.Background(), fsys, options{In: "scene/T3", Classifier: "k-means"})
	assert.ErrorContains(t, err, "unknown classifier")

	err = run(context.Background(), fsys, options{In: "scene/T3", Window: 4})
	assert.ErrorContains(t, err, "window_size")

	err = run(context.Background(), fsys, options{In: "missing"})
	assert.Error(t, err)

	err = run(context.Background(), fsys, options{In: "scene/T3", Classifier: "h-alpha-dual", Window: 1})
	assert.ErrorContains(t, err, "order")
}
