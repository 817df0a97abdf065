package wishart

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wishart/internal/monitoring"
	"github.com/banshee-data/wishart/internal/polsar"
	"github.com/banshee-data/wishart/internal/testutil"
)

// scaledPool returns clusters centred on scale·m for each scale, each with
// size members.
func scaledPool(cat Category, m polsar.Matrix, size int, scales ...float64) []*Cluster {
	pool := make([]*Cluster, len(scales))
	for i, s := range scales {
		c := clusterAt(m.Scale(s), size)
		c.Category = cat
		c.Index = i
		c.MeanPower = s
		pool[i] = c
	}
	return pool
}

func totalSize(set *clusterSet) int {
	n := 0
	for _, c := range set.all() {
		n += c.Size
	}
	return n
}

func TestClosestPair(t *testing.T) {
	m := testutil.DyadicT3()

	t.Run("three or fewer is never a candidate", func(t *testing.T) {
		c := closestPair(scaledPool(CategoryVolume, m, 1, 1, 1.01, 5), 100)
		assert.True(t, math.IsInf(c.distance, 1))
	})

	t.Run("picks the closest pair", func(t *testing.T) {
		c := closestPair(scaledPool(CategoryVolume, m, 1, 1, 4, 4.1, 9), 100)
		assert.Equal(t, 1, c.i)
		assert.Equal(t, 2, c.j)
		assert.Equal(t, 2, c.size)
	})

	t.Run("size cap excludes large clusters", func(t *testing.T) {
		pool := scaledPool(CategoryVolume, m, 1, 1, 4, 4.1, 9)
		pool[2].Size = 50
		c := closestPair(pool, 50)
		assert.NotEqual(t, 2, c.j)
		assert.NotEqual(t, 2, c.i)

		for _, p := range pool {
			p.Size = 50
		}
		c = closestPair(pool, 50)
		assert.True(t, math.IsInf(c.distance, 1))
	})
}

func TestPickMergeTieBreak(t *testing.T) {
	inf := math.Inf(1)
	tests := []struct {
		name  string
		cands []mergeCandidate
		want  int
		ok    bool
	}{
		{"smallest distance", []mergeCandidate{
			{pool: 0, distance: 3, size: 1}, {pool: 1, distance: 2, size: 9}, {pool: 2, distance: 4, size: 1},
		}, 1, true},
		{"two tied, smaller size", []mergeCandidate{
			{pool: 0, distance: 2, size: 8}, {pool: 1, distance: 2, size: 5}, {pool: 2, distance: 4, size: 1},
		}, 1, true},
		{"three tied, smallest size", []mergeCandidate{
			{pool: 0, distance: 2, size: 8}, {pool: 1, distance: 2, size: 6}, {pool: 2, distance: 2, size: 3},
		}, 2, true},
		{"tie not at the minimum is ignored", []mergeCandidate{
			{pool: 0, distance: 1, size: 9}, {pool: 1, distance: 2, size: 1}, {pool: 2, distance: 2, size: 1},
		}, 0, true},
		{"full tie keeps category order", []mergeCandidate{
			{pool: 0, distance: inf}, {pool: 1, distance: 2, size: 4}, {pool: 2, distance: 2, size: 4},
		}, 1, true},
		{"no candidate", []mergeCandidate{
			{pool: 0, distance: inf}, {pool: 1, distance: inf}, {pool: 2, distance: inf},
		}, -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickMerge(tt.cands)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.pool)
		})
	}
}

func TestMergeClustersWeightsBySize(t *testing.T) {
	a := clusterAt(polsar.Diagonal(1, 1, 1), 3)
	a.MeanPower = 1
	b := clusterAt(polsar.Diagonal(5, 5, 5), 1)
	b.MeanPower = 5

	c := mergeClusters(a, b)
	assert.Equal(t, 4, c.Size)
	assert.InDelta(t, 2, c.Center.Re[0][0], 1e-12)
	assert.InDelta(t, 2, c.MeanPower, 1e-12)
	assert.InDelta(t, math.Log(8), c.LogDet, 1e-12)
	assert.True(t, c.Comparable())
}

func newReduceRun(t *testing.T, w, h int) *run {
	t.Helper()
	cfg := DefaultConfig(KindFreemanDurden)
	cfg.TileSize = 4
	return newRun(cfg, testutil.UniformRaster(t, w, h, testutil.Surface))
}

func TestReducePreservesMass(t *testing.T) {
	quietLogs(t)
	m := testutil.DyadicT3()
	r := newReduceRun(t, 10, 10)

	set := newClusterSet(freemanCategories...)
	set.pools[0] = scaledPool(CategoryVolume, m, 10, 1, 1.5, 2, 3, 5)
	set.pools[2] = scaledPool(CategorySurface, m, 10, 1, 1.2, 4, 8)
	// Two pixels per initial volume cluster.
	for k := 0; k < 5; k++ {
		for _, i := range []int{2 * k, 2*k + 1} {
			r.assign.Category[i] = CategoryVolume
			r.assign.Cluster[i] = int32(k)
		}
	}
	before := totalSize(set)

	require.NoError(t, reduceClusters(context.Background(), r, set, 7))
	assert.Equal(t, 7, set.total())
	assert.Equal(t, before, totalSize(set))

	for p, pool := range set.pools {
		for i, c := range pool {
			assert.Equal(t, i, c.Index, "pool %d renumbered", p)
		}
	}
	// Every remapped assignment points at a live volume cluster and the two
	// pixels of one initial cluster still agree.
	for k := 0; k < 5; k++ {
		a, b := r.assign.Cluster[2*k], r.assign.Cluster[2*k+1]
		assert.Equal(t, a, b)
		assert.GreaterOrEqual(t, int(a), 0)
		assert.Less(t, int(a), len(set.pools[0]))
	}
}

func TestReduceStopsWithoutCandidate(t *testing.T) {
	quietLogs(t)
	var logged []string
	monitoring.SetLogger(func(format string, _ ...interface{}) { logged = append(logged, format) })

	m := testutil.DyadicT3()
	r := newReduceRun(t, 10, 10)
	set := newClusterSet(freemanCategories...)
	set.pools[0] = scaledPool(CategoryVolume, m, 10, 1, 1.5, 2, 3, 5)
	set.pools[2] = scaledPool(CategorySurface, m, 10, 1, 1.2, 4, 8)
	before := totalSize(set)

	// Both categories bottom out at three clusters, above the target.
	require.NoError(t, reduceClusters(context.Background(), r, set, 5))
	assert.Equal(t, 6, set.total())
	assert.Len(t, set.pools[0], 3)
	assert.Len(t, set.pools[2], 3)
	assert.Equal(t, before, totalSize(set))
	assert.Contains(t, logged, "wishart: no merge candidate left at %d clusters (target %d)")
}

func TestReduceHonoursCancellation(t *testing.T) {
	quietLogs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newReduceRun(t, 10, 10)
	set := newClusterSet(freemanCategories...)
	set.pools[0] = scaledPool(CategoryVolume, testutil.DyadicT3(), 10, 1, 2, 3, 4, 5)
	err := reduceClusters(ctx, r, set, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
