package wishart

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/wishart/internal/monitoring"
	"github.com/banshee-data/wishart/internal/polsar"
	"github.com/banshee-data/wishart/internal/testutil"
	"github.com/banshee-data/wishart/internal/tiling"
)

func quietLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

func testConfig(kind Kind) Config {
	cfg := DefaultConfig(kind)
	cfg.TileSize = 2
	cfg.Workers = 4
	return cfg
}

func classify(t *testing.T, cfg Config, src polsar.Source) *Result {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	res, err := c.Classify(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, StateColorized, c.State())
	return res
}

func TestUniformRasterConvergesInOnePass(t *testing.T) {
	quietLogs(t)
	tests := []struct {
		name string
		kind Kind
		m    polsar.Matrix
	}{
		{"h-alpha", KindHAlpha, testutil.DyadicT3()},
		{"h-alpha dual-pol", KindHAlphaDualPol, polsar.Diagonal(2, 0.5)},
		{"freeman-durden", KindFreemanDurden, testutil.Surface},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testutil.UniformRaster(t, 4, 4, tt.m)
			res := classify(t, testConfig(tt.kind), src)

			require.Len(t, res.Clusters, 1)
			assert.Equal(t, tt.m, res.Clusters[0].Center)
			assert.Equal(t, 16, res.Clusters[0].Size)

			require.Len(t, res.Passes, 1)
			assert.Zero(t, res.Passes[0].Drift)
			assert.Zero(t, res.Passes[0].Changed)
			assert.True(t, res.Converged)

			for i, c := range res.Classes {
				assert.Equal(t, uint16(1), c, "pixel %d", i)
			}
			assert.Equal(t, 1, res.NumClasses())
		})
	}
}

func TestTwoClusterScene(t *testing.T) {
	quietLogs(t)
	src, labels := testutil.StripedRaster(t, 8, 8, testutil.Surface, testutil.Double)

	t.Run("h-alpha", func(t *testing.T) {
		res := classify(t, testConfig(KindHAlpha), src)
		assert.Equal(t, 1.0, testutil.Agreement(res.Classes, labels))
		require.Equal(t, 2, res.NumClasses())
		for _, e := range res.Legend {
			assert.Equal(t, 32, e.Size)
		}
		// Equal spans fall back to zone order.
		assert.Equal(t, map[uint16]string{1: "zone7", 2: "zone9"}, res.Labels())
		assert.Equal(t, uint16(2), res.Class(0, 0))
		assert.Equal(t, uint16(1), res.Class(7, 7))
	})

	t.Run("freeman-durden", func(t *testing.T) {
		cfg := testConfig(KindFreemanDurden)
		cfg.NumInitialClasses = 6
		cfg.NumFinalClasses = 2
		res := classify(t, cfg, src)
		assert.Equal(t, 1.0, testutil.Agreement(res.Classes, labels))
		assert.Equal(t, map[uint16]string{1: "dbl_1", 2: "surf_1"}, res.Labels())
		for _, e := range res.Legend {
			assert.Equal(t, 32, e.Size)
		}
		assert.InDelta(t, 7.5, res.Legend[0].MeanPower, 1e-6)
		assert.InDelta(t, 7.0, res.Legend[1].MeanPower, 1e-6)

		cat, _ := res.Assignment.At(0, 0)
		assert.Equal(t, CategorySurface, cat)
		cat, _ = res.Assignment.At(7, 0)
		assert.Equal(t, CategoryDouble, cat)
	})
}

func TestNoDataPropagation(t *testing.T) {
	quietLogs(t)
	for _, kind := range []Kind{KindHAlpha, KindFreemanDurden} {
		t.Run(kind.String(), func(t *testing.T) {
			src, _ := testutil.StripedRaster(t, 6, 6, testutil.Surface, testutil.Double)
			src.HasNoData = true
			src.NoData = -1
			src.SetNoDataPixel(0, 0)
			src.SetNoDataPixel(5, 5)
			// det <= 0 is invalid input rather than no-data, but is output the same way.
			src.SetPixel(2, 3, polsar.NewMatrix(3))

			cfg := testConfig(kind)
			cfg.NumInitialClasses = 6
			cfg.NumFinalClasses = 2
			res := classify(t, cfg, src)

			assert.Zero(t, res.Class(0, 0))
			assert.Zero(t, res.Class(5, 5))
			assert.Zero(t, res.Class(2, 3))
			assert.Equal(t, 3, res.Assignment.NoData())

			total := 0
			for _, c := range res.Clusters {
				total += c.Size
				assert.Less(t, polsar.SquaredDifference(c.Center, generatingCenter(c.Center)), 1e-20, "no-data leaked into a centre")
			}
			assert.Equal(t, 33, total)

			zeros := 0
			for _, c := range res.Classes {
				if c == 0 {
					zeros++
				}
			}
			assert.Equal(t, 3, zeros)
		})
	}
}

// generatingCenter returns whichever generating matrix m is closest to.
func generatingCenter(m polsar.Matrix) polsar.Matrix {
	if polsar.SquaredDifference(m, testutil.Surface) < polsar.SquaredDifference(m, testutil.Double) {
		return testutil.Surface
	}
	return testutil.Double
}

func TestTotalDistanceNonIncreasing(t *testing.T) {
	quietLogs(t)
	src, _ := testutil.NoisyRaster(t, 48, 48, 4, 42,
		testutil.Surface, testutil.Double, polsar.Diagonal(3, 2.5, 2))

	cfg := testConfig(KindHAlpha)
	cfg.TileSize = 16
	cfg.MaxIterations = 8
	res := classify(t, cfg, src)

	require.NotEmpty(t, res.Passes)
	assert.LessOrEqual(t, len(res.Passes), cfg.MaxIterations)
	for i := 1; i < len(res.Passes); i++ {
		prev, cur := res.Passes[i-1].TotalDistance, res.Passes[i].TotalDistance
		assert.LessOrEqual(t, cur, prev+1e-9*math.Abs(prev), "pass %d increased total distance", i+1)
	}
	if !res.Converged {
		assert.Len(t, res.Passes, cfg.MaxIterations)
	}
}

func TestIterationBudget(t *testing.T) {
	quietLogs(t)
	src, _ := testutil.NoisyRaster(t, 32, 32, 6, 7, testutil.Surface, polsar.Diagonal(3, 2.5, 2))
	cfg := testConfig(KindHAlpha)
	cfg.MaxIterations = 1
	res := classify(t, cfg, src)
	assert.Len(t, res.Passes, 1)
	assert.Equal(t, 1, res.Passes[0].Pass)
}

func TestClassifyCachesResult(t *testing.T) {
	quietLogs(t)
	src := testutil.UniformRaster(t, 4, 4, testutil.DyadicT3())
	c, err := New(testConfig(KindHAlpha))
	require.NoError(t, err)
	assert.Equal(t, StateUninitialized, c.State())

	first, err := c.Classify(context.Background(), src)
	require.NoError(t, err)
	second, err := c.Classify(context.Background(), src)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestColorizeIdempotent(t *testing.T) {
	quietLogs(t)
	src, _ := testutil.NoisyRaster(t, 32, 32, 4, 3, testutil.Surface, testutil.Double, polsar.Diagonal(3, 2.5, 2))
	cfg := testConfig(KindFreemanDurden)
	cfg.NumInitialClasses = 12
	cfg.NumFinalClasses = 6
	res := classify(t, cfg, src)

	if diff := cmp.Diff(res.Legend, res.Recolorize()); diff != "" {
		t.Errorf("second colorization differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(res.Recolorize(), res.Recolorize()); diff != "" {
		t.Errorf("colorization not stable (-first +second):\n%s", diff)
	}
}

func TestAnisotropySplit(t *testing.T) {
	quietLogs(t)
	lowA := testutil.Surface             // A = 1/3
	highA := polsar.Diagonal(8, 1, 0.25) // A = 0.6
	src, labels := testutil.StripedRaster(t, 8, 4, lowA, highA)

	cfg := testConfig(KindHAlpha)
	cfg.AnisotropySplit = true
	res := classify(t, cfg, src)

	assert.Equal(t, 1.0, testutil.Agreement(res.Classes, labels))
	require.Equal(t, 2, res.NumClasses())
	labelSet := map[string]bool{}
	for _, e := range res.Legend {
		labelSet[e.Label] = true
		assert.Equal(t, 16, e.Size)
	}
	assert.Equal(t, map[string]bool{"zone9_a1": true, "zone9_a2": true}, labelSet)
	assert.Len(t, res.Passes, 2)
}

func TestMixedPixelsAdoptNearestCategory(t *testing.T) {
	quietLogs(t)
	mixed := polsar.Diagonal(4, 4, 0.5)
	require.Equal(t, CategoryMixed, dominantCategory(polsar.FreemanDurden(polsar.CoherencyToCovariance(mixed)), 0.5))

	src, _ := testutil.StripedRaster(t, 6, 2, testutil.Surface, mixed, testutil.Double)
	cfg := testConfig(KindFreemanDurden)
	cfg.NumInitialClasses = 6
	cfg.NumFinalClasses = 2
	res := classify(t, cfg, src)

	for y := 0; y < 2; y++ {
		for x := 2; x < 4; x++ {
			cat, k := res.Assignment.At(x, y)
			assert.NotEqual(t, CategoryMixed, cat)
			assert.GreaterOrEqual(t, k, 0)
			assert.NotZero(t, res.Class(x, y))
		}
	}
}

func TestClassifyOrderMismatch(t *testing.T) {
	c, err := New(testConfig(KindHAlphaDualPol))
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), testutil.UniformRaster(t, 2, 2, testutil.DyadicT3()))
	assert.ErrorIs(t, err, ErrOrderMismatch)
	assert.Equal(t, StateUninitialized, c.State())
}

func TestClassifyCancelled(t *testing.T) {
	quietLogs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := New(testConfig(KindHAlpha))
	require.NoError(t, err)
	_, err = c.Classify(ctx, testutil.UniformRaster(t, 4, 4, testutil.DyadicT3()))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "computing initial cluster centers")
}

// failingSource panics once more than limit pixels have been read.
type failingSource struct {
	polsar.Source
	limit int64
	reads atomic.Int64
}

func (s *failingSource) Pixel(x, y int) (polsar.Matrix, bool) {
	if s.reads.Add(1) > s.limit {
		panic("read past limit")
	}
	return s.Source.Pixel(x, y)
}

func TestWorkerFailureLeavesClassifierFailed(t *testing.T) {
	quietLogs(t)
	src := &failingSource{Source: testutil.UniformRaster(t, 4, 4, testutil.DyadicT3()), limit: 16}
	c, err := New(testConfig(KindHAlpha))
	require.NoError(t, err)

	_, err = c.Classify(context.Background(), src)
	require.Error(t, err)
	var te *tiling.TileError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "refining clusters (pass 1)", te.Phase)
	var pe *tiling.PanicError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, StateRefining, c.State())

	_, err = c.Classify(context.Background(), src)
	assert.ErrorIs(t, err, ErrClassifierFailed)
}
