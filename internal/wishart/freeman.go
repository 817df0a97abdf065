package wishart

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/wishart/internal/polsar"
	"github.com/banshee-data/wishart/internal/tiling"
)

// freemanVariant seeds clusters from power-ranked buckets of the dominant
// Freeman-Durden mechanism and keeps the three categories apart.
type freemanVariant struct {
	cfg Config
}

func (v *freemanVariant) categories() []Category { return freemanCategories }

// dominantPower returns the power of p attributed to cat.
func dominantPower(p polsar.FreemanPowers, cat Category) float64 {
	switch cat {
	case CategoryVolume:
		return p.Volume
	case CategoryDouble:
		return p.Double
	case CategorySurface:
		return p.Surface
	}
	return 0
}

// dominantCategory picks the largest of the three powers, or Mixed when its
// share of the total is at or below threshold.
func dominantCategory(p polsar.FreemanPowers, threshold float64) Category {
	cat, best := CategoryVolume, p.Volume
	if p.Double > best {
		cat, best = CategoryDouble, p.Double
	}
	if p.Surface > best {
		cat, best = CategorySurface, p.Surface
	}
	total := p.Total()
	if !(total > 0) || best/total <= threshold {
		return CategoryMixed
	}
	return cat
}

// bucketThresholds returns the N-1 empirical quantiles cutting sorted into
// N equal-count buckets.
func bucketThresholds(sorted []float64, n int) []float64 {
	if len(sorted) == 0 || n <= 1 {
		return nil
	}
	out := make([]float64, n-1)
	for k := range out {
		out[k] = stat.Quantile(float64(k+1)/float64(n), stat.Empirical, sorted, nil)
	}
	return out
}

func (v *freemanVariant) partition(ctx context.Context, r *run) (*clusterSet, error) {
	n := r.width * r.height
	r.freeman = make([]polsar.FreemanPowers, n)
	toCovariance := r.src.Kind() == polsar.Coherency

	var mu sync.Mutex
	powers := make(map[Category][]float64, len(freemanCategories))
	err := tiling.Run(ctx, "computing Freeman-Durden decomposition", r.tiles, r.cfg.Workers,
		func(_ context.Context, t tiling.Tile) error {
			local := make(map[Category][]float64, len(freemanCategories))
			for y := t.Y; y < t.Y+t.H; y++ {
				for x := t.X; x < t.X+t.W; x++ {
					idx := y*r.width + x
					r.assign.Cluster[idx] = -1
					m, ok := r.pixel(x, y)
					if !ok {
						r.assign.Category[idx] = CategoryNone
						continue
					}
					c := m
					if toCovariance {
						c = polsar.CoherencyToCovariance(m)
					}
					p := polsar.FreemanDurden(c)
					r.freeman[idx] = p
					cat := dominantCategory(p, v.cfg.MixedCategoryThreshold)
					r.assign.Category[idx] = cat
					if cat != CategoryMixed {
						local[cat] = append(local[cat], dominantPower(p, cat))
					}
				}
			}
			mu.Lock()
			for cat, ps := range local {
				powers[cat] = append(powers[cat], ps...)
			}
			mu.Unlock()
			return nil
		})
	if err != nil {
		return nil, err
	}

	buckets := v.cfg.bucketsPerCategory()
	thresholds := make(map[Category][]float64, len(freemanCategories))
	for _, cat := range freemanCategories {
		ps := powers[cat]
		sort.Float64s(ps)
		thresholds[cat] = bucketThresholds(ps, buckets)
	}

	// Bucket numbers are parked in the assignment map until clusters exist.
	slot := func(cat Category, b int) int { return (int(cat)-int(CategoryVolume))*buckets + b }
	acc, err := r.forEachTile(ctx, "computing initial cluster centers", 3*buckets,
		func(t tiling.Tile, local *accumulator) error {
			for y := t.Y; y < t.Y+t.H; y++ {
				for x := t.X; x < t.X+t.W; x++ {
					idx := y*r.width + x
					cat := r.assign.Category[idx]
					if cat == CategoryNone || cat == CategoryMixed {
						continue
					}
					m, _ := r.src.Pixel(x, y)
					p := dominantPower(r.freeman[idx], cat)
					b := sort.SearchFloat64s(thresholds[cat], p)
					local.add(slot(cat, b), m, p)
					r.assign.Cluster[idx] = int32(b)
				}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	set := newClusterSet(freemanCategories...)
	remap := make(map[Category][]int32, len(freemanCategories))
	for p, cat := range freemanCategories {
		remap[cat] = make([]int32, buckets)
		for b := 0; b < buckets; b++ {
			remap[cat][b] = -1
			s := slot(cat, b)
			if acc.counts[s] == 0 {
				continue
			}
			c := newCluster(cat, acc.sums[s], acc.counts[s], acc.power[s])
			c.Index = len(set.pools[p])
			remap[cat][b] = int32(c.Index)
			set.pools[p] = append(set.pools[p], c)
		}
	}
	for i, b := range r.assign.Cluster {
		if b >= 0 {
			r.assign.Cluster[i] = remap[r.assign.Category[i]][b]
		}
	}
	return set, nil
}

func (v *freemanVariant) reduce(ctx context.Context, r *run, set *clusterSet) error {
	return reduceClusters(ctx, r, set, v.cfg.NumFinalClasses)
}

// reassign keeps a categorised pixel inside its category. A mixed pixel
// takes the best of the three per-category winners and adopts its category.
func (v *freemanVariant) reassign(set *clusterSet, cat Category, m polsar.Matrix) (Category, int, float64, bool) {
	if cat != CategoryMixed {
		k, d, ok := nearest(set.pool(cat), m)
		return cat, k, d, ok
	}
	bestCat, bestK, bestD, found := CategoryMixed, -1, 0.0, false
	for p, c := range set.categories {
		k, d, ok := nearest(set.pools[p], m)
		if !ok {
			continue
		}
		if !found || d < bestD {
			bestCat, bestK, bestD, found = c, k, d, true
		}
	}
	return bestCat, bestK, bestD, found
}

func (v *freemanVariant) power(r *run, idx int, cat Category, _ polsar.Matrix) float64 {
	return dominantPower(r.freeman[idx], cat)
}

func (v *freemanVariant) label(c *Cluster, rank int) string {
	return fmt.Sprintf("%s_%d", c.Category.labelPrefix(), rank)
}
