package wishart

import (
	"context"
	"fmt"

	"github.com/banshee-data/wishart/internal/monitoring"
	"github.com/banshee-data/wishart/internal/polsar"
	"github.com/banshee-data/wishart/internal/tiling"
)

// refine runs up to MaxIterations assignment/recompute passes and reports
// whether the centres stopped moving.
func (r *run) refine(ctx context.Context, v variant, set *clusterSet) (bool, error) {
	for i := 0; i < r.cfg.MaxIterations; i++ {
		pass := len(r.passes) + 1
		acc, err := r.assignPass(ctx, v, set, pass)
		if err != nil {
			return false, err
		}
		stats := set.recompute(acc)
		stats.Pass = pass
		stats.TotalDistance = acc.distance
		stats.Changed = acc.changed
		r.passes = append(r.passes, stats)
		monitoring.Debugf("wishart: pass %d: drift=%.6g distance=%.6g changed=%d clusters=%d",
			pass, stats.Drift, stats.TotalDistance, stats.Changed, stats.Clusters)
		if stats.Drift == 0 {
			return true, nil
		}
	}
	return false, nil
}

// assignPass moves every valid pixel to its nearest cluster and
// accumulates the new memberships. Clusters are read-only here.
func (r *run) assignPass(ctx context.Context, v variant, set *clusterSet, pass int) (*accumulator, error) {
	phase := fmt.Sprintf("refining clusters (pass %d)", pass)
	return r.forEachTile(ctx, phase, set.total(), func(t tiling.Tile, local *accumulator) error {
		for y := t.Y; y < t.Y+t.H; y++ {
			for x := t.X; x < t.X+t.W; x++ {
				idx := y*r.width + x
				cat := r.assign.Category[idx]
				if cat == CategoryNone {
					continue
				}
				m, _ := r.src.Pixel(x, y)
				newCat, k, d, ok := v.reassign(set, cat, m)
				if !ok {
					continue
				}
				if newCat != cat || int32(k) != r.assign.Cluster[idx] {
					local.changed++
				}
				r.assign.Category[idx] = newCat
				r.assign.Cluster[idx] = int32(k)
				local.add(set.slot(newCat, k), m, v.power(r, idx, newCat, m))
				local.distance += d
			}
		}
		return nil
	})
}

// recompute installs the new centres from acc and returns the drift.
// Clusters without members keep their centre and drop to Size 0.
func (s *clusterSet) recompute(acc *accumulator) PassStats {
	var stats PassStats
	for slot, c := range s.all() {
		n := acc.counts[slot]
		if n == 0 {
			c.Size = 0
			continue
		}
		center := acc.sums[slot].Scale(1 / float64(n))
		stats.Drift += polsar.SquaredDifference(c.Center, center)
		c.setCenter(center)
		c.Size = n
		c.MeanPower = acc.power[slot] / float64(n)
		stats.Clusters++
	}
	return stats
}
