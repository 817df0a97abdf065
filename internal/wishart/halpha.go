package wishart

import (
	"context"
	"fmt"

	"github.com/banshee-data/wishart/internal/polsar"
	"github.com/banshee-data/wishart/internal/tiling"
)

// hAlphaVariant seeds one cluster per populated H-Alpha zone and refines
// over a single flat pool.
type hAlphaVariant struct {
	cfg Config
}

func (v *hAlphaVariant) categories() []Category { return []Category{CategoryZone} }

func (v *hAlphaVariant) partition(ctx context.Context, r *run) (*clusterSet, error) {
	r.anisotropy = make([]float32, r.width*r.height)
	convert := r.order == 3 && r.src.Kind() == polsar.Covariance

	// Zone numbers are parked in the assignment map until clusters exist.
	acc, err := r.forEachTile(ctx, "computing initial cluster centers", polsar.NumZones,
		func(t tiling.Tile, local *accumulator) error {
			for y := t.Y; y < t.Y+t.H; y++ {
				for x := t.X; x < t.X+t.W; x++ {
					idx := y*r.width + x
					m, ok := r.pixel(x, y)
					if !ok {
						r.assign.Category[idx] = CategoryNone
						r.assign.Cluster[idx] = -1
						continue
					}
					r.assign.Category[idx] = CategoryZone
					r.assign.Cluster[idx] = -1

					tm := m
					if convert {
						tm = polsar.CovarianceToCoherency(m)
					}
					haa := polsar.ComputeHAAlpha(tm)
					r.anisotropy[idx] = float32(haa.Anisotropy)
					if !haa.Finite() {
						continue
					}
					zone := polsar.ZoneIndex(haa.Entropy, haa.Alpha, v.cfg.UseLeeHAlphaPlane)
					local.add(zone-1, m, m.Trace())
					r.assign.Cluster[idx] = int32(zone - 1)
				}
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	set := newClusterSet(CategoryZone)
	remap := make([]int32, polsar.NumZones)
	for z := 0; z < polsar.NumZones; z++ {
		remap[z] = -1
		if acc.counts[z] == 0 {
			continue
		}
		c := newCluster(CategoryZone, acc.sums[z], acc.counts[z], acc.power[z])
		c.Zone = z + 1
		c.Index = len(set.pools[0])
		remap[z] = int32(c.Index)
		set.pools[0] = append(set.pools[0], c)
	}
	for i, k := range r.assign.Cluster {
		if k >= 0 {
			r.assign.Cluster[i] = remap[k]
		}
	}
	return set, nil
}

func (v *hAlphaVariant) reduce(context.Context, *run, *clusterSet) error { return nil }

func (v *hAlphaVariant) reassign(set *clusterSet, _ Category, m polsar.Matrix) (Category, int, float64, bool) {
	k, d, ok := nearest(set.pools[0], m)
	return CategoryZone, k, d, ok
}

func (v *hAlphaVariant) power(_ *run, _ int, _ Category, m polsar.Matrix) float64 {
	return m.Trace()
}

func (v *hAlphaVariant) label(c *Cluster, _ int) string {
	if c.SubClass > 0 {
		return fmt.Sprintf("zone%d_a%d", c.Zone, c.SubClass)
	}
	return fmt.Sprintf("zone%d", c.Zone)
}

// anisotropySplit is the A boundary between the low and high sub-classes.
const anisotropySplit = 0.5

// splitByAnisotropy replaces every cluster with up to two children built
// from its members with A <= 0.5 and A > 0.5. NaN anisotropy counts as low.
func (r *run) splitByAnisotropy(ctx context.Context, set *clusterSet) error {
	pool := set.pools[0]
	slots := 2 * len(pool)
	acc, err := r.forEachTile(ctx, "splitting clusters by anisotropy", slots,
		func(t tiling.Tile, local *accumulator) error {
			for y := t.Y; y < t.Y+t.H; y++ {
				for x := t.X; x < t.X+t.W; x++ {
					idx := y*r.width + x
					k := r.assign.Cluster[idx]
					if r.assign.Category[idx] == CategoryNone || k < 0 {
						continue
					}
					m, _ := r.src.Pixel(x, y)
					slot := 2 * int(k)
					if a := float64(r.anisotropy[idx]); a > anisotropySplit {
						slot++
					}
					local.add(slot, m, m.Trace())
				}
			}
			return nil
		})
	if err != nil {
		return err
	}

	remap := make([]int32, slots)
	var next []*Cluster
	for s := 0; s < slots; s++ {
		remap[s] = -1
		if acc.counts[s] == 0 {
			continue
		}
		parent := pool[s/2]
		c := newCluster(CategoryZone, acc.sums[s], acc.counts[s], acc.power[s])
		c.Zone = parent.Zone
		c.SubClass = s%2 + 1
		c.Index = len(next)
		remap[s] = int32(c.Index)
		next = append(next, c)
	}
	for idx, k := range r.assign.Cluster {
		if r.assign.Category[idx] == CategoryNone || k < 0 {
			continue
		}
		slot := 2 * int(k)
		if a := float64(r.anisotropy[idx]); a > anisotropySplit {
			slot++
		}
		r.assign.Cluster[idx] = remap[slot]
	}
	set.pools[0] = next
	return nil
}
