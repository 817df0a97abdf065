package wishart

import (
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/wishart/internal/monitoring"
)

// minMergeClusters is the smallest pool that may still lose a cluster.
const minMergeClusters = 3

// mergeCandidate is the closest eligible pair inside one category.
type mergeCandidate struct {
	pool     int
	i, j     int
	distance float64
	size     int // combined member count
}

// closestPair finds the pair of clusters in pool with the smallest
// ClusterDistance among clusters smaller than sizeCap. Pools with three or
// fewer clusters, or without an eligible pair, report +Inf.
func closestPair(pool []*Cluster, sizeCap float64) mergeCandidate {
	best := mergeCandidate{i: -1, j: -1, distance: math.Inf(1)}
	if len(pool) <= minMergeClusters {
		return best
	}
	for i := 0; i < len(pool); i++ {
		if float64(pool[i].Size) >= sizeCap {
			continue
		}
		for j := i + 1; j < len(pool); j++ {
			if float64(pool[j].Size) >= sizeCap {
				continue
			}
			d, ok := ClusterDistance(pool[i], pool[j])
			if !ok || math.IsNaN(d) {
				continue
			}
			if d < best.distance {
				best = mergeCandidate{i: i, j: j, distance: d, size: pool[i].Size + pool[j].Size}
			}
		}
	}
	return best
}

// pickMerge chooses among per-category candidates: the smallest distance
// wins; equal distances go to the smaller combined size; equal sizes keep
// category order (volume, double, surface).
func pickMerge(cands []mergeCandidate) (mergeCandidate, bool) {
	best := mergeCandidate{pool: -1, distance: math.Inf(1)}
	for _, c := range cands {
		if math.IsInf(c.distance, 1) {
			continue
		}
		switch {
		case best.pool < 0,
			c.distance < best.distance,
			c.distance == best.distance && c.size < best.size:
			best = c
		}
	}
	return best, best.pool >= 0
}

// mergeClusters combines a and b into a new cluster with the size-weighted
// centre and mean power.
func mergeClusters(a, b *Cluster) *Cluster {
	n := a.Size + b.Size
	wa := float64(a.Size) / float64(n)
	wb := float64(b.Size) / float64(n)
	c := &Cluster{
		Category:  a.Category,
		Zone:      a.Zone,
		Size:      n,
		MeanPower: wa*a.MeanPower + wb*b.MeanPower,
	}
	c.setCenter(a.Center.Scale(wa).Add(b.Center.Scale(wb)))
	return c
}

// reduceClusters merges the globally closest pair until the set holds
// target clusters or no category has a candidate left. The assignment map
// is rewritten to the surviving indices.
func reduceClusters(ctx context.Context, r *run, set *clusterSet, target int) error {
	sizeCap := 2 * float64(r.width*r.height) / float64(target)

	// owner tracks which surviving cluster absorbed each initial one.
	initial := make([][]*Cluster, len(set.pools))
	owner := make(map[*Cluster]*Cluster)
	for p, pool := range set.pools {
		initial[p] = append([]*Cluster(nil), pool...)
	}

	merges := 0
	for set.total() > target {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("merging clusters: %w", err)
		}
		cands := make([]mergeCandidate, len(set.pools))
		for p, pool := range set.pools {
			cands[p] = closestPair(pool, sizeCap)
			cands[p].pool = p
		}
		m, ok := pickMerge(cands)
		if !ok {
			monitoring.Logf("wishart: no merge candidate left at %d clusters (target %d)", set.total(), target)
			break
		}

		pool := set.pools[m.pool]
		a, b := pool[m.i], pool[m.j]
		merged := mergeClusters(a, b)
		owner[a], owner[b] = merged, merged

		next := make([]*Cluster, 0, len(pool)-1)
		for k, c := range pool {
			if k != m.i && k != m.j {
				next = append(next, c)
			}
		}
		set.pools[m.pool] = append(next, merged)
		set.renumber()
		merges++
	}
	if merges == 0 {
		return nil
	}
	monitoring.Logf("wishart: merged %d cluster pairs, %d clusters remain", merges, set.total())

	// Resolve each initial cluster to its surviving index.
	remap := make(map[Category][]int32, len(set.pools))
	for p, cat := range set.categories {
		remap[cat] = make([]int32, len(initial[p]))
		for k, c := range initial[p] {
			for owner[c] != nil {
				c = owner[c]
			}
			remap[cat][k] = int32(c.Index)
		}
	}
	for i, k := range r.assign.Cluster {
		if k < 0 {
			continue
		}
		if table, ok := remap[r.assign.Category[i]]; ok {
			r.assign.Cluster[i] = table[k]
		}
	}
	return nil
}
