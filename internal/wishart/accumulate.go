package wishart

import (
	"sync"

	"github.com/banshee-data/wishart/internal/polsar"
)

// clusterSet holds the clusters of one run, one pool per category.
type clusterSet struct {
	categories []Category
	pools      [][]*Cluster
}

func newClusterSet(categories ...Category) *clusterSet {
	return &clusterSet{
		categories: categories,
		pools:      make([][]*Cluster, len(categories)),
	}
}

// poolIndex returns the position of cat in the set, or -1.
func (s *clusterSet) poolIndex(cat Category) int {
	for i, c := range s.categories {
		if c == cat {
			return i
		}
	}
	return -1
}

func (s *clusterSet) pool(cat Category) []*Cluster {
	if p := s.poolIndex(cat); p >= 0 {
		return s.pools[p]
	}
	return nil
}

func (s *clusterSet) total() int {
	n := 0
	for _, p := range s.pools {
		n += len(p)
	}
	return n
}

// slot maps (category, index) to a flat accumulator slot.
func (s *clusterSet) slot(cat Category, k int) int {
	off := 0
	for i, c := range s.categories {
		if c == cat {
			return off + k
		}
		off += len(s.pools[i])
	}
	return -1
}

// all returns the clusters flattened in category order, matching slot.
func (s *clusterSet) all() []*Cluster {
	out := make([]*Cluster, 0, s.total())
	for _, p := range s.pools {
		out = append(out, p...)
	}
	return out
}

// renumber rewrites Index to the position within each pool.
func (s *clusterSet) renumber() {
	for _, p := range s.pools {
		for i, c := range p {
			c.Index = i
		}
	}
}

// snapshot copies the clusters for a Result.
func (s *clusterSet) snapshot() []Cluster {
	all := s.all()
	out := make([]Cluster, len(all))
	for i, c := range all {
		out[i] = *c
	}
	return out
}

// accumulator collects per-slot matrix sums, member counts and power sums.
// Each tile owns a private accumulator; only merge needs the lock.
type accumulator struct {
	sums     []polsar.Matrix
	counts   []int
	power    []float64
	distance float64
	changed  int
}

func newAccumulator(slots, order int) *accumulator {
	a := &accumulator{
		sums:   make([]polsar.Matrix, slots),
		counts: make([]int, slots),
		power:  make([]float64, slots),
	}
	for i := range a.sums {
		a.sums[i] = polsar.NewMatrix(order)
	}
	return a
}

func (a *accumulator) add(slot int, m polsar.Matrix, power float64) {
	a.sums[slot].Accumulate(m)
	a.counts[slot]++
	a.power[slot] += power
}

func (a *accumulator) merge(b *accumulator) {
	for i := range a.sums {
		a.sums[i].Accumulate(b.sums[i])
		a.counts[i] += b.counts[i]
		a.power[i] += b.power[i]
	}
	a.distance += b.distance
	a.changed += b.changed
}

// sharedAccumulator is the pass-level accumulator that tile accumulators
// are folded into.
type sharedAccumulator struct {
	mu  sync.Mutex
	acc *accumulator
}

func newSharedAccumulator(slots, order int) *sharedAccumulator {
	return &sharedAccumulator{acc: newAccumulator(slots, order)}
}

func (s *sharedAccumulator) combine(local *accumulator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acc.merge(local)
}
