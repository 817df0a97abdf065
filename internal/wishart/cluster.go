// Package wishart clusters polarimetric SAR pixels with the complex Wishart
// distance. An initial partition (H-Alpha zones or Freeman-Durden power
// buckets) seeds the cluster centres, which are then refined K-means style
// over tile-parallel passes until the centres stop moving.
package wishart

import (
	"fmt"
	"math"

	"github.com/banshee-data/wishart/internal/polsar"
)

// Category is the coarse group a pixel or cluster belongs to.
type Category int8

const (
	CategoryNone Category = iota // no-data
	CategoryVolume
	CategoryDouble
	CategorySurface
	CategoryMixed
	CategoryZone // single flat H-Alpha pool
)

var freemanCategories = []Category{CategoryVolume, CategoryDouble, CategorySurface}

func (c Category) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryVolume:
		return "volume"
	case CategoryDouble:
		return "double"
	case CategorySurface:
		return "surface"
	case CategoryMixed:
		return "mixed"
	case CategoryZone:
		return "zone"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// labelPrefix is the short legend prefix of a Freeman-Durden category.
func (c Category) labelPrefix() string {
	switch c {
	case CategoryVolume:
		return "vol"
	case CategoryDouble:
		return "dbl"
	case CategorySurface:
		return "surf"
	}
	return c.String()
}

// Cluster is one Wishart cluster: a mean Hermitian matrix with its cached
// inverse and log-determinant.
type Cluster struct {
	Index    int // position within its category, renumbered after merges
	Category Category
	Zone     int // H-Alpha zone 1..9, 0 for Freeman-Durden clusters
	SubClass int // 1 or 2 after an anisotropy split, otherwise 0

	Center  polsar.Matrix
	Inverse polsar.Matrix
	LogDet  float64

	Size      int
	MeanPower float64

	invertible bool
}

// setCenter replaces the centre and recomputes the inverse and
// log-determinant with it. A centre with det <= 0 leaves the cluster
// non-comparable.
func (c *Cluster) setCenter(center polsar.Matrix) {
	c.Center = center
	c.invertible = false
	c.Inverse = polsar.Matrix{}
	c.LogDet = math.NaN()

	det := center.Det()
	if !(det > 0) || math.IsInf(det, 0) {
		return
	}
	inv, err := center.Inverse()
	if err != nil {
		return
	}
	c.Inverse = inv
	c.LogDet = math.Log(det)
	c.invertible = true
}

// Comparable reports whether the cluster may take part in distance
// comparisons: it has members and an invertible centre.
func (c *Cluster) Comparable() bool {
	return c != nil && c.Size > 0 && c.invertible
}

func (c *Cluster) String() string {
	return fmt.Sprintf("%s[%d] zone=%d size=%d power=%.4g", c.Category, c.Index, c.Zone, c.Size, c.MeanPower)
}

// newCluster builds a cluster from an accumulated matrix sum.
func newCluster(cat Category, sum polsar.Matrix, count int, powerSum float64) *Cluster {
	c := &Cluster{Category: cat, Size: count}
	if count > 0 {
		c.setCenter(sum.Scale(1 / float64(count)))
		c.MeanPower = powerSum / float64(count)
	}
	return c
}
