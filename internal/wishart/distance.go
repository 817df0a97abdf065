package wishart

import "github.com/banshee-data/wishart/internal/polsar"

// Distance returns the Wishart distance Re(tr(C⁻¹M)) + ln|C| between pixel
// matrix m and cluster c. ok is false when c is nil or not comparable.
func Distance(m polsar.Matrix, c *Cluster) (d float64, ok bool) {
	if !c.Comparable() || m.N != c.Center.N {
		return 0, false
	}
	return polsar.TraceProduct(c.Inverse, m) + c.LogDet, true
}

// ClusterDistance is the symmetric between-cluster Wishart distance
// ½(ln|A| + ln|B| + tr(A⁻¹B) + tr(B⁻¹A)) used when merging.
func ClusterDistance(a, b *Cluster) (float64, bool) {
	if !a.Comparable() || !b.Comparable() || a.Center.N != b.Center.N {
		return 0, false
	}
	d := a.LogDet + b.LogDet +
		polsar.TraceProduct(a.Inverse, b.Center) +
		polsar.TraceProduct(b.Inverse, a.Center)
	return d / 2, true
}

// nearest returns the closest comparable cluster in pool. Ties keep the
// lowest index.
func nearest(pool []*Cluster, m polsar.Matrix) (k int, d float64, ok bool) {
	k = -1
	for i, c := range pool {
		di, cmp := Distance(m, c)
		if !cmp {
			continue
		}
		if k < 0 || di < d {
			k, d = i, di
		}
	}
	return k, d, k >= 0
}
