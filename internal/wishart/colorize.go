package wishart

import "sort"

// Colorize maps converged clusters to output class indices. Categories
// occupy consecutive index ranges in the given order; within a category
// clusters are ranked by ascending MeanPower (ties by Index). Empty
// clusters get no class. Index 0 is reserved for no-data. label names a
// cluster from its 1-based rank inside its category.
func Colorize(clusters []Cluster, order []Category, label func(c *Cluster, rank int) string) []LegendEntry {
	var legend []LegendEntry
	next := uint16(1)
	for _, cat := range order {
		var members []*Cluster
		for i := range clusters {
			if clusters[i].Category == cat && clusters[i].Size > 0 {
				members = append(members, &clusters[i])
			}
		}
		sort.SliceStable(members, func(a, b int) bool {
			if members[a].MeanPower != members[b].MeanPower {
				return members[a].MeanPower < members[b].MeanPower
			}
			return members[a].Index < members[b].Index
		})
		for rank, c := range members {
			legend = append(legend, LegendEntry{
				Index:     next,
				Label:     label(c, rank+1),
				Category:  cat,
				Zone:      c.Zone,
				Cluster:   c.Index,
				Size:      c.Size,
				MeanPower: c.MeanPower,
			})
			next++
		}
	}
	return legend
}

// result colorizes the converged set and renders the class raster.
func (r *run) result(v variant, set *clusterSet, converged bool) *Result {
	clusters := set.snapshot()
	legend := Colorize(clusters, v.categories(), v.label)

	lookup := make(map[Category]map[int]uint16, len(set.categories))
	for _, e := range legend {
		if lookup[e.Category] == nil {
			lookup[e.Category] = make(map[int]uint16)
		}
		lookup[e.Category][e.Cluster] = e.Index
	}

	classes := make([]uint16, r.width*r.height)
	for i, k := range r.assign.Cluster {
		cat := r.assign.Category[i]
		if cat == CategoryNone || k < 0 {
			continue
		}
		classes[i] = lookup[cat][int(k)]
	}

	return &Result{
		Kind:       r.cfg.Kind,
		Width:      r.width,
		Height:     r.height,
		Classes:    classes,
		Legend:     legend,
		Clusters:   clusters,
		Passes:     r.passes,
		Converged:  converged,
		Assignment: r.assign,
	}
}

// Recolorize recomputes the legend from the result's clusters.
func (r *Result) Recolorize() []LegendEntry {
	var v variant = &hAlphaVariant{}
	if r.Kind == KindFreemanDurden {
		v = &freemanVariant{}
	}
	return Colorize(r.Clusters, v.categories(), v.label)
}
