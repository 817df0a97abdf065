package wishart

// AssignmentMap holds the current cluster of every pixel. Cluster is the
// index within the pixel's category pool, or -1 when unassigned.
type AssignmentMap struct {
	Width    int
	Height   int
	Cluster  []int32
	Category []Category
}

func newAssignmentMap(w, h int) *AssignmentMap {
	a := &AssignmentMap{
		Width:    w,
		Height:   h,
		Cluster:  make([]int32, w*h),
		Category: make([]Category, w*h),
	}
	for i := range a.Cluster {
		a.Cluster[i] = -1
	}
	return a
}

// At returns the category and cluster index of (x, y).
func (a *AssignmentMap) At(x, y int) (Category, int) {
	i := y*a.Width + x
	return a.Category[i], int(a.Cluster[i])
}

// NoData counts pixels excluded from clustering.
func (a *AssignmentMap) NoData() int {
	n := 0
	for _, c := range a.Category {
		if c == CategoryNone {
			n++
		}
	}
	return n
}

// PassStats summarises one refinement pass.
type PassStats struct {
	Pass          int
	Drift         float64 // sum of squared centre changes
	TotalDistance float64 // sum of Wishart distances to the assigned cluster
	Changed       int     // pixels whose cluster changed
	Clusters      int     // clusters with members after the pass
}

// LegendEntry describes one output class.
type LegendEntry struct {
	Index     uint16
	Label     string
	Category  Category
	Zone      int
	Cluster   int // index within the category pool
	Size      int
	MeanPower float64
}

// Result is the outcome of a classification.
type Result struct {
	Kind      Kind
	Width     int
	Height    int
	Classes   []uint16 // row-major, 0 = no-data
	Legend    []LegendEntry
	Clusters  []Cluster
	Passes    []PassStats
	Converged bool

	Assignment *AssignmentMap
}

// NumClasses is the number of non-empty output classes.
func (r *Result) NumClasses() int { return len(r.Legend) }

// Class returns the output class of (x, y).
func (r *Result) Class(x, y int) uint16 { return r.Classes[y*r.Width+x] }

// Labels maps output index to legend label.
func (r *Result) Labels() map[uint16]string {
	out := make(map[uint16]string, len(r.Legend))
	for _, e := range r.Legend {
		out[e.Index] = e.Label
	}
	return out
}
