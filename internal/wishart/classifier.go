package wishart

import (
	"context"
	"fmt"

	"github.com/banshee-data/wishart/internal/monitoring"
	"github.com/banshee-data/wishart/internal/polsar"
	"github.com/banshee-data/wishart/internal/tiling"
)

// State is the lifecycle position of a Classifier.
type State int

const (
	StateUninitialized State = iota
	StatePartitioned
	StateReducing
	StateRefining
	StateConverged
	StateColorized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePartitioned:
		return "partitioned"
	case StateReducing:
		return "reducing"
	case StateRefining:
		return "refining"
	case StateConverged:
		return "converged"
	case StateColorized:
		return "colorized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// variant is the per-kind behaviour of a classification run.
type variant interface {
	categories() []Category
	// partition assigns every pixel an initial category and builds the
	// initial clusters.
	partition(ctx context.Context, r *run) (*clusterSet, error)
	// reduce merges clusters down to the configured target.
	reduce(ctx context.Context, r *run, set *clusterSet) error
	// reassign picks the cluster for a pixel currently in category cat.
	reassign(set *clusterSet, cat Category, m polsar.Matrix) (Category, int, float64, bool)
	// power is the scalar used to rank clusters for display.
	power(r *run, idx int, cat Category, m polsar.Matrix) float64
	label(c *Cluster, rank int) string
}

// Classifier classifies one raster. It is not safe for concurrent use.
type Classifier struct {
	cfg     Config
	variant variant
	state   State
	result  *Result
}

// New validates cfg and returns a classifier for it.
func New(cfg Config) (*Classifier, error) {
	if cfg.TileSize == 0 {
		cfg.TileSize = tiling.DefaultTileSize
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Classifier{cfg: cfg}
	switch cfg.Kind {
	case KindFreemanDurden:
		c.variant = &freemanVariant{cfg: cfg}
	case KindHAlpha, KindHAlphaDualPol:
		c.variant = &hAlphaVariant{cfg: cfg}
	}
	return c, nil
}

// Config returns the configuration the classifier was built with.
func (c *Classifier) Config() Config { return c.cfg }

// State returns the current lifecycle state.
func (c *Classifier) State() State { return c.state }

// Classify runs the full pipeline over src. Once a run has completed the
// cached result is returned. A run that failed after partitioning leaves
// the classifier unusable and later calls return ErrClassifierFailed.
func (c *Classifier) Classify(ctx context.Context, src polsar.Source) (*Result, error) {
	switch c.state {
	case StateColorized:
		return c.result, nil
	case StateUninitialized:
	default:
		return nil, fmt.Errorf("%w (state %s)", ErrClassifierFailed, c.state)
	}
	if err := c.cfg.validateSource(src); err != nil {
		return nil, err
	}

	r := newRun(c.cfg, src)
	set, err := c.variant.partition(ctx, r)
	if err != nil {
		return nil, err
	}
	c.state = StatePartitioned
	monitoring.Logf("wishart: %s partition: %d initial clusters over %dx%d pixels (%d no-data)",
		c.cfg.Kind, set.total(), r.width, r.height, r.assign.NoData())

	if c.cfg.Kind == KindFreemanDurden {
		c.state = StateReducing
		if err := c.variant.reduce(ctx, r, set); err != nil {
			return nil, err
		}
	}

	c.state = StateRefining
	converged, err := r.refine(ctx, c.variant, set)
	if err != nil {
		return nil, err
	}
	if c.cfg.AnisotropySplit && c.cfg.Kind != KindFreemanDurden {
		if err := r.splitByAnisotropy(ctx, set); err != nil {
			return nil, err
		}
		if converged, err = r.refine(ctx, c.variant, set); err != nil {
			return nil, err
		}
	}
	c.state = StateConverged

	c.result = r.result(c.variant, set, converged)
	c.state = StateColorized
	monitoring.Logf("wishart: %d classes after %d passes (converged=%v)",
		c.result.NumClasses(), len(c.result.Passes), converged)
	return c.result, nil
}

// run is the working state of one classification.
type run struct {
	cfg    Config
	src    polsar.Source
	width  int
	height int
	order  int
	tiles  []tiling.Tile
	assign *AssignmentMap

	freeman    []polsar.FreemanPowers // per pixel, Freeman-Durden only
	anisotropy []float32              // per pixel, H-Alpha only

	passes []PassStats
}

func newRun(cfg Config, src polsar.Source) *run {
	w, h := src.Width(), src.Height()
	return &run{
		cfg:    cfg,
		src:    src,
		width:  w,
		height: h,
		order:  src.Order(),
		tiles:  tiling.Split(w, h, cfg.TileSize, cfg.TileSize),
		assign: newAssignmentMap(w, h),
	}
}

// pixel returns the matrix at (x, y) and whether it can be clustered.
func (r *run) pixel(x, y int) (polsar.Matrix, bool) {
	m, ok := r.src.Pixel(x, y)
	if !ok || !m.Valid() {
		return polsar.Matrix{}, false
	}
	return m, true
}

// forEachTile runs fn over every tile with a private accumulator and folds
// the accumulators into one.
func (r *run) forEachTile(ctx context.Context, phase string, slots int,
	fn func(t tiling.Tile, local *accumulator) error) (*accumulator, error) {
	shared := newSharedAccumulator(slots, r.order)
	err := tiling.Run(ctx, phase, r.tiles, r.cfg.Workers, func(_ context.Context, t tiling.Tile) error {
		local := newAccumulator(slots, r.order)
		if err := fn(t, local); err != nil {
			return err
		}
		shared.combine(local)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shared.acc, nil
}
