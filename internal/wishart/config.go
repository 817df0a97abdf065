package wishart

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/banshee-data/wishart/internal/polsar"
	"github.com/banshee-data/wishart/internal/tiling"
)

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("wishart: invalid configuration")
	// ErrOrderMismatch is returned when the source matrix order does not
	// suit the classifier kind.
	ErrOrderMismatch = errors.New("wishart: matrix order does not match classifier")
	// ErrClassifierFailed is returned by Classify after a previous run
	// stopped part way through.
	ErrClassifierFailed = errors.New("wishart: classifier is in a failed state")
)

// Kind selects the initial partition strategy.
type Kind int

const (
	KindFreemanDurden Kind = iota
	KindHAlpha
	KindHAlphaDualPol
)

func (k Kind) String() string {
	switch k {
	case KindFreemanDurden:
		return "freeman-durden"
	case KindHAlpha:
		return "h-alpha"
	case KindHAlphaDualPol:
		return "h-alpha-dual"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "freeman-durden", "freeman", "fd":
		return KindFreemanDurden, nil
	case "h-alpha", "halpha":
		return KindHAlpha, nil
	case "h-alpha-dual", "halpha-dual", "h-alpha-dualpol":
		return KindHAlphaDualPol, nil
	}
	return 0, fmt.Errorf("%w: unknown classifier %q", ErrInvalidConfig, s)
}

// Order is the matrix order the kind requires.
func (k Kind) Order() int {
	if k == KindHAlphaDualPol {
		return 2
	}
	return 3
}

// Config holds all classifier options. It is passed once to New.
type Config struct {
	Kind Kind

	MaxIterations     int
	NumInitialClasses int // Freeman-Durden: initial clusters over all three categories
	NumFinalClasses   int // Freeman-Durden: target after merging

	MixedCategoryThreshold float64 // dominant power share at or below which a pixel is mixed
	UseLeeHAlphaPlane      bool
	AnisotropySplit        bool

	TileSize int
	Workers  int
}

// DefaultConfig returns the documented defaults for kind.
func DefaultConfig(kind Kind) Config {
	return Config{
		Kind:                   kind,
		MaxIterations:          3,
		NumInitialClasses:      90,
		NumFinalClasses:        15,
		MixedCategoryThreshold: 0.5,
		TileSize:               tiling.DefaultTileSize,
		Workers:                runtime.GOMAXPROCS(0),
	}
}

// Validate checks the options independent of any source.
func (c Config) Validate() error {
	switch c.Kind {
	case KindFreemanDurden, KindHAlpha, KindHAlphaDualPol:
	default:
		return fmt.Errorf("%w: unknown classifier kind %d", ErrInvalidConfig, int(c.Kind))
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be at least 1, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if c.TileSize < 0 {
		return fmt.Errorf("%w: tile_size must not be negative, got %d", ErrInvalidConfig, c.TileSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Kind != KindFreemanDurden {
		return nil
	}
	if c.NumInitialClasses < 3 {
		return fmt.Errorf("%w: num_initial_classes must be at least 3, got %d", ErrInvalidConfig, c.NumInitialClasses)
	}
	if c.NumFinalClasses < 1 {
		return fmt.Errorf("%w: num_final_classes must be at least 1, got %d", ErrInvalidConfig, c.NumFinalClasses)
	}
	if c.NumFinalClasses >= c.NumInitialClasses {
		return fmt.Errorf("%w: num_final_classes (%d) must be below num_initial_classes (%d)",
			ErrInvalidConfig, c.NumFinalClasses, c.NumInitialClasses)
	}
	if !(c.MixedCategoryThreshold > 0 && c.MixedCategoryThreshold < 1) {
		return fmt.Errorf("%w: mixed_category_threshold must be in (0, 1), got %v", ErrInvalidConfig, c.MixedCategoryThreshold)
	}
	return nil
}

// validateSource checks that src can be classified with this configuration.
func (c Config) validateSource(src polsar.Source) error {
	if src == nil {
		return fmt.Errorf("%w: nil source", ErrInvalidConfig)
	}
	if src.Width() <= 0 || src.Height() <= 0 {
		return fmt.Errorf("%w: empty raster %dx%d", ErrInvalidConfig, src.Width(), src.Height())
	}
	if src.Order() != c.Kind.Order() {
		return fmt.Errorf("%w: %s needs order %d, source has order %d", ErrOrderMismatch, c.Kind, c.Kind.Order(), src.Order())
	}
	return nil
}

// bucketsPerCategory is N, the initial Freeman-Durden clusters per category.
func (c Config) bucketsPerCategory() int {
	return max(1, c.NumInitialClasses/3)
}
