package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/wishart/internal/wishart"
)

// DefaultConfigPath is the path to the canonical classifier defaults file.
const DefaultConfigPath = "config/wishart.defaults.json"

// WishartConfig is the on-disk form of the classifier options plus the
// pre-processing window. Nil fields fall back to the Get* defaults, so a
// partial file only overrides what it names.
type WishartConfig struct {
	Classifier *string `json:"classifier,omitempty"` // "freeman-durden", "h-alpha" or "h-alpha-dual"

	// Multi-look boxcar window applied before classification; 1 disables it.
	WindowSize *int `json:"window_size,omitempty"`

	MaxIterations          *int     `json:"max_iterations,omitempty"`
	NumInitialClasses      *int     `json:"num_initial_classes,omitempty"`
	NumFinalClasses        *int     `json:"num_final_classes,omitempty"`
	MixedCategoryThreshold *float64 `json:"mixed_category_threshold,omitempty"`
	UseLeeHAlphaPlane      *bool    `json:"use_lee_halpha_plane,omitempty"`
	AnisotropySplit        *bool    `json:"anisotropy_split,omitempty"`

	// Execution
	TileSize *int `json:"tile_size,omitempty"`
	Workers  *int `json:"workers,omitempty"` // 0 uses GOMAXPROCS
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyWishartConfig returns a WishartConfig with every field unset.
func EmptyWishartConfig() *WishartConfig {
	return &WishartConfig{}
}

// DefaultWishartConfig returns a config with every field set to its default.
func DefaultWishartConfig() *WishartConfig {
	return &WishartConfig{
		Classifier:             ptrString(wishart.KindFreemanDurden.String()),
		WindowSize:             ptrInt(5),
		MaxIterations:          ptrInt(3),
		NumInitialClasses:      ptrInt(90),
		NumFinalClasses:        ptrInt(15),
		MixedCategoryThreshold: ptrFloat64(0.5),
		UseLeeHAlphaPlane:      ptrBool(false),
		AnisotropySplit:        ptrBool(false),
		TileSize:               ptrInt(256),
		Workers:                ptrInt(0),
	}
}

// LoadWishartConfig loads a WishartConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadWishartConfig(path string) (*WishartConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyWishartConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the current directory or
// one of its parents. Panics if the file cannot be loaded, intended for test
// setup.
func MustLoadDefaultConfig() *WishartConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadWishartConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the fields that are set. Cross-field rules such as
// num_final_classes < num_initial_classes are left to ToClassifierConfig,
// which sees the defaults as well.
func (c *WishartConfig) Validate() error {
	if c.Classifier != nil {
		if _, err := wishart.ParseKind(*c.Classifier); err != nil {
			return err
		}
	}
	if c.WindowSize != nil {
		if *c.WindowSize < 1 || *c.WindowSize%2 == 0 {
			return fmt.Errorf("window_size must be a positive odd number, got %d", *c.WindowSize)
		}
	}
	if c.MaxIterations != nil && *c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", *c.MaxIterations)
	}
	if c.NumInitialClasses != nil && *c.NumInitialClasses < 3 {
		return fmt.Errorf("num_initial_classes must be at least 3, got %d", *c.NumInitialClasses)
	}
	if c.NumFinalClasses != nil && *c.NumFinalClasses < 1 {
		return fmt.Errorf("num_final_classes must be at least 1, got %d", *c.NumFinalClasses)
	}
	if c.MixedCategoryThreshold != nil {
		if v := *c.MixedCategoryThreshold; !(v > 0 && v < 1) {
			return fmt.Errorf("mixed_category_threshold must be between 0 and 1, got %f", v)
		}
	}
	if c.TileSize != nil && *c.TileSize < 0 {
		return fmt.Errorf("tile_size must be non-negative, got %d", *c.TileSize)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetClassifier returns the classifier name or the default.
func (c *WishartConfig) GetClassifier() string {
	if c.Classifier == nil || *c.Classifier == "" {
		return wishart.KindFreemanDurden.String()
	}
	return *c.Classifier
}

// GetWindowSize returns the window_size value or the default.
func (c *WishartConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return 5
	}
	return *c.WindowSize
}

// GetMaxIterations returns the max_iterations value or the default.
func (c *WishartConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return 3
	}
	return *c.MaxIterations
}

// GetNumInitialClasses returns the num_initial_classes value or the default.
func (c *WishartConfig) GetNumInitialClasses() int {
	if c.NumInitialClasses == nil {
		return 90
	}
	return *c.NumInitialClasses
}

// GetNumFinalClasses returns the num_final_classes value or the default.
func (c *WishartConfig) GetNumFinalClasses() int {
	if c.NumFinalClasses == nil {
		return 15
	}
	return *c.NumFinalClasses
}

// GetMixedCategoryThreshold returns the mixed_category_threshold value or the default.
func (c *WishartConfig) GetMixedCategoryThreshold() float64 {
	if c.MixedCategoryThreshold == nil {
		return 0.5
	}
	return *c.MixedCategoryThreshold
}

// GetUseLeeHAlphaPlane returns the use_lee_halpha_plane value or the default.
func (c *WishartConfig) GetUseLeeHAlphaPlane() bool {
	if c.UseLeeHAlphaPlane == nil {
		return false
	}
	return *c.UseLeeHAlphaPlane
}

// GetAnisotropySplit returns the anisotropy_split value or the default.
func (c *WishartConfig) GetAnisotropySplit() bool {
	if c.AnisotropySplit == nil {
		return false
	}
	return *c.AnisotropySplit
}

// GetTileSize returns the tile_size value or the default.
func (c *WishartConfig) GetTileSize() int {
	if c.TileSize == nil || *c.TileSize == 0 {
		return 256
	}
	return *c.TileSize
}

// GetWorkers returns the worker count, resolving 0 to GOMAXPROCS.
func (c *WishartConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// ToClassifierConfig resolves defaults and returns the validated options for
// wishart.New.
func (c *WishartConfig) ToClassifierConfig() (wishart.Config, error) {
	kind, err := wishart.ParseKind(c.GetClassifier())
	if err != nil {
		return wishart.Config{}, err
	}
	cfg := wishart.Config{
		Kind:                   kind,
		MaxIterations:          c.GetMaxIterations(),
		NumInitialClasses:      c.GetNumInitialClasses(),
		NumFinalClasses:        c.GetNumFinalClasses(),
		MixedCategoryThreshold: c.GetMixedCategoryThreshold(),
		UseLeeHAlphaPlane:      c.GetUseLeeHAlphaPlane(),
		AnisotropySplit:        c.GetAnisotropySplit(),
		TileSize:               c.GetTileSize(),
		Workers:                c.GetWorkers(),
	}
	if err := cfg.Validate(); err != nil {
		return wishart.Config{}, err
	}
	return cfg, nil
}
