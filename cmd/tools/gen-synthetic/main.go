// Command gen-synthetic writes a synthetic PolSARpro T3 (or C2) directory
// made of vertical stripes, each drawn from a Wishart distribution around a
// known coherency matrix, plus the ground-truth region labels.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/banshee-data/wishart/internal/fsutil"
	"github.com/banshee-data/wishart/internal/polsar"
	"github.com/banshee-data/wishart/internal/polsarpro"
)

// LabelFile holds the region of every pixel, 1-based, as float32.
const LabelFile = "labels.bin"

// sceneCenters are surface, double bounce, volume and a mixed mechanism.
func sceneCenters(dual bool) []polsar.Matrix {
	if dual {
		return []polsar.Matrix{
			polsar.Diagonal(4, 0.5),
			polsar.Diagonal(1, 1),
			polsar.Diagonal(0.5, 3),
		}
	}
	mixed := polsar.Diagonal(3, 2, 1)
	mixed.SetElement(0, 1, 0.5, 0.25)
	return []polsar.Matrix{
		polsar.Diagonal(8, 1, 0.5),
		polsar.Diagonal(1, 8, 0.5),
		polsar.Diagonal(3, 2.5, 2),
		mixed,
	}
}

func generate(fsys fsutil.FileSystem, out string, width, height, looks int, seed int64, dual bool) error {
	g := polsar.NewSyntheticGenerator(seed, sceneCenters(dual)...)
	g.Width, g.Height, g.Looks = width, height, looks
	r, labels, err := g.Generate()
	if err != nil {
		return err
	}
	if dual {
		// Dual-pol scenes are stored as C2.
		if r, err = polsar.NewRasterFromBands(width, height, 2, polsar.Covariance, r.Bands()); err != nil {
			return err
		}
	}
	if err := polsarpro.WriteDir(fsys, out, r); err != nil {
		return err
	}
	classes := make([]uint16, len(labels))
	for i, l := range labels {
		classes[i] = uint16(l + 1)
	}
	return polsarpro.WriteClassRaster(fsys, out, LabelFile, width, height, classes)
}

func main() {
	out := flag.String("out", "synthetic/T3", "Output directory")
	size := flag.Int("size", 256, "Width and height in pixels")
	looks := flag.Int("looks", 4, "Number of looks per pixel (0 writes the exact centres)")
	seed := flag.Int64("seed", 1, "Random seed")
	dual := flag.Bool("dual", false, "Write a dual-pol C2 scene instead of T3")
	flag.Parse()

	if *size <= 0 {
		log.Fatalf("-size must be positive, got %d", *size)
	}
	dir := *out
	if *dual && filepath.Base(dir) == "T3" {
		dir = filepath.Join(filepath.Dir(dir), "C2")
	}
	if err := generate(fsutil.OSFileSystem{}, dir, *size, *size, *looks, *seed, *dual); err != nil {
		log.Fatalf("failed to generate scene: %v", err)
	}
	fmt.Printf("wrote %dx%d scene to %s\n", *size, *size, dir)
}
