// Package testutil provides shared test fixtures for the classifier
// packages: small rasters with known content and helpers to compare them.
package testutil

import (
	"testing"

	"github.com/banshee-data/wishart/internal/polsar"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// DyadicT3 is a Hermitian coherency matrix whose elements are exact in
// float32, so sums and means over it are exact.
func DyadicT3() polsar.Matrix {
	m := polsar.Diagonal(2, 1, 0.5)
	m.SetElement(0, 1, 0.25, 0.125)
	return m
}

// Surface and Double are well separated single-mechanism coherency
// matrices (low entropy, alpha near 14° and 80°).
var (
	Surface = polsar.Diagonal(8, 1, 0.5)
	Double  = polsar.Diagonal(1, 8, 0.5)
)

// UniformRaster returns a w×h coherency raster with every pixel set to m.
func UniformRaster(t testing.TB, w, h int, m polsar.Matrix) *polsar.Raster {
	t.Helper()
	r, err := polsar.NewRaster(w, h, m.N, polsar.Coherency)
	AssertNoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r.SetPixel(x, y, m)
		}
	}
	return r
}

// StripedRaster returns a noiseless raster with one vertical stripe per
// centre and the generating label of every pixel.
func StripedRaster(t testing.TB, w, h int, centers ...polsar.Matrix) (*polsar.Raster, []int) {
	t.Helper()
	g := polsar.NewSyntheticGenerator(1, centers...)
	g.Width, g.Height = w, h
	r, labels, err := g.Generate()
	AssertNoError(t, err)
	return r, labels
}

// NoisyRaster is StripedRaster with Wishart-distributed samples of the
// given number of looks.
func NoisyRaster(t testing.TB, w, h, looks int, seed int64, centers ...polsar.Matrix) (*polsar.Raster, []int) {
	t.Helper()
	g := polsar.NewSyntheticGenerator(seed, centers...)
	g.Width, g.Height = w, h
	g.Looks = looks
	r, labels, err := g.Generate()
	AssertNoError(t, err)
	return r, labels
}

// Agreement returns the fraction of pixels whose class is consistent with
// the generating label under the majority class-per-label mapping. Pixels
// with class 0 count as disagreement.
func Agreement(classes []uint16, labels []int) float64 {
	if len(classes) == 0 {
		return 0
	}
	votes := make(map[int]map[uint16]int)
	for i, l := range labels {
		if votes[l] == nil {
			votes[l] = make(map[uint16]int)
		}
		votes[l][classes[i]]++
	}
	agree := 0
	for _, v := range votes {
		best, bestClass := 0, uint16(0)
		for c, n := range v {
			if n > best || (n == best && c < bestClass) {
				best, bestClass = n, c
			}
		}
		if bestClass != 0 {
			agree += best
		}
	}
	return float64(agree) / float64(len(classes))
}
