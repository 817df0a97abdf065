package polsar

import (
	"fmt"
	"math"
	"math/rand"
)

// SyntheticGenerator produces coherency rasters made of vertical stripes,
// one stripe per centre matrix, for tests and demos.
type SyntheticGenerator struct {
	Width   int
	Height  int
	Looks   int // 0 writes the centre matrices exactly
	Centers []Matrix

	rng *rand.Rand
}

// NewSyntheticGenerator creates a 64×64 noiseless generator with a fixed
// seed.
func NewSyntheticGenerator(seed int64, centers ...Matrix) *SyntheticGenerator {
	return &SyntheticGenerator{
		Width:   64,
		Height:  64,
		Centers: centers,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Region returns the stripe index of column x.
func (g *SyntheticGenerator) Region(x int) int {
	return x * len(g.Centers) / g.Width
}

// Generate builds the raster and the per-pixel generating label (stripe
// index, row-major).
func (g *SyntheticGenerator) Generate() (*Raster, []int, error) {
	if len(g.Centers) == 0 {
		return nil, nil, fmt.Errorf("polsar: synthetic scene needs at least one centre")
	}
	order := g.Centers[0].N
	for i, c := range g.Centers {
		if c.N != order {
			return nil, nil, fmt.Errorf("polsar: centre %d has order %d, want %d", i, c.N, order)
		}
	}
	r, err := NewRaster(g.Width, g.Height, order, Coherency)
	if err != nil {
		return nil, nil, err
	}

	factors := make([][][]complex128, len(g.Centers))
	if g.Looks > 0 {
		for i, c := range g.Centers {
			f, err := sqrtFactor(c)
			if err != nil {
				return nil, nil, fmt.Errorf("polsar: centre %d: %w", i, err)
			}
			factors[i] = f
		}
	}

	labels := make([]int, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			region := g.Region(x)
			labels[y*g.Width+x] = region
			if g.Looks <= 0 {
				r.SetPixel(x, y, g.Centers[region])
				continue
			}
			r.SetPixel(x, y, g.sample(factors[region], order))
		}
	}
	return r, labels, nil
}

// sample draws one multi-look matrix (1/L) Σ k kᴴ with k = F·z and z a
// unit-variance circular complex Gaussian vector.
func (g *SyntheticGenerator) sample(f [][]complex128, order int) Matrix {
	var acc [3][3]complex128
	k := make([]complex128, order)
	z := make([]complex128, order)
	for l := 0; l < g.Looks; l++ {
		for i := range z {
			z[i] = complex(g.rng.NormFloat64()/math.Sqrt2, g.rng.NormFloat64()/math.Sqrt2)
		}
		for i := 0; i < order; i++ {
			k[i] = 0
			for j := 0; j < order; j++ {
				k[i] += f[i][j] * z[j]
			}
		}
		for i := 0; i < order; i++ {
			for j := 0; j < order; j++ {
				acc[i][j] += k[i] * complex(real(k[j]), -imag(k[j]))
			}
		}
	}
	inv := complex(1/float64(g.Looks), 0)
	for i := 0; i < order; i++ {
		for j := 0; j < order; j++ {
			acc[i][j] *= inv
		}
	}
	return fromComplexArray(order, acc)
}

// sqrtFactor returns F = V·sqrt(Λ) so that F·Fᴴ = c.
func sqrtFactor(c Matrix) ([][]complex128, error) {
	eig, err := EigenHermitian(c)
	if err != nil {
		return nil, err
	}
	n := c.N
	f := make([][]complex128, n)
	for i := range f {
		f[i] = make([]complex128, n)
		for j := 0; j < n; j++ {
			s := math.Sqrt(math.Max(eig.Values[j], 0))
			f[i][j] = eig.Vectors[j][i] * complex(s, 0)
		}
	}
	return f, nil
}
