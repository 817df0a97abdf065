package polsar

import (
	"math"
	"math/cmplx"
)

// HAAlpha holds the Cloude-Pottier eigen parameters of one pixel. Alpha is
// in degrees.
type HAAlpha struct {
	Entropy    float64
	Anisotropy float64
	Alpha      float64
}

// Finite reports whether all three parameters could be computed.
func (h HAAlpha) Finite() bool {
	return !math.IsNaN(h.Entropy) && !math.IsInf(h.Entropy, 0) &&
		!math.IsNaN(h.Anisotropy) && !math.IsInf(h.Anisotropy, 0) &&
		!math.IsNaN(h.Alpha) && !math.IsInf(h.Alpha, 0)
}

var nanHAAlpha = HAAlpha{Entropy: math.NaN(), Anisotropy: math.NaN(), Alpha: math.NaN()}

// ComputeHAAlpha derives entropy, anisotropy and mean alpha from a
// coherency matrix (T3 for quad-pol, C2/T2 for dual-pol). The entropy
// logarithm base is the matrix order so that H lies in [0, 1]. Pixels
// whose decomposition fails or whose eigenvalues sum to zero yield NaN
// values.
func ComputeHAAlpha(t Matrix) HAAlpha {
	eig, err := EigenHermitian(t)
	if err != nil {
		return nanHAAlpha
	}
	n := t.N
	lambda := make([]float64, n)
	sum := 0.0
	for i, v := range eig.Values {
		if v < 0 {
			v = 0
		}
		lambda[i] = v
		sum += v
	}
	if sum <= 0 {
		return nanHAAlpha
	}

	logBase := math.Log(float64(n))
	var out HAAlpha
	for i := 0; i < n; i++ {
		p := lambda[i] / sum
		if p > 0 {
			out.Entropy -= p * math.Log(p) / logBase
		}
		first := cmplx.Abs(eig.Vectors[i][0])
		if first > 1 {
			first = 1
		}
		out.Alpha += p * math.Acos(first) * 180 / math.Pi
	}

	// Anisotropy compares the two minor eigenvalues; dual-pol only has two.
	a, b := lambda[n-2], lambda[n-1]
	if n == 2 {
		a, b = lambda[0], lambda[1]
	}
	if a+b > 0 {
		out.Anisotropy = (a - b) / (a + b)
	}
	return out
}

// NumZones is the number of zones in the H-Alpha plane.
const NumZones = 9

// ZoneIndex maps (entropy, alpha in degrees) to a zone in 1..9. Zones 1..3
// are high entropy, 4..6 medium and 7..9 low entropy; within each entropy
// band the zone number increases as alpha decreases.
//
// The default plane uses the Cloude-Pottier boundaries; the Lee plane uses
// the rounded low-entropy alpha limits (48°, 42°) found in PolSARpro.
func ZoneIndex(entropy, alpha float64, useLeePlane bool) int {
	lowHigh, lowMid := 47.5, 42.5
	if useLeePlane {
		lowHigh, lowMid = 48.0, 42.0
	}
	switch {
	case entropy > 0.9:
		switch {
		case alpha > 55:
			return 1
		case alpha > 40:
			return 2
		default:
			return 3
		}
	case entropy > 0.5:
		switch {
		case alpha > 50:
			return 4
		case alpha > 40:
			return 5
		default:
			return 6
		}
	default:
		switch {
		case alpha > lowHigh:
			return 7
		case alpha > lowMid:
			return 8
		default:
			return 9
		}
	}
}
