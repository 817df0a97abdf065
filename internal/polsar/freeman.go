package polsar

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FreemanPowers are the volume, double-bounce and surface scattering
// powers of the Freeman-Durden three-component model.
type FreemanPowers struct {
	Volume  float64
	Double  float64
	Surface float64
}

// Total returns pv + pd + ps.
func (p FreemanPowers) Total() float64 {
	return floats.Sum([]float64{p.Volume, p.Double, p.Surface})
}

const freemanEpsilon = 1e-10

// FreemanDurden decomposes a lexicographic covariance matrix C3.
//
// The volume contribution is fixed by the cross-pol term and removed from
// the co-pol terms. When the remainder is not physically realisable the
// pixel is attributed entirely to volume scattering. Otherwise the sign of
// Re<ShhSvv*> decides whether alpha (surface dominant) or beta (double
// bounce dominant) is fixed.
func FreemanDurden(c Matrix) FreemanPowers {
	if c.N != 3 {
		return FreemanPowers{Volume: math.NaN(), Double: math.NaN(), Surface: math.NaN()}
	}
	c11 := c.Re[0][0]
	c22 := c.Re[1][1]
	c33 := c.Re[2][2]
	c13re := c.Re[0][2]
	c13im := c.Im[0][2]
	span := c11 + c22 + c33

	fv := 3 * c22 / 2
	c11 -= fv
	c33 -= fv
	c13re -= fv / 3

	if c11 <= freemanEpsilon || c33 <= freemanEpsilon {
		return FreemanPowers{Volume: span}
	}

	// Rescale a non-realisable ShhSvv* term onto the boundary.
	if mag := c13re*c13re + c13im*c13im; mag > c11*c33 {
		f := math.Sqrt(c11 * c33 / mag)
		c13re *= f
		c13im *= f
	}

	var fs, fd, alp, bet float64
	if c13re >= 0 {
		alp = -1
		fd = (c11*c33 - c13re*c13re - c13im*c13im) / (c11 + c33 + 2*c13re)
		fs = c33 - fd
		if fs > 0 {
			bet = math.Sqrt((fd+c13re)*(fd+c13re)+c13im*c13im) / fs
		}
	} else {
		bet = 1
		fs = (c11*c33 - c13re*c13re - c13im*c13im) / (c11 + c33 - 2*c13re)
		fd = c33 - fs
		if fd > 0 {
			alp = math.Sqrt((fs-c13re)*(fs-c13re)+c13im*c13im) / fd
		}
	}

	out := FreemanPowers{
		Volume:  8 * fv / 3,
		Double:  fd * (1 + alp*alp),
		Surface: fs * (1 + bet*bet),
	}
	if out.Double < 0 {
		out.Double = 0
	}
	if out.Surface < 0 {
		out.Surface = 0
	}
	return out
}
