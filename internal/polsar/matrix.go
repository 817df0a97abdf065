// Package polsar holds the per-pixel data model for polarimetric SAR
// imagery: Hermitian coherency/covariance matrices, raster views over
// them, multi-look averaging and the scalar decompositions (H-A-Alpha,
// Freeman-Durden) used to seed the Wishart classifier.
package polsar

import (
	"errors"
	"fmt"
	"math"
)

// ErrSingular is returned when a matrix has no usable inverse.
var ErrSingular = errors.New("polsar: singular matrix")

// Matrix is a Hermitian matrix of order 2 or 3 stored as separate real and
// imaginary parts. Cells outside the N×N block are always zero and the
// imaginary diagonal is kept at zero.
type Matrix struct {
	N  int
	Re [3][3]float64
	Im [3][3]float64
}

// NewMatrix returns a zero matrix of the given order.
func NewMatrix(order int) Matrix {
	return Matrix{N: order}
}

// Diagonal builds a real diagonal matrix from the given values. The order
// is the number of values.
func Diagonal(values ...float64) Matrix {
	m := Matrix{N: len(values)}
	for i, v := range values {
		m.Re[i][i] = v
	}
	return m
}

// SetElement sets element (i, j) and its Hermitian mirror (j, i).
func (m *Matrix) SetElement(i, j int, re, im float64) {
	if i == j {
		m.Re[i][i] = re
		m.Im[i][i] = 0
		return
	}
	m.Re[i][j] = re
	m.Im[i][j] = im
	m.Re[j][i] = re
	m.Im[j][i] = -im
}

// At returns element (i, j) as a complex number.
func (m Matrix) At(i, j int) complex128 {
	return complex(m.Re[i][j], m.Im[i][j])
}

// Add returns m + b.
func (m Matrix) Add(b Matrix) Matrix {
	out := Matrix{N: m.N}
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			out.Re[i][j] = m.Re[i][j] + b.Re[i][j]
			out.Im[i][j] = m.Im[i][j] + b.Im[i][j]
		}
	}
	return out
}

// Accumulate adds b into m in place.
func (m *Matrix) Accumulate(b Matrix) {
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			m.Re[i][j] += b.Re[i][j]
			m.Im[i][j] += b.Im[i][j]
		}
	}
}

// Scale returns f·m.
func (m Matrix) Scale(f float64) Matrix {
	out := Matrix{N: m.N}
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			out.Re[i][j] = m.Re[i][j] * f
			out.Im[i][j] = m.Im[i][j] * f
		}
	}
	return out
}

// Trace returns the (real) trace, the span of a coherency matrix.
func (m Matrix) Trace() float64 {
	t := 0.0
	for i := 0; i < m.N; i++ {
		t += m.Re[i][i]
	}
	return t
}

// Det returns the determinant. For a Hermitian matrix it is real.
func (m Matrix) Det() float64 {
	switch m.N {
	case 2:
		return m.Re[0][0]*m.Re[1][1] - (m.Re[0][1]*m.Re[0][1] + m.Im[0][1]*m.Im[0][1])
	case 3:
		a := m.complexArray()
		d := a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
			a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
			a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
		return real(d)
	}
	return math.NaN()
}

// Inverse returns the inverse using the closed-form adjugate expansion.
// ErrSingular is returned when the determinant is zero or not finite.
func (m Matrix) Inverse() (Matrix, error) {
	det := m.Det()
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Matrix{}, ErrSingular
	}
	out := Matrix{N: m.N}
	switch m.N {
	case 2:
		inv := 1 / det
		out.Re[0][0] = m.Re[1][1] * inv
		out.Re[1][1] = m.Re[0][0] * inv
		out.Re[0][1] = -m.Re[0][1] * inv
		out.Im[0][1] = -m.Im[0][1] * inv
		out.Re[1][0] = -m.Re[1][0] * inv
		out.Im[1][0] = -m.Im[1][0] * inv
	case 3:
		a := m.complexArray()
		var adj [3][3]complex128
		adj[0][0] = a[1][1]*a[2][2] - a[1][2]*a[2][1]
		adj[0][1] = a[0][2]*a[2][1] - a[0][1]*a[2][2]
		adj[0][2] = a[0][1]*a[1][2] - a[0][2]*a[1][1]
		adj[1][0] = a[1][2]*a[2][0] - a[1][0]*a[2][2]
		adj[1][1] = a[0][0]*a[2][2] - a[0][2]*a[2][0]
		adj[1][2] = a[0][2]*a[1][0] - a[0][0]*a[1][2]
		adj[2][0] = a[1][0]*a[2][1] - a[1][1]*a[2][0]
		adj[2][1] = a[0][1]*a[2][0] - a[0][0]*a[2][1]
		adj[2][2] = a[0][0]*a[1][1] - a[0][1]*a[1][0]
		inv := complex(1/det, 0)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				v := adj[i][j] * inv
				out.Re[i][j] = real(v)
				out.Im[i][j] = imag(v)
			}
			out.Im[i][i] = 0
		}
	default:
		return Matrix{}, fmt.Errorf("polsar: unsupported matrix order %d", m.N)
	}
	return out, nil
}

// TraceProduct returns Re(tr(a·b)).
func TraceProduct(a, b Matrix) float64 {
	t := 0.0
	for i := 0; i < a.N; i++ {
		for j := 0; j < a.N; j++ {
			// Re(a_ij * b_ji)
			t += a.Re[i][j]*b.Re[j][i] - a.Im[i][j]*b.Im[j][i]
		}
	}
	return t
}

// SquaredDifference returns the sum of squared element differences of the
// real and imaginary parts.
func SquaredDifference(a, b Matrix) float64 {
	s := 0.0
	for i := 0; i < a.N; i++ {
		for j := 0; j < a.N; j++ {
			dr := a.Re[i][j] - b.Re[i][j]
			di := a.Im[i][j] - b.Im[i][j]
			s += dr*dr + di*di
		}
	}
	return s
}

// IsFinite reports whether every element is a finite number.
func (m Matrix) IsFinite() bool {
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			if math.IsNaN(m.Re[i][j]) || math.IsInf(m.Re[i][j], 0) ||
				math.IsNaN(m.Im[i][j]) || math.IsInf(m.Im[i][j], 0) {
				return false
			}
		}
	}
	return true
}

// Valid reports whether the matrix can take part in clustering: finite
// elements and a strictly positive determinant.
func (m Matrix) Valid() bool {
	if (m.N != 2 && m.N != 3) || !m.IsFinite() {
		return false
	}
	return m.Det() > 0
}

func (m Matrix) complexArray() [3][3]complex128 {
	var a [3][3]complex128
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			a[i][j] = complex(m.Re[i][j], m.Im[i][j])
		}
	}
	return a
}

func fromComplexArray(n int, a [3][3]complex128) Matrix {
	m := Matrix{N: n}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Re[i][j] = real(a[i][j])
			m.Im[i][j] = imag(a[i][j])
		}
		m.Im[i][i] = 0
	}
	return m
}

// pauli is the real orthogonal change of basis between the lexicographic
// and Pauli scattering vectors: k_pauli = pauli · k_lex.
var pauli = [3][3]float64{
	{math.Sqrt2 / 2, 0, math.Sqrt2 / 2},
	{math.Sqrt2 / 2, 0, -math.Sqrt2 / 2},
	{0, 1, 0},
}

// CovarianceToCoherency converts a C3 matrix to T3 (T = D·C·Dᵀ).
func CovarianceToCoherency(c Matrix) Matrix {
	if c.N != 3 {
		return c
	}
	return congruence(c, pauli, false)
}

// CoherencyToCovariance converts a T3 matrix to C3 (C = Dᵀ·T·D).
func CoherencyToCovariance(t Matrix) Matrix {
	if t.N != 3 {
		return t
	}
	return congruence(t, pauli, true)
}

// congruence computes D·M·Dᵀ, or Dᵀ·M·D when transpose is set.
func congruence(m Matrix, d [3][3]float64, transpose bool) Matrix {
	a := m.complexArray()
	at := func(i, j int) complex128 {
		if transpose {
			return complex(d[j][i], 0)
		}
		return complex(d[i][j], 0)
	}
	var out [3][3]complex128
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s complex128
			for k := 0; k < 3; k++ {
				if at(i, k) == 0 {
					continue
				}
				for l := 0; l < 3; l++ {
					s += at(i, k) * a[k][l] * at(j, l)
				}
			}
			out[i][j] = s
		}
	}
	return fromComplexArray(3, out)
}

// String formats the matrix rows for logs and test failures.
func (m Matrix) String() string {
	s := ""
	for i := 0; i < m.N; i++ {
		s += "["
		for j := 0; j < m.N; j++ {
			if j > 0 {
				s += " "
			}
			if m.Im[i][j] == 0 {
				s += fmt.Sprintf("%.4g", m.Re[i][j])
			} else {
				s += fmt.Sprintf("%.4g%+.4gi", m.Re[i][j], m.Im[i][j])
			}
		}
		s += "]"
	}
	return s
}
