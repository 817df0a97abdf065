package polsar

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// Eigen holds the eigenvalues of a Hermitian matrix in descending order and
// the matching unit eigenvectors (Vectors[k] belongs to Values[k]).
type Eigen struct {
	Values  []float64
	Vectors [][]complex128
}

// EigenHermitian decomposes a Hermitian matrix of order n.
//
// The matrix H = A + iB is embedded into the 2n×2n real symmetric matrix
// [[A, -B], [B, A]], whose spectrum is the spectrum of H with every
// eigenvalue doubled. Each eigenvector [x; y] of the embedding maps to the
// complex vector x + iy; the duplicate (i times the same vector) is removed
// by Gram-Schmidt against the vectors already accepted.
func EigenHermitian(m Matrix) (Eigen, error) {
	n := m.N
	if n != 2 && n != 3 {
		return Eigen{}, fmt.Errorf("polsar: unsupported matrix order %d", n)
	}
	if !m.IsFinite() {
		return Eigen{}, fmt.Errorf("polsar: non-finite matrix")
	}

	dim := 2 * n
	data := make([]float64, dim*dim)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			re, im := m.Re[i][j], m.Im[i][j]
			data[i*dim+j] = re
			data[(i+n)*dim+j+n] = re
			data[i*dim+j+n] = -im
			data[(i+n)*dim+j] = im
		}
	}
	sym := mat.NewSymDense(dim, data)

	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return Eigen{}, fmt.Errorf("polsar: eigen-decomposition did not converge")
	}
	values := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	out := Eigen{
		Values:  make([]float64, 0, n),
		Vectors: make([][]complex128, 0, n),
	}
	// gonum returns ascending eigenvalues; walk from the largest.
	for k := dim - 1; k >= 0 && len(out.Values) < n; k-- {
		v := make([]complex128, n)
		for i := 0; i < n; i++ {
			v[i] = complex(vecs.At(i, k), vecs.At(i+n, k))
		}
		for _, u := range out.Vectors {
			p := innerProduct(u, v)
			for i := range v {
				v[i] -= p * u[i]
			}
		}
		norm := vectorNorm(v)
		if norm < 0.5 {
			// Duplicate of an accepted vector (it was i·u).
			continue
		}
		for i := range v {
			v[i] /= complex(norm, 0)
		}
		out.Values = append(out.Values, values[k])
		out.Vectors = append(out.Vectors, v)
	}
	if len(out.Values) != n {
		return Eigen{}, fmt.Errorf("polsar: recovered %d of %d eigenvectors", len(out.Values), n)
	}
	return out, nil
}

// innerProduct returns <u, v> = Σ conj(u_i) v_i.
func innerProduct(u, v []complex128) complex128 {
	var s complex128
	for i := range u {
		s += cmplx.Conj(u[i]) * v[i]
	}
	return s
}

func vectorNorm(v []complex128) float64 {
	s := 0.0
	for _, c := range v {
		a := cmplx.Abs(c)
		s += a * a
	}
	return math.Sqrt(s)
}
