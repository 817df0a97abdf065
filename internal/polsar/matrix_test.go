package polsar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// product returns a·b for tests.
func product(a, b Matrix) Matrix {
	ac, bc := a.complexArray(), b.complexArray()
	var out [3][3]complex128
	for i := 0; i < a.N; i++ {
		for j := 0; j < a.N; j++ {
			for k := 0; k < a.N; k++ {
				out[i][j] += ac[i][k] * bc[k][j]
			}
		}
	}
	m := Matrix{N: a.N}
	for i := 0; i < a.N; i++ {
		for j := 0; j < a.N; j++ {
			m.Re[i][j] = real(out[i][j])
			m.Im[i][j] = imag(out[i][j])
		}
	}
	return m
}

func assertIdentity(t *testing.T, m Matrix) {
	t.Helper()
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, m.Re[i][j], 1e-12, "re[%d][%d]", i, j)
			assert.InDelta(t, 0, m.Im[i][j], 1e-12, "im[%d][%d]", i, j)
		}
	}
}

func sampleT3() Matrix {
	m := Diagonal(4, 2, 1)
	m.SetElement(0, 1, 0.5, 0.25)
	m.SetElement(0, 2, -0.25, 0.5)
	m.SetElement(1, 2, 0.125, -0.375)
	return m
}

func TestSetElementMirrorsConjugate(t *testing.T) {
	m := NewMatrix(3)
	m.SetElement(0, 2, 1.5, -2)
	assert.Equal(t, complex(1.5, -2), m.At(0, 2))
	assert.Equal(t, complex(1.5, 2), m.At(2, 0))

	m.SetElement(1, 1, 3, 7)
	assert.Equal(t, complex(3, 0), m.At(1, 1))
}

func TestDet(t *testing.T) {
	assert.Equal(t, 24.0, Diagonal(2, 3, 4).Det())

	m := Diagonal(2, 3)
	m.SetElement(0, 1, 1, 1)
	assert.InDelta(t, 4.0, m.Det(), 1e-15)

	assert.True(t, math.IsNaN(Matrix{N: 4}.Det()))
}

func TestInverse(t *testing.T) {
	t.Run("diagonal", func(t *testing.T) {
		inv, err := Diagonal(2, 4, 8).Inverse()
		require.NoError(t, err)
		assert.Equal(t, Diagonal(0.5, 0.25, 0.125), inv)
	})

	t.Run("complex order 2", func(t *testing.T) {
		m := Diagonal(2, 3)
		m.SetElement(0, 1, 1, 1)
		inv, err := m.Inverse()
		require.NoError(t, err)
		assert.InDelta(t, 0.75, inv.Re[0][0], 1e-15)
		assert.InDelta(t, 0.5, inv.Re[1][1], 1e-15)
		assert.InDelta(t, -0.25, inv.Re[0][1], 1e-15)
		assert.InDelta(t, -0.25, inv.Im[0][1], 1e-15)
		assertIdentity(t, product(m, inv))
	})

	t.Run("complex order 3", func(t *testing.T) {
		m := sampleT3()
		inv, err := m.Inverse()
		require.NoError(t, err)
		assertIdentity(t, product(m, inv))
		assertIdentity(t, product(inv, m))
	})

	t.Run("singular", func(t *testing.T) {
		_, err := Diagonal(1, 0, 1).Inverse()
		assert.ErrorIs(t, err, ErrSingular)

		nan := Diagonal(1, 1, 1)
		nan.Re[1][1] = math.NaN()
		_, err = nan.Inverse()
		assert.ErrorIs(t, err, ErrSingular)
	})
}

func TestTraceProduct(t *testing.T) {
	m := sampleT3()
	inv, err := m.Inverse()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, TraceProduct(inv, m), 1e-12)
	assert.Equal(t, 7.0, TraceProduct(Diagonal(1, 1, 1), m))
}

func TestSquaredDifference(t *testing.T) {
	a := Diagonal(1, 2)
	b := Diagonal(1, 2)
	assert.Zero(t, SquaredDifference(a, b))

	b.SetElement(0, 1, 1, 2)
	// (0,1) and (1,0) both differ by 1+2i and 1-2i.
	assert.Equal(t, 10.0, SquaredDifference(a, b))
}

func TestValid(t *testing.T) {
	assert.True(t, sampleT3().Valid())
	assert.False(t, Diagonal(1, 0, 1).Valid())
	assert.False(t, Matrix{N: 1}.Valid())

	inf := Diagonal(1, 1)
	inf.Re[0][0] = math.Inf(1)
	assert.False(t, inf.Valid())
}

func TestCoherencyCovarianceRoundTrip(t *testing.T) {
	tm := sampleT3()
	c := CoherencyToCovariance(tm)
	back := CovarianceToCoherency(c)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, tm.Re[i][j], back.Re[i][j], 1e-12)
			assert.InDelta(t, tm.Im[i][j], back.Im[i][j], 1e-12)
		}
	}
	assert.InDelta(t, tm.Trace(), c.Trace(), 1e-12)
	assert.InDelta(t, tm.Det(), c.Det(), 1e-12)
}

func TestCoherencyToCovarianceDiagonal(t *testing.T) {
	c := CoherencyToCovariance(Diagonal(8, 1, 0.5))
	assert.InDelta(t, 4.5, c.Re[0][0], 1e-12)
	assert.InDelta(t, 0.5, c.Re[1][1], 1e-12)
	assert.InDelta(t, 4.5, c.Re[2][2], 1e-12)
	assert.InDelta(t, 3.5, c.Re[0][2], 1e-12)
	assert.InDelta(t, 0, c.Re[0][1], 1e-12)
}

func TestConversionLeavesDualPolUntouched(t *testing.T) {
	m := Diagonal(1, 2)
	assert.Equal(t, m, CoherencyToCovariance(m))
	assert.Equal(t, m, CovarianceToCoherency(m))
}

func TestString(t *testing.T) {
	m := Diagonal(1, 2)
	m.SetElement(0, 1, 0.5, 0.25)
	assert.Equal(t, "[1 0.5+0.25i][0.5-0.25i 2]", m.String())
}
