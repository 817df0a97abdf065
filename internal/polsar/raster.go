package polsar

import (
	"fmt"
	"math"
)

// MatrixKind distinguishes Pauli-basis coherency matrices (T) from
// lexicographic covariance matrices (C).
type MatrixKind int

const (
	Coherency MatrixKind = iota
	Covariance
)

func (k MatrixKind) String() string {
	switch k {
	case Coherency:
		return "T"
	case Covariance:
		return "C"
	default:
		return fmt.Sprintf("MatrixKind(%d)", int(k))
	}
}

// Source is a read-only, random-access view of per-pixel matrices.
// Pixel reports ok=false for no-data positions.
type Source interface {
	Width() int
	Height() int
	Order() int
	Kind() MatrixKind
	Pixel(x, y int) (Matrix, bool)
}

// element locates one band inside a Hermitian matrix.
type element struct {
	Row, Col int
	Imag     bool
}

// bandLayout lists the independent elements of an order-n Hermitian matrix
// in PolSARpro file order (11, 12re, 12im, 13re, 13im, 22, ...).
func bandLayout(order int) []element {
	var out []element
	for i := 0; i < order; i++ {
		for j := i; j < order; j++ {
			out = append(out, element{Row: i, Col: j})
			if j != i {
				out = append(out, element{Row: i, Col: j, Imag: true})
			}
		}
	}
	return out
}

// BandNames returns the PolSARpro band names for a matrix kind and order,
// e.g. T11, T12_real, T12_imag, ... T33.
func BandNames(kind MatrixKind, order int) []string {
	layout := bandLayout(order)
	names := make([]string, len(layout))
	for i, e := range layout {
		name := fmt.Sprintf("%s%d%d", kind, e.Row+1, e.Col+1)
		if e.Row != e.Col {
			if e.Imag {
				name += "_imag"
			} else {
				name += "_real"
			}
		}
		names[i] = name
	}
	return names
}

// Raster is an in-memory Source storing one float32 band per independent
// matrix element. A pixel is no-data when any diagonal band holds NaN or,
// if HasNoData is set, the NoData sentinel.
type Raster struct {
	width  int
	height int
	order  int
	kind   MatrixKind
	layout []element
	bands  [][]float32

	NoData    float32
	HasNoData bool
}

// NewRaster allocates a zero-filled raster.
func NewRaster(width, height, order int, kind MatrixKind) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("polsar: invalid raster size %dx%d", width, height)
	}
	if order != 2 && order != 3 {
		return nil, fmt.Errorf("polsar: unsupported matrix order %d", order)
	}
	layout := bandLayout(order)
	bands := make([][]float32, len(layout))
	for i := range bands {
		bands[i] = make([]float32, width*height)
	}
	return &Raster{width: width, height: height, order: order, kind: kind, layout: layout, bands: bands}, nil
}

// NewRasterFromBands wraps existing band slices, which must be in
// BandNames order and of length width*height.
func NewRasterFromBands(width, height, order int, kind MatrixKind, bands [][]float32) (*Raster, error) {
	r, err := NewRaster(width, height, order, kind)
	if err != nil {
		return nil, err
	}
	if len(bands) != len(r.layout) {
		return nil, fmt.Errorf("polsar: expected %d bands for order %d, got %d", len(r.layout), order, len(bands))
	}
	for i, b := range bands {
		if len(b) != width*height {
			return nil, fmt.Errorf("polsar: band %d has %d samples, want %d", i, len(b), width*height)
		}
	}
	r.bands = bands
	return r, nil
}

func (r *Raster) Width() int       { return r.width }
func (r *Raster) Height() int      { return r.height }
func (r *Raster) Order() int       { return r.order }
func (r *Raster) Kind() MatrixKind { return r.kind }

// Bands exposes the underlying band slices in BandNames order.
func (r *Raster) Bands() [][]float32 { return r.bands }

// Pixel implements Source.
func (r *Raster) Pixel(x, y int) (Matrix, bool) {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return Matrix{}, false
	}
	idx := y*r.width + x
	m := Matrix{N: r.order}
	for b, e := range r.layout {
		v := r.bands[b][idx]
		if e.Row == e.Col {
			if r.isNoData(v) {
				return Matrix{}, false
			}
			m.Re[e.Row][e.Row] = float64(v)
			continue
		}
		if e.Imag {
			m.Im[e.Row][e.Col] = float64(v)
			m.Im[e.Col][e.Row] = -float64(v)
		} else {
			m.Re[e.Row][e.Col] = float64(v)
			m.Re[e.Col][e.Row] = float64(v)
		}
	}
	return m, true
}

func (r *Raster) isNoData(v float32) bool {
	if math.IsNaN(float64(v)) {
		return true
	}
	return r.HasNoData && v == r.NoData
}

// SetPixel stores m at (x, y). The matrix order must match the raster.
func (r *Raster) SetPixel(x, y int, m Matrix) {
	idx := y*r.width + x
	for b, e := range r.layout {
		if e.Imag {
			r.bands[b][idx] = float32(m.Im[e.Row][e.Col])
		} else {
			r.bands[b][idx] = float32(m.Re[e.Row][e.Col])
		}
	}
}

// SetNoDataPixel marks (x, y) as no-data by writing NaN (or the sentinel,
// when one is configured) to the diagonal bands.
func (r *Raster) SetNoDataPixel(x, y int) {
	v := float32(math.NaN())
	if r.HasNoData {
		v = r.NoData
	}
	idx := y*r.width + x
	for b, e := range r.layout {
		if e.Row == e.Col {
			r.bands[b][idx] = v
		} else {
			r.bands[b][idx] = 0
		}
	}
}
