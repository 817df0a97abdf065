package polsar

import (
	"context"
	"fmt"

	"github.com/banshee-data/wishart/internal/tiling"
)

// Boxcar multi-looks src with a square window of the given (odd) size and
// returns the averaged raster. Only valid neighbours inside the image are
// averaged; a no-data centre pixel stays no-data. A window of 1 copies src.
func Boxcar(ctx context.Context, src Source, window, tileSize, workers int) (*Raster, error) {
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("polsar: boxcar window must be a positive odd number, got %d", window)
	}
	w, h := src.Width(), src.Height()
	out, err := NewRaster(w, h, src.Order(), src.Kind())
	if err != nil {
		return nil, err
	}
	half := window / 2

	tiles := tiling.Split(w, h, tileSize, tileSize)
	err = tiling.Run(ctx, "multi-look averaging", tiles, workers, func(_ context.Context, t tiling.Tile) error {
		for y := t.Y; y < t.Y+t.H; y++ {
			for x := t.X; x < t.X+t.W; x++ {
				if _, ok := src.Pixel(x, y); !ok {
					out.SetNoDataPixel(x, y)
					continue
				}
				sum := NewMatrix(src.Order())
				n := 0
				for yy := max(0, y-half); yy <= min(h-1, y+half); yy++ {
					for xx := max(0, x-half); xx <= min(w-1, x+half); xx++ {
						m, ok := src.Pixel(xx, yy)
						if !ok || !m.IsFinite() {
							continue
						}
						sum.Accumulate(m)
						n++
					}
				}
				if n == 0 {
					out.SetNoDataPixel(x, y)
					continue
				}
				out.SetPixel(x, y, sum.Scale(1/float64(n)))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
