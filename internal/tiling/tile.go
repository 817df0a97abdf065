// Package tiling splits a raster into rectangular tiles and runs per-tile
// work on a bounded worker pool.
package tiling

import "fmt"

// DefaultTileSize is the edge length used when callers pass a size <= 0.
const DefaultTileSize = 256

// Tile is a rectangle of pixels [X, X+W) × [Y, Y+H).
type Tile struct {
	X, Y int
	W, H int
}

// Pixels returns the number of pixels covered by the tile.
func (t Tile) Pixels() int { return t.W * t.H }

// Contains reports whether (x, y) lies inside the tile.
func (t Tile) Contains(x, y int) bool {
	return x >= t.X && x < t.X+t.W && y >= t.Y && y < t.Y+t.H
}

func (t Tile) String() string {
	return fmt.Sprintf("tile (x=%d,y=%d,w=%d,h=%d)", t.X, t.Y, t.W, t.H)
}

// Split covers a width×height raster with tiles of at most
// tileW×tileH pixels in row-major order. Edge tiles are truncated.
func Split(width, height, tileW, tileH int) []Tile {
	if width <= 0 || height <= 0 {
		return nil
	}
	if tileW <= 0 {
		tileW = DefaultTileSize
	}
	if tileH <= 0 {
		tileH = DefaultTileSize
	}
	tiles := make([]Tile, 0, ((width+tileW-1)/tileW)*((height+tileH-1)/tileH))
	for y := 0; y < height; y += tileH {
		h := min(tileH, height-y)
		for x := 0; x < width; x += tileW {
			w := min(tileW, width-x)
			tiles = append(tiles, Tile{X: x, Y: y, W: w, H: h})
		}
	}
	return tiles
}
