package tiling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		tw, th        int
		wantCount     int
		wantLast      Tile
	}{
		{"exact", 8, 8, 4, 4, 4, Tile{X: 4, Y: 4, W: 4, H: 4}},
		{"truncated edges", 10, 5, 4, 4, 6, Tile{X: 8, Y: 4, W: 2, H: 1}},
		{"single tile", 3, 3, 16, 16, 1, Tile{X: 0, Y: 0, W: 3, H: 3}},
		{"default size", 300, 10, 0, 0, 2, Tile{X: 256, Y: 0, W: 44, H: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiles := Split(tt.width, tt.height, tt.tw, tt.th)
			require.Len(t, tiles, tt.wantCount)
			assert.Equal(t, tt.wantLast, tiles[len(tiles)-1])

			covered := 0
			for _, tile := range tiles {
				covered += tile.Pixels()
			}
			assert.Equal(t, tt.width*tt.height, covered)
		})
	}
}

func TestSplitEmpty(t *testing.T) {
	assert.Nil(t, Split(0, 10, 4, 4))
	assert.Nil(t, Split(10, -1, 4, 4))
}

func TestTileContains(t *testing.T) {
	tile := Tile{X: 2, Y: 3, W: 2, H: 2}
	assert.True(t, tile.Contains(2, 3))
	assert.True(t, tile.Contains(3, 4))
	assert.False(t, tile.Contains(4, 4))
	assert.False(t, tile.Contains(2, 2))
}

func TestRunVisitsEveryTile(t *testing.T) {
	tiles := Split(64, 64, 8, 8)
	var mu sync.Mutex
	seen := make(map[Tile]int)

	err := Run(context.Background(), "counting", tiles, 4, func(_ context.Context, tile Tile) error {
		mu.Lock()
		seen[tile]++
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, len(tiles))
	for tile, n := range seen {
		assert.Equal(t, 1, n, "tile %s", tile)
	}
}

func TestRunWrapsFailureWithPhase(t *testing.T) {
	tiles := Split(4, 4, 2, 2)
	boom := errors.New("boom")

	err := Run(context.Background(), "computing initial cluster centers", tiles, 1, func(_ context.Context, tile Tile) error {
		if tile.X == 2 && tile.Y == 2 {
			return boom
		}
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var te *TileError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "computing initial cluster centers", te.Phase)
	assert.Equal(t, Tile{X: 2, Y: 2, W: 2, H: 2}, te.Tile)
	assert.Equal(t, "computing initial cluster centers: tile (x=2,y=2,w=2,h=2): boom", err.Error())
}

func TestRunRecoversPanics(t *testing.T) {
	tiles := Split(4, 4, 2, 2)
	err := Run(context.Background(), "refining", tiles, 2, func(_ context.Context, tile Tile) error {
		if tile.X == 0 && tile.Y == 0 {
			panic("index out of range")
		}
		return nil
	})
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "index out of range", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestRunCancelledBeforeDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := Run(ctx, "refining", Split(16, 16, 4, 4), 2, func(context.Context, Tile) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "refining")
	assert.Zero(t, calls.Load())
}

func TestRunCancelMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	tiles := Split(32, 32, 4, 4)
	err := Run(ctx, "refining", tiles, 1, func(context.Context, Tile) error {
		if calls.Add(1) == 3 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, int(calls.Load()), len(tiles))
}
