package tiling

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// TileError wraps the first failure of a phase with the tile it occurred in.
type TileError struct {
	Phase string
	Tile  Tile
	Err   error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Phase, e.Tile, e.Err)
}

func (e *TileError) Unwrap() error { return e.Err }

// PanicError is the error recorded when tile work panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Func is the per-tile work. It must only write state owned by its tile.
type Func func(ctx context.Context, t Tile) error

// Run executes fn for every tile with at most workers goroutines and blocks
// until all dispatched tiles have returned.
//
// The context is checked before each dispatch; tiles already running are
// never interrupted. The first failure is returned as a *TileError naming
// phase. If no tile failed but the context was cancelled, the context error
// is returned wrapped with phase.
func Run(ctx context.Context, phase string, tiles []Tile, workers int, fn Func) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, t := range tiles {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &TileError{Phase: phase, Tile: t, Err: &PanicError{Value: r, Stack: debug.Stack()}}
				}
			}()
			if err := fn(gctx, t); err != nil {
				return &TileError{Phase: phase, Tile: t, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", phase, err)
	}
	return nil
}
