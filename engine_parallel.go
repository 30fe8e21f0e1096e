package devana

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jward/devana/internal/frontend"
	"github.com/jward/devana/internal/model"
	"github.com/jward/devana/internal/syntax"
)

// workers returns the worker count for n items.
func (e *Engine) workers(n int) int {
	w := e.jobs
	if w == 0 {
		w = runtime.NumCPU()
	}
	return max(1, min(w, n))
}

// buildUnitsParallel builds each unit into its own private arena using a
// bounded worker group. Arenas are returned in unit order so that linking
// stays deterministic regardless of completion order. Structural errors do
// not cancel the other units; they are joined once all units finish.
func (e *Engine) buildUnitsParallel(ctx context.Context, units []*syntax.Unit) ([]*model.Arena, error) {
	arenas := make([]*model.Arena, len(units))
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers(len(units)))
	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := e.buildUnit(u)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			arenas[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("devana: %d unit(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return arenas, nil
}

// parseFilesParallel runs the front end over paths with a bounded worker
// group. Each worker creates its own parser. The first read or parse error
// cancels the rest.
func (e *Engine) parseFilesParallel(ctx context.Context, paths []string) ([]*syntax.Unit, error) {
	units := make([]*syntax.Unit, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers(len(paths)))
	for i, p := range paths {
		g.Go(func() error {
			u, err := frontend.ParseFile(gctx, p)
			if err != nil {
				return err
			}
			units[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return units, nil
}
