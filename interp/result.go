// Package interp is the Interpreter Shell (spec §4.H). It provides the
// pieces for running staged queries: Coalesce folds sibling single-key
// lookups into one IN-list query, Regroup splits the fetched rows back per
// sibling, and RunAll fans independent sub-queries out concurrently and
// combines their errors monoidally rather than failing fast on the first
// one. It has no entry point that walks a staged query tree itself.
// Grounded on the teacher's adoption of golang.org/x/sync/errgroup for
// structured concurrency (a direct go.mod dependency) and
// dialect/sql/driver.go's errors.Join-based monoidal error combination.
package interp

import (
	"context"

	mapper "github.com/chlorophyll/mapper"
	"golang.org/x/sync/errgroup"
)

// Result pairs a fetched value with whatever error occurred producing it,
// per spec §4.H's "each sub-query's outcome is independent."
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// Errored wraps a failure.
func Errored[T any](err error) Result[T] { return Result[T]{Err: err} }

// RunAll runs fns concurrently, one goroutine each, and returns their
// values in the same order fns were given — independent of completion
// order — plus a combined error if any failed. Every fn always runs to
// completion; a failure in one never cancels the others, per spec §5's
// "runs as many independent sub-queries as possible before failing."
func RunAll[T any](ctx context.Context, fns []func(context.Context) (T, error)) ([]T, error) {
	results := make([]Result[T], len(fns))

	var g errgroup.Group
	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			v, err := fn(ctx)
			results[i] = Result[T]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait() // fn errors are collected in results, not propagated through Wait

	out := make([]T, len(results))
	var errs []error
	for i, r := range results {
		out[i] = r.Value
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return out, mapper.NewAggregateError(errs...)
}
