package setdiff

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	// ctxCheckInterval is how many elements a worker encodes between
	// context checks. Per-element checks cost more than the encode itself.
	ctxCheckInterval = 4096

	// minShardSize is the smallest per-worker shard worth a goroutine.
	minShardSize = 2048
)

// BuildFilter builds a filter over the given elements. With WithWorkers(n),
// n >= 2, the input is sharded across workers that each encode into a
// private same-shape filter; the shards are then folded together with
// Merge. Filters are XOR-composable, so the result is identical to a
// sequential build regardless of sharding.
func BuildFilter[T Symbol[T]](ctx context.Context, capacity int, elements []T, opts ...Option) (*Filter[T], error) {
	cfg := applyOptions(opts)
	build := func() (*Filter[T], error) {
		return newFilter[T](capacity, cfg.hashCount, cfg.seed)
	}
	encode := func(f *Filter[T], x T) { f.Encode(x) }
	merge := func(a, b *Filter[T]) (*Filter[T], error) { return a.Merge(b) }
	return buildSharded(ctx, cfg.workers, elements, build, encode, merge)
}

// BuildEstimator builds an estimator over the given elements, sharded across
// workers the same way as BuildFilter.
func BuildEstimator[T Symbol[T]](ctx context.Context, elements []T, opts ...Option) (*Estimator[T], error) {
	build := func() (*Estimator[T], error) {
		return NewEstimator[T](opts...)
	}
	encode := func(e *Estimator[T], x T) { e.Encode(x) }
	merge := func(a, b *Estimator[T]) (*Estimator[T], error) { return a.Merge(b) }
	cfg := applyOptions(opts)
	return buildSharded(ctx, cfg.workers, elements, build, encode, merge)
}

// buildSharded runs the shard/encode/fold pipeline shared by BuildFilter and
// BuildEstimator. Shards are contiguous slices of the input; each worker owns
// its sketch exclusively until the fold, so no locking is involved.
func buildSharded[T Symbol[T], S any](
	ctx context.Context,
	workers int,
	elements []T,
	build func() (S, error),
	encode func(S, T),
	merge func(S, S) (S, error),
) (S, error) {
	var zero S

	shards := workers
	if shards < 2 || len(elements)/shards < minShardSize {
		shards = 1
	}

	if shards == 1 {
		out, err := build()
		if err != nil {
			return zero, err
		}
		for i, x := range elements {
			if i%ctxCheckInterval == 0 && ctx.Err() != nil {
				return zero, ctx.Err()
			}
			encode(out, x)
		}
		return out, nil
	}

	results := make([]S, shards)
	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(elements) + shards - 1) / shards
	for w := range shards {
		lo := w * chunk
		hi := min(lo+chunk, len(elements))
		g.Go(func() error {
			s, err := build()
			if err != nil {
				return err
			}
			for i, x := range elements[lo:hi] {
				if i%ctxCheckInterval == 0 && gctx.Err() != nil {
					return gctx.Err()
				}
				encode(s, x)
			}
			results[w] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return zero, err
	}

	out := results[0]
	for _, s := range results[1:] {
		var err error
		out, err = merge(out, s)
		if err != nil {
			return zero, err
		}
	}
	return out, nil
}
