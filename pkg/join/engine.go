// Package join implements the Temporal Join Engine: the parallel sliding
// window pass that turns a time-ordered, key-grouped event stream from the
// Normalized Store into a weighted directed coordination network.
package join

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kittclouds/coordnet/internal/corerr"
	"github.com/kittclouds/coordnet/internal/store"
	"github.com/kittclouds/coordnet/pkg/pool"
	"github.com/kittclouds/coordnet/pkg/tokenizer"
)

// EventSource yields the sorted, key-grouped event stream a network kind
// needs. *store.Store satisfies this; tests supply a fake.
type EventSource interface {
	StreamEvents(ctx context.Context, kind store.NetworkKind, useResolvedURLs bool) (<-chan store.Row, <-chan error)
}

// Config parameterizes one Engine.Compute run.
type Config struct {
	Kind store.NetworkKind
	// Window is the coordination window size, in the same units as
	// Row.Timestamp (seconds, typically).
	Window float64
	// SimilarityThreshold is the minimum Jaccard token similarity required
	// for a co_similar_tweet pair. Ignored for other kinds.
	SimilarityThreshold float64
	// TokenizerOptions controls co_similar_tweet's token-set construction.
	TokenizerOptions tokenizer.Options
	// UseResolvedURLs selects canonical (post-redirect) URLs for co_link
	// when true, raw URLs otherwise.
	UseResolvedURLs bool
	// Workers bounds join-worker concurrency. Defaults to GOMAXPROCS.
	Workers int
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Engine runs the temporal join for a single Config.
type Engine struct {
	cfg Config
}

// New builds an Engine for cfg.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// edgeKey aliases pool.EdgeWeightPool's map key type so partial maps can be
// borrowed from and returned to the pool without conversion.
type edgeKey = [2]string

// Compute drains src's event stream for the engine's configured network
// kind, computing the resulting directed edge weights. The final edge set
// does not depend on how work is sharded across workers: weights are summed
// via commutative, associative per-worker partial maps merged at the end.
func (e *Engine) Compute(ctx context.Context, src EventSource) ([]store.EdgeCount, error) {
	rows, srcErrc := src.StreamEvents(ctx, e.cfg.Kind, e.cfg.UseResolvedURLs)

	workers := e.cfg.workers()
	groups := make(chan []store.Row, workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(groups)
		cur := pool.GetRowGroup()
		first := true
		var curKey string
		for r := range rows {
			if !first && r.Key != curKey {
				select {
				case groups <- cur:
				case <-gctx.Done():
					return gctx.Err()
				}
				cur = pool.GetRowGroup()
			}
			curKey = r.Key
			first = false
			cur = append(cur, r)
		}
		if len(cur) > 0 {
			select {
			case groups <- cur:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	partials := make(chan map[edgeKey]int, workers)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			local := pool.GetEdgeWeightMap()
			var match matchFunc
			if e.cfg.Kind == store.CoSimilarity {
				match = similarityMatcher(e.cfg.TokenizerOptions, e.cfg.SimilarityThreshold)
			}
			emit := func(a, b string) { local[edgeKey{a, b}]++ }

			for {
				select {
				case grp, ok := <-groups:
					if !ok {
						select {
						case partials <- local:
						case <-gctx.Done():
							return gctx.Err()
						}
						return nil
					}
					slidingWindow(grp, e.cfg.Window, match, emit)
					pool.PutRowGroup(grp)
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(partials)
	}()

	final := make(map[edgeKey]int)
	for local := range partials {
		for k, w := range local {
			final[k] += w
		}
		pool.PutEdgeWeightMap(local)
	}

	if err := <-done; err != nil {
		if err == context.Canceled {
			return nil, corerr.ErrCancelled
		}
		return nil, err
	}
	if err := <-srcErrc; err != nil {
		return nil, err
	}

	edges := make([]store.EdgeCount, 0, len(final))
	for k, w := range final {
		edges = append(edges, store.EdgeCount{UserA: k[0], UserB: k[1], Weight: w})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].UserA != edges[j].UserA {
			return edges[i].UserA < edges[j].UserA
		}
		return edges[i].UserB < edges[j].UserB
	})
	return edges, nil
}
