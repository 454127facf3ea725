package search

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

// Fan-out runs the same fetch against every subreddit of an audience with a
// bounded worker pool. A failed scope contributes an empty partial result
// instead of cancelling its siblings; results come back in scope enumeration
// order so the final merge is deterministic.

const maxFanOutWorkers = 4

var fanOutFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "subsight_fanout_failures_total",
	Help: "The total number of per-subreddit fetch failures during fan-out",
}, []string{"operation"})

// scopeResult is the per-scope outcome of a fan-out: either a value or the
// reason the scope failed.
type scopeResult[T any] struct {
	Scope string
	Value T
	Err   error
}

// fanOut applies fn to every scope concurrently and returns one result per
// scope, positionally aligned with the input.
func fanOut[T any](ctx context.Context, operation string, scopes []string, fn func(ctx context.Context, scope string) (T, error)) []scopeResult[T] {
	results := make([]scopeResult[T], len(scopes))

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxFanOutWorkers)

	for i, scope := range scopes {
		wg.Add(1)
		go func(i int, scope string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			value, err := fn(ctx, scope)
			results[i] = scopeResult[T]{Scope: scope, Value: value, Err: err}

			if err != nil {
				fanOutFailures.WithLabelValues(operation).Inc()
				log.WithFields(log.Fields{
					"operation": operation,
					"subreddit": scope,
					"error":     err,
				}).Warn("Fan-out fetch failed, continuing with partial results")
			}
		}(i, scope)
	}
	wg.Wait()

	return results
}
