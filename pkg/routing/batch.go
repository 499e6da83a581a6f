package routing

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// RouteQuery is one entry of a batch.
type RouteQuery struct {
	SourceID int64 `json:"source_id"`
	TargetID int64 `json:"target_id"`
}

// BatchResult pairs a query with its outcome. Err is set for queries that
// failed on their own, e.g. with ErrNotFound.
type BatchResult struct {
	Query  RouteQuery
	Result *RouteResult
	Err    error
}

// RouteBatch runs queries on at most workers goroutines (unbounded when
// workers <= 0). Results are in query order. Only cancellation of ctx fails
// the whole batch.
func (e *Engine) RouteBatch(ctx context.Context, queries []RouteQuery, workers int) ([]BatchResult, error) {
	out := make([]BatchResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, q := range queries {
		g.Go(func() error {
			res, err := e.Route(gctx, q.SourceID, q.TargetID)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			out[i] = BatchResult{Query: q, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
