package client

import (
	"context"
	"sync"

	"github.com/gammazero/workerpool"
	json "github.com/goccy/go-json"
)

// Result is the outcome of one request of a batch.
type Result struct {
	Data json.RawMessage
	Err  error
}

// QueryBatch runs reqs on pool and returns their results in request order.
func (c *Client) QueryBatch(ctx context.Context, pool *workerpool.WorkerPool, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	var wg sync.WaitGroup
	for i := range reqs {
		i := i
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}
			results[i].Data, results[i].Err = c.Query(ctx, reqs[i])
		})
	}
	wg.Wait()
	return results
}
