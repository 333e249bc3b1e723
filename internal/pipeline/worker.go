package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Result is the outcome of processing one input.
type Result[Out any] struct {
	Output Out
	Err    error
}

// Process runs fn over inputs on a pool of at most workers goroutines and
// returns one result per input, in input order. A failing input does not stop
// the others; only cancellation aborts the batch.
func Process[In, Out any](ctx context.Context, workers int, inputs []In, fn func(context.Context, In) (Out, error)) ([]Result[Out], error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	results := make([]Result[Out], len(inputs))
	jobChan := make(chan int, len(inputs))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobChan {
				if err := ctx.Err(); err != nil {
					results[idx].Err = err
					continue
				}
				out, err := fn(ctx, inputs[idx])
				if err != nil {
					log.Debug().Err(err).Int("worker", workerID).Int("job", idx).Msg("job failed")
				}
				results[idx] = Result[Out]{Output: out, Err: err}
			}
		}(i)
	}

	for idx := range inputs {
		select {
		case <-ctx.Done():
			close(jobChan)
			wg.Wait()
			return nil, ctx.Err()
		case jobChan <- idx:
		}
	}
	close(jobChan)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
