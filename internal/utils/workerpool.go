package utils

import (
	"context"
	"sync"
)

// ParallelForEach runs fn for each index in [0, n) across a bounded pool
// of workers. fn records its own outcome; an index never handed to a
// worker before ctx was cancelled is skipped, which is how callers that
// store results by position tell cancelled work from finished work.
func ParallelForEach(ctx context.Context, n, workers int, fn func(context.Context, int)) {
	if workers <= 0 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	tasks := make(chan int, n)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case idx, ok := <-tasks:
					if !ok {
						return
					}
					fn(ctx, idx)
				}
			}
		}()
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			close(tasks)
			wg.Wait()
			return
		case tasks <- i:
		}
	}

	close(tasks)
	wg.Wait()
}
