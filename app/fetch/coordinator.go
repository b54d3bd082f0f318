package fetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/wiki-watch/app/wiki"
)

const DefaultMaxWorkers = 8

// PageClient is the slice of the content source the coordinator needs.
type PageClient interface {
	GetPage(ctx context.Context, pageName string) (wiki.PageData, error)
}

// Result is one page's fetch outcome. Err is set for per-page transient
// failures; such failures never abort sibling fetches.
type Result struct {
	Name string
	Data wiki.PageData
	Err  error
}

// Batch fetches a set of pages concurrently through a bounded worker pool,
// waiting at most timeout for the whole batch. Pages still in flight when the
// timeout fires are cancelled, logged and omitted from the results; they are
// simply retried on a later cycle. Results are returned in completion order.
// Workers only fetch and report; they never touch shared state.
func Batch(ctx context.Context, client PageClient, pageNames []string, timeout time.Duration, maxWorkers int) []Result {
	if len(pageNames) == 0 {
		return nil
	}
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	workers := min(maxWorkers, len(pageNames))

	batchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	jobs := make(chan string, len(pageNames))
	for _, name := range pageNames {
		jobs <- name
	}
	close(jobs)

	resultCh := make(chan Result, len(pageNames))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				select {
				case <-batchCtx.Done():
					resultCh <- Result{Name: name, Err: batchCtx.Err()}
					continue
				default:
				}
				data, err := client.GetPage(batchCtx, name)
				resultCh <- Result{Name: name, Data: data, Err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]Result, 0, len(pageNames))
	var timedOut []string
	for r := range resultCh {
		if r.Err != nil && errors.Is(r.Err, context.DeadlineExceeded) {
			timedOut = append(timedOut, r.Name)
			continue
		}
		results = append(results, r)
	}

	if len(timedOut) > 0 {
		slog.Warn("Timeout while fetching pages, cancelled pending requests",
			"count", len(timedOut), "pages", timedOut)
	}

	return results
}
