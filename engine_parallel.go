package adex

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// extractAndWrite fans parse/extract work across the worker pool and
// drains results through the serialized write path. Per-file failures
// are logged and counted; only cancellation and store-fatal conditions
// abort the run.
func (e *Engine) extractAndWrite(ctx context.Context, paths []string) (*Report, error) {
	report := &Report{}
	results := make(chan *extracted, e.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	var reportMu sync.Mutex
	fail := func(path string, err error) {
		reportMu.Lock()
		report.Failed++
		reportMu.Unlock()
		e.logger.Warn("index: file skipped", "path", path, "error", err)
	}
	skip := func() {
		reportMu.Lock()
		report.Skipped++
		reportMu.Unlock()
	}

	// Producer goroutines: CPU-bound parse and extract.
	go func() {
		defer close(results)
		for _, path := range paths {
			if gctx.Err() != nil {
				break
			}
			p := path
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				ex, err := e.extractFile(gctx, p)
				switch {
				case err != nil:
					fail(p, err)
				case ex == nil:
					skip()
				default:
					select {
					case results <- ex:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
				return nil
			})
		}
		g.Wait()
	}()

	// Consumer: the single writer.
	for ex := range results {
		if err := ctx.Err(); err != nil {
			// Drain remaining results so producers don't block.
			for range results {
			}
			return report, &Error{Kind: KindCancelled, Err: err}
		}
		if err := e.writeFile(ex); err != nil {
			fail(ex.path, err)
			continue
		}
		reportMu.Lock()
		report.Processed++
		reportMu.Unlock()
	}

	if err := g.Wait(); err != nil && errors.Is(err, context.Canceled) {
		return report, &Error{Kind: KindCancelled, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return report, &Error{Kind: KindCancelled, Err: err}
	}
	return report, nil
}
