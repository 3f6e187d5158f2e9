package report

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is one payload in a batch.
type Job struct {
	Name    string
	Payload Payload
}

// BatchResult is the outcome of one job.
type BatchResult struct {
	Name     string
	Data     []byte
	Err      error
	Duration time.Duration
}

// GenerateBatch renders jobs concurrently with at most limit in flight
// (unbounded when limit <= 0). Results keep the order of jobs. A failed job
// is reported in its result and does not stop the others; a cancelled ctx
// fails the jobs that have not started yet.
func GenerateBatch(ctx context.Context, gen *Generator, jobs []Job, limit int) []BatchResult {
	results := make([]BatchResult, len(jobs))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, job := range jobs {
		g.Go(func() error {
			res := BatchResult{Name: job.Name}
			if err := ctx.Err(); err != nil {
				res.Err = err
				results[i] = res
				return nil
			}
			start := time.Now()
			res.Data, res.Err = gen.Generate(ctx, job.Payload)
			res.Duration = time.Since(start)
			gen.log().WithField("job", job.Name).WithField("ok", res.Err == nil).Debug("batch job finished")
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Failed counts the results with an error.
func Failed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
