package ingestion

import (
	"context"

	"github.com/poiesic/newsdesk/feed"
)

// Job is a background ingestion pass. Its result becomes available once
// Done is closed.
type Job struct {
	done  chan struct{}
	count int
	err   error
}

// Start runs Ingest on a new goroutine. Cancelling ctx stops the pass at the
// next blocking point.
func (p *Pipeline) Start(ctx context.Context, sources []feed.Source, perSourceLimit int) *Job {
	job := &Job{done: make(chan struct{})}
	go func() {
		defer close(job.done)
		job.count, job.err = p.Ingest(ctx, sources, perSourceLimit)
	}()
	return job
}

// Done is closed when the pass finishes.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the pass finishes or ctx is cancelled. If ctx ends
// first, its error is returned and the job keeps running.
func (j *Job) Wait(ctx context.Context) (int, error) {
	select {
	case <-j.done:
		return j.count, j.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Result returns the outcome of a finished pass. finished is false while
// the pass is still running.
func (j *Job) Result() (count int, finished bool, err error) {
	select {
	case <-j.done:
		return j.count, true, j.err
	default:
		return 0, false, nil
	}
}
