package outputs

import (
	"context"
	"sync"
)

// Join owns a set of in-flight outputs. It carries the preview flag that
// drives apply semantics and tracks every output created through it so a
// caller can wait for outstanding resolution work to finish.
type Join struct {
	preview bool

	mu      sync.Mutex
	pending []<-chan struct{}
}

// NewJoin creates a join. The preview flag governs whether apply callbacks
// run against unknown inputs.
func NewJoin(preview bool) *Join {
	return &Join{preview: preview}
}

// Preview reports whether this join is operating in preview mode.
func (j *Join) Preview() bool {
	return j.preview
}

// track registers an output's completion channel for draining.
func (j *Join) track(done <-chan struct{}) {
	j.mu.Lock()
	j.pending = append(j.pending, done)
	j.mu.Unlock()
}

// Drain waits for every output registered before the call to resolve. Work
// registered while Drain is waiting is not awaited; callers that need a
// quiescent join call Drain again. Returns the context error if the wait is
// cut short.
func (j *Join) Drain(ctx context.Context) error {
	j.mu.Lock()
	snapshot := j.pending
	j.pending = nil
	j.mu.Unlock()

	for i, done := range snapshot {
		select {
		case <-done:
		case <-ctx.Done():
			// Put the unfinished remainder back so a later Drain can
			// still find it.
			j.mu.Lock()
			j.pending = append(j.pending, snapshot[i:]...)
			j.mu.Unlock()
			return ctx.Err()
		}
	}
	return nil
}
