// internal/resume/pending.go
package resume

import (
	"context"
	"time"

	"github.com/hireloop/easyapply/api/schemas"
)

// Pending is the detached-future handle for one in-flight tailoring run.
// The producing goroutine writes exactly one value (or closes the channel on
// failure); any number of AwaitOrNull calls observe the same outcome.
type Pending struct {
	ch chan *schemas.ResumeArtifact

	// resolved caches the first receive so repeated joins do not race the
	// closed channel.
	resolved *schemas.ResumeArtifact
	done     bool
}

func newPending() *Pending {
	return &Pending{ch: make(chan *schemas.ResumeArtifact, 1)}
}

// AwaitOrNull blocks until the artifact is ready, the timeout lapses or ctx
// is cancelled. Every non-success path returns nil; the caller falls back to
// the base resume either way.
func (p *Pending) AwaitOrNull(ctx context.Context, timeout time.Duration) *schemas.ResumeArtifact {
	if p.done {
		return p.resolved
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case artifact := <-p.ch:
		p.resolved = artifact
		p.done = true
		return artifact
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	}
}

var _ schemas.PendingArtifact = (*Pending)(nil)
