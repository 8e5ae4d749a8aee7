// internal/browser/session/context_utils.go
package session

import (
	"context"
	"time"
)

// CombineContext creates a context derived from ctx1 (the session context,
// which carries the CDP target) that is canceled when either ctx1 or ctx2
// (the operational context with the caller's deadline) is canceled. Values
// are inherited from ctx1; chromedp requires the target values to survive.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}

// valueOnlyContext inherits values (CDP target information) from its parent
// but ignores the parent's deadline and cancellation signal.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context that keeps ctx's values but outlives its
// cancellation. Used for best-effort cleanup actions on a tab whose
// operational context has already been canceled.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
