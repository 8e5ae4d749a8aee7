// internal/browser/session/script.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
)

// evaluate wraps chromedp.Evaluate with the parameters every script in this
// package needs: return-by-value, awaited promises, silent JS exceptions.
func evaluate(script string, out interface{}) chromedp.Action {
	return chromedp.Evaluate(script, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	})
}

// ExecuteScript evaluates a JavaScript snippet in the page and decodes the
// result into out. A nil out discards the result. The script result must be
// JSON-serializable; DOM nodes cannot cross the boundary.
func (s *Session) ExecuteScript(ctx context.Context, script string, out interface{}) error {
	opCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	var raw json.RawMessage
	if err := s.run(opCtx, evaluate(script, &raw)); err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("timeout during script execution: %w", opCtx.Err())
		}
		return fmt.Errorf("script evaluation failed: %w", err)
	}

	if out == nil {
		return nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		// Leave out at its zero value; callers treat that as "nothing found".
		return nil
	}
	if err := jsoniter.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w (payload: %s)", err, string(raw))
	}
	return nil
}

// jsonEncode safely encodes a value (especially strings) for JS injection.
func jsonEncode(v interface{}) string {
	b, err := jsoniter.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
