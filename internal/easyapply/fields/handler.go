// internal/easyapply/fields/handler.go
// One handler per field archetype. Each handler answers CanHandle from the
// section's capability flags alone and performs the fill in Handle. Routing
// is first-match-wins over a fixed priority order (see registry.go); a
// section no handler claims is a non-input (label, heading) and is skipped.
package fields

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/easyapply/api/schemas"
	"github.com/hireloop/easyapply/internal/easyapply/answers"
)

// Handler fills one archetype of field section.
type Handler interface {
	// Name identifies the handler in logs and doubles as the question type
	// for answer caching.
	Name() string
	// CanHandle reports whether this handler claims the section.
	CanHandle(sec *schemas.Section) bool
	// Handle fills the section. The boolean is "filled"; errors carry the
	// reason. Neither may panic past the processor's containment boundary.
	Handle(ctx context.Context, env *Env, sec *schemas.Section) (bool, error)
}

// Env is everything handlers share: the tab driver, the answer cache, the
// pluggable answerer and the upload sources.
type Env struct {
	Driver   schemas.PageDriver
	Cache    *answers.Cache
	Answerer schemas.Answerer
	Logger   *zap.Logger

	// Pending is the in-flight tailored resume; nil when tailoring is
	// disabled. Joined lazily by the upload handler only.
	Pending           schemas.PendingArtifact
	ResumePath        string
	CoverLetterPath   string
	TailorJoinTimeout time.Duration

	// RetryMode is set when the page is being re-filled after validation
	// errors. Handlers then bypass the answer cache: a cached answer may be
	// exactly what the wizard rejected.
	RetryMode bool
}

// resolveAnswer returns the answer for a question, consulting the cache by
// normalized text first and recording every cache miss through the
// recorder.
func resolveAnswer(ctx context.Context, env *Env, questionType string, q schemas.Question) (string, error) {
	if !env.RetryMode {
		if answer, ok := env.Cache.Lookup(questionType, q.Text); ok {
			env.Logger.Debug("Answer cache hit.",
				zap.String("question_type", questionType),
				zap.String("question", q.Text))
			return answer, nil
		}
	}

	if env.Answerer == nil {
		return "", fmt.Errorf("no answerer configured and no cached answer for %q", q.Text)
	}
	answer, err := env.Answerer.Answer(ctx, q)
	if err != nil {
		return "", fmt.Errorf("answer generation failed for %q: %w", q.Text, err)
	}
	env.Cache.Record(questionType, q.Text, answer)
	return answer, nil
}
