package schemas

import (
	"context"
	"time"
)

// -- Question / Answerer --

// QuestionKind tells the answerer what shape of answer a handler needs.
type QuestionKind string

const (
	QuestionText    QuestionKind = "text"    // free text
	QuestionNumeric QuestionKind = "numeric" // digits only
	QuestionChoice  QuestionKind = "choice"  // one of Options
	QuestionDate    QuestionKind = "date"    // MM/DD/YYYY
)

// Question is a single form question handed to the answerer.
type Question struct {
	Kind     QuestionKind
	Text     string
	Options  []string // populated for QuestionChoice
	Required bool
}

// Answerer produces answers for arbitrary form questions. Implementations
// are externally supplied; the engine never depends on how answers are
// generated. SetJobContext primes the answerer with the posting so that
// later answers can reference company and title. TailorResume rewrites a
// base resume configuration for a specific job description; implementations
// that cannot tailor should return ErrTailoringUnsupported-like errors and
// the pipeline degrades to the base resume.
type Answerer interface {
	Answer(ctx context.Context, q Question) (string, error)
	SetJobContext(job *Job)
	TailorResume(ctx context.Context, baseYAML string, description string, language string) (string, error)
}

// -- Status sink --

// StatusSink receives coarse progress signals from the orchestrator. The
// hosting service uses these for liveness and accounting; the engine calls
// them best-effort and never blocks on sink errors.
type StatusSink interface {
	SendHeartbeat(activity string, details map[string]string)
	IncrementJobsApplied()
	IncrementJobsFailed()
	IncrementJobsSkipped()
}

// AnswerRecorder is invoked once for every newly generated (cache-miss)
// answer so the caller can persist it for reuse.
type AnswerRecorder func(questionType, questionText, answer string)

// -- Browser driver --

// PageDriver is the narrow surface of a browser session the engine needs.
// Exactly one navigation controller and one page processor drive a given
// tab at a time; all calls on it are strictly sequential.
//
// Every wait the driver performs is bounded: a timeout degrades to an error
// return, never a hang.
type PageDriver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	SelectOption(ctx context.Context, selector, value string) error
	SetChecked(ctx context.Context, selector string, checked bool) error
	UploadFile(ctx context.Context, selector, path string) error
	SendEscape(ctx context.Context) error
	ExecuteScript(ctx context.Context, script string, out interface{}) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitGone(ctx context.Context, selector string, timeout time.Duration) error
	Sleep(ctx context.Context, d time.Duration) error
	CurrentURL(ctx context.Context) (string, error)
	OuterHTML(ctx context.Context) (string, error)
}

// ResumeTailor starts background tailoring for one job and returns a
// joinable handle. A nil handle means tailoring is disabled.
type ResumeTailor interface {
	Start(ctx context.Context, job *Job, description string) PendingArtifact
}

// PendingArtifact is the detached-future handle for an in-flight tailored
// resume. AwaitOrNull blocks up to timeout and returns nil on failure,
// timeout or cancellation; it never returns an error because the upload
// handler treats a missing artifact as "use the base resume".
type PendingArtifact interface {
	AwaitOrNull(ctx context.Context, timeout time.Duration) *ResumeArtifact
}
