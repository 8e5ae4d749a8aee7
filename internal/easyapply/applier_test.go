package easyapply

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hireloop/easyapply/api/schemas"
	"github.com/hireloop/easyapply/internal/config"
	"github.com/hireloop/easyapply/internal/easyapply/answers"
)

// fakeDriver answers injected scripts by marker comment. Each marker holds a
// FIFO queue of results; the last entry is sticky so state probes can settle
// into a terminal answer.
type fakeDriver struct {
	mu      sync.Mutex
	scripts map[string][]interface{}
	clicks  []string
	typed   map[string]string
	navs    []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		scripts: map[string][]interface{}{},
		typed:   map[string]string{},
	}
}

func (f *fakeDriver) queue(marker string, results ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[marker] = append(f.scripts[marker], results...)
}

func (f *fakeDriver) ExecuteScript(_ context.Context, script string, out interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for marker, queue := range f.scripts {
		if !strings.Contains(script, marker) {
			continue
		}
		if len(queue) == 0 {
			return nil
		}
		head := queue[0]
		if len(queue) > 1 {
			f.scripts[marker] = queue[1:]
		}
		b, _ := json.Marshal(head)
		return json.Unmarshal(b, out)
	}
	return nil
}

func (f *fakeDriver) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navs = append(f.navs, url)
	return nil
}

func (f *fakeDriver) Click(_ context.Context, sel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, sel)
	return nil
}

func (f *fakeDriver) Type(_ context.Context, sel, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typed[sel] = text
	return nil
}

func (f *fakeDriver) SelectOption(context.Context, string, string) error       { return nil }
func (f *fakeDriver) SetChecked(context.Context, string, bool) error           { return nil }
func (f *fakeDriver) UploadFile(context.Context, string, string) error         { return nil }
func (f *fakeDriver) SendEscape(context.Context) error                         { return nil }
func (f *fakeDriver) WaitVisible(context.Context, string, time.Duration) error { return nil }
func (f *fakeDriver) WaitGone(context.Context, string, time.Duration) error    { return nil }
func (f *fakeDriver) Sleep(context.Context, time.Duration) error               { return nil }
func (f *fakeDriver) CurrentURL(context.Context) (string, error)               { return "", nil }
func (f *fakeDriver) OuterHTML(context.Context) (string, error)                { return "", nil }

var _ schemas.PageDriver = (*fakeDriver)(nil)

// fakeAnswerer answers by label substring; unmatched questions get "Yes".
type fakeAnswerer struct {
	byLabel map[string]string
	asked   []schemas.Question
	jobs    []*schemas.Job
}

func (f *fakeAnswerer) Answer(_ context.Context, q schemas.Question) (string, error) {
	f.asked = append(f.asked, q)
	for frag, answer := range f.byLabel {
		if strings.Contains(strings.ToLower(q.Text), strings.ToLower(frag)) {
			return answer, nil
		}
	}
	return "Yes", nil
}

func (f *fakeAnswerer) SetJobContext(job *schemas.Job) { f.jobs = append(f.jobs, job) }
func (f *fakeAnswerer) TailorResume(context.Context, string, string, string) (string, error) {
	return "", nil
}

type countingSink struct {
	mu         sync.Mutex
	applied    int
	failed     int
	skipped    int
	activities []string
}

func (s *countingSink) SendHeartbeat(activity string, _ map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, activity)
}

func (s *countingSink) IncrementJobsApplied() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied++
}

func (s *countingSink) IncrementJobsFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
}

func (s *countingSink) IncrementJobsSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped++
}

type fixedDetector struct {
	code string
}

func (d fixedDetector) Detect(string) (string, bool) { return d.code, d.code != "" }

func testConfig() config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Apply.MaxPages = 7
	cfg.Apply.MaxRetries = 1
	cfg.Apply.ResumePath = "/resumes/base.pdf"
	return *cfg
}

func testJob() *schemas.Job {
	return &schemas.Job{
		ID:      "4021",
		Title:   "Backend Engineer",
		Company: "Acme",
		Link:    "https://example.com/jobs/4021",
	}
}

// Probe payloads shared across scenarios.
var (
	stateForm   = map[string]interface{}{"open": true, "nextVisible": true}
	stateSubmit = map[string]interface{}{"open": true, "submitVisible": true}
	stateClosed = map[string]interface{}{"open": false}

	nextButton   = map[string]interface{}{"found": true, "selector": "footer button", "label": "Continue to next step"}
	submitButton = map[string]interface{}{"found": true, "selector": "footer button", "label": "Submit application"}

	applyButton = map[string]interface{}{"found": true, "applied": false}
)

func textSection(label string, y int) map[string]interface{} {
	return map[string]interface{}{
		"label": label, "hasTextInput": true,
		"inputSelector": "input-" + label,
		"rect":          map[string]int{"x": 10, "y": y, "width": 400, "height": 60},
	}
}

func TestApplyTwoPageFlow(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:job-description", "We build backend systems in Go.")
	d.queue("probe:apply-button", applyButton)
	// Dialog open check, page 1 read, page 2 read, post-submit read.
	d.queue("probe:modal-state", stateForm, stateForm, stateSubmit, stateClosed)
	// Page 1 carries three fields, one of which cannot produce a numeric
	// answer; page 2 is the review step with nothing to fill.
	d.queue("probe:sections", []interface{}{
		textSection("First name", 100),
		textSection("Last name", 200),
		textSection("How many years of experience with Go", 300),
	}, []interface{}{})
	d.queue("probe:primary-button", nextButton, submitButton)
	d.queue("probe:validation-errors", []string{})
	d.queue("probe:first-visible", "")
	d.queue("action:unfollow-company", false)

	ans := &fakeAnswerer{byLabel: map[string]string{
		"first name": "Ada",
		"last name":  "Lovelace",
		"years":      "none to speak of", // digits-only guard rejects this
	}}
	sink := &countingSink{}
	applier := NewApplier(d, ans, answers.NewCache(nil, nil), testConfig(), zap.NewNop(), Options{Sink: sink})

	res := applier.Apply(context.Background(), testJob())

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.PagesCompleted)
	assert.Equal(t, 3, res.TotalFields)
	assert.Equal(t, 1, res.FailedFields)
	assert.Empty(t, res.Error)
	assert.Equal(t, 1, sink.applied)
	assert.Zero(t, sink.failed)
	assert.Equal(t, "Ada", d.typed["input-First name"])
	require.NotEmpty(t, d.navs)
	assert.Equal(t, "https://example.com/jobs/4021", d.navs[0])
	require.Len(t, ans.jobs, 1, "job context is primed before any question")
	assert.Contains(t, sink.activities, schemas.ActivityApplicationSubmitted)
}

func TestApplyAlreadyApplied(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:job-description", "Beschreibung")
	d.queue("probe:apply-button", map[string]interface{}{"found": false, "applied": true})

	sink := &countingSink{}
	applier := NewApplier(d, &fakeAnswerer{}, answers.NewCache(nil, nil), testConfig(), zap.NewNop(), Options{Sink: sink})

	res := applier.Apply(context.Background(), testJob())

	assert.True(t, res.Success)
	assert.True(t, res.AlreadyApplied)
	assert.Zero(t, sink.applied)
	assert.Zero(t, sink.failed)
	assert.Equal(t, 1, sink.skipped)
}

func TestApplyLanguageSkip(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:job-description", "Wir suchen eine Entwicklerin in Berlin.")

	cfg := testConfig()
	cfg.Apply.JobLanguages = []string{"en"}
	sink := &countingSink{}
	applier := NewApplier(d, &fakeAnswerer{}, answers.NewCache(nil, nil), cfg, zap.NewNop(), Options{
		Sink:     sink,
		Detector: fixedDetector{code: "de"},
	})

	res := applier.Apply(context.Background(), testJob())

	assert.True(t, res.Success)
	assert.True(t, res.LanguageSkipped)
	assert.Equal(t, "de", res.DetectedLanguage)
	assert.Contains(t, res.Error, "job language de not in allow-list")
	assert.Zero(t, sink.failed, "a language skip is not a failure")
	assert.Equal(t, 1, sink.skipped)
	assert.Empty(t, d.clicks, "the apply button is never reached")
}

func TestApplyValidationRetryBypassesCache(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:job-description", "Role description.")
	d.queue("probe:apply-button", applyButton)
	d.queue("probe:modal-state", stateForm, stateForm, stateClosed)
	d.queue("probe:sections", []interface{}{textSection("Website", 100)})
	d.queue("probe:primary-button", nextButton)
	// First click trips validation (probed three times on that path), the
	// retry click comes back clean.
	d.queue("probe:validation-errors",
		[]string{"Enter a valid answer"},
		[]string{"Enter a valid answer"},
		[]string{"Enter a valid answer"},
		[]string{})
	d.queue("probe:first-visible", "")

	ans := &fakeAnswerer{byLabel: map[string]string{"website": "https://ada.dev"}}
	sink := &countingSink{}
	applier := NewApplier(d, ans, answers.NewCache(nil, nil), testConfig(), zap.NewNop(), Options{Sink: sink})

	res := applier.Apply(context.Background(), testJob())

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.TotalFields, "the page is filled twice")
	assert.Len(t, ans.asked, 2, "the retry regenerates instead of reusing the cache")
	assert.Equal(t, 1, sink.applied)
}

func TestApplyRetryExhaustionCollectsValidationErrors(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:job-description", "Role description.")
	d.queue("probe:apply-button", applyButton)
	d.queue("probe:modal-state", stateForm)
	d.queue("probe:sections", []interface{}{textSection("Phone number", 100)})
	d.queue("probe:primary-button", nextButton)
	// The validation error never clears, so every retry trips it again.
	d.queue("probe:validation-errors", []string{"Please enter a valid phone number"})
	d.queue("probe:first-visible", "")

	sink := &countingSink{}
	applier := NewApplier(d, &fakeAnswerer{}, answers.NewCache(nil, nil), testConfig(), zap.NewNop(), Options{Sink: sink})

	res := applier.Apply(context.Background(), testJob())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "page 1 did not advance")
	assert.Contains(t, res.Error, "Please enter a valid phone number")
	assert.Equal(t, 1, sink.failed)
	assert.Zero(t, sink.applied)
}

func TestApplyDryRunClosesAtSubmit(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:job-description", "Role description.")
	d.queue("probe:apply-button", applyButton)
	// Open check, page 1, submit page reached, and the post-close check.
	d.queue("probe:modal-state", stateForm, stateForm, stateSubmit, stateClosed)
	d.queue("probe:sections",
		[]interface{}{textSection("First name", 100)},
		[]interface{}{textSection("Email", 100)})
	d.queue("probe:primary-button", nextButton)
	d.queue("probe:validation-errors", []string{})
	d.queue("probe:first-visible", "")

	cfg := testConfig()
	cfg.Apply.DryRun = true
	sink := &countingSink{}
	ans := &fakeAnswerer{byLabel: map[string]string{"email": "ada@example.com"}}
	applier := NewApplier(d, ans, answers.NewCache(nil, nil), cfg, zap.NewNop(), Options{Sink: sink})

	res := applier.Apply(context.Background(), testJob())

	assert.True(t, res.Success)
	assert.Equal(t, 2, res.PagesCompleted)
	assert.Equal(t, 2, res.TotalFields, "the submit page is still filled")
	assert.Equal(t, "ada@example.com", d.typed["input-Email"])
	assert.Zero(t, sink.applied, "a dry run never counts as a submission")
	// Only the apply button and the page 1 advance were clicked; the submit
	// button never was.
	assert.Equal(t, []string{"button.jobs-apply-button", "footer button"}, d.clicks)
}

func TestApplyUniformlyBrokenPageFails(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:job-description", "Role description.")
	d.queue("probe:apply-button", applyButton)
	d.queue("probe:modal-state", stateForm, stateForm, stateForm)
	d.queue("probe:sections", []interface{}{
		textSection("How many years of A", 100),
		textSection("How many years of B", 200),
	})
	d.queue("probe:first-visible", "")

	// Every numeric answer is garbage, so both fields fail and the page is
	// rejected outright.
	ans := &fakeAnswerer{byLabel: map[string]string{"how many": "no idea"}}
	sink := &countingSink{}
	applier := NewApplier(d, ans, answers.NewCache(nil, nil), testConfig(), zap.NewNop(), Options{Sink: sink})

	res := applier.Apply(context.Background(), testJob())

	assert.False(t, res.Success)
	assert.Equal(t, 2, res.FailedFields)
	assert.Contains(t, res.Error, "rejected")
	assert.Equal(t, 1, sink.failed)
	assert.Zero(t, sink.applied)
}

func TestApplyDialogNeverOpens(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:job-description", "Role description.")
	d.queue("probe:apply-button", map[string]interface{}{"found": false, "applied": false})

	sink := &countingSink{}
	applier := NewApplier(d, &fakeAnswerer{}, answers.NewCache(nil, nil), testConfig(), zap.NewNop(), Options{Sink: sink})

	res := applier.Apply(context.Background(), testJob())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "did not open")
	assert.Equal(t, 1, sink.failed)
}
