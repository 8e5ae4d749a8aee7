// internal/easyapply/applier.go
// The orchestrator. Apply drives one job end to end: navigate, read the
// description, gate on language, kick off background resume tailoring, open
// the application dialog and walk the wizard page by page until it submits,
// closes or trips a circuit breaker. All retry policy lives here; the
// navigation controller and page processor only report what they saw.
package easyapply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/easyapply/api/schemas"
	"github.com/hireloop/easyapply/internal/config"
	"github.com/hireloop/easyapply/internal/easyapply/answers"
	"github.com/hireloop/easyapply/internal/easyapply/fields"
	"github.com/hireloop/easyapply/internal/easyapply/nav"
	"github.com/hireloop/easyapply/internal/easyapply/page"
)

// LanguageDetector classifies a text's language as a lowercase ISO 639-1
// code. ok is false when the text is too short or ambiguous to classify;
// unclassifiable jobs are never skipped.
type LanguageDetector interface {
	Detect(text string) (code string, ok bool)
}

// Snapshotter captures the current page for post-mortem debugging. Capture
// is best-effort and must not fail the run.
type Snapshotter interface {
	Capture(ctx context.Context, driver schemas.PageDriver, label, title string)
}

// Applier applies to one job at a time over a single browser tab.
type Applier struct {
	driver    schemas.PageDriver
	nav       *nav.Controller
	processor *page.Processor
	cache     *answers.Cache
	answerer  schemas.Answerer
	tailor    schemas.ResumeTailor
	detector  LanguageDetector
	sink      schemas.StatusSink
	snapshots Snapshotter
	cfg       config.ApplyConfig
	logger    *zap.Logger
}

// Options carries the optional collaborators. Any nil field degrades to a
// no-op: no tailoring, no language gate, no snapshots, silent sink.
type Options struct {
	Tailor    schemas.ResumeTailor
	Detector  LanguageDetector
	Sink      schemas.StatusSink
	Snapshots Snapshotter
}

func NewApplier(driver schemas.PageDriver, answerer schemas.Answerer, cache *answers.Cache, cfg config.Config, logger *zap.Logger, opts Options) *Applier {
	sink := opts.Sink
	if sink == nil {
		sink = nopSink{}
	}
	return &Applier{
		driver:    driver,
		nav:       nav.NewController(driver, cfg.Browser, logger),
		processor: page.NewProcessor(fields.NewRegistry(), logger),
		cache:     cache,
		answerer:  answerer,
		tailor:    opts.Tailor,
		detector:  opts.Detector,
		sink:      sink,
		snapshots: opts.Snapshots,
		cfg:       cfg.Apply,
		logger:    logger.Named("applier"),
	}
}

// Apply runs the whole flow for one job. It always returns a result, never
// panics and leaves no dialog open behind itself. AlreadyApplied and
// LanguageSkipped results are successes of a kind: the job needs no further
// attention.
func (a *Applier) Apply(ctx context.Context, job *schemas.Job) (result *schemas.EasyApplyResult) {
	result = &schemas.EasyApplyResult{}
	log := a.logger.With(zap.String("job_id", job.ID), zap.String("company", job.Company), zap.String("title", job.Title))

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("apply panicked: %v", r)
			log.Error("Apply panicked; closing dialog.", zap.Any("panic", r))
			a.failJob(ctx, job, result)
		}
	}()

	a.heartbeat(schemas.ActivityNavigatingToJob, job)
	if err := a.driver.Navigate(ctx, job.Link); err != nil {
		result.Error = fmt.Sprintf("navigation failed: %v", err)
		a.failJob(ctx, job, result)
		return result
	}

	a.heartbeat(schemas.ActivityExtractingDescription, job)
	description := extractDescription(ctx, a.driver)
	if description != "" {
		job.Description = description
	}

	if len(a.cfg.JobLanguages) > 0 && a.detector != nil {
		a.heartbeat(schemas.ActivityDetectingLanguage, job)
	}
	if skipped := a.languageGate(job, result); skipped {
		a.heartbeat(schemas.ActivitySkippingJob, job)
		a.sink.IncrementJobsSkipped()
		log.Info("Job skipped by language gate.", zap.String("language", result.DetectedLanguage))
		return result
	}

	var pending schemas.PendingArtifact
	if a.tailor != nil && !a.cfg.UseConstantResume && description != "" {
		a.heartbeat(schemas.ActivityTailoringResume, job)
		pending = a.tailor.Start(ctx, job, description)
	}

	if a.answerer != nil {
		a.answerer.SetJobContext(job)
	}

	a.heartbeat(schemas.ActivityOpeningApplication, job)
	opened, already, err := a.openDialog(ctx)
	switch {
	case err != nil:
		result.Error = fmt.Sprintf("opening application dialog: %v", err)
		a.failJob(ctx, job, result)
		return result
	case already:
		result.AlreadyApplied = true
		result.Success = true
		a.heartbeat(schemas.ActivitySkippingJob, job)
		a.sink.IncrementJobsSkipped()
		log.Info("Already applied; nothing to do.")
		return result
	case !opened:
		result.Error = "application dialog did not open"
		a.failJob(ctx, job, result)
		return result
	}

	a.runWizard(ctx, job, pending, result, log)
	return result
}

// languageGate fills DetectedLanguage and reports whether the job falls
// outside the configured allow-list. An empty allow-list, a nil detector or
// an unclassifiable description all pass.
func (a *Applier) languageGate(job *schemas.Job, result *schemas.EasyApplyResult) bool {
	if len(a.cfg.JobLanguages) == 0 || a.detector == nil || job.Description == "" {
		return false
	}
	code, ok := a.detector.Detect(job.Description)
	if !ok {
		return false
	}
	job.DetectedLanguage = code
	result.DetectedLanguage = code
	for _, allowed := range a.cfg.JobLanguages {
		if strings.EqualFold(allowed, code) {
			return false
		}
	}
	result.LanguageSkipped = true
	result.Success = true
	result.Error = fmt.Sprintf("job language %s not in allow-list [%s]", code, strings.Join(a.cfg.JobLanguages, ", "))
	return true
}

const applyButtonScript = `(function() { /* probe:apply-button */
	const btn = document.querySelector("button.jobs-apply-button, button[data-job-id][aria-label*='Easy Apply']");
	if (btn) {
		const r = btn.getBoundingClientRect();
		if (r.width > 0 && r.height > 0) { return { found: true, applied: false }; }
	}
	const applied = document.querySelector("span.artdeco-inline-feedback__message, div.post-apply-timeline");
	if (applied && applied.innerText.toLowerCase().includes("applied")) {
		return { found: false, applied: true };
	}
	return { found: false, applied: false };
})()`

// openDialog clicks the apply button and waits for the dialog. The three
// outcomes are: dialog open, already applied, or neither (the posting is
// closed or the page failed to render the button).
func (a *Applier) openDialog(ctx context.Context) (opened, alreadyApplied bool, err error) {
	var probe struct {
		Found   bool `json:"found"`
		Applied bool `json:"applied"`
	}
	if err := a.driver.ExecuteScript(ctx, applyButtonScript, &probe); err != nil {
		return false, false, fmt.Errorf("apply button probe: %w", err)
	}
	if probe.Applied {
		return false, true, nil
	}
	if !probe.Found {
		return false, false, nil
	}

	if err := a.driver.Click(ctx, "button.jobs-apply-button"); err != nil {
		return false, false, fmt.Errorf("apply button click: %w", err)
	}
	if err := a.driver.Sleep(ctx, dialogOpenSettle); err != nil {
		return false, false, err
	}
	return a.nav.IsModalOpen(ctx), false, nil
}

// dialogOpenSettle is the pause between clicking the apply button and the
// first dialog probe.
const dialogOpenSettle = 2 * time.Second

// runWizard walks the dialog page by page until it submits, closes or a
// breaker trips. MaxPages bounds the loop; MaxRetries bounds validation
// re-fills on any single page.
func (a *Applier) runWizard(ctx context.Context, job *schemas.Job, pending schemas.PendingArtifact, result *schemas.EasyApplyResult, log *zap.Logger) {
	env := &fields.Env{
		Driver:            a.driver,
		Cache:             a.cache,
		Answerer:          a.answerer,
		Logger:            a.logger,
		Pending:           pending,
		ResumePath:        a.cfg.ResumePath,
		CoverLetterPath:   a.cfg.CoverLetterPath,
		TailorJoinTimeout: a.cfg.TailorJoinTimeout,
	}

	for pageNum := 1; pageNum <= a.cfg.MaxPages; pageNum++ {
		state := a.nav.ModalState(ctx)
		switch state {
		case schemas.StateSuccess, schemas.StateClosed:
			a.succeedJob(job, result, log)
			return
		case schemas.StateError:
			result.Error = "dialog reported an error state"
			a.failJob(ctx, job, result)
			return
		}

		a.heartbeat(schemas.ActivityFillingForm, job)
		env.RetryMode = false
		pageRes := a.processor.Process(ctx, env)
		result.TotalFields += pageRes.FieldsProcessed
		result.FailedFields += pageRes.FieldsFailed
		if !pageRes.Success {
			result.Error = fmt.Sprintf("page %d rejected: %s", pageNum, strings.Join(pageRes.Errors, "; "))
			a.failJob(ctx, job, result)
			return
		}

		// A dry run fills every page, the submit page included, and stops
		// just short of the final click.
		if a.cfg.DryRun && state == schemas.StateSubmit {
			log.Info("Dry run filled the submit page; closing without submitting.")
			a.nav.CloseModal(ctx)
			result.Success = true
			result.PagesCompleted = pageNum
			return
		}

		click, ok := a.advance(ctx, env, result, pageNum)
		if !ok {
			a.failJob(ctx, job, result)
			return
		}
		result.PagesCompleted = pageNum

		if click.Submitted {
			a.heartbeat(schemas.ActivitySubmittingApplication, job)
			a.succeedJob(job, result, log)
			return
		}
	}

	result.Error = fmt.Sprintf("wizard did not finish within %d pages", a.cfg.MaxPages)
	a.failJob(ctx, job, result)
}

// advance clicks the primary button, retrying through validation errors up
// to MaxRetries re-fills. Retried fills run with the answer cache bypassed:
// a cached answer may be the very value the wizard rejected.
func (a *Applier) advance(ctx context.Context, env *fields.Env, result *schemas.EasyApplyResult, pageNum int) (schemas.ClickResult, bool) {
	click := a.nav.ClickPrimaryButton(ctx)
	for attempt := 0; !click.Success && click.Err == nav.ErrValidation && attempt < a.cfg.MaxRetries; attempt++ {
		a.logger.Warn("Validation errors; re-filling page.",
			zap.Int("page", pageNum),
			zap.Int("attempt", attempt+1),
			zap.Strings("errors", a.nav.ValidationErrors(ctx)))

		env.RetryMode = true
		retryRes := a.processor.Process(ctx, env)
		result.TotalFields += retryRes.FieldsProcessed
		result.FailedFields += retryRes.FieldsFailed
		click = a.nav.ClickPrimaryButton(ctx)
	}

	if !click.Success {
		detail := click.Err
		if click.Err == nav.ErrValidation {
			if errs := a.nav.ValidationErrors(ctx); len(errs) > 0 {
				detail = fmt.Sprintf("%s: %s", click.Err, strings.Join(errs, "; "))
			}
		}
		result.Error = fmt.Sprintf("page %d did not advance: %s", pageNum, detail)
		return click, false
	}
	return click, true
}

func (a *Applier) succeedJob(job *schemas.Job, result *schemas.EasyApplyResult, log *zap.Logger) {
	result.Success = true
	result.Error = ""
	a.heartbeat(schemas.ActivityApplicationSubmitted, job)
	a.sink.IncrementJobsApplied()
	log.Info("Application submitted.",
		zap.Int("pages", result.PagesCompleted),
		zap.Int("fields", result.TotalFields),
		zap.Int("failed_fields", result.FailedFields))
}

// failJob records the failure, captures a snapshot while the evidence is
// still on screen and closes any dialog left behind.
func (a *Applier) failJob(ctx context.Context, job *schemas.Job, result *schemas.EasyApplyResult) {
	result.Success = false
	a.heartbeat(schemas.ActivityApplicationFailed, job)
	a.sink.IncrementJobsFailed()
	if a.snapshots != nil {
		a.snapshots.Capture(ctx, a.driver, "apply_failed", job.Title)
	}
	if a.nav.IsModalOpen(ctx) {
		a.nav.CloseModal(ctx)
	}
	a.logger.Warn("Application failed.",
		zap.String("job_id", job.ID),
		zap.String("error", result.Error))
}

func (a *Applier) heartbeat(activity string, job *schemas.Job) {
	a.sink.SendHeartbeat(activity, map[string]string{
		"job_id":  job.ID,
		"company": job.Company,
		"title":   job.Title,
	})
}

type nopSink struct{}

func (nopSink) SendHeartbeat(string, map[string]string) {}
func (nopSink) IncrementJobsApplied()                   {}
func (nopSink) IncrementJobsFailed()                    {}
func (nopSink) IncrementJobsSkipped()                   {}

var _ schemas.StatusSink = nopSink{}
