// internal/easyapply/nav/controller.go
// The navigation controller owns the dialog state machine:
//
//	closed → form ⇄ (retry on error) → review → submit → success|closed
//
// There is no persisted "current state". Every transition is decided by
// re-reading the live DOM after each action, because the third-party UI can
// change shape between any two reads.
package nav

import (
	"context"
	"fmt"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/hireloop/easyapply/api/schemas"
	"github.com/hireloop/easyapply/internal/config"
)

// ErrValidation is the ClickResult.Err value for a click rejected by inline
// validation. Callers match on it to decide whether a re-fill makes sense.
const ErrValidation = "Validation errors"

// Controller drives the application dialog through its pages.
type Controller struct {
	driver schemas.PageDriver
	logger *zap.Logger
	cfg    config.BrowserConfig
}

// NewController creates a navigation controller for one dialog/tab.
func NewController(driver schemas.PageDriver, cfg config.BrowserConfig, logger *zap.Logger) *Controller {
	return &Controller{
		driver: driver,
		logger: logger.Named("nav"),
		cfg:    cfg,
	}
}

// jsVisible is the shared in-page visibility predicate.
const jsVisible = `const visible = (el) => {
		if (!el) return false;
		const r = el.getBoundingClientRect();
		const s = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && s.display !== 'none' && s.visibility !== 'hidden' && s.opacity !== '0';
	};`

// modalProbe is the single-pass DOM inspection every state read decodes.
type modalProbe struct {
	Open          bool `json:"open"`
	SuccessText   bool `json:"successText"`
	SubmitVisible bool `json:"submitVisible"`
	ReviewVisible bool `json:"reviewVisible"`
	NextVisible   bool `json:"nextVisible"`
	ErrorVisible  bool `json:"errorVisible"`
}

func (c *Controller) probeModal(ctx context.Context) (modalProbe, error) {
	script := fmt.Sprintf(`(function(modalSel, successFragments, errorSels) { /* probe:modal-state */
		%s
		const modal = document.querySelector(modalSel);
		if (!visible(modal)) { return { open: false }; }
		const text = (modal.innerText || '').toLowerCase();
		const label = (b) => ((b.getAttribute('aria-label') || '') + ' ' + (b.innerText || '')).toLowerCase();
		const btns = Array.from(modal.querySelectorAll('%s button')).filter(visible);
		const has = (frag) => btns.some(b => label(b).includes(frag));
		return {
			open: true,
			successText: successFragments.some(f => text.includes(f)),
			submitVisible: has('submit'),
			reviewVisible: has('review'),
			nextVisible: has('next') || has('continue'),
			errorVisible: errorSels.some(sel => Array.from(modal.querySelectorAll(sel)).some(visible)),
		};
	})(%s, %s, %s)`, jsVisible, footerSelector,
		mustJSON(modalSelector), mustJSON(successTextFragments), mustJSON(validationErrorSelectors))

	var probe modalProbe
	if err := c.driver.ExecuteScript(ctx, script, &probe); err != nil {
		return modalProbe{}, fmt.Errorf("modal probe failed: %w", err)
	}
	return probe, nil
}

// IsModalOpen reports whether the application dialog container is present
// and visible.
func (c *Controller) IsModalOpen(ctx context.Context) bool {
	probe, err := c.probeModal(ctx)
	if err != nil {
		c.logger.Debug("Modal probe errored; treating dialog as closed.", zap.Error(err))
		return false
	}
	return probe.Open
}

// ModalState classifies the dialog. The precedence chain is deliberate:
// several indicators can be visible at once during transition frames, so
// the strongest signal wins: absent container, then success text, then the
// most advanced button present, then inline errors.
func (c *Controller) ModalState(ctx context.Context) schemas.ModalState {
	probe, err := c.probeModal(ctx)
	if err != nil {
		c.logger.Debug("Modal probe errored during state read.", zap.Error(err))
		return schemas.StateUnknown
	}
	switch {
	case !probe.Open:
		return schemas.StateClosed
	case probe.SuccessText:
		return schemas.StateSuccess
	case probe.SubmitVisible:
		return schemas.StateSubmit
	case probe.ReviewVisible:
		return schemas.StateReview
	case probe.NextVisible:
		return schemas.StateForm
	case probe.ErrorVisible:
		return schemas.StateError
	default:
		return schemas.StateUnknown
	}
}

// primaryButton is the result of the footer search.
type primaryButton struct {
	Found    bool   `json:"found"`
	Selector string `json:"selector"`
	Label    string `json:"label"`
}

func (c *Controller) findPrimaryButton(ctx context.Context) (primaryButton, error) {
	script := fmt.Sprintf(`(function(sels) { /* probe:primary-button */
		%s
		for (const sel of sels) {
			const el = document.querySelector(sel);
			if (visible(el)) {
				return { found: true, selector: sel,
					label: ((el.getAttribute('aria-label') || '') + ' ' + (el.innerText || '')).trim() };
			}
		}
		return { found: false };
	})(%s)`, jsVisible, mustJSON(primaryButtonSelectors))

	var btn primaryButton
	if err := c.driver.ExecuteScript(ctx, script, &btn); err != nil {
		return primaryButton{}, fmt.Errorf("primary button probe failed: %w", err)
	}
	return btn, nil
}

// firstVisible returns the first selector in sels matching a visible
// element, or "".
func (c *Controller) firstVisible(ctx context.Context, sels []string) string {
	script := fmt.Sprintf(`(function(sels) { /* probe:first-visible */
		%s
		for (const sel of sels) {
			if (visible(document.querySelector(sel))) { return sel; }
		}
		return "";
	})(%s)`, jsVisible, mustJSON(sels))

	var sel string
	if err := c.driver.ExecuteScript(ctx, script, &sel); err != nil {
		c.logger.Debug("first-visible probe failed.", zap.Strings("selectors", sels), zap.Error(err))
		return ""
	}
	return sel
}

// ClickPrimaryButton locates and clicks the dialog's forward-progress
// control, then shepherds the dialog through the post-click choreography:
// settle wait, validation check, save-draft interstitial, button detach.
//
// Retry policy deliberately does not live here: on validation errors this
// returns Success=false and the orchestrator decides whether to re-fill.
func (c *Controller) ClickPrimaryButton(ctx context.Context) schemas.ClickResult {
	btn, err := c.findPrimaryButton(ctx)
	if err != nil {
		return schemas.ClickResult{Err: err.Error()}
	}

	if !btn.Found {
		// No button and no dialog means the flow already completed (e.g. a
		// single-page application that auto-submitted).
		if !c.IsModalOpen(ctx) {
			c.logger.Info("No primary button and dialog closed; treating flow as already complete.")
			return schemas.ClickResult{Success: true, Submitted: true}
		}
		return schemas.ClickResult{Err: "primary button not found in open dialog"}
	}

	isSubmit := strings.Contains(strings.ToLower(btn.Label), labelSubmit)
	if isSubmit {
		c.uncheckFollowCompany(ctx)
	}

	c.logger.Info("Clicking primary button.",
		zap.String("selector", btn.Selector),
		zap.String("label", btn.Label),
		zap.Bool("submit", isSubmit))

	if err := c.driver.Click(ctx, btn.Selector); err != nil {
		return schemas.ClickResult{Err: fmt.Sprintf("primary button click failed: %v", err)}
	}

	// Fixed settle interval before re-reading the dialog; the wizard needs a
	// beat to either advance or render inline errors.
	if err := c.driver.Sleep(ctx, c.settleInterval()); err != nil {
		return schemas.ClickResult{Err: err.Error()}
	}

	if c.HasValidationErrors(ctx) {
		c.logger.Warn("Validation errors present after click.", zap.Strings("errors", c.ValidationErrors(ctx)))
		return schemas.ClickResult{Err: ErrValidation}
	}

	c.handleSaveDraftInterstitial(ctx)

	// Wait for the clicked button to detach; the wizard reuses labels across
	// pages, so detach is the cheapest advance signal. A non-detach is only
	// logged: some pages keep the same button instance.
	if err := c.driver.WaitGone(ctx, btn.Selector, c.detachTimeout()); err != nil {
		c.logger.Debug("Primary button did not detach within timeout; continuing.", zap.Error(err))
	}

	if isSubmit {
		state := c.ModalState(ctx)
		submitted := state == schemas.StateClosed || state == schemas.StateSuccess
		if !submitted {
			// A post-submit upsell or follow-on page remains.
			c.logger.Info("Submit clicked but dialog still open.", zap.String("state", string(state)))
		}
		return schemas.ClickResult{Success: true, Submitted: submitted}
	}
	return schemas.ClickResult{Success: true}
}

// uncheckFollowCompany clears the pre-checked "follow company" box before a
// submit click. Best-effort: its absence is the common case.
func (c *Controller) uncheckFollowCompany(ctx context.Context) {
	script := fmt.Sprintf(`(function(sel) { /* action:unfollow-company */
		const el = document.querySelector(sel);
		if (el && el.checked) { el.click(); return true; }
		return false;
	})(%s)`, mustJSON(followCompanySelector))

	var unchecked bool
	if err := c.driver.ExecuteScript(ctx, script, &unchecked); err != nil {
		c.logger.Debug("Follow-company uncheck failed.", zap.Error(err))
		return
	}
	if unchecked {
		c.logger.Debug("Unchecked follow-company box before submit.")
	}
}

// handleSaveDraftInterstitial transparently accepts the "save your
// progress?" prompt when it appears. This interstitial is not an error
// condition; its save action is clicked and the main dialog awaited.
func (c *Controller) handleSaveDraftInterstitial(ctx context.Context) {
	if c.firstVisible(ctx, []string{saveDraftDialogSelector}) == "" {
		return
	}
	c.logger.Info("Save-draft interstitial detected; accepting.")

	saveSel := c.firstVisible(ctx, saveDraftSaveSelectors)
	if saveSel == "" {
		c.logger.Warn("Save-draft interstitial has no recognizable save action.")
		return
	}
	if err := c.driver.Click(ctx, saveSel); err != nil {
		c.logger.Warn("Failed to click save-draft action.", zap.Error(err))
		return
	}
	if err := c.driver.WaitGone(ctx, saveDraftDialogSelector, c.detachTimeout()); err != nil {
		c.logger.Debug("Save-draft interstitial did not close within timeout.", zap.Error(err))
	}
	if err := c.driver.WaitVisible(ctx, modalSelector, c.detachTimeout()); err != nil {
		c.logger.Debug("Main dialog did not reappear after interstitial.", zap.Error(err))
	}
}

// CloseModal dismisses the dialog: explicit close control first, Escape as
// fallback, then the discard-changes confirmation in either case. Returns
// whether the dialog is gone afterwards.
func (c *Controller) CloseModal(ctx context.Context) bool {
	if sel := c.firstVisible(ctx, dismissSelectors); sel != "" {
		if err := c.driver.Click(ctx, sel); err != nil {
			c.logger.Debug("Dismiss control click failed; sending Escape.", zap.Error(err))
			_ = c.driver.SendEscape(ctx)
		}
	} else {
		_ = c.driver.SendEscape(ctx)
	}

	_ = c.driver.Sleep(ctx, 500*time.Millisecond)

	if sel := c.firstVisible(ctx, discardConfirmSelectors); sel != "" {
		c.logger.Debug("Discard confirmation raised; confirming.", zap.String("selector", sel))
		if err := c.driver.Click(ctx, sel); err != nil {
			c.logger.Debug("Discard confirmation click failed.", zap.Error(err))
		}
		_ = c.driver.Sleep(ctx, 500*time.Millisecond)
	}

	closed := !c.IsModalOpen(ctx)
	c.logger.Info("Close modal attempted.", zap.Bool("closed", closed))
	return closed
}

// HasValidationErrors reports whether any inline error is visible. Never
// returns an error; a failed probe reads as "no errors".
func (c *Controller) HasValidationErrors(ctx context.Context) bool {
	return len(c.ValidationErrors(ctx)) > 0
}

// ValidationErrors returns the visible inline error texts, de-duplicated.
func (c *Controller) ValidationErrors(ctx context.Context) []string {
	script := fmt.Sprintf(`(function(sels) { /* probe:validation-errors */
		%s
		const out = [];
		for (const sel of sels) {
			for (const el of document.querySelectorAll(sel)) {
				if (!visible(el)) continue;
				const t = (el.innerText || '').trim();
				if (t && !out.includes(t)) { out.push(t); }
			}
		}
		return out;
	})(%s)`, jsVisible, mustJSON(validationErrorSelectors))

	var errs []string
	if err := c.driver.ExecuteScript(ctx, script, &errs); err != nil {
		c.logger.Debug("Validation-error probe failed.", zap.Error(err))
		return nil
	}
	return errs
}

func (c *Controller) settleInterval() time.Duration {
	if c.cfg.SettleInterval > 0 {
		return c.cfg.SettleInterval
	}
	return 1500 * time.Millisecond
}

func (c *Controller) detachTimeout() time.Duration {
	if c.cfg.DetachTimeout > 0 {
		return c.cfg.DetachTimeout
	}
	return 5 * time.Second
}

// mustJSON encodes a value for safe injection into a script.
func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
