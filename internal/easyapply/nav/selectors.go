// internal/easyapply/nav/selectors.go
package nav

// Selector inventory for the quick-apply dialog. Ordered lists are searched
// most-specific-first: explicit data hooks, then accessible labels, then the
// generic primary button class as a last resort.

const (
	// modalSelector matches the application dialog container.
	modalSelector = "div.jobs-easy-apply-modal div[role='dialog'], div.jobs-easy-apply-modal, div[data-test-modal][role='dialog']"

	// footerSelector scopes the primary-action search to the dialog footer.
	footerSelector = "footer"

	// followCompanySelector is the pre-checked "follow company" box unchecked
	// before a submit click.
	followCompanySelector = "input[type='checkbox']#follow-company-checkbox, label[for='follow-company-checkbox'] input[type='checkbox']"
)

// primaryButtonSelectors locate the forward-progress control inside the
// dialog footer. Order matters; the first visible match wins.
var primaryButtonSelectors = []string{
	"footer button[data-easy-apply-next-button]",
	"footer button[data-live-test-easy-apply-next-button]",
	"footer button[data-live-test-easy-apply-review-button]",
	"footer button[data-live-test-easy-apply-submit-button]",
	"footer button[aria-label='Continue to next step']",
	"footer button[aria-label='Review your application']",
	"footer button[aria-label='Submit application']",
	"footer button.artdeco-button--primary",
}

// dismissSelectors locate the dialog's explicit close control.
var dismissSelectors = []string{
	"button[aria-label='Dismiss']",
	"button[data-test-modal-close-btn]",
	"button.artdeco-modal__dismiss",
}

// Save-draft interstitial: appears after some page advances and is not an
// error condition; its save action is clicked transparently.
var (
	saveDraftDialogSelector = "div[data-test-modal] h2[id*='save-application'], div.artdeco-modal--layer-confirmation"
	saveDraftSaveSelectors  = []string{
		"button[data-control-name='save_application_btn']",
		"div.artdeco-modal--layer-confirmation button.artdeco-button--primary",
	}
)

// discardConfirmSelectors confirm the "discard changes?" prompt raised when
// closing a partially filled dialog.
var discardConfirmSelectors = []string{
	"button[data-control-name='discard_application_confirm_btn']",
	"button[data-test-dialog-secondary-btn]",
	"div.artdeco-modal--layer-confirmation button.artdeco-button--secondary",
}

// validationErrorSelectors cover the inline error shapes the wizard renders
// after a rejected page advance.
var validationErrorSelectors = []string{
	"div.artdeco-inline-feedback--error .artdeco-inline-feedback__message",
	"span.artdeco-inline-feedback__message",
	"div[role='alert']",
	".fb-dash-form-element-error",
}

// successTextFragments identify the terminal confirmation pane. Matched
// case-insensitively against the dialog's text.
var successTextFragments = []string{
	"application sent",
	"your application was sent",
	"applied",
}

// labelSubmit classifies the primary action as the final submit.
const labelSubmit = "submit"
