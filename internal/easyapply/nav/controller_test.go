package nav

// The fake driver answers script probes by marker comment, so these tests
// exercise the controller's decision logic without a live browser.

import (
	"context"
	"errors"
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
)

type fakeDriver struct {
	mu       sync.Mutex
	scripts  map[string][]interface{} // marker -> FIFO of results; last value sticky
	clicks   []string
	clickErr map[string]error
	waits    []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{scripts: map[string][]interface{}{}, clickErr: map[string]error{}}
}

// queue registers results for a probe marker, consumed in order; the final
// one repeats.
func (f *fakeDriver) queue(marker string, results ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[marker] = append(f.scripts[marker], results...)
}

func (f *fakeDriver) ExecuteScript(_ context.Context, script string, out interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for marker, queue := range f.scripts {
		if !strings.Contains(script, marker) || len(queue) == 0 {
			continue
		}
		v := queue[0]
		if len(queue) > 1 {
			f.scripts[marker] = queue[1:]
		}
		if out == nil {
			return nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, out)
	}
	return nil // unqueued probes read as "nothing found"
}

func (f *fakeDriver) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, selector)
	return f.clickErr[selector]
}

func (f *fakeDriver) WaitGone(_ context.Context, selector string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits = append(f.waits, selector)
	return nil
}

func (f *fakeDriver) Navigate(context.Context, string) error                   { return nil }
func (f *fakeDriver) Type(context.Context, string, string) error               { return nil }
func (f *fakeDriver) SelectOption(context.Context, string, string) error       { return nil }
func (f *fakeDriver) SetChecked(context.Context, string, bool) error           { return nil }
func (f *fakeDriver) UploadFile(context.Context, string, string) error         { return nil }
func (f *fakeDriver) SendEscape(context.Context) error                         { return nil }
func (f *fakeDriver) WaitVisible(context.Context, string, time.Duration) error { return nil }
func (f *fakeDriver) Sleep(context.Context, time.Duration) error               { return nil }
func (f *fakeDriver) CurrentURL(context.Context) (string, error)               { return "", nil }
func (f *fakeDriver) OuterHTML(context.Context) (string, error)                { return "", nil }

var _ schemas.PageDriver = (*fakeDriver)(nil)

func newTestController(d schemas.PageDriver) *Controller {
	cfg := config.BrowserConfig{SettleInterval: time.Millisecond, DetachTimeout: time.Millisecond}
	return NewController(d, cfg, zap.NewNop())
}

func TestModalStatePrecedence(t *testing.T) {
	cases := []struct {
		name  string
		probe modalProbe
		want  schemas.ModalState
	}{
		{"closed wins over everything", modalProbe{Open: false, SuccessText: true}, schemas.StateClosed},
		{"success text beats submit button", modalProbe{Open: true, SuccessText: true, SubmitVisible: true}, schemas.StateSuccess},
		{"submit beats review and next", modalProbe{Open: true, SubmitVisible: true, ReviewVisible: true, NextVisible: true}, schemas.StateSubmit},
		{"review beats next", modalProbe{Open: true, ReviewVisible: true, NextVisible: true}, schemas.StateReview},
		{"next means form", modalProbe{Open: true, NextVisible: true, ErrorVisible: true}, schemas.StateForm},
		{"error only", modalProbe{Open: true, ErrorVisible: true}, schemas.StateError},
		{"nothing recognizable", modalProbe{Open: true}, schemas.StateUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newFakeDriver()
			d.queue("probe:modal-state", tc.probe)
			assert.Equal(t, tc.want, newTestController(d).ModalState(context.Background()))
		})
	}
}

func TestClickPrimarySubmitClosesDialog(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:primary-button", primaryButton{Found: true, Selector: "footer button[aria-label='Submit application']", Label: "Submit application"})
	// After the click the dialog is gone.
	d.queue("probe:modal-state", modalProbe{Open: false})
	d.queue("probe:validation-errors", []string{})

	res := newTestController(d).ClickPrimaryButton(context.Background())

	assert.True(t, res.Success)
	assert.True(t, res.Submitted)
	require.Len(t, d.clicks, 1)
	assert.Contains(t, d.clicks[0], "Submit application")
}

func TestClickPrimarySubmitDialogStillOpen(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:primary-button", primaryButton{Found: true, Selector: "footer button.artdeco-button--primary", Label: "Submit application"})
	// Post-submit upsell page: dialog open, no success text.
	d.queue("probe:modal-state", modalProbe{Open: true, NextVisible: true})
	d.queue("probe:validation-errors", []string{})

	res := newTestController(d).ClickPrimaryButton(context.Background())

	assert.True(t, res.Success)
	assert.False(t, res.Submitted, "dialog still open and not in success state")
}

func TestClickPrimaryValidationErrors(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:primary-button", primaryButton{Found: true, Selector: "footer button[aria-label='Continue to next step']", Label: "Continue to next step"})
	d.queue("probe:validation-errors", []string{"Please enter a valid phone number"})

	res := newTestController(d).ClickPrimaryButton(context.Background())

	assert.False(t, res.Success)
	assert.False(t, res.Submitted)
	assert.Equal(t, ErrValidation, res.Err)
}

func TestClickPrimaryClickFailure(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:primary-button", primaryButton{Found: true, Selector: "footer button.artdeco-button--primary", Label: "Continue to next step"})
	d.clickErr["footer button.artdeco-button--primary"] = errors.New("node detached")

	res := newTestController(d).ClickPrimaryButton(context.Background())

	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "primary button click failed")
}

func TestClickPrimaryNoButtonDialogClosed(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:primary-button", primaryButton{Found: false})
	d.queue("probe:modal-state", modalProbe{Open: false})

	res := newTestController(d).ClickPrimaryButton(context.Background())

	assert.True(t, res.Success, "an already-closed flow is complete, not failed")
	assert.True(t, res.Submitted)
	assert.Empty(t, d.clicks)
}

func TestClickPrimaryNoButtonDialogOpen(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:primary-button", primaryButton{Found: false})
	d.queue("probe:modal-state", modalProbe{Open: true, NextVisible: true})

	res := newTestController(d).ClickPrimaryButton(context.Background())

	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "primary button not found")
}

func TestSubmitClickUnchecksFollowCompany(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:primary-button", primaryButton{Found: true, Selector: "footer button.artdeco-button--primary", Label: "Submit application"})
	d.queue("action:unfollow-company", true)
	d.queue("probe:modal-state", modalProbe{Open: false})
	d.queue("probe:validation-errors", []string{})

	res := newTestController(d).ClickPrimaryButton(context.Background())

	assert.True(t, res.Submitted)
}

func TestSaveDraftInterstitialHandled(t *testing.T) {
	d := newFakeDriver()
	d.queue("probe:primary-button", primaryButton{Found: true, Selector: "footer button[data-easy-apply-next-button]", Label: "Next"})
	d.queue("probe:validation-errors", []string{})
	// First first-visible call: the interstitial is present. Second: its save
	// button.
	d.queue("probe:first-visible", saveDraftDialogSelector, saveDraftSaveSelectors[0])

	res := newTestController(d).ClickPrimaryButton(context.Background())

	assert.True(t, res.Success)
	require.Len(t, d.clicks, 2)
	assert.Equal(t, saveDraftSaveSelectors[0], d.clicks[1], "interstitial save action clicked after the primary button")
}

func TestValidationErrorsNeverError(t *testing.T) {
	d := newFakeDriver() // no queued probes at all
	c := newTestController(d)
	assert.False(t, c.HasValidationErrors(context.Background()))
	assert.Empty(t, c.ValidationErrors(context.Background()))
}

func TestCloseModalFallsBackToEscape(t *testing.T) {
	d := newFakeDriver()
	// No dismiss control visible, dialog reads closed after Escape.
	d.queue("probe:modal-state", modalProbe{Open: false})

	assert.True(t, newTestController(d).CloseModal(context.Background()))
	assert.Empty(t, d.clicks)
}
