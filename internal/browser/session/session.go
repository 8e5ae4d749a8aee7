// internal/browser/session/session.go
// A Session wraps one chromedp tab and exposes the narrow interaction
// surface the apply engine needs. Exactly one navigation controller and one
// page processor drive a session at a time; all calls are sequential.
//
// Every method derives a bounded operational context before running CDP
// actions, so no wait in this package is unbounded.
package session

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hireloop/easyapply/api/schemas"
	"github.com/hireloop/easyapply/internal/config"
)

// Manager owns the chromedp exec allocator shared by all sessions.
type Manager struct {
	cfg       config.BrowserConfig
	logger    *zap.Logger
	allocCtx  context.Context
	allocStop context.CancelFunc
}

// NewManager launches (lazily) a browser allocator from configuration.
func NewManager(parentCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	} else if p := os.Getenv("CHROME_PATH"); p != "" {
		opts = append(opts, chromedp.ExecPath(p))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, allocStop := chromedp.NewExecAllocator(parentCtx, opts...)
	return &Manager{
		cfg:       cfg,
		logger:    logger.Named("browser"),
		allocCtx:  allocCtx,
		allocStop: allocStop,
	}
}

// NewSession opens a fresh tab.
func (m *Manager) NewSession() (*Session, error) {
	if m.allocCtx.Err() != nil {
		return nil, fmt.Errorf("browser allocator is closed: %w", m.allocCtx.Err())
	}
	tabCtx, tabCancel := chromedp.NewContext(m.allocCtx)
	id := uuid.New().String()
	return &Session{
		id:     id,
		ctx:    tabCtx,
		cancel: tabCancel,
		cfg:    m.cfg,
		logger: m.logger.With(zap.String("session_id", id)),
	}, nil
}

// Shutdown terminates the browser process.
func (m *Manager) Shutdown() {
	m.allocStop()
}

// Session is a single browser tab.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.BrowserConfig
	logger *zap.Logger
}

// Statically assert the driver contract.
var _ schemas.PageDriver = (*Session)(nil)

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Close releases the tab.
func (s *Session) Close() {
	s.cancel()
}

// run executes chromedp actions against the tab under the caller's deadline.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	combined, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	err := chromedp.Run(combined, actions...)
	if err != nil {
		// Prefer the cause the caller can act on.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.ctx.Err() != nil {
			return fmt.Errorf("session closed: %w", s.ctx.Err())
		}
	}
	return err
}

// Navigate loads the URL and waits for the document to become ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating session.", zap.String("url", url))

	navTimeout := s.cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	err := s.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, navTimeout, navCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Click scrolls the element into view and clicks it.
func (s *Session) Click(ctx context.Context, selector string) error {
	opCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	err := s.run(opCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		if opCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("click timed out for selector %q: %w", selector, opCtx.Err())
		}
		return fmt.Errorf("click failed for selector %q: %w", selector, err)
	}
	s.logger.Debug("Click successful.", zap.String("selector", selector))
	return nil
}

// Type clears the matched input and types text into it. Clearing goes
// through JS so reactive frameworks see input/change events.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	jsClear := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el || el.disabled || el.readOnly) { return false; }
		el.value = "";
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})(%s)`, jsonEncode(selector))

	var cleared bool
	err := s.run(opCtx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		evaluate(jsClear, &cleared),
	)
	if err != nil {
		return fmt.Errorf("preparation (clear) failed for selector %q: %w", selector, err)
	}
	if !cleared {
		return fmt.Errorf("preparation (clear) failed for selector %q: element stale or non-interactable", selector)
	}

	if err := s.run(opCtx, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("type failed for selector %q: %w", selector, err)
	}
	s.logger.Debug("Type successful.", zap.String("selector", selector), zap.Int("text_length", len(text)))
	return nil
}

// SelectOption picks an option of a native <select> by its visible text,
// falling back to value match.
func (s *Session) SelectOption(ctx context.Context, selector, value string) error {
	opCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	js := fmt.Sprintf(`(function(sel, want) {
		const el = document.querySelector(sel);
		if (!el || el.disabled) { return false; }
		for (const opt of el.options) {
			if (opt.text.trim() === want || opt.value === want) {
				el.value = opt.value;
				el.dispatchEvent(new Event('change', { bubbles: true }));
				return true;
			}
		}
		return false;
	})(%s, %s)`, jsonEncode(selector), jsonEncode(value))

	var ok bool
	if err := s.run(opCtx, evaluate(js, &ok)); err != nil {
		return fmt.Errorf("select failed for selector %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("select failed for selector %q: no option matching %q", selector, value)
	}
	return nil
}

// SetChecked forces a checkbox or radio input into the wanted state,
// dispatching a click when the state differs so site listeners fire.
func (s *Session) SetChecked(ctx context.Context, selector string, checked bool) error {
	opCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	js := fmt.Sprintf(`(function(sel, want) {
		const el = document.querySelector(sel);
		if (!el || el.disabled) { return false; }
		if (el.checked !== want) { el.click(); }
		return el.checked === want;
	})(%s, %s)`, jsonEncode(selector), jsonEncode(checked))

	var ok bool
	if err := s.run(opCtx, evaluate(js, &ok)); err != nil {
		return fmt.Errorf("set-checked failed for selector %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("set-checked failed for selector %q: state did not change", selector)
	}
	return nil
}

// UploadFile attaches a local file to an <input type="file">.
func (s *Session) UploadFile(ctx context.Context, selector, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("upload file not accessible: %w", err)
	}
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.run(opCtx, chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("upload failed for selector %q: %w", selector, err)
	}
	s.logger.Debug("Upload successful.", zap.String("selector", selector), zap.String("path", path))
	return nil
}

// SendEscape sends the Escape key to the page.
func (s *Session) SendEscape(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.run(opCtx, chromedp.KeyEvent("\x1b"))
}

// WaitVisible waits until the selector matches a visible element.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.run(opCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait-visible timed out for selector %q: %w", selector, err)
	}
	return nil
}

// WaitGone waits until the selector no longer matches anything in the DOM.
func (s *Session) WaitGone(ctx context.Context, selector string, timeout time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.run(opCtx, chromedp.WaitNotPresent(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait-gone timed out for selector %q: %w", selector, err)
	}
	return nil
}

// Sleep pauses respecting context cancellation.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-t.C:
		return nil
	}
}

// CurrentURL returns the tab's current location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var url string
	if err := s.run(opCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read current URL: %w", err)
	}
	return url, nil
}

// OuterHTML captures the full document markup, used for debug snapshots.
func (s *Session) OuterHTML(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	var html string
	if err := s.run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture document HTML: %w", err)
	}
	return html, nil
}
