// internal/snapshot/snapshot.go
// Debug snapshots. On failure the page's full HTML is written to disk with
// a metadata header so DOM drift can be diagnosed after the run. Capture is
// best-effort throughout; a snapshot must never make a bad situation worse.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/easyapply/api/schemas"
	"github.com/hireloop/easyapply/internal/config"
)

// Writer captures page snapshots into a directory.
type Writer struct {
	cfg    config.DebugConfig
	logger *zap.Logger

	now func() time.Time
}

func NewWriter(cfg config.DebugConfig, logger *zap.Logger) *Writer {
	return &Writer{
		cfg:    cfg,
		logger: logger.Named("snapshot"),
		now:    time.Now,
	}
}

// Capture writes the current page HTML as {label}_{title}_{timestamp}.html.
func (w *Writer) Capture(ctx context.Context, driver schemas.PageDriver, label, title string) {
	if !w.cfg.Enabled {
		return
	}
	html, err := driver.OuterHTML(ctx)
	if err != nil {
		w.logger.Debug("Snapshot capture failed.", zap.Error(err))
		return
	}
	url, _ := driver.CurrentURL(ctx)

	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		w.logger.Debug("Snapshot dir creation failed.", zap.Error(err))
		return
	}

	name := fmt.Sprintf("%s_%s_%s.html", sanitize(label), sanitize(title), w.now().Format("20060102_150405"))
	path := filepath.Join(w.cfg.Dir, name)

	header := fmt.Sprintf("<!-- captured: %s\n     url: %s\n     context: %s\n     title: %s -->\n",
		w.now().Format(time.RFC3339), url, label, title)
	if err := os.WriteFile(path, []byte(header+html), 0o644); err != nil {
		w.logger.Debug("Snapshot write failed.", zap.Error(err))
		return
	}
	w.logger.Info("Snapshot written.", zap.String("path", path))
}

// SweepOld removes snapshots older than the configured retention age and
// returns how many were deleted.
func (w *Writer) SweepOld() int {
	if w.cfg.MaxAge <= 0 {
		return 0
	}
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return 0
	}
	cutoff := w.now().Add(-w.cfg.MaxAge)

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(w.cfg.Dir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		w.logger.Info("Swept old snapshots.", zap.Int("removed", removed))
	}
	return removed
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if len(s) > 40 {
		s = s[:40]
	}
	if s == "" {
		return "page"
	}
	return s
}
