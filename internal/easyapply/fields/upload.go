// internal/easyapply/fields/upload.go
package fields

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hireloop/easyapply/api/schemas"
)

// UploadHandler fills file-upload sections. For resume inputs it is the one
// place the tailoring pipeline is joined: the pending artifact is awaited
// with a bounded timeout and any failure falls back to the configured base
// resume. Cover-letter inputs use the configured cover letter path.
type UploadHandler struct{}

var _ Handler = (*UploadHandler)(nil)

func (h *UploadHandler) Name() string { return "upload" }

func (h *UploadHandler) CanHandle(sec *schemas.Section) bool {
	return sec.HasFile
}

func (h *UploadHandler) Handle(ctx context.Context, env *Env, sec *schemas.Section) (bool, error) {
	label := strings.ToLower(sec.Label)

	if strings.Contains(label, "cover letter") || strings.Contains(label, "cover_letter") {
		if env.CoverLetterPath == "" {
			// Cover letters are almost always optional; report unfilled, not
			// broken.
			env.Logger.Debug("No cover letter configured; leaving upload empty.", zap.String("label", sec.Label))
			return false, nil
		}
		if err := env.Driver.UploadFile(ctx, sec.InputSelector, env.CoverLetterPath); err != nil {
			return false, err
		}
		return true, nil
	}

	path := h.resolveResumePath(ctx, env)
	if path == "" {
		return false, fmt.Errorf("no resume available for upload field %q", sec.Label)
	}
	if err := env.Driver.UploadFile(ctx, sec.InputSelector, path); err != nil {
		return false, err
	}
	env.Logger.Info("Resume uploaded.", zap.String("path", path), zap.String("label", sec.Label))
	return true, nil
}

// resolveResumePath performs the lazy join on the tailoring pipeline. A nil
// pending handle, a timeout or a failed pipeline all degrade to the base
// resume path.
func (h *UploadHandler) resolveResumePath(ctx context.Context, env *Env) string {
	if env.Pending != nil {
		if artifact := env.Pending.AwaitOrNull(ctx, env.TailorJoinTimeout); artifact != nil {
			return artifact.PDFPath
		}
		env.Logger.Warn("Tailored resume unavailable; falling back to base resume.",
			zap.String("base_resume", env.ResumePath))
	}
	return env.ResumePath
}
