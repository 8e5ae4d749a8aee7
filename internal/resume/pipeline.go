// internal/resume/pipeline.go
// Background resume tailoring. Start returns immediately with a joinable
// handle; the heavy work (LLM rewrite, validation, PDF render, disk write)
// runs detached so form filling proceeds in parallel and joins lazily at
// the upload field.
package resume

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hireloop/easyapply/api/schemas"
	"github.com/hireloop/easyapply/internal/browser/session"
	"github.com/hireloop/easyapply/internal/config"
)

// Renderer turns a resume document into a PDF on disk.
type Renderer interface {
	RenderPDF(ctx context.Context, doc *Document, outPath string) error
}

// Tailorer is the single LLM call the pipeline needs; schemas.Answerer
// satisfies it.
type Tailorer interface {
	TailorResume(ctx context.Context, baseYAML string, description string, language string) (string, error)
}

// Pipeline tailors the base resume for individual jobs.
type Pipeline struct {
	cfg      config.ResumeConfig
	tailorer Tailorer
	renderer Renderer
	logger   *zap.Logger

	// timeout bounds one complete tailoring run.
	timeout time.Duration
}

func NewPipeline(cfg config.ResumeConfig, tailorer Tailorer, renderer Renderer, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		tailorer: tailorer,
		renderer: renderer,
		logger:   logger.Named("resume"),
		timeout:  3 * time.Minute,
	}
}

var _ schemas.ResumeTailor = (*Pipeline)(nil)

// Start kicks off tailoring for one job and returns the joinable handle.
// The run is detached from ctx's cancellation but keeps its values: closing
// the application dialog must not abort a render already paid for.
func (p *Pipeline) Start(ctx context.Context, job *schemas.Job, description string) schemas.PendingArtifact {
	pending := newPending()

	runCtx, cancel := context.WithTimeout(session.Detach(ctx), p.timeout)
	go func() {
		defer cancel()
		defer close(pending.ch)

		artifact, err := p.run(runCtx, job, description)
		if err != nil {
			p.logger.Warn("Resume tailoring failed; base resume will be used.",
				zap.String("job_id", job.ID),
				zap.String("company", job.Company),
				zap.Error(err))
			return
		}
		pending.ch <- artifact
		p.logger.Info("Tailored resume ready.",
			zap.String("job_id", job.ID),
			zap.String("pdf", artifact.PDFPath))
	}()
	return pending
}

func (p *Pipeline) run(ctx context.Context, job *schemas.Job, description string) (*schemas.ResumeArtifact, error) {
	base, err := Load(p.cfg.BaseConfigPath)
	if err != nil {
		return nil, err
	}
	baseYAML, err := base.Marshal()
	if err != nil {
		return nil, err
	}

	tailoredYAML, err := p.tailorer.TailorResume(ctx, string(baseYAML), description, job.DetectedLanguage)
	if err != nil {
		return nil, fmt.Errorf("tailoring call: %w", err)
	}
	tailored, err := Parse([]byte(tailoredYAML))
	if err != nil {
		return nil, fmt.Errorf("tailored output unparsable: %w", err)
	}
	if err := tailored.CheckAgainstBase(base); err != nil {
		return nil, err
	}

	stem := artifactStem(job)
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	artifact := &schemas.ResumeArtifact{
		YAMLPath:   filepath.Join(p.cfg.OutputDir, stem+".yaml"),
		PDFPath:    filepath.Join(p.cfg.OutputDir, stem+".pdf"),
		ScoresPath: filepath.Join(p.cfg.OutputDir, stem+"_scores.json"),
	}
	if err := os.WriteFile(artifact.YAMLPath, []byte(tailoredYAML), 0o644); err != nil {
		return nil, fmt.Errorf("writing tailored yaml: %w", err)
	}
	if err := p.renderer.RenderPDF(ctx, tailored, artifact.PDFPath); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	if err := writeScores(artifact.ScoresPath, tailored, description); err != nil {
		// Scores are advisory; a failed write does not void the artifact.
		p.logger.Debug("Writing match scores failed.", zap.Error(err))
	}

	p.Prune()
	return artifact, nil
}

// artifactStem builds the shared filename stem for one job's triple.
func artifactStem(job *schemas.Job) string {
	ts := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s", sanitize(job.Company), sanitize(job.Title), ts)
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

func sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if len(s) > 40 {
		s = s[:40]
	}
	if s == "" {
		return "unknown"
	}
	return s
}

// Prune enforces the retention policy: keep the KeepRecent newest artifact
// triples, delete the rest. Grouping is by filename stem so a triple is
// always kept or removed whole. Returns the number of pruned triples.
func (p *Pipeline) Prune() int {
	keep := p.cfg.KeepRecent
	if keep <= 0 {
		return 0
	}
	entries, err := os.ReadDir(p.cfg.OutputDir)
	if err != nil {
		return 0
	}

	type group struct {
		stem    string
		modTime time.Time
		files   []string
	}
	groups := map[string]*group{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		stem := name
		for _, suffix := range []string{"_scores.json", ".yaml", ".pdf"} {
			if strings.HasSuffix(name, suffix) {
				stem = strings.TrimSuffix(name, suffix)
				break
			}
		}
		g, ok := groups[stem]
		if !ok {
			g = &group{stem: stem}
			groups[stem] = g
		}
		g.files = append(g.files, filepath.Join(p.cfg.OutputDir, name))
		if info, err := e.Info(); err == nil && info.ModTime().After(g.modTime) {
			g.modTime = info.ModTime()
		}
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].modTime.After(ordered[j].modTime) })

	pruned := 0
	for _, g := range ordered[min(keep, len(ordered)):] {
		for _, f := range g.files {
			if err := os.Remove(f); err != nil {
				p.logger.Debug("Pruning artifact failed.", zap.String("file", f), zap.Error(err))
			}
		}
		pruned++
		p.logger.Debug("Pruned old resume artifacts.", zap.String("stem", g.stem))
	}
	return pruned
}
