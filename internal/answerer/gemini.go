// internal/answerer/gemini.go
// Gemini-backed answer generation. One client is shared across jobs; the
// current job posting is injected as context so answers can reference the
// company and role without the handlers knowing anything about prompts.
package answerer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hireloop/easyapply/api/schemas"
	"github.com/hireloop/easyapply/internal/config"
)

const systemPrompt = `You are filling out a job application form on behalf of a candidate.
Answer each question truthfully based on the candidate profile and job context provided.
Respond with the answer only: no preamble, no explanation, no quotation marks.
For numeric questions respond with digits only. For choice questions respond with
exactly one of the offered options, verbatim.`

// Gemini implements schemas.Answerer over the Gemini API.
type Gemini struct {
	client *genai.Client
	cfg    config.LLMConfig
	logger *zap.Logger

	// profile is free-text background about the candidate, prepended to
	// every prompt.
	profile string

	mu  sync.RWMutex
	job *schemas.Job
}

// NewGemini dials the API. profile may be empty; answers then rely on the
// job context alone.
func NewGemini(ctx context.Context, cfg config.LLMConfig, profile string, logger *zap.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{
		client:  client,
		cfg:     cfg,
		logger:  logger.Named("answerer"),
		profile: profile,
	}, nil
}

var _ schemas.Answerer = (*Gemini)(nil)

// SetJobContext swaps in the posting the next answers should assume.
func (g *Gemini) SetJobContext(job *schemas.Job) {
	g.mu.Lock()
	g.job = job
	g.mu.Unlock()
}

// Answer generates one answer for a form question.
func (g *Gemini) Answer(ctx context.Context, q schemas.Question) (string, error) {
	prompt := g.buildPrompt(q)

	text, err := g.generate(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	answer := firstLine(text)
	if answer == "" {
		return "", fmt.Errorf("empty answer for question %q", q.Text)
	}
	g.logger.Debug("Generated answer.",
		zap.String("kind", string(q.Kind)),
		zap.String("question", q.Text),
		zap.String("answer", answer))
	return answer, nil
}

// TailorResume rewrites the base resume YAML for a job description. The
// output must keep the exact YAML schema of the input; validation of that
// happens in the resume pipeline, not here.
func (g *Gemini) TailorResume(ctx context.Context, baseYAML, description, language string) (string, error) {
	var b strings.Builder
	b.WriteString("Rewrite the resume below so it emphasizes the experience most relevant to the job description.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Keep exactly the same YAML structure and field names.\n")
	b.WriteString("- Keep every experience and education entry; only reword and reorder highlights.\n")
	b.WriteString("- Do not invent employers, titles, dates or degrees.\n")
	b.WriteString("- Output raw YAML only, without markdown fences.\n")
	if language != "" {
		fmt.Fprintf(&b, "- Write highlight and summary text in the language with ISO 639-1 code %q.\n", language)
	}
	b.WriteString("\nJob description:\n")
	b.WriteString(description)
	b.WriteString("\n\nResume YAML:\n")
	b.WriteString(baseYAML)

	text, err := g.generate(ctx, b.String(), true)
	if err != nil {
		return "", err
	}
	return stripFences(text), nil
}

func (g *Gemini) buildPrompt(q schemas.Question) string {
	var b strings.Builder
	if g.profile != "" {
		b.WriteString("Candidate profile:\n")
		b.WriteString(g.profile)
		b.WriteString("\n\n")
	}

	g.mu.RLock()
	job := g.job
	g.mu.RUnlock()
	if job != nil {
		fmt.Fprintf(&b, "Job context: %s at %s.\n", job.Title, job.Company)
		if job.Description != "" {
			b.WriteString(clip(job.Description, 4000))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Application form question (%s): %s\n", q.Kind, q.Text)
	switch q.Kind {
	case schemas.QuestionChoice:
		fmt.Fprintf(&b, "Options: %s\n", strings.Join(q.Options, " | "))
		b.WriteString("Answer with exactly one option, verbatim.\n")
	case schemas.QuestionNumeric:
		b.WriteString("Answer with digits only.\n")
	case schemas.QuestionDate:
		b.WriteString("Answer in MM/DD/YYYY format.\n")
	}
	return b.String()
}

func (g *Gemini) generate(ctx context.Context, prompt string, longForm bool) (string, error) {
	timeout := g.cfg.APITimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.cfg.Temperature),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	if longForm {
		cfg.SystemInstruction = nil
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned no text")
	}
	return text, nil
}

// clip truncates text to at most n runes so a long job description cannot
// crowd the question out of the prompt.
func clip(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.Trim(strings.TrimSpace(line), `"'`)
}

// stripFences removes a ```yaml ... ``` wrapper when the model adds one
// despite instructions.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```yaml")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
