// internal/resume/config.go
// The resume document model. A resume lives as YAML on disk; the tailoring
// pipeline rewrites a copy of it per job and renders the result to PDF.
package resume

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the full resume configuration.
type Document struct {
	Basics     Basics       `yaml:"basics"`
	Summary    string       `yaml:"summary"`
	Skills     []SkillGroup `yaml:"skills"`
	Experience []Experience `yaml:"experience"`
	Education  []Education  `yaml:"education"`
}

type Basics struct {
	Name     string `yaml:"name"`
	Headline string `yaml:"headline"`
	Email    string `yaml:"email"`
	Phone    string `yaml:"phone"`
	Location string `yaml:"location"`
	Website  string `yaml:"website,omitempty"`
}

type SkillGroup struct {
	Category string   `yaml:"category"`
	Items    []string `yaml:"items"`
}

type Experience struct {
	Company    string   `yaml:"company"`
	Role       string   `yaml:"role"`
	Start      string   `yaml:"start"`
	End        string   `yaml:"end"`
	Highlights []string `yaml:"highlights"`
}

type Education struct {
	School string `yaml:"school"`
	Degree string `yaml:"degree"`
	Year   string `yaml:"year,omitempty"`
}

// Load reads and validates a resume document from disk.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resume config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a resume document and rejects structurally empty ones.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing resume config: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate enforces the minimum shape a renderable resume needs.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Basics.Name) == "" {
		return fmt.Errorf("resume config: basics.name is required")
	}
	if strings.TrimSpace(d.Basics.Email) == "" {
		return fmt.Errorf("resume config: basics.email is required")
	}
	if len(d.Experience) == 0 {
		return fmt.Errorf("resume config: at least one experience entry is required")
	}
	for i, exp := range d.Experience {
		if strings.TrimSpace(exp.Company) == "" || strings.TrimSpace(exp.Role) == "" {
			return fmt.Errorf("resume config: experience[%d] needs company and role", i)
		}
	}
	return nil
}

// CheckAgainstBase guards a rewritten document against truncation. Language
// models occasionally return a fragment instead of the full document; a
// tailored resume that silently lost jobs or education must never reach a
// recruiter. Rewording and re-ranking within sections is fine, dropping
// entries is not.
func (d *Document) CheckAgainstBase(base *Document) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if len(d.Experience) < len(base.Experience) {
		return fmt.Errorf("tailored resume dropped experience entries: %d -> %d",
			len(base.Experience), len(d.Experience))
	}
	if len(d.Education) < len(base.Education) {
		return fmt.Errorf("tailored resume dropped education entries: %d -> %d",
			len(base.Education), len(d.Education))
	}
	if d.Basics.Name != base.Basics.Name || d.Basics.Email != base.Basics.Email {
		return fmt.Errorf("tailored resume altered identity fields")
	}

	baseHighlights := 0
	for _, exp := range base.Experience {
		baseHighlights += len(exp.Highlights)
	}
	gotHighlights := 0
	for _, exp := range d.Experience {
		gotHighlights += len(exp.Highlights)
	}
	// Allow some condensing but not gutting.
	if baseHighlights > 0 && gotHighlights*2 < baseHighlights {
		return fmt.Errorf("tailored resume lost most highlights: %d -> %d", baseHighlights, gotHighlights)
	}
	return nil
}

// Marshal renders the document back to YAML.
func (d *Document) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding resume config: %w", err)
	}
	return out, nil
}
