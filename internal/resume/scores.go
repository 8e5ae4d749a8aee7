// internal/resume/scores.go
// Match scoring. The score file is purely diagnostic: it records how much of
// the posting's vocabulary the tailored resume actually covers, which makes
// bad tailoring runs easy to spot in the output directory.
package resume

import (
	"os"
	"sort"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/hireloop/easyapply/internal/easyapply/answers"
)

// MatchScores summarizes vocabulary overlap between a tailored resume and
// the job description.
type MatchScores struct {
	KeywordCoverage float64  `json:"keyword_coverage"`
	MatchedKeywords []string `json:"matched_keywords"`
	MissingKeywords []string `json:"missing_keywords"`
}

// stopwords that carry no signal for matching.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "you": {}, "our": {}, "are": {},
	"will": {}, "your": {}, "have": {}, "that": {}, "this": {}, "from": {},
	"about": {}, "who": {}, "what": {}, "their": {}, "they": {}, "its": {},
	"not": {}, "all": {}, "can": {}, "has": {}, "more": {}, "than": {},
}

// Score computes keyword coverage of doc over description.
func Score(doc *Document, description string) MatchScores {
	resumeWords := map[string]struct{}{}
	for _, w := range tokenize(documentText(doc)) {
		resumeWords[w] = struct{}{}
	}

	seen := map[string]struct{}{}
	var matched, missing []string
	for _, w := range tokenize(description) {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := resumeWords[w]; ok {
			matched = append(matched, w)
		} else {
			missing = append(missing, w)
		}
	}
	sort.Strings(matched)
	sort.Strings(missing)

	total := len(matched) + len(missing)
	coverage := 0.0
	if total > 0 {
		coverage = float64(len(matched)) / float64(total)
	}
	return MatchScores{
		KeywordCoverage: coverage,
		MatchedKeywords: matched,
		MissingKeywords: missing,
	}
}

func writeScores(path string, doc *Document, description string) error {
	out, err := json.MarshalIndent(Score(doc, description), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func tokenize(text string) []string {
	var out []string
	for _, w := range strings.Fields(answers.Normalize(text)) {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

func documentText(doc *Document) string {
	var b strings.Builder
	b.WriteString(doc.Basics.Headline)
	b.WriteString(" ")
	b.WriteString(doc.Summary)
	for _, sg := range doc.Skills {
		b.WriteString(" ")
		b.WriteString(sg.Category)
		b.WriteString(" ")
		b.WriteString(strings.Join(sg.Items, " "))
	}
	for _, exp := range doc.Experience {
		b.WriteString(" ")
		b.WriteString(exp.Role)
		b.WriteString(" ")
		b.WriteString(exp.Company)
		b.WriteString(" ")
		b.WriteString(strings.Join(exp.Highlights, " "))
	}
	for _, edu := range doc.Education {
		b.WriteString(" ")
		b.WriteString(edu.Degree)
		b.WriteString(" ")
		b.WriteString(edu.School)
	}
	return b.String()
}
