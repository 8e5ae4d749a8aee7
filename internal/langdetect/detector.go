// internal/langdetect/detector.go
// Thin wrapper over lingua for job-description language gating. The
// detector is restricted to the languages worth telling apart in job
// postings; a smaller candidate set is both faster and less prone to
// false positives on short texts.
package langdetect

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// minTextLength below which classification is refused rather than guessed.
const minTextLength = 40

// Detector classifies text into lowercase ISO 639-1 codes.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over the common job-posting languages.
func New() *Detector {
	languages := []lingua.Language{
		lingua.English,
		lingua.German,
		lingua.French,
		lingua.Spanish,
		lingua.Italian,
		lingua.Portuguese,
		lingua.Dutch,
		lingua.Polish,
		lingua.Swedish,
		lingua.Danish,
	}
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			WithPreloadedLanguageModels().
			Build(),
	}
}

// Detect returns the ISO 639-1 code of text. ok is false for texts too
// short or ambiguous to classify; callers treat that as "no gate".
func (d *Detector) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if len(text) < minTextLength {
		return "", false
	}
	language, exists := d.detector.DetectLanguageOf(text)
	if !exists {
		return "", false
	}
	return strings.ToLower(language.IsoCode639_1().String()), true
}
