// internal/easyapply/answers/cache.go
// Answer reuse: form questions are matched fuzzily by normalizing their
// text (case, accents, punctuation, whitespace), so "How many years of
// experience…?" saved last week still matches today's slightly reworded
// variant of the same label.
package answers

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hireloop/easyapply/api/schemas"
)

// stripAccents decomposes to NFD, drops combining marks, recomposes.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize reduces question text to its canonical lookup form: lower case,
// accents stripped, punctuation dropped, whitespace collapsed.
func Normalize(text string) string {
	out, _, err := transform.String(stripAccents, text)
	if err != nil {
		out = text
	}
	out = strings.ToLower(out)

	var b strings.Builder
	b.Grow(len(out))
	lastSpace := true
	for _, r := range out {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

type cacheKey struct {
	qtype string
	text  string
}

// Cache holds previously saved answers keyed by question type plus
// normalized question text. New answers flow out through the recorder
// callback; the cache itself never persists anything.
type Cache struct {
	mu       sync.RWMutex
	entries  map[cacheKey]string
	recorder schemas.AnswerRecorder
}

// NewCache seeds a cache from previously saved answers. recorder may be nil.
func NewCache(saved []schemas.SavedAnswer, recorder schemas.AnswerRecorder) *Cache {
	c := &Cache{
		entries:  make(map[cacheKey]string, len(saved)),
		recorder: recorder,
	}
	for _, sa := range saved {
		c.entries[cacheKey{qtype: sa.QuestionType, text: Normalize(sa.QuestionText)}] = sa.Answer
	}
	return c
}

// Lookup returns the saved answer for a question, if any.
func (c *Cache) Lookup(questionType, questionText string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	answer, ok := c.entries[cacheKey{qtype: questionType, text: Normalize(questionText)}]
	return answer, ok
}

// Record stores a newly generated answer and reports it through the
// recorder callback so the caller can persist it.
func (c *Cache) Record(questionType, questionText, answer string) {
	c.mu.Lock()
	c.entries[cacheKey{qtype: questionType, text: Normalize(questionText)}] = answer
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder(questionType, questionText, answer)
	}
}

// Len reports how many answers the cache currently holds.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
