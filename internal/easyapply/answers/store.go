// internal/easyapply/answers/store.go
// File-backed persistence for saved answers. The store loads once at
// startup and rewrites the whole file on every new answer; the volume is
// tiny and a full rewrite keeps the YAML human-editable.
package answers

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hireloop/easyapply/api/schemas"
)

// Store persists saved answers as a YAML list.
type Store struct {
	path string

	mu    sync.Mutex
	saved []schemas.SavedAnswer
}

// OpenStore loads the store at path, creating state for an empty one when
// the file does not exist yet.
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading answers file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &s.saved); err != nil {
		return nil, fmt.Errorf("parsing answers file %s: %w", path, err)
	}
	return s, nil
}

// Saved returns the loaded answers.
func (s *Store) Saved() []schemas.SavedAnswer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schemas.SavedAnswer, len(s.saved))
	copy(out, s.saved)
	return out
}

// Record upserts one answer and rewrites the file. A re-recorded question
// replaces its old answer: validation retries regenerate answers and the
// corrected value must be the one that survives. Matches the
// schemas.AnswerRecorder signature so it can back the cache directly.
func (s *Store) Record(questionType, questionText, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sa := range s.saved {
		if sa.QuestionType == questionType && Normalize(sa.QuestionText) == Normalize(questionText) {
			if sa.Answer == answer {
				return
			}
			s.saved[i].Answer = answer
			s.flushLocked()
			return
		}
	}
	s.saved = append(s.saved, schemas.SavedAnswer{
		QuestionType: questionType,
		QuestionText: questionText,
		Answer:       answer,
	})
	s.flushLocked()
}

func (s *Store) flushLocked() {
	out, err := yaml.Marshal(s.saved)
	if err != nil {
		return
	}
	if dir := filepath.Dir(s.path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	_ = os.WriteFile(s.path, out, 0o644)
}
