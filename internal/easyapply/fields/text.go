// internal/easyapply/fields/text.go
// Handlers for typed inputs: typeahead, date, textarea and the generic
// single-line text catch-all.
package fields

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hireloop/easyapply/api/schemas"
)

// -- Typeahead --

// TypeaheadHandler fills combobox-style inputs: type the answer, wait for
// the suggestion list, pick the first entry. Leaving free text in a
// typeahead without committing a suggestion is what triggers most "enter a
// valid value" validation errors, so the suggestion click is not optional.
type TypeaheadHandler struct{}

var _ Handler = (*TypeaheadHandler)(nil)

func (h *TypeaheadHandler) Name() string { return "typeahead" }

func (h *TypeaheadHandler) CanHandle(sec *schemas.Section) bool { return sec.IsTypeahead }

func (h *TypeaheadHandler) Handle(ctx context.Context, env *Env, sec *schemas.Section) (bool, error) {
	q := schemas.Question{Kind: schemas.QuestionText, Text: sec.Label, Required: sec.Required}
	answer, err := resolveAnswer(ctx, env, h.Name(), q)
	if err != nil {
		return false, err
	}

	if err := env.Driver.Type(ctx, sec.InputSelector, answer); err != nil {
		return false, err
	}
	// Give the suggestion list a moment to populate.
	if err := env.Driver.Sleep(ctx, 800*time.Millisecond); err != nil {
		return false, err
	}

	script := `(function() { /* action:pick-suggestion */
		const option = document.querySelector("div[role='listbox'] [role='option'], ul.basic-typeahead__triggered-content li");
		if (!option) { return false; }
		option.click();
		return true;
	})()`

	var picked bool
	if err := env.Driver.ExecuteScript(ctx, script, &picked); err != nil {
		return false, fmt.Errorf("typeahead suggestion pick failed for %q: %w", sec.Label, err)
	}
	if !picked {
		// The typed text may still be accepted as-is; report filled but note
		// the uncommitted suggestion.
		env.Logger.Debug("No typeahead suggestion appeared; keeping typed text.")
	}
	return true, nil
}

// -- Date --

// DateHandler fills date inputs. The answerer is asked for MM/DD/YYYY; an
// unusable answer degrades to today's date, which satisfies the common
// "earliest start date" fields.
type DateHandler struct{}

var _ Handler = (*DateHandler)(nil)

func (h *DateHandler) Name() string { return "date" }

func (h *DateHandler) CanHandle(sec *schemas.Section) bool { return sec.IsDate }

func (h *DateHandler) Handle(ctx context.Context, env *Env, sec *schemas.Section) (bool, error) {
	q := schemas.Question{Kind: schemas.QuestionDate, Text: sec.Label, Required: sec.Required}
	answer, err := resolveAnswer(ctx, env, h.Name(), q)
	if err != nil || strings.TrimSpace(answer) == "" {
		answer = time.Now().Format("01/02/2006")
	}
	if err := env.Driver.Type(ctx, sec.InputSelector, answer); err != nil {
		return false, err
	}
	return true, nil
}

// -- Textarea --

// TextareaHandler fills multi-line free-text fields.
type TextareaHandler struct{}

var _ Handler = (*TextareaHandler)(nil)

func (h *TextareaHandler) Name() string { return "textarea" }

func (h *TextareaHandler) CanHandle(sec *schemas.Section) bool { return sec.HasTextarea }

func (h *TextareaHandler) Handle(ctx context.Context, env *Env, sec *schemas.Section) (bool, error) {
	q := schemas.Question{Kind: schemas.QuestionText, Text: sec.Label, Required: sec.Required}
	answer, err := resolveAnswer(ctx, env, h.Name(), q)
	if err != nil {
		return false, err
	}
	if err := env.Driver.Type(ctx, sec.InputSelector, answer); err != nil {
		return false, err
	}
	return true, nil
}

// -- Text input (catch-all) --

// numericHints mark labels whose answer must be digits; the wizard rejects
// anything else in those fields.
var numericHints = []string{"how many", "years of", "salary", "number of", "notice period", "expectation"}

// TextInputHandler is the lowest-priority catch-all for single-line inputs.
type TextInputHandler struct{}

var _ Handler = (*TextInputHandler)(nil)

func (h *TextInputHandler) Name() string { return "text" }

func (h *TextInputHandler) CanHandle(sec *schemas.Section) bool { return sec.HasTextInput }

func (h *TextInputHandler) Handle(ctx context.Context, env *Env, sec *schemas.Section) (bool, error) {
	kind := schemas.QuestionText
	lower := strings.ToLower(sec.Label)
	for _, hint := range numericHints {
		if strings.Contains(lower, hint) {
			kind = schemas.QuestionNumeric
			break
		}
	}

	q := schemas.Question{Kind: kind, Text: sec.Label, Required: sec.Required}
	answer, err := resolveAnswer(ctx, env, h.Name(), q)
	if err != nil {
		return false, err
	}
	if kind == schemas.QuestionNumeric {
		answer = digitsOnly(answer)
		if answer == "" {
			return false, fmt.Errorf("numeric field %q produced non-numeric answer", sec.Label)
		}
	}
	if err := env.Driver.Type(ctx, sec.InputSelector, answer); err != nil {
		return false, err
	}
	return true, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
