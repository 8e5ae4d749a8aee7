// internal/easyapply/fields/choice.go
// Handlers for enumerated inputs: radio groups, native dropdowns and
// checkboxes. All three resolve a choice answer against the section's
// options, then apply it through a different mechanism.
package fields

import (
	"context"
	"fmt"
	"strings"

	json "github.com/json-iterator/go"

	"github.com/hireloop/easyapply/api/schemas"
)

// matchOption returns the section option closest to the answer: exact match
// first, then case-insensitive, then substring either way. Falls back to
// the first option for required fields so the page can still advance.
func matchOption(answer string, options []string) (string, bool) {
	if len(options) == 0 {
		return "", false
	}
	for _, opt := range options {
		if opt == answer {
			return opt, true
		}
	}
	lower := strings.ToLower(strings.TrimSpace(answer))
	for _, opt := range options {
		if strings.ToLower(strings.TrimSpace(opt)) == lower {
			return opt, true
		}
	}
	for _, opt := range options {
		lo := strings.ToLower(strings.TrimSpace(opt))
		if strings.Contains(lo, lower) {
			return opt, true
		}
		// Reverse containment only for options long enough to be a real
		// token of the answer, so "a" inside "unrelated" never matches.
		if len(lo) >= 3 && strings.Contains(lower, lo) {
			return opt, true
		}
	}
	return options[0], false
}

// choiceQuestion builds the question handed to the answerer for an
// enumerated field.
func choiceQuestion(sec *schemas.Section) schemas.Question {
	return schemas.Question{
		Kind:     schemas.QuestionChoice,
		Text:     sec.Label,
		Options:  sec.Options,
		Required: sec.Required,
	}
}

// -- Radio --

// RadioHandler answers radio groups by clicking the option whose label
// matches the resolved answer.
type RadioHandler struct{}

var _ Handler = (*RadioHandler)(nil)

func (h *RadioHandler) Name() string { return "radio" }

func (h *RadioHandler) CanHandle(sec *schemas.Section) bool { return sec.HasRadio }

func (h *RadioHandler) Handle(ctx context.Context, env *Env, sec *schemas.Section) (bool, error) {
	answer, err := resolveAnswer(ctx, env, h.Name(), choiceQuestion(sec))
	if err != nil {
		return false, err
	}
	choice, _ := matchOption(answer, sec.Options)
	if choice == "" {
		return false, fmt.Errorf("radio group %q has no options", sec.Label)
	}

	script := fmt.Sprintf(`(function(sectionSel, want) { /* action:choose-radio */
		const section = document.querySelector(sectionSel);
		if (!section) { return false; }
		for (const input of section.querySelectorAll("input[type='radio']")) {
			const lbl = section.querySelector("label[for='" + input.id + "']");
			const text = ((lbl && lbl.innerText) || input.value || '').trim();
			if (text.toLowerCase() === want.toLowerCase()) {
				input.click();
				return true;
			}
		}
		return false;
	})(%s, %s)`, encodeJS(sec.Selector), encodeJS(choice))

	var clicked bool
	if err := env.Driver.ExecuteScript(ctx, script, &clicked); err != nil {
		return false, fmt.Errorf("radio selection failed for %q: %w", sec.Label, err)
	}
	if !clicked {
		return false, fmt.Errorf("no radio option matching %q in %q", choice, sec.Label)
	}
	return true, nil
}

// -- Dropdown --

// DropdownHandler answers native <select> fields.
type DropdownHandler struct{}

var _ Handler = (*DropdownHandler)(nil)

func (h *DropdownHandler) Name() string { return "dropdown" }

func (h *DropdownHandler) CanHandle(sec *schemas.Section) bool { return sec.HasSelect }

func (h *DropdownHandler) Handle(ctx context.Context, env *Env, sec *schemas.Section) (bool, error) {
	answer, err := resolveAnswer(ctx, env, h.Name(), choiceQuestion(sec))
	if err != nil {
		return false, err
	}
	choice, _ := matchOption(answer, sec.Options)
	if choice == "" {
		return false, fmt.Errorf("dropdown %q has no options", sec.Label)
	}
	if err := env.Driver.SelectOption(ctx, sec.InputSelector, choice); err != nil {
		return false, err
	}
	return true, nil
}

// -- Checkbox --

// CheckboxHandler answers yes/no checkbox fields. Required checkboxes
// (terms, privacy, confirmations) are always checked; optional ones follow
// the resolved answer.
type CheckboxHandler struct{}

var _ Handler = (*CheckboxHandler)(nil)

func (h *CheckboxHandler) Name() string { return "checkbox" }

func (h *CheckboxHandler) CanHandle(sec *schemas.Section) bool { return sec.HasCheckbox }

func (h *CheckboxHandler) Handle(ctx context.Context, env *Env, sec *schemas.Section) (bool, error) {
	want := true
	if !sec.Required {
		q := schemas.Question{
			Kind:    schemas.QuestionChoice,
			Text:    sec.Label,
			Options: []string{"Yes", "No"},
		}
		answer, err := resolveAnswer(ctx, env, h.Name(), q)
		if err != nil {
			return false, err
		}
		want = isAffirmative(answer)
	}
	if err := env.Driver.SetChecked(ctx, sec.InputSelector, want); err != nil {
		return false, err
	}
	return true, nil
}

func isAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y", "true", "1", "agree", "accept":
		return true
	}
	return false
}

// encodeJS safely embeds a Go string into an injected script.
func encodeJS(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
