// internal/easyapply/page/processor.go
// One Process call handles one visible wizard page: discover the field
// sections in a single in-page pass, de-duplicate them by on-screen
// geometry, route each to a handler and tally the outcome. A page passes
// when strictly fewer than half of its routed sections failed; partially
// broken pages advance, uniformly broken ones stop the run.
package page

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hireloop/easyapply/api/schemas"
	"github.com/hireloop/easyapply/internal/easyapply/fields"
)

// Processor fills the current form page.
type Processor struct {
	registry *fields.Registry
	logger   *zap.Logger
}

func NewProcessor(registry *fields.Registry, logger *zap.Logger) *Processor {
	return &Processor{
		registry: registry,
		logger:   logger.Named("page"),
	}
}

// sectionScript runs entirely in-page and returns every candidate field
// section inside the application dialog as a flat JSON array. The
// structural selectors overlap on purpose (grouped fields nest), which is
// why the Go side de-duplicates by bounding rect instead of by selector.
const sectionScript = `(function() { /* probe:sections */
	const modal = document.querySelector("div[data-test-modal][role='dialog'], div.jobs-easy-apply-modal");
	if (!modal) { return []; }

	const containers = modal.querySelectorAll([
		"div[data-test-form-element]",
		"fieldset[data-test-form-builder-radio-button-form-component]",
		"div.jobs-easy-apply-form-section__grouping",
		"div.fb-dash-form-element",
	].join(", "));

	const cssPath = (el) => {
		const parts = [];
		while (el && el !== modal) {
			let part = el.tagName.toLowerCase();
			if (el.id) { parts.unshift(part + "#" + CSS.escape(el.id)); break; }
			const parent = el.parentElement;
			if (parent) {
				const idx = Array.prototype.indexOf.call(parent.children, el);
				part += ":nth-child(" + (idx + 1) + ")";
			}
			parts.unshift(part);
			el = el.parentElement;
		}
		return parts.join(" > ");
	};

	const visible = (el) => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};

	const out = [];
	for (const c of containers) {
		if (!visible(c)) { continue; }
		const r = c.getBoundingClientRect();

		const labelEl = c.querySelector("label, legend, span.fb-dash-form-element__label");
		const label = labelEl ? labelEl.innerText.trim() : "";

		const file = c.querySelector("input[type='file']");
		const radio = c.querySelector("input[type='radio']");
		const sel = c.querySelector("select");
		const box = c.querySelector("input[type='checkbox']");
		const textarea = c.querySelector("textarea");
		const text = c.querySelector("input[type='text'], input[type='email'], input[type='tel'], input:not([type])");

		const typeahead = text && (text.getAttribute("role") === "combobox" ||
			c.querySelector("div[role='listbox'], .basic-typeahead") !== null);
		const date = text && (text.placeholder || "").toLowerCase().includes("mm/dd/yyyy");

		const input = file || sel || box || textarea || text;
		const options = [];
		if (sel) {
			for (const o of sel.options) { options.push(o.text.trim()); }
		} else if (radio) {
			for (const ri of c.querySelectorAll("input[type='radio']")) {
				const l = c.querySelector("label[for='" + ri.id + "']");
				options.push(((l && l.innerText) || ri.value || "").trim());
			}
		}

		out.push({
			selector: cssPath(c),
			label: label,
			required: c.querySelector("[required], [aria-required='true']") !== null ||
				label.includes("*"),
			hasFile: !!file,
			hasRadio: !!radio,
			hasSelect: !!sel,
			hasCheckbox: !!box,
			isTypeahead: !!typeahead,
			isDate: !!date,
			hasTextarea: !!textarea,
			hasTextInput: !!text,
			inputSelector: input ? cssPath(input) : "",
			options: options,
			rect: {
				x: Math.round(r.x), y: Math.round(r.y),
				width: Math.round(r.width), height: Math.round(r.height),
			},
		});
	}
	return out;
})()`

// dedupeByRect collapses duplicates arising from nested structural
// selectors by bounding rect; the first (outermost) occurrence wins.
func dedupeByRect(sections []schemas.Section) []schemas.Section {
	seen := make(map[[4]int]struct{}, len(sections))
	out := sections[:0]
	for _, sec := range sections {
		key := sec.Rect.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, sec)
	}
	return out
}

// Process fills every routed section on the current page and applies the
// majority rule. A page with no routable sections is an informational page
// (review, contact summary) and passes untouched.
func (p *Processor) Process(ctx context.Context, env *fields.Env) schemas.PageResult {
	result := schemas.PageResult{}

	sections, err := p.discover(ctx, env)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	for i := range sections {
		sec := &sections[i]
		handler := p.registry.Route(sec)
		if handler == nil {
			continue
		}
		result.FieldsProcessed++

		filled, err := p.handleContained(ctx, handler, env, sec)
		switch {
		case err != nil:
			result.FieldsFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s %q: %v", handler.Name(), sec.Label, err))
			p.logger.Warn("Field fill failed.",
				zap.String("handler", handler.Name()),
				zap.String("label", sec.Label),
				zap.Error(err))
		case !filled:
			p.logger.Debug("Field left unfilled.",
				zap.String("handler", handler.Name()),
				zap.String("label", sec.Label))
		}
	}

	// Strict majority: a page is good when failures stay under half of the
	// fields it actually routed. Zero processed fields passes trivially.
	result.Success = result.FieldsFailed*2 < result.FieldsProcessed || result.FieldsProcessed == 0
	p.logger.Info("Page processed.",
		zap.Int("fields_processed", result.FieldsProcessed),
		zap.Int("fields_failed", result.FieldsFailed),
		zap.Bool("success", result.Success))
	return result
}

func (p *Processor) discover(ctx context.Context, env *fields.Env) ([]schemas.Section, error) {
	var raw []schemas.Section
	if err := env.Driver.ExecuteScript(ctx, sectionScript, &raw); err != nil {
		return nil, fmt.Errorf("section discovery failed: %w", err)
	}
	return dedupeByRect(raw), nil
}

// handleContained shields the page loop from a misbehaving handler. A panic
// inside one field becomes that field's failure, never the run's.
func (p *Processor) handleContained(ctx context.Context, h fields.Handler, env *fields.Env, sec *schemas.Section) (filled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			filled = false
			err = fmt.Errorf("handler %s panicked: %v", h.Name(), r)
		}
	}()
	return h.Handle(ctx, env, sec)
}
