// internal/easyapply/fields/registry.go
package fields

import (
	"github.com/hireloop/easyapply/api/schemas"
)

// Registry holds the handlers in their fixed priority order. The order is
// load-bearing: a file input inside a section must never fall through to the
// text catch-all, so the most specific handlers come first and the generic
// text input last.
type Registry struct {
	handlers []Handler
}

// NewRegistry builds the standard handler chain:
// upload → radio → dropdown → checkbox → typeahead → date → textarea → text.
func NewRegistry() *Registry {
	return &Registry{
		handlers: []Handler{
			&UploadHandler{},
			&RadioHandler{},
			&DropdownHandler{},
			&CheckboxHandler{},
			&TypeaheadHandler{},
			&DateHandler{},
			&TextareaHandler{},
			&TextInputHandler{},
		},
	}
}

// NewRegistryWith builds a registry from an explicit handler chain; tests
// use it to inject probes.
func NewRegistryWith(handlers ...Handler) *Registry {
	return &Registry{handlers: handlers}
}

// Route returns the first handler claiming the section, or nil when the
// section is a non-input.
func (r *Registry) Route(sec *schemas.Section) Handler {
	for _, h := range r.handlers {
		if h.CanHandle(sec) {
			return h
		}
	}
	return nil
}

// Handlers exposes the chain in priority order.
func (r *Registry) Handlers() []Handler {
	return r.handlers
}
