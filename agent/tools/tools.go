// Package tools declares the CRM/prospecting tool surface the orchestrator
// schedules against. It owns only tool identity, metadata, and the
// registration of implementations; the implementations themselves are an
// external collaborator whose interface, not its internals, is this
// package's concern.
package tools

import "context"

// Ident is the strong type for a tool name (e.g. "search_leads"). Using a
// distinct type instead of string keeps tool identifiers from being mixed
// up with arbitrary map keys across the plan/dependency packages.
type Ident string

// The five tool identifiers this orchestrator schedules against.
const (
	SearchLeads          Ident = "search_leads"
	SearchCompanies      Ident = "search_companies"
	GenerateEmail        Ident = "generate_email"
	CreateCadence        Ident = "create_cadence"
	AddContactsToCadence Ident = "add_contacts_to_cadence"
)

type (
	// Spec describes one registered tool: its identity, the JSON-Schema-style
	// parameter object the orchestrator treats as opaque except for the
	// allowed-key sets the Argument Validator filters against and the
	// dependency rules the Dependency Analyzer applies, and the Go
	// implementation invoked by the Step Executor.
	Spec struct {
		Name        Ident
		Description string
		Parameters  map[string]any
		Impl        Func
	}

	// Func is a tool implementation. Arguments have already been through the
	// Argument Validator (agent/argvalidate) by the time the Step Executor
	// invokes Impl. Result must be JSON-marshalable; it becomes both the
	// ToolOutput.Result persisted to the Conversation Store and the value fed
	// to dependent steps' injection rules.
	Func func(ctx context.Context, args map[string]any) (map[string]any, error)

	// Registry holds the set of tools available to a given orchestrator
	// deployment. It is populated once at startup and is read-only for the
	// lifetime of the process: every tool is registered before any run
	// starts.
	Registry struct {
		specs map[Ident]Spec
	}
)

// NewRegistry constructs an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[Ident]Spec)}
}

// Register adds a tool spec. Returns an error if the name is already
// registered.
func (r *Registry) Register(spec Spec) error {
	if _, exists := r.specs[spec.Name]; exists {
		return &DuplicateToolError{Name: spec.Name}
	}
	r.specs[spec.Name] = spec
	return nil
}

// Lookup returns the spec for name, if registered.
func (r *Registry) Lookup(name Ident) (Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns every registered tool identifier.
func (r *Registry) Names() []Ident {
	out := make([]Ident, 0, len(r.specs))
	for n := range r.specs {
		out = append(out, n)
	}
	return out
}

// DuplicateToolError is returned by Register when a tool name collides.
type DuplicateToolError struct{ Name Ident }

func (e *DuplicateToolError) Error() string {
	return "tools: duplicate tool registration: " + string(e.Name)
}
