// Package argvalidate implements the Argument Validator. It filters each
// tool call's arguments down to the allowed parameter set for that tool,
// applying the same rename/correction maps the original system used (mined
// verbatim from original_source/agent.py:_validate_and_filter_tool_args)
// before the result ever reaches jsonschema validation.
package argvalidate

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/anushka192001/Sales-dev-assistant/agent/tools"
)

// allowedParams is the exact per-tool allow-list from the original system.
var allowedParams = map[tools.Ident]map[string]struct{}{
	tools.SearchLeads: set(
		"keywords", "job_titles", "seniority", "industries", "locations",
		"company_sizes", "functional_level", "limit",
	),
	tools.SearchCompanies: set(
		"keywords", "industries", "locations", "company_sizes",
		"revenue_ranges", "funding_types", "hiring_areas", "company_types", "limit",
	),
	tools.GenerateEmail: set(
		"recipient_name", "recipient_title", "company_name", "purpose",
		"tone", "key_points",
	),
	tools.CreateCadence: set(
		"name", "description", "steps",
	),
	tools.AddContactsToCadence: set(
		"cadence_id", "name", "recipients_ids",
	),
}

// renameMap corrects parameter names the model frequently gets wrong,
// mapping them onto the canonical name before the allow-list filter runs.
var renameMap = map[tools.Ident]map[string]string{
	tools.SearchLeads: {
		"title":              "job_titles",
		"titles":             "job_titles",
		"industry":           "industries",
		"location":           "locations",
		"company_size":       "company_sizes",
		"seniorities":        "seniority",
		"max_results":        "limit",
		"functional_levels":  "functional_level",
		"function":           "functional_level",
	},
	tools.SearchCompanies: {
		"industry":      "industries",
		"location":      "locations",
		"company_size":  "company_sizes",
		"revenue_range": "revenue_ranges",
		"funding_type":  "funding_types",
		"hiring_area":   "hiring_areas",
		"max_results":   "limit",
		"company_type":  "company_types",
		"type":          "company_types",
	},
	tools.GenerateEmail: {
		"name":       "recipient_name",
		"title":      "recipient_title",
		"company":    "company_name",
		"highlights": "key_points",
	},
	tools.CreateCadence: {
		"cadence_name":  "name",
		"cadence_steps": "steps",
	},
	tools.AddContactsToCadence: {
		"cadence":      "cadence_id",
		"contacts":     "recipients_ids",
		"ids":          "recipients_ids",
		"contact_ids":  "recipients_ids",
		"cadence_name": "name",
	},
}

func set(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

// Validator filters and schema-validates tool arguments.
type Validator struct {
	schemas map[tools.Ident]*jsonschema.Schema
}

// New constructs a Validator. schemas is optional per-tool JSON Schema
// (compiled via github.com/santhosh-tekuri/jsonschema/v6) applied after
// renaming/filtering; a tool with no entry skips schema validation and
// relies on the allow-list alone.
func New(schemas map[tools.Ident]*jsonschema.Schema) *Validator {
	return &Validator{schemas: schemas}
}

// Result is the outcome of validating one tool call's arguments.
type Result struct {
	Args    map[string]any
	Dropped []string // parameter names removed because they were not in the allow-list
	Renamed map[string]string // original name -> canonical name
}

// Validate renames known-bad parameter names, drops anything outside the
// tool's allow-list, and (if a schema is registered) validates the result.
// Unknown tools pass arguments through unfiltered. The planning activity
// calls Validate for every tool call the model emits, whatever its name,
// so a name outside the Registry does reach this path; the Step Executor
// then fails such a step when the Registry has no spec for it.
func (v *Validator) Validate(name tools.Ident, args map[string]any) (Result, error) {
	renames := renameMap[name]
	allowed, hasAllowList := allowedParams[name]

	canonical := make(map[string]any, len(args))
	renamed := map[string]string{}
	for k, val := range args {
		target := k
		if newName, ok := renames[k]; ok {
			target = newName
			renamed[k] = newName
		}
		canonical[target] = val
	}

	if !hasAllowList {
		return Result{Args: canonical, Renamed: renamed}, nil
	}

	filtered := make(map[string]any, len(canonical))
	var dropped []string
	for k, val := range canonical {
		if _, ok := allowed[k]; ok {
			filtered[k] = val
		} else {
			dropped = append(dropped, k)
		}
	}

	if schema, ok := v.schemas[name]; ok && schema != nil {
		if err := schema.Validate(filtered); err != nil {
			return Result{}, fmt.Errorf("argvalidate: %s: schema validation failed: %w", name, err)
		}
	}

	return Result{Args: filtered, Dropped: dropped, Renamed: renamed}, nil
}
