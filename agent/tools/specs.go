package tools

// DefaultSpecs returns the Spec for each of the five CRM/prospecting tools,
// with impls supplying the Go implementation for each (see
// agent/crmclient). The Parameters maps mirror the allow-list
// agent/argvalidate filters arguments against; they exist here purely as
// the schema surfaced to the LLM, not as a second source of truth for
// validation.
func DefaultSpecs(impls map[Ident]Func) []Spec {
	return []Spec{
		{
			Name:        SearchLeads,
			Description: "Search for individual contacts/leads matching job-title, seniority, industry, and location criteria.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"keywords":      map[string]any{"type": "string"},
					"job_titles":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"seniority":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"industries":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"locations":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"company_sizes":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"functional_level": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"limit":            map[string]any{"type": "integer"},
				},
			},
			Impl: impls[SearchLeads],
		},
		{
			Name:        SearchCompanies,
			Description: "Search for companies matching industry, location, revenue, funding, and hiring criteria.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"keywords":       map[string]any{"type": "string"},
					"industries":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"locations":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"company_sizes":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"revenue_ranges": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"funding_types":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"hiring_areas":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"company_types":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"limit":          map[string]any{"type": "integer"},
				},
			},
			Impl: impls[SearchCompanies],
		},
		{
			Name:        GenerateEmail,
			Description: "Draft an outreach email for a specific recipient and purpose.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"recipient_name":  map[string]any{"type": "string"},
					"recipient_title": map[string]any{"type": "string"},
					"company_name":    map[string]any{"type": "string"},
					"purpose":         map[string]any{"type": "string"},
					"tone":            map[string]any{"type": "string"},
					"key_points":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []any{"recipient_name", "purpose"},
			},
			Impl: impls[GenerateEmail],
		},
		{
			Name:        CreateCadence,
			Description: "Create a new outreach cadence (sequence of steps) that contacts can be enrolled in.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"steps":       map[string]any{"type": "array"},
				},
				"required": []any{"name", "steps"},
			},
			Impl: impls[CreateCadence],
		},
		{
			Name:        AddContactsToCadence,
			Description: "Enroll a set of contacts into an existing cadence.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"cadence_id":  map[string]any{"type": "string"},
					"contact_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []any{"cadence_id", "contact_ids"},
			},
			Impl: impls[AddContactsToCadence],
		},
	}
}
