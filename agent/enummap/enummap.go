// Package enummap implements the Enum/Vocabulary Mapper: it maps free-text
// values the model produces (e.g. "health tech companies") onto the fixed
// vocabularies the CRM/prospecting tools accept, using exact-match lookup
// tables mined from original_source/enum_matcher.py's enum_data_loader
// (industries, company sizes, seniority, revenue, funding type, hiring
// area, functional level, company type) and the bidirectional city-synonym
// table from original_source/agent.py, falling back to an LLM classifier
// for anything the tables can't resolve.
package enummap

import (
	"context"
	"strings"

	"github.com/anushka192001/Sales-dev-assistant/agent/model"
	"github.com/anushka192001/Sales-dev-assistant/agent/telemetry"
)

// Category names one of the fixed enum vocabularies a tool parameter draws
// from.
type Category string

const (
	CategoryIndustry    Category = "industries"
	CategorySize        Category = "company_sizes"
	CategorySeniority   Category = "seniority"
	CategoryRevenue     Category = "revenue_ranges"
	CategoryFundingType Category = "funding_types"
	CategoryHiringArea  Category = "hiring_areas"
	// CategoryFunctionalLevel and CategoryCompanyType round out
	// enum_data_loader's eight vocabularies (functionalLevel and the
	// productandservice company-type list); the underlying enum_data/*.json
	// tables it loads are data files, not source, so these two resolve
	// through the LLM classifier rather than a hardcoded exact-match table.
	CategoryFunctionalLevel Category = "functional_level"
	CategoryCompanyType     Category = "company_types"
	// CategoryCity is not one of enum_data_loader's vocabularies — it isn't
	// a closed enum, just a free-text location — but it gets the same
	// bidirectional synonym expansion original_source/agent.py applies
	// before a location value reaches a search tool.
	CategoryCity Category = "city"
)

// citySynonyms is the bidirectional city-name mapping from
// original_source/agent.py's tool-arg normalization step: two cities that
// go by more than one common name must match search results filed under
// either spelling.
var citySynonyms = map[string]string{
	"bangalore": "bengaluru",
	"bengaluru": "bangalore",
	"bombay":    "mumbai",
	"mumbai":    "bombay",
}

// industryGroups expands a handful of umbrella terms into the concrete
// industry values the tools accept; this is the "group-expansion" behavior
// from enum_matcher.py — a single free-text term can resolve to more than
// one canonical value.
var industryGroups = map[string][]string{
	"health tech":  {"healthcare", "biotechnology", "medical devices"},
	"healthtech":   {"healthcare", "biotechnology", "medical devices"},
	"fintech":      {"financial services", "banking", "insurance"},
	"martech":      {"marketing and advertising", "software"},
	"edtech":       {"e-learning", "education management"},
	"proptech":     {"real estate", "construction"},
	"insurtech":    {"insurance", "financial services"},
	"legaltech":    {"legal services", "software"},
	"climate tech": {"renewables and environment", "energy"},
	"climatetech":  {"renewables and environment", "energy"},
}

// exactCategories holds the remaining categories' canonical vocabularies for
// direct case-insensitive exact-match lookup (no group expansion).
var exactCategories = map[Category][]string{
	CategorySize: {
		"1-10", "11-50", "51-200", "201-500", "501-1000", "1001-5000", "5001-10000", "10001+",
	},
	CategorySeniority: {
		"entry", "associate", "mid-senior", "director", "vp", "cxo", "owner", "partner",
	},
	CategoryRevenue: {
		"0-1M", "1M-10M", "10M-50M", "50M-100M", "100M-500M", "500M-1B", "1B+",
	},
	CategoryFundingType: {
		"seed", "series a", "series b", "series c", "series d+", "ipo", "bootstrapped",
	},
	CategoryHiringArea: {
		"engineering", "sales", "marketing", "product", "operations", "finance", "customer success",
	},
}

// Mapper resolves free-text values to canonical enum values.
type Mapper struct {
	client model.Client
	model  string
	log    telemetry.Logger
}

// New constructs a Mapper. client may be nil, in which case any value the
// lookup tables can't resolve is passed through unchanged.
func New(client model.Client, modelName string, log telemetry.Logger) *Mapper {
	if log == nil {
		log = telemetry.NoopLogger{}
	}
	return &Mapper{client: client, model: modelName, log: log}
}

// Resolve maps one free-text value within category to its canonical enum
// value(s). A single input can expand to multiple canonical values (industry
// groups); anything else resolves to exactly one value, or is passed through
// unchanged if no table entry and no (or a failing) LLM call can resolve it.
func (m *Mapper) Resolve(ctx context.Context, category Category, raw string) []string {
	normalized := strings.ToLower(strings.TrimSpace(raw))

	if category == CategoryCity {
		if syn, ok := citySynonyms[normalized]; ok {
			return []string{raw, syn}
		}
		return []string{raw}
	}

	if category == CategoryIndustry {
		if expanded, ok := industryGroups[normalized]; ok {
			return expanded
		}
		if exact := matchExact(normalized, hardcodedIndustries); exact != "" {
			return []string{exact}
		}
	} else if values, ok := exactCategories[category]; ok {
		if exact := matchExact(normalized, values); exact != "" {
			return []string{exact}
		}
	}

	if m.client == nil {
		return []string{raw}
	}

	resolved, err := m.classify(ctx, category, raw)
	if err != nil {
		m.log.Warn(ctx, "enummap: llm resolution failed, passing raw value through", "category", category, "error", err)
		return []string{raw}
	}
	return resolved
}

// hardcodedIndustries is the canonical industry vocabulary used for direct
// (non-grouped) exact matches.
var hardcodedIndustries = []string{
	"healthcare", "biotechnology", "medical devices", "financial services",
	"banking", "insurance", "software", "information technology",
	"marketing and advertising", "e-learning", "education management",
	"real estate", "construction", "legal services", "renewables and environment",
	"energy", "retail", "manufacturing", "telecommunications", "logistics",
	"hospitality", "nonprofit",
}

func matchExact(normalized string, values []string) string {
	for _, v := range values {
		if strings.EqualFold(v, normalized) {
			return v
		}
	}
	return ""
}

func (m *Mapper) classify(ctx context.Context, category Category, raw string) ([]string, error) {
	resp, err := m.client.ChatCompletion(ctx, model.ChatRequest{
		Model:          m.model,
		Temperature:    0,
		ResponseFormat: model.ResponseFormatJSON,
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: enumMapperSystemPrompt},
			{Role: model.RoleUser, Content: "Category: " + string(category) + "\nValue: " + raw},
		},
	})
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Values []string `json:"values"`
	}
	if err := model.DecodeJSONObject(resp.Message.Content, &decoded); err != nil {
		return nil, err
	}
	if len(decoded.Values) == 0 {
		return []string{raw}, nil
	}
	return decoded.Values, nil
}

const enumMapperSystemPrompt = `You map a free-text value onto one or more canonical enum values for a CRM
prospecting tool's parameter category. Respond with JSON: {"values":
["<canonical value>", ...]}. If nothing in the category's vocabulary
plausibly matches, return the original value unchanged as the single entry.`
