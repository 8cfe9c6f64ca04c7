// Package depgraph implements the Dependency Analyzer: it decides which of
// a turn's tool calls must wait on the results of others, using an LLM
// classifier as the primary signal and the exact deterministic
// fallback/repair rules mined from
// original_source/execution_type_analyser.py when the LLM is unavailable or
// returns an invalid answer.
package depgraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/anushka192001/Sales-dev-assistant/agent/model"
	"github.com/anushka192001/Sales-dev-assistant/agent/telemetry"
	"github.com/anushka192001/Sales-dev-assistant/agent/tools"
)

// Call is one tool call under analysis, identified by its provisional
// step index within the current batch (not yet a plan.Step — the Plan
// Builder assigns step_ids after this package settles dependencies).
type Call struct {
	Index int
	Tool  tools.Ident
	Args  map[string]any
}

// Result maps each call's Index to the Index set it depends on.
type Result map[int][]int

// Analyzer decides inter-step dependencies for one batch of tool calls.
type Analyzer struct {
	client model.Client
	model  string
	log    telemetry.Logger
}

// New constructs an Analyzer. client may be nil, in which case Analyze
// always uses the deterministic fallback.
func New(client model.Client, modelName string, log telemetry.Logger) *Analyzer {
	if log == nil {
		log = telemetry.NoopLogger{}
	}
	return &Analyzer{client: client, model: modelName, log: log}
}

// Analyze returns the dependency set for calls. A batch of one or zero
// tool calls is always independent — no LLM call is made. For
// batches of two or more the Analyzer asks the model to classify pairwise
// dependencies, then repairs the answer to remove cycles and invalid edges
// using the rules below before returning it.
func (a *Analyzer) Analyze(ctx context.Context, calls []Call) Result {
	if len(calls) <= 1 {
		return Result{}
	}

	raw, err := a.classify(ctx, calls)
	if err != nil {
		a.log.Warn(ctx, "depgraph: llm classification failed, using fallback", "error", err)
		raw = fallback(calls)
	}
	return repair(calls, raw)
}

// classify asks the model which calls depend on which. The prompt and
// response shape are intentionally minimal: {"step_index": [depends_on...]}.
func (a *Analyzer) classify(ctx context.Context, calls []Call) (Result, error) {
	if a.client == nil {
		return nil, fmt.Errorf("depgraph: no model client configured")
	}

	prompt := buildPrompt(calls)
	resp, err := a.client.ChatCompletion(ctx, model.ChatRequest{
		Model:          a.model,
		Temperature:    0,
		ResponseFormat: model.ResponseFormatJSON,
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: dependencyAnalysisSystemPrompt},
			{Role: model.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Dependencies map[string][]int `json:"dependencies"`
	}
	if err := model.DecodeJSONObject(resp.Message.Content, &decoded); err != nil {
		return nil, err
	}

	result := make(Result, len(decoded.Dependencies))
	for k, v := range decoded.Dependencies {
		var idx int
		if _, err := fmt.Sscanf(k, "%d", &idx); err != nil {
			continue
		}
		result[idx] = v
	}
	return result, nil
}

const dependencyAnalysisSystemPrompt = `You determine execution order dependencies between tool calls in a single
batch. A call depends on another only if it needs that other call's result
value as an input (e.g. add_contacts_to_cadence needs the cadence_id a
create_cadence call produces). Respond with JSON: {"dependencies":
{"<step_index>": [<indices this step depends on>]}}. Omit independent steps.`

func buildPrompt(calls []Call) string {
	out := "Tool calls in this batch:\n"
	for _, c := range calls {
		out += fmt.Sprintf("%d: %s(%v)\n", c.Index, c.Tool, c.Args)
	}
	return out
}

// fallback implements the original system's deterministic default (
// original_source/execution_type_analyser.py lines ~1-120): when the
// classifier cannot run at all, only the two tool pairs known to have a real
// data dependency are linked — add_contacts_to_cadence after any
// create_cadence earlier in the batch, and create_cadence after any
// search_leads/search_companies/generate_email earlier in the batch.
// Everything else is treated as independent.
func fallback(calls []Call) Result {
	result := make(Result)
	for _, c := range calls {
		switch c.Tool {
		case tools.AddContactsToCadence:
			for _, prior := range calls {
				if prior.Index < c.Index && prior.Tool == tools.CreateCadence {
					result[c.Index] = append(result[c.Index], prior.Index)
				}
			}
		case tools.CreateCadence:
			for _, prior := range calls {
				if prior.Index >= c.Index {
					continue
				}
				switch prior.Tool {
				case tools.SearchLeads, tools.SearchCompanies, tools.GenerateEmail:
					result[c.Index] = append(result[c.Index], prior.Index)
				}
			}
		}
	}
	return result
}

// repair applies the exact cycle-breaking rules mined from
// original_source/execution_type_analyser.py (_fix_circular_dependencies,
// lines ~238-330) on top of whatever the classifier returned:
//
//   - an add_contacts_to_cadence step keeps at most one dependency: the
//     create_cadence call in the current batch, if any; every other claimed
//     dependency is dropped.
//   - a create_cadence step keeps only dependencies on search_leads,
//     search_companies, or generate_email calls in the current batch; any
//     other claimed dependency (including on another create_cadence, which
//     would risk a cycle) is dropped.
//   - any step with no valid dependency left after the above becomes fully
//     independent (empty slice / absent from the map).
//   - dependencies on a step's own index, or on an index outside the batch,
//     are always dropped.
func repair(calls []Call, raw Result) Result {
	byIndex := make(map[int]Call, len(calls))
	for _, c := range calls {
		byIndex[c.Index] = c
	}

	out := make(Result, len(raw))
	for _, c := range calls {
		deps := raw[c.Index]
		var kept []int
		switch c.Tool {
		case tools.AddContactsToCadence:
			for _, d := range deps {
				if dep, ok := byIndex[d]; ok && dep.Index != c.Index && dep.Tool == tools.CreateCadence {
					kept = []int{d}
					break
				}
			}
		case tools.CreateCadence:
			for _, d := range deps {
				dep, ok := byIndex[d]
				if !ok || dep.Index == c.Index {
					continue
				}
				switch dep.Tool {
				case tools.SearchLeads, tools.SearchCompanies, tools.GenerateEmail:
					kept = append(kept, d)
				}
			}
		default:
			for _, d := range deps {
				if dep, ok := byIndex[d]; ok && dep.Index != c.Index {
					kept = append(kept, d)
				}
			}
		}
		if len(kept) > 0 {
			out[c.Index] = kept
		}
	}
	return breakCycles(out)
}

// breakCycles is the general backstop behind the two named rules above: the
// per-tool cases only vet add_contacts_to_cadence and create_cadence edges,
// so a claimed mutual dependency between any other pair — most commonly two
// plain searches, e.g. "search_leads and their companies" misread as
// bidirectional — survives repair's switch untouched in its default branch.
// A plan built from a cyclic dependency set can never produce a ready step,
// so every cycle, regardless of which tools it involves, must be broken
// before Analyze returns.
//
// This has no equivalent in original_source/execution_type_analyser.py,
// whose _fix_circular_dependencies only special-cases the cadence pair;
// the two-search case is required behavior this implementation adds on
// top of the mined rules.
//
// Direct (two-step) cycles are broken by dropping the edge from the
// earlier-emitted step to the later one, keeping the edge running the other
// way: a later tool call depending on an earlier one is the ordering a
// user's wording almost always intends, so "default to the order of
// emission" means the lower Index loses its claimed dependency. Any cycle
// longer than two steps that still remains afterward is caught by a final
// DFS pass that drops whichever edge closes it.
func breakCycles(edges Result) Result {
	out := make(Result, len(edges))
	for k, v := range edges {
		out[k] = append([]int(nil), v...)
	}

	for i, ideps := range edges {
		for _, j := range ideps {
			if j <= i {
				continue // each unordered pair considered once, from its lower index
			}
			for _, back := range edges[j] {
				if back == i {
					out[i] = removeInt(out[i], j)
					break
				}
			}
		}
	}

	indices := make([]int, 0, len(out))
	for k := range out {
		indices = append(indices, k)
	}
	sort.Ints(indices)

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[int]int, len(indices))
	var visit func(n int)
	visit = func(n int) {
		color[n] = gray
		kept := out[n][:0:0]
		for _, d := range out[n] {
			switch color[d] {
			case gray:
				continue // back edge: dropping it is what breaks this cycle
			case white:
				visit(d)
			}
			kept = append(kept, d)
		}
		if len(kept) > 0 {
			out[n] = kept
		} else {
			delete(out, n)
		}
		color[n] = black
	}
	for _, n := range indices {
		if color[n] == white {
			visit(n)
		}
	}

	for k, v := range out {
		if len(v) == 0 {
			delete(out, k)
		}
	}
	return out
}

func removeInt(s []int, v int) []int {
	out := s[:0:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
