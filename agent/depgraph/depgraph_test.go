package depgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anushka192001/Sales-dev-assistant/agent/tools"
)

func TestAnalyzeSingleOrEmptyBatchIsAlwaysIndependent(t *testing.T) {
	t.Parallel()

	a := New(nil, "", nil)
	assert.Equal(t, Result{}, a.Analyze(context.Background(), nil))
	assert.Equal(t, Result{}, a.Analyze(context.Background(), []Call{{Index: 0, Tool: tools.SearchLeads}}))
}

func TestAnalyzeFallbackLinksCadenceCreationAndEnrollment(t *testing.T) {
	t.Parallel()

	a := New(nil, "", nil)
	calls := []Call{
		{Index: 0, Tool: tools.SearchLeads},
		{Index: 1, Tool: tools.CreateCadence},
		{Index: 2, Tool: tools.AddContactsToCadence},
	}

	result := a.Analyze(context.Background(), calls)

	assert.Equal(t, []int{0}, result[1])
	assert.Equal(t, []int{1}, result[2])
	assert.Empty(t, result[0])
}

// TestBreakCyclesResolvesMutualSearchDependency is the case the per-tool
// repair rules in repair() never vet (default branch): two ordinary search
// calls the classifier claims depend on each other. Left unbroken, the
// executor's ready-step scan would never find a step with zero pending
// dependencies and would livelock.
func TestBreakCyclesResolvesMutualSearchDependency(t *testing.T) {
	t.Parallel()

	raw := Result{
		0: {1},
		1: {0},
	}

	out := breakCycles(raw)

	assert.Len(t, totalEdges(out), 1, "exactly one direction of the mutual edge must survive")
	assertAcyclic(t, out)
}

func TestBreakCyclesResolvesLongerCycle(t *testing.T) {
	t.Parallel()

	// 0 -> 1 -> 2 -> 0
	raw := Result{
		0: {1},
		1: {2},
		2: {0},
	}

	out := breakCycles(raw)
	assertAcyclic(t, out)
}

func TestBreakCyclesLeavesAcyclicGraphUnchanged(t *testing.T) {
	t.Parallel()

	raw := Result{
		1: {0},
		2: {0},
	}

	out := breakCycles(raw)
	assert.Equal(t, raw, out)
}

func TestRepairKeepsOnlyVettedAddContactsToCadenceDependency(t *testing.T) {
	t.Parallel()

	calls := []Call{
		{Index: 0, Tool: tools.CreateCadence},
		{Index: 1, Tool: tools.SearchLeads},
		{Index: 2, Tool: tools.AddContactsToCadence},
	}
	raw := Result{
		2: {0, 1}, // classifier over-claims a dependency on the search too
	}

	out := repair(calls, raw)

	assert.Equal(t, []int{0}, out[2])
}

func TestRepairDropsUnknownAndSelfReferentialIndices(t *testing.T) {
	t.Parallel()

	calls := []Call{
		{Index: 0, Tool: tools.SearchLeads},
		{Index: 1, Tool: tools.GenerateEmail},
	}
	raw := Result{
		1: {1, 99},
	}

	out := repair(calls, raw)

	assert.Empty(t, out[1])
}

func totalEdges(r Result) []int {
	var all []int
	for _, v := range r {
		all = append(all, v...)
	}
	return all
}

// assertAcyclic walks every node's dependency chain and fails if it revisits
// a node already on the current path.
func assertAcyclic(t *testing.T, r Result) {
	t.Helper()
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[int]int{}
	var visit func(n int) bool
	visit = func(n int) bool {
		if color[n] == gray {
			return false
		}
		if color[n] == black {
			return true
		}
		color[n] = gray
		for _, d := range r[n] {
			if !visit(d) {
				return false
			}
		}
		color[n] = black
		return true
	}
	for n := range r {
		if !visit(n) {
			t.Fatalf("cycle detected reachable from node %d: %v", n, r)
		}
	}
}
