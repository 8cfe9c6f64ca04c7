package missingtool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anushka192001/Sales-dev-assistant/agent/ctxbuild"
	"github.com/anushka192001/Sales-dev-assistant/agent/model"
	"github.com/anushka192001/Sales-dev-assistant/agent/tools"
)

func TestCheckMissingCampaignIntentAddsCadenceTools(t *testing.T) {
	t.Parallel()

	a := New(nil, "", nil)
	result := a.CheckMissing(context.Background(), "sess_1", "launch a campaign for these VPs", nil, ctxbuild.SummaryData{})

	assert.True(t, result.HasMissing)
	assert.Contains(t, result.MissingTools, tools.CreateCadence)
	assert.Contains(t, result.MissingTools, tools.AddContactsToCadence)
}

func TestCheckMissingSkipsCadenceWhenOneAlreadyExists(t *testing.T) {
	t.Parallel()

	a := New(nil, "", nil)
	summary := ctxbuild.SummaryData{CadenceID: "cad_1"}
	result := a.CheckMissing(context.Background(), "sess_1", "launch a campaign for these VPs", nil, summary)

	assert.False(t, result.HasMissing)
}

func TestCheckMissingSkipsToolsAlreadyCalled(t *testing.T) {
	t.Parallel()

	a := New(nil, "", nil)
	calls := []model.ToolCall{{Name: string(tools.CreateCadence)}, {Name: string(tools.AddContactsToCadence)}}
	result := a.CheckMissing(context.Background(), "sess_1", "launch a campaign for these VPs", calls, ctxbuild.SummaryData{})

	assert.False(t, result.HasMissing)
}

func TestCheckMissingEmailIntentAddsGenerateEmail(t *testing.T) {
	t.Parallel()

	a := New(nil, "", nil)
	result := a.CheckMissing(context.Background(), "sess_1", "please draft an outreach message for them", nil, ctxbuild.SummaryData{})

	assert.True(t, result.HasMissing)
	assert.Equal(t, []tools.Ident{tools.GenerateEmail}, result.MissingTools)
}

func TestCheckMissingSkipsEmailWhenContentAlreadyExists(t *testing.T) {
	t.Parallel()

	a := New(nil, "", nil)
	summary := ctxbuild.SummaryData{EmailContent: &ctxbuild.EmailContent{Subject: "hi", Body: "hello"}}
	result := a.CheckMissing(context.Background(), "sess_1", "please draft an outreach message for them", nil, summary)

	assert.False(t, result.HasMissing)
}

func TestCheckMissingPreExistingEntityPhraseNeverAddsTools(t *testing.T) {
	t.Parallel()

	a := New(nil, "", nil)
	result := a.CheckMissing(context.Background(), "sess_1", "use these contacts and launch a campaign", nil, ctxbuild.SummaryData{})

	assert.False(t, result.HasMissing)
}

func TestCheckMissingPureSearchRequestNeverAddsCampaignOrEmailTools(t *testing.T) {
	t.Parallel()

	a := New(nil, "", nil)
	result := a.CheckMissing(context.Background(), "sess_1", "find VP of Sales at SaaS companies in Austin", nil, ctxbuild.SummaryData{})

	assert.False(t, result.HasMissing)
	assert.Empty(t, result.MissingTools)
}

func TestEligibleRejectsSearchTools(t *testing.T) {
	t.Parallel()

	ok := eligible(tools.SearchLeads, map[tools.Ident]bool{}, false, true, true, ctxbuild.SummaryData{})
	assert.False(t, ok)
}

func TestEligibleRejectsAlreadyCalledTool(t *testing.T) {
	t.Parallel()

	called := map[tools.Ident]bool{tools.CreateCadence: true}
	ok := eligible(tools.CreateCadence, called, false, true, false, ctxbuild.SummaryData{})
	assert.False(t, ok)
}
