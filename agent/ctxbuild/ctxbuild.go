// Package ctxbuild implements the Context Builder: it scans a session's
// durable tool outputs and produces both a markdown context block for the
// LLM and a typed SummaryData record other components consult instead of
// re-scanning history themselves.
package ctxbuild

import (
	"context"
	"fmt"
	"strings"

	"github.com/anushka192001/Sales-dev-assistant/agent/convstore"
	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

const (
	// maxToolCallsScanned is the per-scan tool-call limit.
	maxToolCallsScanned = 10
	// maxItemsPerToolCall is the per-tool-call item limit.
	maxItemsPerToolCall = 101
)

// EmailContent is the {body, subject} pair carried by summary_data when a
// generate_email result is present in scanned history.
type EmailContent struct {
	Body    string `json:"body"`
	Subject string `json:"subject"`
}

// SummaryData is the typed summary built from durable history: only data
// visible in durable history, never speculative values.
type SummaryData struct {
	ContactIDs          []string      `json:"contact_ids,omitempty"`
	CompanyIDs          []string      `json:"company_ids,omitempty"`
	ContactCompanyNames []string      `json:"contact_company_names,omitempty"`
	CompanyNames        []string      `json:"company_names,omitempty"`
	Industries          []string      `json:"industries,omitempty"`
	CadenceID           string        `json:"cadence_id,omitempty"`
	CadenceName         string        `json:"cadence_name,omitempty"`
	RecipientsIDs       []string      `json:"recipients_ids,omitempty"`
	EmailContent        *EmailContent `json:"email_content,omitempty"`
}

// Result is the pair of artifacts build_context produces.
type Result struct {
	ContextString string
	Summary       SummaryData
}

// Builder builds context from a session's durable history.
type Builder struct {
	store convstore.Store
}

// New constructs a Builder over store.
func New(store convstore.Store) *Builder {
	return &Builder{store: store}
}

// Build implements build_context(session_id): scans the last N tool
// outputs in reverse order, assembling the markdown context string and the
// typed SummaryData in one pass.
func (b *Builder) Build(ctx context.Context, userID, sessionID string) (Result, error) {
	sess, err := b.store.Load(ctx, userID, sessionID)
	if err != nil {
		return Result{}, err
	}
	return BuildFromSession(sess), nil
}

// BuildFromSession is the pure function underlying Build, split out so
// callers that already hold a loaded Session (the turn workflow, right after
// its checkpoint-load activity) don't need a second store round trip. Calling it twice on an unchanged
// session returns an identical SummaryData.
func BuildFromSession(sess convstore.Session) Result {
	outputs := sess.ToolOutputs
	if len(outputs) > maxToolCallsScanned {
		outputs = outputs[len(outputs)-maxToolCallsScanned:]
	}

	var sections []string
	summary := SummaryData{}

	contactIDs := newOrderedSet()
	companyIDs := newOrderedSet()
	contactCompanyNames := newOrderedSet()
	companyNames := newOrderedSet()
	industries := newOrderedSet()
	recipientsIDs := newOrderedSet()

	// Reverse order: most recent tool call's data wins when a singular
	// field (cadence_id, email_content) appears more than once.
	for i := len(outputs) - 1; i >= 0; i-- {
		out := outputs[i]
		result := out.Result
		if result == nil {
			continue
		}

		switch out.ToolName {
		case "search_leads":
			contacts := asSliceOfMaps(result["contacts"])
			for _, c := range limitItems(contacts) {
				if id, ok := stringField(c, "id"); ok {
					contactIDs.add(id)
				}
				if name, ok := stringField(c, "company_name"); ok {
					contactCompanyNames.add(name)
				}
			}
			sections = append(sections, renderLeadsSection(out, contacts))

		case "search_companies":
			companies := asSliceOfMaps(result["companies"])
			for _, c := range limitItems(companies) {
				if id, ok := stringField(c, "id"); ok {
					companyIDs.add(id)
				}
				if name, ok := stringField(c, "name"); ok {
					companyNames.add(name)
				}
				if industry, ok := stringField(c, "industry"); ok {
					industries.add(industry)
				}
			}
			sections = append(sections, renderCompaniesSection(out, companies))

		case "generate_email":
			if summary.EmailContent == nil {
				body, _ := stringField(result, "body")
				subject, _ := stringField(result, "subject")
				summary.EmailContent = &EmailContent{Body: body, Subject: subject}
			}
			sections = append(sections, fmt.Sprintf("### generate_email (%s)\nsubject: %s", out.StepID, firstField(result, "subject")))

		case "create_cadence":
			if summary.CadenceID == "" {
				if id, ok := stringField(result, "cadence_id"); ok {
					summary.CadenceID = id
				}
				if name, ok := stringField(result, "name"); ok {
					summary.CadenceName = name
				}
			}
			sections = append(sections, fmt.Sprintf("### create_cadence (%s)\ncadence_id: %s", out.StepID, firstField(result, "cadence_id")))

		case "add_contacts_to_cadence":
			contacts := asSliceOfMaps(result["contacts"])
			for _, c := range limitItems(contacts) {
				if id, ok := stringField(c, "id"); ok {
					recipientsIDs.add(id)
				}
			}
			sections = append(sections, fmt.Sprintf("### add_contacts_to_cadence (%s)\nadded: %d", out.StepID, len(contacts)))
		}
	}

	summary.ContactIDs = contactIDs.values()
	summary.CompanyIDs = companyIDs.values()
	summary.ContactCompanyNames = contactCompanyNames.values()
	summary.CompanyNames = companyNames.values()
	summary.Industries = industries.values()
	summary.RecipientsIDs = recipientsIDs.values()

	var b strings.Builder
	b.WriteString("## Prior Business Request\n")
	b.WriteString(lastBusinessRequest(sess.Messages))
	b.WriteString("\n\n## Completed Work\n")
	if len(sections) == 0 {
		b.WriteString("(no prior tool activity in this session)\n")
	}
	for _, s := range sections {
		b.WriteString(s)
		b.WriteString("\n")
	}

	return Result{ContextString: b.String(), Summary: summary}
}

// lastBusinessRequest returns the most recent user message that is not a
// review-interrupt resume command.
func lastBusinessRequest(messages []model.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != model.RoleUser {
			continue
		}
		if strings.HasPrefix(m.Content, "APPROVE_PLAN:") || strings.HasPrefix(m.Content, "EDIT_PLAN:") {
			continue
		}
		return m.Content
	}
	return "(none)"
}

func renderLeadsSection(out convstore.ToolOutput, contacts []map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### search_leads (%s)\n%d contacts found\n", out.StepID, len(contacts))
	for _, c := range limitItems(contacts) {
		id, _ := stringField(c, "id")
		name, _ := stringField(c, "name")
		title, _ := stringField(c, "title")
		company, _ := stringField(c, "company_name")
		fmt.Fprintf(&b, "- %s – %s – %s – %s\n", id, name, title, company)
	}
	return b.String()
}

func renderCompaniesSection(out convstore.ToolOutput, companies []map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### search_companies (%s)\n%d companies found\n", out.StepID, len(companies))
	for _, c := range limitItems(companies) {
		id, _ := stringField(c, "id")
		name, _ := stringField(c, "name")
		industry, _ := stringField(c, "industry")
		fmt.Fprintf(&b, "- %s – %s – %s\n", id, name, industry)
	}
	return b.String()
}

func limitItems(items []map[string]any) []map[string]any {
	if len(items) > maxItemsPerToolCall {
		return items[:maxItemsPerToolCall]
	}
	return items
}

func asSliceOfMaps(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func firstField(m map[string]any, key string) string {
	s, _ := stringField(m, key)
	return s
}

// orderedSet deduplicates values while preserving first-seen order, which
// keeps SummaryData output stable across repeated Build calls on the same
// session.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) values() []string { return s.items }
