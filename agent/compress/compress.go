// Package compress implements the Compression Gate: a token-counted hybrid
// sliding-window plus semantic-digest compressor that keeps long
// conversation histories under a configured token budget before they reach
// an LLM call.
package compress

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	"github.com/anushka192001/Sales-dev-assistant/agent/model"
)

const (
	// defaultHighWaterMark is the trigger threshold.
	defaultHighWaterMark = 40_000
	// recentWindow, middleWindow are the positional partition sizes
	// (defaults 20 / next 40 / rest).
	recentWindow = 20
	middleWindow = 40
	// maxDigestTokens triggers the semantic rewrite step.
	maxDigestTokens = 5_000
	// maxSemanticTokens bounds the LLM rewrite's output length.
	maxSemanticTokens = 400
	// maxGoalMessages is the cap on recent goal-indicating user messages
	// surfaced in the digest's "User Goals & Decisions" section.
	maxGoalMessages = 3
	// tokenCacheLimit bounds the token-count cache to a fixed entry count.
	tokenCacheLimit = 1000
)

// Gate compresses message histories that exceed a token budget.
type Gate struct {
	highWaterMark int
	encoding      string
	semantic      model.Client
	semanticModel string

	mu         sync.Mutex
	tokenCache map[string]int
}

// Option configures a Gate.
type Option func(*Gate)

// WithHighWaterMark overrides the default 40k token trigger.
func WithHighWaterMark(n int) Option { return func(g *Gate) { g.highWaterMark = n } }

// WithSemanticRewrite enables the cheap-LLM rewrite step for oversized
// digests.
func WithSemanticRewrite(client model.Client, modelName string) Option {
	return func(g *Gate) { g.semantic = client; g.semanticModel = modelName }
}

// New constructs a Gate. encoding is a tiktoken-go encoding name (e.g.
// "cl100k_base"); it is loaded lazily on first Compress call.
func New(encoding string, opts ...Option) *Gate {
	g := &Gate{
		highWaterMark: defaultHighWaterMark,
		encoding:      encoding,
		tokenCache:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Compress returns messages unchanged if under the high-water mark;
// otherwise it returns the compressed sequence: system messages verbatim,
// a synthetic digest message, then the preserved recent window.
func (g *Gate) Compress(ctx context.Context, messages []model.Message) ([]model.Message, error) {
	total, err := g.countMessages(messages)
	if err != nil {
		return nil, err
	}
	if total <= g.highWaterMark {
		return messages, nil
	}

	var systemMsgs, conversation []model.Message
	for _, m := range messages {
		if m.Role == model.RoleSystem {
			systemMsgs = append(systemMsgs, m)
		} else {
			conversation = append(conversation, m)
		}
	}

	recent, middle, old := partition(conversation)

	digestText := buildDigest(middle, old)
	digestTokens, err := g.countText(digestText)
	if err != nil {
		return nil, err
	}

	if digestTokens > maxDigestTokens {
		rewritten := false
		if g.semantic != nil {
			if text, err := g.semanticRewrite(ctx, digestText); err == nil {
				digestText = text
				rewritten = true
			}
		}
		// On any failure of the semantic step, fall back to truncation.
		if !rewritten {
			digestText = truncateToApproxTokens(digestText, maxSemanticTokens)
		}
	}

	digestMsg := model.Message{Role: model.RoleSystem, Content: digestText}

	out := make([]model.Message, 0, len(systemMsgs)+1+len(recent))
	out = append(out, systemMsgs...)
	out = append(out, digestMsg)
	out = append(out, recent...)
	return out, nil
}

// partition splits conversation into (recent, middle, old) by positional
// windows counted from the end.
func partition(conversation []model.Message) (recent, middle, old []model.Message) {
	n := len(conversation)
	recentStart := n - recentWindow
	if recentStart < 0 {
		recentStart = 0
	}
	middleStart := recentStart - middleWindow
	if middleStart < 0 {
		middleStart = 0
	}
	return conversation[recentStart:], conversation[middleStart:recentStart], conversation[:middleStart]
}

// buildDigest renders the structured digest sections: Active Workflow
// State, Tool Execution Context, User Goals & Decisions.
func buildDigest(middle, old []model.Message) string {
	combined := append(append([]model.Message{}, old...), middle...)

	toolCallCounts := map[string]int{}
	var resultSizeNote []string
	for _, m := range combined {
		for _, call := range m.ToolCalls {
			toolCallCounts[call.Name]++
		}
		if m.Role == model.RoleTool {
			resultSizeNote = append(resultSizeNote, fmt.Sprintf("%s: %d chars", m.ToolCallID, len(m.Content)))
		}
	}

	var goals []string
	for i := len(combined) - 1; i >= 0 && len(goals) < maxGoalMessages; i-- {
		if combined[i].Role == model.RoleUser && combined[i].Content != "" {
			goals = append([]string{combined[i].Content}, goals...)
		}
	}

	var b strings.Builder
	b.WriteString("## Active Workflow State\n")
	fmt.Fprintf(&b, "%d messages summarized from earlier in this conversation.\n\n", len(combined))

	b.WriteString("## Tool Execution Context\n")
	for name, count := range toolCallCounts {
		fmt.Fprintf(&b, "- %s called %d time(s)\n", name, count)
	}
	if len(resultSizeNote) > 0 {
		b.WriteString("Result sizes: " + strings.Join(resultSizeNote, ", ") + "\n")
	}
	b.WriteString("\n")

	b.WriteString("## User Goals & Decisions\n")
	for _, g := range goals {
		b.WriteString("- " + g + "\n")
	}

	return b.String()
}

func (g *Gate) semanticRewrite(ctx context.Context, digest string) (string, error) {
	resp, err := g.semantic.ChatCompletion(ctx, model.ChatRequest{
		Model:       g.semanticModel,
		Temperature: 0,
		MaxTokens:   maxSemanticTokens,
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: "Rewrite the following conversation digest in 400 tokens or fewer, preserving every concrete id, name, and decision."},
			{Role: model.RoleUser, Content: digest},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// truncateToApproxTokens is the deterministic fallback when no semantic
// client is configured or the rewrite call fails; it approximates tokens as
// whitespace-delimited words, which is conservative enough for a digest
// that is about to be discarded anyway.
func truncateToApproxTokens(text string, maxTokens int) string {
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}
	return strings.Join(words[:maxTokens], " ") + " …(truncated)"
}

func (g *Gate) countMessages(messages []model.Message) (int, error) {
	total := 0
	for _, m := range messages {
		n, err := g.countText(m.Content)
		if err != nil {
			return 0, err
		}
		total += n
		for _, call := range m.ToolCalls {
			n, err := g.countText(call.Name + fmt.Sprint(call.Arguments))
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}

func (g *Gate) countText(text string) (int, error) {
	g.mu.Lock()
	if n, ok := g.tokenCache[text]; ok {
		g.mu.Unlock()
		return n, nil
	}
	g.mu.Unlock()

	enc, err := tiktoken.GetEncoding(g.encoding)
	if err != nil {
		return 0, fmt.Errorf("compress: load encoding %q: %w", g.encoding, err)
	}
	n := len(enc.Encode(text, nil, nil))

	g.mu.Lock()
	if len(g.tokenCache) >= tokenCacheLimit {
		g.tokenCache = make(map[string]int)
	}
	g.tokenCache[text] = n
	g.mu.Unlock()

	return n, nil
}
