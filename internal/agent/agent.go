package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/medrep/hcpcrm/internal/tools"
)

// Message is a single entry in the conversation transcript.
type Message struct {
	Role    string // "user" | "assistant" | "system" | "tool"
	Content string
}

// Chatter is the hosted LLM collaborator: transcript in, raw reply out.
type Chatter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// ExtractedInteraction is the structured record the model pulls out of a
// free-text description. It is transient; it becomes a stored interaction
// only when the caller confirms it.
type ExtractedInteraction struct {
	HCPName         string `json:"hcp_name"`
	InteractionType string `json:"interaction_type"`
	Notes           string `json:"notes"`
}

// ToolInvocation records one tool dispatch requested by the model.
type ToolInvocation struct {
	Tool   string         `json:"tool"`
	Input  map[string]any `json:"input"`
	Result tools.Result   `json:"result"`
}

// ParseState tags whether the model reply yielded usable JSON. A degraded
// reply is an explicit outcome, not a swallowed error, so callers and
// tests can assert on it directly.
type ParseState int

const (
	Unparseable ParseState = iota
	Parsed
)

// Outcome is the assembled result of one pipeline run.
type Outcome struct {
	Extracted   *ExtractedInteraction
	ToolResults []ToolInvocation
	Steps       int
	Parse       ParseState
}

// Agent runs the four-stage conversation pipeline: receive input, call
// the model, dispatch requested tools, assemble the result. Each call is
// stateless and independent; the Agent holds no per-conversation state.
type Agent struct {
	llm      Chatter
	registry *tools.Registry
}

// New creates an Agent. The Chatter must be non-nil; credential checks
// happen when the concrete client is constructed.
func New(llm Chatter, registry *tools.Registry) *Agent {
	return &Agent{llm: llm, registry: registry}
}

// reply is the JSON shape the instruction prompt asks the model for.
type reply struct {
	Understanding string                `json:"understanding"`
	ExtractedData *ExtractedInteraction `json:"extracted_data"`
	ToolsToCall   []toolCall            `json:"tools_to_call"`
}

type toolCall struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// Process runs one user message through the pipeline. The returned error
// is non-nil only for model call failures; a malformed model reply
// degrades to an Unparseable outcome instead.
func (a *Agent) Process(ctx context.Context, userMessage string) (Outcome, error) {
	// Stage 1: receive. The message opens the transcript.
	transcript := []Message{{Role: "user", Content: userMessage}}

	// Stage 2: model call. The instruction prompt goes last so it wins
	// over anything in the user text.
	raw, err := a.llm.Chat(ctx, append(transcript, Message{Role: "system", Content: systemPrompt}))
	if err != nil {
		return Outcome{}, err
	}
	transcript = append(transcript, Message{Role: "assistant", Content: raw})

	// Stage 3: extraction and dispatch.
	parsed, ok := parseReply(raw)
	out := Outcome{Parse: Unparseable, ToolResults: []ToolInvocation{}}
	if ok {
		out.Parse = Parsed
		out.Extracted = parsed.ExtractedData
		for _, call := range parsed.ToolsToCall {
			result := a.registry.Execute(call.Name, call.Input)
			out.ToolResults = append(out.ToolResults, ToolInvocation{
				Tool:   call.Name,
				Input:  call.Input,
				Result: result,
			})
		}
		if len(out.ToolResults) > 0 {
			results, err := json.Marshal(out.ToolResults)
			if err == nil {
				transcript = append(transcript, Message{Role: "tool", Content: string(results)})
			} else {
				slog.Warn("marshalling tool results for transcript", "error", err)
			}
		}
	} else {
		slog.Debug("model reply not parseable as extraction JSON", "reply_len", len(raw))
	}

	// Stage 4: assemble.
	out.Steps = len(transcript)
	return out, nil
}

// parseReply locates the JSON object in the model reply and decodes it.
// Replies wrapped in prose or markdown still parse as long as a brace
// pair delimits valid JSON; anything else reports not ok.
func parseReply(raw string) (reply, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return reply{}, false
	}

	var r reply
	if err := json.Unmarshal([]byte(raw[start:end+1]), &r); err != nil {
		return reply{}, false
	}
	return r, true
}
