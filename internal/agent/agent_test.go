package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/medrep/hcpcrm/internal/tools"
)

// mockChatter implements Chatter for testing.
type mockChatter struct {
	response string
	err      error
	gotMsgs  []Message
}

func (m *mockChatter) Chat(_ context.Context, messages []Message) (string, error) {
	m.gotMsgs = messages
	return m.response, m.err
}

func newTestAgent(reply string) (*Agent, *mockChatter) {
	mock := &mockChatter{response: reply}
	return New(mock, tools.NewRegistry()), mock
}

func TestProcess_ExtractsAndDispatches(t *testing.T) {
	a, _ := newTestAgent(`{
		"understanding": "rep met Dr. Smith in person",
		"extracted_data": {"hcp_name": "Dr. Smith", "interaction_type": "Visit", "notes": "discussed product feedback"},
		"tools_to_call": [
			{"name": "compliance_check", "input": {"text": "discussed product feedback"}},
			{"name": "next_best_action", "input": {"hcp_name": "Dr. Smith", "interaction_type": "Visit", "notes": "discussed product feedback"}}
		]
	}`)

	out, err := a.Process(context.Background(), "I just met with Dr. Smith and we discussed product feedback")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if out.Parse != Parsed {
		t.Fatal("Parse = Unparseable, want Parsed")
	}
	if out.Extracted == nil {
		t.Fatal("Extracted = nil, want extraction")
	}
	if out.Extracted.HCPName != "Dr. Smith" || out.Extracted.InteractionType != "Visit" {
		t.Errorf("Extracted = %+v", out.Extracted)
	}
	if len(out.ToolResults) != 2 {
		t.Fatalf("len(ToolResults) = %d, want 2", len(out.ToolResults))
	}
	if out.ToolResults[0].Tool != "compliance_check" || out.ToolResults[0].Result.Status != tools.StatusSuccess {
		t.Errorf("first tool = %+v", out.ToolResults[0])
	}
	if out.ToolResults[1].Tool != "next_best_action" {
		t.Errorf("second tool = %q, want next_best_action", out.ToolResults[1].Tool)
	}

	// user + assistant + tool results
	if out.Steps != 3 {
		t.Errorf("Steps = %d, want 3", out.Steps)
	}
}

func TestProcess_ProseWrappedJSONStillParses(t *testing.T) {
	a, _ := newTestAgent("Here is what I understood:\n" +
		`{"understanding": "call", "extracted_data": {"hcp_name": "Dr. Chen", "interaction_type": "Call", "notes": "n"}, "tools_to_call": []}` +
		"\nLet me know if you need anything else.")

	out, err := a.Process(context.Background(), "called Dr. Chen")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Parse != Parsed {
		t.Fatal("Parse = Unparseable, want Parsed")
	}
	if out.Extracted == nil || out.Extracted.HCPName != "Dr. Chen" {
		t.Errorf("Extracted = %+v", out.Extracted)
	}
}

// TestProcess_NoBracesDegrades verifies a reply with no JSON at all yields
// an explicit Unparseable outcome: no extraction, no tool calls, and a
// two-entry transcript.
func TestProcess_NoBracesDegrades(t *testing.T) {
	a, _ := newTestAgent("Sorry, I could not understand that request.")

	out, err := a.Process(context.Background(), "gibberish")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Parse != Unparseable {
		t.Error("Parse = Parsed, want Unparseable")
	}
	if out.Extracted != nil {
		t.Errorf("Extracted = %+v, want nil", out.Extracted)
	}
	if len(out.ToolResults) != 0 {
		t.Errorf("ToolResults = %v, want empty", out.ToolResults)
	}
	if out.Steps != 2 {
		t.Errorf("Steps = %d, want 2", out.Steps)
	}
}

func TestProcess_MalformedJSONDegrades(t *testing.T) {
	a, _ := newTestAgent(`{"understanding": "oops", "extracted_data": {`)

	out, err := a.Process(context.Background(), "met someone")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Parse != Unparseable {
		t.Error("Parse = Parsed, want Unparseable")
	}
	if out.Extracted != nil {
		t.Errorf("Extracted = %+v, want nil", out.Extracted)
	}
}

// TestProcess_ParsedWithoutExtraction covers a valid JSON reply that has
// tool calls but no extracted_data key.
func TestProcess_ParsedWithoutExtraction(t *testing.T) {
	a, _ := newTestAgent(`{"understanding": "user asked a question", "tools_to_call": [{"name": "hcp_lookup", "input": {"hcp_name": "Dr. Smith"}}]}`)

	out, err := a.Process(context.Background(), "do we know a Dr. Smith?")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Parse != Parsed {
		t.Fatal("Parse = Unparseable, want Parsed")
	}
	if out.Extracted != nil {
		t.Errorf("Extracted = %+v, want nil", out.Extracted)
	}
	if len(out.ToolResults) != 1 || out.ToolResults[0].Tool != "hcp_lookup" {
		t.Fatalf("ToolResults = %+v", out.ToolResults)
	}
}

func TestProcess_UnknownToolBecomesErrorResult(t *testing.T) {
	a, _ := newTestAgent(`{"extracted_data": {"hcp_name": "Dr. Smith", "interaction_type": "Visit", "notes": "n"}, "tools_to_call": [{"name": "send_email", "input": {}}]}`)

	out, err := a.Process(context.Background(), "met Dr. Smith")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out.ToolResults) != 1 {
		t.Fatalf("len(ToolResults) = %d, want 1", len(out.ToolResults))
	}
	if out.ToolResults[0].Result.Status != tools.StatusError {
		t.Errorf("Result.Status = %q, want error", out.ToolResults[0].Result.Status)
	}
	// A failed tool must not poison the extraction.
	if out.Extracted == nil {
		t.Error("Extracted = nil, want extraction to survive tool failure")
	}
}

func TestProcess_ModelErrorPropagates(t *testing.T) {
	mock := &mockChatter{err: errors.New("upstream unavailable")}
	a := New(mock, tools.NewRegistry())

	if _, err := a.Process(context.Background(), "met Dr. Smith"); err == nil {
		t.Fatal("expected error from model failure")
	}
}

// TestProcess_InstructionPromptLast verifies the instruction prompt is the
// final message sent to the model.
func TestProcess_InstructionPromptLast(t *testing.T) {
	a, mock := newTestAgent(`{}`)

	if _, err := a.Process(context.Background(), "hello"); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(mock.gotMsgs) != 2 {
		t.Fatalf("model received %d messages, want 2", len(mock.gotMsgs))
	}
	if mock.gotMsgs[0].Role != "user" {
		t.Errorf("first message role = %q, want user", mock.gotMsgs[0].Role)
	}
	last := mock.gotMsgs[len(mock.gotMsgs)-1]
	if last.Role != "system" || last.Content != systemPrompt {
		t.Errorf("last message = {%s}, want the system instruction prompt", last.Role)
	}
}
