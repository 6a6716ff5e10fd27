package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/medrep/hcpcrm/internal/storage"
)

const extractingReply = `{
  "understanding": "Logging a visit with Dr. Smith",
  "extracted_data": {"hcp_name": "Dr. Smith", "interaction_type": "Visit", "notes": "discussed dosing"},
  "tools_to_call": [
    {"name": "compliance_check", "input": {"text": "discussed dosing"}}
  ]
}`

func TestChat_Success(t *testing.T) {
	h, _ := setupAppHandler(t, newStubAgent(extractingReply))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodPost, "/ai/chat", `{"user_message":"met Dr. Smith today"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rr.Code, rr.Body.String())
	}
	var resp ChatResponse
	decodeBody(t, rr, &resp)

	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
	if resp.ExtractedInteraction == nil {
		t.Fatal("expected extracted_interaction")
	}
	if resp.ExtractedInteraction.HCPName != "Dr. Smith" {
		t.Errorf("hcp_name = %q", resp.ExtractedInteraction.HCPName)
	}
	if len(resp.ToolResults) != 1 {
		t.Fatalf("tool_results len = %d, want 1", len(resp.ToolResults))
	}
	if resp.ToolResults[0].Tool != "compliance_check" {
		t.Errorf("tool = %q", resp.ToolResults[0].Tool)
	}
	if resp.ConversationSteps != 3 {
		t.Errorf("conversation_steps = %d, want 3", resp.ConversationSteps)
	}
}

// TestChat_Incomplete covers a model reply with no extractable JSON:
// the endpoint still answers 200 with a degraded payload.
func TestChat_Incomplete(t *testing.T) {
	h, _ := setupAppHandler(t, newStubAgent("I could not understand that message."))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodPost, "/ai/chat", `{"user_message":"hello"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	// extracted_interaction must serialize as null, tool_results as [].
	var raw map[string]any
	decodeBody(t, rr, &raw)
	if raw["status"] != "incomplete" {
		t.Errorf("status = %v, want incomplete", raw["status"])
	}
	if v, ok := raw["extracted_interaction"]; !ok || v != nil {
		t.Errorf("extracted_interaction = %v, want null", v)
	}
	results, ok := raw["tool_results"].([]any)
	if !ok {
		t.Fatalf("tool_results = %v, want empty array", raw["tool_results"])
	}
	if len(results) != 0 {
		t.Errorf("tool_results len = %d, want 0", len(results))
	}
	if raw["conversation_steps"] != float64(2) {
		t.Errorf("conversation_steps = %v, want 2", raw["conversation_steps"])
	}
}

func TestChat_IncompleteExtraction(t *testing.T) {
	reply := `{"understanding": "unclear", "extracted_data": {"hcp_name": "Dr. Smith", "interaction_type": ""}, "tools_to_call": []}`
	h, _ := setupAppHandler(t, newStubAgent(reply))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodPost, "/ai/chat", `{"user_message":"met someone"}`))

	var resp ChatResponse
	decodeBody(t, rr, &resp)
	if resp.Status != "error" {
		t.Errorf("status = %q, want error (missing required fields)", resp.Status)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	h, _ := setupAppHandler(t, newStubAgent(extractingReply))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodPost, "/ai/chat", `{"user_message":""}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestChat_NoAgentConfigured(t *testing.T) {
	h, _ := setupAppHandler(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodPost, "/ai/chat", `{"user_message":"hi"}`))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var resp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	decodeBody(t, rr, &resp)
	if resp.Error.Type != "configuration_error" {
		t.Errorf("type = %q, want configuration_error", resp.Error.Type)
	}
}

func TestChatConfirm(t *testing.T) {
	h, _ := setupAppHandler(t, nil)

	body := `{"hcp_name":"Dr. Smith","interaction_type":"Call","notes":"follow-up on samples"}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodPost, "/ai/chat/confirm", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rr.Code, rr.Body.String())
	}
	var resp ConfirmResponse
	decodeBody(t, rr, &resp)
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
	if resp.InteractionID == 0 {
		t.Fatal("expected non-zero interaction_id")
	}

	// The confirmed record must read back verbatim through GET.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodGet, fmt.Sprintf("/interactions/%d", resp.InteractionID), ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("get after confirm: status = %d", rr.Code)
	}
	var got storage.Interaction
	decodeBody(t, rr, &got)
	if got.HCPName != "Dr. Smith" || got.InteractionType != "Call" || got.Notes != "follow-up on samples" {
		t.Errorf("got = %+v", got)
	}
}

func TestChatConfirm_InvalidType(t *testing.T) {
	h, store := setupAppHandler(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, jsonReq(http.MethodPost, "/ai/chat/confirm", `{"hcp_name":"Dr. Smith","interaction_type":"Meeting"}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	count, err := store.CountInteractions()
	if err != nil {
		t.Fatalf("CountInteractions: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
