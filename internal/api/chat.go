package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/medrep/hcpcrm/internal/agent"
	"github.com/medrep/hcpcrm/internal/storage"
)

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	UserMessage string `json:"user_message"`
}

// ChatResponse reports the pipeline outcome. Status is "success" when an
// interaction was extracted, "incomplete" when the model reply yielded
// nothing usable, and "error" when extracted data failed validation.
type ChatResponse struct {
	Status               string                      `json:"status"`
	Message              string                      `json:"message"`
	ExtractedInteraction *agent.ExtractedInteraction `json:"extracted_interaction"`
	ToolResults          []agent.ToolInvocation      `json:"tool_results"`
	ConversationSteps    int                         `json:"conversation_steps"`
}

func handleChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Agent == nil {
			httpError(w, http.StatusInternalServerError, "configuration_error",
				"GROQ_API_KEY not configured. Set the environment variable to enable AI features.")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.UserMessage == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_message is required")
			return
		}

		out, err := deps.Agent.Process(r.Context(), req.UserMessage)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "AI processing failed: %v", err)
			return
		}

		resp := ChatResponse{
			ToolResults:       out.ToolResults,
			ConversationSteps: out.Steps,
		}
		if resp.ToolResults == nil {
			resp.ToolResults = []agent.ToolInvocation{}
		}

		switch {
		case out.Extracted == nil:
			resp.Status = "incomplete"
			resp.Message = "Could not extract interaction data. Please provide more details."
		case out.Extracted.HCPName == "" || out.Extracted.InteractionType == "":
			resp.Status = "error"
			resp.Message = "Extracted data validation failed: hcp_name and interaction_type are required."
		default:
			resp.Status = "success"
			resp.Message = "Interaction processed successfully. Please review and confirm before saving."
			resp.ExtractedInteraction = out.Extracted
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// ConfirmResponse is returned when user-confirmed extracted fields are
// written through to the store.
type ConfirmResponse struct {
	Status        string              `json:"status"`
	Message       string              `json:"message"`
	InteractionID int64               `json:"interaction_id"`
	CreatedAt     string              `json:"created_at"`
	Data          storage.Interaction `json:"data"`
}

func handleChatConfirm(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CreateInteractionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := req.validate(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		interaction, err := deps.Store.CreateInteraction(req.HCPName, req.InteractionType, req.Notes)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save interaction: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ConfirmResponse{
			Status:        "success",
			Message:       "Interaction saved successfully",
			InteractionID: interaction.ID,
			CreatedAt:     interaction.CreatedAt.Format(time.RFC3339Nano),
			Data:          interaction,
		})
	}
}
