package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/medrep/hcpcrm/internal/agent"
	"github.com/medrep/hcpcrm/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// maxNotesLength bounds free-text notes on all write paths.
const maxNotesLength = 5000

// AppDeps holds dependencies for the HTTP surface.
type AppDeps struct {
	Store *storage.Store
	Agent *agent.Agent // nil until an LLM credential is configured
	Token string       // optional bearer token; empty leaves the API open
}

// NewAppHandler returns the CRM HTTP handler: interaction CRUD, the
// conversational endpoints, and a liveness probe.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	r.Use(RequestID)
	r.Use(RequestLogger)

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}

		r.Post("/interactions", handleCreateInteraction(deps))
		r.Get("/interactions", handleListInteractions(deps))
		r.Get("/interactions/{id}", handleGetInteraction(deps))
		r.Delete("/interactions/{id}", handleDeleteInteraction(deps))

		r.Post("/ai/chat", handleChat(deps))
		r.Post("/ai/chat/confirm", handleChatConfirm(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy","service":"hcpcrm"}`))
}

// CreateInteractionRequest is the write shape shared by the CRUD create
// and the chat confirm endpoints.
type CreateInteractionRequest struct {
	HCPName         string `json:"hcp_name"`
	InteractionType string `json:"interaction_type"`
	Notes           string `json:"notes"`
}

// validate returns a human-readable reason when the request is not storable.
func (req CreateInteractionRequest) validate() error {
	if req.HCPName == "" {
		return errors.New("hcp_name is required")
	}
	if !storage.IsValidInteractionType(req.InteractionType) {
		return fmt.Errorf("invalid interaction_type %q, must be one of: Visit, Call, Virtual", req.InteractionType)
	}
	if utf8.RuneCountInString(req.Notes) > maxNotesLength {
		return fmt.Errorf("notes exceed %d characters", maxNotesLength)
	}
	return nil
}

func handleCreateInteraction(deps AppDeps) http.HandlerFunc {
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
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(interaction)
	}
}

// InteractionListResponse pairs a page of records with the total count.
type InteractionListResponse struct {
	Count        int                   `json:"count"`
	Interactions []storage.Interaction `json:"interactions"`
}

func handleListInteractions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		interactions, err := deps.Store.ListInteractions(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}
		if interactions == nil {
			interactions = []storage.Interaction{}
		}

		count, err := deps.Store.CountInteractions()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count interactions: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(InteractionListResponse{
			Count:        count,
			Interactions: interactions,
		})
	}
}

func handleGetInteraction(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}

		interaction, err := deps.Store.GetInteraction(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction with id %d not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get interaction: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(interaction)
	}
}

func handleDeleteInteraction(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}

		err = deps.Store.DeleteInteraction(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction with id %d not found", id)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete interaction: %v", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
