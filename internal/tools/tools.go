package tools

import (
	"fmt"
	"strings"

	"github.com/medrep/hcpcrm/internal/storage"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusWarning = "warning"
	StatusError   = "error"
)

// Result is the outcome of a single tool invocation. Results are shaped
// for the caller and never persisted.
type Result struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func errorResult(format string, args ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// LogInteraction validates and shapes extracted interaction fields.
// It performs no persistence; the confirm endpoint owns the actual save.
func LogInteraction(input map[string]any) Result {
	hcpName := stringArg(input, "hcp_name")
	interactionType := stringArg(input, "interaction_type")
	notes := stringArg(input, "notes")

	if !storage.IsValidInteractionType(interactionType) {
		return errorResult("Invalid type. Must be one of: %s", strings.Join(storage.ValidInteractionTypes, ", "))
	}

	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Extracted interaction for %s", hcpName),
		Data: map[string]any{
			"hcp_name":         hcpName,
			"interaction_type": interactionType,
			"notes":            notes,
		},
	}
}

// editableFields are the interaction fields EditInteraction may propose
// changes to.
var editableFields = []string{"hcp_name", "interaction_type", "notes"}

// EditInteraction validates a proposed field change and echoes it back.
// It never mutates the store; callers apply the change themselves.
func EditInteraction(input map[string]any) Result {
	interactionID := intArg(input, "interaction_id")
	field := stringArg(input, "field")
	value := stringArg(input, "value")

	valid := false
	for _, f := range editableFields {
		if field == f {
			valid = true
			break
		}
	}
	if !valid {
		return errorResult("Cannot edit field %q. Valid: %s", field, strings.Join(editableFields, ", "))
	}

	if field == "interaction_type" && !storage.IsValidInteractionType(value) {
		return errorResult("Invalid interaction type")
	}

	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Updated %s for interaction %d", field, interactionID),
		Data: map[string]any{
			"interaction_id": interactionID,
			"field":          field,
			"new_value":      value,
		},
	}
}

// hcpSuggestions is the static suggestion list returned by HCPLookup.
var hcpSuggestions = []string{
	"Dr. Sarah Johnson",
	"Dr. John Smith",
	"Dr. Michael Chen",
}

// HCPLookup searches for an existing HCP record by name. The search term
// may arrive under either "hcp_name" or "text"; the first non-empty wins.
// Lookup is a stub: it always reports not found with fixed suggestions.
func HCPLookup(input map[string]any) Result {
	searchTerm := stringArg(input, "hcp_name")
	if searchTerm == "" {
		searchTerm = stringArg(input, "text")
	}
	if searchTerm == "" {
		searchTerm = "Unknown"
	}

	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("HCP lookup for %q", searchTerm),
		Data: map[string]any{
			"found":       false,
			"suggestions": hcpSuggestions,
		},
	}
}

// riskyKeywords flag regulatory concerns in interaction notes.
var riskyKeywords = []string{"off-label", "experimental", "unlicensed", "unapproved"}

// ComplianceCheck scans text for risky regulatory language.
func ComplianceCheck(input map[string]any) Result {
	text := stringArg(input, "text")
	lower := strings.ToLower(text)

	var issues []string
	for _, kw := range riskyKeywords {
		if strings.Contains(lower, kw) {
			issues = append(issues, kw)
		}
	}

	if len(issues) > 0 {
		return Result{
			Status:  StatusWarning,
			Message: fmt.Sprintf("Compliance issues detected: %s", strings.Join(issues, ", ")),
			Data: map[string]any{
				"compliant":  false,
				"issues":     issues,
				"suggestion": "Consider rephrasing to avoid regulatory concerns",
			},
		}
	}

	return Result{
		Status:  StatusSuccess,
		Message: "No compliance issues detected",
		Data: map[string]any{
			"compliant": true,
			"issues":    []string{},
		},
	}
}

// NextBestAction suggests deterministic follow-up actions from the
// interaction type plus keyword triggers in the notes.
func NextBestAction(input map[string]any) Result {
	hcpName := stringArg(input, "hcp_name")
	interactionType := stringArg(input, "interaction_type")
	notes := stringArg(input, "notes")

	var actions []string
	switch interactionType {
	case "Visit":
		actions = append(actions, "Schedule follow-up call within 2 weeks")
		actions = append(actions, "Send meeting summary email")
	case "Call":
		actions = append(actions, "Log action items if discussed")
		actions = append(actions, "Consider scheduling in-person visit")
	case "Virtual":
		actions = append(actions, "Send recording summary")
		actions = append(actions, "Plan next virtual or in-person meeting")
	}

	lowerNotes := strings.ToLower(notes)
	if strings.Contains(lowerNotes, "feedback") {
		actions = append(actions, "Document feedback for product team")
	}
	if strings.Contains(lowerNotes, "issues") || strings.Contains(lowerNotes, "problem") {
		actions = append(actions, "Escalate to support team if needed")
	}

	priority := "Normal"
	if len(actions) > 2 {
		priority = "High"
	}
	if actions == nil {
		actions = []string{}
	}

	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Generated recommendations for %s", hcpName),
		Data: map[string]any{
			"hcp_name":            hcpName,
			"recommended_actions": actions,
			"priority":            priority,
		},
	}
}

// stringArg returns input[key] as a string, or "" when absent or not a string.
func stringArg(input map[string]any, key string) string {
	if input == nil {
		return ""
	}
	s, _ := input[key].(string)
	return s
}

// intArg returns input[key] as an int64, tolerating the numeric types
// JSON decoding produces. Returns 0 when absent or not numeric.
func intArg(input map[string]any, key string) int64 {
	if input == nil {
		return 0
	}
	switch v := input[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
