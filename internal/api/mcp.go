package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/medrep/hcpcrm/internal/storage"
	"github.com/medrep/hcpcrm/internal/tools"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *storage.Store
	Registry *tools.Registry
}

// NewMCPServer exposes the CRM tool registry and a recent-interactions
// resource over the Model Context Protocol, so automation clients get the
// same five tools the chat pipeline dispatches.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"hcpcrm",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("hcpcrm: CRM tooling for logging and reviewing healthcare-professional interactions."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("log_interaction",
			mcp.WithDescription("Validate and structure an HCP interaction record from extracted fields."),
			mcp.WithString("hcp_name", mcp.Description("Name of the healthcare professional"), mcp.Required()),
			mcp.WithString("interaction_type", mcp.Description("Visit, Call, or Virtual"), mcp.Required()),
			mcp.WithString("notes", mcp.Description("Summarized interaction notes")),
		),
		mcpToolHandler(deps, "log_interaction", "hcp_name", "interaction_type", "notes"),
	)

	s.AddTool(
		mcp.NewTool("edit_interaction",
			mcp.WithDescription("Validate a proposed change to a field of an existing interaction."),
			mcp.WithNumber("interaction_id", mcp.Description("ID of the interaction to edit"), mcp.Required()),
			mcp.WithString("field", mcp.Description("Field to edit: hcp_name, interaction_type, or notes"), mcp.Required()),
			mcp.WithString("value", mcp.Description("New value for the field"), mcp.Required()),
		),
		mcpEditInteraction(deps),
	)

	s.AddTool(
		mcp.NewTool("hcp_lookup",
			mcp.WithDescription("Search for existing HCP records by name."),
			mcp.WithString("hcp_name", mcp.Description("Name to search for")),
			mcp.WithString("text", mcp.Description("Alternative parameter carrying the name")),
		),
		mcpToolHandler(deps, "hcp_lookup", "hcp_name", "text"),
	)

	s.AddTool(
		mcp.NewTool("compliance_check",
			mcp.WithDescription("Check interaction notes for risky regulatory language."),
			mcp.WithString("text", mcp.Description("Text to check for compliance issues"), mcp.Required()),
		),
		mcpToolHandler(deps, "compliance_check", "text"),
	)

	s.AddTool(
		mcp.NewTool("next_best_action",
			mcp.WithDescription("Suggest follow-up actions for a logged interaction."),
			mcp.WithString("hcp_name", mcp.Description("HCP name for context")),
			mcp.WithString("interaction_type", mcp.Description("Type of the last interaction")),
			mcp.WithString("notes", mcp.Description("Summary of the interaction")),
		),
		mcpToolHandler(deps, "next_best_action", "hcp_name", "interaction_type", "notes"),
	)

	s.AddResource(
		mcp.NewResource(
			"crm://recent",
			"Recent Interactions",
			mcp.WithResourceDescription("Last 10 logged HCP interactions"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

// mcpToolHandler adapts a registry tool taking only string arguments.
func mcpToolHandler(deps MCPDeps, name string, keys ...string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input := map[string]any{}
		for _, key := range keys {
			if v := req.GetString(key, ""); v != "" {
				input[key] = v
			}
		}
		return mcpResult(deps.Registry.Execute(name, input))
	}
}

func mcpEditInteraction(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input := map[string]any{
			"interaction_id": req.GetInt("interaction_id", 0),
			"field":          req.GetString("field", ""),
			"value":          req.GetString("value", ""),
		}
		return mcpResult(deps.Registry.Execute("edit_interaction", input))
	}
}

// mcpResult marshals a tool Result as JSON text content. Error-status
// results are flagged but still carry the structured payload.
func mcpResult(result tools.Result) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal tool result: %v", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(b)},
		},
		IsError: result.Status == tools.StatusError,
	}, nil
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		interactions, err := deps.Store.ListInteractions(10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list interactions: %w", err)
		}

		type interactionSummary struct {
			ID              int64  `json:"id"`
			CreatedAt       string `json:"created_at"`
			HCPName         string `json:"hcp_name"`
			InteractionType string `json:"interaction_type"`
		}

		summaries := make([]interactionSummary, len(interactions))
		for i, ix := range interactions {
			summaries[i] = interactionSummary{
				ID:              ix.ID,
				CreatedAt:       ix.CreatedAt.Format(time.RFC3339),
				HCPName:         ix.HCPName,
				InteractionType: ix.InteractionType,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interactions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}
