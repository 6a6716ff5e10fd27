package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medrep/hcpcrm/internal/config"
)

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Manage logged HCP interactions",
}

type interactionRecord struct {
	ID              int64  `json:"id"`
	HCPName         string `json:"hcp_name"`
	InteractionType string `json:"interaction_type"`
	Notes           string `json:"notes"`
	CreatedAt       string `json:"created_at"`
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/interactions?limit=%d", limit)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var list struct {
			Count        int                 `json:"count"`
			Interactions []interactionRecord `json:"interactions"`
		}
		if err := decodeJSON(resp, &list); err != nil {
			return err
		}

		if len(list.Interactions) == 0 {
			fmt.Println("No interactions found.")
			return nil
		}

		for _, ix := range list.Interactions {
			notes := ix.Notes
			if len(notes) > 60 {
				notes = notes[:60] + "..."
			}
			fmt.Printf("%s  %-8s  %-25s  %s\n",
				colorize(colorCyan, fmt.Sprintf("#%-5d", ix.ID)),
				ix.InteractionType,
				ix.HCPName,
				notes,
			)
		}
		fmt.Printf("\n%d total\n", list.Count)
		return nil
	},
}

var interactionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/interactions/"+args[0])
		if err != nil {
			return err
		}

		var interaction any
		if err := decodeJSON(resp, &interaction); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(interaction)
	},
}

var interactionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/interactions/"+args[0])
		if err != nil {
			return err
		}
		resp.Body.Close()

		if resp.StatusCode == 404 {
			printError("Interaction %s not found", args[0])
			return fmt.Errorf("not found")
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		printSuccess("Deleted interaction %s", args[0])
		return nil
	},
}

func init() {
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	interactionsCmd.AddCommand(interactionsListCmd)
	interactionsCmd.AddCommand(interactionsShowCmd)
	interactionsCmd.AddCommand(interactionsDeleteCmd)
}

// --- log ---

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log an HCP interaction directly",
	Long: `Log an HCP interaction directly, without the AI pipeline.

Examples:
  hcpcrm log --hcp "Dr. Sarah Johnson" --type Visit --notes "Discussed dosing schedule"
  hcpcrm log --hcp "Dr. John Smith" --type Call`,
	RunE: func(cmd *cobra.Command, args []string) error {
		hcp, _ := cmd.Flags().GetString("hcp")
		typ, _ := cmd.Flags().GetString("type")
		notes, _ := cmd.Flags().GetString("notes")

		if hcp == "" || typ == "" {
			return fmt.Errorf("--hcp and --type are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"hcp_name":         hcp,
			"interaction_type": typ,
		}
		if notes != "" {
			req["notes"] = notes
		}

		resp, err := client.post(cmd.Context(), "/interactions", req)
		if err != nil {
			return err
		}

		var created interactionRecord
		if err := decodeJSON(resp, &created); err != nil {
			return err
		}

		printSuccess("Logged interaction #%d (%s with %s)", created.ID, created.InteractionType, created.HCPName)
		return nil
	},
}

func init() {
	logCmd.Flags().String("hcp", "", "healthcare professional name")
	logCmd.Flags().String("type", "", "interaction type: Visit, Call, or Virtual")
	logCmd.Flags().String("notes", "", "interaction notes")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Describe an interaction in plain language",
	Long: `Describe an interaction in plain language and let the AI pipeline
extract structured data from it. The extraction is only a proposal;
pass --confirm to persist it.

Examples:
  hcpcrm chat "met Dr. Johnson today, discussed the new dosing schedule"
  hcpcrm chat --confirm "quick call with Dr. Smith about trial results"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		confirm, _ := cmd.Flags().GetBool("confirm")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/ai/chat", map[string]any{
			"user_message": message,
		})
		if err != nil {
			return err
		}

		var chat struct {
			Status               string            `json:"status"`
			Message              string            `json:"message"`
			ExtractedInteraction *interactionDraft `json:"extracted_interaction"`
			ToolResults          []json.RawMessage `json:"tool_results"`
			ConversationSteps    int               `json:"conversation_steps"`
		}
		if err := decodeJSON(resp, &chat); err != nil {
			return err
		}

		switch chat.Status {
		case "success":
			printSuccess("%s", chat.Message)
		case "incomplete":
			printWarning("%s", chat.Message)
		default:
			printError("%s", chat.Message)
		}

		if chat.ExtractedInteraction != nil {
			printStatus("HCP", "%s", chat.ExtractedInteraction.HCPName)
			printStatus("Type", "%s", chat.ExtractedInteraction.InteractionType)
			if chat.ExtractedInteraction.Notes != "" {
				printStatus("Notes", "%s", chat.ExtractedInteraction.Notes)
			}
		}

		for _, raw := range chat.ToolResults {
			var tr struct {
				Tool   string `json:"tool"`
				Result struct {
					Status  string `json:"status"`
					Message string `json:"message"`
				} `json:"result"`
			}
			if json.Unmarshal(raw, &tr) == nil {
				printStatus(tr.Tool, "[%s] %s", tr.Result.Status, tr.Result.Message)
			}
		}

		if chat.Status != "success" || chat.ExtractedInteraction == nil {
			return nil
		}

		if !confirm {
			fmt.Fprintln(os.Stderr, "\nRun again with --confirm to save this interaction.")
			return nil
		}

		confirmResp, err := client.post(cmd.Context(), "/ai/chat/confirm", chat.ExtractedInteraction)
		if err != nil {
			return err
		}

		var saved struct {
			InteractionID int64 `json:"interaction_id"`
		}
		if err := decodeJSON(confirmResp, &saved); err != nil {
			return err
		}

		printSuccess("Saved interaction #%d", saved.InteractionID)
		return nil
	},
}

type interactionDraft struct {
	HCPName         string `json:"hcp_name"`
	InteractionType string `json:"interaction_type"`
	Notes           string `json:"notes,omitempty"`
}

func init() {
	chatCmd.Flags().Bool("confirm", false, "persist the extracted interaction")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
