package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "hcpcrm",
	Short:   "CRM backend for logging healthcare-professional interactions",
	Version: version,
	Long: `hcpcrm is a CRM backend for field reps logging interactions with
healthcare professionals. It serves a REST API for interaction records
and an AI chat pipeline that extracts structured interaction data from
free-form messages.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(interactionsCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	// Local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
