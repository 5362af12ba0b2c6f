package commands

import (
	"github.com/spf13/cobra"

	"github.com/xenocrm/crm-backend/internal/cli"
	"github.com/xenocrm/crm-backend/internal/client"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	format  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "crmctl",
	Short: "CLI tool for the CRM backend",
	Long: `crmctl is a command-line tool for the CRM backend service.

It provides commands for creating customers and campaigns, previewing
audience filters, triggering campaign deliveries and reading delivery stats.

Examples:
  crmctl customers create --name "Ada" --email ada@example.com --spend 1500
  crmctl filter '[{"field":"totalSpend","operator":">","value":1000,"condition":"AND"}]'
  crmctl campaigns list
  crmctl campaigns stats <campaign-id>`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the CRM API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
}

// apiClient builds a client from the global flags and environment.
func apiClient() *client.Client {
	return client.NewClient(cli.ResolveBaseURL(baseURL), cli.ResolveAPIKey(apiKey))
}

func outputFormat() cli.OutputFormat {
	return cli.OutputFormat(format)
}
