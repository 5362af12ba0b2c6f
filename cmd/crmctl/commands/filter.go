package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xenocrm/crm-backend/internal/rules"
)

var filterCmd = &cobra.Command{
	Use:   "filter <rules-json>",
	Short: "Preview how many customers a rule set matches",
	Long: `Preview an audience filter. The argument is a JSON array of rules:

  crmctl filter '[{"field":"totalSpend","operator":">","value":1000,"condition":"AND"}]'

An empty array matches every customer.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var rs rules.RuleSet
		if err := json.Unmarshal([]byte(args[0]), &rs); err != nil {
			return fmt.Errorf("invalid rules JSON: %w", err)
		}

		count, err := apiClient().PreviewFilter(ctx, rs)
		if err != nil {
			return err
		}
		fmt.Printf("count: %d\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)
}
