package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xenocrm/crm-backend/internal/cli"
	"github.com/xenocrm/crm-backend/internal/rules"
	"github.com/xenocrm/crm-backend/internal/store"
)

var (
	campaignName  string
	campaignRules string
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Manage campaigns",
}

var campaignsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		campaigns, err := apiClient().ListCampaigns(ctx)
		if err != nil {
			return err
		}
		return cli.PrintCampaigns(campaigns, outputFormat())
	},
}

var campaignsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a campaign from a rule set",
	Long: `Create a campaign. The rule set is previewed first to snapshot the
audience size, then the campaign is stored with the rules verbatim.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var rs rules.RuleSet
		if campaignRules != "" {
			if err := json.Unmarshal([]byte(campaignRules), &rs); err != nil {
				return fmt.Errorf("invalid rules JSON: %w", err)
			}
		}

		c := apiClient()
		count, err := c.PreviewFilter(ctx, rs)
		if err != nil {
			return fmt.Errorf("audience preview failed: %w", err)
		}

		created, err := c.CreateCampaign(ctx, campaignName, json.RawMessage(campaignRules), count)
		if err != nil {
			return err
		}
		return cli.PrintCampaigns([]store.Campaign{created}, outputFormat())
	},
}

var campaignsStatsCmd = &cobra.Command{
	Use:   "stats <campaign-id>",
	Short: "Show sent/failed delivery stats for a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stats, err := apiClient().CampaignStats(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("sent: %d\nfailed: %d\n", stats.Sent, stats.Failed)
		return nil
	},
}

var campaignsDeliverCmd = &cobra.Command{
	Use:   "deliver <campaign-id>",
	Short: "Run a delivery batch for a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		var rs rules.RuleSet
		if campaignRules != "" {
			if err := json.Unmarshal([]byte(campaignRules), &rs); err != nil {
				return fmt.Errorf("invalid rules JSON: %w", err)
			}
		}

		result, err := apiClient().DeliverCampaign(ctx, args[0], rs)
		if err != nil {
			return err
		}
		fmt.Printf("recipients: %d\nsent: %d\nfailed: %d\n", result.Recipients, result.Sent, result.Failed)
		return nil
	},
}

func init() {
	campaignsCreateCmd.Flags().StringVar(&campaignName, "name", "", "Campaign name (required)")
	campaignsCreateCmd.Flags().StringVar(&campaignRules, "rules", "", "Audience rules as a JSON array")
	_ = campaignsCreateCmd.MarkFlagRequired("name")

	campaignsDeliverCmd.Flags().StringVar(&campaignRules, "rules", "", "Audience rules as a JSON array")

	campaignsCmd.AddCommand(campaignsListCmd, campaignsCreateCmd, campaignsStatsCmd, campaignsDeliverCmd)
	rootCmd.AddCommand(campaignsCmd)
}
