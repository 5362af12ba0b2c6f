package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/xenocrm/crm-backend/internal/cli"
	"github.com/xenocrm/crm-backend/internal/store"
)

var (
	customerName   string
	customerEmail  string
	customerPhone  string
	customerSpend  float64
	customerVisits int
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Manage customers",
}

var customersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a customer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		created, err := apiClient().CreateCustomer(ctx, store.Customer{
			Name:       customerName,
			Email:      customerEmail,
			Phone:      customerPhone,
			TotalSpend: customerSpend,
			Visits:     customerVisits,
		})
		if err != nil {
			return err
		}
		return cli.PrintCustomer(created, outputFormat())
	},
}

func init() {
	customersCreateCmd.Flags().StringVar(&customerName, "name", "", "Customer name (required)")
	customersCreateCmd.Flags().StringVar(&customerEmail, "email", "", "Customer email (required)")
	customersCreateCmd.Flags().StringVar(&customerPhone, "phone", "", "Customer phone")
	customersCreateCmd.Flags().Float64Var(&customerSpend, "spend", 0, "Total spend")
	customersCreateCmd.Flags().IntVar(&customerVisits, "visits", 0, "Visit count")
	_ = customersCreateCmd.MarkFlagRequired("name")
	_ = customersCreateCmd.MarkFlagRequired("email")

	customersCmd.AddCommand(customersCreateCmd)
	rootCmd.AddCommand(customersCmd)
}
