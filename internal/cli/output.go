package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/xenocrm/crm-backend/internal/store"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintCampaigns outputs campaigns in the specified format
func PrintCampaigns(campaigns []store.Campaign, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(campaigns)
	case FormatYAML:
		return printYAML(campaigns)
	case FormatTable:
		return printCampaignTable(campaigns)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintCustomer outputs a single customer in the specified format
func PrintCustomer(c store.Customer, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(c)
	case FormatYAML:
		return printYAML(c)
	case FormatTable:
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Name", "Email", "Spend", "Visits"})
		table.Append([]string{
			c.ID, c.Name, c.Email,
			strconv.FormatFloat(c.TotalSpend, 'f', 2, 64),
			strconv.Itoa(c.Visits),
		})
		table.Render()
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(data any) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printCampaignTable(campaigns []store.Campaign) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Audience", "Created"})
	for _, c := range campaigns {
		table.Append([]string{
			c.ID,
			c.Name,
			strconv.FormatInt(c.AudienceSize, 10),
			c.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
	return nil
}
