package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show crawl state per category",
	Long: `Show when each category was last fetched, how many items the last listing
returned, consecutive fetch errors, and the total lines written to the
listing and detail files.`,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)

	sourcesCmd.Flags().Bool("json", false, "output as JSON")
}

func runSources(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	state, err := openState()
	if err != nil {
		return err
	}
	defer state.Close()

	list, err := state.ListSources()
	if err != nil {
		return err
	}

	if jsonOutput {
		output := map[string]any{
			"sources": list,
			"total":   len(list),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	}

	printSourcesTable(cmd.OutOrStdout(), list)
	return nil
}
