package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ragops/banditd/pkg/client"
)

var smokeQuestion string

// smokeCmd represents the smoke command
var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Smoke-check the RAG backend",
	Long: `Send a test question to each RAG backend endpoint and report status
and end-to-end latency. The streaming endpoint is drained to completion
so the reported latency covers the full response.`,
	RunE: runSmoke,
}

func init() {
	rootCmd.AddCommand(smokeCmd)

	smokeCmd.Flags().StringVar(&smokeQuestion, "question", "What does the ingestion pipeline do?", "test question to send")
}

func runSmoke(cmd *cobra.Command, args []string) error {
	checker := client.NewSmokeChecker(GetBackendURL(), GetTimeout())
	results := checker.Run(smokeQuestion)

	if IsJSONOutput() {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
	} else {
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Endpoint", "Result", "Status", "Latency")

		for _, res := range results {
			result := "OK"
			if !res.OK {
				result = "FAIL"
				if res.Error != "" {
					result = "FAIL: " + res.Error
				}
			}
			status := "-"
			if res.StatusCode > 0 {
				status = fmt.Sprintf("%d", res.StatusCode)
			}
			table.Append(res.Endpoint, result, status, res.Latency.String())
		}

		table.Render()
	}

	for _, res := range results {
		if !res.OK {
			return fmt.Errorf("smoke check failed for %s", res.Endpoint)
		}
	}
	return nil
}
