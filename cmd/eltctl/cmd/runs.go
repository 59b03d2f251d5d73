package cmd

import (
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List job runs",
	Run: func(cmd *cobra.Command, args []string) {
		client := clientFromFlags(cmd)
		runs, err := client.ListRuns()
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.PrintErrf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.PrintErrf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("%-36s  %-36s  %-10s  %s\n", "RUN ID", "JOB ID", "STATUS", "TRIGGERED BY")
		for _, r := range runs {
			cmd.Printf("%-36s  %-36s  %-10s  %s\n", r.RunID, r.JobID, r.Status, r.TriggeredBy)
		}
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
