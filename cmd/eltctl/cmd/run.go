package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [job_id]",
	Short: "Trigger a manual run for a job",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jobID := args[0]

		client := clientFromFlags(cmd)
		result, err := client.RunJob(jobID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.PrintErrf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.PrintErrf("Error: %v\n", err)
			}
			return
		}

		printRun(cmd, *result)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
