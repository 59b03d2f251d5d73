package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"eltorch/pkg/api"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new job definition from a JSON spec file",
	Long: `Create a new job definition (schedule plus an ordered list of
extract/load tasks) from a JSON file.

The file must decode into the same shape as the POST /jobs request body:

  {
    "job_name": "daily-sync",
    "schedule": "0 0 3 * * *",
    "tasks": [
      {"extractor_config": {"type": "csv", "path": "/data/in.csv"},
       "loader_config": {"type": "duckdb", "db_path": "/w.db", "table_name": "events"}}
    ]
  }

Example:
  eltctl create --file job.json`,
	Run: func(cmd *cobra.Command, args []string) {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			cmd.PrintErrln("Error: --file is required")
			return
		}

		data, err := os.ReadFile(file)
		if err != nil {
			cmd.PrintErrf("Failed to read %s: %v\n", file, err)
			return
		}

		var req api.CreateJobRequest
		if err := json.Unmarshal(data, &req); err != nil {
			cmd.PrintErrf("Invalid job spec: %v\n", err)
			return
		}

		client := clientFromFlags(cmd)
		result, err := client.CreateJob(req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.PrintErrf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.PrintErrf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("job created\nid:       %s\nname:     %s\nschedule: %s\n", result.JobID, result.JobName, result.Schedule)
	},
}

func init() {
	createCmd.Flags().StringP("file", "f", "", "path to a JSON job spec (required)")
	rootCmd.AddCommand(createCmd)
}
