package cmd

import (
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List job definitions",
	Run: func(cmd *cobra.Command, args []string) {
		client := clientFromFlags(cmd)
		jobs, err := client.ListJobs()
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.PrintErrf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.PrintErrf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("%-36s  %-24s  %-20s  %s\n", "JOB ID", "NAME", "SCHEDULE", "ACTIVE")
		for _, j := range jobs {
			cmd.Printf("%-36s  %-24s  %-20s  %t\n", j.JobID, j.JobName, j.Schedule, j.IsActive)
		}
	},
}

var jobCmd = &cobra.Command{
	Use:   "job [job_id]",
	Short: "Get a job definition and its tasks",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := clientFromFlags(cmd)
		job, err := client.GetJob(args[0])
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.PrintErrf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.PrintErrf("Error: %v\n", err)
			}
			return
		}

		cmd.Printf("%sjob %s%s\n", colorBold, job.JobID, colorReset)
		cmd.Printf("%sname:%s     %s\n", colorDim, colorReset, job.JobName)
		cmd.Printf("%sschedule:%s %s\n", colorDim, colorReset, job.Schedule)
		cmd.Printf("%sactive:%s   %t\n", colorDim, colorReset, job.IsActive)
		cmd.Printf("%stasks:%s\n", colorDim, colorReset)
		for _, t := range job.Tasks {
			cmd.Printf("  [%d] %s -> %s\n", t.TaskOrder, t.ExtractorConfig, t.LoaderConfig)
		}
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(jobCmd)
}
