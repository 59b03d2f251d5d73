package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"eltorch/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [run_id]",
	Short: "Get the status of a run",
	Long:  `Retrieve detailed status for a run, including its state (queued, running, success, failed) and timestamps.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runID := args[0]

		client := clientFromFlags(cmd)
		run, err := client.GetRun(runID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.PrintErrf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.PrintErrf("Error: %v\n", err)
			}
			return
		}

		printRun(cmd, *run)
	},
}

const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

func statusIcon(status string) string {
	switch status {
	case "success":
		return colorGreen + "✓" + colorReset
	case "failed":
		return colorRed + "✗" + colorReset
	case "running":
		return colorYellow + "⏳" + colorReset
	case "queued":
		return colorDim + "◯" + colorReset
	default:
		return "•"
	}
}

func printRun(cmd *cobra.Command, run api.RunResponse) {
	cmd.Printf("%s %srun %s%s\n", statusIcon(run.Status), colorBold, run.RunID, colorReset)
	cmd.Printf("%sjob:%s          %s\n", colorDim, colorReset, run.JobID)
	cmd.Printf("%sstatus:%s       %s\n", colorDim, colorReset, run.Status)
	cmd.Printf("%striggered by:%s %s\n", colorDim, colorReset, run.TriggeredBy)
	cmd.Printf("%screated:%s      %s\n", colorDim, colorReset, run.CreatedAt.Format(time.RFC3339))

	if run.StartedAt != nil {
		cmd.Printf("%sstarted:%s      %s\n", colorDim, colorReset, run.StartedAt.Format(time.RFC3339))
	}
	if run.FinishedAt != nil {
		cmd.Printf("%sfinished:%s     %s\n", colorDim, colorReset, run.FinishedAt.Format(time.RFC3339))
		if run.StartedAt != nil {
			cmd.Printf("%sduration:%s     %s\n", colorDim, colorReset, run.FinishedAt.Sub(*run.StartedAt))
		}
	}
	if run.ErrorMessage != nil {
		cmd.Printf("%serror:%s        %s%s%s\n", colorDim, colorReset, colorRed, *run.ErrorMessage, colorReset)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
