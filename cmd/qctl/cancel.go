package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a queued or running job",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	jobID := args[0]
	if err := doRequest("POST", "/jobs/"+jobID+"/cancel", nil, nil); err != nil {
		return fmt.Errorf("cancel failed: %w", err)
	}
	fmt.Fprintf(os.Stdout, "job %s canceled\n", jobID)
	return nil
}
