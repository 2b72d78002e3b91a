package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/perclft/qpilot/internal/domain"
)

var rerunCmd = &cobra.Command{
	Use:   "rerun <job-id>",
	Short: "Re-run a job's deployment snapshot as a new job",
	Args:  cobra.ExactArgs(1),
	RunE:  runRerun,
}

func runRerun(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	var job domain.Job
	if err := doRequest("POST", "/jobs/"+jobID+"/rerun", nil, &job); err != nil {
		return fmt.Errorf("rerun failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "job %s re-run as %s, state=%s\n", jobID, job.ID, job.State)
	return nil
}
