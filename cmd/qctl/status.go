package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/perclft/qpilot/internal/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Fetch a job's state and results",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

type jobWithResults struct {
	*domain.Job
	Results []domain.Result `json:"results"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	var got jobWithResults
	if err := doRequest("GET", "/jobs/"+jobID+"/", nil, &got); err != nil {
		return fmt.Errorf("status failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "job %s: state=%s device=%s/%s\n", got.ID, got.State, got.Device.Provider, got.Device.Name)
	for _, r := range got.Results {
		fmt.Fprintf(os.Stdout, "  result[%s] type=%s program=%s\n", r.ID, r.Type, r.ProgramID)
	}
	return nil
}
