package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/perclft/qpilot/internal/domain"
)

var (
	submitDeploymentID string
	submitProvider     string
	submitDevice       string
	submitShots        int
	submitJobType      string
	submitName         string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Create and run a job against an existing deployment",
	Args:  cobra.NoArgs,
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitDeploymentID, "deployment", "", "deployment id to run (required)")
	submitCmd.Flags().StringVar(&submitProvider, "provider", "", "device provider name (required)")
	submitCmd.Flags().StringVar(&submitDevice, "device", "", "device name (required)")
	submitCmd.Flags().IntVar(&submitShots, "shots", 1000, "number of shots")
	submitCmd.Flags().StringVar(&submitJobType, "type", "RUNNER", "job type: RUNNER, SAMPLER, ESTIMATOR, FILE_UPLOAD, FILE_RUN")
	submitCmd.Flags().StringVar(&submitName, "name", "", "human-readable job name")
	_ = submitCmd.MarkFlagRequired("deployment")
	_ = submitCmd.MarkFlagRequired("provider")
	_ = submitCmd.MarkFlagRequired("device")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	body := map[string]any{
		"deployment_id":   submitDeploymentID,
		"device_provider": submitProvider,
		"device_name":     submitDevice,
		"shots":           submitShots,
		"type":            submitJobType,
		"name":            submitName,
	}

	var job domain.Job
	if err := doRequest("POST", "/jobs/", body, &job); err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}

	fmt.Fprintf(os.Stdout, "job %s submitted, state=%s\n", job.ID, job.State)
	return nil
}
