package main

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/perclft/qpilot/internal/domain"
)

var listState string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs visible to the caller",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listState, "state", "", "filter by job state: READY, RUNNING, FINISHED, ERROR, CANCELED")
}

func runList(cmd *cobra.Command, args []string) error {
	path := "/jobs/"
	if listState != "" {
		path += "?" + url.Values{"state": {listState}}.Encode()
	}

	var jobs []*domain.Job
	if err := doRequest("GET", path, nil, &jobs); err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	for _, job := range jobs {
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s/%s\t%s\n", job.ID, job.State, job.Device.Provider, job.Device.Name, job.Name)
	}
	return nil
}
