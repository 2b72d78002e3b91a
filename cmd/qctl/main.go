// Command qctl is the qpilot command-line client: a thin HTTP caller
// against qpilotd's route table, replacing QubitEngine's gRPC-pb "qctl"
// (which talked directly to an engine binary over a generated stub).
// Grounded on chaos-runner/main.go's cobra root command + persistent
// flags wiring.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	userID     string
	token      string
)

var rootCmd = &cobra.Command{
	Use:   "qctl",
	Short: "Command-line client for the qpilot control plane",
	Long: `qctl submits, inspects and cancels quantum jobs against a running
qpilotd instance over its HTTP surface.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "http://localhost:8080", "qpilotd base URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "caller identity (X-User-Id)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "provider token (Authorization: Bearer)")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(rerunCmd)
	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
