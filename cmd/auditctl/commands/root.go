package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand returns the auditctl command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auditctl",
		Short: "Inspect the pedcare PHI audit log",
		Long: `auditctl reads compliance reports from a running pedcare server, or
audit events persisted to a local SQLite store.

Quick start:
  export PEDCARE_TOKEN=$(auditctl token)     # Mint a local owner token
  auditctl demo                              # Seed the sample scenario
  auditctl summary                           # Compliance status
  auditctl violations --severity critical    # Critical violations
  auditctl events --db data/audit.db         # Read the local store`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			if output != "table" && output != "json" {
				return fmt.Errorf("unsupported output format %q", output)
			}
			return nil
		},
	}

	cmd.PersistentFlags().String("server", envOr("PEDCARE_SERVER", "http://localhost:8080"), "pedcare server base URL")
	cmd.PersistentFlags().String("token", os.Getenv("PEDCARE_TOKEN"), "Owner bearer token")
	cmd.PersistentFlags().StringP("output", "o", "table", "Output format: table or json")

	cmd.AddCommand(SummaryCommand())
	cmd.AddCommand(ViolationsCommand())
	cmd.AddCommand(EventsCommand())
	cmd.AddCommand(PatientCommand())
	cmd.AddCommand(UserCommand())
	cmd.AddCommand(DemoCommand())
	cmd.AddCommand(TokenCommand())

	return cmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
