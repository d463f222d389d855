package commands

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pedcare/internal/compliance/handler"
	audit "pedcare/pkg/platform/audit"
	"pedcare/pkg/platform/audit/store/sqlite"
)

func EventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List audit events",
		Long: `List audit events, most recent first.

By default events come from the server's in-memory log. With --db they are
read from a SQLite audit store instead, which keeps events across restarts
and supports filtering.

Examples:
  auditctl events --limit 20
  auditctl events --db data/audit.db --violations
  auditctl events --db data/audit.db --patient P001 -o json`,
		Args:         cobra.NoArgs,
		RunE:         runEvents,
		SilenceUsage: true,
	}
	cmd.Flags().Int("limit", 100, "Maximum number of events")
	cmd.Flags().String("db", "", "Read from this SQLite audit store instead of the server")
	cmd.Flags().String("patient", "", "Only events for this patient (requires --db)")
	cmd.Flags().String("user", "", "Only events by this user (requires --db)")
	cmd.Flags().Bool("violations", false, "Only violations (requires --db)")
	return cmd
}

func runEvents(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}
	dbPath, _ := cmd.Flags().GetString("db")
	var f sqlite.Filter
	f.PatientID, _ = cmd.Flags().GetString("patient")
	f.UserID, _ = cmd.Flags().GetString("user")
	f.ViolationsOnly, _ = cmd.Flags().GetBool("violations")

	var records []audit.Record
	if dbPath != "" {
		events, err := listStored(cmd, dbPath, f, limit)
		if err != nil {
			return err
		}
		for _, e := range events {
			records = append(records, audit.NewRecord(e))
		}
	} else {
		if f != (sqlite.Filter{}) {
			return errors.New("--patient, --user and --violations require --db")
		}
		client, err := clientFromFlags(cmd)
		if err != nil {
			return err
		}
		var resp handler.AuditLogResponse
		if err := client.get(cmd.Context(), "/compliance/audit-log", limitQuery(limit), &resp); err != nil {
			return err
		}
		records = resp.Events
	}

	if asJSON(cmd) {
		if records == nil {
			records = []audit.Record{}
		}
		return writeJSON(cmd.OutOrStdout(), records)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No audit events found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTYPE\tUSER\tPATIENT\tSEVERITY")
	for _, r := range records {
		sev := "-"
		if r.ViolationSeverity != nil {
			sev = string(*r.ViolationSeverity)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, formatTime(r.Timestamp), r.EventType, r.UserID, orDash(r.PatientID), sev)
	}
	return w.Flush()
}

// listStored reads the SQLite store. The nil run id is never used to write.
func listStored(cmd *cobra.Command, path string, f sqlite.Filter, limit int) ([]audit.Event, error) {
	store, err := sqlite.Open(cmd.Context(), path, uuid.Nil)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.List(cmd.Context(), f, limit)
}

func sortedKeys(m map[string]int) []string {
	return slices.Sorted(maps.Keys(m))
}
