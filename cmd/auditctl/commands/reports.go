package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pedcare/internal/compliance/handler"
	audit "pedcare/pkg/platform/audit"
)

func SummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "summary",
		Short:        "Show compliance status and violation counts",
		Args:         cobra.NoArgs,
		RunE:         runSummary,
		SilenceUsage: true,
	}
}

func runSummary(cmd *cobra.Command, args []string) error {
	client, err := clientFromFlags(cmd)
	if err != nil {
		return err
	}
	var resp handler.SummaryResponse
	if err := client.get(cmd.Context(), "/compliance/summary", nil, &resp); err != nil {
		return err
	}
	if asJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), resp)
	}

	s := resp.Summary
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "STATUS\t%s\n", resp.ComplianceStatus)
	fmt.Fprintf(w, "EVENTS\t%d (%d today)\n", s.TotalEvents, s.TodayEvents)
	fmt.Fprintf(w, "VIOLATIONS\t%d (%d today)\n", s.TotalViolations, s.TodayViolations)
	for _, sev := range []audit.Severity{audit.SeverityCritical, audit.SeverityHigh, audit.SeverityMedium, audit.SeverityLow} {
		fmt.Fprintf(w, "  %s\t%d\n", sev, s.ViolationsBySeverity[sev])
	}
	fmt.Fprintf(w, "USERS TODAY\t%d\n", s.UniqueUsersToday)
	fmt.Fprintf(w, "UPDATED\t%s\n", resp.LastUpdated.Local().Format(time.DateTime))
	return w.Flush()
}

func ViolationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "violations",
		Short: "List recorded violations",
		Long: `List recorded violations, most recent first.

Examples:
  auditctl violations
  auditctl violations --severity high --limit 10`,
		Args:         cobra.NoArgs,
		RunE:         runViolations,
		SilenceUsage: true,
	}
	cmd.Flags().String("severity", "", "Only show one severity: low, medium, high or critical")
	cmd.Flags().Int("limit", 50, "Maximum number of violations")
	return cmd
}

func runViolations(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	severity, _ := cmd.Flags().GetString("severity")
	if severity != "" {
		if _, err := audit.ParseSeverity(severity); err != nil {
			return err
		}
	}

	client, err := clientFromFlags(cmd)
	if err != nil {
		return err
	}
	q := limitQuery(limit)
	if severity != "" {
		q.Set("severity", severity)
	}
	var resp handler.ViolationsResponse
	if err := client.get(cmd.Context(), "/compliance/violations", q, &resp); err != nil {
		return err
	}
	if asJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	if resp.Total == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No violations found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTYPE\tUSER\tPATIENT\tSEVERITY\tREASON")
	for _, v := range resp.Violations {
		sev := "-"
		if v.Severity != nil {
			sev = string(*v.Severity)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, formatTime(v.Timestamp), v.EventType, v.UserEmail, orDash(v.PatientID), sev, orDash(v.Reason))
	}
	return w.Flush()
}

func PatientCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "patient <patient-id>",
		Short:        "Show who accessed a patient's records",
		Args:         cobra.ExactArgs(1),
		RunE:         runPatient,
		SilenceUsage: true,
	}
	cmd.Flags().Int("limit", 50, "Maximum number of access events")
	return cmd
}

func runPatient(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	client, err := clientFromFlags(cmd)
	if err != nil {
		return err
	}
	var resp handler.PatientAccessResponse
	if err := client.get(cmd.Context(), "/compliance/patient/"+args[0]+"/access-log", limitQuery(limit), &resp); err != nil {
		return err
	}
	if asJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), resp)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTYPE\tUSER\tROLE\tVIOLATION")
	for _, e := range resp.AccessEvents {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, formatTime(e.Timestamp), e.EventType, e.UserEmail, e.UserRole, orDash(e.ViolationReason))
	}
	return w.Flush()
}

func UserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user <user-id>",
		Short: "Show a user's recent activity",
		Long: `Show a user's recent activity, or with --daily their PHI accesses per day.

Examples:
  auditctl user doctor-1
  auditctl user doctor-1 --daily`,
		Args:         cobra.ExactArgs(1),
		RunE:         runUser,
		SilenceUsage: true,
	}
	cmd.Flags().Int("limit", 50, "Maximum number of activity events")
	cmd.Flags().Bool("daily", false, "Show daily PHI access counts instead")
	return cmd
}

func runUser(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	daily, _ := cmd.Flags().GetBool("daily")
	client, err := clientFromFlags(cmd)
	if err != nil {
		return err
	}
	userPath := "/compliance/user/" + args[0]

	if daily {
		var resp handler.DailyAccessResponse
		if err := client.get(cmd.Context(), userPath+"/daily-access", nil, &resp); err != nil {
			return err
		}
		if asJSON(cmd) {
			return writeJSON(cmd.OutOrStdout(), resp)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DAY\tPHI ACCESSES")
		for _, day := range sortedKeys(resp.DailyAccess) {
			fmt.Fprintf(w, "%s\t%d\n", day, resp.DailyAccess[day])
		}
		fmt.Fprintf(w, "TOTAL\t%d\n", resp.Total)
		return w.Flush()
	}

	var resp handler.UserActivityResponse
	if err := client.get(cmd.Context(), userPath+"/activity", limitQuery(limit), &resp); err != nil {
		return err
	}
	if asJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTYPE\tRESOURCE\tPATIENT\tVIOLATION")
	for _, a := range resp.Activity {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s:%s\t%s\t%t\n",
			a.ID, formatTime(a.Timestamp), a.EventType, a.ResourceType, orDash(a.ResourceID), orDash(a.PatientID), a.IsViolation)
	}
	return w.Flush()
}

func DemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "demo",
		Short:        "Record the sample audit scenario on the server",
		Args:         cobra.NoArgs,
		RunE:         runDemo,
		SilenceUsage: true,
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	client, err := clientFromFlags(cmd)
	if err != nil {
		return err
	}
	var resp handler.SampleEventsResponse
	if err := client.post(cmd.Context(), "/compliance/demo/generate-sample-events", &resp); err != nil {
		return err
	}
	if asJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d events, %d violations\n",
		resp.Message, resp.Stats.TotalEvents, resp.Stats.TotalViolations)
	return nil
}

func asJSON(cmd *cobra.Command) bool {
	output, _ := cmd.Flags().GetString("output")
	return output == "json"
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func formatTime(t time.Time) string {
	return t.Local().Format(time.DateTime)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
