package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pogona-hunter/arena-form/internal/audit"
)

var (
	auditTypes    []string
	auditSeverity []string
	auditDocument string
	auditRun      string
	auditSince    time.Duration
	auditLimit    int
	auditJSON     bool
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Search the audit trail",
	Long: `Print the events of the audit trail written by earlier commands.

The trail is read from the audit file of the config. Rotated files are not
searched. Reading the trail does not add events to it.

Examples:
  # Keys dropped while normalizing one document
  arena-form audit --type KEY_SKIPPED --document exp.json

  # Everything that went wrong in the last day
  arena-form audit --severity ERROR --since 24h`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringSliceVar(&auditTypes, "type", nil, "event types to show, e.g. CONFIG_READ,KEY_SKIPPED")
	auditCmd.Flags().StringSliceVar(&auditSeverity, "severity", nil, "severities to show, e.g. WARNING,ERROR")
	auditCmd.Flags().StringVar(&auditDocument, "document", "", "only events about this document")
	auditCmd.Flags().StringVar(&auditRun, "run", "", "only events of this run id")
	auditCmd.Flags().DurationVar(&auditSince, "since", 0, "only events newer than this")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "show at most this many events")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print events as JSON")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	file := auditFile(cfg)
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no audit trail at %s (enable audit in the config)", file)
	}

	query := audit.Query{RunID: auditRun, Limit: auditLimit}
	for _, t := range auditTypes {
		query.EventTypes = append(query.EventTypes, audit.EventType(strings.ToUpper(t)))
	}
	for _, s := range auditSeverity {
		query.Severities = append(query.Severities, audit.Severity(strings.ToUpper(s)))
	}
	if auditDocument != "" {
		query.Documents = []string{auditDocument}
	}
	if auditSince > 0 {
		query.StartTime = time.Now().Add(-auditSince)
	}

	events, err := audit.SearchFile(file, query)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if auditJSON {
		if events == nil {
			events = []*audit.AuditEvent{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}

	if len(events) == 0 {
		notifier(cmd.ErrOrStderr()).DisplayInfo("No matching audit events")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tSEVERITY\tDOCUMENT\tPATH\tRESULT")
	fmt.Fprintln(w, "----\t----\t--------\t--------\t----\t------")
	for _, e := range events {
		result := e.Result
		if e.Error != "" {
			result += ": " + e.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Type, e.Severity, dash(e.Document), dash(e.Path), result)
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
