package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hive/internal/store"
	"github.com/ShayCichocki/hive/pkg/models"
)

var (
	auditAgent  string
	auditTarget string
	auditAction string
	auditLimit  int
	auditJSON   bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit log",
	Long: `Show recent audit events, newest first.

Every lifecycle and task operation appends a row here, failed attempts
included; the log itself is append-only. Filters narrow by the acting
agent, the target agent, or the action name.

Output formats:
  - Human-readable (default): one line per event
  - JSON (--json flag): machine-readable structured output

Examples:
  hive audit                          # Last 20 events
  hive audit --agent queen-2026       # Everything queen did
  hive audit --action HIRE --limit 5  # Recent hires
  hive audit --json | jq '.[].action' # Feed into tooling`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditAgent, "agent", "", "Filter by acting agent id")
	auditCmd.Flags().StringVar(&auditTarget, "target", "", "Filter by target agent id")
	auditCmd.Flags().StringVar(&auditAction, "action", "", "Filter by action, e.g. HIRE or TASK_COMPLETE")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "Maximum number of events")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Output in JSON format")
}

func runAudit(cmd *cobra.Command, args []string) error {
	action := models.AuditAction(strings.ToUpper(auditAction))
	if auditAction != "" && !action.Valid() {
		return fmt.Errorf("unknown action %q", auditAction)
	}

	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	events, err := env.db.ListAuditEvents(store.AuditFilter{
		AgentID:       auditAgent,
		TargetAgentID: auditTarget,
		Action:        action,
		Limit:         auditLimit,
	})
	if err != nil {
		return fmt.Errorf("list audit events: %w", err)
	}

	if auditJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(events)
	}

	if len(events) == 0 {
		fmt.Println("No audit events match.")
		return nil
	}

	for _, e := range events {
		fmt.Println(formatAuditLine(e))
	}
	return nil
}

// formatAuditLine renders one audit event as a single line.
func formatAuditLine(e *models.AuditEvent) string {
	actor := "system"
	if e.AgentID != nil {
		actor = *e.AgentID
	}

	outcome := "ok"
	if !e.Success {
		outcome = "FAILED"
	}

	line := fmt.Sprintf("%s  %-16s %-7s %s",
		e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, outcome, actor)
	if e.TargetAgentID != nil {
		line += " -> " + *e.TargetAgentID
	}
	if len(e.Details) > 0 {
		if data, err := json.Marshal(e.Details); err == nil {
			line += "  " + string(data)
		}
	}
	return line
}
