package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hive/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the whole hive at a glance",
	Long: `Display an overview of the hive.

Shows:
  - Agent counts by lifecycle status
  - The org chart with per-agent task counts
  - Which schedules would run right now`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	chart, err := env.orch.Registry().GetOrgChart()
	if err != nil {
		return fmt.Errorf("get org chart: %w", err)
	}

	fmt.Printf("Hive: %s\n", env.cfg.Data.Dir)

	if len(chart) == 0 {
		fmt.Println("  No agents yet. Run 'hive hire --role <role>' to hire the first one.")
		return nil
	}

	counts := map[models.AgentStatus]int{}
	for _, entry := range chart {
		counts[entry.Agent.Status]++
	}
	fmt.Printf("  Agents: %d (%d active, %d paused, %d fired)\n\n",
		len(chart), counts[models.AgentStatusActive], counts[models.AgentStatusPaused], counts[models.AgentStatusFired])

	fmt.Println("Org chart:")
	for _, entry := range chart {
		fmt.Println(statusLine(env, entry.Agent, entry.Depth))
	}

	due, err := env.orch.Schedules().Due(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("check due schedules: %w", err)
	}
	fmt.Printf("\nSchedules due now: %d\n", len(due))

	return nil
}

// statusLine renders one org chart row with task counts and recency.
func statusLine(env *hiveEnv, a *models.Agent, depth int) string {
	indent := strings.Repeat("  ", depth+1)
	line := fmt.Sprintf("%s%s (%s) [%s]", indent, a.Role, a.ID, a.Status)

	active, err := env.orch.Engine().GetActiveTasks(a.ID)
	if err == nil && len(active) > 0 {
		blocked := 0
		for _, t := range active {
			if t.Status == models.TaskStatusBlocked {
				blocked++
			}
		}
		line += fmt.Sprintf("  %d live tasks", len(active))
		if blocked > 0 {
			line += fmt.Sprintf(" (%d blocked)", blocked)
		}
	}

	if a.LastExecutionAt != nil {
		line += fmt.Sprintf("  last ran %s ago", formatDuration(time.Since(*a.LastExecutionAt)))
	}
	return line
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}
