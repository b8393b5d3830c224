package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hive/pkg/models"
)

var schedulesDue bool

var schedulesCmd = &cobra.Command{
	Use:   "schedules [agent-id]",
	Short: "Show execution schedules",
	Long: `Show agent execution schedules.

With an agent id, lists that agent's schedules. Without one, lists
every enabled schedule in the hive. With --due, only the schedules
ready to run right now (reactive schedules are never due; they wait
for new tasks or messages).

Examples:
  hive schedules                     # All enabled schedules
  hive schedules worker-2026030112   # One agent's schedules
  hive schedules --due               # What would run now`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchedules,
}

func init() {
	schedulesCmd.Flags().BoolVar(&schedulesDue, "due", false, "Only schedules due right now")
}

func runSchedules(cmd *cobra.Command, args []string) error {
	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	var scheds []*models.Schedule
	switch {
	case schedulesDue:
		scheds, err = env.orch.Schedules().Due(time.Now().UTC())
	case len(args) == 1:
		if _, err := env.orch.Registry().RequireAgent(args[0]); err != nil {
			return err
		}
		scheds, err = env.orch.Schedules().List(args[0])
	default:
		scheds, err = env.orch.Schedules().ListEnabled()
	}
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}

	if len(scheds) == 0 {
		if schedulesDue {
			fmt.Println("Nothing is due right now.")
		} else {
			fmt.Println("No schedules.")
		}
		return nil
	}

	fmt.Printf("%-38s %-22s %-11s %-8s %s\n", "ID", "AGENT", "TRIGGER", "ENABLED", "DETAIL")
	for _, s := range scheds {
		fmt.Printf("%-38s %-22s %-11s %-8t %s\n", s.ID, s.AgentID, s.TriggerType, s.Enabled, scheduleDetail(s))
	}
	return nil
}

// scheduleDetail summarizes the trigger-specific fields of a schedule.
func scheduleDetail(s *models.Schedule) string {
	switch s.TriggerType {
	case models.TriggerCron:
		detail := s.CronExpression
		if s.NextExecutionAt != nil {
			detail += " (next " + s.NextExecutionAt.Format("2006-01-02 15:04") + ")"
		}
		return detail
	case models.TriggerContinuous:
		detail := fmt.Sprintf("at most every %ds", s.MinimumIntervalSeconds)
		if s.LastTriggeredAt != nil {
			detail += " (last " + s.LastTriggeredAt.Format("2006-01-02 15:04") + ")"
		}
		return detail
	default:
		return s.Description
	}
}
