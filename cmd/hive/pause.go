package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	pauseActor  string
	resumeActor string
)

var pauseCmd = &cobra.Command{
	Use:   "pause <agent-id>",
	Short: "Pause an active agent",
	Long: `Pause an active agent.

Pausing blocks the agent's live tasks, notifies the agent and its
manager, and records the action in the audit log. A paused agent keeps
its place in the hierarchy and can be resumed later.

Examples:
  hive pause worker-20260301120000
  hive pause worker-20260301120000 --actor queen-20260228090000`,
	Args: cobra.ExactArgs(1),
	RunE: runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume <agent-id>",
	Short: "Resume a paused agent",
	Long: `Resume a paused agent.

Tasks that were blocked by the pause go back to pending unless they
still wait on an unfinished blocker. The agent and its manager are
notified and the action lands in the audit log.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	pauseCmd.Flags().StringVar(&pauseActor, "actor", "", "Agent id performing the pause (defaults to system)")
	resumeCmd.Flags().StringVar(&resumeActor, "actor", "", "Agent id performing the resume (defaults to system)")
}

func runPause(cmd *cobra.Command, args []string) error {
	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.orch.PauseAgent(args[0], actorPtr(pauseActor))
	if err != nil {
		return err
	}

	fmt.Printf("%s Paused %s\n", color.GreenString("✓"), res.AgentID)
	fmt.Printf("  Tasks blocked:  %d of %d\n", res.TasksBlocked.Blocked, res.TasksBlocked.TotalTasks)
	fmt.Printf("  Notifications:  %d sent\n", res.NotificationsSent)
	return nil
}

func runResume(cmd *cobra.Command, args []string) error {
	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.orch.ResumeAgent(args[0], actorPtr(resumeActor))
	if err != nil {
		return err
	}

	fmt.Printf("%s Resumed %s\n", color.GreenString("✓"), res.AgentID)
	fmt.Printf("  Tasks unblocked: %d (%d still waiting on blockers)\n",
		res.TasksUnblocked.Unblocked, res.TasksUnblocked.StillBlocked)
	fmt.Printf("  Notifications:   %d sent\n", res.NotificationsSent)
	return nil
}

// actorPtr turns an optional --actor flag into the nil-able actor id
// the lifecycle API takes.
func actorPtr(actor string) *string {
	if actor == "" {
		return nil
	}
	return &actor
}
