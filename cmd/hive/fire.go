package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var fireActor string

var fireCmd = &cobra.Command{
	Use:   "fire <agent-id>",
	Short: "Terminate an agent",
	Long: `Terminate an agent.

Firing is terminal: the agent's status becomes fired and cannot change
again. Its remaining live tasks are blocked so a manager can re-delegate
them, its manager is notified, and the agent's rows and hierarchy
entries are retained for the audit trail.`,
	Args: cobra.ExactArgs(1),
	RunE: runFire,
}

func init() {
	fireCmd.Flags().StringVar(&fireActor, "actor", "", "Agent id performing the fire (defaults to system)")
}

func runFire(cmd *cobra.Command, args []string) error {
	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.orch.FireAgent(args[0], actorPtr(fireActor))
	if err != nil {
		return err
	}

	fmt.Printf("%s Fired %s\n", color.GreenString("✓"), res.AgentID)
	if res.TasksBlocked != nil && res.TasksBlocked.TotalTasks > 0 {
		fmt.Printf("  Tasks blocked for re-delegation: %d of %d\n",
			res.TasksBlocked.Blocked+res.TasksBlocked.AlreadyBlocked, res.TasksBlocked.TotalTasks)
	}
	return nil
}
