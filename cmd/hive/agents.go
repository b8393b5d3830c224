package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var agentsSubordinatesOf string

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Show the agent hierarchy",
	Long: `Display the agents registered in the hive.

Without flags, prints the full org chart as an indented tree, roots
first. With --subordinates, lists the direct reports of one manager.

Fired agents stay in the chart; the hierarchy is append-only history,
not just the live org.

Examples:
  hive agents                          # Full org chart
  hive agents --subordinates <id>      # Direct reports of one manager`,
	Args: cobra.NoArgs,
	RunE: runAgents,
}

func init() {
	agentsCmd.Flags().StringVar(&agentsSubordinatesOf, "subordinates", "", "List direct reports of this agent")
}

func runAgents(cmd *cobra.Command, args []string) error {
	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	if agentsSubordinatesOf != "" {
		return listSubordinates(env, agentsSubordinatesOf)
	}

	chart, err := env.orch.Registry().GetOrgChart()
	if err != nil {
		return fmt.Errorf("get org chart: %w", err)
	}

	if len(chart) == 0 {
		fmt.Println("No agents yet. Run 'hive hire --role <role>' to hire the first one.")
		return nil
	}

	fmt.Printf("Org chart (%d agents):\n\n", len(chart))
	for _, entry := range chart {
		indent := strings.Repeat("  ", entry.Depth)
		fmt.Printf("%s%s (%s) [%s]\n", indent, entry.Agent.Role, entry.Agent.ID, entry.Agent.Status)
	}

	return nil
}

func listSubordinates(env *hiveEnv, managerID string) error {
	if _, err := env.orch.Registry().RequireAgent(managerID); err != nil {
		return err
	}

	subs, err := env.orch.Registry().GetSubordinates(managerID)
	if err != nil {
		return fmt.Errorf("get subordinates: %w", err)
	}

	if len(subs) == 0 {
		fmt.Printf("%s has no direct reports.\n", managerID)
		return nil
	}

	fmt.Printf("Direct reports of %s (%d):\n\n", managerID, len(subs))
	for _, a := range subs {
		fmt.Printf("  %s (%s) [%s] hired %s\n", a.Role, a.ID, a.Status, a.CreatedAt.Format("2006-01-02"))
	}

	return nil
}
