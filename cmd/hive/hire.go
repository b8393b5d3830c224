package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hive/internal/agentconfig"
	"github.com/ShayCichocki/hive/internal/lifecycle"
)

var (
	hireManager    string
	hireRole       string
	hireGoal       string
	hireName       string
	hireConfigPath string
)

var hireCmd = &cobra.Command{
	Use:   "hire",
	Short: "Hire a new agent into the hierarchy",
	Long: `Hire a new agent, either as a root (no --manager) or reporting to an
existing manager.

By default the agent's configuration is generated from --role and
--goal. Pass --config to supply a full config.json instead; its
reportingTo field is overwritten with --manager so the file cannot
contradict the command line.

The hire is validated against the manager's permissions: canHire,
maxSubordinates, remaining hiring budget, and the hierarchy depth
limit. Every attempt lands in the audit log, rejected ones included.

Examples:
  hive hire --role queen --goal "coordinate the organization"
  hive hire --manager queen-20260301120000 --role researcher --goal "survey the field"
  hive hire --manager queen-20260301120000 --config ./drone.json`,
	Args: cobra.NoArgs,
	RunE: runHire,
}

func init() {
	hireCmd.Flags().StringVar(&hireManager, "manager", "", "Manager agent id (omit to hire a root agent)")
	hireCmd.Flags().StringVar(&hireRole, "role", "", "Role of the new agent, e.g. researcher")
	hireCmd.Flags().StringVar(&hireGoal, "goal", "", "The agent's standing objective")
	hireCmd.Flags().StringVar(&hireName, "name", "", "Display name (defaults to the role)")
	hireCmd.Flags().StringVar(&hireConfigPath, "config", "", "Path to a full agent config.json")
}

func runHire(cmd *cobra.Command, args []string) error {
	if hireRole == "" && hireConfigPath == "" {
		return fmt.Errorf("either --role or --config is required")
	}

	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	cfg, err := buildHireConfig()
	if err != nil {
		return err
	}

	var managerID *string
	if hireManager != "" {
		managerID = &hireManager
	}

	res, err := env.orch.HireAgent(managerID, cfg)
	if err != nil {
		var hireErr *lifecycle.HireError
		if errors.As(err, &hireErr) {
			// The agent row committed before the filesystem step failed,
			// so the hire is half-done rather than rolled back.
			printStatus("⚠", fmt.Sprintf("Agent %s is registered but its directory is incomplete", hireErr.AgentID), color.FgYellow)
			return err
		}
		return err
	}

	reporting := "none (root agent)"
	if res.Agent.ReportingTo != nil {
		reporting = *res.Agent.ReportingTo
	}

	fmt.Printf("%s Hired %s\n\n", color.GreenString("✓"), res.Agent.ID)
	fmt.Println("Agent details:")
	fmt.Printf("  ID:          %s\n", res.Agent.ID)
	fmt.Printf("  Role:        %s\n", res.Agent.Role)
	fmt.Printf("  Reports to:  %s\n", reporting)
	fmt.Printf("  Directory:   %s\n", res.AgentDir)
	fmt.Printf("  Schedule:    %s (enabled)\n", res.Schedule.TriggerType)

	return nil
}

// buildHireConfig assembles the new agent's config from --config or
// from the --role/--goal/--name flags.
func buildHireConfig() (*agentconfig.AgentConfig, error) {
	if hireConfigPath != "" {
		data, err := os.ReadFile(hireConfigPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		cfg, err := agentconfig.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", hireConfigPath, err)
		}
		return cfg, nil
	}

	createdBy := "system"
	if hireManager != "" {
		createdBy = hireManager
	}

	cfg, err := agentconfig.GenerateDefault(hireRole, hireGoal, createdBy, nil)
	if err != nil {
		return nil, fmt.Errorf("generating config: %w", err)
	}
	if hireName != "" {
		cfg.Identity.DisplayName = hireName
	}
	return cfg, nil
}
