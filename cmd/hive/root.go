package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hive/internal/agentdir"
	"github.com/ShayCichocki/hive/internal/config"
	"github.com/ShayCichocki/hive/internal/lifecycle"
	"github.com/ShayCichocki/hive/internal/logging"
	"github.com/ShayCichocki/hive/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "hive",
	Short: "Persistent control plane for hierarchical agent organizations",
	Long: `Hive is the control plane for a hierarchy of autonomous agents.

It keeps the durable state agents share between runs: who reports to
whom, each agent's task queue, the messages waiting in their inboxes,
their execution schedules, and an append-only audit trail of every
lifecycle and task action.

Typical flow:
  hive init                                    # create the data directory and database
  hive hire --role queen --goal "run the org"  # hire a root agent
  hive hire --manager <queen-id> --role worker # grow the hierarchy
  hive tasks create --agent <id> --title "..." # queue work
  hive status                                  # see the whole hive at a glance`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(hireCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(fireCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(inboxCmd)
	rootCmd.AddCommand(schedulesCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// hiveEnv bundles the opened control plane for one command invocation.
type hiveEnv struct {
	cfg  *config.Config
	db   *store.DB
	orch *lifecycle.Orchestrator
}

func (e *hiveEnv) Close() {
	if err := e.db.Close(); err != nil {
		log := logging.WithComponent("cli")
		log.Warn().Err(err).Msg("closing database")
	}
}

// openHive loads config, initializes logging, and opens the database.
// It refuses to run against a data directory that was never initialized
// so commands fail with a pointer to 'hive init' instead of silently
// creating an empty database somewhere surprising.
func openHive() (*hiveEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:      logging.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})

	if _, err := os.Stat(cfg.DBPath()); os.IsNotExist(err) {
		return nil, fmt.Errorf("hive is not initialized (no database at %s)\nRun 'hive init' first", cfg.DBPath())
	}

	db, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	orch := lifecycle.New(db, agentdir.NewResolver(cfg.Data.Dir))
	return &hiveEnv{cfg: cfg, db: db, orch: orch}, nil
}
