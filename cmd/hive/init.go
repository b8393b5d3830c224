package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hive/internal/config"
	"github.com/ShayCichocki/hive/internal/logging"
	"github.com/ShayCichocki/hive/internal/store"
)

var (
	initForce   bool
	initDataDir string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the hive data directory and database",
	Long: `Initialize the hive control plane.

This command sets up everything needed to run hive:
  - Creates the data directory and the agents/ tree under it
  - Creates the SQLite database and applies the schema
  - Writes the user config file if one does not exist yet

The data directory defaults to $XDG_DATA_HOME/hive (or
~/.local/share/hive) and can be overridden with --data-dir or the
HIVE_DATA_DIR environment variable.

Examples:
  hive init                      # Initialize with defaults
  hive init --data-dir ./myhive  # Keep state in a specific directory
  hive init --force              # Reinitialize even if already set up`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "", "Override the data directory")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if initDataDir != "" {
		abs, err := filepath.Abs(initDataDir)
		if err != nil {
			return fmt.Errorf("resolving data directory: %w", err)
		}
		cfg.Data.Dir = abs
	}

	logging.Init(logging.Config{
		Level:      logging.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})

	fmt.Printf("Initializing hive in %s...\n\n", cfg.Data.Dir)

	if _, err := os.Stat(cfg.DBPath()); err == nil && !initForce {
		fmt.Println("Already initialized. Use --force to reinitialize.")
		return nil
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		printStatus("✗", "Could not create data directory", color.FgRed)
		return fmt.Errorf("creating data directory: %w", err)
	}
	printStatus("✓", "Created data directory", color.FgGreen)

	if err := os.MkdirAll(cfg.AgentsDir(), 0755); err != nil {
		printStatus("✗", "Could not create agents directory", color.FgRed)
		return fmt.Errorf("creating agents directory: %w", err)
	}
	printStatus("✓", "Created agents directory", color.FgGreen)

	db, err := store.Open(cfg.DBPath())
	if err != nil {
		printStatus("✗", "Could not open database", color.FgRed)
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		printStatus("✗", "Could not apply schema", color.FgRed)
		return fmt.Errorf("migrate database: %w", err)
	}
	printStatus("✓", "Database schema applied", color.FgGreen)

	// Persist the chosen data dir so later invocations find it without
	// the flag. Never clobber an existing user config.
	configPath := config.GetUserConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(cfg); err != nil {
			printStatus("⚠", "Could not write user config (continuing)", color.FgYellow)
		} else {
			printStatus("✓", fmt.Sprintf("Wrote config to %s", configPath), color.FgGreen)
		}
	} else if initDataDir != "" {
		printStatus("⚠", fmt.Sprintf("User config exists at %s; pass --data-dir or set HIVE_DATA_DIR on future runs", configPath), color.FgYellow)
	}

	fmt.Printf("\n%s Hive initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  1. Hire a root agent:")
	fmt.Println("     hive hire --role queen --goal \"coordinate the organization\"")
	fmt.Println()
	fmt.Println("  2. Grow the hierarchy:")
	fmt.Println("     hive hire --manager <root-id> --role worker --goal \"...\"")
	fmt.Println()
	fmt.Println("  3. Learn more:")
	fmt.Println("     hive --help")
	fmt.Println()
	fmt.Println("Hive details:")
	fmt.Printf("  Data directory: %s\n", cfg.Data.Dir)
	fmt.Printf("  Database: %s\n", cfg.DBPath())

	return nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
