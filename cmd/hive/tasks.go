package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hive/internal/taskengine"
	"github.com/ShayCichocki/hive/pkg/models"
)

var (
	tasksListAgent   string
	tasksListBlocked bool

	tasksCreateAgent     string
	tasksCreateTitle     string
	tasksCreatePriority  string
	tasksCreateParent    string
	tasksCreateBlockedBy []string
	tasksCreatePath      string

	tasksCompleteVersion int
	tasksProgressVersion int
	tasksDelegateVersion int
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage agent task queues",
	Long: `Inspect and mutate agent task queues.

Every mutation goes through optimistic locking: pass --version to
assert the version you read, or omit it to act on the current one.
Progress rolls up automatically; completing a subtask updates its
parent's percentage and can cascade completion notifications up the
reporting chain.`,
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an agent's live tasks",
	Long: `List an agent's pending, in-progress and blocked tasks, most urgent
first. With --blocked, only the blocked ones.`,
	Args: cobra.NoArgs,
	RunE: runTasksList,
}

var tasksCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task",
	Long: `Create a task in an agent's queue.

Subtasks (--parent) inherit their place in the tree and bump the
parent's subtask counters. Dependencies (--blocked-by) must name live
tasks; a task created with dependencies starts out blocked.

Examples:
  hive tasks create --agent worker-1 --title "Survey the field" --priority high
  hive tasks create --agent worker-1 --title "Write summary" --blocked-by task-1-survey`,
	Args: cobra.NoArgs,
	RunE: runTasksCreate,
}

var tasksCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Complete a task",
	Long: `Mark a task completed.

Parent progress is recomputed up the tree, and the owning agent's
manager is notified when its config asks for completion notifications.`,
	Args: cobra.ExactArgs(1),
	RunE: runTasksComplete,
}

var tasksProgressCmd = &cobra.Command{
	Use:   "progress <task-id> <percent>",
	Short: "Update a task's progress percentage",
	Args:  cobra.ExactArgs(2),
	RunE:  runTasksProgress,
}

var tasksDelegateCmd = &cobra.Command{
	Use:   "delegate <task-id> <agent-id>",
	Short: "Delegate a task to a subordinate",
	Long: `Delegate a task to a subordinate of the task's owner.

The delegatee gets an action-required message in its inbox. Delegating
a task to the agent it is already delegated to is a no-op.`,
	Args: cobra.ExactArgs(2),
	RunE: runTasksDelegate,
}

func init() {
	tasksListCmd.Flags().StringVar(&tasksListAgent, "agent", "", "Agent whose tasks to list (required)")
	tasksListCmd.Flags().BoolVar(&tasksListBlocked, "blocked", false, "Only blocked tasks")
	_ = tasksListCmd.MarkFlagRequired("agent")

	tasksCreateCmd.Flags().StringVar(&tasksCreateAgent, "agent", "", "Owning agent id (required)")
	tasksCreateCmd.Flags().StringVar(&tasksCreateTitle, "title", "", "Task title (required)")
	tasksCreateCmd.Flags().StringVar(&tasksCreatePriority, "priority", "medium", "Priority: urgent, high, medium or low")
	tasksCreateCmd.Flags().StringVar(&tasksCreateParent, "parent", "", "Parent task id (makes this a subtask)")
	tasksCreateCmd.Flags().StringSliceVar(&tasksCreateBlockedBy, "blocked-by", nil, "Task ids this task waits on")
	tasksCreateCmd.Flags().StringVar(&tasksCreatePath, "path", "", "Artifact directory relative to the agent")
	_ = tasksCreateCmd.MarkFlagRequired("agent")
	_ = tasksCreateCmd.MarkFlagRequired("title")

	tasksCompleteCmd.Flags().IntVar(&tasksCompleteVersion, "version", -1, "Expected task version (defaults to current)")
	tasksProgressCmd.Flags().IntVar(&tasksProgressVersion, "version", -1, "Expected task version (defaults to current)")
	tasksDelegateCmd.Flags().IntVar(&tasksDelegateVersion, "version", -1, "Expected task version (defaults to current)")

	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksCreateCmd)
	tasksCmd.AddCommand(tasksCompleteCmd)
	tasksCmd.AddCommand(tasksProgressCmd)
	tasksCmd.AddCommand(tasksDelegateCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	if _, err := env.orch.Registry().RequireAgent(tasksListAgent); err != nil {
		return err
	}

	var tasks []*models.Task
	if tasksListBlocked {
		tasks, err = env.orch.Engine().GetBlockedTasks(tasksListAgent)
	} else {
		tasks, err = env.orch.Engine().GetActiveTasks(tasksListAgent)
	}
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	if len(tasks) == 0 {
		fmt.Printf("No live tasks for %s.\n", tasksListAgent)
		return nil
	}

	fmt.Printf("%-32s %-12s %-8s %4s  %s\n", "ID", "STATUS", "PRIORITY", "%", "TITLE")
	for _, t := range tasks {
		fmt.Printf("%-32s %-12s %-8s %3d%%  %s\n", t.ID, t.Status, t.Priority, t.PercentComplete, t.Title)
		if t.Status == models.TaskStatusBlocked && len(t.BlockedBy) > 0 {
			fmt.Printf("%-32s   waiting on: %s\n", "", strings.Join(t.BlockedBy, ", "))
		}
		if t.DelegatedTo != nil {
			fmt.Printf("%-32s   delegated to: %s\n", "", *t.DelegatedTo)
		}
	}

	return nil
}

func runTasksCreate(cmd *cobra.Command, args []string) error {
	priority := models.TaskPriority(tasksCreatePriority)
	if !priority.Valid() {
		return fmt.Errorf("invalid priority %q (want urgent, high, medium or low)", tasksCreatePriority)
	}

	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	input := taskengine.CreateTaskInput{
		AgentID:   tasksCreateAgent,
		Title:     tasksCreateTitle,
		Priority:  priority,
		BlockedBy: tasksCreateBlockedBy,
		TaskPath:  tasksCreatePath,
	}
	if tasksCreateParent != "" {
		input.ParentTaskID = &tasksCreateParent
	}

	task, err := env.orch.Engine().CreateTask(input)
	if err != nil {
		return err
	}

	fmt.Printf("%s Created %s\n", color.GreenString("✓"), task.ID)
	fmt.Printf("  Status:   %s\n", task.Status)
	fmt.Printf("  Priority: %s\n", task.Priority)
	if task.ParentTaskID != nil {
		fmt.Printf("  Parent:   %s (depth %d)\n", *task.ParentTaskID, task.Depth)
	}
	if len(task.BlockedBy) > 0 {
		fmt.Printf("  Waiting on: %s\n", strings.Join(task.BlockedBy, ", "))
	}
	return nil
}

func runTasksComplete(cmd *cobra.Command, args []string) error {
	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	version, err := resolveVersion(env, args[0], tasksCompleteVersion)
	if err != nil {
		return err
	}

	task, err := env.orch.Engine().CompleteTask(args[0], version)
	if err != nil {
		return err
	}

	fmt.Printf("%s Completed %s\n", color.GreenString("✓"), task.ID)

	// The completion itself is already committed; a notification
	// failure downgrades to a warning.
	msg, err := env.orch.NotifyTaskCompletion(task, false)
	if err != nil {
		printStatus("⚠", fmt.Sprintf("Could not notify manager: %v", err), color.FgYellow)
		return nil
	}
	if msg != nil {
		fmt.Printf("  Manager %s notified\n", msg.To)
	}
	return nil
}

func runTasksProgress(cmd *cobra.Command, args []string) error {
	percent, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid percent %q: %w", args[1], err)
	}

	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	version, err := resolveVersion(env, args[0], tasksProgressVersion)
	if err != nil {
		return err
	}

	task, err := env.orch.Engine().UpdateTaskProgress(args[0], percent, version)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s is now %d%% complete (%s)\n", color.GreenString("✓"), task.ID, task.PercentComplete, task.Status)
	return nil
}

func runTasksDelegate(cmd *cobra.Command, args []string) error {
	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	var version *int
	if tasksDelegateVersion >= 0 {
		version = &tasksDelegateVersion
	}

	task, err := env.orch.DelegateTask(args[0], args[1], version)
	if err != nil {
		return err
	}

	fmt.Printf("%s Delegated %s to %s\n", color.GreenString("✓"), task.ID, args[1])
	return nil
}

// resolveVersion returns the version to assert for a mutation: the
// --version flag when given, otherwise the task's current version.
func resolveVersion(env *hiveEnv, taskID string, flagVersion int) (int, error) {
	if flagVersion >= 0 {
		return flagVersion, nil
	}
	task, err := env.orch.Engine().GetTask(taskID)
	if err != nil {
		return 0, err
	}
	return task.Version, nil
}
