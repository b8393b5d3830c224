package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/hive/internal/messaging"
	"github.com/ShayCichocki/hive/internal/watcher"
	"github.com/ShayCichocki/hive/pkg/models"
)

var (
	inboxUnread bool
	inboxWatch  bool
)

var inboxCmd = &cobra.Command{
	Use:   "inbox <agent-id>",
	Short: "Show an agent's inbox",
	Long: `Show the messages in an agent's inbox.

By default lists what is already there, unread first. With --watch,
stays attached to the inbox directory and prints each message as it
arrives, until interrupted.

Examples:
  hive inbox worker-20260301120000
  hive inbox worker-20260301120000 --unread
  hive inbox worker-20260301120000 --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runInbox,
}

func init() {
	inboxCmd.Flags().BoolVar(&inboxUnread, "unread", false, "Only unread messages")
	inboxCmd.Flags().BoolVar(&inboxWatch, "watch", false, "Stream new messages as they arrive")
}

func runInbox(cmd *cobra.Command, args []string) error {
	env, err := openHive()
	if err != nil {
		return err
	}
	defer env.Close()

	agentID := args[0]
	if _, err := env.orch.Registry().RequireAgent(agentID); err != nil {
		return err
	}

	if inboxWatch {
		return watchInbox(env, agentID)
	}

	msgs, err := env.orch.Messages().ListInbox(agentID, inboxUnread)
	if err != nil {
		return fmt.Errorf("list inbox: %w", err)
	}

	if len(msgs) == 0 {
		fmt.Printf("Inbox of %s is empty.\n", agentID)
		return nil
	}

	fmt.Printf("Inbox of %s (%d messages):\n\n", agentID, len(msgs))
	for _, m := range msgs {
		printMessageLine(m)
	}
	return nil
}

func watchInbox(env *hiveEnv, agentID string) error {
	w, err := watcher.NewInboxWatcher(env.orch.Resolver(), agentID)
	if err != nil {
		return fmt.Errorf("watch inbox: %w", err)
	}
	defer w.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", w.Dir())

	for {
		select {
		case path, ok := <-w.Events():
			if !ok {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Printf("  new message at %s (unreadable: %v)\n", path, err)
				continue
			}
			msg, err := messaging.ParseMessageFile(data)
			if err != nil {
				fmt.Printf("  new message at %s (unparseable: %v)\n", path, err)
				continue
			}
			printMessageLine(msg)
		case <-sig:
			fmt.Println()
			return nil
		}
	}
}

func printMessageLine(m *models.Message) {
	marker := " "
	if !m.Read {
		marker = "*"
	}
	suffix := ""
	if m.ActionRequired {
		suffix = " (action required)"
	}
	fmt.Printf("%s [%-6s] %s  %s: %s%s\n",
		marker, m.Priority, m.Timestamp.Format("2006-01-02 15:04"), m.From, m.Subject, suffix)
}
