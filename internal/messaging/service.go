package messaging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/hive/internal/agentdir"
	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/internal/fsio"
	"github.com/ShayCichocki/hive/internal/logging"
	"github.com/ShayCichocki/hive/internal/store"
	"github.com/ShayCichocki/hive/pkg/models"
)

// WriteOptions controls inbox writes.
type WriteOptions struct {
	// RequireAgentDir rejects writes for agents whose directory has not
	// been scaffolded, instead of creating a stray tree.
	RequireAgentDir bool
}

// Service writes, records, and re-files inbox messages.
type Service struct {
	db       *store.DB
	resolver *agentdir.Resolver
	log      zerolog.Logger
}

func NewService(db *store.DB, resolver *agentdir.Resolver) *Service {
	return &Service{
		db:       db,
		resolver: resolver,
		log:      logging.WithComponent("messaging"),
	}
}

// WriteToInbox writes the message file into the recipient's inbox,
// unread or read per the message's flag, and returns the path. A
// missing ID or timestamp is filled in; MessagePath is set on success.
func (s *Service) WriteToInbox(msg *models.Message, opts WriteOptions) (string, error) {
	if msg.To == "" {
		return "", errdefs.SchemaInvalid("message has no recipient")
	}
	if opts.RequireAgentDir {
		if _, err := os.Stat(s.resolver.AgentDir(msg.To)); err != nil {
			if os.IsNotExist(err) {
				return "", errdefs.NotFound("agent directory for %s does not exist", msg.To)
			}
			return "", fmt.Errorf("stat agent dir for %s: %w", msg.To, err)
		}
	}
	if msg.ID == "" {
		msg.ID = GenerateMessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	if msg.Priority == "" {
		msg.Priority = models.MessagePriorityNormal
	}
	if msg.Channel == "" {
		msg.Channel = models.MessageChannelInternal
	}

	path := filepath.Join(s.resolver.InboxDir(msg.To, msg.Read), msg.ID+".md")
	err := fsio.AtomicWrite(path, FormatMessageFile(msg), fsio.WriteOptions{CreateDirs: true, Mode: 0o644})
	if err != nil {
		return "", err
	}
	msg.MessagePath = path
	return path, nil
}

// Deliver writes the message file and records the metadata row, file
// first: a message that cannot land on disk is never recorded.
func (s *Service) Deliver(msg *models.Message, opts WriteOptions) (string, error) {
	path, err := s.WriteToInbox(msg, opts)
	if err != nil {
		return "", err
	}
	if err := s.db.InsertMessage(msg); err != nil {
		return "", fmt.Errorf("record message %s: %w", msg.ID, err)
	}
	return path, nil
}

// WriteBatch writes messages in parallel. Per-message failures are
// logged as warnings and skipped; the returned slice holds the paths
// that landed, in input order. An empty batch returns nothing.
func (s *Service) WriteBatch(msgs []*models.Message, opts WriteOptions) []string {
	if len(msgs) == 0 {
		return nil
	}

	paths := make([]string, len(msgs))
	var wg sync.WaitGroup
	for i, msg := range msgs {
		wg.Add(1)
		go func(i int, msg *models.Message) {
			defer wg.Done()
			path, err := s.WriteToInbox(msg, opts)
			if err != nil {
				s.log.Warn().Err(err).Str("to", msg.To).Msg("batch message write failed")
				return
			}
			paths[i] = path
		}(i, msg)
	}
	wg.Wait()

	var written []string
	for _, p := range paths {
		if p != "" {
			written = append(written, p)
		}
	}
	return written
}

// MarkRead moves the message file from unread to read and flips the
// store flag. A message already marked read is a no-op; a file that
// was moved or deleted by hand does not block the flag flip.
func (s *Service) MarkRead(id string) error {
	msg, err := s.db.GetMessage(id)
	if err != nil {
		return err
	}
	if msg == nil {
		return errdefs.NotFound("message %s not found", id)
	}
	if msg.Read {
		return nil
	}

	oldPath := msg.MessagePath
	if oldPath == "" {
		oldPath = filepath.Join(s.resolver.InboxDir(msg.To, false), msg.ID+".md")
	}
	newPath := filepath.Join(s.resolver.InboxDir(msg.To, true), msg.ID+".md")
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("create read dir for %s: %w", msg.To, err)
	}
	if err := os.Rename(oldPath, newPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("move message file %s: %w", id, err)
	}
	return s.db.MarkMessageRead(id, newPath)
}

// ListInbox parses the agent's inbox files, newest first. The
// directory a file sits in decides its read state, regardless of the
// flag written at delivery time. Unparseable files are skipped with a
// warning so one damaged message cannot hide the rest.
func (s *Service) ListInbox(agentID string, unreadOnly bool) ([]*models.Message, error) {
	type inboxDir struct {
		path string
		read bool
	}
	dirs := []inboxDir{{s.resolver.InboxDir(agentID, false), false}}
	if !unreadOnly {
		dirs = append(dirs, inboxDir{s.resolver.InboxDir(agentID, true), true})
	}

	var msgs []*models.Message
	for _, d := range dirs {
		entries, err := os.ReadDir(d.path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read inbox dir %s: %w", d.path, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}
			path := filepath.Join(d.path, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				s.log.Warn().Err(err).Str("path", path).Msg("unreadable inbox file")
				continue
			}
			msg, err := ParseMessageFile(data)
			if err != nil {
				s.log.Warn().Err(err).Str("path", path).Msg("skipping malformed inbox file")
				continue
			}
			msg.Read = d.read
			msg.MessagePath = path
			msgs = append(msgs, msg)
		}
	}

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.After(msgs[j].Timestamp) })
	return msgs, nil
}
