package agentconfig

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/hive/internal/agentdir"
	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/internal/fsio"
	"github.com/ShayCichocki/hive/internal/logging"
)

// Service loads and saves agent configs at their canonical paths.
type Service struct {
	resolver *agentdir.Resolver
	log      zerolog.Logger
}

func NewService(resolver *agentdir.Resolver) *Service {
	return &Service{
		resolver: resolver,
		log:      logging.WithComponent("agentconfig"),
	}
}

// Load reads and decodes an agent's config.json. Missing file is
// NOT_FOUND; unreadable bytes fall back to the newest backup and fail
// CORRUPTED when none works; readable JSON that violates the schema is
// SCHEMA_INVALID. Schema problems deliberately do not trigger backup
// substitution, so a bad hand edit is reported instead of silently
// reverted.
func (s *Service) Load(agentID string) (*AgentConfig, error) {
	path := s.resolver.ConfigPath(agentID)
	data, err := fsio.SafeLoad(path, func(data []byte) error {
		if !json.Valid(data) {
			return errdefs.InvalidJSON("config for %s is not valid JSON", agentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Save validates, backs up the previous file best-effort, and
// atomically writes the pretty-printed config.
func (s *Service) Save(agentID string, cfg *AgentConfig) error {
	if err := schemaCheck(cfg); err != nil {
		return err
	}
	if err := ValidateStrict(cfg); err != nil {
		return err
	}

	path := s.resolver.ConfigPath(agentID)
	if _, err := fsio.CreateBackup(path); err != nil {
		s.log.Warn().Err(err).Str("agent_id", agentID).Str("path", path).
			Msg("config backup failed, continuing with save")
	}

	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	return fsio.AtomicWrite(path, data, fsio.WriteOptions{CreateDirs: true, Mode: 0o644})
}
