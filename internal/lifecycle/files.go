package lifecycle

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/internal/fsio"
)

// SubordinateEntry is one direct hire recorded in a manager's
// subordinates/registry.json.
type SubordinateEntry struct {
	AgentID string    `json:"agentId"`
	Role    string    `json:"role"`
	HiredAt time.Time `json:"hiredAt"`
}

// SubordinatesRegistry mirrors an agent's direct hires and the hiring
// budget it has left. The DB closure stays authoritative for org
// queries; this file exists for the agent's own workspace.
type SubordinatesRegistry struct {
	Subordinates          []SubordinateEntry `json:"subordinates"`
	HiringBudgetRemaining int                `json:"hiringBudgetRemaining"`
}

// AgentMetadata is the metadata.json document: execution counters
// mirrored from the store for workspace consumers.
type AgentMetadata struct {
	AgentID             string     `json:"agentId"`
	CreatedAt           time.Time  `json:"createdAt"`
	TotalExecutions     int        `json:"totalExecutions"`
	TotalRuntimeMinutes int        `json:"totalRuntimeMinutes"`
	LastExecutionAt     *time.Time `json:"lastExecutionAt"`
}

func writeJSONFile(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errdefs.Wrap(errdefs.KindWriteFailed, err, "encode %s", path)
	}
	data = append(data, '\n')
	return fsio.AtomicWrite(path, data, fsio.WriteOptions{CreateDirs: true, Mode: 0o644})
}

func readJSONFile(path string, doc any) error {
	data, err := fsio.SafeLoad(path, func(b []byte) error {
		if !json.Valid(b) {
			return errdefs.InvalidJSON("%s is not valid JSON", path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return errdefs.Wrap(errdefs.KindInvalidJSON, err, "decode %s", path)
	}
	return nil
}

// LoadSubordinatesRegistry reads an agent's subordinates/registry.json.
func (o *Orchestrator) LoadSubordinatesRegistry(agentID string) (*SubordinatesRegistry, error) {
	var reg SubordinatesRegistry
	if err := readJSONFile(o.resolver.SubordinatesRegistryPath(agentID), &reg); err != nil {
		return nil, err
	}
	if reg.Subordinates == nil {
		reg.Subordinates = []SubordinateEntry{}
	}
	return &reg, nil
}

func (o *Orchestrator) saveSubordinatesRegistry(agentID string, reg *SubordinatesRegistry) error {
	if reg.Subordinates == nil {
		reg.Subordinates = []SubordinateEntry{}
	}
	return writeJSONFile(o.resolver.SubordinatesRegistryPath(agentID), reg)
}

// LoadMetadata reads an agent's metadata.json.
func (o *Orchestrator) LoadMetadata(agentID string) (*AgentMetadata, error) {
	var meta AgentMetadata
	if err := readJSONFile(o.resolver.MetadataPath(agentID), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (o *Orchestrator) saveMetadata(agentID string, meta *AgentMetadata) error {
	return writeJSONFile(o.resolver.MetadataPath(agentID), meta)
}

// RecordExecution accumulates an agent's execution counters in the
// store and mirrors them into metadata.json. The file write is
// best-effort: a workspace that drifted is logged, not fatal.
func (o *Orchestrator) RecordExecution(agentID string, at time.Time, runtime time.Duration) error {
	if err := o.registry.RecordExecution(agentID, at, runtime); err != nil {
		return err
	}

	agent, err := o.registry.GetAgent(agentID)
	if err != nil || agent == nil {
		o.log.Warn().Err(err).Str("agent_id", agentID).Msg("metadata mirror skipped: agent re-read failed")
		return nil
	}
	meta := &AgentMetadata{
		AgentID:             agent.ID,
		CreatedAt:           agent.CreatedAt,
		TotalExecutions:     agent.TotalExecutions,
		TotalRuntimeMinutes: agent.TotalRuntimeMinutes,
		LastExecutionAt:     agent.LastExecutionAt,
	}
	if err := o.saveMetadata(agentID, meta); err != nil {
		o.log.Warn().Err(err).Str("agent_id", agentID).Msg("metadata mirror write failed")
	}
	return nil
}

func readmeContent(agentID, role, displayName, mainGoal string, reportingTo *string, createdAt time.Time) []byte {
	manager := "none (root agent)"
	if reportingTo != nil {
		manager = *reportingTo
	}
	goal := mainGoal
	if goal == "" {
		goal = "(not set)"
	}
	return []byte(fmt.Sprintf(`# %s

| | |
|---|---|
| Agent ID | %s |
| Role | %s |
| Reports to | %s |
| Hired | %s |

## Main goal

%s

## Layout

- tasks/ - active, completed and archived work items
- inbox/ - incoming messages (unread, read)
- outbox/ - outgoing messages (pending, sent)
- subordinates/ - direct hires and remaining hiring budget
- workspace/ - notes, research, drafts, cache
`, displayName, agentID, role, manager, createdAt.Format(time.RFC3339), goal))
}
