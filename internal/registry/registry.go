// Package registry is the business layer over agent rows and the org
// hierarchy: creation with closure maintenance, partial updates with
// their audit trail, and org queries.
package registry

import (
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/internal/logging"
	"github.com/ShayCichocki/hive/internal/store"
	"github.com/ShayCichocki/hive/pkg/models"
)

// Agent ids travel through file paths, message frontmatter and SQL, so
// the charset stays deliberately narrow.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,99}$`)

// Registry mediates every agent mutation against the store.
type Registry struct {
	db  *store.DB
	log zerolog.Logger
}

func New(db *store.DB) *Registry {
	return &Registry{
		db:  db,
		log: logging.WithComponent("registry"),
	}
}

// CreateAgentInput carries the fields needed to register a new agent.
type CreateAgentInput struct {
	ID          string
	Role        string
	DisplayName string
	CreatedBy   string
	ReportingTo *string
	MainGoal    string
	ConfigPath  string
}

// CreateAgent registers an agent and its org-hierarchy rows in one
// transaction. It performs no filesystem work and appends no audit row;
// hiring owns both.
func (r *Registry) CreateAgent(input CreateAgentInput) (*models.Agent, error) {
	if !idPattern.MatchString(input.ID) {
		return nil, errdefs.SchemaInvalid("agent id %q is not a valid identifier", input.ID)
	}
	if input.Role == "" {
		return nil, errdefs.SchemaInvalid("agent %s has no role", input.ID)
	}
	if input.ReportingTo != nil && *input.ReportingTo == input.ID {
		return nil, errdefs.SelfReference("agent %s cannot report to itself", input.ID)
	}

	existing, err := r.db.GetAgent(input.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errdefs.Conflict("agent %s already exists", input.ID)
	}

	if input.ReportingTo != nil {
		manager, err := r.db.GetAgent(*input.ReportingTo)
		if err != nil {
			return nil, err
		}
		if manager == nil {
			return nil, errdefs.NotFound("manager %s does not exist", *input.ReportingTo)
		}
		loop, err := r.db.GetHierarchyEntry(*input.ReportingTo, input.ID)
		if err != nil {
			return nil, err
		}
		if loop != nil {
			return nil, errdefs.CycleDetected("hiring %s under %s would close a reporting loop",
				input.ID, *input.ReportingTo)
		}
	}

	displayName := input.DisplayName
	if displayName == "" {
		displayName = input.Role
	}
	agent := &models.Agent{
		ID:          input.ID,
		Role:        input.Role,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   input.CreatedBy,
		ReportingTo: input.ReportingTo,
		Status:      models.AgentStatusActive,
		MainGoal:    input.MainGoal,
		ConfigPath:  input.ConfigPath,
	}
	if err := r.db.CreateAgent(agent); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, errdefs.Conflict("agent %s already exists", input.ID)
		}
		return nil, err
	}

	r.log.Info().Str("agent_id", agent.ID).Str("role", agent.Role).Msg("agent registered")
	return agent, nil
}

// AgentUpdate lists the fields UpdateAgent may change. Nil leaves the
// current value alone.
type AgentUpdate struct {
	DisplayName *string
	MainGoal    *string
	ConfigPath  *string
	Status      *models.AgentStatus
}

// UpdateOption attaches audit context to an update.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	actor   *string
	details map[string]any
}

// WithActor records who performed the update in the audit row.
func WithActor(agentID string) UpdateOption {
	return func(o *updateOptions) { o.actor = &agentID }
}

// WithDetails merges extra fields into the audit row's details.
func WithDetails(details map[string]any) UpdateOption {
	return func(o *updateOptions) { o.details = details }
}

// UpdateAgent applies the non-nil fields and appends one audit row
// whose action is derived from the status transition: active to paused
// is PAUSE, paused to active is RESUME, any transition to fired is
// FIRE, and everything else is CONFIG_UPDATE. An update that changes
// nothing writes nothing.
func (r *Registry) UpdateAgent(id string, update AgentUpdate, opts ...UpdateOption) (*models.Agent, error) {
	var options updateOptions
	for _, opt := range opts {
		opt(&options)
	}

	agent, err := r.db.GetAgent(id)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, errdefs.NotFound("agent %s not found", id)
	}

	previousStatus := agent.Status
	changed := map[string]any{}
	if update.DisplayName != nil && *update.DisplayName != agent.DisplayName {
		agent.DisplayName = *update.DisplayName
		changed["displayName"] = *update.DisplayName
	}
	if update.MainGoal != nil && *update.MainGoal != agent.MainGoal {
		agent.MainGoal = *update.MainGoal
		changed["mainGoal"] = *update.MainGoal
	}
	if update.ConfigPath != nil && *update.ConfigPath != agent.ConfigPath {
		agent.ConfigPath = *update.ConfigPath
		changed["configPath"] = *update.ConfigPath
	}
	if update.Status != nil && *update.Status != agent.Status {
		if !update.Status.Valid() {
			return nil, errdefs.SchemaInvalid("invalid agent status %q", *update.Status)
		}
		agent.Status = *update.Status
		changed["status"] = string(*update.Status)
		changed["previousStatus"] = string(previousStatus)
	}
	if len(changed) == 0 {
		return agent, nil
	}

	if err := r.db.UpdateAgent(agent); err != nil {
		return nil, err
	}

	details := changed
	for k, v := range options.details {
		details[k] = v
	}
	event := &models.AuditEvent{
		AgentID:       options.actor,
		Action:        deriveAuditAction(previousStatus, agent.Status),
		TargetAgentID: &agent.ID,
		Success:       true,
		Details:       details,
	}
	if err := r.db.AppendAudit(event); err != nil {
		r.log.Error().Err(err).Str("agent_id", agent.ID).Msg("failed to append audit row")
	}
	return agent, nil
}

func deriveAuditAction(from, to models.AgentStatus) models.AuditAction {
	if from == to {
		return models.AuditConfigUpdate
	}
	switch {
	case to == models.AgentStatusFired:
		return models.AuditFire
	case from == models.AgentStatusActive && to == models.AgentStatusPaused:
		return models.AuditPause
	case from == models.AgentStatusPaused && to == models.AgentStatusActive:
		return models.AuditResume
	default:
		return models.AuditConfigUpdate
	}
}

// SetStatus flips only the status column and appends no audit row.
// Lifecycle flows that record their own PAUSE or RESUME event use this
// so each public operation lands exactly one audit entry.
func (r *Registry) SetStatus(id string, status models.AgentStatus) error {
	if !status.Valid() {
		return errdefs.SchemaInvalid("invalid agent status %q", status)
	}
	n, err := r.db.SetAgentStatus(id, status)
	if err != nil {
		return err
	}
	if n == 0 {
		return errdefs.NotFound("agent %s not found", id)
	}
	return nil
}

// GetAgent returns the agent or nil when the id is unknown.
func (r *Registry) GetAgent(id string) (*models.Agent, error) {
	return r.db.GetAgent(id)
}

// RequireAgent returns the agent or NOT_FOUND.
func (r *Registry) RequireAgent(id string) (*models.Agent, error) {
	agent, err := r.db.GetAgent(id)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, errdefs.NotFound("agent %s not found", id)
	}
	return agent, nil
}

// GetSubordinates returns every transitive subordinate, nearest first.
func (r *Registry) GetSubordinates(id string) ([]*models.Agent, error) {
	if _, err := r.RequireAgent(id); err != nil {
		return nil, err
	}
	return r.db.GetSubordinates(id)
}

// IsSubordinate reports whether candidate sits anywhere under manager.
func (r *Registry) IsSubordinate(candidateID, managerID string) (bool, error) {
	entry, err := r.db.GetHierarchyEntry(candidateID, managerID)
	if err != nil {
		return false, err
	}
	return entry != nil && entry.Depth > 0, nil
}

// GetOrgChart returns every agent with its level and deepest role path.
func (r *Registry) GetOrgChart() ([]*store.OrgChartEntry, error) {
	return r.db.GetOrgChart()
}

// CountDirectReports counts live direct subordinates of a manager.
func (r *Registry) CountDirectReports(managerID string) (int, error) {
	return r.db.CountDirectReports(managerID)
}

// AgentLevel returns the agent's depth below its root, 0 for roots.
func (r *Registry) AgentLevel(id string) (int, error) {
	return r.db.GetAgentLevel(id)
}

// RecordExecution accumulates execution counters after a work session.
func (r *Registry) RecordExecution(id string, at time.Time, runtime time.Duration) error {
	if runtime < 0 {
		runtime = 0
	}
	minutes := int(runtime.Round(time.Minute) / time.Minute)
	if err := r.db.RecordAgentExecution(id, at, minutes); err != nil {
		return err
	}
	r.log.Debug().Str("agent_id", id).Int("runtime_minutes", minutes).Msg("execution recorded")
	return nil
}
