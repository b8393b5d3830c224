package lifecycle

import (
	"fmt"
	"os"
	"time"

	"github.com/ShayCichocki/hive/internal/agentconfig"
	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/internal/fsio"
	"github.com/ShayCichocki/hive/internal/registry"
	"github.com/ShayCichocki/hive/internal/schedule"
	"github.com/ShayCichocki/hive/pkg/models"
)

// HireError marks a hire that failed after the agent row was
// committed. The agent exists in the store without its full directory
// layout; AgentID identifies it for remediation.
type HireError struct {
	AgentID string
	Err     error
}

func (e *HireError) Error() string {
	return fmt.Sprintf("hire of %s failed after commit: %v", e.AgentID, e.Err)
}

func (e *HireError) Unwrap() error { return e.Err }

// HireResult is the outcome of a successful hire.
type HireResult struct {
	Agent    *models.Agent
	Config   *agentconfig.AgentConfig
	Schedule *models.Schedule
	AgentDir string
}

// HireAgent registers a new agent under the given manager (nil hires a
// root agent), lays out its directory tree, and appends one HIRE audit
// row on every outcome. The agent row and its hierarchy rows commit in
// one transaction; filesystem steps after that commit cannot be rolled
// back, so their failures surface as *HireError carrying the agent id.
func (o *Orchestrator) HireAgent(managerID *string, cfg *agentconfig.AgentConfig) (*HireResult, error) {
	res, err := o.hireAgent(managerID, cfg)

	details := map[string]any{}
	var target *string
	if cfg != nil && cfg.Identity.ID != "" {
		id := cfg.Identity.ID
		target = &id
		details["agentId"] = id
		details["role"] = cfg.Identity.Role
	}
	if managerID != nil {
		details["reportingTo"] = *managerID
	}
	if err == nil && res != nil {
		details["configPath"] = res.Agent.ConfigPath
	}
	o.audit(models.AuditHire, managerID, target, err, details)

	if err != nil {
		return nil, err
	}
	o.log.Info().Str("agent_id", res.Agent.ID).Str("role", res.Agent.Role).
		Msg("agent hired")
	return res, nil
}

func (o *Orchestrator) hireAgent(managerID *string, cfg *agentconfig.AgentConfig) (*HireResult, error) {
	manager, err := o.validateHire(managerID, cfg)
	if err != nil {
		return nil, err
	}

	// The caller's document wins on everything except who the agent
	// reports to; that always follows the hire call.
	cfg.Identity.ReportingTo = managerID
	if cfg.Identity.CreatedBy == "" {
		if managerID != nil {
			cfg.Identity.CreatedBy = *managerID
		} else {
			cfg.Identity.CreatedBy = "system"
		}
	}
	if cfg.Identity.CreatedAt == nil {
		now := o.clock().Truncate(time.Second)
		cfg.Identity.CreatedAt = &now
	}

	agent, err := o.registry.CreateAgent(registry.CreateAgentInput{
		ID:          cfg.Identity.ID,
		Role:        cfg.Identity.Role,
		DisplayName: cfg.Identity.DisplayName,
		CreatedBy:   cfg.Identity.CreatedBy,
		ReportingTo: managerID,
		MainGoal:    cfg.Identity.MainGoal,
		ConfigPath:  o.resolver.ConfigPath(cfg.Identity.ID),
	})
	if err != nil {
		return nil, err
	}

	res, err := o.layoutAgent(agent, cfg, manager)
	if err != nil {
		return nil, &HireError{AgentID: agent.ID, Err: err}
	}
	return res, nil
}

// validateHire checks every hire precondition and returns the manager
// row when one is involved. The reporting-cycle check lives in the
// registry, inside the same transaction as the insert.
func (o *Orchestrator) validateHire(managerID *string, cfg *agentconfig.AgentConfig) (*models.Agent, error) {
	if cfg == nil {
		return nil, errdefs.SchemaInvalid("hire requires an agent config")
	}
	if err := agentconfig.ValidateStrict(cfg); err != nil {
		return nil, err
	}
	id := cfg.Identity.ID

	existing, err := o.registry.GetAgent(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errdefs.Conflict("agent %s already exists", id)
	}

	if managerID == nil {
		if cfg.Identity.ReportingTo != nil {
			return nil, errdefs.SchemaInvalid(
				"root hire for %s must not set identity.reportingTo (got %q)",
				id, *cfg.Identity.ReportingTo)
		}
		return nil, nil
	}

	if *managerID == id {
		return nil, errdefs.SelfReference("agent %s cannot hire itself", id)
	}

	manager, err := o.registry.GetAgent(*managerID)
	if err != nil {
		return nil, err
	}
	if manager == nil {
		return nil, errdefs.NotFound("manager %s does not exist", *managerID)
	}
	if manager.Status != models.AgentStatusActive {
		return nil, errdefs.InvalidState("manager %s is %s and cannot hire",
			manager.ID, manager.Status)
	}

	mcfg, err := o.configs.Load(manager.ID)
	if err != nil {
		return nil, err
	}
	if !mcfg.Permissions.CanHire {
		return nil, errdefs.Forbidden("agent %s is not permitted to hire", manager.ID)
	}

	reports, err := o.registry.CountDirectReports(manager.ID)
	if err != nil {
		return nil, err
	}
	if reports >= mcfg.Permissions.MaxSubordinates {
		return nil, errdefs.LimitExceeded("agent %s already has %d of %d subordinates",
			manager.ID, reports, mcfg.Permissions.MaxSubordinates)
	}

	reg, err := o.LoadSubordinatesRegistry(manager.ID)
	if err != nil {
		return nil, err
	}
	if reg.HiringBudgetRemaining <= 0 {
		return nil, errdefs.BudgetExceeded("agent %s has no hiring budget remaining", manager.ID)
	}

	level, err := o.registry.AgentLevel(manager.ID)
	if err != nil {
		return nil, err
	}
	if level+1 > MaxHierarchyDepth {
		return nil, errdefs.DepthExceeded(
			"hiring under %s would exceed the maximum reporting depth of %d",
			manager.ID, MaxHierarchyDepth)
	}
	return manager, nil
}

// layoutAgent performs every post-commit step: the directory scaffold,
// the workspace documents, the default reactive schedule, and the
// manager's registry update.
func (o *Orchestrator) layoutAgent(agent *models.Agent, cfg *agentconfig.AgentConfig, manager *models.Agent) (*HireResult, error) {
	for _, dir := range o.resolver.ScaffoldDirs(agent.ID) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errdefs.Wrap(errdefs.KindWriteFailed, err, "scaffold %s", dir)
		}
	}

	if err := o.configs.Save(agent.ID, cfg); err != nil {
		return nil, err
	}

	sched, err := o.schedules.Create(schedule.CreateInput{
		AgentID:     agent.ID,
		TriggerType: models.TriggerReactive,
		Description: "run when new tasks or messages arrive",
	})
	if err != nil {
		return nil, err
	}
	if err := writeJSONFile(o.resolver.SchedulePath(agent.ID), sched); err != nil {
		return nil, err
	}

	meta := &AgentMetadata{
		AgentID:         agent.ID,
		CreatedAt:       agent.CreatedAt,
		TotalExecutions: 0,
	}
	if err := o.saveMetadata(agent.ID, meta); err != nil {
		return nil, err
	}

	reg := &SubordinatesRegistry{
		Subordinates:          []SubordinateEntry{},
		HiringBudgetRemaining: cfg.Permissions.HiringBudget,
	}
	if err := o.saveSubordinatesRegistry(agent.ID, reg); err != nil {
		return nil, err
	}

	readme := readmeContent(agent.ID, agent.Role, agent.DisplayName, agent.MainGoal,
		agent.ReportingTo, agent.CreatedAt)
	err = fsio.AtomicWrite(o.resolver.ReadmePath(agent.ID), readme,
		fsio.WriteOptions{CreateDirs: true, Mode: 0o644})
	if err != nil {
		return nil, err
	}

	if manager != nil {
		if err := o.recordHireWithManager(manager, agent); err != nil {
			return nil, err
		}
	}

	return &HireResult{
		Agent:    agent,
		Config:   cfg,
		Schedule: sched,
		AgentDir: o.resolver.AgentDir(agent.ID),
	}, nil
}

// recordHireWithManager appends the new hire to the manager's
// subordinates registry and burns one unit of hiring budget. The file
// is small and rewritten atomically.
func (o *Orchestrator) recordHireWithManager(manager, agent *models.Agent) error {
	reg, err := o.LoadSubordinatesRegistry(manager.ID)
	if err != nil {
		return err
	}
	reg.Subordinates = append(reg.Subordinates, SubordinateEntry{
		AgentID: agent.ID,
		Role:    agent.Role,
		HiredAt: agent.CreatedAt,
	})
	reg.HiringBudgetRemaining--
	return o.saveSubordinatesRegistry(manager.ID, reg)
}
