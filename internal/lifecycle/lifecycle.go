// Package lifecycle composes the registry, task engine, messaging,
// config, and schedule layers into the multi-step agent workflows:
// hire, pause, resume, fire, delegate, completion notification, and
// the blocked-task escalation sweep. Each public operation lands
// exactly one audit row.
package lifecycle

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/hive/internal/agentconfig"
	"github.com/ShayCichocki/hive/internal/agentdir"
	"github.com/ShayCichocki/hive/internal/logging"
	"github.com/ShayCichocki/hive/internal/messaging"
	"github.com/ShayCichocki/hive/internal/registry"
	"github.com/ShayCichocki/hive/internal/schedule"
	"github.com/ShayCichocki/hive/internal/store"
	"github.com/ShayCichocki/hive/internal/taskengine"
	"github.com/ShayCichocki/hive/pkg/models"
)

// MaxHierarchyDepth is the deepest allowed reporting level. A manager
// already sitting at this level cannot hire.
const MaxHierarchyDepth = 5

// Orchestrator runs the validated multi-step agent workflows.
type Orchestrator struct {
	db        *store.DB
	registry  *registry.Registry
	engine    *taskengine.Engine
	configs   *agentconfig.Service
	messages  *messaging.Service
	schedules *schedule.Service
	resolver  *agentdir.Resolver
	clock     func() time.Time
	log       zerolog.Logger
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	clock func() time.Time
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *orchestratorOptions) { o.clock = now }
}

// New builds an Orchestrator over the store and data directory. The
// sub-services share the same DB handle and path resolver.
func New(db *store.DB, resolver *agentdir.Resolver, opts ...Option) *Orchestrator {
	options := orchestratorOptions{clock: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&options)
	}
	return &Orchestrator{
		db:        db,
		registry:  registry.New(db),
		engine:    taskengine.New(db),
		configs:   agentconfig.NewService(resolver),
		messages:  messaging.NewService(db, resolver),
		schedules: schedule.NewService(db),
		resolver:  resolver,
		clock:     options.clock,
		log:       logging.WithComponent("lifecycle"),
	}
}

// Registry exposes the underlying agent registry.
func (o *Orchestrator) Registry() *registry.Registry { return o.registry }

// Engine exposes the underlying task engine.
func (o *Orchestrator) Engine() *taskengine.Engine { return o.engine }

// Configs exposes the agent config service.
func (o *Orchestrator) Configs() *agentconfig.Service { return o.configs }

// Messages exposes the messaging service.
func (o *Orchestrator) Messages() *messaging.Service { return o.messages }

// Schedules exposes the schedule service.
func (o *Orchestrator) Schedules() *schedule.Service { return o.schedules }

// Resolver exposes the data-directory path resolver.
func (o *Orchestrator) Resolver() *agentdir.Resolver { return o.resolver }

// audit appends the operation's single audit row. Append problems are
// logged rather than overriding the operation's own result.
func (o *Orchestrator) audit(action models.AuditAction, actor, target *string, opErr error, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	if opErr != nil {
		details["error"] = opErr.Error()
	}
	event := &models.AuditEvent{
		AgentID:       actor,
		Action:        action,
		TargetAgentID: target,
		Success:       opErr == nil,
		Details:       details,
	}
	if err := o.db.AppendAudit(event); err != nil {
		o.log.Error().Err(err).Str("action", string(action)).Msg("failed to append audit row")
	}
}

// messagePriorityFor maps a task priority onto the message priority
// used for notifications about that task.
func messagePriorityFor(p models.TaskPriority) models.MessagePriority {
	switch p {
	case models.TaskPriorityUrgent, models.TaskPriorityHigh:
		return models.MessagePriorityHigh
	case models.TaskPriorityLow:
		return models.MessagePriorityLow
	default:
		return models.MessagePriorityNormal
	}
}
