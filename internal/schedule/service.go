// Package schedule manages per-agent execution triggers. The kernel
// never executes anything itself; an external executor polls Due and
// reports runs back through MarkTriggered.
package schedule

import (
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ShayCichocki/hive/internal/errdefs"
	"github.com/ShayCichocki/hive/internal/logging"
	"github.com/ShayCichocki/hive/internal/store"
	"github.com/ShayCichocki/hive/pkg/models"
)

// Service validates and queries execution schedules.
type Service struct {
	db   *store.DB
	gron *gronx.Gronx
	log  zerolog.Logger
}

func NewService(db *store.DB) *Service {
	return &Service{
		db:   db,
		gron: gronx.New(),
		log:  logging.WithComponent("schedule"),
	}
}

// CreateInput describes a new schedule. Schedules are created enabled;
// use SetEnabled to switch one off.
type CreateInput struct {
	ID                     string
	AgentID                string
	TriggerType            models.TriggerType
	Description            string
	CronExpression         string
	Timezone               string
	MinimumIntervalSeconds int
	OnlyWhenTasksPending   bool
}

// Create validates the trigger and inserts the schedule. Cron triggers
// must carry a parseable expression and get next_execution_at from it;
// continuous triggers must carry a positive minimum interval and are
// due as soon as the interval allows; reactive triggers have no next
// execution at all.
func (s *Service) Create(input CreateInput) (*models.Schedule, error) {
	if input.AgentID == "" {
		return nil, errdefs.SchemaInvalid("schedule agent id is required")
	}
	if !input.TriggerType.Valid() {
		return nil, errdefs.SchemaInvalid("invalid trigger type %q", input.TriggerType)
	}
	agent, err := s.db.GetAgent(input.AgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, errdefs.NotFound("agent %s not found", input.AgentID)
	}

	now := time.Now().UTC()
	sched := &models.Schedule{
		ID:                     input.ID,
		AgentID:                input.AgentID,
		TriggerType:            input.TriggerType,
		Description:            input.Description,
		Timezone:               input.Timezone,
		MinimumIntervalSeconds: input.MinimumIntervalSeconds,
		OnlyWhenTasksPending:   input.OnlyWhenTasksPending,
		Enabled:                true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if sched.ID == "" {
		sched.ID = "sched-" + uuid.NewString()[:8]
	}

	switch input.TriggerType {
	case models.TriggerCron:
		if !s.gron.IsValid(input.CronExpression) {
			return nil, errdefs.SchemaInvalid("invalid cron expression %q", input.CronExpression)
		}
		next, err := gronx.NextTickAfter(input.CronExpression, now, false)
		if err != nil {
			return nil, errdefs.Wrap(errdefs.KindSchemaInvalid, err,
				"compute next tick for %q", input.CronExpression)
		}
		next = next.UTC()
		sched.CronExpression = input.CronExpression
		sched.NextExecutionAt = &next
	case models.TriggerContinuous:
		if input.MinimumIntervalSeconds <= 0 {
			return nil, errdefs.SchemaInvalid("continuous schedule requires a positive minimum interval")
		}
	case models.TriggerReactive:
		// Runs only when poked; nothing to precompute.
	}

	if err := s.db.CreateSchedule(sched); err != nil {
		return nil, err
	}
	s.log.Info().Str("schedule_id", sched.ID).Str("agent_id", sched.AgentID).
		Str("trigger", string(sched.TriggerType)).Msg("schedule created")
	return sched, nil
}

// Get returns the schedule or NOT_FOUND.
func (s *Service) Get(id string) (*models.Schedule, error) {
	sched, err := s.db.GetSchedule(id)
	if err != nil {
		return nil, err
	}
	if sched == nil {
		return nil, errdefs.NotFound("schedule %s not found", id)
	}
	return sched, nil
}

// List returns an agent's schedules, oldest first.
func (s *Service) List(agentID string) ([]*models.Schedule, error) {
	return s.db.ListSchedules(agentID)
}

// ListEnabled returns every enabled schedule across all agents.
func (s *Service) ListEnabled() ([]*models.Schedule, error) {
	return s.db.ListEnabledSchedules()
}

// Due returns the enabled schedules ready to run at the given instant:
// cron triggers whose next execution has arrived, and continuous
// triggers whose minimum interval has elapsed since the last run (a
// never-run continuous schedule is due immediately). Reactive
// schedules are never due; they wait for an external poke.
func (s *Service) Due(now time.Time) ([]*models.Schedule, error) {
	enabled, err := s.db.ListEnabledSchedules()
	if err != nil {
		return nil, err
	}

	var due []*models.Schedule
	for _, sched := range enabled {
		if s.isDue(sched, now) {
			due = append(due, sched)
		}
	}
	return due, nil
}

func (s *Service) isDue(sched *models.Schedule, now time.Time) bool {
	switch sched.TriggerType {
	case models.TriggerCron:
		return sched.NextExecutionAt != nil && !sched.NextExecutionAt.After(now)
	case models.TriggerContinuous:
		if sched.LastTriggeredAt == nil {
			return true
		}
		interval := time.Duration(sched.MinimumIntervalSeconds) * time.Second
		return !now.Before(sched.LastTriggeredAt.Add(interval))
	default:
		return false
	}
}

// MarkTriggered stamps the run and recomputes the next execution for
// cron triggers. Unknown schedules report NOT_FOUND.
func (s *Service) MarkTriggered(id string, at time.Time) error {
	sched, err := s.db.GetSchedule(id)
	if err != nil {
		return err
	}
	if sched == nil {
		return errdefs.NotFound("schedule %s not found", id)
	}

	var next *time.Time
	if sched.TriggerType == models.TriggerCron && sched.CronExpression != "" {
		tick, err := gronx.NextTickAfter(sched.CronExpression, at, false)
		if err != nil {
			s.log.Warn().Err(err).Str("schedule_id", id).Msg("could not recompute next tick")
		} else {
			tick = tick.UTC()
			next = &tick
		}
	}
	return s.db.MarkScheduleTriggered(id, at, next)
}

// SetEnabled flips the enabled flag. Unknown schedules report
// NOT_FOUND.
func (s *Service) SetEnabled(id string, enabled bool) error {
	sched, err := s.db.GetSchedule(id)
	if err != nil {
		return err
	}
	if sched == nil {
		return errdefs.NotFound("schedule %s not found", id)
	}
	return s.db.SetScheduleEnabled(id, enabled, time.Now().UTC())
}
