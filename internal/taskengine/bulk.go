package taskengine

import (
	"fmt"
	"time"

	"github.com/ShayCichocki/hive/pkg/models"
)

// BlockSweep summarizes a bulk block pass over an agent's live tasks.
type BlockSweep struct {
	TotalTasks     int
	Blocked        int
	AlreadyBlocked int
	Errors         []string
}

// UnblockSweep summarizes a bulk unblock pass over an agent's blocked
// tasks.
type UnblockSweep struct {
	TotalTasks   int
	Unblocked    int
	StillBlocked int
	Errors       []string
}

// BlockAgentTasks forces each of the agent's non-terminal tasks into
// blocked status. Per-task failures are collected in the sweep rather
// than aborting it. The sweep writes no audit rows; callers fold the
// summary into their own lifecycle row.
func (e *Engine) BlockAgentTasks(agentID string) (*BlockSweep, error) {
	tasks, err := e.db.GetNonTerminalTasks(agentID)
	if err != nil {
		return nil, err
	}

	sweep := &BlockSweep{TotalTasks: len(tasks)}
	now := time.Now().UTC()
	for _, t := range tasks {
		if t.Status == models.TaskStatusBlocked {
			sweep.AlreadyBlocked++
			continue
		}
		n, err := e.db.BlockTask(t.ID, now)
		if err != nil {
			sweep.Errors = append(sweep.Errors, fmt.Sprintf("block %s: %v", t.ID, err))
			continue
		}
		if n > 0 {
			sweep.Blocked++
		}
	}
	return sweep, nil
}

// UnblockAgentTasks returns the agent's blocked tasks to pending when
// nothing live holds them. A task stays blocked while any blocker
// still exists in a non-terminal status; missing blockers count as
// cleared. Like the block sweep, failures are collected per task and
// no audit rows are written here.
func (e *Engine) UnblockAgentTasks(agentID string) (*UnblockSweep, error) {
	tasks, err := e.db.GetBlockedTasks(agentID)
	if err != nil {
		return nil, err
	}

	sweep := &UnblockSweep{TotalTasks: len(tasks)}
	now := time.Now().UTC()
	for _, t := range tasks {
		held, err := e.hasLiveBlocker(t)
		if err != nil {
			sweep.Errors = append(sweep.Errors, fmt.Sprintf("check %s: %v", t.ID, err))
			continue
		}
		if held {
			sweep.StillBlocked++
			continue
		}
		n, err := e.db.UnblockTask(t.ID, now)
		if err != nil {
			sweep.Errors = append(sweep.Errors, fmt.Sprintf("unblock %s: %v", t.ID, err))
			continue
		}
		if n > 0 {
			sweep.Unblocked++
		}
	}
	return sweep, nil
}

func (e *Engine) hasLiveBlocker(t *models.Task) (bool, error) {
	for _, blockerID := range t.BlockedBy {
		blocker, err := e.db.GetTask(blockerID)
		if err != nil {
			return false, err
		}
		if blocker != nil && !blocker.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}
