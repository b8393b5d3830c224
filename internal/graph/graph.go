// Package graph walks blocked_by edges between tasks to find
// dependency cycles before they deadlock an agent's queue.
package graph

import (
	"github.com/ShayCichocki/hive/pkg/models"
)

// TaskSource resolves a task id to its current record. A nil task (no
// error) means the id is unknown; the walk treats it as having no
// dependencies.
type TaskSource interface {
	GetTask(id string) (*models.Task, error)
}

// Detector runs depth-first walks over the blocked_by graph. It holds
// no state between calls and never mutates tasks.
type Detector struct {
	source TaskSource
}

func NewDetector(source TaskSource) *Detector {
	return &Detector{source: source}
}

// DetectCycle returns the cycle reachable from startID as an ordered
// list of task ids, or nil when none exists. A task blocked by itself
// yields a single-element cycle. Missing tasks and unreadable
// dependency lists contribute no edges, so damaged data degrades to
// "no cycle" instead of failing the walk.
func (d *Detector) DetectCycle(startID string) ([]string, error) {
	walk := &walker{
		source:  d.source,
		visited: make(map[string]bool),
		onPath:  make(map[string]bool),
	}
	return walk.visit(startID)
}

// PathExists reports whether toID is reachable from fromID along
// blocked_by edges. Task creation uses this as its cycle probe: a new
// task blocked by b is rejected when b already depends on the new id.
func (d *Detector) PathExists(fromID, toID string) (bool, error) {
	visited := make(map[string]bool)
	stack := []string{fromID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == toID {
			return true, nil
		}
		if visited[id] {
			continue
		}
		visited[id] = true

		blockers, err := d.blockers(id)
		if err != nil {
			return false, err
		}
		stack = append(stack, blockers...)
	}
	return false, nil
}

func (d *Detector) blockers(id string) ([]string, error) {
	task, err := d.source.GetTask(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	return task.BlockedBy, nil
}

type walker struct {
	source  TaskSource
	visited map[string]bool
	onPath  map[string]bool
	path    []string
}

func (w *walker) visit(id string) ([]string, error) {
	if w.onPath[id] {
		for i, pid := range w.path {
			if pid == id {
				cycle := make([]string, len(w.path)-i)
				copy(cycle, w.path[i:])
				return cycle, nil
			}
		}
	}
	if w.visited[id] {
		return nil, nil
	}
	w.visited[id] = true
	w.onPath[id] = true
	w.path = append(w.path, id)
	defer func() {
		w.onPath[id] = false
		w.path = w.path[:len(w.path)-1]
	}()

	task, err := w.source.GetTask(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}
	for _, blocker := range task.BlockedBy {
		cycle, err := w.visit(blocker)
		if err != nil {
			return nil, err
		}
		if cycle != nil {
			return cycle, nil
		}
	}
	return nil, nil
}
