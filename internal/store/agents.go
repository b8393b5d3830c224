package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShayCichocki/hive/pkg/models"
)

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

const agentColumns = `id, role, display_name, created_at, created_by, reporting_to, status,
	main_goal, config_path, last_execution_at, total_executions, total_runtime_minutes`

// scanAgent scans one agent row.
func scanAgent(row rowScanner) (*models.Agent, error) {
	var a models.Agent
	var createdAt string
	var createdBy, reportingTo, lastExecution sql.NullString

	err := row.Scan(&a.ID, &a.Role, &a.DisplayName, &createdAt, &createdBy, &reportingTo,
		&a.Status, &a.MainGoal, &a.ConfigPath, &lastExecution,
		&a.TotalExecutions, &a.TotalRuntimeMinutes)
	if err != nil {
		return nil, err
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	a.CreatedAt = t
	if createdBy.Valid {
		a.CreatedBy = createdBy.String
	}
	if reportingTo.Valid {
		v := reportingTo.String
		a.ReportingTo = &v
	}
	a.LastExecutionAt = parseNullableTime(lastExecution)

	return &a, nil
}

// CreateAgent inserts the agent row together with its org-hierarchy
// rows in one transaction: the depth-0 self reference, and one row per
// ancestor of the manager with depth+1 and the path extended by the new
// agent's role.
func (db *DB) CreateAgent(a *models.Agent) error {
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO agents (id, role, display_name, created_at, created_by, reporting_to,
				status, main_goal, config_path, last_execution_at, total_executions, total_runtime_minutes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, a.Role, a.DisplayName, formatTime(a.CreatedAt), stringOrNil(a.CreatedBy),
			nullString(a.ReportingTo), string(a.Status), a.MainGoal, a.ConfigPath,
			nullTime(a.LastExecutionAt), a.TotalExecutions, a.TotalRuntimeMinutes)
		if err != nil {
			return fmt.Errorf("insert agent: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO org_hierarchy (agent_id, ancestor_id, depth, path)
			VALUES (?, ?, 0, ?)
		`, a.ID, a.ID, a.Role)
		if err != nil {
			return fmt.Errorf("insert self hierarchy row: %w", err)
		}

		if a.ReportingTo != nil {
			_, err = tx.Exec(`
				INSERT INTO org_hierarchy (agent_id, ancestor_id, depth, path)
				SELECT ?, ancestor_id, depth + 1, path || '/' || ?
				FROM org_hierarchy
				WHERE agent_id = ?
			`, a.ID, a.Role, *a.ReportingTo)
			if err != nil {
				return fmt.Errorf("copy ancestor hierarchy rows: %w", err)
			}
		}

		return nil
	})
}

// GetAgent returns the agent or nil when absent.
func (db *DB) GetAgent(id string) (*models.Agent, error) {
	row := db.QueryRow(`SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", id, err)
	}
	return a, nil
}

// UpdateAgent writes the mutable fields of an agent row. The id,
// created_at and created_by columns never change after creation.
func (db *DB) UpdateAgent(a *models.Agent) error {
	result, err := db.Exec(`
		UPDATE agents
		SET role = ?, display_name = ?, reporting_to = ?, status = ?, main_goal = ?,
			config_path = ?, last_execution_at = ?, total_executions = ?, total_runtime_minutes = ?
		WHERE id = ?
	`, a.Role, a.DisplayName, nullString(a.ReportingTo), string(a.Status), a.MainGoal,
		a.ConfigPath, nullTime(a.LastExecutionAt), a.TotalExecutions, a.TotalRuntimeMinutes, a.ID)
	if err != nil {
		return fmt.Errorf("update agent %s: %w", a.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update agent %s: no such agent", a.ID)
	}
	return nil
}

// SetAgentStatus updates only the status column. Returns the number of
// rows changed so callers can detect a missing agent.
func (db *DB) SetAgentStatus(id string, status models.AgentStatus) (int64, error) {
	result, err := db.Exec(`UPDATE agents SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return 0, fmt.Errorf("set agent %s status: %w", id, err)
	}
	return result.RowsAffected()
}

// GetSubordinates returns all transitive subordinates of an agent,
// nearest first.
func (db *DB) GetSubordinates(id string) ([]*models.Agent, error) {
	rows, err := db.Query(`
		SELECT `+agentColumns+`
		FROM agents
		JOIN org_hierarchy h ON h.agent_id = agents.id
		WHERE h.ancestor_id = ? AND h.depth > 0
		ORDER BY h.depth, agents.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get subordinates of %s: %w", id, err)
	}
	defer rows.Close()

	var agents []*models.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subordinate: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// OrgChartEntry pairs an agent with its hierarchy position.
type OrgChartEntry struct {
	Agent *models.Agent
	// Depth is the agent's distance from its furthest ancestor, i.e.
	// its level in the reporting tree (0 for roots).
	Depth int
	// Path is the role path from the root ancestor down to the agent.
	Path string
}

// GetOrgChart returns every agent with its position in the reporting
// tree, roots first.
func (db *DB) GetOrgChart() ([]*OrgChartEntry, error) {
	rows, err := db.Query(`
		SELECT ` + agentColumns + `,
			(SELECT COALESCE(MAX(depth), 0) FROM org_hierarchy WHERE agent_id = agents.id) AS level,
			(SELECT path FROM org_hierarchy h2
				WHERE h2.agent_id = agents.id
				ORDER BY h2.depth DESC LIMIT 1) AS full_path
		FROM agents
		ORDER BY level, agents.id
	`)
	if err != nil {
		return nil, fmt.Errorf("get org chart: %w", err)
	}
	defer rows.Close()

	var entries []*OrgChartEntry
	for rows.Next() {
		var a models.Agent
		var createdAt string
		var createdBy, reportingTo, lastExecution sql.NullString
		var level int
		var fullPath sql.NullString

		err := rows.Scan(&a.ID, &a.Role, &a.DisplayName, &createdAt, &createdBy, &reportingTo,
			&a.Status, &a.MainGoal, &a.ConfigPath, &lastExecution,
			&a.TotalExecutions, &a.TotalRuntimeMinutes, &level, &fullPath)
		if err != nil {
			return nil, fmt.Errorf("scan org chart row: %w", err)
		}

		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		a.CreatedAt = t
		if createdBy.Valid {
			a.CreatedBy = createdBy.String
		}
		if reportingTo.Valid {
			v := reportingTo.String
			a.ReportingTo = &v
		}
		a.LastExecutionAt = parseNullableTime(lastExecution)

		entries = append(entries, &OrgChartEntry{Agent: &a, Depth: level, Path: fullPath.String})
	}
	return entries, rows.Err()
}

// GetHierarchyEntry returns the closure row linking agent to ancestor,
// or nil when the ancestor relation does not hold.
func (db *DB) GetHierarchyEntry(agentID, ancestorID string) (*models.HierarchyEntry, error) {
	var e models.HierarchyEntry
	row := db.QueryRow(`
		SELECT agent_id, ancestor_id, depth, path
		FROM org_hierarchy
		WHERE agent_id = ? AND ancestor_id = ?
	`, agentID, ancestorID)
	err := row.Scan(&e.AgentID, &e.AncestorID, &e.Depth, &e.Path)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hierarchy entry (%s, %s): %w", agentID, ancestorID, err)
	}
	return &e, nil
}

// GetAncestors returns the closure rows above an agent, nearest first.
func (db *DB) GetAncestors(agentID string) ([]*models.HierarchyEntry, error) {
	rows, err := db.Query(`
		SELECT agent_id, ancestor_id, depth, path
		FROM org_hierarchy
		WHERE agent_id = ? AND depth > 0
		ORDER BY depth
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("get ancestors of %s: %w", agentID, err)
	}
	defer rows.Close()

	var entries []*models.HierarchyEntry
	for rows.Next() {
		var e models.HierarchyEntry
		if err := rows.Scan(&e.AgentID, &e.AncestorID, &e.Depth, &e.Path); err != nil {
			return nil, fmt.Errorf("scan ancestor row: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// GetAgentLevel returns the agent's depth in the reporting tree: 0 for
// root agents, manager level + 1 otherwise.
func (db *DB) GetAgentLevel(agentID string) (int, error) {
	var level int
	row := db.QueryRow(`
		SELECT COALESCE(MAX(depth), 0) FROM org_hierarchy WHERE agent_id = ?
	`, agentID)
	if err := row.Scan(&level); err != nil {
		return 0, fmt.Errorf("get level of %s: %w", agentID, err)
	}
	return level, nil
}

// CountDirectReports counts non-fired agents reporting directly to the
// manager. Fired subordinates free their slot.
func (db *DB) CountDirectReports(managerID string) (int, error) {
	var count int
	row := db.QueryRow(`
		SELECT COUNT(*) FROM agents WHERE reporting_to = ? AND status != 'fired'
	`, managerID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count direct reports of %s: %w", managerID, err)
	}
	return count, nil
}

// RecordAgentExecution stamps last_execution_at and accumulates the
// execution counters.
func (db *DB) RecordAgentExecution(id string, at time.Time, runtimeMinutes int) error {
	result, err := db.Exec(`
		UPDATE agents
		SET last_execution_at = ?, total_executions = total_executions + 1,
			total_runtime_minutes = total_runtime_minutes + ?
		WHERE id = ?
	`, formatTime(at), runtimeMinutes, id)
	if err != nil {
		return fmt.Errorf("record execution for %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record execution for %s: no such agent", id)
	}
	return nil
}
