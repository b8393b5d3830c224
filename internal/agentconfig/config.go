// Package agentconfig owns the per-agent config.json document: its
// schema, default generation, deep merging, validation, and the
// load/save path through atomic file I/O.
package agentconfig

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the only document version this build understands.
const SchemaVersion = "1"

// AgentConfig is the typed form of an agent's config.json.
type AgentConfig struct {
	Version       string         `json:"version"`
	Identity      Identity       `json:"identity"`
	Permissions   Permissions    `json:"permissions"`
	Behavior      Behavior       `json:"behavior"`
	Communication Communication  `json:"communication"`
	Escalation    Escalation     `json:"escalation"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Identity describes who the agent is and where it sits in the org.
type Identity struct {
	ID          string     `json:"id"`
	Role        string     `json:"role"`
	DisplayName string     `json:"displayName,omitempty"`
	MainGoal    string     `json:"mainGoal,omitempty"`
	ReportingTo *string    `json:"reportingTo"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// Permissions bounds what the agent is allowed to do.
type Permissions struct {
	CanHire               bool     `json:"canHire"`
	MaxSubordinates       int      `json:"maxSubordinates"`
	HiringBudget          int      `json:"hiringBudget"`
	CanEscalate           bool     `json:"canEscalate"`
	CanAccessExternalAPIs bool     `json:"canAccessExternalAPIs"`
	AllowedDomains        []string `json:"allowedDomains"`
	MaxExecutionMinutes   int      `json:"maxExecutionMinutes"`
	MaxDelegationDepth    int      `json:"maxDelegationDepth"`
	WorkspaceQuotaMB      int      `json:"workspaceQuotaMB"`
	MaxCostPerDayUSD      float64  `json:"maxCostPerDayUSD"`
}

// Behavior tunes how the agent works a single execution.
type Behavior struct {
	MaxExecutionTime   int    `json:"maxExecutionTime"`
	MaxConcurrentTasks int    `json:"maxConcurrentTasks"`
	WorkStyle          string `json:"workStyle,omitempty"`
}

// Communication controls which notifications the agent's manager and
// subordinates receive.
type Communication struct {
	NotifyOnCompletion bool     `json:"notifyOnCompletion"`
	NotifyOnBlocked    bool     `json:"notifyOnBlocked"`
	DailySummary       bool     `json:"dailySummary"`
	Channels           []string `json:"channels"`
}

// Escalation controls automatic escalation of stuck work.
type Escalation struct {
	AutoEscalateBlockedTasks bool    `json:"autoEscalateBlockedTasks"`
	AutoEscalateFailures     bool    `json:"autoEscalateFailures"`
	EscalateAfterHours       float64 `json:"escalateAfterHours"`
}

var slugRuns = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s, collapses runs of non-alphanumerics into a single
// hyphen, trims hyphens from both ends, and caps the result at 50
// characters (re-trimming a trailing hyphen the cut may expose).
func Slug(s string) string {
	s = strings.ToLower(s)
	s = slugRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// GenerateAgentID derives an agent id from the role. Roles that slug to
// nothing fall back to the "agent" prefix.
func GenerateAgentID(role string, now time.Time) string {
	suffix := uuid.NewString()[:6]
	if s := Slug(role); s != "" {
		return fmt.Sprintf("%s-%d-%s", s, now.Unix(), suffix)
	}
	return fmt.Sprintf("agent-%d-%s", now.Unix(), suffix)
}

// GenerateDefault produces a complete, valid config for a new agent.
// Overrides are deep-merged on top of the defaults and the result is
// re-validated against the schema.
func GenerateDefault(role, mainGoal, createdBy string, overrides map[string]any) (*AgentConfig, error) {
	now := time.Now().UTC().Truncate(time.Second)
	cfg := &AgentConfig{
		Version: SchemaVersion,
		Identity: Identity{
			ID:          GenerateAgentID(role, now),
			Role:        role,
			DisplayName: role,
			MainGoal:    mainGoal,
			CreatedBy:   createdBy,
			CreatedAt:   &now,
		},
		Permissions: Permissions{
			CanHire:               false,
			MaxSubordinates:       0,
			HiringBudget:          0,
			CanEscalate:           true,
			CanAccessExternalAPIs: false,
			AllowedDomains:        []string{},
			MaxExecutionMinutes:   60,
			MaxDelegationDepth:    3,
			WorkspaceQuotaMB:      1024,
			MaxCostPerDayUSD:      50,
		},
		Behavior: Behavior{
			MaxExecutionTime:   30,
			MaxConcurrentTasks: 3,
			WorkStyle:          "focused",
		},
		Communication: Communication{
			NotifyOnCompletion: true,
			NotifyOnBlocked:    true,
			DailySummary:       false,
			Channels:           []string{"internal"},
		},
		Escalation: Escalation{
			AutoEscalateBlockedTasks: false,
			AutoEscalateFailures:     true,
			EscalateAfterHours:       4,
		},
		Metadata: map[string]any{},
	}
	if len(overrides) == 0 {
		return cfg, nil
	}
	return Apply(cfg, overrides)
}
