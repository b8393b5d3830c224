package agentconfig

import (
	"testing"

	"github.com/ShayCichocki/hive/internal/errdefs"
)

func baseValidConfig(t *testing.T) *AgentConfig {
	t.Helper()
	cfg, err := GenerateDefault("Developer", "ship", "ceo", nil)
	if err != nil {
		t.Fatalf("GenerateDefault: %v", err)
	}
	return cfg
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(*AgentConfig)
		wantErrors   int
		wantWarnings int
	}{
		{
			"default is clean",
			func(cfg *AgentConfig) {},
			0, 0,
		},
		{
			"canHire without maxSubordinates",
			func(cfg *AgentConfig) {
				cfg.Permissions.CanHire = true
			},
			1, 0,
		},
		{
			"canHire well formed",
			func(cfg *AgentConfig) {
				cfg.Permissions.CanHire = true
				cfg.Permissions.MaxSubordinates = 3
				cfg.Permissions.HiringBudget = 2
			},
			0, 0,
		},
		{
			"budget exceeds subordinates",
			func(cfg *AgentConfig) {
				cfg.Permissions.CanHire = true
				cfg.Permissions.MaxSubordinates = 2
				cfg.Permissions.HiringBudget = 5
			},
			1, 0,
		},
		{
			"no canHire but limits set",
			func(cfg *AgentConfig) {
				cfg.Permissions.MaxSubordinates = 3
				cfg.Permissions.HiringBudget = 2
			},
			0, 2,
		},
		{
			"domains without api access",
			func(cfg *AgentConfig) {
				cfg.Permissions.AllowedDomains = []string{"example.com"}
			},
			0, 1,
		},
		{
			"api access without domains",
			func(cfg *AgentConfig) {
				cfg.Permissions.CanAccessExternalAPIs = true
			},
			0, 1,
		},
		{
			"execution time over permission cap",
			func(cfg *AgentConfig) {
				cfg.Behavior.MaxExecutionTime = 90
				cfg.Permissions.MaxExecutionMinutes = 60
			},
			1, 0,
		},
		{
			"escalation without canEscalate",
			func(cfg *AgentConfig) {
				cfg.Permissions.CanEscalate = false
				cfg.Escalation.AutoEscalateBlockedTasks = true
				cfg.Escalation.AutoEscalateFailures = true
			},
			2, 0,
		},
		{
			"large values warn",
			func(cfg *AgentConfig) {
				cfg.Permissions.WorkspaceQuotaMB = 20480
				cfg.Permissions.MaxDelegationDepth = 12
				cfg.Permissions.MaxExecutionMinutes = 3000
				cfg.Behavior.MaxExecutionTime = 2000
				cfg.Permissions.MaxCostPerDayUSD = 5000
			},
			0, 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseValidConfig(t)
			tt.mutate(cfg)
			res := Validate(cfg)
			if len(res.Errors) != tt.wantErrors {
				t.Errorf("errors = %v, want %d", res.Errors, tt.wantErrors)
			}
			if len(res.Warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v, want %d", res.Warnings, tt.wantWarnings)
			}
		})
	}
}

func TestValidateStrict(t *testing.T) {
	cfg := baseValidConfig(t)
	if err := ValidateStrict(cfg); err != nil {
		t.Fatalf("ValidateStrict on clean config: %v", err)
	}

	cfg.Permissions.CanHire = true // maxSubordinates still 0
	err := ValidateStrict(cfg)
	if !errdefs.IsSchemaInvalid(err) {
		t.Errorf("err = %v, want SCHEMA_INVALID", err)
	}
}
