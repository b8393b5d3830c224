package agentconfig

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/hive/internal/errdefs"
)

// Warning thresholds for unusually large limits.
const (
	warnWorkspaceQuotaMB = 10240
	warnDelegationDepth  = 10
	warnExecutionTimeMin = 1440
	warnMaxCostPerDayUSD = 1000
)

// ValidationResult collects business-rule violations. Errors make the
// config unusable; warnings are advisory.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the config passed with no errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

func (r *ValidationResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate applies the business rules to a schema-valid config.
func Validate(cfg *AgentConfig) ValidationResult {
	var res ValidationResult
	p := cfg.Permissions

	if p.CanHire {
		if p.MaxSubordinates < 1 {
			res.errorf("canHire is true but maxSubordinates is %d, want >= 1", p.MaxSubordinates)
		}
	} else {
		if p.MaxSubordinates != 0 {
			res.warnf("canHire is false but maxSubordinates is %d", p.MaxSubordinates)
		}
		if p.HiringBudget != 0 {
			res.warnf("canHire is false but hiringBudget is %d", p.HiringBudget)
		}
	}
	if p.HiringBudget > p.MaxSubordinates {
		res.errorf("hiringBudget %d exceeds maxSubordinates %d", p.HiringBudget, p.MaxSubordinates)
	}

	if !p.CanAccessExternalAPIs && len(p.AllowedDomains) > 0 {
		res.warnf("allowedDomains set but canAccessExternalAPIs is false")
	}
	if p.CanAccessExternalAPIs && len(p.AllowedDomains) == 0 {
		res.warnf("canAccessExternalAPIs is true but allowedDomains is empty")
	}

	if cfg.Behavior.MaxExecutionTime > p.MaxExecutionMinutes {
		res.errorf("behavior.maxExecutionTime %d exceeds permissions.maxExecutionMinutes %d",
			cfg.Behavior.MaxExecutionTime, p.MaxExecutionMinutes)
	}

	if cfg.Escalation.AutoEscalateBlockedTasks && !p.CanEscalate {
		res.errorf("autoEscalateBlockedTasks requires canEscalate")
	}
	if cfg.Escalation.AutoEscalateFailures && !p.CanEscalate {
		res.errorf("autoEscalateFailures requires canEscalate")
	}

	if p.WorkspaceQuotaMB > warnWorkspaceQuotaMB {
		res.warnf("workspaceQuotaMB %d is unusually large", p.WorkspaceQuotaMB)
	}
	if p.MaxDelegationDepth > warnDelegationDepth {
		res.warnf("maxDelegationDepth %d is unusually large", p.MaxDelegationDepth)
	}
	if cfg.Behavior.MaxExecutionTime > warnExecutionTimeMin {
		res.warnf("maxExecutionTime %d minutes is unusually large", cfg.Behavior.MaxExecutionTime)
	}
	if p.MaxCostPerDayUSD > warnMaxCostPerDayUSD {
		res.warnf("maxCostPerDayUSD %.2f is unusually large", p.MaxCostPerDayUSD)
	}

	return res
}

// ValidateStrict returns SCHEMA_INVALID when any business rule fails.
func ValidateStrict(cfg *AgentConfig) error {
	res := Validate(cfg)
	if !res.OK() {
		return errdefs.SchemaInvalid("config validation failed: %s", strings.Join(res.Errors, "; "))
	}
	return nil
}
