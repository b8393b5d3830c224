package models

import (
	"strings"
	"testing"
)

func TestAgentStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status AgentStatus
		want   bool
	}{
		{"active is valid", AgentStatusActive, true},
		{"paused is valid", AgentStatusPaused, true},
		{"fired is valid", AgentStatusFired, true},
		{"empty string is invalid", AgentStatus(""), false},
		{"unknown status is invalid", AgentStatus("retired"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("AgentStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestAuditAction_Valid(t *testing.T) {
	tests := []struct {
		name   string
		action AuditAction
		want   bool
	}{
		{"HIRE is valid", AuditHire, true},
		{"FIRE is valid", AuditFire, true},
		{"PAUSE is valid", AuditPause, true},
		{"RESUME is valid", AuditResume, true},
		{"CONFIG_UPDATE is valid", AuditConfigUpdate, true},
		{"TASK_CREATE is valid", AuditTaskCreate, true},
		{"TASK_UPDATE is valid", AuditTaskUpdate, true},
		{"TASK_COMPLETE is valid", AuditTaskComplete, true},
		{"DELEGATE is valid", AuditDelegate, true},
		{"SYSTEM_ESCALATION is valid", AuditSystemEscalation, true},
		{"any SYSTEM_ action is valid", AuditAction("SYSTEM_CLEANUP"), true},
		{"empty string is invalid", AuditAction(""), false},
		{"lowercase hire is invalid", AuditAction("hire"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.Valid(); got != tt.want {
				t.Errorf("AuditAction(%q).Valid() = %v, want %v", tt.action, got, tt.want)
			}
		})
	}
}

func TestMessageEnums_Valid(t *testing.T) {
	for _, p := range []MessagePriority{MessagePriorityLow, MessagePriorityNormal, MessagePriorityHigh, MessagePriorityUrgent} {
		if !p.Valid() {
			t.Errorf("MessagePriority(%q).Valid() = false, want true", p)
		}
	}
	if MessagePriority("medium").Valid() {
		t.Error("message priority medium should be invalid (task priority only)")
	}
	for _, c := range []MessageChannel{MessageChannelInternal, MessageChannelSlack, MessageChannelTelegram, MessageChannelEmail} {
		if !c.Valid() {
			t.Errorf("MessageChannel(%q).Valid() = false, want true", c)
		}
	}
	if MessageChannel("sms").Valid() {
		t.Error("channel sms should be invalid")
	}
}

func TestTriggerType_Valid(t *testing.T) {
	for _, tr := range []TriggerType{TriggerContinuous, TriggerCron, TriggerReactive} {
		if !tr.Valid() {
			t.Errorf("TriggerType(%q).Valid() = false, want true", tr)
		}
	}
	if TriggerType("interval").Valid() {
		t.Error("trigger type interval should be invalid")
	}
}

func TestHierarchyEntry_PathConvention(t *testing.T) {
	e := HierarchyEntry{AgentID: "dev-1", AncestorID: "ceo", Depth: 2, Path: "ceo/cto/developer"}
	if parts := strings.Split(e.Path, "/"); len(parts) != e.Depth+1 {
		t.Errorf("path %q should have depth+1 = %d segments, got %d", e.Path, e.Depth+1, len(parts))
	}
}
