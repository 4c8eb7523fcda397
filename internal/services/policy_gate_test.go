package services

import (
	"testing"
	"time"

	"wakeel/internal/models"
)

func gateTestTime(hhmm string) time.Time {
	t, _ := time.Parse("15:04", hhmm)
	return time.Date(2026, 3, 2, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

func TestPolicyGateEvaluate(t *testing.T) {
	gate := NewPolicyGate()

	tests := []struct {
		name    string
		setup   func(p *models.UserPolicy)
		caller  string
		at      string
		allowed bool
		reason  RejectionReason
	}{
		{
			name:    "defaults accept any caller",
			setup:   func(p *models.UserPolicy) {},
			caller:  "+201001234567",
			at:      "10:00",
			allowed: true,
		},
		{
			name: "auto answer disabled",
			setup: func(p *models.UserPolicy) {
				p.AutoAnswerEnabled = false
			},
			caller: "+201001234567",
			at:     "10:00",
			reason: RejectDisabled,
		},
		{
			name: "allow list miss",
			setup: func(p *models.UserPolicy) {
				p.SetAllowedList([]string{"+201111111111"})
			},
			caller: "+201001234567",
			at:     "10:00",
			reason: RejectNotAllowed,
		},
		{
			name: "allow list hit",
			setup: func(p *models.UserPolicy) {
				p.SetAllowedList([]string{"+201001234567"})
			},
			caller:  "+201001234567",
			at:      "10:00",
			allowed: true,
		},
		{
			name: "block list hit",
			setup: func(p *models.UserPolicy) {
				p.SetBlockedList([]string{"+201001234567"})
			},
			caller: "+201001234567",
			at:     "10:00",
			reason: RejectBlocked,
		},
		{
			name: "disabled wins over block list",
			setup: func(p *models.UserPolicy) {
				p.AutoAnswerEnabled = false
				p.SetBlockedList([]string{"+201001234567"})
			},
			caller: "+201001234567",
			at:     "10:00",
			reason: RejectDisabled,
		},
		{
			name: "allow list wins over block list",
			setup: func(p *models.UserPolicy) {
				p.SetAllowedList([]string{"+201111111111"})
				p.SetBlockedList([]string{"+201001234567"})
			},
			caller: "+201001234567",
			at:     "10:00",
			reason: RejectNotAllowed,
		},
		{
			name: "outside working hours",
			setup: func(p *models.UserPolicy) {
				p.WorkingHoursOnly = true
			},
			caller: "+201001234567",
			at:     "22:30",
			reason: RejectOutsideHours,
		},
		{
			name: "inside working hours",
			setup: func(p *models.UserPolicy) {
				p.WorkingHoursOnly = true
			},
			caller:  "+201001234567",
			at:      "12:00",
			allowed: true,
		},
		{
			name: "working hours ignored when flag off",
			setup: func(p *models.UserPolicy) {
				p.WorkingHoursOnly = false
			},
			caller:  "+201001234567",
			at:      "22:30",
			allowed: true,
		},
		{
			name: "overnight window wraps midnight",
			setup: func(p *models.UserPolicy) {
				p.WorkingHoursOnly = true
				p.WorkingHoursStart = "22:00"
				p.WorkingHoursEnd = "06:00"
			},
			caller:  "+201001234567",
			at:      "02:00",
			allowed: true,
		},
		{
			name: "overnight window rejects afternoon",
			setup: func(p *models.UserPolicy) {
				p.WorkingHoursOnly = true
				p.WorkingHoursStart = "22:00"
				p.WorkingHoursEnd = "06:00"
			},
			caller: "+201001234567",
			at:     "14:00",
			reason: RejectOutsideHours,
		},
		{
			name: "unparseable window fails open",
			setup: func(p *models.UserPolicy) {
				p.WorkingHoursOnly = true
				p.WorkingHoursStart = "not-a-time"
			},
			caller:  "+201001234567",
			at:      "23:00",
			allowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := models.DefaultUserPolicy("user-1")
			tt.setup(policy)

			decision := gate.Evaluate(policy, tt.caller, gateTestTime(tt.at))
			if decision.Allowed != tt.allowed {
				t.Fatalf("allowed = %v, want %v", decision.Allowed, tt.allowed)
			}
			if !tt.allowed && decision.Reason != tt.reason {
				t.Errorf("reason = %q, want %q", decision.Reason, tt.reason)
			}
		})
	}
}
