package services

import (
	"time"

	"wakeel/internal/models"
)

// GateDecision is the result of admission control for an inbound call.
type GateDecision struct {
	Allowed bool
	Reason  RejectionReason
}

// PolicyGate decides whether the assistant answers an inbound call.
// Checks run in a fixed order and the first failing one wins:
// auto-answer disabled, allow-list miss, block-list hit, outside the
// working-hours window.
type PolicyGate struct{}

func NewPolicyGate() *PolicyGate {
	return &PolicyGate{}
}

// Evaluate applies the user's policy to a caller at the given time.
func (g *PolicyGate) Evaluate(policy *models.UserPolicy, callerPhone string, now time.Time) GateDecision {
	if !policy.AutoAnswerEnabled {
		return GateDecision{Reason: RejectDisabled}
	}

	if allowed := policy.AllowedList(); len(allowed) > 0 && !contains(allowed, callerPhone) {
		return GateDecision{Reason: RejectNotAllowed}
	}

	if contains(policy.BlockedList(), callerPhone) {
		return GateDecision{Reason: RejectBlocked}
	}

	if policy.WorkingHoursOnly && policy.WorkingHoursStart != "" && policy.WorkingHoursEnd != "" {
		if !withinWindow(policy.WorkingHoursStart, policy.WorkingHoursEnd, now) {
			return GateDecision{Reason: RejectOutsideHours}
		}
	}

	return GateDecision{Allowed: true}
}

// withinWindow checks a "HH:MM" window. A window whose end precedes its
// start wraps past midnight. Unparseable bounds fail open so a bad
// setting never silences the assistant.
func withinWindow(start, end string, now time.Time) bool {
	startT, err := time.Parse("15:04", start)
	if err != nil {
		return true
	}
	endT, err := time.Parse("15:04", end)
	if err != nil {
		return true
	}

	cur := now.Hour()*60 + now.Minute()
	s := startT.Hour()*60 + startT.Minute()
	e := endT.Hour()*60 + endT.Minute()

	if s <= e {
		return cur >= s && cur < e
	}
	return cur >= s || cur < e
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
