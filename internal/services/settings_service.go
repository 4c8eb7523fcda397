package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wakeel/internal/models"
)

// SettingsPatch updates a single policy field by name.
type SettingsPatch struct {
	Field string      `json:"field" binding:"required"`
	Value interface{} `json:"value"`
}

// patchAppliers is the whitelist of patchable fields. Unknown field
// names are rejected before any write.
var patchAppliers = map[string]func(p *models.UserPolicy, value interface{}) error{
	"auto_answer_enabled": func(p *models.UserPolicy, v interface{}) error {
		return applyBool(v, "auto_answer_enabled", &p.AutoAnswerEnabled)
	},
	"allowed_contacts": func(p *models.UserPolicy, v interface{}) error {
		list, err := toStringList(v, "allowed_contacts")
		if err != nil {
			return err
		}
		p.SetAllowedList(list)
		return nil
	},
	"blocked_contacts": func(p *models.UserPolicy, v interface{}) error {
		list, err := toStringList(v, "blocked_contacts")
		if err != nil {
			return err
		}
		p.SetBlockedList(list)
		return nil
	},
	"working_hours_only": func(p *models.UserPolicy, v interface{}) error {
		return applyBool(v, "working_hours_only", &p.WorkingHoursOnly)
	},
	"voice_speed": func(p *models.UserPolicy, v interface{}) error {
		return applyFloat(v, "voice_speed", &p.VoiceSpeed)
	},
	"voice_pitch": func(p *models.UserPolicy, v interface{}) error {
		return applyFloat(v, "voice_pitch", &p.VoicePitch)
	},
	"response_style": func(p *models.UserPolicy, v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return &ValidationError{Field: "response_style", Reason: "expected string"}
		}
		p.ResponseStyle = s
		return nil
	},
	"use_thinking_sounds": func(p *models.UserPolicy, v interface{}) error {
		return applyBool(v, "use_thinking_sounds", &p.UseThinkingSounds)
	},
	"save_recordings": func(p *models.UserPolicy, v interface{}) error {
		return applyBool(v, "save_recordings", &p.SaveRecordings)
	},
}

// SettingsService reads and writes user policies with range
// validation.
type SettingsService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewSettingsService(db *gorm.DB, logger *logrus.Logger) *SettingsService {
	return &SettingsService{db: db, logger: logger}
}

// Get returns the stored policy, or the defaults for a user without
// one. Defaults are not persisted until written.
func (s *SettingsService) Get(ctx context.Context, userID string) (*models.UserPolicy, error) {
	var policy models.UserPolicy
	err := s.db.WithContext(ctx).First(&policy, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DefaultUserPolicy(userID), nil
		}
		return nil, err
	}
	return &policy, nil
}

// Replace validates and upserts a full policy.
func (s *SettingsService) Replace(ctx context.Context, policy *models.UserPolicy) error {
	if err := ValidatePolicy(policy); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(policy).Error
}

// Patch updates one whitelisted field, re-validates the result, and
// saves it.
func (s *SettingsService) Patch(ctx context.Context, userID string, patch *SettingsPatch) (*models.UserPolicy, error) {
	apply, ok := patchAppliers[patch.Field]
	if !ok {
		return nil, &ValidationError{Field: patch.Field, Reason: "unknown field"}
	}

	policy, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := apply(policy, patch.Value); err != nil {
		return nil, err
	}
	if err := s.Replace(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// ValidatePolicy enforces the policy's range invariants.
func ValidatePolicy(p *models.UserPolicy) error {
	if p.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "required"}
	}
	if p.VoiceSpeed < 0.5 || p.VoiceSpeed > 2.0 {
		return &ValidationError{Field: "voice_speed", Reason: "must be in [0.5, 2.0]"}
	}
	if p.VoicePitch < 0.5 || p.VoicePitch > 1.5 {
		return &ValidationError{Field: "voice_pitch", Reason: "must be in [0.5, 1.5]"}
	}
	if p.ResponseDelayMinMS < 0 || p.ResponseDelayMinMS > 5000 {
		return &ValidationError{Field: "response_delay_min_ms", Reason: "must be in [0, 5000]"}
	}
	if p.ResponseDelayMaxMS < 0 || p.ResponseDelayMaxMS > 5000 {
		return &ValidationError{Field: "response_delay_max_ms", Reason: "must be in [0, 5000]"}
	}
	if p.ResponseDelayMinMS > p.ResponseDelayMaxMS {
		return &ValidationError{Field: "response_delay_min_ms", Reason: "min delay exceeds max delay"}
	}
	if p.AutoDeleteAfterHours < 1 || p.AutoDeleteAfterHours > 168 {
		return &ValidationError{Field: "auto_delete_after_hours", Reason: "must be in [1, 168]"}
	}
	return nil
}

func applyBool(v interface{}, field string, dst *bool) error {
	b, ok := v.(bool)
	if !ok {
		return &ValidationError{Field: field, Reason: "expected boolean"}
	}
	*dst = b
	return nil
}

func applyFloat(v interface{}, field string, dst *float64) error {
	// JSON numbers decode as float64; accept ints from static callers
	// too.
	switch n := v.(type) {
	case float64:
		*dst = n
	case int:
		*dst = float64(n)
	default:
		return &ValidationError{Field: field, Reason: "expected number"}
	}
	return nil
}

func toStringList(v interface{}, field string) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, &ValidationError{Field: field, Reason: "expected list of strings"}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, &ValidationError{Field: field, Reason: "expected list of strings"}
	}
}
