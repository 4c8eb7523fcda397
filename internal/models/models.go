package models

import (
	"strings"
	"time"
)

// CallStatus lifecycle of a call. Transitions are forward-only:
// incoming -> ongoing -> {completed, missed, rejected}.
type CallStatus string

const (
	CallStatusIncoming  CallStatus = "incoming"
	CallStatusOngoing   CallStatus = "ongoing"
	CallStatusCompleted CallStatus = "completed"
	CallStatusMissed    CallStatus = "missed"
	CallStatusRejected  CallStatus = "rejected"
)

// CanTransitionTo reports whether moving from s to next is a legal
// forward transition. Nothing ever goes back to incoming.
func (s CallStatus) CanTransitionTo(next CallStatus) bool {
	switch s {
	case CallStatusIncoming:
		return next == CallStatusOngoing || next == CallStatusCompleted ||
			next == CallStatusMissed || next == CallStatusRejected
	case CallStatusOngoing:
		return next == CallStatusCompleted || next == CallStatusMissed || next == CallStatusRejected
	default:
		return false
	}
}

type EmotionType string

const (
	EmotionHappy   EmotionType = "happy"
	EmotionNeutral EmotionType = "neutral"
	EmotionSad     EmotionType = "sad"
	EmotionAngry   EmotionType = "angry"
	EmotionWorried EmotionType = "worried"
	EmotionExcited EmotionType = "excited"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeVoice MessageType = "voice"
	MessageTypeMixed MessageType = "mixed"
)

type PriorityLevel string

const (
	PriorityLow    PriorityLevel = "low"
	PriorityMedium PriorityLevel = "medium"
	PriorityHigh   PriorityLevel = "high"
	PriorityUrgent PriorityLevel = "urgent"
)

const (
	RoleCaller    = "caller"
	RoleAssistant = "assistant"
)

// CallSession is the stateful record of one call from first contact to termination.
type CallSession struct {
	ID              string     `gorm:"primaryKey" json:"id"`
	UserID          string     `gorm:"index" json:"user_id"`
	CallerPhone     string     `gorm:"index" json:"caller_phone"`
	CallerName      string     `json:"caller_name"`
	Status          CallStatus `gorm:"default:'incoming'" json:"status"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds int        `json:"duration_seconds"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Turns   []Turn       `gorm:"foreignKey:SessionID" json:"turns,omitempty"`
	Summary *CallSummary `gorm:"foreignKey:SessionID" json:"summary,omitempty"`
}

// Turn is one utterance in a call, attributed to caller or assistant.
// Rows are append-only; ordering is insertion order.
type Turn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"index" json:"session_id"`
	Role      string    `json:"role"` // caller, assistant
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MessageRecord is one utterance in the per-contact conversation history,
// written by both the call and message flows and read back as generation context.
type MessageRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"index" json:"user_id"`
	ContactPhone string    `gorm:"index" json:"contact_phone"`
	Role         string    `json:"role"` // caller, assistant
	Content      string    `gorm:"type:text" json:"content"`
	Platform     string    `json:"platform"` // phone, whatsapp, sms, telegram
	CreatedAt    time.Time `json:"created_at"`
}

// UserPolicy holds the per-user answering policy and voice parameters.
// Contact sets are stored comma-separated; use the list helpers.
type UserPolicy struct {
	UserID string `gorm:"primaryKey" json:"user_id"`

	AutoAnswerEnabled bool   `json:"auto_answer_enabled"`
	AllowedContacts   string `json:"allowed_contacts"`
	BlockedContacts   string `json:"blocked_contacts"`
	WorkingHoursOnly  bool   `json:"working_hours_only"`
	WorkingHoursStart string `json:"working_hours_start"` // "09:00"
	WorkingHoursEnd   string `json:"working_hours_end"`   // "17:00"

	VoiceSpeed    float64 `json:"voice_speed"` // 0.5 - 2.0
	VoicePitch    float64 `json:"voice_pitch"` // 0.5 - 1.5
	ResponseStyle string  `json:"response_style"`

	UseThinkingSounds  bool `json:"use_thinking_sounds"`
	ResponseDelayMinMS int  `json:"response_delay_min_ms"` // 0 - 5000, min <= max
	ResponseDelayMaxMS int  `json:"response_delay_max_ms"`

	SaveRecordings       bool `json:"save_recordings"`
	AutoDeleteAfterHours int  `json:"auto_delete_after_hours"` // 1 - 168
	EncryptionEnabled    bool `json:"encryption_enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultUserPolicy is the policy applied when a user has nothing stored.
func DefaultUserPolicy(userID string) *UserPolicy {
	return &UserPolicy{
		UserID:               userID,
		AutoAnswerEnabled:    true,
		WorkingHoursStart:    "09:00",
		WorkingHoursEnd:      "17:00",
		VoiceSpeed:           1.0,
		VoicePitch:           1.0,
		ResponseStyle:        "friendly",
		UseThinkingSounds:    true,
		ResponseDelayMinMS:   800,
		ResponseDelayMaxMS:   2000,
		AutoDeleteAfterHours: 24,
		EncryptionEnabled:    true,
	}
}

// AllowedList returns the allow-set as a slice, empty entries dropped.
func (p *UserPolicy) AllowedList() []string { return splitContacts(p.AllowedContacts) }

// BlockedList returns the block-set as a slice, empty entries dropped.
func (p *UserPolicy) BlockedList() []string { return splitContacts(p.BlockedContacts) }

// SetAllowedList stores the allow-set, deduplicated, order preserved.
func (p *UserPolicy) SetAllowedList(contacts []string) {
	p.AllowedContacts = joinContacts(contacts)
}

// SetBlockedList stores the block-set, deduplicated, order preserved.
func (p *UserPolicy) SetBlockedList(contacts []string) {
	p.BlockedContacts = joinContacts(contacts)
}

func splitContacts(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func joinContacts(contacts []string) string {
	seen := make(map[string]bool, len(contacts))
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return strings.Join(out, ",")
}

// CallSummary is the derived analytical record produced once per completed
// session. Regeneration replaces the whole row, never parts of it.
type CallSummary struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	SessionID       string `gorm:"uniqueIndex" json:"session_id"`
	UserID          string `gorm:"index" json:"user_id"`
	CallerName      string `json:"caller_name"`
	CallerPhone     string `json:"caller_phone"`
	DurationSeconds int    `json:"duration_seconds"`

	MainTopics           []string      `gorm:"serializer:json" json:"main_topics"`
	KeyPoints            []string      `gorm:"serializer:json" json:"key_points"`
	CallerEmotion        EmotionType   `json:"caller_emotion"`
	CallerSentimentScore float64       `json:"caller_sentiment_score"` // -1.0 - 1.0
	PriorityLevel        PriorityLevel `json:"priority_level"`
	FollowUpSuggestions  []string      `gorm:"serializer:json" json:"follow_up_suggestions"`
	MentionedDates       []string      `gorm:"serializer:json" json:"mentioned_dates"`
	MentionedNames       []string      `gorm:"serializer:json" json:"mentioned_names"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
