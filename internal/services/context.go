package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wakeel/internal/models"
)

const (
	callHistoryLimit    = 10
	messageHistoryLimit = 20
	promptTurnLimit     = 5

	defaultRelationship = "معرفة"
)

// ConversationContext is the bounded window and relationship metadata
// the orchestrator hands to the generation collaborator.
type ConversationContext struct {
	UserID       string
	ContactPhone string
	Relationship string
	// LastContact is when this counterpart was last heard from,
	// empty when there is no prior history.
	LastContact string
	History     []ContextMessage
}

// PromptMessages returns the tail of the history that actually goes
// into the prompt.
func (c *ConversationContext) PromptMessages() []ContextMessage {
	if len(c.History) <= promptTurnLimit {
		return c.History
	}
	return c.History[len(c.History)-promptTurnLimit:]
}

// ContextAssembler loads recent conversation history between a user
// and a counterpart from the store.
type ContextAssembler struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewContextAssembler(db *gorm.DB, logger *logrus.Logger) *ContextAssembler {
	return &ContextAssembler{db: db, logger: logger}
}

// AssembleForCall builds the context window for a voice call.
func (a *ContextAssembler) AssembleForCall(ctx context.Context, userID, contactPhone string) (*ConversationContext, error) {
	return a.assemble(ctx, userID, contactPhone, callHistoryLimit)
}

// AssembleForMessage builds the wider context window used for text
// messages.
func (a *ContextAssembler) AssembleForMessage(ctx context.Context, userID, contactPhone string) (*ConversationContext, error) {
	return a.assemble(ctx, userID, contactPhone, messageHistoryLimit)
}

func (a *ContextAssembler) assemble(ctx context.Context, userID, contactPhone string, limit int) (*ConversationContext, error) {
	var records []models.MessageRecord
	err := a.db.WithContext(ctx).
		Where("user_id = ? AND contact_phone = ?", userID, contactPhone).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	// Records come back newest-first; the prompt wants chronological
	// order.
	history := make([]ContextMessage, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		role := "user"
		if records[i].Role == models.RoleAssistant {
			role = "assistant"
		}
		history = append(history, ContextMessage{Role: role, Content: records[i].Content})
	}

	lastContact := ""
	if len(records) > 0 {
		// Records are newest-first at this point.
		lastContact = records[0].CreatedAt.Format("2006-01-02 15:04")
	}

	return &ConversationContext{
		UserID:       userID,
		ContactPhone: contactPhone,
		Relationship: defaultRelationship,
		LastContact:  lastContact,
		History:      history,
	}, nil
}
