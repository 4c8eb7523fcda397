package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wakeel/internal/config"
	"wakeel/internal/metrics"
	"wakeel/internal/models"
	"wakeel/pkg/utils"
)

// MessageRequest is an inbound text or voice message.
type MessageRequest struct {
	UserID      string             `json:"user_id" binding:"required"`
	SenderPhone string             `json:"sender_phone" binding:"required"`
	MessageText string             `json:"message_text"`
	AudioData   string             `json:"audio_data"`
	MessageType models.MessageType `json:"message_type"`
	Platform    string             `json:"platform"`
}

// MessageResponse is the reply the app sends back on the messaging
// platform.
type MessageResponse struct {
	MessageID       string             `json:"message_id"`
	ResponseText    string             `json:"response_text"`
	Emotion         models.EmotionType `json:"emotion"`
	SendImmediately bool               `json:"send_immediately"`
	DelaySeconds    *int               `json:"delay_seconds"`
}

// MessageServiceOptions wire the message flow's collaborators.
type MessageServiceOptions struct {
	Assembler   *ContextAssembler
	Engine      *ReplyEngine
	Transcriber TranscriptionProvider
	Dispatcher  *Dispatcher
	Chance      Chance
	Assistant   config.AssistantConfig
	Language    string
}

// MessageService answers text messages. Unlike calls there is no
// admission gate and no synthesis; the reply goes out as text.
type MessageService struct {
	db     *gorm.DB
	logger *logrus.Logger

	assembler   *ContextAssembler
	engine      *ReplyEngine
	transcriber TranscriptionProvider
	dispatcher  *Dispatcher
	chance      Chance
	assistant   config.AssistantConfig
	language    string
}

func NewMessageService(db *gorm.DB, logger *logrus.Logger, opts MessageServiceOptions) *MessageService {
	if opts.Chance == nil {
		opts.Chance = NewChance()
	}
	return &MessageService{
		db:          db,
		logger:      logger,
		assembler:   opts.Assembler,
		engine:      opts.Engine,
		transcriber: opts.Transcriber,
		dispatcher:  opts.Dispatcher,
		chance:      opts.Chance,
		assistant:   opts.Assistant,
		language:    opts.Language,
	}
}

// Handle answers one inbound message and persists the exchange on the
// background path.
func (s *MessageService) Handle(ctx context.Context, req *MessageRequest) (*MessageResponse, error) {
	log := s.logger.WithFields(logrus.Fields{
		"user_id":      req.UserID,
		"sender_phone": req.SenderPhone,
		"platform":     req.Platform,
	})
	log.Info("incoming message")

	messageText := req.MessageText
	if req.MessageType == models.MessageTypeVoice && req.AudioData != "" {
		text, err := s.transcriber.Transcribe(ctx, req.AudioData, s.language)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
		}
		messageText = text
	}

	cc, err := s.assembler.AssembleForMessage(ctx, req.UserID, req.SenderPhone)
	if err != nil {
		return nil, fmt.Errorf("assemble context: %w", err)
	}

	policy, err := s.loadPolicy(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	persona := Persona{
		Tone:    policy.ResponseStyle,
		Style:   "مباشر وواضح",
		Dialect: s.assistant.Dialect,
	}
	reply := s.engine.Reply(ctx, messageText, cc, persona)

	finalText := reply.Text
	if policy.UseThinkingSounds && s.chance.Float64() < s.assistant.ThinkingProbabilityMessage {
		finalText = thinkingPhrases[s.chance.IntN(len(thinkingPhrases))] + finalText
	}

	s.enqueueSave(req, messageText, finalText)
	metrics.IncMessageHandled()

	return &MessageResponse{
		MessageID:       utils.GenerateMessageID(),
		ResponseText:    finalText,
		Emotion:         reply.Emotion,
		SendImmediately: true,
		DelaySeconds:    nil,
	}, nil
}

func (s *MessageService) loadPolicy(ctx context.Context, userID string) (*models.UserPolicy, error) {
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

func (s *MessageService) enqueueSave(req *MessageRequest, inbound, outbound string) {
	platform := req.Platform
	if platform == "" {
		platform = "sms"
	}
	s.dispatcher.Enqueue(Job{
		Name: "save_message_exchange",
		Run: func(jobCtx context.Context) error {
			records := []models.MessageRecord{
				{UserID: req.UserID, ContactPhone: req.SenderPhone, Role: models.RoleCaller, Content: inbound, Platform: platform},
				{UserID: req.UserID, ContactPhone: req.SenderPhone, Role: models.RoleAssistant, Content: outbound, Platform: platform},
			}
			return s.db.WithContext(jobCtx).Create(&records).Error
		},
	})
}
