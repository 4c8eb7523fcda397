package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wakeel/internal/config"
	"wakeel/internal/metrics"
	"wakeel/internal/models"
	"wakeel/pkg/utils"
)

const defaultHistoryLimit = 50

// CallRequest is the inbound-call payload.
type CallRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	CallerPhone string `json:"caller_phone" binding:"required"`
	CallerName  string `json:"caller_name"`
	AudioData   string `json:"audio_data"`
}

// CallResponse is what the app plays back to the caller.
type CallResponse struct {
	CallID        string             `json:"call_id"`
	ResponseAudio string             `json:"response_audio"`
	ResponseText  string             `json:"response_text"`
	Emotion       models.EmotionType `json:"emotion"`
	DelayMS       int                `json:"delay_ms"`
	ThinkingSound string             `json:"thinking_sound,omitempty"`
}

// CallServiceOptions wire the orchestrator's collaborators.
type CallServiceOptions struct {
	Gate        *PolicyGate
	Assembler   *ContextAssembler
	Engine      *ReplyEngine
	Transcriber TranscriptionProvider
	Synthesizer SynthesisProvider
	Analyzer    *Analyzer
	Dispatcher  *Dispatcher
	Events      *EventHub
	Chance      Chance
	Assistant   config.AssistantConfig
	Language    string
	Voice       string
}

// CallService sequences transcription, context assembly, generation,
// and synthesis for inbound calls, then hands persistence and
// summarization to the background dispatcher.
type CallService struct {
	db     *gorm.DB
	logger *logrus.Logger

	gate        *PolicyGate
	assembler   *ContextAssembler
	engine      *ReplyEngine
	transcriber TranscriptionProvider
	synthesizer SynthesisProvider
	analyzer    *Analyzer
	dispatcher  *Dispatcher
	events      *EventHub
	chance      Chance
	assistant   config.AssistantConfig
	language    string
	voice       string

	now func() time.Time
}

func NewCallService(db *gorm.DB, logger *logrus.Logger, opts CallServiceOptions) *CallService {
	if opts.Gate == nil {
		opts.Gate = NewPolicyGate()
	}
	if opts.Chance == nil {
		opts.Chance = NewChance()
	}
	return &CallService{
		db:          db,
		logger:      logger,
		gate:        opts.Gate,
		assembler:   opts.Assembler,
		engine:      opts.Engine,
		transcriber: opts.Transcriber,
		synthesizer: opts.Synthesizer,
		analyzer:    opts.Analyzer,
		dispatcher:  opts.Dispatcher,
		events:      opts.Events,
		chance:      opts.Chance,
		assistant:   opts.Assistant,
		language:    opts.Language,
		voice:       opts.Voice,
		now:         time.Now,
	}
}

// HandleIncoming answers one inbound call. The reply is fully built
// before any turn is persisted; saving happens on the background path
// after the response is on its way out.
func (s *CallService) HandleIncoming(ctx context.Context, req *CallRequest) (*CallResponse, error) {
	log := s.logger.WithFields(logrus.Fields{
		"user_id":      req.UserID,
		"caller_phone": req.CallerPhone,
	})
	log.Info("incoming call")

	policy, err := s.loadPolicy(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	decision := s.gate.Evaluate(policy, req.CallerPhone, s.now())
	if !decision.Allowed {
		log.WithField("reason", decision.Reason).Info("call rejected by policy")
		s.recordRejected(ctx, req)
		metrics.IncCallRejected(string(decision.Reason))
		s.publish(EventCallRejected, req.UserID, map[string]interface{}{"caller_phone": req.CallerPhone, "reason": string(decision.Reason)})
		return nil, &PolicyRejectionError{Reason: decision.Reason}
	}

	session := &models.CallSession{
		ID:          utils.GenerateCallID(),
		UserID:      req.UserID,
		CallerPhone: req.CallerPhone,
		CallerName:  req.CallerName,
		Status:      models.CallStatusIncoming,
		StartTime:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("create call session: %w", err)
	}
	if err := s.transition(ctx, session, models.CallStatusOngoing); err != nil {
		return nil, err
	}

	callerText := s.assistant.DefaultGreeting
	if req.AudioData != "" {
		text, err := s.transcriber.Transcribe(ctx, req.AudioData, s.language)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
		}
		callerText = text
		log.Infof("caller said: %s", utils.TruncateRunes(callerText, 100))
	}

	cc, err := s.assembler.AssembleForCall(ctx, req.UserID, req.CallerPhone)
	if err != nil {
		return nil, fmt.Errorf("assemble context: %w", err)
	}

	persona := Persona{
		Tone:    policy.ResponseStyle,
		Style:   "مباشر وواضح",
		Dialect: s.assistant.Dialect,
	}
	reply := s.engine.Reply(ctx, callerText, cc, persona)

	delayMS := s.pickDelay(policy)

	finalText := reply.Text
	thinkingSound := ""
	if policy.UseThinkingSounds && s.chance.Float64() < s.assistant.ThinkingProbabilityCall {
		phrase := thinkingPhrases[s.chance.IntN(len(thinkingPhrases))]
		finalText = phrase + finalText
		thinkingSound = phrase
	}

	prosody := DeriveProsody(reply.Emotion, policy.VoiceSpeed)
	audio, err := s.synthesizer.Synthesize(ctx, finalText, SynthesisParams{
		Voice:  s.voice,
		Rate:   prosody.Rate,
		Pitch:  prosody.Pitch,
		Volume: "+0%",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	s.enqueueTurnSave(session.ID, req, callerText, finalText)
	metrics.IncCallAnswered()
	s.publish(EventCallAnswered, req.UserID, map[string]interface{}{
		"call_id":      session.ID,
		"caller_phone": req.CallerPhone,
		"emotion":      reply.Emotion,
	})

	return &CallResponse{
		CallID:        session.ID,
		ResponseAudio: audio,
		ResponseText:  finalText,
		Emotion:       reply.Emotion,
		DelayMS:       delayMS,
		ThinkingSound: thinkingSound,
	}, nil
}

// EndCall completes a session and schedules summarization. The status
// write is synchronous; the summary job is enqueued only after it has
// returned, so the analyzer always sees the final state.
func (s *CallService) EndCall(ctx context.Context, callID, userID string, durationSeconds int) error {
	var session models.CallSession
	err := s.db.WithContext(ctx).First(&session, "id = ? AND user_id = ?", callID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCallNotFound
		}
		return err
	}

	if !session.Status.CanTransitionTo(models.CallStatusCompleted) {
		return fmt.Errorf("%w: %s -> completed", ErrInvalidTransition, session.Status)
	}

	endTime := s.now()
	err = s.db.WithContext(ctx).Model(&session).Updates(map[string]interface{}{
		"status":           models.CallStatusCompleted,
		"duration_seconds": durationSeconds,
		"end_time":         endTime,
	}).Error
	if err != nil {
		return fmt.Errorf("complete call session: %w", err)
	}

	s.publish(EventCallEnded, userID, map[string]interface{}{"call_id": callID, "duration_seconds": durationSeconds})

	s.dispatcher.Enqueue(Job{
		Name: "summarize_call",
		Run: func(jobCtx context.Context) error {
			if err := s.analyzer.SummarizeAndStore(jobCtx, callID); err != nil {
				return err
			}
			s.publish(EventSummaryReady, userID, map[string]interface{}{"call_id": callID})
			return nil
		},
	})
	return nil
}

// Summary returns the stored summary for a completed call.
func (s *CallService) Summary(ctx context.Context, callID string) (*models.CallSummary, error) {
	var summary models.CallSummary
	err := s.db.WithContext(ctx).First(&summary, "session_id = ?", callID).Error
	if err == nil {
		return &summary, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.CallSession{}).Where("id = ?", callID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrCallNotFound
	}
	return nil, ErrSummaryNotReady
}

// History lists a user's sessions, newest first.
func (s *CallService) History(ctx context.Context, userID string, limit int, dateFrom string) ([]models.CallSession, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if dateFrom != "" {
		from, err := time.Parse("2006-01-02", dateFrom)
		if err != nil {
			return nil, &ValidationError{Field: "date_from", Reason: "expected YYYY-MM-DD"}
		}
		query = query.Where("start_time >= ?", from)
	}

	var sessions []models.CallSession
	err := query.Preload("Summary").Order("start_time DESC").Limit(limit).Find(&sessions).Error
	return sessions, err
}

func (s *CallService) loadPolicy(ctx context.Context, userID string) (*models.UserPolicy, error) {
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

func (s *CallService) transition(ctx context.Context, session *models.CallSession, to models.CallStatus) error {
	if !session.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, session.Status, to)
	}
	if err := s.db.WithContext(ctx).Model(session).Update("status", to).Error; err != nil {
		return fmt.Errorf("update call status: %w", err)
	}
	session.Status = to
	return nil
}

// recordRejected keeps a trace of denied calls for reporting.
// Best-effort: a store failure here must not change the rejection.
func (s *CallService) recordRejected(ctx context.Context, req *CallRequest) {
	session := &models.CallSession{
		ID:          utils.GenerateCallID(),
		UserID:      req.UserID,
		CallerPhone: req.CallerPhone,
		CallerName:  req.CallerName,
		Status:      models.CallStatusRejected,
		StartTime:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		s.logger.WithError(err).Warn("failed to record rejected call")
	}
}

func (s *CallService) pickDelay(policy *models.UserPolicy) int {
	min, max := policy.ResponseDelayMinMS, policy.ResponseDelayMaxMS
	if max < min {
		max = min
	}
	return min + s.chance.IntN(max-min+1)
}

func (s *CallService) enqueueTurnSave(sessionID string, req *CallRequest, callerText, assistantText string) {
	s.dispatcher.Enqueue(Job{
		Name: "save_call_turns",
		Run: func(jobCtx context.Context) error {
			turns := []models.Turn{
				{SessionID: sessionID, Role: models.RoleCaller, Content: callerText},
				{SessionID: sessionID, Role: models.RoleAssistant, Content: assistantText},
			}
			if err := s.db.WithContext(jobCtx).Create(&turns).Error; err != nil {
				return fmt.Errorf("save turns: %w", err)
			}

			records := []models.MessageRecord{
				{UserID: req.UserID, ContactPhone: req.CallerPhone, Role: models.RoleCaller, Content: callerText, Platform: "call"},
				{UserID: req.UserID, ContactPhone: req.CallerPhone, Role: models.RoleAssistant, Content: assistantText, Platform: "call"},
			}
			return s.db.WithContext(jobCtx).Create(&records).Error
		},
	})
}

func (s *CallService) publish(eventType, userID string, data interface{}) {
	if s.events != nil {
		s.events.Publish(eventType, userID, data)
	}
}

