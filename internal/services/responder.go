package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"wakeel/internal/metrics"
	"wakeel/internal/models"
)

// AIReply is the orchestrated outcome of one generation attempt.
type AIReply struct {
	Text             string
	Emotion          models.EmotionType
	Confidence       float64
	RequiresFollowUp bool
	SuggestedActions []string
	ThinkingTimeMS   int
}

const fallbackReplyText = "عذراً، أنا مشغول حالياً. سأعاود الاتصال بك لاحقاً."

var thinkingPhrases = []string{
	"يعني... ",
	"خليني أفكر... ",
	"طب... ",
	"آه... ",
}

var followUpPhrases = []string{
	"سأعاود", "هكلمك", "راجعني", "هرد عليك", "انتظر", "لاحقاً", "غداً",
}

type actionRule struct {
	keyword string
	action  string
}

var actionRules = []actionRule{
	{"اتصل", "إعادة الاتصال"},
	{"رسالة", "إرسال رسالة"},
	{"اجتماع", "تحديد موعد"},
	{"موعد", "تحديد موعد"},
	{"تأكيد", "تأكيد الموعد"},
}

// ReplyEngine wraps the generation collaborator with emotion
// classification, follow-up detection, and the fixed fallback reply.
// A generation failure never escapes: the caller always gets a reply.
type ReplyEngine struct {
	generator GenerationProvider
	logger    *logrus.Logger
}

func NewReplyEngine(generator GenerationProvider, logger *logrus.Logger) *ReplyEngine {
	return &ReplyEngine{generator: generator, logger: logger}
}

// Reply generates the assistant's answer to one inbound utterance.
// Thinking time is the measured generation latency in milliseconds,
// unrelated to the presentation delay picked later.
func (e *ReplyEngine) Reply(ctx context.Context, inbound string, cc *ConversationContext, persona Persona) *AIReply {
	start := time.Now()

	messages := append(cc.PromptMessages(), ContextMessage{Role: "user", Content: inbound + callerTag(cc)})
	result, err := e.generator.Generate(ctx, messages, persona)
	if err != nil {
		e.logger.WithError(err).Warn("generation failed, using fallback reply")
		metrics.IncFallbackReply()
		return fallbackReply()
	}

	return &AIReply{
		Text:             result.Text,
		Emotion:          ClassifyEmotion(result.Text + " " + inbound),
		Confidence:       result.Confidence,
		RequiresFollowUp: needsFollowUp(result.Text),
		SuggestedActions: suggestedActions(result.Text),
		ThinkingTimeMS:   int(time.Since(start).Milliseconds()),
	}
}

// callerTag renders the caller metadata that travels with the inbound
// utterance so the model knows who it is talking to.
func callerTag(cc *ConversationContext) string {
	var b strings.Builder
	if cc.Relationship != "" {
		b.WriteString("\n[العلاقة: " + cc.Relationship + "]")
	}
	if cc.LastContact != "" {
		b.WriteString("\n[آخر تواصل: " + cc.LastContact + "]")
	}
	return b.String()
}

func fallbackReply() *AIReply {
	return &AIReply{
		Text:             fallbackReplyText,
		Emotion:          models.EmotionNeutral,
		Confidence:       0.5,
		RequiresFollowUp: true,
		SuggestedActions: []string{"اتصل لاحقاً"},
		ThinkingTimeMS:   500,
	}
}

func needsFollowUp(text string) bool {
	for _, phrase := range followUpPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func suggestedActions(text string) []string {
	var actions []string
	seen := make(map[string]bool)
	for _, rule := range actionRules {
		if strings.Contains(text, rule.keyword) && !seen[rule.action] {
			seen[rule.action] = true
			actions = append(actions, rule.action)
		}
	}
	return actions
}
