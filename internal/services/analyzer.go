package services

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wakeel/internal/metrics"
	"wakeel/internal/models"
	"wakeel/pkg/utils"
)

const (
	keyPointCharCap = 100
	keyPointCap     = 5
	nameCap         = 5

	defaultTopic    = "general"
	defaultFollowUp = "no action needed"
)

// topicRule maps a topic label to the keywords that trigger it. Rules
// are checked in order and every match contributes its topic.
type topicRule struct {
	topic    string
	keywords []string
}

var topicRules = []topicRule{
	{"موعد", []string{"موعد", "اجتماع", "لقاء", "مقابلة"}},
	{"عمل", []string{"عمل", "مشروع", "مهمة", "اجتماع عمل", "شغل"}},
	{"استفسار", []string{"سؤال", "استفسار", "عايز أعرف", "ممكن تقولي"}},
	{"شكوى", []string{"مشكلة", "شكوى", "زعلان", "غير راضي"}},
	{"طلب", []string{"محتاج", "عايز", "ممكن", "طلب"}},
	{"تأكيد", []string{"تأكيد", "متأكد", "صح", "موافق"}},
	{"إلغاء", []string{"إلغاء", "مش هينفع", "معلش", "أسف"}},
}

var importanceMarkers = []string{"مهم جداً", "لازم", "ضروري", "لا تنسى", "تذكر", "انتبه"}

var (
	urgentKeywords = []string{"عاجل", "مستعجل", "ضروري", "فوراً", "حالاً", "الآن"}
	highKeywords   = []string{"مهم", "أولوية", "لازم"}
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
	regexp.MustCompile(`\d{1,2}-\d{1,2}-\d{4}`),
	regexp.MustCompile(`يوم \p{L}+`),
	regexp.MustCompile(`غداً`),
	regexp.MustCompile(`بعد غد`),
	regexp.MustCompile(`الأسبوع القادم`),
	regexp.MustCompile(`الشهر القادم`),
}

// Honorific prefixes; the token after the honorific is taken as the
// name. Not real NER.
var honorificPatterns = []*regexp.Regexp{
	regexp.MustCompile(`أستاذ \p{L}+`),
	regexp.MustCompile(`دكتور \p{L}+`),
	regexp.MustCompile(`الأخ \p{L}+`),
	regexp.MustCompile(`الأستاذة \p{L}+`),
}

var latinNamePattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

var sentimentLabelToEmotion = map[string]models.EmotionType{
	"positive": models.EmotionHappy,
	"negative": models.EmotionSad,
	"neutral":  models.EmotionNeutral,
	"angry":    models.EmotionAngry,
	"worried":  models.EmotionWorried,
	"excited":  models.EmotionExcited,
}

// followUpRule adds a suggestion when its predicate holds. The rule
// list is evaluated in full, never short-circuited.
type followUpRule struct {
	applies    func(fullText string, emotion models.EmotionType) bool
	suggestion string
}

var followUpRules = []followUpRule{
	{
		applies: func(text string, _ models.EmotionType) bool {
			return strings.Contains(text, "موعد") || strings.Contains(text, "اجتماع")
		},
		suggestion: "confirm the appointment and send the details by message",
	},
	{
		applies: func(text string, _ models.EmotionType) bool {
			return strings.Contains(text, "مشكلة") || strings.Contains(text, "شكوى")
		},
		suggestion: "follow up on the reported problem",
	},
	{
		applies: func(text string, _ models.EmotionType) bool {
			return strings.Contains(text, "سؤال") || strings.Contains(text, "استفسار")
		},
		suggestion: "send the detailed answer",
	},
	{
		applies: func(_ string, emotion models.EmotionType) bool {
			return emotion == models.EmotionAngry
		},
		suggestion: "call back to apologize and resolve the issue",
	},
	{
		applies: func(_ string, emotion models.EmotionType) bool {
			return emotion == models.EmotionWorried
		},
		suggestion: "reassure the caller and offer support",
	},
}

// Analyzer produces a CallSummary from a finished session transcript
// using rule tables plus one sentiment call.
type Analyzer struct {
	db        *gorm.DB
	sentiment SentimentProvider
	logger    *logrus.Logger
}

func NewAnalyzer(db *gorm.DB, sentiment SentimentProvider, logger *logrus.Logger) *Analyzer {
	return &Analyzer{db: db, sentiment: sentiment, logger: logger}
}

// Summarize builds the summary for a session whose Turns are loaded.
// It never fails: a sentiment collaborator error degrades to the
// minimal summary.
func (a *Analyzer) Summarize(ctx context.Context, session *models.CallSession) *models.CallSummary {
	fullText := transcriptText(session.Turns)

	callerText := callerOnlyText(session.Turns)
	label, score, err := a.sentiment.AnalyzeSentiment(ctx, callerText)
	if err != nil {
		a.logger.WithError(err).WithField("call_id", session.ID).
			Warn("sentiment analysis failed, producing minimal summary")
		return a.minimalSummary(session)
	}

	emotion, ok := sentimentLabelToEmotion[strings.ToLower(label)]
	if !ok {
		emotion = models.EmotionNeutral
	}

	keyPoints := extractKeyPoints(session.Turns)

	return &models.CallSummary{
		SessionID:            session.ID,
		UserID:               session.UserID,
		CallerName:           session.CallerName,
		CallerPhone:          session.CallerPhone,
		DurationSeconds:      session.DurationSeconds,
		MainTopics:           extractTopics(fullText),
		KeyPoints:            keyPoints,
		CallerEmotion:        emotion,
		CallerSentimentScore: score,
		MentionedDates:       extractDates(fullText),
		MentionedNames:       extractNames(fullText),
		FollowUpSuggestions:  buildFollowUps(fullText, emotion),
		PriorityLevel:        determinePriority(fullText, score, len(keyPoints)),
	}
}

// SummarizeAndStore loads the session, builds its summary, and upserts
// it. A regenerated summary replaces the previous one wholesale.
func (a *Analyzer) SummarizeAndStore(ctx context.Context, sessionID string) error {
	var session models.CallSession
	err := a.db.WithContext(ctx).
		Preload("Turns", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&session, "id = ?", sessionID).Error
	if err != nil {
		return err
	}

	summary := a.Summarize(ctx, &session)

	err = a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			UpdateAll: true,
		}).
		Create(summary).Error
	if err == nil {
		metrics.IncSummaryBuilt()
	}
	return err
}

func (a *Analyzer) minimalSummary(session *models.CallSession) *models.CallSummary {
	return &models.CallSummary{
		SessionID:            session.ID,
		UserID:               session.UserID,
		CallerName:           session.CallerName,
		CallerPhone:          session.CallerPhone,
		DurationSeconds:      session.DurationSeconds,
		MainTopics:           []string{defaultTopic},
		KeyPoints:            []string{},
		CallerEmotion:        models.EmotionNeutral,
		CallerSentimentScore: 0,
		MentionedDates:       []string{},
		MentionedNames:       []string{},
		FollowUpSuggestions:  []string{defaultFollowUp},
		PriorityLevel:        models.PriorityMedium,
	}
}

func transcriptText(turns []models.Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.Content)
	}
	return strings.Join(parts, " ")
}

func callerOnlyText(turns []models.Turn) string {
	var parts []string
	for _, t := range turns {
		if t.Role == models.RoleCaller {
			parts = append(parts, t.Content)
		}
	}
	return strings.Join(parts, " ")
}

func extractTopics(fullText string) []string {
	var topics []string
	for _, rule := range topicRules {
		for _, kw := range rule.keywords {
			if strings.Contains(fullText, kw) {
				topics = append(topics, rule.topic)
				break
			}
		}
	}
	if len(topics) == 0 {
		return []string{defaultTopic}
	}
	return topics
}

func extractKeyPoints(turns []models.Turn) []string {
	var points []string
	for _, t := range turns {
		if containsAny(t.Content, importanceMarkers) || containsDigit(t.Content) {
			points = append(points, utils.TruncateRunes(t.Content, keyPointCharCap))
		}
	}
	if len(points) > keyPointCap {
		points = points[:keyPointCap]
	}
	return points
}

func extractDates(text string) []string {
	seen := make(map[string]bool)
	var dates []string
	for _, pattern := range datePatterns {
		for _, m := range pattern.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				dates = append(dates, m)
			}
		}
	}
	return dates
}

func extractNames(text string) []string {
	seen := make(map[string]bool)
	var names []string

	add := func(name string) {
		if name != "" && !seen[name] && len(names) < nameCap {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, m := range latinNamePattern.FindAllString(text, -1) {
		add(m)
	}
	for _, pattern := range honorificPatterns {
		for _, m := range pattern.FindAllString(text, -1) {
			fields := strings.Fields(m)
			add(fields[len(fields)-1])
		}
	}
	return names
}

func buildFollowUps(fullText string, emotion models.EmotionType) []string {
	seen := make(map[string]bool)
	var suggestions []string
	for _, rule := range followUpRules {
		if rule.applies(fullText, emotion) && !seen[rule.suggestion] {
			seen[rule.suggestion] = true
			suggestions = append(suggestions, rule.suggestion)
		}
	}
	if len(suggestions) == 0 {
		return []string{defaultFollowUp}
	}
	return suggestions
}

// determinePriority runs the ordered cascade; the first matching rule
// wins, so a very negative sentiment outranks keyword checks.
func determinePriority(fullText string, sentimentScore float64, keyPointCount int) models.PriorityLevel {
	switch {
	case sentimentScore < -0.5:
		return models.PriorityUrgent
	case containsAny(fullText, urgentKeywords):
		return models.PriorityUrgent
	case containsAny(fullText, highKeywords):
		return models.PriorityHigh
	case keyPointCount >= 3:
		return models.PriorityHigh
	case sentimentScore > 0.3:
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func containsDigit(text string) bool {
	for _, r := range text {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
