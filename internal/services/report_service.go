package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wakeel/internal/models"
)

const (
	urgentCallCap = 5
	topCallerCap  = 10
	busyDayCalls  = 10

	positiveScoreFloor = 0.3
	positiveShareFloor = 0.7
)

// DailyStats are the per-day call counters.
type DailyStats struct {
	TotalCalls           int     `json:"total_calls"`
	AnsweredCalls        int     `json:"answered_calls"`
	MissedCalls          int     `json:"missed_calls"`
	RejectedCalls        int     `json:"rejected_calls"`
	TotalDurationMinutes int     `json:"total_duration_minutes"`
	AverageDuration      float64 `json:"average_duration"`
}

// DailyReport aggregates one day of sessions and summaries. Reports
// are recomputed on demand and never persisted.
type DailyReport struct {
	UserID           string               `json:"user_id"`
	Date             string               `json:"date"`
	Stats            DailyStats           `json:"stats"`
	EmotionBreakdown map[string]int       `json:"emotion_breakdown"`
	UrgentCalls      []models.CallSummary `json:"urgent_calls"`
	FollowUpsNeeded  []string             `json:"follow_ups_needed"`
	Insights         []string             `json:"insights"`
}

// WeeklyReport is seven daily reports side by side; statistics are
// never merged across days.
type WeeklyReport struct {
	UserID       string         `json:"user_id"`
	WeekStart    string         `json:"week_start"`
	WeekEnd      string         `json:"week_end"`
	DailyReports []*DailyReport `json:"daily_reports"`
}

// CallerStat is one row of the top-callers ranking.
type CallerStat struct {
	CallerPhone          string `json:"caller_phone"`
	CallerName           string `json:"caller_name"`
	CallCount            int    `json:"call_count"`
	TotalDurationSeconds int    `json:"total_duration_seconds"`
}

// UsageStats summarize call volume over a trailing window.
type UsageStats struct {
	UserID               string       `json:"user_id"`
	PeriodDays           int          `json:"period_days"`
	TotalCalls           int          `json:"total_calls"`
	AnsweredCalls        int          `json:"answered_calls"`
	MissedCalls          int          `json:"missed_calls"`
	RejectedCalls        int          `json:"rejected_calls"`
	TotalDurationMinutes int          `json:"total_duration_minutes"`
	AverageDuration      float64      `json:"average_duration"`
	TopCallers           []CallerStat `json:"top_callers"`
}

// ReportService rolls sessions and their summaries into daily and
// weekly reports and caller rankings.
type ReportService struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

func NewReportService(db *gorm.DB, logger *logrus.Logger) *ReportService {
	return &ReportService{db: db, logger: logger, now: time.Now}
}

// Daily builds the report for one date string (YYYY-MM-DD).
func (s *ReportService) Daily(ctx context.Context, userID, date string) (*DailyReport, error) {
	sessions, err := s.loadSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildDaily(userID, date, sessions), nil
}

// Weekly partitions the trailing 7 days by date string and builds one
// daily report per partition.
func (s *ReportService) Weekly(ctx context.Context, userID string) (*WeeklyReport, error) {
	sessions, err := s.loadSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	end := s.now()
	start := end.AddDate(0, 0, -6)

	report := &WeeklyReport{
		UserID:    userID,
		WeekStart: start.Format("2006-01-02"),
		WeekEnd:   end.Format("2006-01-02"),
	}
	for d := 0; d < 7; d++ {
		date := start.AddDate(0, 0, d).Format("2006-01-02")
		report.DailyReports = append(report.DailyReports, s.buildDaily(userID, date, sessions))
	}
	return report, nil
}

// TopCallers ranks counterparts by call count over a trailing window.
// Ties keep first-encounter order.
func (s *ReportService) TopCallers(ctx context.Context, userID string, days int) ([]CallerStat, error) {
	cutoff := s.now().AddDate(0, 0, -days)

	var sessions []models.CallSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND start_time >= ?", userID, cutoff).
		Order("start_time ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	stats := make([]CallerStat, 0)
	for _, sess := range sessions {
		i, ok := index[sess.CallerPhone]
		if !ok {
			i = len(stats)
			index[sess.CallerPhone] = i
			stats = append(stats, CallerStat{
				CallerPhone: sess.CallerPhone,
				CallerName:  sess.CallerName,
			})
		}
		stats[i].CallCount++
		stats[i].TotalDurationSeconds += sess.DurationSeconds
	}

	sort.SliceStable(stats, func(a, b int) bool {
		return stats[a].CallCount > stats[b].CallCount
	})
	if len(stats) > topCallerCap {
		stats = stats[:topCallerCap]
	}
	return stats, nil
}

// Stats aggregates call volume over the trailing N days.
func (s *ReportService) Stats(ctx context.Context, userID string, days int) (*UsageStats, error) {
	cutoff := s.now().AddDate(0, 0, -days)

	var sessions []models.CallSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND start_time >= ?", userID, cutoff).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	stats := &UsageStats{UserID: userID, PeriodDays: days}
	totalDuration := 0
	for _, sess := range sessions {
		stats.TotalCalls++
		switch sess.Status {
		case models.CallStatusCompleted:
			stats.AnsweredCalls++
		case models.CallStatusMissed:
			stats.MissedCalls++
		case models.CallStatusRejected:
			stats.RejectedCalls++
		}
		totalDuration += sess.DurationSeconds
	}
	stats.TotalDurationMinutes = totalDuration / 60
	if stats.TotalCalls > 0 {
		stats.AverageDuration = float64(totalDuration) / float64(stats.TotalCalls)
	}

	top, err := s.TopCallers(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	stats.TopCallers = top
	return stats, nil
}

func (s *ReportService) loadSessions(ctx context.Context, userID string) ([]models.CallSession, error) {
	var sessions []models.CallSession
	err := s.db.WithContext(ctx).
		Preload("Summary").
		Where("user_id = ?", userID).
		Order("start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

// buildDaily selects the sessions whose start timestamp begins with
// the date string (lexical prefix, not calendar-aware) and aggregates
// them.
func (s *ReportService) buildDaily(userID, date string, sessions []models.CallSession) *DailyReport {
	var day []models.CallSession
	for _, sess := range sessions {
		if strings.HasPrefix(sess.StartTime.Format(time.RFC3339), date) {
			day = append(day, sess)
		}
	}

	report := &DailyReport{
		UserID:           userID,
		Date:             date,
		EmotionBreakdown: make(map[string]int),
		UrgentCalls:      []models.CallSummary{},
		FollowUpsNeeded:  []string{},
	}

	totalDuration := 0
	seenFollowUps := make(map[string]bool)
	for _, sess := range day {
		report.Stats.TotalCalls++
		switch sess.Status {
		case models.CallStatusCompleted:
			report.Stats.AnsweredCalls++
		case models.CallStatusMissed:
			report.Stats.MissedCalls++
		case models.CallStatusRejected:
			report.Stats.RejectedCalls++
		}
		totalDuration += sess.DurationSeconds

		emotion := string(models.EmotionNeutral)
		if sess.Summary != nil {
			emotion = string(sess.Summary.CallerEmotion)
			if sess.Summary.PriorityLevel == models.PriorityUrgent && len(report.UrgentCalls) < urgentCallCap {
				report.UrgentCalls = append(report.UrgentCalls, *sess.Summary)
			}
			for _, f := range sess.Summary.FollowUpSuggestions {
				if !seenFollowUps[f] {
					seenFollowUps[f] = true
					report.FollowUpsNeeded = append(report.FollowUpsNeeded, f)
				}
			}
		}
		report.EmotionBreakdown[emotion]++
	}

	report.Stats.TotalDurationMinutes = totalDuration / 60
	if report.Stats.TotalCalls > 0 {
		report.Stats.AverageDuration = float64(totalDuration) / float64(report.Stats.TotalCalls)
	}
	report.Insights = buildInsights(day)
	return report
}

func buildInsights(day []models.CallSession) []string {
	if len(day) == 0 {
		return []string{"no calls today"}
	}

	var insights []string
	total := len(day)
	if total > busyDayCalls {
		insights = append(insights, fmt.Sprintf("busy day: received %d calls", total))
	}

	// Peak hour is the mode of call start hours; ties keep the first
	// hour encountered.
	counts := make(map[int]int)
	peakHour, peakCount := 0, 0
	for _, sess := range day {
		h := sess.StartTime.Hour()
		counts[h]++
		if counts[h] > peakCount {
			peakHour, peakCount = h, counts[h]
		}
	}
	insights = append(insights, fmt.Sprintf("peak hour: %d:00", peakHour))

	positive := 0
	for _, sess := range day {
		if sess.Summary != nil && sess.Summary.CallerSentimentScore > positiveScoreFloor {
			positive++
		}
	}
	if float64(positive) > float64(total)*positiveShareFloor {
		insights = append(insights, "most calls were positive")
	}
	return insights
}
