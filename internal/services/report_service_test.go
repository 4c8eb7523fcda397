package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"wakeel/internal/models"
)

func newReportTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.CallSession{}, &models.Turn{}, &models.CallSummary{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func newReportServiceAt(db *gorm.DB, now time.Time) *ReportService {
	svc := NewReportService(db, logrus.New())
	svc.now = func() time.Time { return now }
	return svc
}

func seedCall(t *testing.T, db *gorm.DB, id, userID, phone string, start time.Time, status models.CallStatus, duration int) {
	t.Helper()
	sess := models.CallSession{
		ID:              id,
		UserID:          userID,
		CallerPhone:     phone,
		CallerName:      "caller " + phone,
		Status:          status,
		StartTime:       start,
		DurationSeconds: duration,
	}
	if err := db.Create(&sess).Error; err != nil {
		t.Fatalf("seed call: %v", err)
	}
}

func TestDailyReportEmpty(t *testing.T) {
	db := newReportTestDB(t)
	svc := newReportServiceAt(db, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))

	report, err := svc.Daily(context.Background(), "user-1", "2026-03-02")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}

	if report.Stats.TotalCalls != 0 || report.Stats.AnsweredCalls != 0 || report.Stats.MissedCalls != 0 {
		t.Errorf("stats not zero: %+v", report.Stats)
	}
	if report.Stats.AverageDuration != 0 {
		t.Errorf("average duration = %v, want 0", report.Stats.AverageDuration)
	}
	if len(report.Insights) != 1 || report.Insights[0] != "no calls today" {
		t.Errorf("insights = %v, want [no calls today]", report.Insights)
	}
}

func TestDailyReportAggregation(t *testing.T) {
	db := newReportTestDB(t)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	svc := newReportServiceAt(db, day.Add(20*time.Hour))

	seedCall(t, db, "c1", "user-1", "+2010", day.Add(9*time.Hour), models.CallStatusCompleted, 120)
	seedCall(t, db, "c2", "user-1", "+2011", day.Add(9*time.Hour+30*time.Minute), models.CallStatusCompleted, 60)
	seedCall(t, db, "c3", "user-1", "+2012", day.Add(14*time.Hour), models.CallStatusMissed, 0)
	seedCall(t, db, "c6", "user-1", "+2014", day.Add(15*time.Hour), models.CallStatusRejected, 0)
	// Different day and different user stay out of the report.
	seedCall(t, db, "c4", "user-1", "+2013", day.AddDate(0, 0, -1), models.CallStatusCompleted, 300)
	seedCall(t, db, "c5", "user-2", "+2010", day.Add(10*time.Hour), models.CallStatusCompleted, 300)

	summary := models.CallSummary{
		SessionID:            "c1",
		UserID:               "user-1",
		CallerPhone:          "+2010",
		CallerEmotion:        models.EmotionHappy,
		CallerSentimentScore: 0.8,
		PriorityLevel:        models.PriorityUrgent,
		MainTopics:           []string{"موعد"},
		KeyPoints:            []string{},
		FollowUpSuggestions:  []string{"confirm the appointment and send the details by message"},
		MentionedDates:       []string{},
		MentionedNames:       []string{},
	}
	if err := db.Create(&summary).Error; err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	report, err := svc.Daily(context.Background(), "user-1", "2026-03-02")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}

	if report.Stats.TotalCalls != 4 {
		t.Errorf("total calls = %d, want 4", report.Stats.TotalCalls)
	}
	if report.Stats.AnsweredCalls != 2 || report.Stats.MissedCalls != 1 || report.Stats.RejectedCalls != 1 {
		t.Errorf("answered/missed/rejected = %d/%d/%d, want 2/1/1",
			report.Stats.AnsweredCalls, report.Stats.MissedCalls, report.Stats.RejectedCalls)
	}
	if report.Stats.TotalDurationMinutes != 3 {
		t.Errorf("total minutes = %d, want 3", report.Stats.TotalDurationMinutes)
	}
	if report.Stats.AverageDuration != 45 {
		t.Errorf("average duration = %v, want 45", report.Stats.AverageDuration)
	}
	if report.EmotionBreakdown["happy"] != 1 || report.EmotionBreakdown["neutral"] != 3 {
		t.Errorf("emotion breakdown = %v", report.EmotionBreakdown)
	}
	if len(report.UrgentCalls) != 1 || report.UrgentCalls[0].SessionID != "c1" {
		t.Errorf("urgent calls = %v", report.UrgentCalls)
	}
	if len(report.FollowUpsNeeded) != 1 {
		t.Errorf("follow-ups = %v", report.FollowUpsNeeded)
	}
}

func TestDailyReportInsights(t *testing.T) {
	db := newReportTestDB(t)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	svc := newReportServiceAt(db, day.Add(20*time.Hour))

	// 11 calls, mode hour 9 first encountered before the equally
	// frequent hour 14.
	for i := 0; i < 4; i++ {
		seedCall(t, db, fmt.Sprintf("h9-%d", i), "user-1", "+2010", day.Add(9*time.Hour+time.Duration(i)*time.Minute), models.CallStatusCompleted, 60)
	}
	for i := 0; i < 4; i++ {
		seedCall(t, db, fmt.Sprintf("h14-%d", i), "user-1", "+2011", day.Add(14*time.Hour+time.Duration(i)*time.Minute), models.CallStatusCompleted, 60)
	}
	for i := 0; i < 3; i++ {
		seedCall(t, db, fmt.Sprintf("h16-%d", i), "user-1", "+2012", day.Add(16*time.Hour+time.Duration(i)*time.Minute), models.CallStatusCompleted, 60)
	}

	report, err := svc.Daily(context.Background(), "user-1", "2026-03-02")
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}

	if !containsString(report.Insights, "busy day: received 11 calls") {
		t.Errorf("insights = %v, want busy-day insight", report.Insights)
	}
	if !containsString(report.Insights, "peak hour: 9:00") {
		t.Errorf("insights = %v, want first-encountered peak hour 9:00", report.Insights)
	}
}

func TestWeeklyReportPartitions(t *testing.T) {
	db := newReportTestDB(t)
	now := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	svc := newReportServiceAt(db, now)

	seedCall(t, db, "w1", "user-1", "+2010", time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC), models.CallStatusCompleted, 60)
	seedCall(t, db, "w2", "user-1", "+2010", time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC), models.CallStatusCompleted, 60)

	report, err := svc.Weekly(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}

	if len(report.DailyReports) != 7 {
		t.Fatalf("daily reports = %d, want 7", len(report.DailyReports))
	}
	if report.WeekStart != "2026-03-02" || report.WeekEnd != "2026-03-08" {
		t.Errorf("week range = %s..%s", report.WeekStart, report.WeekEnd)
	}

	byDate := make(map[string]*DailyReport)
	for _, d := range report.DailyReports {
		byDate[d.Date] = d
	}
	if byDate["2026-03-05"].Stats.TotalCalls != 1 {
		t.Errorf("2026-03-05 total = %d, want 1", byDate["2026-03-05"].Stats.TotalCalls)
	}
	if byDate["2026-03-08"].Stats.TotalCalls != 1 {
		t.Errorf("2026-03-08 total = %d, want 1", byDate["2026-03-08"].Stats.TotalCalls)
	}
	if !containsString(byDate["2026-03-04"].Insights, "no calls today") {
		t.Errorf("empty day insights = %v", byDate["2026-03-04"].Insights)
	}
}

func TestTopCallersStableOrder(t *testing.T) {
	db := newReportTestDB(t)
	now := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	svc := newReportServiceAt(db, now)

	base := now.Add(-48 * time.Hour)
	// +2010 encountered first, then +2011; both end with 2 calls.
	seedCall(t, db, "t1", "user-1", "+2010", base, models.CallStatusCompleted, 60)
	seedCall(t, db, "t2", "user-1", "+2011", base.Add(time.Minute), models.CallStatusCompleted, 30)
	seedCall(t, db, "t3", "user-1", "+2012", base.Add(2*time.Minute), models.CallStatusCompleted, 10)
	seedCall(t, db, "t4", "user-1", "+2011", base.Add(3*time.Minute), models.CallStatusCompleted, 30)
	seedCall(t, db, "t5", "user-1", "+2010", base.Add(4*time.Minute), models.CallStatusCompleted, 60)
	seedCall(t, db, "t6", "user-1", "+2012", base.Add(5*time.Minute), models.CallStatusCompleted, 10)
	seedCall(t, db, "t7", "user-1", "+2012", base.Add(6*time.Minute), models.CallStatusCompleted, 10)

	stats, err := svc.TopCallers(context.Background(), "user-1", 7)
	if err != nil {
		t.Fatalf("TopCallers: %v", err)
	}

	if len(stats) != 3 {
		t.Fatalf("stats = %v, want 3 callers", stats)
	}
	if stats[0].CallerPhone != "+2012" || stats[0].CallCount != 3 {
		t.Errorf("rank 1 = %+v, want +2012 with 3 calls", stats[0])
	}
	if stats[1].CallerPhone != "+2010" || stats[2].CallerPhone != "+2011" {
		t.Errorf("tied callers out of first-encounter order: %+v", stats[1:])
	}
	if stats[1].TotalDurationSeconds != 120 {
		t.Errorf("duration accumulation = %d, want 120", stats[1].TotalDurationSeconds)
	}
}

func TestTopCallersCapAndWindow(t *testing.T) {
	db := newReportTestDB(t)
	now := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	svc := newReportServiceAt(db, now)

	for i := 0; i < 12; i++ {
		seedCall(t, db, fmt.Sprintf("cap-%d", i), "user-1", fmt.Sprintf("+20%d", i), now.Add(-24*time.Hour), models.CallStatusCompleted, 60)
	}
	// Outside the 7-day window.
	seedCall(t, db, "old", "user-1", "+2099", now.AddDate(0, 0, -10), models.CallStatusCompleted, 60)

	stats, err := svc.TopCallers(context.Background(), "user-1", 7)
	if err != nil {
		t.Fatalf("TopCallers: %v", err)
	}
	if len(stats) != 10 {
		t.Errorf("stats length = %d, want capped at 10", len(stats))
	}
	for _, s := range stats {
		if s.CallerPhone == "+2099" {
			t.Error("stale caller leaked into the window")
		}
	}
}

func TestUsageStats(t *testing.T) {
	db := newReportTestDB(t)
	now := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	svc := newReportServiceAt(db, now)

	seedCall(t, db, "s1", "user-1", "+2010", now.Add(-time.Hour), models.CallStatusCompleted, 90)
	seedCall(t, db, "s2", "user-1", "+2010", now.Add(-2*time.Hour), models.CallStatusMissed, 0)
	seedCall(t, db, "s3", "user-1", "+2011", now.Add(-3*time.Hour), models.CallStatusRejected, 0)

	stats, err := svc.Stats(context.Background(), "user-1", 7)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalCalls != 3 || stats.AnsweredCalls != 1 || stats.MissedCalls != 1 || stats.RejectedCalls != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.AverageDuration != 30 {
		t.Errorf("average duration = %v, want 30", stats.AverageDuration)
	}
	if len(stats.TopCallers) != 2 || stats.TopCallers[0].CallCount != 2 {
		t.Errorf("top callers = %+v", stats.TopCallers)
	}
}
