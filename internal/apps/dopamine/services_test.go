package dopamine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/services"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db, New().Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService(t *testing.T, allowNegative bool) (*GoalService, *gorm.DB, *clock) {
	t.Helper()
	db := newTestDB(t)
	clk := &clock{t: testNow}
	svc := NewGoalService(db, &config.Config{AllowNegativeProgress: allowNegative})
	svc.now = clk.now
	return svc, db, clk
}

func createUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	u := &models.User{Email: uuid.NewString() + "@example.com", Password: "hash"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }

func createGoal(t *testing.T, svc *GoalService, userID uuid.UUID, target float64, importance int) *Goal {
	t.Helper()
	goal, _, err := svc.CreateGoal(userID, CreateGoalRequest{
		Title:           "Daily hypnosis",
		Category:        "therapeutic",
		TargetValue:     floatPtr(target),
		ImportanceLevel: intPtr(importance),
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	return goal
}

func progress(t *testing.T, svc *GoalService, userID, goalID uuid.UUID, inc float64) *ProgressResponse {
	t.Helper()
	resp, err := svc.RecordProgress(userID, goalID, ProgressRequest{Increment: floatPtr(inc)})
	if err != nil {
		t.Fatalf("record progress: %v", err)
	}
	return resp
}

func loadStats(t *testing.T, db *gorm.DB, userID uuid.UUID) Stats {
	t.Helper()
	var st Stats
	if err := db.Where("user_id = ?", userID).First(&st).Error; err != nil {
		t.Fatalf("load stats: %v", err)
	}
	return st
}

func TestProgressPoints(t *testing.T) {
	tests := []struct {
		increment  float64
		importance int
		want       int
	}{
		{1, 5, 1},
		{0.5, 5, 1},
		{3, 3, 1},
		{10, 10, 20},
		{30, 5, 30},
		{-2, 5, 1},
		{2.9, 10, 4},
		{9e18, 10, 2 * MaxIncrement},
		{-9e18, 10, 2},
	}
	for _, tt := range tests {
		if got := ProgressPoints(tt.increment, tt.importance); got != tt.want {
			t.Errorf("ProgressPoints(%v, %d) = %d, want %d", tt.increment, tt.importance, got, tt.want)
		}
	}
	if CompletionBonus(7) != 140 {
		t.Errorf("expected completion bonus 140, got %d", CompletionBonus(7))
	}
}

func TestCreateGoalAwardsCreationAchievement(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	userID := createUser(t, db)

	goal, achievement, err := svc.CreateGoal(userID, CreateGoalRequest{
		Title:       "  Meditate  ",
		Category:    "Health",
		TargetValue: floatPtr(10),
		TargetDate:  strPtr("2026-05-01"),
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	if goal.Title != "Meditate" || goal.Category != CategoryHealth || goal.Unit != "sessions" || goal.ImportanceLevel != 5 {
		t.Errorf("unexpected goal defaults: %+v", goal)
	}
	if goal.Status != GoalActive || !goal.StartDate.Equal(testNow) {
		t.Errorf("expected active goal started now, got %s at %s", goal.Status, goal.StartDate)
	}
	if achievement.Title != "Goal Created" || achievement.PointsEarned != 10 || achievement.Milestone != nil {
		t.Errorf("unexpected creation achievement: %+v", achievement)
	}

	st := loadStats(t, db, userID)
	if st.TotalPoints != 10 || st.TotalAchievements != 1 || st.WeeklyPoints != 10 {
		t.Errorf("unexpected stats after create: %+v", st)
	}
}

func TestCreateGoalValidation(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	userID := createUser(t, db)

	cases := map[string]CreateGoalRequest{
		"title":            {Category: "health", TargetValue: floatPtr(1)},
		"target_value":     {Title: "x", Category: "health", TargetValue: floatPtr(0)},
		"category":         {Title: "x", Category: "sports", TargetValue: floatPtr(1)},
		"importance_level": {Title: "x", Category: "health", TargetValue: floatPtr(1), ImportanceLevel: intPtr(11)},
		"target_date":      {Title: "x", Category: "health", TargetValue: floatPtr(1), TargetDate: strPtr("next week")},
	}
	for field, req := range cases {
		_, _, err := svc.CreateGoal(userID, req)
		v, ok := services.AsValidation(err)
		if !ok {
			t.Errorf("%s: expected validation error, got %v", field, err)
			continue
		}
		if v.Field != field {
			t.Errorf("expected field %s, got %s", field, v.Field)
		}
	}

	var count int64
	db.Model(&Goal{}).Count(&count)
	if count != 0 {
		t.Errorf("invalid goals must not be stored, found %d", count)
	}
}

func TestThirtyByFourCompletesExactlyOnce(t *testing.T) {
	svc, db, clk := newTestService(t, true)
	userID := createUser(t, db)
	goal := createGoal(t, svc, userID, 100, 5)

	for i := 1; i <= 3; i++ {
		clk.t = testNow.Add(time.Duration(i) * time.Hour)
		resp := progress(t, svc, userID, goal.ID, 30)
		if resp.Goal.Status != GoalActive {
			t.Fatalf("update %d completed the goal early", i)
		}
	}

	completedAt := testNow.Add(4 * time.Hour)
	clk.t = completedAt
	resp := progress(t, svc, userID, goal.ID, 30)
	if resp.Goal.Status != GoalCompleted {
		t.Fatalf("4th update should complete the goal, status %s", resp.Goal.Status)
	}
	if resp.Goal.CompletedDate == nil || !resp.Goal.CompletedDate.Equal(completedAt) {
		t.Fatalf("expected completion at %s, got %v", completedAt, resp.Goal.CompletedDate)
	}
	if resp.Goal.ProgressPercentage != 100 {
		t.Errorf("progress percentage should cap at 100, got %v", resp.Goal.ProgressPercentage)
	}

	clk.t = testNow.Add(5 * time.Hour)
	progress(t, svc, userID, goal.ID, 30)

	stored, err := svc.GetGoal(userID, goal.ID)
	if err != nil {
		t.Fatalf("get goal: %v", err)
	}
	if stored.CurrentValue != 150 {
		t.Errorf("expected current value 150, got %v", stored.CurrentValue)
	}
	if !stored.CompletedDate.Equal(completedAt) {
		t.Errorf("completion time moved to %s", stored.CompletedDate)
	}

	var completions int64
	db.Model(&Achievement{}).Where("goal_id = ? AND achievement_type = ?", goal.ID, AchievementCompletion).Count(&completions)
	if completions != 1 {
		t.Errorf("expected one completion achievement, got %d", completions)
	}
	st := loadStats(t, db, userID)
	if st.TotalGoalsCompleted != 1 || st.CurrentStreak != 1 || st.LongestStreak != 1 {
		t.Errorf("unexpected completion counters: %+v", st)
	}

	var entries int64
	db.Model(&GoalProgress{}).Where("goal_id = ?", goal.ID).Count(&entries)
	if entries != 5 {
		t.Errorf("expected 5 progress entries, got %d", entries)
	}
}

func TestMilestonesAwardedOnce(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	userID := createUser(t, db)
	goal := createGoal(t, svc, userID, 100, 5)

	resp := progress(t, svc, userID, goal.ID, 100)

	var milestones []Achievement
	db.Where("goal_id = ? AND milestone IS NOT NULL", goal.ID).Order("milestone").Find(&milestones)
	if len(milestones) != 3 {
		t.Fatalf("expected 3 milestone achievements, got %d", len(milestones))
	}
	for i, want := range []int{25, 50, 75} {
		if *milestones[i].Milestone != want || milestones[i].PointsEarned != want/5 {
			t.Errorf("milestone %d = %+v", i, milestones[i])
		}
	}
	if milestones[1].Title != "50% Progress" || milestones[1].Description != "Reached 50% progress on Daily hypnosis" {
		t.Errorf("unexpected milestone text: %q / %q", milestones[1].Title, milestones[1].Description)
	}
	if len(resp.NewAchievements) != 4 {
		t.Errorf("expected 3 milestones and a completion in response, got %d", len(resp.NewAchievements))
	}

	progress(t, svc, userID, goal.ID, 10)
	progress(t, svc, userID, goal.ID, -60)
	progress(t, svc, userID, goal.ID, 60)

	var count int64
	db.Model(&Achievement{}).Where("goal_id = ? AND milestone IS NOT NULL", goal.ID).Count(&count)
	if count != 3 {
		t.Errorf("milestones duplicated: %d rows", count)
	}

	// create 10, first progress 100, milestones 5+10+15, completion 100,
	// then three updates worth 10, 1 and 60 points.
	st := loadStats(t, db, userID)
	if want := 10 + 100 + 30 + 100 + 10 + 1 + 60; st.TotalPoints != want {
		t.Errorf("total points = %d, want %d", st.TotalPoints, want)
	}
	if st.TotalAchievements != 5 {
		t.Errorf("total achievements = %d, want 5", st.TotalAchievements)
	}
}

func TestMilestonesCrossedGradually(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	userID := createUser(t, db)
	goal := createGoal(t, svc, userID, 8, 5)

	if resp := progress(t, svc, userID, goal.ID, 1); len(resp.NewAchievements) != 0 {
		t.Fatalf("12.5%% should not reach a milestone, got %d", len(resp.NewAchievements))
	}
	resp := progress(t, svc, userID, goal.ID, 1)
	if len(resp.NewAchievements) != 1 || *resp.NewAchievements[0].Milestone != 25 {
		t.Fatalf("expected the 25%% milestone, got %+v", resp.NewAchievements)
	}
	resp = progress(t, svc, userID, goal.ID, 3)
	if len(resp.NewAchievements) != 1 || *resp.NewAchievements[0].Milestone != 50 {
		t.Fatalf("62.5%% should add only the 50%% milestone, got %+v", resp.NewAchievements)
	}
}

func TestNegativeProgress(t *testing.T) {
	svc, db, _ := newTestService(t, false)
	userID := createUser(t, db)
	goal := createGoal(t, svc, userID, 10, 5)

	_, err := svc.RecordProgress(userID, goal.ID, ProgressRequest{Increment: floatPtr(-1)})
	if v, ok := services.AsValidation(err); !ok || v.Field != "increment" {
		t.Fatalf("expected increment validation error, got %v", err)
	}

	svc.allowNegative = true
	progress(t, svc, userID, goal.ID, 3)
	resp := progress(t, svc, userID, goal.ID, -2)
	if resp.Goal.CurrentValue != 1 || resp.ProgressEntry.PreviousValue != 3 || resp.ProgressEntry.NewValue != 1 {
		t.Errorf("unexpected negative progress result: %+v / %+v", resp.Goal, resp.ProgressEntry)
	}
	if resp.PointsEarned != 1 {
		t.Errorf("negative increment should earn the 1 point floor, got %d", resp.PointsEarned)
	}
}

func TestDefaultIncrement(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	userID := createUser(t, db)
	goal := createGoal(t, svc, userID, 10, 5)

	resp, err := svc.RecordProgress(userID, goal.ID, ProgressRequest{Note: " felt calm "})
	if err != nil {
		t.Fatalf("record progress: %v", err)
	}
	if resp.ProgressEntry.Increment != 1 || resp.ProgressEntry.Note != "felt calm" {
		t.Errorf("unexpected entry: %+v", resp.ProgressEntry)
	}
}

func TestStatusTransitions(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	userID := createUser(t, db)
	goal := createGoal(t, svc, userID, 10, 5)

	paused, err := svc.UpdateGoal(userID, goal.ID, UpdateGoalRequest{Status: strPtr("paused")})
	if err != nil || paused.Status != GoalPaused {
		t.Fatalf("pause: %v %v", paused, err)
	}

	resp := progress(t, svc, userID, goal.ID, 20)
	if resp.Goal.Status != GoalPaused || resp.Goal.CompletedDate != nil {
		t.Fatalf("paused goal must not complete: %+v", resp.Goal)
	}

	_, err = svc.UpdateGoal(userID, goal.ID, UpdateGoalRequest{Status: strPtr("completed")})
	if _, ok := services.AsValidation(err); !ok {
		t.Fatalf("completing through update should be a validation error, got %v", err)
	}

	if _, err := svc.UpdateGoal(userID, goal.ID, UpdateGoalRequest{Status: strPtr("active")}); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if _, err := svc.UpdateGoal(userID, goal.ID, UpdateGoalRequest{Status: strPtr("archived")}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	if _, err := svc.UpdateGoal(userID, goal.ID, UpdateGoalRequest{Title: strPtr("new")}); !errors.Is(err, ErrGoalArchived) {
		t.Errorf("update of archived goal: expected ErrGoalArchived, got %v", err)
	}
	if _, err := svc.RecordProgress(userID, goal.ID, ProgressRequest{}); !errors.Is(err, ErrGoalArchived) {
		t.Errorf("progress on archived goal: expected ErrGoalArchived, got %v", err)
	}
	if _, err := svc.CompleteGoal(userID, goal.ID); !errors.Is(err, ErrGoalArchived) {
		t.Errorf("complete archived goal: expected ErrGoalArchived, got %v", err)
	}
}

func TestCompletedGoalCannotBeReopened(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	userID := createUser(t, db)
	goal := createGoal(t, svc, userID, 1, 5)
	progress(t, svc, userID, goal.ID, 1)

	_, err := svc.UpdateGoal(userID, goal.ID, UpdateGoalRequest{Status: strPtr("active")})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	updated, err := svc.UpdateGoal(userID, goal.ID, UpdateGoalRequest{Description: strPtr("done")})
	if err != nil || updated.Description != "done" || updated.Status != GoalCompleted {
		t.Errorf("completed goal fields should stay editable: %+v %v", updated, err)
	}
}

func TestCompleteGoal(t *testing.T) {
	svc, db, clk := newTestService(t, true)
	userID := createUser(t, db)
	goal := createGoal(t, svc, userID, 50, 6)
	progress(t, svc, userID, goal.ID, 5)

	clk.t = testNow.Add(72 * time.Hour)
	resp, err := svc.CompleteGoal(userID, goal.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if resp.Goal.CurrentValue != 50 || resp.Goal.Status != GoalCompleted {
		t.Errorf("unexpected completed goal: %+v", resp.Goal)
	}
	if resp.PointsEarned != 120 || resp.Achievement.Title != "Goal Completed!" || resp.Achievement.BadgeIcon != "🏆" {
		t.Errorf("unexpected completion reward: %d %+v", resp.PointsEarned, resp.Achievement)
	}

	if _, err := svc.CompleteGoal(userID, goal.ID); !errors.Is(err, ErrGoalCompleted) {
		t.Errorf("second complete: expected ErrGoalCompleted, got %v", err)
	}

	st := loadStats(t, db, userID)
	if st.TotalGoalsCompleted != 1 || st.CurrentStreak != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestGoalsScopedToOwner(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	owner := createUser(t, db)
	other := createUser(t, db)
	goal := createGoal(t, svc, owner, 10, 5)

	if _, err := svc.RecordProgress(other, goal.ID, ProgressRequest{}); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("progress by another user: expected ErrGoalNotFound, got %v", err)
	}
	if _, err := svc.CompleteGoal(other, goal.ID); !errors.Is(err, ErrGoalNotFound) {
		t.Errorf("complete by another user: expected ErrGoalNotFound, got %v", err)
	}
	goals, err := svc.ListGoals(other, "", "")
	if err != nil || len(goals) != 0 {
		t.Errorf("other user should see no goals, got %d (%v)", len(goals), err)
	}
}

func TestListGoalsFilters(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	userID := createUser(t, db)
	createGoal(t, svc, userID, 10, 3)
	important := createGoal(t, svc, userID, 10, 9)
	done := createGoal(t, svc, userID, 1, 5)
	progress(t, svc, userID, done.ID, 1)

	active, err := svc.ListGoals(userID, "active", "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 2 || active[0].ID != important.ID {
		t.Errorf("expected 2 active goals led by the most important, got %+v", active)
	}
	completed, _ := svc.ListGoals(userID, "completed", "therapeutic")
	if len(completed) != 1 {
		t.Errorf("expected 1 completed therapeutic goal, got %d", len(completed))
	}
	if _, err := svc.ListGoals(userID, "done", ""); err == nil {
		t.Error("unknown status filter should be rejected")
	}
}

func TestAchievementsPaging(t *testing.T) {
	svc, db, clk := newTestService(t, true)
	userID := createUser(t, db)
	for i := 0; i < 5; i++ {
		clk.t = testNow.Add(time.Duration(i) * time.Minute)
		createGoal(t, svc, userID, 10, 5)
	}

	page, err := svc.Achievements(userID, 2, 0)
	if err != nil {
		t.Fatalf("achievements: %v", err)
	}
	if page.TotalCount != 5 || len(page.Achievements) != 2 || !page.HasMore {
		t.Errorf("unexpected first page: total %d len %d more %v", page.TotalCount, len(page.Achievements), page.HasMore)
	}
	if !page.Achievements[0].AchievedAt.After(page.Achievements[1].AchievedAt) {
		t.Error("achievements should be newest first")
	}

	last, _ := svc.Achievements(userID, 2, 4)
	if len(last.Achievements) != 1 || last.HasMore {
		t.Errorf("unexpected last page: len %d more %v", len(last.Achievements), last.HasMore)
	}
}

func TestDashboard(t *testing.T) {
	svc, db, clk := newTestService(t, true)
	userID := createUser(t, db)

	empty, err := svc.Dashboard(userID)
	if err != nil {
		t.Fatalf("dashboard for new user: %v", err)
	}
	if empty.Stats == nil || empty.Stats.CurrentMotivationLevel != 5 || len(empty.MotivationTrend) != 7 {
		t.Fatalf("unexpected empty dashboard: %+v", empty)
	}

	goal := createGoal(t, svc, userID, 10, 5)
	clk.t = testNow.Add(-36 * time.Hour)
	progress(t, svc, userID, goal.ID, 2)
	clk.t = testNow.Add(-10 * 24 * time.Hour)
	progress(t, svc, userID, goal.ID, 2)
	done := createGoal(t, svc, userID, 1, 5)
	clk.t = testNow
	progress(t, svc, userID, done.ID, 1)

	clk.t = testNow.Add(time.Minute)
	dash, err := svc.Dashboard(userID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(dash.ActiveGoals) != 1 || dash.ActiveGoals[0].ID != goal.ID {
		t.Errorf("expected one active goal, got %d", len(dash.ActiveGoals))
	}
	if dash.CompletedThisMonth != 1 {
		t.Errorf("completed this month = %d, want 1", dash.CompletedThisMonth)
	}
	if dash.WeeklyActivity != 2 {
		t.Errorf("weekly activity = %d, want 2", dash.WeeklyActivity)
	}
	if dash.MotivationTrend[5].ActivityCount != 1 {
		t.Errorf("expected activity two days back in trend, got %+v", dash.MotivationTrend)
	}
	if dash.MotivationTrend[6].Date != testNow.Add(time.Minute).AddDate(0, 0, -1).Format("2006-01-02") {
		t.Errorf("last trend entry should be yesterday, got %s", dash.MotivationTrend[6].Date)
	}
	if len(dash.RecentAchievements) == 0 {
		t.Error("expected recent achievements")
	}
}

func TestStatsAnalytics(t *testing.T) {
	svc, db, clk := newTestService(t, true)
	userID := createUser(t, db)
	createGoal(t, svc, userID, 10, 5)
	goal := createGoal(t, svc, userID, 10, 5)

	clk.t = testNow.Add(3*24*time.Hour + time.Hour)
	if _, err := svc.CompleteGoal(userID, goal.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	resp, err := svc.StatsAnalytics(userID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	a := resp.Analytics
	if a.TotalGoals != 2 || a.ActiveGoals != 1 || a.CompletionRate != 50 || a.AverageCompletionDays != 3 {
		t.Errorf("unexpected analytics: %+v", a)
	}
}

func TestResetPoints(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	userID := createUser(t, db)
	createGoal(t, svc, userID, 10, 5)

	n, err := svc.ResetPoints("weekly")
	if err != nil || n != 1 {
		t.Fatalf("reset weekly: %d %v", n, err)
	}
	st := loadStats(t, db, userID)
	if st.WeeklyPoints != 0 || st.MonthlyPoints != 10 || st.TotalPoints != 10 {
		t.Errorf("unexpected stats after weekly reset: %+v", st)
	}

	if _, err := svc.ResetPoints("daily"); err == nil {
		t.Error("unknown period should be rejected")
	}
}

func TestGoalDerivedFields(t *testing.T) {
	target := testNow.Add(50 * time.Hour)
	g := Goal{TargetValue: 3, CurrentValue: 1, TargetDate: &target, Status: GoalActive}

	if days := g.DaysRemaining(testNow); days == nil || *days != 2 {
		t.Errorf("days remaining = %v, want 2", days)
	}
	if g.IsOverdue(testNow) {
		t.Error("goal should not be overdue yet")
	}
	later := testNow.Add(60 * time.Hour)
	if !g.IsOverdue(later) || *g.DaysRemaining(later) != 0 {
		t.Error("goal past its target date should be overdue with 0 days remaining")
	}
	if resp := NewGoalResponse(&g, testNow); resp.ProgressPercentage != 33.3 {
		t.Errorf("progress percentage = %v, want 33.3", resp.ProgressPercentage)
	}
	if (&Goal{TargetValue: 0, CurrentValue: 5}).ProgressPercentage() != 0 {
		t.Error("zero target should report 0%")
	}
}

func TestHugeIncrementRejected(t *testing.T) {
	svc, db, _ := newTestService(t, true)
	userID := createUser(t, db)
	goal := createGoal(t, svc, userID, 1e19, 10)
	before := loadStats(t, db, userID)

	for _, inc := range []float64{9e18, -9e18, MaxIncrement + 1} {
		_, err := svc.RecordProgress(userID, goal.ID, ProgressRequest{Increment: floatPtr(inc)})
		if v, ok := services.AsValidation(err); !ok || v.Field != "increment" {
			t.Errorf("increment %g: expected validation error, got %v", inc, err)
		}
	}
	if after := loadStats(t, db, userID); after.TotalPoints != before.TotalPoints {
		t.Errorf("rejected updates changed points: %d -> %d", before.TotalPoints, after.TotalPoints)
	}

	resp := progress(t, svc, userID, goal.ID, MaxIncrement)
	if resp.PointsEarned != 2*MaxIncrement {
		t.Errorf("points at the bound = %d", resp.PointsEarned)
	}
	st := loadStats(t, db, userID)
	if st.TotalPoints != before.TotalPoints+2*MaxIncrement || st.WeeklyPoints <= 0 || st.MonthlyPoints <= 0 {
		t.Errorf("unexpected stats after largest update: %+v", st)
	}
}

func TestStreakLapsesAfterMissedDay(t *testing.T) {
	svc, db, clk := newTestService(t, true)
	userID := createUser(t, db)

	first := createGoal(t, svc, userID, 1, 5)
	progress(t, svc, userID, first.ID, 1)

	clk.t = testNow.AddDate(0, 0, 1)
	second := createGoal(t, svc, userID, 1, 5)
	progress(t, svc, userID, second.ID, 1)
	if st := loadStats(t, db, userID); st.CurrentStreak != 2 || st.LongestStreak != 2 {
		t.Fatalf("consecutive days should extend the streak: %+v", st)
	}

	clk.t = testNow.AddDate(0, 0, 4)
	dash, err := svc.Dashboard(userID)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dash.Stats.CurrentStreak != 0 {
		t.Errorf("dashboard streak = %d, want 0", dash.Stats.CurrentStreak)
	}
	if st := loadStats(t, db, userID); st.CurrentStreak != 0 || st.LongestStreak != 2 {
		t.Errorf("lapsed streak not stored: %+v", st)
	}

	third := createGoal(t, svc, userID, 1, 5)
	if _, err := svc.CompleteGoal(userID, third.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if st := loadStats(t, db, userID); st.CurrentStreak != 1 || st.LongestStreak != 2 {
		t.Errorf("streak should restart at 1: %+v", st)
	}
}

func TestStreakLapsedWithoutDashboard(t *testing.T) {
	st := &Stats{CurrentStreak: 3, LongestStreak: 3}
	last := testNow
	st.LastActivityDate = &last

	if st.StreakLapsed(testNow.AddDate(0, 0, 1)) {
		t.Error("next day should not lapse")
	}
	st.AddPoints(5, testNow.AddDate(0, 0, 2))
	if st.CurrentStreak != 0 || st.LongestStreak != 3 || st.TotalPoints != 5 {
		t.Errorf("activity after a missed day should reset the streak: %+v", st)
	}
}
