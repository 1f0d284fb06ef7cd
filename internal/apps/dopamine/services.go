package dopamine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/services"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrGoalNotFound      = errors.New("goal not found")
	ErrGoalCompleted     = errors.New("goal already completed")
	ErrGoalArchived      = errors.New("goal is archived")
	ErrInvalidTransition = errors.New("invalid goal status transition")
)

const (
	goalCreatedPoints   = 10
	defaultImportance   = 5
	defaultUnit         = "sessions"
	maxTitleLength      = 200
	maxRewardLength     = 500
	defaultAchievements = 50
	maxAchievements     = 100
	recentAchievements  = 10
)

var milestoneThresholds = []int{25, 50, 75}

// MaxIncrement bounds a single progress update in either direction.
const MaxIncrement = 1_000_000

// ProgressPoints is the reward for a single progress update: the whole part
// of the increment, clamped to [1, MaxIncrement], scaled by importance/5.
func ProgressPoints(increment float64, importance int) int {
	base := math.Trunc(increment)
	if base < 1 || math.IsNaN(base) {
		base = 1
	}
	if base > MaxIncrement {
		base = MaxIncrement
	}
	return int(base * (float64(importance) / 5))
}

// CompletionBonus is the reward for completing a goal.
func CompletionBonus(importance int) int {
	return importance * 20
}

// GoalService tracks goals, progress history, achievements and stats.
type GoalService struct {
	db            *gorm.DB
	allowNegative bool
	now           func() time.Time
}

func NewGoalService(db *gorm.DB, cfg *config.Config) *GoalService {
	return &GoalService{
		db:            db,
		allowNegative: cfg.AllowNegativeProgress,
		now:           time.Now,
	}
}

// Dashboard builds the overview shown on the tracker home screen.
func (s *GoalService) Dashboard(userID uuid.UUID) (*DashboardResponse, error) {
	now := s.now()

	stats, err := s.ensureStats(s.db, userID, false)
	if err != nil {
		return nil, err
	}
	if stats.StreakLapsed(now) {
		if err := s.db.Model(stats).Update("current_streak", 0).Error; err != nil {
			return nil, fmt.Errorf("failed to reset streak: %w", err)
		}
		stats.CurrentStreak = 0
	}

	var active []Goal
	if err := s.db.Where("user_id = ? AND status = ?", userID, GoalActive).
		Order("importance_level DESC").Order("created_at ASC").
		Find(&active).Error; err != nil {
		return nil, fmt.Errorf("failed to load active goals: %w", err)
	}

	var recent []Achievement
	if err := s.db.Where("user_id = ?", userID).
		Order("achieved_at DESC").Limit(recentAchievements).
		Find(&recent).Error; err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var completedThisMonth int64
	if err := s.db.Model(&Goal{}).
		Where("user_id = ? AND status = ? AND completed_date >= ?", userID, GoalCompleted, monthStart).
		Count(&completedThisMonth).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed goals: %w", err)
	}

	weekly, err := s.countProgress(userID, now.AddDate(0, 0, -7), now)
	if err != nil {
		return nil, err
	}

	trend := make([]DailyActivity, 0, 7)
	for i := 6; i >= 0; i-- {
		dayStart := now.AddDate(0, 0, -(i + 1))
		count, err := s.countProgress(userID, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		trend = append(trend, DailyActivity{Date: dayStart.Format("2006-01-02"), ActivityCount: count})
	}

	return &DashboardResponse{
		Stats:              stats,
		ActiveGoals:        newGoalResponses(active, now),
		RecentAchievements: recent,
		CompletedThisMonth: completedThisMonth,
		WeeklyActivity:     weekly,
		MotivationTrend:    trend,
	}, nil
}

func (s *GoalService) countProgress(userID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&GoalProgress{}).
		Joins("JOIN dopamine_goals ON dopamine_goals.id = dopamine_goal_progress.goal_id").
		Where("dopamine_goals.user_id = ?", userID).
		Where("dopamine_goal_progress.created_at >= ? AND dopamine_goal_progress.created_at < ?", from, to).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count progress: %w", err)
	}
	return count, nil
}

// ListGoals returns the user's goals, optionally filtered, most important first.
func (s *GoalService) ListGoals(userID uuid.UUID, status, category string) ([]Goal, error) {
	query := s.db.Where("user_id = ?", userID)

	if status != "" {
		st := GoalStatus(strings.ToLower(status))
		if !st.Valid() {
			return nil, services.NewValidationError("status", "Invalid status filter")
		}
		query = query.Where("status = ?", st)
	}
	if category != "" {
		cat := GoalCategory(strings.ToLower(category))
		if !cat.Valid() {
			return nil, services.NewValidationError("category", "Invalid category filter")
		}
		query = query.Where("category = ?", cat)
	}

	var goals []Goal
	if err := query.Order("importance_level DESC").Order("created_at ASC").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	return goals, nil
}

// GetGoal returns one goal owned by userID.
func (s *GoalService) GetGoal(userID, goalID uuid.UUID) (*Goal, error) {
	var goal Goal
	if err := s.db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}
	return &goal, nil
}

// CreateGoal stores a new active goal and awards the creation achievement.
func (s *GoalService) CreateGoal(userID uuid.UUID, req CreateGoalRequest) (*Goal, *Achievement, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, nil, services.NewValidationError("title", "Title is required")
	}
	if len(title) > maxTitleLength {
		return nil, nil, services.NewValidationError("title", "Title must be at most 200 characters")
	}
	if req.TargetValue == nil {
		return nil, nil, services.NewValidationError("target_value", "Target value is required")
	}
	if *req.TargetValue <= 0 {
		return nil, nil, services.NewValidationError("target_value", "Target value must be greater than zero")
	}
	if strings.TrimSpace(req.Category) == "" {
		return nil, nil, services.NewValidationError("category", "Category is required")
	}
	category := GoalCategory(strings.ToLower(strings.TrimSpace(req.Category)))
	if !category.Valid() {
		return nil, nil, services.NewValidationError("category", "Invalid category")
	}
	importance := defaultImportance
	if req.ImportanceLevel != nil {
		if err := validateImportance(*req.ImportanceLevel); err != nil {
			return nil, nil, err
		}
		importance = *req.ImportanceLevel
	}
	if len(req.RewardDescription) > maxRewardLength {
		return nil, nil, services.NewValidationError("reward_description", "Reward description must be at most 500 characters")
	}
	var targetDate *time.Time
	if req.TargetDate != nil && *req.TargetDate != "" {
		d, err := parseDate(*req.TargetDate)
		if err != nil {
			return nil, nil, err
		}
		targetDate = &d
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = defaultUnit
	}

	now := s.now()
	goal := Goal{
		UserID:            userID,
		Title:             title,
		Description:       req.Description,
		Category:          category,
		Status:            GoalActive,
		TargetValue:       *req.TargetValue,
		Unit:              unit,
		StartDate:         now,
		TargetDate:        targetDate,
		RewardDescription: req.RewardDescription,
		ImportanceLevel:   importance,
	}
	var achievement Achievement

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&goal).Error; err != nil {
			return err
		}

		goalID := goal.ID
		achievement = Achievement{
			UserID:       userID,
			GoalID:       &goalID,
			Title:        "Goal Created",
			Description:  fmt.Sprintf("Created new goal: %s", goal.Title),
			Type:         AchievementMilestone,
			PointsEarned: goalCreatedPoints,
			BadgeIcon:    "🎯",
			BadgeColor:   "#2196F3",
			AchievedAt:   now,
		}
		if err := tx.Create(&achievement).Error; err != nil {
			return err
		}

		stats, err := s.ensureStats(tx, userID, true)
		if err != nil {
			return err
		}
		stats.RecordAchievement(&achievement, now)
		return tx.Save(stats).Error
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create goal: %w", err)
	}
	return &goal, &achievement, nil
}

// UpdateGoal applies a partial update. Status may move between active and
// paused, or to archived; completion is never set here.
func (s *GoalService) UpdateGoal(userID, goalID uuid.UUID, req UpdateGoalRequest) (*Goal, error) {
	var goal Goal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockGoal(tx, userID, goalID, &goal); err != nil {
			return err
		}
		if goal.Status == GoalArchived {
			return ErrGoalArchived
		}
		if err := applyUpdate(&goal, req); err != nil {
			return err
		}
		return tx.Save(&goal).Error
	})
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func applyUpdate(goal *Goal, req UpdateGoalRequest) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return services.NewValidationError("title", "Title is required")
		}
		if len(title) > maxTitleLength {
			return services.NewValidationError("title", "Title must be at most 200 characters")
		}
		goal.Title = title
	}
	if req.Description != nil {
		goal.Description = *req.Description
	}
	if req.Category != nil {
		category := GoalCategory(strings.ToLower(strings.TrimSpace(*req.Category)))
		if !category.Valid() {
			return services.NewValidationError("category", "Invalid category")
		}
		goal.Category = category
	}
	if req.TargetValue != nil {
		if *req.TargetValue <= 0 {
			return services.NewValidationError("target_value", "Target value must be greater than zero")
		}
		goal.TargetValue = *req.TargetValue
	}
	if req.Unit != nil {
		goal.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.TargetDate != nil {
		if *req.TargetDate == "" {
			goal.TargetDate = nil
		} else {
			d, err := parseDate(*req.TargetDate)
			if err != nil {
				return err
			}
			goal.TargetDate = &d
		}
	}
	if req.RewardDescription != nil {
		if len(*req.RewardDescription) > maxRewardLength {
			return services.NewValidationError("reward_description", "Reward description must be at most 500 characters")
		}
		goal.RewardDescription = *req.RewardDescription
	}
	if req.ImportanceLevel != nil {
		if err := validateImportance(*req.ImportanceLevel); err != nil {
			return err
		}
		goal.ImportanceLevel = *req.ImportanceLevel
	}
	if req.Status != nil {
		next := GoalStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if !next.Valid() {
			return services.NewValidationError("status", "Invalid status")
		}
		if next == goal.Status {
			return nil
		}
		if next == GoalCompleted {
			return services.NewValidationError("status", "Use the complete endpoint to complete a goal")
		}
		if !canTransition(goal.Status, next) {
			return ErrInvalidTransition
		}
		goal.Status = next
	}
	return nil
}

func canTransition(from, to GoalStatus) bool {
	switch from {
	case GoalActive:
		return to == GoalPaused || to == GoalArchived
	case GoalPaused:
		return to == GoalActive || to == GoalArchived
	}
	return false
}

// RecordProgress applies a progress update and every reward it triggers in
// one transaction, with the goal row locked for the duration.
func (s *GoalService) RecordProgress(userID, goalID uuid.UUID, req ProgressRequest) (*ProgressResponse, error) {
	increment := 1.0
	if req.Increment != nil {
		increment = *req.Increment
	}
	if math.IsNaN(increment) || math.IsInf(increment, 0) {
		return nil, services.NewValidationError("increment", "Increment must be a number")
	}
	if math.Abs(increment) > MaxIncrement {
		return nil, services.NewValidationError("increment", fmt.Sprintf("Increment must be between -%d and %d", MaxIncrement, MaxIncrement))
	}
	if increment < 0 && !s.allowNegative {
		return nil, services.NewValidationError("increment", "Increment must not be negative")
	}

	now := s.now()
	var (
		goal     Goal
		entry    *GoalProgress
		points   int
		achieved []Achievement
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockGoal(tx, userID, goalID, &goal); err != nil {
			return err
		}
		if goal.Status == GoalArchived {
			return ErrGoalArchived
		}

		wasCompleted := goal.Status == GoalCompleted
		entry = goal.UpdateProgress(increment, strings.TrimSpace(req.Note), now)
		if err := tx.Save(&goal).Error; err != nil {
			return err
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		stats, err := s.ensureStats(tx, userID, true)
		if err != nil {
			return err
		}

		points = ProgressPoints(increment, goal.ImportanceLevel)
		stats.AddPoints(points, now)

		milestones, err := awardMilestones(tx, &goal, stats, now)
		if err != nil {
			return err
		}
		achieved = append(achieved, milestones...)

		if !wasCompleted && goal.Status == GoalCompleted {
			a, err := awardCompletion(tx, &goal, stats, now)
			if err != nil {
				return err
			}
			achieved = append(achieved, *a)
			slog.Info("goal completed", "goal_id", goal.ID, "user_id", userID)
		}

		return tx.Save(stats).Error
	})
	if err != nil {
		if errors.Is(err, ErrGoalNotFound) || errors.Is(err, ErrGoalArchived) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record progress: %w", err)
	}

	return &ProgressResponse{
		Message:         "Progress updated successfully",
		Goal:            NewGoalResponse(&goal, now),
		ProgressEntry:   entry,
		PointsEarned:    points,
		NewAchievements: achieved,
	}, nil
}

// CompleteGoal marks a goal completed regardless of its current value.
func (s *GoalService) CompleteGoal(userID, goalID uuid.UUID) (*CompleteGoalResponse, error) {
	now := s.now()
	var (
		goal        Goal
		achievement *Achievement
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockGoal(tx, userID, goalID, &goal); err != nil {
			return err
		}
		switch goal.Status {
		case GoalCompleted:
			return ErrGoalCompleted
		case GoalArchived:
			return ErrGoalArchived
		}

		goal.Status = GoalCompleted
		goal.CurrentValue = goal.TargetValue
		completed := now
		goal.CompletedDate = &completed
		if err := tx.Save(&goal).Error; err != nil {
			return err
		}

		stats, err := s.ensureStats(tx, userID, true)
		if err != nil {
			return err
		}
		achievement, err = awardCompletion(tx, &goal, stats, now)
		if err != nil {
			return err
		}
		return tx.Save(stats).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrGoalNotFound), errors.Is(err, ErrGoalCompleted), errors.Is(err, ErrGoalArchived):
			return nil, err
		}
		return nil, fmt.Errorf("failed to complete goal: %w", err)
	}

	return &CompleteGoalResponse{
		Message:      "Goal completed successfully",
		Goal:         NewGoalResponse(&goal, now),
		Achievement:  achievement,
		PointsEarned: achievement.PointsEarned,
	}, nil
}

// Achievements pages through the user's achievements, newest first.
func (s *GoalService) Achievements(userID uuid.UUID, limit, offset int) (*AchievementsResponse, error) {
	if limit <= 0 {
		limit = defaultAchievements
	}
	if limit > maxAchievements {
		limit = maxAchievements
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.db.Model(&Achievement{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count achievements: %w", err)
	}

	achievements := make([]Achievement, 0)
	if err := s.db.Where("user_id = ?", userID).
		Order("achieved_at DESC").
		Limit(limit).Offset(offset).
		Find(&achievements).Error; err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}

	return &AchievementsResponse{
		Achievements: achievements,
		TotalCount:   total,
		HasMore:      int64(offset+limit) < total,
	}, nil
}

// StatsAnalytics returns the stats row plus goal completion analytics.
func (s *GoalService) StatsAnalytics(userID uuid.UUID) (*StatsResponse, error) {
	stats, err := s.ensureStats(s.db, userID, false)
	if err != nil {
		return nil, err
	}

	var total, active int64
	if err := s.db.Model(&Goal{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count goals: %w", err)
	}
	if err := s.db.Model(&Goal{}).Where("user_id = ? AND status = ?", userID, GoalActive).Count(&active).Error; err != nil {
		return nil, fmt.Errorf("failed to count goals: %w", err)
	}

	var completed []Goal
	if err := s.db.Where("user_id = ? AND status = ? AND completed_date IS NOT NULL", userID, GoalCompleted).
		Find(&completed).Error; err != nil {
		return nil, fmt.Errorf("failed to load completed goals: %w", err)
	}

	analytics := Analytics{TotalGoals: total, ActiveGoals: active}
	if total > 0 {
		analytics.CompletionRate = float64(stats.TotalGoalsCompleted) / float64(total) * 100
	}
	if len(completed) > 0 {
		var days int
		for _, g := range completed {
			days += int(math.Floor(g.CompletedDate.Sub(g.StartDate).Hours() / 24))
		}
		analytics.AverageCompletionDays = math.Round(float64(days)/float64(len(completed))*10) / 10
	}

	return &StatsResponse{Stats: stats, Analytics: analytics}, nil
}

// ResetPoints zeroes the weekly or monthly point bucket for every user and
// returns how many stats rows were touched.
func (s *GoalService) ResetPoints(period string) (int64, error) {
	var column string
	switch strings.ToLower(period) {
	case "weekly":
		column = "weekly_points"
	case "monthly":
		column = "monthly_points"
	default:
		return 0, services.NewValidationError("period", "Period must be weekly or monthly")
	}

	res := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&Stats{}).
		Update(column, 0)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset %s points: %w", period, res.Error)
	}
	return res.RowsAffected, nil
}

// ensureStats returns the user's stats row, creating it on first access.
func (s *GoalService) ensureStats(tx *gorm.DB, userID uuid.UUID, lock bool) (*Stats, error) {
	row := Stats{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create stats: %w", err)
	}

	query := tx
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var stats Stats
	if err := query.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &stats, nil
}

func lockGoal(tx *gorm.DB, userID, goalID uuid.UUID, goal *Goal) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", goalID, userID).
		First(goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrGoalNotFound
	}
	return err
}

// awardMilestones creates the threshold achievements the goal has reached
// and not yet earned. The unique (goal_id, milestone) index turns a repeat
// into a no-op.
func awardMilestones(tx *gorm.DB, goal *Goal, stats *Stats, now time.Time) ([]Achievement, error) {
	pct := goal.ProgressPercentage()
	var awarded []Achievement

	for _, m := range milestoneThresholds {
		if pct < float64(m) {
			break
		}
		goalID := goal.ID
		threshold := m
		a := Achievement{
			UserID:       goal.UserID,
			GoalID:       &goalID,
			Milestone:    &threshold,
			Title:        fmt.Sprintf("%d%% Progress", m),
			Description:  fmt.Sprintf("Reached %d%% progress on %s", m, goal.Title),
			Type:         AchievementMilestone,
			PointsEarned: m / 5,
			BadgeIcon:    "📈",
			BadgeColor:   "#FF9800",
			AchievedAt:   now,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "goal_id"}, {Name: "milestone"}},
			DoNothing: true,
		}).Create(&a)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to create milestone: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		stats.RecordAchievement(&a, now)
		awarded = append(awarded, a)
	}
	return awarded, nil
}

func awardCompletion(tx *gorm.DB, goal *Goal, stats *Stats, now time.Time) (*Achievement, error) {
	goalID := goal.ID
	a := &Achievement{
		UserID:       goal.UserID,
		GoalID:       &goalID,
		Title:        "Goal Completed!",
		Description:  fmt.Sprintf("Completed goal: %s", goal.Title),
		Type:         AchievementCompletion,
		PointsEarned: CompletionBonus(goal.ImportanceLevel),
		BadgeIcon:    "🏆",
		BadgeColor:   "#FFD700",
		AchievedAt:   now,
	}
	if err := tx.Create(a).Error; err != nil {
		return nil, fmt.Errorf("failed to create completion achievement: %w", err)
	}
	stats.RecordAchievement(a, now)
	stats.RecordCompletion()
	return a, nil
}

func validateImportance(level int) error {
	if level < 1 || level > 10 {
		return services.NewValidationError("importance_level", "Importance level must be between 1 and 10")
	}
	return nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, services.NewValidationError("target_date", "Target date must be an ISO 8601 date")
}
