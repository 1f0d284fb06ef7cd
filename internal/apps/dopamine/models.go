package dopamine

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
	GoalArchived  GoalStatus = "archived"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalCompleted, GoalPaused, GoalArchived:
		return true
	}
	return false
}

type GoalCategory string

const (
	CategoryTherapeutic  GoalCategory = "therapeutic"
	CategoryPersonal     GoalCategory = "personal"
	CategoryHealth       GoalCategory = "health"
	CategoryLearning     GoalCategory = "learning"
	CategorySocial       GoalCategory = "social"
	CategoryCreative     GoalCategory = "creative"
	CategoryProfessional GoalCategory = "professional"
)

func (c GoalCategory) Valid() bool {
	switch c {
	case CategoryTherapeutic, CategoryPersonal, CategoryHealth, CategoryLearning,
		CategorySocial, CategoryCreative, CategoryProfessional:
		return true
	}
	return false
}

type AchievementType string

const (
	AchievementMilestone  AchievementType = "milestone"
	AchievementStreak     AchievementType = "streak"
	AchievementCompletion AchievementType = "completion"
	AchievementProgress   AchievementType = "progress"
)

// Goal is a user-defined target tracked toward completion.
type Goal struct {
	ID                uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	Title             string       `gorm:"size:200;not null" json:"title"`
	Description       string       `gorm:"type:text" json:"description"`
	Category          GoalCategory `gorm:"size:50;not null;default:'therapeutic'" json:"category"`
	Status            GoalStatus   `gorm:"size:20;not null;default:'active';index" json:"status"`
	TargetValue       float64      `gorm:"not null" json:"target_value"`
	CurrentValue      float64      `gorm:"not null;default:0" json:"current_value"`
	Unit              string       `gorm:"size:50;default:'sessions'" json:"unit"`
	StartDate         time.Time    `json:"start_date"`
	TargetDate        *time.Time   `json:"target_date"`
	CompletedDate     *time.Time   `json:"completed_date"`
	RewardDescription string       `gorm:"size:500" json:"reward_description"`
	ImportanceLevel   int          `gorm:"not null;default:5" json:"importance_level"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func (Goal) TableName() string { return "dopamine_goals" }

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// ProgressPercentage is current/target as a percentage capped at 100.
func (g *Goal) ProgressPercentage() float64 {
	if g.TargetValue <= 0 {
		return 0
	}
	return math.Min(100, g.CurrentValue/g.TargetValue*100)
}

// DaysRemaining is the whole days until the target date, never negative.
// It is nil when the goal has no target date.
func (g *Goal) DaysRemaining(now time.Time) *int {
	if g.TargetDate == nil {
		return nil
	}
	days := int(math.Floor(g.TargetDate.Sub(now).Hours() / 24))
	if days < 0 {
		days = 0
	}
	return &days
}

func (g *Goal) IsOverdue(now time.Time) bool {
	return g.TargetDate != nil && now.After(*g.TargetDate) && g.Status != GoalCompleted
}

// UpdateProgress applies increment and appends the history entry for it.
// An active goal that reaches its target is completed at now; a goal in any
// other status only moves its value.
func (g *Goal) UpdateProgress(increment float64, note string, now time.Time) *GoalProgress {
	previous := g.CurrentValue
	g.CurrentValue += increment

	if g.CurrentValue >= g.TargetValue && g.Status == GoalActive {
		g.Status = GoalCompleted
		completed := now
		g.CompletedDate = &completed
	}

	return &GoalProgress{
		GoalID:        g.ID,
		PreviousValue: previous,
		NewValue:      g.CurrentValue,
		Increment:     increment,
		Note:          note,
		CreatedAt:     now,
	}
}

// GoalProgress is an append-only history entry for a goal.
type GoalProgress struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GoalID        uuid.UUID `gorm:"type:uuid;not null;index" json:"goal_id"`
	PreviousValue float64   `json:"previous_value"`
	NewValue      float64   `json:"new_value"`
	Increment     float64   `json:"increment"`
	Note          string    `gorm:"type:text" json:"note"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (GoalProgress) TableName() string { return "dopamine_goal_progress" }

func (p *GoalProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Achievement is an immutable reward record. Milestone is set only for
// threshold milestones, and (goal_id, milestone) is unique.
type Achievement struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	GoalID       *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_achievement_goal_milestone" json:"goal_id"`
	Milestone    *int            `gorm:"uniqueIndex:idx_achievement_goal_milestone" json:"milestone,omitempty"`
	Title        string          `gorm:"size:200;not null" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	Type         AchievementType `gorm:"column:achievement_type;size:50;not null" json:"achievement_type"`
	PointsEarned int             `gorm:"not null;default:0" json:"points_earned"`
	BadgeIcon    string          `gorm:"size:100" json:"badge_icon"`
	BadgeColor   string          `gorm:"size:20;default:'#4CAF50'" json:"badge_color"`
	AchievedAt   time.Time       `gorm:"index" json:"achieved_at"`
}

func (Achievement) TableName() string { return "dopamine_achievements" }

func (a *Achievement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Stats aggregates a user's points, counters and streaks.
type Stats struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                 uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	TotalPoints            int        `gorm:"not null;default:0" json:"total_points"`
	TotalAchievements      int        `gorm:"not null;default:0" json:"total_achievements"`
	TotalGoalsCompleted    int        `gorm:"not null;default:0" json:"total_goals_completed"`
	CurrentStreak          int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak          int        `gorm:"not null;default:0" json:"longest_streak"`
	WeeklyPoints           int        `gorm:"not null;default:0" json:"weekly_points"`
	MonthlyPoints          int        `gorm:"not null;default:0" json:"monthly_points"`
	LastActivityDate       *time.Time `json:"last_activity_date"`
	CurrentMotivationLevel int        `gorm:"not null;default:5" json:"current_motivation_level"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func (Stats) TableName() string { return "dopamine_stats" }

func (s *Stats) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CurrentMotivationLevel == 0 {
		s.CurrentMotivationLevel = 5
	}
	return nil
}

// AddPoints credits the total and both period buckets. Activity after a
// lapsed streak resets the streak first.
func (s *Stats) AddPoints(points int, now time.Time) {
	if s.StreakLapsed(now) {
		s.UpdateStreak(false)
	}
	s.TotalPoints += points
	s.WeeklyPoints += points
	s.MonthlyPoints += points
	at := now
	s.LastActivityDate = &at
}

// UpdateStreak extends the current streak, or resets it when increment is false.
func (s *Stats) UpdateStreak(increment bool) {
	if !increment {
		s.CurrentStreak = 0
		return
	}
	s.CurrentStreak++
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
}

// StreakLapsed reports whether a whole calendar day has passed without
// activity since the last one.
func (s *Stats) StreakLapsed(now time.Time) bool {
	if s.CurrentStreak == 0 || s.LastActivityDate == nil {
		return false
	}
	return startOfDay(now).Sub(startOfDay(s.LastActivityDate.In(now.Location()))) > 24*time.Hour
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RecordAchievement credits an achievement's points and counts it.
func (s *Stats) RecordAchievement(a *Achievement, now time.Time) {
	s.AddPoints(a.PointsEarned, now)
	s.TotalAchievements++
}

// RecordCompletion counts a completed goal and extends the streak.
func (s *Stats) RecordCompletion() {
	s.TotalGoalsCompleted++
	s.UpdateStreak(true)
}

// --- Requests / responses ---

type CreateGoalRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	TargetValue       *float64 `json:"target_value"`
	Unit              string   `json:"unit"`
	TargetDate        *string  `json:"target_date"`
	RewardDescription string   `json:"reward_description"`
	ImportanceLevel   *int     `json:"importance_level"`
}

// UpdateGoalRequest carries only the fields to change. An empty target_date
// clears it.
type UpdateGoalRequest struct {
	Title             *string  `json:"title"`
	Description       *string  `json:"description"`
	Category          *string  `json:"category"`
	TargetValue       *float64 `json:"target_value"`
	Unit              *string  `json:"unit"`
	TargetDate        *string  `json:"target_date"`
	RewardDescription *string  `json:"reward_description"`
	ImportanceLevel   *int     `json:"importance_level"`
	Status            *string  `json:"status"`
}

type ProgressRequest struct {
	Increment *float64 `json:"increment"`
	Note      string   `json:"note"`
}

// GoalResponse adds the derived progress fields to a goal.
type GoalResponse struct {
	Goal
	ProgressPercentage float64 `json:"progress_percentage"`
	DaysRemaining      *int    `json:"days_remaining"`
	IsOverdue          bool    `json:"is_overdue"`
}

func NewGoalResponse(g *Goal, now time.Time) GoalResponse {
	return GoalResponse{
		Goal:               *g,
		ProgressPercentage: math.Round(g.ProgressPercentage()*10) / 10,
		DaysRemaining:      g.DaysRemaining(now),
		IsOverdue:          g.IsOverdue(now),
	}
}

func newGoalResponses(goals []Goal, now time.Time) []GoalResponse {
	out := make([]GoalResponse, 0, len(goals))
	for i := range goals {
		out = append(out, NewGoalResponse(&goals[i], now))
	}
	return out
}

type DailyActivity struct {
	Date          string `json:"date"`
	ActivityCount int64  `json:"activity_count"`
}

type DashboardResponse struct {
	Stats              *Stats          `json:"stats"`
	ActiveGoals        []GoalResponse  `json:"active_goals"`
	RecentAchievements []Achievement   `json:"recent_achievements"`
	CompletedThisMonth int64           `json:"completed_this_month"`
	WeeklyActivity     int64           `json:"weekly_activity"`
	MotivationTrend    []DailyActivity `json:"motivation_trend"`
}

type CreateGoalResponse struct {
	Message     string       `json:"message"`
	Goal        GoalResponse `json:"goal"`
	Achievement *Achievement `json:"achievement"`
}

type ProgressResponse struct {
	Message         string        `json:"message"`
	Goal            GoalResponse  `json:"goal"`
	ProgressEntry   *GoalProgress `json:"progress_entry"`
	PointsEarned    int           `json:"points_earned"`
	NewAchievements []Achievement `json:"new_achievements,omitempty"`
}

type CompleteGoalResponse struct {
	Message      string       `json:"message"`
	Goal         GoalResponse `json:"goal"`
	Achievement  *Achievement `json:"achievement"`
	PointsEarned int          `json:"points_earned"`
}

type AchievementsResponse struct {
	Achievements []Achievement `json:"achievements"`
	TotalCount   int64         `json:"total_count"`
	HasMore      bool          `json:"has_more"`
}

type Analytics struct {
	TotalGoals            int64   `json:"total_goals"`
	ActiveGoals           int64   `json:"active_goals"`
	CompletionRate        float64 `json:"completion_rate"`
	AverageCompletionDays float64 `json:"average_completion_days"`
}

type StatsResponse struct {
	Stats     *Stats    `json:"stats"`
	Analytics Analytics `json:"analytics"`
}
