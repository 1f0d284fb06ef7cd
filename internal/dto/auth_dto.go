package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/models"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Message string       `json:"message,omitempty"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

// UserResponse is the public view of a user with the derived entitlement
// flags evaluated at response time.
type UserResponse struct {
	ID                    uuid.UUID          `json:"id"`
	Email                 string             `json:"email"`
	CreatedAt             time.Time          `json:"created_at"`
	SubscriptionTier      entitlement.Tier   `json:"subscription_tier"`
	SubscriptionStatus    entitlement.Status `json:"subscription_status"`
	SubscriptionExpiresAt *time.Time         `json:"subscription_expires_at"`
	IsPremium             bool               `json:"is_premium"`
	IsProfessional        bool               `json:"is_professional"`
	IsOnTrial             bool               `json:"is_on_trial"`
	TrialUsed             bool               `json:"trial_used"`
	TrialEndsAt           *time.Time         `json:"trial_ends_at"`
}

func NewUserResponse(u *models.User, now time.Time) UserResponse {
	ent := u.Entitlement(now)
	return UserResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		CreatedAt:             u.CreatedAt,
		SubscriptionTier:      u.Tier,
		SubscriptionStatus:    u.Status,
		SubscriptionExpiresAt: u.ExpiresAt,
		IsPremium:             ent.IsPremium,
		IsProfessional:        ent.IsProfessional,
		IsOnTrial:             ent.IsOnTrial,
		TrialUsed:             u.TrialUsed,
		TrialEndsAt:           u.TrialEndsAt,
	}
}

type ErrorResponse struct {
	Error        string `json:"error"`
	Message      string `json:"message,omitempty"`
	Field        string `json:"field,omitempty"`
	Feature      string `json:"feature,omitempty"`
	RequiredTier string `json:"required_tier,omitempty"`
	CurrentTier  string `json:"current_tier,omitempty"`
	UpgradeURL   string `json:"upgrade_url,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Redis     string `json:"redis,omitempty"`
}
