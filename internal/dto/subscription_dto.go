package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/models"
	"github.com/google/uuid"
)

type CheckoutRequest struct {
	Tier          string `json:"tier"`
	BillingPeriod string `json:"billing_period"`
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

type SubscriptionStatusResponse struct {
	User         UserResponse         `json:"user"`
	Subscription *models.Subscription `json:"subscription"`
	Limits       map[string]int       `json:"feature_limits"`
}

type UserEnvelope struct {
	Message string       `json:"message,omitempty"`
	User    UserResponse `json:"user"`
}

type FeatureAccessResponse struct {
	entitlement.Decision
	CurrentTier    entitlement.Tier `json:"current_tier"`
	IsPremium      bool             `json:"is_premium"`
	IsProfessional bool             `json:"is_professional"`
	Limits         map[string]int   `json:"limits"`
	UpgradeURL     string           `json:"upgrade_url,omitempty"`
}

type FeatureUsageResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Feature    string `json:"feature"`
	UsageCount int    `json:"usage_count"`
	Limit      int    `json:"limit"`
}

type FeatureUsageEntry struct {
	UsageCount   int              `json:"usage_count"`
	LastUsed     time.Time        `json:"last_used"`
	TierRequired entitlement.Tier `json:"tier_required"`
	Limit        int              `json:"limit"`
}

type TrialStatus struct {
	IsOnTrial   bool       `json:"is_on_trial"`
	TrialEndsAt *time.Time `json:"trial_ends_at"`
	TrialUsed   bool       `json:"trial_used"`
}

type UsageAnalyticsResponse struct {
	UserID         uuid.UUID                    `json:"user_id"`
	UserTier       entitlement.Tier             `json:"subscription_tier"`
	IsPremium      bool                         `json:"is_premium"`
	IsProfessional bool                         `json:"is_professional"`
	FeatureUsage   map[string]FeatureUsageEntry `json:"feature_usage"`
	FeatureLimits  map[string]int               `json:"feature_limits"`
	TrialStatus    TrialStatus                  `json:"trial_status"`
}

// SubscriptionValueResponse estimates what a paid plan is worth to a user.
type SubscriptionValueResponse struct {
	EstimatedMonthlyValue string `json:"estimated_monthly_value"`
	PremiumFeaturesUsed   int64  `json:"premium_features_used"`
	SubscriptionCost      string `json:"subscription_cost"`
}

type DetailedUsageResponse struct {
	UsageAnalyticsResponse
	TotalFeaturesUsed int                        `json:"total_features_used"`
	SubscriptionValue *SubscriptionValueResponse `json:"subscription_value"`
}
