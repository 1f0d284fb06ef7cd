package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeatureUsage counts how often a user has used a gated feature.
type FeatureUsage struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_feature_usage_user_feature" json:"user_id"`
	FeatureName  string           `gorm:"size:100;not null;uniqueIndex:idx_feature_usage_user_feature" json:"feature_name"`
	UsageCount   int              `gorm:"not null;default:0" json:"usage_count"`
	TierRequired entitlement.Tier `gorm:"size:20" json:"tier_required"`
	LastUsed     time.Time        `json:"last_used"`
	CreatedAt    time.Time        `json:"created_at"`
}

func (FeatureUsage) TableName() string {
	return "feature_usage"
}

func (f *FeatureUsage) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
