package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription mirrors a payment provider subscription. A user can collect
// several over time; the newest one is reported by the status endpoint.
type Subscription struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	ProviderID         string             `gorm:"size:255;uniqueIndex" json:"provider_subscription_id"`
	PriceID            string             `gorm:"size:255" json:"price_id"`
	Tier               entitlement.Tier   `gorm:"size:20;not null" json:"tier"`
	Status             entitlement.Status `gorm:"size:20;not null" json:"status"`
	CurrentPeriodStart *time.Time         `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `gorm:"default:false" json:"cancel_at_period_end"`
	TrialStart         *time.Time         `json:"trial_start,omitempty"`
	TrialEnd           *time.Time         `json:"trial_end,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	User               User               `gorm:"foreignKey:UserID" json:"-"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
