package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User owns credentials and the subscription fields the entitlement rules
// read. The entitlement columns live directly on the users table.
type User struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password         string    `gorm:"not null" json:"-"`
	StripeCustomerID *string   `gorm:"size:255;uniqueIndex" json:"-"`

	entitlement.Subject

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Tier == "" {
		u.Tier = entitlement.TierFree
	}
	if u.Status == "" {
		u.Status = entitlement.StatusActive
	}
	return nil
}

// Entitlement evaluates the user's access at now.
func (u *User) Entitlement(now time.Time) entitlement.Entitlement {
	return u.Subject.Evaluate(now)
}
