package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// Payment records an invoice outcome reported by the payment provider. Each
// (invoice, status) pair is stored once, so redelivered webhooks are no-ops.
type Payment struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	SubscriptionID  *uuid.UUID     `gorm:"type:uuid;index" json:"subscription_id,omitempty"`
	InvoiceID       string         `gorm:"size:255;uniqueIndex:idx_payment_invoice_status" json:"invoice_id"`
	PaymentIntentID string         `gorm:"size:255" json:"payment_intent_id"`
	AmountCents     int64          `gorm:"not null" json:"amount_cents"`
	Currency        string         `gorm:"size:3;default:'usd'" json:"currency"`
	Status          string         `gorm:"size:20;not null;uniqueIndex:idx_payment_invoice_status" json:"status"`
	Description     string         `gorm:"type:text" json:"description"`
	Metadata        datatypes.JSON `json:"metadata"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
