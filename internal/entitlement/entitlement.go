package entitlement

import "time"

// DefaultPeriod is the paid period granted when an upgrade has no explicit expiry.
const DefaultPeriod = 30 * 24 * time.Hour

// DefaultTrialDays is the trial length used when none is configured.
const DefaultTrialDays = 7

// Subject holds the subscription fields the entitlement rules read. It is
// embedded in the user model so the columns live on the users table.
type Subject struct {
	Tier        Tier       `gorm:"column:subscription_tier;size:20;not null;default:'free'" json:"subscription_tier"`
	Status      Status     `gorm:"column:subscription_status;size:20;not null;default:'active'" json:"subscription_status"`
	ExpiresAt   *time.Time `gorm:"column:subscription_expires_at" json:"subscription_expires_at"`
	TrialUsed   bool       `gorm:"column:trial_used;default:false" json:"trial_used"`
	TrialEndsAt *time.Time `gorm:"column:trial_ends_at" json:"trial_ends_at"`
}

// Entitlement is the derived view of a Subject at a point in time.
type Entitlement struct {
	Tier           Tier `json:"tier"`
	IsPremium      bool `json:"is_premium"`
	IsProfessional bool `json:"is_professional"`
	IsOnTrial      bool `json:"is_on_trial"`
}

// IsPremium reports whether any paid tier is in effect at now. A canceled
// subscription stays entitled until its expiry; without an expiry it is not.
// A trial is also bounded by its trial end.
func (s Subject) IsPremium(now time.Time) bool {
	if s.Tier == TierFree || !s.Tier.Valid() {
		return false
	}
	if s.ExpiresAt != nil && s.ExpiresAt.Before(now) {
		return false
	}
	switch s.Status {
	case StatusActive:
		return true
	case StatusTrialing:
		return s.TrialEndsAt == nil || s.TrialEndsAt.After(now)
	case StatusCanceled:
		return s.ExpiresAt != nil
	default:
		return false
	}
}

func (s Subject) IsProfessional(now time.Time) bool {
	return s.IsPremium(now) && s.Tier == TierProfessional
}

func (s Subject) IsOnTrial(now time.Time) bool {
	return s.Status == StatusTrialing && s.TrialEndsAt != nil && s.TrialEndsAt.After(now)
}

// Evaluate computes all derived flags at once.
func (s Subject) Evaluate(now time.Time) Entitlement {
	return Entitlement{
		Tier:           s.Tier,
		IsPremium:      s.IsPremium(now),
		IsProfessional: s.IsProfessional(now),
		IsOnTrial:      s.IsOnTrial(now),
	}
}

// StartTrial grants a premium trial once per account. It returns false and
// leaves the subject untouched when the trial was already used.
func (s *Subject) StartTrial(now time.Time, days int) bool {
	if s.TrialUsed {
		return false
	}
	if days <= 0 {
		days = DefaultTrialDays
	}
	end := now.Add(time.Duration(days) * 24 * time.Hour)
	s.Tier = TierPremium
	s.Status = StatusTrialing
	s.TrialEndsAt = &end
	s.TrialUsed = true
	return true
}

// Upgrade activates tier until expiresAt, or for DefaultPeriod when nil.
// Trial fields are not touched.
func (s *Subject) Upgrade(tier Tier, now time.Time, expiresAt *time.Time) {
	s.Tier = tier
	s.Status = StatusActive
	if expiresAt != nil {
		exp := *expiresAt
		s.ExpiresAt = &exp
		return
	}
	exp := now.Add(DefaultPeriod)
	s.ExpiresAt = &exp
}

// Cancel keeps the expiry so access lasts until the end of the paid period.
func (s *Subject) Cancel() {
	s.Status = StatusCanceled
}

func (s *Subject) MarkPastDue() {
	s.Status = StatusPastDue
}
