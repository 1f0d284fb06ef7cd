package payment

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrUnknownPrice     = errors.New("no price configured for plan")
	ErrNotConfigured    = errors.New("payment provider not configured")
)

const (
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

// Provider is the payment backend used for checkout, cancellation and
// webhook verification.
type Provider interface {
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
	// ParseWebhook verifies signature against the webhook secret and returns
	// the decoded event. It returns ErrInvalidSignature on mismatch.
	ParseWebhook(payload []byte, signature string) (*Event, error)
	Name() string
}

type CheckoutRequest struct {
	UserID     string
	CustomerID string
	Tier       entitlement.Tier
	PriceID    string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"checkout_url"`
}

// Event types the subscription service reacts to.
const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventSubscriptionCreated   = "customer.subscription.created"
	EventSubscriptionUpdated   = "customer.subscription.updated"
	EventSubscriptionDeleted   = "customer.subscription.deleted"
	EventInvoicePaid           = "invoice.payment_succeeded"
	EventInvoiceFailed         = "invoice.payment_failed"
	EventSubscriptionTrialEnds = "customer.subscription.trial_will_end"
)

// Event is a provider webhook reduced to the fields this service uses.
// Exactly one of Checkout, Subscription or Invoice is set for known types.
type Event struct {
	ID           string
	Type         string
	Checkout     *CheckoutData
	Subscription *SubscriptionData
	Invoice      *InvoiceData
}

type CheckoutData struct {
	SessionID      string
	CustomerID     string
	SubscriptionID string
	Metadata       map[string]string
}

type SubscriptionData struct {
	ID                 string
	CustomerID         string
	Status             string
	PriceID            string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	TrialStart         *time.Time
	TrialEnd           *time.Time
	Metadata           map[string]string
}

type InvoiceData struct {
	ID              string
	CustomerID      string
	SubscriptionID  string
	PaymentIntentID string
	AmountPaid      int64
	AmountDue       int64
	Currency        string
	Description     string
}

// Prices maps tiers and billing periods to provider price ids.
type Prices struct {
	PremiumMonthly      string
	PremiumYearly       string
	ProfessionalMonthly string
	ProfessionalYearly  string
}

func PricesFromConfig(cfg *config.Config) Prices {
	return Prices{
		PremiumMonthly:      cfg.StripePricePremiumMonthly,
		PremiumYearly:       cfg.StripePricePremiumYearly,
		ProfessionalMonthly: cfg.StripePriceProfessionalMonthly,
		ProfessionalYearly:  cfg.StripePriceProfessionalYearly,
	}
}

// PriceID returns the configured price for tier and period.
func (p Prices) PriceID(tier entitlement.Tier, period string) (string, error) {
	var id string
	switch {
	case tier == entitlement.TierPremium && period == PeriodMonthly:
		id = p.PremiumMonthly
	case tier == entitlement.TierPremium && period == PeriodYearly:
		id = p.PremiumYearly
	case tier == entitlement.TierProfessional && period == PeriodMonthly:
		id = p.ProfessionalMonthly
	case tier == entitlement.TierProfessional && period == PeriodYearly:
		id = p.ProfessionalYearly
	}
	if id == "" {
		return "", ErrUnknownPrice
	}
	return id, nil
}

// TierForPrice maps a price id back to its tier. Unknown prices report false.
func (p Prices) TierForPrice(priceID string) (entitlement.Tier, bool) {
	if priceID == "" {
		return entitlement.TierFree, false
	}
	switch priceID {
	case p.PremiumMonthly, p.PremiumYearly:
		return entitlement.TierPremium, true
	case p.ProfessionalMonthly, p.ProfessionalYearly:
		return entitlement.TierProfessional, true
	}
	return entitlement.TierFree, false
}
