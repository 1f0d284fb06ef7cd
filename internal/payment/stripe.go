package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/stripe/stripe-go/v81"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/subscription"
	"github.com/stripe/stripe-go/v81/webhook"
)

type StripeProvider struct {
	webhookSecret string
}

func NewStripeProvider(cfg *config.Config) *StripeProvider {
	stripe.Key = cfg.StripeSecretKey

	slog.Info("stripe provider initialized", "app_env", cfg.AppEnv)

	return &StripeProvider{webhookSecret: cfg.StripeWebhookSecret}
}

func (s *StripeProvider) Name() string {
	return "stripe"
}

func (s *StripeProvider) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}
	return c.ID, nil
}

func (s *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"user_id": req.UserID,
			"tier":    req.Tier.String(),
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": req.UserID,
				"tier":    req.Tier.String(),
			},
		},
		AllowPromotionCodes: stripe.Bool(true),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	slog.Info("stripe checkout created", "user_id", req.UserID, "tier", req.Tier, "session_id", sess.ID)
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (s *StripeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("failed to cancel stripe subscription: %w", err)
	}
	return nil
}

func (s *StripeProvider) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if s.webhookSecret == "" {
		return nil, ErrNotConfigured
	}

	// Stripe API versions are backwards compatible for the fields read here.
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return decodeStripeEvent(event)
}

func decodeStripeEvent(event stripe.Event) (*Event, error) {
	out := &Event{ID: event.ID, Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}
	raw := event.Data.Raw

	switch out.Type {
	case EventCheckoutCompleted:
		var cs struct {
			ID           string            `json:"id"`
			Customer     json.RawMessage   `json:"customer"`
			Subscription json.RawMessage   `json:"subscription"`
			Metadata     map[string]string `json:"metadata"`
		}
		if err := json.Unmarshal(raw, &cs); err != nil {
			return nil, fmt.Errorf("failed to parse checkout session: %w", err)
		}
		out.Checkout = &CheckoutData{
			SessionID:      cs.ID,
			CustomerID:     expandableID(cs.Customer),
			SubscriptionID: expandableID(cs.Subscription),
			Metadata:       cs.Metadata,
		}

	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted, EventSubscriptionTrialEnds:
		var sub struct {
			ID                 string            `json:"id"`
			Customer           json.RawMessage   `json:"customer"`
			Status             string            `json:"status"`
			CurrentPeriodStart int64             `json:"current_period_start"`
			CurrentPeriodEnd   int64             `json:"current_period_end"`
			CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
			TrialStart         int64             `json:"trial_start"`
			TrialEnd           int64             `json:"trial_end"`
			Metadata           map[string]string `json:"metadata"`
			Items              struct {
				Data []struct {
					CurrentPeriodStart int64 `json:"current_period_start"`
					CurrentPeriodEnd   int64 `json:"current_period_end"`
					Price              struct {
						ID string `json:"id"`
					} `json:"price"`
				} `json:"data"`
			} `json:"items"`
		}
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		data := &SubscriptionData{
			ID:                sub.ID,
			CustomerID:        expandableID(sub.Customer),
			Status:            sub.Status,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
			TrialStart:        unixTime(sub.TrialStart),
			TrialEnd:          unixTime(sub.TrialEnd),
			Metadata:          sub.Metadata,
		}
		start, end := sub.CurrentPeriodStart, sub.CurrentPeriodEnd
		if len(sub.Items.Data) > 0 {
			item := sub.Items.Data[0]
			data.PriceID = item.Price.ID
			// Newer API versions only report the period on the item.
			if start == 0 {
				start = item.CurrentPeriodStart
			}
			if end == 0 {
				end = item.CurrentPeriodEnd
			}
		}
		data.CurrentPeriodStart = unixTime(start)
		data.CurrentPeriodEnd = unixTime(end)
		out.Subscription = data

	case EventInvoicePaid, EventInvoiceFailed:
		var inv struct {
			ID            string          `json:"id"`
			Customer      json.RawMessage `json:"customer"`
			Subscription  json.RawMessage `json:"subscription"`
			PaymentIntent json.RawMessage `json:"payment_intent"`
			AmountPaid    int64           `json:"amount_paid"`
			AmountDue     int64           `json:"amount_due"`
			Currency      string          `json:"currency"`
			Description   string          `json:"description"`
		}
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, fmt.Errorf("failed to parse invoice: %w", err)
		}
		out.Invoice = &InvoiceData{
			ID:              inv.ID,
			CustomerID:      expandableID(inv.Customer),
			SubscriptionID:  expandableID(inv.Subscription),
			PaymentIntentID: expandableID(inv.PaymentIntent),
			AmountPaid:      inv.AmountPaid,
			AmountDue:       inv.AmountDue,
			Currency:        inv.Currency,
			Description:     inv.Description,
		}
	}

	return out, nil
}

// expandableID reads a Stripe field that is either an id string or an
// expanded object with an id.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
