package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/payment"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTrialUsed            = errors.New("Trial already used")
	ErrNoActiveSubscription = errors.New("No active subscription found")
	ErrPaymentProvider      = errors.New("payment provider error")
)

type SubscriptionService struct {
	db       *gorm.DB
	cfg      *config.Config
	provider payment.Provider
	prices   payment.Prices
	now      func() time.Time
}

// NewSubscriptionService wires billing to provider. provider may be nil when
// no payment backend is configured; checkout then fails with
// ErrPaymentProvider.
func NewSubscriptionService(db *gorm.DB, cfg *config.Config, provider payment.Provider) *SubscriptionService {
	return &SubscriptionService{
		db:       db,
		cfg:      cfg,
		provider: provider,
		prices:   payment.PricesFromConfig(cfg),
		now:      time.Now,
	}
}

func (s *SubscriptionService) Status(user *models.User) (*dto.SubscriptionStatusResponse, error) {
	now := s.now()
	resp := &dto.SubscriptionStatusResponse{
		User:   dto.NewUserResponse(user, now),
		Limits: entitlement.Limits(user.Entitlement(now)),
	}

	var sub models.Subscription
	err := s.db.Where("user_id = ?", user.ID).Order("created_at DESC").First(&sub).Error
	switch {
	case err == nil:
		resp.Subscription = &sub
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return resp, nil
}

// StartTrial grants the one-time premium trial. A second call returns
// ErrTrialUsed and leaves the user untouched.
func (s *SubscriptionService) StartTrial(userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID, &user); err != nil {
			return err
		}
		if !user.StartTrial(s.now(), s.cfg.TrialDays) {
			return ErrTrialUsed
		}
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}

	slog.Info("trial started", "user_id", userID, "trial_ends_at", user.TrialEndsAt)
	return &user, nil
}

func (s *SubscriptionService) CreateCheckout(ctx context.Context, user *models.User, req dto.CheckoutRequest) (*payment.CheckoutSession, error) {
	tierName := strings.ToLower(strings.TrimSpace(req.Tier))
	if tierName == "" {
		tierName = string(entitlement.TierPremium)
	}
	period := strings.ToLower(strings.TrimSpace(req.BillingPeriod))
	if period == "" {
		period = payment.PeriodMonthly
	}

	tier := entitlement.Tier(tierName)
	priceID, err := s.prices.PriceID(tier, period)
	if err != nil {
		return nil, invalid("tier", "Invalid subscription plan")
	}

	if s.provider == nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, payment.ErrNotConfigured)
	}

	customerID := ""
	if user.StripeCustomerID != nil {
		customerID = *user.StripeCustomerID
	}
	if customerID == "" {
		customerID, err = s.provider.CreateCustomer(ctx, user.ID.String(), user.Email)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
		}
		if err := s.db.Model(user).Update("stripe_customer_id", customerID).Error; err != nil {
			return nil, fmt.Errorf("failed to store customer id: %w", err)
		}
		user.StripeCustomerID = &customerID
	}

	base := strings.TrimRight(s.cfg.AppURL, "/")
	session, err := s.provider.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		UserID:     user.ID.String(),
		CustomerID: customerID,
		Tier:       tier,
		PriceID:    priceID,
		SuccessURL: base + "/subscription/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  base + "/subscription/cancel",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	return session, nil
}

// Cancel stops renewal. Access lasts until the stored expiry. The provider is
// called before any row is locked; if the local update then fails, the
// provider's subscription.updated webhook carries cancel_at_period_end and
// brings the user in line.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !cancelable(&user) {
		return nil, ErrNoActiveSubscription
	}

	sub, err := s.activeSubscription(s.db, userID)
	if err != nil {
		return nil, err
	}
	if sub != nil && sub.ProviderID != "" && s.provider != nil {
		if err := s.provider.CancelAtPeriodEnd(ctx, sub.ProviderID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := lockUser(tx, userID, &user); err != nil {
			return err
		}
		if !cancelable(&user) {
			return ErrNoActiveSubscription
		}
		if sub != nil {
			if err := tx.Model(sub).Update("cancel_at_period_end", true).Error; err != nil {
				return err
			}
		}
		user.Cancel()
		return tx.Model(&user).Update("subscription_status", user.Status).Error
	})
	if err != nil {
		if sub != nil && sub.ProviderID != "" && s.provider != nil && !errors.Is(err, ErrNoActiveSubscription) {
			slog.Error("subscription canceled at provider but not locally",
				"user_id", userID, "subscription_id", sub.ProviderID, "error", err)
		}
		return nil, err
	}

	slog.Info("subscription canceled", "user_id", userID, "expires_at", user.ExpiresAt)
	return &user, nil
}

func cancelable(user *models.User) bool {
	return user.Tier != entitlement.TierFree && user.Status != entitlement.StatusCanceled
}

// activeSubscription returns the user's latest active or trialing provider
// subscription, or nil when there is none.
func (s *SubscriptionService) activeSubscription(db *gorm.DB, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := db.Where("user_id = ? AND status IN ?", userID, []string{string(entitlement.StatusActive), string(entitlement.StatusTrialing)}).
		Order("created_at DESC").First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return &sub, nil
}

// Grant sets tier directly for days, bypassing the payment provider.
func (s *SubscriptionService) Grant(email string, tier entitlement.Tier, days int) (*models.User, error) {
	if tier == entitlement.TierFree || !tier.Valid() {
		return nil, invalid("tier", "Tier must be premium or professional")
	}
	var user models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		now := s.now()
		var expires *time.Time
		if days > 0 {
			t := now.Add(time.Duration(days) * 24 * time.Hour)
			expires = &t
		}
		user.Upgrade(tier, now, expires)
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail is used by the admin CLI.
func (s *SubscriptionService) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// HandleEvent applies a verified provider webhook. Events for unknown
// customers are logged and acknowledged.
func (s *SubscriptionService) HandleEvent(ctx context.Context, event *payment.Event) error {
	switch event.Type {
	case payment.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case payment.EventSubscriptionCreated, payment.EventSubscriptionUpdated:
		return s.handleSubscriptionChanged(ctx, event)
	case payment.EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event)
	case payment.EventInvoicePaid:
		return s.handleInvoice(ctx, event, models.PaymentSucceeded)
	case payment.EventInvoiceFailed:
		return s.handleInvoice(ctx, event, models.PaymentFailed)
	case payment.EventSubscriptionTrialEnds:
		if event.Subscription != nil {
			slog.Info("subscription trial ending", "subscription_id", event.Subscription.ID, "trial_end", event.Subscription.TrialEnd)
		}
		return nil
	default:
		slog.Warn("webhook unknown event type", "event_type", event.Type, "event_id", event.ID)
		return nil
	}
}

func (s *SubscriptionService) handleCheckoutCompleted(ctx context.Context, event *payment.Event) error {
	cs := event.Checkout
	if cs == nil {
		return nil
	}
	userID, err := uuid.Parse(cs.Metadata["user_id"])
	if err != nil {
		slog.Warn("checkout session has no user_id in metadata, skipping", "session_id", cs.SessionID)
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := lockUser(tx, userID, &user); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				slog.Warn("checkout session for unknown user, skipping", "user_id", userID)
				return nil
			}
			return err
		}

		if cs.CustomerID != "" {
			user.StripeCustomerID = &cs.CustomerID
		}
		if tier := entitlement.ParseTier(cs.Metadata["tier"]); tier != entitlement.TierFree {
			user.Upgrade(tier, s.now(), nil)
		}
		if err := tx.Save(&user).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		slog.Info("checkout completed", "user_id", userID, "customer_id", cs.CustomerID, "tier", user.Tier)
		return nil
	})
}

func (s *SubscriptionService) handleSubscriptionChanged(ctx context.Context, event *payment.Event) error {
	data := event.Subscription
	if data == nil {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userForSubscription(tx, data)
		if err != nil || user == nil {
			return err
		}

		tier, ok := s.prices.TierForPrice(data.PriceID)
		if !ok {
			tier = entitlement.ParseTier(data.Metadata["tier"])
		}
		if tier == entitlement.TierFree {
			tier = user.Tier
		}
		status := entitlement.ParseStatus(data.Status)
		if data.CancelAtPeriodEnd && status == entitlement.StatusActive {
			status = entitlement.StatusCanceled
		}

		sub := models.Subscription{ProviderID: data.ID}
		if err := tx.Where("provider_id = ?", data.ID).First(&sub).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		sub.UserID = user.ID
		sub.PriceID = data.PriceID
		sub.Tier = tier
		sub.Status = status
		sub.CurrentPeriodStart = data.CurrentPeriodStart
		sub.CurrentPeriodEnd = data.CurrentPeriodEnd
		sub.CancelAtPeriodEnd = data.CancelAtPeriodEnd
		sub.TrialStart = data.TrialStart
		sub.TrialEnd = data.TrialEnd
		if err := tx.Save(&sub).Error; err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}

		user.Tier = tier
		user.Status = status
		if data.CurrentPeriodEnd != nil {
			user.ExpiresAt = data.CurrentPeriodEnd
		}
		// A provider trial replaces any earlier local trial window.
		if status == entitlement.StatusTrialing {
			if end := data.TrialEnd; end != nil {
				user.TrialEndsAt = end
			} else if data.CurrentPeriodEnd != nil {
				user.TrialEndsAt = data.CurrentPeriodEnd
			}
		}
		if err := tx.Save(user).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		slog.Info("subscription synced", "user_id", user.ID, "subscription_id", data.ID, "tier", tier, "status", status)
		return nil
	})
}

func (s *SubscriptionService) handleSubscriptionDeleted(ctx context.Context, event *payment.Event) error {
	data := event.Subscription
	if data == nil {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userForSubscription(tx, data)
		if err != nil || user == nil {
			return err
		}

		if err := tx.Model(&models.Subscription{}).Where("provider_id = ?", data.ID).
			Update("status", entitlement.StatusCanceled).Error; err != nil {
			return err
		}

		user.Cancel()
		if err := tx.Model(user).Update("subscription_status", user.Status).Error; err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		slog.Info("subscription deleted", "user_id", user.ID, "subscription_id", data.ID)
		return nil
	})
}

func (s *SubscriptionService) handleInvoice(ctx context.Context, event *payment.Event, status string) error {
	inv := event.Invoice
	if inv == nil {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("stripe_customer_id = ?", inv.CustomerID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				slog.Warn("invoice for unknown customer, skipping", "customer_id", inv.CustomerID, "invoice_id", inv.ID)
				return nil
			}
			return err
		}

		var sub *models.Subscription
		if inv.SubscriptionID != "" {
			var found models.Subscription
			if err := tx.Where("provider_id = ?", inv.SubscriptionID).First(&found).Error; err == nil {
				sub = &found
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		amount := inv.AmountPaid
		if status == models.PaymentFailed {
			amount = inv.AmountDue
		}
		meta, _ := json.Marshal(map[string]string{
			"event_id":        event.ID,
			"subscription_id": inv.SubscriptionID,
		})
		record := models.Payment{
			UserID:          user.ID,
			InvoiceID:       inv.ID,
			PaymentIntentID: inv.PaymentIntentID,
			AmountCents:     amount,
			Currency:        inv.Currency,
			Status:          status,
			Description:     inv.Description,
			Metadata:        datatypes.JSON(meta),
		}
		if sub != nil {
			record.SubscriptionID = &sub.ID
		}
		if record.Currency == "" {
			record.Currency = "usd"
		}
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "invoice_id"}, {Name: "status"}},
			DoNothing: true,
		}).Create(&record)
		if result.Error != nil {
			return fmt.Errorf("failed to record payment: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			slog.Info("invoice already recorded, skipping", "invoice_id", inv.ID, "status", status, "event_id", event.ID)
			return nil
		}

		switch {
		case status == models.PaymentFailed && inv.SubscriptionID != "":
			user.MarkPastDue()
			if sub != nil {
				if err := tx.Model(sub).Update("status", entitlement.StatusPastDue).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&user).Update("subscription_status", user.Status).Error; err != nil {
				return err
			}
			slog.Warn("invoice payment failed", "user_id", user.ID, "invoice_id", inv.ID)
		case status == models.PaymentSucceeded && user.Status == entitlement.StatusPastDue:
			if err := tx.Model(&user).Update("subscription_status", entitlement.StatusActive).Error; err != nil {
				return err
			}
			slog.Info("invoice paid, subscription reactivated", "user_id", user.ID, "invoice_id", inv.ID)
		default:
			slog.Info("invoice recorded", "user_id", user.ID, "invoice_id", inv.ID, "status", status)
		}
		return nil
	})
}

// userForSubscription resolves the owner of a provider subscription by
// customer id, then by user_id metadata. It returns nil, nil when unknown.
func (s *SubscriptionService) userForSubscription(tx *gorm.DB, data *payment.SubscriptionData) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stripe_customer_id = ?", data.CustomerID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if id, perr := uuid.Parse(data.Metadata["user_id"]); perr == nil {
		if err := lockUser(tx, id, &user); err == nil {
			if user.StripeCustomerID == nil && data.CustomerID != "" {
				user.StripeCustomerID = &data.CustomerID
			}
			return &user, nil
		} else if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
	}

	slog.Warn("subscription has unknown customer, skipping", "customer_id", data.CustomerID, "subscription_id", data.ID)
	return nil, nil
}

func lockUser(tx *gorm.DB, id uuid.UUID, user *models.User) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}
