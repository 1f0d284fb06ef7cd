package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxFeatureNameLength = 100
	valuePerFeatureCents = 299
)

// UsageService is the per-user, per-feature usage ledger.
type UsageService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUsageService(db *gorm.DB) *UsageService {
	return &UsageService{db: db, now: time.Now}
}

func validateFeature(feature string) (string, error) {
	feature = strings.TrimSpace(feature)
	if feature == "" {
		return "", invalid("feature", "Feature name is required")
	}
	if len(feature) > maxFeatureNameLength {
		return "", invalid("feature", "Feature name is too long")
	}
	return feature, nil
}

// Track records one use of feature. The first call creates the row with a
// count of one; later calls increment it.
func (s *UsageService) Track(userID uuid.UUID, feature string, tierRequired entitlement.Tier) (*models.FeatureUsage, error) {
	feature, err := validateFeature(feature)
	if err != nil {
		return nil, err
	}

	var usage models.FeatureUsage
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.ensureRow(tx, userID, feature, tierRequired); err != nil {
			return err
		}
		return s.increment(tx, userID, feature, &usage)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to track usage: %w", err)
	}
	return &usage, nil
}

// Count returns how many times userID has used feature.
func (s *UsageService) Count(userID uuid.UUID, feature string) (int, error) {
	var usage models.FeatureUsage
	err := s.db.Where("user_id = ? AND feature_name = ?", userID, feature).Limit(1).Find(&usage).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load usage: %w", err)
	}
	return usage.UsageCount, nil
}

// Check evaluates access against the ledger without recording anything.
func (s *UsageService) Check(user *models.User, feature string) (entitlement.Decision, error) {
	feature, err := validateFeature(feature)
	if err != nil {
		return entitlement.Decision{}, err
	}
	used, err := s.Count(user.ID, feature)
	if err != nil {
		return entitlement.Decision{}, err
	}
	return entitlement.CheckAccess(user.Entitlement(s.now()), feature, used), nil
}

// Consume checks access and, when granted, records the use in the same
// transaction with the ledger row locked, so concurrent calls cannot push a
// free account past its limit.
func (s *UsageService) Consume(user *models.User, feature string) (entitlement.Decision, error) {
	feature, err := validateFeature(feature)
	if err != nil {
		return entitlement.Decision{}, err
	}

	var decision entitlement.Decision
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.ensureRow(tx, user.ID, feature, entitlement.RequiredTier(feature)); err != nil {
			return err
		}

		var usage models.FeatureUsage
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND feature_name = ?", user.ID, feature).
			First(&usage).Error; err != nil {
			return err
		}

		decision = entitlement.CheckAccess(user.Entitlement(s.now()), feature, usage.UsageCount)
		if !decision.Allowed {
			return nil
		}
		if err := s.increment(tx, user.ID, feature, &usage); err != nil {
			return err
		}
		decision.Used = usage.UsageCount
		return nil
	})
	if err != nil {
		return entitlement.Decision{}, fmt.Errorf("failed to consume usage: %w", err)
	}
	return decision, nil
}

func (s *UsageService) Analytics(user *models.User) (*dto.UsageAnalyticsResponse, error) {
	var rows []models.FeatureUsage
	if err := s.db.Where("user_id = ? AND usage_count > 0", user.ID).Order("feature_name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load usage analytics: %w", err)
	}

	ent := user.Entitlement(s.now())
	limits := entitlement.Limits(ent)

	usage := make(map[string]dto.FeatureUsageEntry, len(rows))
	for _, r := range rows {
		limit, ok := limits[r.FeatureName]
		if !ok {
			limit = entitlement.CheckAccess(ent, r.FeatureName, 0).Limit
		}
		usage[r.FeatureName] = dto.FeatureUsageEntry{
			UsageCount:   r.UsageCount,
			LastUsed:     r.LastUsed,
			TierRequired: r.TierRequired,
			Limit:        limit,
		}
	}

	return &dto.UsageAnalyticsResponse{
		UserID:         user.ID,
		UserTier:       user.Tier,
		IsPremium:      ent.IsPremium,
		IsProfessional: ent.IsProfessional,
		FeatureUsage:   usage,
		FeatureLimits:  limits,
		TrialStatus: dto.TrialStatus{
			IsOnTrial:   ent.IsOnTrial,
			TrialEndsAt: user.TrialEndsAt,
			TrialUsed:   user.TrialUsed,
		},
	}, nil
}

// SubscriptionValue estimates the monthly value a paid user gets from the
// paid features they have used, at 2.99 per feature.
func (s *UsageService) SubscriptionValue(user *models.User) (*dto.SubscriptionValueResponse, error) {
	var used int64
	err := s.db.Model(&models.FeatureUsage{}).
		Where("user_id = ? AND usage_count > 0 AND tier_required <> ?", user.ID, entitlement.TierFree).
		Count(&used).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count premium usage: %w", err)
	}

	cost := "$9.99"
	if user.Tier == entitlement.TierProfessional {
		cost = "$29.99"
	}
	cents := used * valuePerFeatureCents
	return &dto.SubscriptionValueResponse{
		EstimatedMonthlyValue: fmt.Sprintf("$%d.%02d", cents/100, cents%100),
		PremiumFeaturesUsed:   used,
		SubscriptionCost:      cost,
	}, nil
}

func (s *UsageService) ensureRow(tx *gorm.DB, userID uuid.UUID, feature string, tierRequired entitlement.Tier) error {
	row := models.FeatureUsage{
		UserID:       userID,
		FeatureName:  feature,
		TierRequired: tierRequired,
		LastUsed:     s.now(),
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "feature_name"}},
		DoNothing: true,
	}).Create(&row).Error
}

func (s *UsageService) increment(tx *gorm.DB, userID uuid.UUID, feature string, out *models.FeatureUsage) error {
	err := tx.Model(&models.FeatureUsage{}).
		Where("user_id = ? AND feature_name = ?", userID, feature).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + 1"),
			"last_used":   s.now(),
		}).Error
	if err != nil {
		return err
	}
	return tx.Where("user_id = ? AND feature_name = ?", userID, feature).First(out).Error
}
