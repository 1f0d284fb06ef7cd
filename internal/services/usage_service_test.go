package services

import (
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/models"
)

func TestTrackIncrementsSingleRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewUsageService(db)
	user := createUser(t, db, "track@example.com")

	const n = 5
	for i := 0; i < n; i++ {
		if _, err := svc.Track(user.ID, entitlement.FeatureAudioSessions, entitlement.TierFree); err != nil {
			t.Fatalf("track %d: %v", i, err)
		}
	}

	var rows []models.FeatureUsage
	db.Where("user_id = ?", user.ID).Find(&rows)
	if len(rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(rows))
	}
	if rows[0].UsageCount != n {
		t.Errorf("expected usage_count %d, got %d", n, rows[0].UsageCount)
	}
}

func TestCheckDoesNotConsume(t *testing.T) {
	db := newTestDB(t)
	svc := NewUsageService(db)
	user := createUser(t, db, "check@example.com")

	for i := 0; i < 10; i++ {
		d, err := svc.Check(user, entitlement.FeatureFearPatterns)
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed {
			t.Fatal("check should not consume quota")
		}
	}
	if n, _ := svc.Count(user.ID, entitlement.FeatureFearPatterns); n != 0 {
		t.Errorf("expected no recorded usage, got %d", n)
	}
}

func TestConsumeEnforcesFreeLimit(t *testing.T) {
	db := newTestDB(t)
	svc := NewUsageService(db)
	user := createUser(t, db, "limit@example.com")

	for i := 1; i <= 3; i++ {
		d, err := svc.Consume(user, entitlement.FeatureFearPatterns)
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed || d.Used != i {
			t.Fatalf("use %d: unexpected decision %+v", i, d)
		}
	}

	d, err := svc.Consume(user, entitlement.FeatureFearPatterns)
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("4th use should be denied")
	}
	if n, _ := svc.Count(user.ID, entitlement.FeatureFearPatterns); n != 3 {
		t.Errorf("denied consume must not record usage, count = %d", n)
	}

	check, _ := svc.Check(user, entitlement.FeatureFearPatterns)
	if check.Allowed {
		t.Error("check at 3/3 should be denied")
	}
}

func TestConsumeProfessionalNeverDenied(t *testing.T) {
	db := newTestDB(t)
	svc := NewUsageService(db)
	user := createUser(t, db, "pro@example.com")
	user.Upgrade(entitlement.TierProfessional, time.Now(), nil)
	db.Save(user)

	for i := 0; i < 20; i++ {
		d, err := svc.Consume(user, entitlement.FeatureAPIAccess)
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed {
			t.Fatalf("professional denied on use %d", i+1)
		}
	}
}

func TestAnalytics(t *testing.T) {
	db := newTestDB(t)
	svc := NewUsageService(db)
	user := createUser(t, db, "analytics@example.com")

	svc.Track(user.ID, entitlement.FeatureSomaticExercises, entitlement.TierFree)
	svc.Track(user.ID, entitlement.FeatureSomaticExercises, entitlement.TierFree)
	svc.Consume(user, entitlement.FeatureMomentumFlowSync)

	resp, err := svc.Analytics(user)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.FeatureUsage) != 1 {
		t.Fatalf("expected only used features, got %v", resp.FeatureUsage)
	}
	entry := resp.FeatureUsage[entitlement.FeatureSomaticExercises]
	if entry.UsageCount != 2 || entry.Limit != 1 {
		t.Errorf("unexpected entry %+v", entry)
	}
	if resp.FeatureLimits[entitlement.FeatureFearPatterns] != 3 {
		t.Error("expected free limits in analytics")
	}
}

func TestTrackRejectsEmptyFeature(t *testing.T) {
	svc := NewUsageService(newTestDB(t))
	if _, err := svc.Track(createUser(t, svc.db, "e@example.com").ID, "  ", entitlement.TierFree); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSubscriptionValue(t *testing.T) {
	db := newTestDB(t)
	svc := NewUsageService(db)
	user := createUser(t, db, "value@example.com")

	svc.Track(user.ID, entitlement.FeatureFearPatterns, entitlement.TierFree)
	svc.Track(user.ID, entitlement.FeatureAdvancedAnalytics, entitlement.TierPremium)
	svc.Track(user.ID, entitlement.FeatureAdvancedAnalytics, entitlement.TierPremium)
	svc.Track(user.ID, entitlement.FeatureAPIAccess, entitlement.TierProfessional)

	resp, err := svc.SubscriptionValue(user)
	if err != nil {
		t.Fatal(err)
	}
	if resp.PremiumFeaturesUsed != 2 || resp.EstimatedMonthlyValue != "$5.98" || resp.SubscriptionCost != "$9.99" {
		t.Errorf("unexpected value %+v", resp)
	}

	user.Tier = entitlement.TierProfessional
	resp, _ = svc.SubscriptionValue(user)
	if resp.SubscriptionCost != "$29.99" {
		t.Errorf("professional cost = %s", resp.SubscriptionCost)
	}
}
