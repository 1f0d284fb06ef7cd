package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/payment"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		AppURL:                         "https://app.example.com",
		JWTSecret:                      "test-secret",
		JWTExpiry:                      30 * 24 * time.Hour,
		TrialDays:                      7,
		StripePricePremiumMonthly:      "price_premium_monthly",
		StripePricePremiumYearly:       "price_premium_yearly",
		StripePriceProfessionalMonthly: "price_professional_monthly",
		StripePriceProfessionalYearly:  "price_professional_yearly",
	}
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "hash"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func reload(t *testing.T, db *gorm.DB, u *models.User) *models.User {
	t.Helper()
	var out models.User
	if err := db.First(&out, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return &out
}

type fakeProvider struct {
	customers   int
	checkouts   []payment.CheckoutRequest
	canceled    []string
	failCancel  error
	failSession error
	onCancel    func() error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateCustomer(_ context.Context, userID, email string) (string, error) {
	f.customers++
	return fmt.Sprintf("cus_%d", f.customers), nil
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	if f.failSession != nil {
		return nil, f.failSession
	}
	f.checkouts = append(f.checkouts, req)
	return &payment.CheckoutSession{ID: "cs_1", URL: "https://checkout.example.com/cs_1"}, nil
}

func (f *fakeProvider) CancelAtPeriodEnd(_ context.Context, id string) error {
	if f.failCancel != nil {
		return f.failCancel
	}
	if f.onCancel != nil {
		if err := f.onCancel(); err != nil {
			return err
		}
	}
	f.canceled = append(f.canceled, id)
	return nil
}

func (f *fakeProvider) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	return nil, payment.ErrInvalidSignature
}
