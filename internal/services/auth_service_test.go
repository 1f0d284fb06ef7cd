package services

import (
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/selfhypnosis-backend/internal/dto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testConfig())
	svc.now = func() time.Time { return testNow }

	resp, err := svc.Register(&dto.RegisterRequest{Email: " Alice@Example.com ", Password: "supersecret"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", resp.User.Email)
	}
	if resp.User.SubscriptionTier != "free" || resp.User.IsPremium {
		t.Errorf("new user should be free, got %+v", resp.User)
	}

	if _, err := svc.Register(&dto.RegisterRequest{Email: "alice@example.com", Password: "supersecret"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}

	if _, err := svc.Login(&dto.LoginRequest{Email: "alice@example.com", Password: "wrong-password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(&dto.LoginRequest{Email: "nobody@example.com", Password: "whatever1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}

	login, err := svc.Login(&dto.LoginRequest{Email: "ALICE@example.com", Password: "supersecret"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != resp.User.ID {
		t.Error("login returned a different user")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewAuthService(newTestDB(t), testConfig())

	cases := []struct {
		req   dto.RegisterRequest
		field string
	}{
		{dto.RegisterRequest{Password: "supersecret"}, "email"},
		{dto.RegisterRequest{Email: "not-an-email", Password: "supersecret"}, "email"},
		{dto.RegisterRequest{Email: "a@b.co", Password: "short"}, "password"},
	}
	for _, tc := range cases {
		_, err := svc.Register(&tc.req)
		v, ok := AsValidation(err)
		if !ok {
			t.Errorf("%+v: expected validation error, got %v", tc.req, err)
			continue
		}
		if v.Field != tc.field {
			t.Errorf("%+v: expected field %s, got %s", tc.req, tc.field, v.Field)
		}
	}
}

func TestGenerateTokenClaims(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewAuthService(db, cfg)
	user := createUser(t, db, "claims@example.com")

	signed, err := svc.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	token, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		t.Fatalf("parse: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["sub"] != user.ID.String() {
		t.Errorf("expected sub %s, got %v", user.ID, claims["sub"])
	}
	exp, _ := claims.GetExpirationTime()
	if exp == nil || exp.Sub(time.Now()) < 29*24*time.Hour {
		t.Errorf("expected ~30 day expiry, got %v", exp)
	}
}

func TestGetUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db, testConfig())
	user := createUser(t, db, "get@example.com")

	got, err := svc.GetUser(user.ID)
	if err != nil || got.Email != "get@example.com" {
		t.Fatalf("GetUser = %+v, %v", got, err)
	}
	if _, err := svc.GetUser(uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
