package entitlement

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Tier is the subscription level stored on a user.
type Tier string

const (
	TierFree         Tier = "free"
	TierPremium      Tier = "premium"
	TierProfessional Tier = "professional"
)

// ParseTier maps a stored or provider value to a Tier. Unknown values fall
// back to TierFree so a legacy row never grants access.
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierPremium:
		return TierPremium
	case TierProfessional:
		return TierProfessional
	default:
		return TierFree
	}
}

// Valid reports whether s names a known tier exactly.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPremium, TierProfessional:
		return true
	}
	return false
}

func (t Tier) String() string { return string(t) }

func (t *Tier) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*t = ParseTier(v)
	case []byte:
		*t = ParseTier(string(v))
	case nil:
		*t = TierFree
	default:
		return fmt.Errorf("cannot scan %T into Tier", value)
	}
	return nil
}

func (t Tier) Value() (driver.Value, error) {
	if !t.Valid() {
		return string(TierFree), nil
	}
	return string(t), nil
}

// Status is the billing status stored on a user or subscription.
type Status string

const (
	StatusActive     Status = "active"
	StatusCanceled   Status = "canceled"
	StatusPastDue    Status = "past_due"
	StatusUnpaid     Status = "unpaid"
	StatusTrialing   Status = "trialing"
	StatusIncomplete Status = "incomplete"
)

// ParseStatus maps a stored or provider value to a Status. Unknown values
// (including provider-only states like incomplete_expired) become
// StatusIncomplete, which is never entitled.
func ParseStatus(s string) Status {
	switch v := Status(strings.ToLower(strings.TrimSpace(s))); v {
	case StatusActive, StatusCanceled, StatusPastDue, StatusUnpaid, StatusTrialing, StatusIncomplete:
		return v
	case "cancelled":
		return StatusCanceled
	default:
		return StatusIncomplete
	}
}

func (s Status) String() string { return string(s) }

func (s *Status) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = ParseStatus(v)
	case []byte:
		*s = ParseStatus(string(v))
	case nil:
		*s = StatusIncomplete
	default:
		return fmt.Errorf("cannot scan %T into Status", value)
	}
	return nil
}

func (s Status) Value() (driver.Value, error) {
	return string(ParseStatus(string(s))), nil
}
