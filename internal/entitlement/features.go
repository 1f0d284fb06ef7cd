package entitlement

import "fmt"

// Unlimited marks a feature without a usage cap.
const Unlimited = -1

const (
	FeatureFearPatterns           = "fear_patterns"
	FeatureAudioSessions          = "audio_sessions"
	FeatureLightFrequencyPatterns = "light_frequency_patterns"
	FeatureSomaticExercises       = "somatic_exercises"
	FeaturePolyvagalExercises     = "polyvagal_exercises"
	FeatureIFSSessions            = "ifs_sessions"
	FeatureMomentumFlowSync       = "momentum_flow_sync"
	FeatureAdvancedAnalytics      = "advanced_analytics"
	FeatureCustomAffirmations     = "custom_affirmations"
	FeatureBiometricAuth          = "biometric_auth"
	FeatureHIPAACompliance        = "hipaa_compliance"
	FeatureAPIAccess              = "api_access"
)

// FreeTierLimits is the number of uses a free account gets per feature.
// Zero means the feature needs a paid tier. Features not listed are treated
// as zero.
var FreeTierLimits = map[string]int{
	FeatureFearPatterns:           3,
	FeatureAudioSessions:          2,
	FeatureLightFrequencyPatterns: 3,
	FeatureSomaticExercises:       1,
	FeaturePolyvagalExercises:     1,
	FeatureIFSSessions:            1,
	FeatureMomentumFlowSync:       0,
	FeatureAdvancedAnalytics:      0,
	FeatureCustomAffirmations:     0,
	FeatureBiometricAuth:          0,
	FeatureHIPAACompliance:        0,
	FeatureAPIAccess:              0,
}

var professionalOnly = map[string]bool{
	FeatureBiometricAuth:   true,
	FeatureHIPAACompliance: true,
	FeatureAPIAccess:       true,
}

// RequiredTier is the lowest tier with unlimited use of feature.
func RequiredTier(feature string) Tier {
	if professionalOnly[feature] {
		return TierProfessional
	}
	if FreeTierLimits[feature] > 0 {
		return TierFree
	}
	return TierPremium
}

// Decision is the result of a feature access check.
type Decision struct {
	Allowed      bool   `json:"has_access"`
	Message      string `json:"message"`
	Feature      string `json:"feature"`
	RequiredTier Tier   `json:"tier_required"`
	Limit        int    `json:"limit"`
	Used         int    `json:"used"`
}

// CheckAccess decides whether an account with entitlement e may use feature
// after used prior uses. It never records usage.
func CheckAccess(e Entitlement, feature string, used int) Decision {
	d := Decision{
		Feature:      feature,
		RequiredTier: RequiredTier(feature),
		Limit:        Unlimited,
		Used:         used,
	}

	if e.IsProfessional {
		d.Allowed = true
		d.Message = "Professional access granted"
		return d
	}

	if e.IsPremium {
		if professionalOnly[feature] {
			d.Message = "Professional subscription required"
			return d
		}
		d.Allowed = true
		d.Message = "Premium access granted"
		return d
	}

	limit := FreeTierLimits[feature]
	d.Limit = limit
	if limit == 0 {
		if professionalOnly[feature] {
			d.Message = "Professional subscription required"
		} else {
			d.Message = "Premium subscription required"
		}
		return d
	}
	if used >= limit {
		d.Message = fmt.Sprintf("Free tier limit reached (%d uses)", limit)
		return d
	}

	d.Allowed = true
	d.Message = "Free tier access granted"
	return d
}

// Limits returns the per-feature cap for e. Unlimited is -1.
func Limits(e Entitlement) map[string]int {
	limits := make(map[string]int, len(FreeTierLimits))
	for feature, limit := range FreeTierLimits {
		switch {
		case e.IsProfessional:
			limits[feature] = Unlimited
		case e.IsPremium && !professionalOnly[feature]:
			limits[feature] = Unlimited
		default:
			limits[feature] = limit
		}
	}
	return limits
}
