package pricing

import "strings"

// Tier classifies a buyer and selects which discount column applies.
type Tier string

const (
	TierEntrepreneur        Tier = "ENTREPRENEUR"
	TierTraineeEntrepreneur Tier = "TRAINEE_ENTREPRENEUR"
	TierStandard            Tier = "STANDARD"
)

// ParseTier maps free text onto the closed tier set. Anything unrecognised
// becomes TierStandard; ok reports whether the input named a known tier.
func ParseTier(raw string) (tier Tier, ok bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	switch Tier(key) {
	case TierEntrepreneur:
		return TierEntrepreneur, true
	case TierTraineeEntrepreneur, "TRAINEE":
		return TierTraineeEntrepreneur, true
	case TierStandard:
		return TierStandard, true
	default:
		return TierStandard, false
	}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierEntrepreneur, TierTraineeEntrepreneur, TierStandard:
		return true
	default:
		return false
	}
}

func (t Tier) String() string {
	if !t.Valid() {
		return string(TierStandard)
	}
	return string(t)
}
