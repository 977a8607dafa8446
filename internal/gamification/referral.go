package gamification

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// ReferralBonusXP is granted to the referrer when a referred user finishes their first survey.
const ReferralBonusXP = 250

// ReferralBonus is the grant a referrer receives for referredUserID.
func ReferralBonus(referredUserID string) Grant {
	return Grant{
		Amount:      ReferralBonusXP,
		Category:    CategoryReferral,
		Description: "Referral bonus",
		Metadata:    map[string]any{"referredUserId": referredUserID},
	}
}

const (
	referralPrefixLen   = 8
	referralSuffixLen   = 4
	referralMaxAttempts = 5
	base36              = "0123456789abcdefghijklmnopqrstuvwxyz"
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// GenerateReferralCode derives a code from the first characters of the user id
// plus a random base36 suffix. Collisions are resolved by the caller retrying.
func GenerateReferralCode(userID string) string {
	var prefix strings.Builder
	for _, c := range strings.ToLower(userID) {
		if prefix.Len() == referralPrefixLen {
			break
		}
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			prefix.WriteRune(c)
		}
	}

	suffix := make([]byte, referralSuffixLen)
	rngMu.Lock()
	for i := range suffix {
		suffix[i] = base36[rng.Intn(len(base36))]
	}
	rngMu.Unlock()

	return prefix.String() + string(suffix)
}

// NormalizeReferralCode canonicalizes user input before lookup.
func NormalizeReferralCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
