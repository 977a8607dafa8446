package gamification

import "time"

// LevelXPStep is the XP needed per level: level n ends at n*LevelXPStep.
const LevelXPStep = 2000

// MaxGrantXP caps a single grant.
const MaxGrantXP = 1_000_000

// Activity categories.
const (
	CategorySurvey    = "survey"
	CategoryGame      = "game"
	CategoryReferral  = "referral"
	CategoryDailyTask = "daily_task"
)

// StreakWindow is the minimum gap between two logins that counts toward a streak.
const StreakWindow = 24 * time.Hour

// LevelThreshold returns the XP total at which a user at level leaves it.
func LevelThreshold(level int) int {
	return level * LevelXPStep
}

// LevelAfterGrant applies a single level step. A grant that crosses several
// thresholds at once still advances by one level.
func LevelAfterGrant(xp, level, amount int) int {
	if xp+amount >= LevelThreshold(level) {
		return level + 1
	}
	return level
}

func IsValidCategory(category string) bool {
	switch category {
	case CategorySurvey, CategoryGame, CategoryReferral, CategoryDailyTask:
		return true
	}
	return false
}

// ValidateGrant rejects a grant before anything is written.
func ValidateGrant(amount int, category string) error {
	if amount <= 0 || amount > MaxGrantXP {
		return ErrInvalidAmount
	}
	if !IsValidCategory(category) {
		return ErrInvalidCategory
	}
	return nil
}

// MilestoneTypeFor maps an activity category to the milestone it advances.
func MilestoneTypeFor(category string) (string, bool) {
	switch category {
	case CategorySurvey:
		return MilestoneSurveys, true
	case CategoryGame:
		return MilestoneGames, true
	case CategoryReferral:
		return MilestoneReferrals, true
	}
	return "", false
}

// ShouldIncrementStreak reports whether a login at now extends the streak.
// Longer gaps still only add one; the streak never decays.
func ShouldIncrementStreak(lastLogin *time.Time, now time.Time) bool {
	if lastLogin == nil {
		return true
	}
	return now.Sub(*lastLogin) >= StreakWindow
}

// DayKey is the UTC calendar day used to key daily tasks.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
