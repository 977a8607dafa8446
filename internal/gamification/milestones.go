package gamification

// Milestone types.
const (
	MilestoneSurveys   = "surveys"
	MilestoneGames     = "games"
	MilestoneReferrals = "referrals"
)

// MilestoneDef is one row of the default milestone set every user is provisioned with.
type MilestoneDef struct {
	Type     string
	Target   int
	XPReward int
}

// DefaultMilestones is provisioned per user. XPReward is shown on the
// dashboard only; reaching a milestone does not grant it.
var DefaultMilestones = []MilestoneDef{
	{Type: MilestoneSurveys, Target: 10, XPReward: 500},
	{Type: MilestoneGames, Target: 5, XPReward: 500},
	{Type: MilestoneReferrals, Target: 3, XPReward: 750},
}

// AdvanceMilestoneState applies delta to a milestone's progress. completedAt
// is set only on the first crossing of target and never moved afterwards.
func AdvanceMilestoneState(current, target, delta int, completed bool) (newCurrent int, newCompleted bool, justCompleted bool) {
	newCurrent = current + delta
	justCompleted = !completed && newCurrent >= target
	newCompleted = completed || newCurrent >= target
	return newCurrent, newCompleted, justCompleted
}
