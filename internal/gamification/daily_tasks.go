package gamification

// Daily task types.
const (
	TaskSurvey        = "survey"
	TaskGame          = "game"
	TaskReferralShare = "referral_share"
)

type DailyTaskDef struct {
	Type     string
	XPReward int
}

// DailyTasks is the fixed set created for every user each UTC day, in display order.
var DailyTasks = []DailyTaskDef{
	{Type: TaskSurvey, XPReward: 50},
	{Type: TaskGame, XPReward: 100},
	{Type: TaskReferralShare, XPReward: 25},
}

func IsValidTaskType(taskType string) bool {
	return taskOrder(taskType) >= 0
}

// taskOrder returns the display position of taskType, or -1 if unknown.
func taskOrder(taskType string) int {
	for i, d := range DailyTasks {
		if d.Type == taskType {
			return i
		}
	}
	return -1
}
