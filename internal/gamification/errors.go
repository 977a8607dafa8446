package gamification

import "errors"

var (
	ErrInvalidAmount         = errors.New("invalid XP amount")
	ErrInvalidCategory       = errors.New("invalid activity type")
	ErrInvalidTaskType       = errors.New("invalid task type")
	ErrInvalidReward         = errors.New("rewardId is required")
	ErrUserNotFound          = errors.New("user not found")
	ErrRewardNotFound        = errors.New("reward not found")
	ErrInsufficientXP        = errors.New("insufficient XP")
	ErrReferralCodeNotFound  = errors.New("referral code not found")
	ErrSelfReferral          = errors.New("cannot use your own referral code")
	ErrAlreadyReferred       = errors.New("already referred")
	ErrReferralCodeExhausted = errors.New("could not allocate a unique referral code")
)
