package models

import "time"

// ── Ledger ────────────────────────────────────────────────

type Activity struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	XPGained    int            `json:"xpGained"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// ── Catalog ───────────────────────────────────────────────

type Reward struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	XPCost      int       `json:"xpCost"`
	Type        string    `json:"type"`
	ImageURL    *string   `json:"imageUrl"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

type GameOffer struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	XPReward     int       `json:"xpReward"`
	ImageURL     *string   `json:"imageUrl"`
	AffiliateURL string    `json:"affiliateUrl"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ── Redemptions ───────────────────────────────────────────

const (
	RedemptionProcessing = "processing"
	RedemptionDelivered  = "delivered"
	RedemptionFailed     = "failed"
)

type Redemption struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	RewardID     string            `json:"rewardId"`
	Status       string            `json:"status"`
	XPSpent      int               `json:"xpSpent"`
	DeliveryInfo map[string]any    `json:"deliveryInfo"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Reward       *RedemptionReward `json:"reward,omitempty"`
}

// RedemptionReward is the reward summary joined onto a redemption listing.
type RedemptionReward struct {
	Name     *string `json:"name"`
	Type     *string `json:"type"`
	ImageURL *string `json:"imageUrl"`
}

// ── Progress ──────────────────────────────────────────────

type DailyTask struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TaskType  string    `json:"taskType"`
	Completed bool      `json:"completed"`
	Date      string    `json:"date"`
	XPReward  int       `json:"xpReward"`
	CreatedAt time.Time `json:"createdAt"`
}

type Milestone struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Type        string     `json:"type"`
	Current     int        `json:"current"`
	Target      int        `json:"target"`
	XPReward    int        `json:"xpReward"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ── Request / Response Types ──────────────────────────────

type AddXPRequest struct {
	XPGained    int            `json:"xpGained"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

type AddXPResponse struct {
	User     *User `json:"user"`
	XPGained int   `json:"xpGained"`
}

type UserResponse struct {
	User *User `json:"user"`
}

type RedeemRequest struct {
	RewardID     string         `json:"rewardId"`
	DeliveryInfo map[string]any `json:"deliveryInfo"`
}

type RedeemResponse struct {
	Redemption *Redemption `json:"redemption"`
	Message    string      `json:"message"`
}

type CompleteTaskRequest struct {
	TaskType string `json:"taskType"`
}

type CompleteTaskResponse struct {
	Task    *DailyTask `json:"task"`
	Message string     `json:"message"`
}

type ReferralCodeResponse struct {
	ReferralCode string `json:"referralCode"`
}

type ClaimReferralRequest struct {
	Code string `json:"code"`
}

type ClaimReferralResponse struct {
	ReferredBy string `json:"referredBy"`
	Message    string `json:"message"`
}

type UpdateRedemptionStatusRequest struct {
	Status string `json:"status"`
}

// ReferredUser is a referral list entry: the public projection plus join time.
type ReferredUser struct {
	PublicUser
	CreatedAt time.Time `json:"createdAt"`
}
