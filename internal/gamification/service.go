package gamification

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/playvault/backend/internal/cache"
	"github.com/playvault/backend/internal/database"
	"github.com/playvault/backend/internal/models"
)

const (
	DefaultActivityLimit    = 10
	DefaultLeaderboardLimit = 50
	MaxListLimit            = 100

	LeaderboardCacheTTL = 15 * time.Second
	CatalogCacheTTL     = 5 * time.Minute
)

func CacheKeyLeaderboard(limit int) string {
	return fmt.Sprintf("leaderboard:xp:%d", limit)
}

func CacheKeyRewards() string {
	return "catalog:rewards:active"
}

func CacheKeyGames() string {
	return "catalog:games:active"
}

// Repository is the persistence the service needs. Every mutating method is
// a single atomic statement or transaction; *Store is the Postgres version.
type Repository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpsertUser(ctx context.Context, u models.UpsertUser) (bool, error)

	GrantXP(ctx context.Context, userID string, g Grant) (*models.User, error)
	UpdateStreak(ctx context.Context, userID string, now time.Time) (*models.User, bool, error)
	GetActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error)
	GetLeaderboard(ctx context.Context, limit int) ([]models.PublicUser, error)

	GetRewards(ctx context.Context) ([]models.Reward, error)
	GetActiveReward(ctx context.Context, rewardID string) (*models.Reward, error)
	GetGameOffers(ctx context.Context) ([]models.GameOffer, error)
	Redeem(ctx context.Context, userID string, reward *models.Reward, deliveryInfo map[string]any) (*models.Redemption, error)
	GetRedemptions(ctx context.Context, userID string) ([]models.Redemption, error)

	EnsureDailyTasks(ctx context.Context, userID, date string) error
	GetDailyTasks(ctx context.Context, userID, date string) ([]models.DailyTask, error)
	CompleteDailyTask(ctx context.Context, userID, taskType, date string) (*models.DailyTask, error)

	AdvanceMilestone(ctx context.Context, userID, milestoneType string, delta int) (*models.Milestone, error)
	GetMilestones(ctx context.Context, userID string) ([]models.Milestone, error)
	ProvisionMilestones(ctx context.Context, userID string) (int64, error)
	ProvisionAllMilestones(ctx context.Context) (int64, error)

	GetReferralCode(ctx context.Context, userID string) (*string, error)
	SetReferralCode(ctx context.Context, userID, code string) (bool, error)
	FindUserIDByReferralCode(ctx context.Context, code string) (string, error)
	SetReferredBy(ctx context.Context, userID, referrerID string) (bool, error)
	GetReferrals(ctx context.Context, userID string) ([]models.ReferredUser, error)
}

type Service struct {
	repo  Repository
	cache cache.Cache
	now   func() time.Time
}

// NewService wires the domain service. c may be nil to disable caching.
func NewService(repo Repository, c cache.Cache) *Service {
	return &Service{repo: repo, cache: c, now: time.Now}
}

// ── Users ───────────────────────────────────────────────

func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repo.GetUser(ctx, userID)
}

// EnsureUser records an authenticated identity, provisioning milestones the
// first time the user is seen.
func (s *Service) EnsureUser(ctx context.Context, u models.UpsertUser) error {
	u = u.Normalize()
	created, err := s.repo.UpsertUser(ctx, u)
	if err != nil {
		return err
	}
	if created {
		log.Printf("[gamification] new user %s", u.ID)
		if _, err := s.repo.ProvisionMilestones(ctx, u.ID); err != nil {
			return fmt.Errorf("provision milestones: %w", err)
		}
	}
	return nil
}

// ── XP & Streak ─────────────────────────────────────────

func (s *Service) GrantXP(ctx context.Context, userID string, req models.AddXPRequest) (*models.AddXPResponse, error) {
	if err := ValidateGrant(req.XPGained, req.Type); err != nil {
		return nil, err
	}

	g := Grant{
		Amount:      req.XPGained,
		Category:    req.Type,
		Description: req.Description,
		Metadata:    req.Metadata,
	}
	if g.Description == "" {
		g.Description = g.Category
	}
	if g.Metadata == nil {
		g.Metadata = map[string]any{}
	}

	user, err := s.repo.GrantXP(ctx, userID, g)
	if err != nil {
		return nil, err
	}

	return &models.AddXPResponse{User: user, XPGained: g.Amount}, nil
}

func (s *Service) UpdateStreak(ctx context.Context, userID string) (*models.User, error) {
	user, changed, err := s.repo.UpdateStreak(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		log.Printf("[gamification] user %s streak now %d", userID, user.Streak)
	}
	return user, nil
}

func (s *Service) GetActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	return s.repo.GetActivities(ctx, userID, clampLimit(limit, DefaultActivityLimit))
}

// ── Leaderboard & Catalog ───────────────────────────────

func (s *Service) GetLeaderboard(ctx context.Context, limit int) ([]models.PublicUser, error) {
	limit = clampLimit(limit, DefaultLeaderboardLimit)
	return cache.UseCache(ctx, s.cache, CacheKeyLeaderboard(limit), LeaderboardCacheTTL, func() ([]models.PublicUser, error) {
		return s.repo.GetLeaderboard(ctx, limit)
	})
}

func (s *Service) GetRewards(ctx context.Context) ([]models.Reward, error) {
	return cache.UseCache(ctx, s.cache, CacheKeyRewards(), CatalogCacheTTL, func() ([]models.Reward, error) {
		return s.repo.GetRewards(ctx)
	})
}

func (s *Service) GetGameOffers(ctx context.Context) ([]models.GameOffer, error) {
	return cache.UseCache(ctx, s.cache, CacheKeyGames(), CatalogCacheTTL, func() ([]models.GameOffer, error) {
		return s.repo.GetGameOffers(ctx)
	})
}

// WarmCatalog drops and reloads the cached catalog lists.
func (s *Service) WarmCatalog(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	for _, key := range []string{CacheKeyRewards(), CacheKeyGames()} {
		if err := s.cache.Delete(ctx, key); err != nil {
			log.Printf("[gamification] cache delete %s: %v", key, err)
		}
	}
	if _, err := s.GetRewards(ctx); err != nil {
		return err
	}
	_, err := s.GetGameOffers(ctx)
	return err
}

// ── Redemption ──────────────────────────────────────────

func (s *Service) Redeem(ctx context.Context, userID string, req models.RedeemRequest) (*models.Redemption, error) {
	if req.RewardID == "" {
		return nil, ErrInvalidReward
	}

	reward, err := s.repo.GetActiveReward(ctx, req.RewardID)
	if err != nil {
		return nil, err
	}

	info := req.DeliveryInfo
	if info == nil {
		info = map[string]any{}
	}

	redemption, err := s.repo.Redeem(ctx, userID, reward, info)
	if err != nil {
		return nil, err
	}
	log.Printf("[gamification] user %s redeemed %s for %d XP", userID, reward.Slug, reward.XPCost)
	return redemption, nil
}

func (s *Service) GetRedemptions(ctx context.Context, userID string) ([]models.Redemption, error) {
	return s.repo.GetRedemptions(ctx, userID)
}

// ── Daily Tasks ─────────────────────────────────────────

func (s *Service) GetDailyTasks(ctx context.Context, userID string) ([]models.DailyTask, error) {
	date := DayKey(s.now())
	if err := s.repo.EnsureDailyTasks(ctx, userID, date); err != nil {
		return nil, err
	}

	tasks, err := s.repo.GetDailyTasks(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return taskOrder(tasks[i].TaskType) < taskOrder(tasks[j].TaskType)
	})
	return tasks, nil
}

// CompleteDailyTask returns nil, nil when today's task was already completed.
func (s *Service) CompleteDailyTask(ctx context.Context, userID, taskType string) (*models.DailyTask, error) {
	if !IsValidTaskType(taskType) {
		return nil, ErrInvalidTaskType
	}

	date := DayKey(s.now())
	if err := s.repo.EnsureDailyTasks(ctx, userID, date); err != nil {
		return nil, err
	}
	return s.repo.CompleteDailyTask(ctx, userID, taskType, date)
}

// ── Milestones ──────────────────────────────────────────

func (s *Service) GetMilestones(ctx context.Context, userID string) ([]models.Milestone, error) {
	return s.repo.GetMilestones(ctx, userID)
}

func (s *Service) AdvanceMilestone(ctx context.Context, userID, milestoneType string, delta int) (*models.Milestone, error) {
	return s.repo.AdvanceMilestone(ctx, userID, milestoneType, delta)
}

func (s *Service) ProvisionAllMilestones(ctx context.Context) (int64, error) {
	n, err := s.repo.ProvisionAllMilestones(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("[gamification] provisioned %d milestones", n)
	}
	return n, nil
}

// ── Referrals ───────────────────────────────────────────

// GetOrCreateReferralCode is idempotent: concurrent callers converge on
// whichever code was stored first.
func (s *Service) GetOrCreateReferralCode(ctx context.Context, userID string) (string, error) {
	code, err := s.repo.GetReferralCode(ctx, userID)
	if err != nil {
		return "", err
	}
	if code != nil && *code != "" {
		return *code, nil
	}

	for attempt := 0; attempt < referralMaxAttempts; attempt++ {
		candidate := GenerateReferralCode(userID)
		set, err := s.repo.SetReferralCode(ctx, userID, candidate)
		if database.IsUniqueViolation(err, "") {
			// code taken by another user, draw again
			continue
		}
		if err != nil {
			return "", err
		}
		if set {
			return candidate, nil
		}

		code, err := s.repo.GetReferralCode(ctx, userID)
		if err != nil {
			return "", err
		}
		if code != nil {
			return *code, nil
		}
	}
	return "", ErrReferralCodeExhausted
}

// ClaimReferral attaches the owner of code as the user's referrer.
func (s *Service) ClaimReferral(ctx context.Context, userID, code string) (string, error) {
	referrerID, err := s.repo.FindUserIDByReferralCode(ctx, NormalizeReferralCode(code))
	if err != nil {
		return "", err
	}
	if referrerID == userID {
		return "", ErrSelfReferral
	}

	set, err := s.repo.SetReferredBy(ctx, userID, referrerID)
	if err != nil {
		return "", err
	}
	if !set {
		return "", ErrAlreadyReferred
	}
	log.Printf("[gamification] user %s referred by %s", userID, referrerID)
	return referrerID, nil
}

func (s *Service) GetReferrals(ctx context.Context, userID string) ([]models.ReferredUser, error) {
	return s.repo.GetReferrals(ctx, userID)
}

// ── Helpers ─────────────────────────────────────────────

func clampLimit(limit, defaultVal int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
