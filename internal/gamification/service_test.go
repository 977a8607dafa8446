package gamification

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playvault/backend/internal/models"
)

// fakeRepo mirrors the conditional statements of Store in memory.
type fakeRepo struct {
	mu          sync.Mutex
	seq         int
	users       map[string]*models.User
	rewarded    map[string]bool
	activities  []models.Activity
	rewards     map[string]*models.Reward
	redemptions []models.Redemption
	tasks       map[string]*models.DailyTask
	milestones  map[string]*models.Milestone

	leaderboardCalls int
	forcedCodes      []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:      map[string]*models.User{},
		rewarded:   map[string]bool{},
		rewards:    map[string]*models.Reward{},
		tasks:      map[string]*models.DailyTask{},
		milestones: map[string]*models.Milestone{},
	}
}

func (f *fakeRepo) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeRepo) addUser(id string, xp, level int) {
	f.users[id] = &models.User{ID: id, XP: xp, Level: level, CreatedAt: time.Now()}
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, u models.UpsertUser) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[u.ID]; ok {
		existing.FirstName = &u.FirstName
		return false, nil
	}
	f.users[u.ID] = &models.User{ID: u.ID, Level: 1, FirstName: &u.FirstName, CreatedAt: time.Now()}
	return true, nil
}

func (f *fakeRepo) GrantXP(_ context.Context, userID string, g Grant) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, err := f.grant(userID, g)
	if err != nil || g.Category != CategorySurvey {
		return u, err
	}
	if referrerID, ok := f.claimReferral(userID); ok {
		if _, err := f.grant(referrerID, ReferralBonus(userID)); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// grant must be called with mu held.
func (f *fakeRepo) grant(userID string, g Grant) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Level = LevelAfterGrant(u.XP, u.Level, g.Amount)
	u.XP += g.Amount
	f.activities = append(f.activities, models.Activity{
		ID: f.nextID("act"), UserID: userID, Type: g.Category,
		Description: g.Description, XPGained: g.Amount, Metadata: g.Metadata,
	})
	if mt, ok := MilestoneTypeFor(g.Category); ok {
		f.advance(userID, mt, 1)
	}
	cp := *u
	return &cp, nil
}

// claimReferral must be called with mu held, after the survey activity is recorded.
func (f *fakeRepo) claimReferral(userID string) (string, bool) {
	u := f.users[userID]
	if u.ReferredBy == nil || f.rewarded[userID] {
		return "", false
	}
	surveys := 0
	for _, a := range f.activities {
		if a.UserID == userID && a.Type == CategorySurvey {
			surveys++
		}
	}
	if surveys != 1 {
		return "", false
	}
	f.rewarded[userID] = true
	return *u.ReferredBy, true
}

func (f *fakeRepo) UpdateStreak(_ context.Context, userID string, now time.Time) (*models.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, false, ErrUserNotFound
	}
	changed := ShouldIncrementStreak(u.LastLogin, now)
	if changed {
		u.Streak++
		u.LastLogin = &now
	}
	cp := *u
	return &cp, changed, nil
}

func (f *fakeRepo) GetActivities(_ context.Context, userID string, limit int) ([]models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Activity{}
	for i := len(f.activities) - 1; i >= 0 && len(out) < limit; i-- {
		if f.activities[i].UserID == userID {
			out = append(out, f.activities[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) GetLeaderboard(_ context.Context, limit int) ([]models.PublicUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaderboardCalls++
	users := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].XP > users[j].XP })
	out := []models.PublicUser{}
	for _, u := range users {
		if len(out) == limit {
			break
		}
		out = append(out, u.Public())
	}
	return out, nil
}

func (f *fakeRepo) GetRewards(context.Context) ([]models.Reward, error) {
	return []models.Reward{}, nil
}

func (f *fakeRepo) GetActiveReward(_ context.Context, rewardID string) (*models.Reward, error) {
	r, ok := f.rewards[rewardID]
	if !ok || !r.IsActive {
		return nil, ErrRewardNotFound
	}
	return r, nil
}

func (f *fakeRepo) GetGameOffers(context.Context) ([]models.GameOffer, error) {
	return []models.GameOffer{}, nil
}

func (f *fakeRepo) Redeem(_ context.Context, userID string, reward *models.Reward, info map[string]any) (*models.Redemption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if u.XP < reward.XPCost {
		return nil, ErrInsufficientXP
	}
	u.XP -= reward.XPCost
	r := models.Redemption{
		ID: f.nextID("red"), UserID: userID, RewardID: reward.ID,
		Status: models.RedemptionProcessing, XPSpent: reward.XPCost, DeliveryInfo: info,
	}
	f.redemptions = append(f.redemptions, r)
	return &r, nil
}

func (f *fakeRepo) GetRedemptions(_ context.Context, userID string) ([]models.Redemption, error) {
	out := []models.Redemption{}
	for _, r := range f.redemptions {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func taskKey(userID, date, taskType string) string {
	return userID + "|" + date + "|" + taskType
}

func (f *fakeRepo) EnsureDailyTasks(_ context.Context, userID, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return ErrUserNotFound
	}
	// reverse insertion order so the service has to sort
	for i := len(DailyTasks) - 1; i >= 0; i-- {
		d := DailyTasks[i]
		key := taskKey(userID, date, d.Type)
		if _, ok := f.tasks[key]; ok {
			continue
		}
		f.tasks[key] = &models.DailyTask{ID: f.nextID("task"), UserID: userID, TaskType: d.Type, Date: date, XPReward: d.XPReward}
	}
	return nil
}

func (f *fakeRepo) GetDailyTasks(_ context.Context, userID, date string) ([]models.DailyTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.DailyTask{}
	for i := len(DailyTasks) - 1; i >= 0; i-- {
		if t, ok := f.tasks[taskKey(userID, date, DailyTasks[i].Type)]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeRepo) CompleteDailyTask(ctx context.Context, userID, taskType, date string) (*models.DailyTask, error) {
	f.mu.Lock()
	t, ok := f.tasks[taskKey(userID, date, taskType)]
	if !ok || t.Completed {
		f.mu.Unlock()
		return nil, nil
	}
	t.Completed = true
	cp := *t
	f.mu.Unlock()

	_, err := f.GrantXP(ctx, userID, Grant{
		Amount:      cp.XPReward,
		Category:    CategoryDailyTask,
		Description: "Completed daily task: " + taskType,
		Metadata:    map[string]any{"taskType": taskType},
	})
	return &cp, err
}

func milestoneKey(userID, milestoneType string) string {
	return userID + "|" + milestoneType
}

// advance must be called with mu held.
func (f *fakeRepo) advance(userID, milestoneType string, delta int) *models.Milestone {
	m, ok := f.milestones[milestoneKey(userID, milestoneType)]
	if !ok {
		return nil
	}
	var just bool
	m.Current, m.Completed, just = AdvanceMilestoneState(m.Current, m.Target, delta, m.Completed)
	if just {
		now := time.Now()
		m.CompletedAt = &now
	}
	cp := *m
	return &cp
}

func (f *fakeRepo) AdvanceMilestone(_ context.Context, userID, milestoneType string, delta int) (*models.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advance(userID, milestoneType, delta), nil
}

func (f *fakeRepo) GetMilestones(_ context.Context, userID string) ([]models.Milestone, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Milestone{}
	for _, d := range DefaultMilestones {
		if m, ok := f.milestones[milestoneKey(userID, d.Type)]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeRepo) ProvisionMilestones(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.provision(userID), nil
}

func (f *fakeRepo) provision(userID string) int64 {
	var n int64
	for _, d := range DefaultMilestones {
		key := milestoneKey(userID, d.Type)
		if _, ok := f.milestones[key]; ok {
			continue
		}
		f.milestones[key] = &models.Milestone{ID: f.nextID("ms"), UserID: userID, Type: d.Type, Target: d.Target, XPReward: d.XPReward}
		n++
	}
	return n
}

func (f *fakeRepo) ProvisionAllMilestones(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id := range f.users {
		n += f.provision(id)
	}
	return n, nil
}

func (f *fakeRepo) GetReferralCode(_ context.Context, userID string) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.ReferralCode, nil
}

func (f *fakeRepo) SetReferralCode(_ context.Context, userID, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.forcedCodes) > 0 {
		code = f.forcedCodes[0]
		f.forcedCodes = f.forcedCodes[1:]
	}
	for _, u := range f.users {
		if u.ReferralCode != nil && *u.ReferralCode == code {
			return false, fmt.Errorf("set referral code: %w", &pq.Error{Code: "23505", Constraint: "users_referral_code_key"})
		}
	}
	u, ok := f.users[userID]
	if !ok || u.ReferralCode != nil {
		return false, nil
	}
	u.ReferralCode = &code
	return true, nil
}

func (f *fakeRepo) FindUserIDByReferralCode(_ context.Context, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ReferralCode != nil && *u.ReferralCode == code {
			return u.ID, nil
		}
	}
	return "", ErrReferralCodeNotFound
}

func (f *fakeRepo) SetReferredBy(_ context.Context, userID, referrerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok || u.ReferredBy != nil || userID == referrerID {
		return false, nil
	}
	u.ReferredBy = &referrerID
	return true, nil
}

func (f *fakeRepo) GetReferrals(_ context.Context, userID string) ([]models.ReferredUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ReferredUser{}
	for _, u := range f.users {
		if u.ReferredBy != nil && *u.ReferredBy == userID {
			out = append(out, models.ReferredUser{PublicUser: u.Public(), CreatedAt: u.CreatedAt})
		}
	}
	return out, nil
}

func newTestService(repo *fakeRepo) *Service {
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc
}

// ── Tests ───────────────────────────────────────────────

func TestEnsureUserProvisionsOnce(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.EnsureUser(ctx, models.UpsertUser{ID: " u1 ", FirstName: "Ada"}))
	require.NoError(t, svc.EnsureUser(ctx, models.UpsertUser{ID: "u1", FirstName: "Ada"}))

	ms, err := svc.GetMilestones(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, ms, len(DefaultMilestones))
}

func TestGrantXP(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("u1", 1999, 1)
	svc := newTestService(repo)
	ctx := context.Background()

	resp, err := svc.GrantXP(ctx, "u1", models.AddXPRequest{XPGained: 1, Type: CategoryGame})
	require.NoError(t, err)
	assert.Equal(t, 2000, resp.User.XP)
	assert.Equal(t, 2, resp.User.Level)
	assert.Equal(t, 1, resp.XPGained)

	acts, err := svc.GetActivities(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, CategoryGame, acts[0].Description, "description defaults to category")
	assert.NotNil(t, acts[0].Metadata)
}

func TestGrantXPSingleStepLeveling(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("u1", 0, 1)
	svc := newTestService(repo)

	resp, err := svc.GrantXP(context.Background(), "u1", models.AddXPRequest{XPGained: 5000, Type: CategorySurvey})
	require.NoError(t, err)
	assert.Equal(t, 5000, resp.User.XP)
	assert.Equal(t, 2, resp.User.Level)
}

func TestGrantXPRejectsBeforeWriting(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("u1", 100, 1)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.GrantXP(ctx, "u1", models.AddXPRequest{XPGained: 0, Type: CategorySurvey})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.GrantXP(ctx, "u1", models.AddXPRequest{XPGained: 10, Type: "bonus"})
	assert.ErrorIs(t, err, ErrInvalidCategory)

	u, _ := repo.GetUser(ctx, "u1")
	assert.Equal(t, 100, u.XP)
	assert.Empty(t, repo.activities)
}

func TestGrantXPUnknownUser(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, err := svc.GrantXP(context.Background(), "ghost", models.AddXPRequest{XPGained: 10, Type: CategoryGame})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateStreak(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("u1", 0, 1)
	svc := newTestService(repo)
	ctx := context.Background()
	base := svc.now()

	u, err := svc.UpdateStreak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Streak)

	svc.now = func() time.Time { return base.Add(3 * time.Hour) }
	u, err = svc.UpdateStreak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, u.Streak)
	assert.True(t, u.LastLogin.Equal(base), "no-op keeps lastLogin")

	// a long gap still only adds one
	svc.now = func() time.Time { return base.Add(10 * 24 * time.Hour) }
	u, err = svc.UpdateStreak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, u.Streak)
}

func TestRedeem(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("u1", 1000, 1)
	repo.rewards["r1"] = &models.Reward{ID: "r1", Slug: "paypal-5", XPCost: 1000, IsActive: true}
	repo.rewards["old"] = &models.Reward{ID: "old", XPCost: 10}
	svc := newTestService(repo)
	ctx := context.Background()

	red, err := svc.Redeem(ctx, "u1", models.RedeemRequest{RewardID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionProcessing, red.Status)
	assert.Equal(t, 1000, red.XPSpent)
	assert.NotNil(t, red.DeliveryInfo)

	u, _ := repo.GetUser(ctx, "u1")
	assert.Equal(t, 0, u.XP)
	assert.Equal(t, 1, u.Level)

	_, err = svc.Redeem(ctx, "u1", models.RedeemRequest{RewardID: "r1"})
	assert.ErrorIs(t, err, ErrInsufficientXP)
	assert.Len(t, repo.redemptions, 1)

	_, err = svc.Redeem(ctx, "u1", models.RedeemRequest{RewardID: "old"})
	assert.ErrorIs(t, err, ErrRewardNotFound)

	_, err = svc.Redeem(ctx, "u1", models.RedeemRequest{})
	assert.ErrorIs(t, err, ErrInvalidReward)
}

func TestRedeemConcurrentNeverOverdraws(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("u1", 1000, 1)
	repo.rewards["r1"] = &models.Reward{ID: "r1", XPCost: 400, IsActive: true}
	svc := newTestService(repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			//nolint:errcheck
			svc.Redeem(ctx, "u1", models.RedeemRequest{RewardID: "r1"})
		}()
	}
	wg.Wait()

	u, _ := repo.GetUser(ctx, "u1")
	assert.Equal(t, 200, u.XP)
	assert.Len(t, repo.redemptions, 2)
}

func TestDailyTasks(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("u1", 0, 1)
	svc := newTestService(repo)
	ctx := context.Background()

	tasks, err := svc.GetDailyTasks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{TaskSurvey, TaskGame, TaskReferralShare},
		[]string{tasks[0].TaskType, tasks[1].TaskType, tasks[2].TaskType})
	assert.Equal(t, "2026-03-10", tasks[0].Date)

	again, err := svc.GetDailyTasks(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, again, 3)

	task, err := svc.CompleteDailyTask(ctx, "u1", TaskGame)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.True(t, task.Completed)

	task, err = svc.CompleteDailyTask(ctx, "u1", TaskGame)
	require.NoError(t, err)
	assert.Nil(t, task)

	u, _ := repo.GetUser(ctx, "u1")
	assert.Equal(t, 100, u.XP, "reward granted exactly once")

	acts, _ := svc.GetActivities(ctx, "u1", 10)
	require.Len(t, acts, 1)
	assert.Equal(t, CategoryDailyTask, acts[0].Type)
	assert.Equal(t, TaskGame, acts[0].Metadata["taskType"])

	_, err = svc.CompleteDailyTask(ctx, "u1", "share")
	assert.ErrorIs(t, err, ErrInvalidTaskType)
}

func TestMilestoneCompletedAtIsSetOnce(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("u1", 0, 1)
	svc := newTestService(repo)
	ctx := context.Background()
	_, err := repo.ProvisionMilestones(ctx, "u1")
	require.NoError(t, err)

	var first *time.Time
	for i := 0; i < 5; i++ {
		_, err := svc.GrantXP(ctx, "u1", models.AddXPRequest{XPGained: 10, Type: CategoryGame})
		require.NoError(t, err)
	}
	ms, _ := svc.GetMilestones(ctx, "u1")
	for _, m := range ms {
		if m.Type == MilestoneGames {
			assert.True(t, m.Completed)
			assert.Equal(t, 5, m.Current)
			first = m.CompletedAt
		}
	}
	require.NotNil(t, first)

	m, err := svc.AdvanceMilestone(ctx, "u1", MilestoneGames, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, m.Current)
	assert.Equal(t, *first, *m.CompletedAt)

	u, _ := repo.GetUser(ctx, "u1")
	assert.Equal(t, 50, u.XP, "milestones grant nothing")
}

func TestReferralCodeIdempotent(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("45213887", 0, 1)
	svc := newTestService(repo)
	ctx := context.Background()

	code, err := svc.GetOrCreateReferralCode(ctx, "45213887")
	require.NoError(t, err)
	assert.Len(t, code, 12)
	assert.Equal(t, "45213887", code[:8])

	again, err := svc.GetOrCreateReferralCode(ctx, "45213887")
	require.NoError(t, err)
	assert.Equal(t, code, again)
}

func TestReferralCodeRetriesCollisions(t *testing.T) {
	repo := newFakeRepo()
	taken := "takentaken"
	repo.addUser("u1", 0, 1)
	repo.addUser("u2", 0, 1)
	repo.users["u2"].ReferralCode = &taken
	repo.forcedCodes = []string{taken, taken}
	svc := newTestService(repo)

	code, err := svc.GetOrCreateReferralCode(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotEqual(t, taken, code)
}

func TestReferralCodeExhausted(t *testing.T) {
	repo := newFakeRepo()
	taken := "takentaken"
	repo.addUser("u1", 0, 1)
	repo.addUser("u2", 0, 1)
	repo.users["u2"].ReferralCode = &taken
	for i := 0; i < referralMaxAttempts; i++ {
		repo.forcedCodes = append(repo.forcedCodes, taken)
	}
	svc := newTestService(repo)

	_, err := svc.GetOrCreateReferralCode(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrReferralCodeExhausted)
}

func TestClaimReferralAndBonus(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("alice", 0, 1)
	repo.addUser("bob", 0, 1)
	svc := newTestService(repo)
	ctx := context.Background()
	_, err := repo.ProvisionAllMilestones(ctx)
	require.NoError(t, err)

	code, err := svc.GetOrCreateReferralCode(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.ClaimReferral(ctx, "alice", code)
	assert.ErrorIs(t, err, ErrSelfReferral)
	_, err = svc.ClaimReferral(ctx, "bob", "nope")
	assert.ErrorIs(t, err, ErrReferralCodeNotFound)

	referrer, err := svc.ClaimReferral(ctx, "bob", "  "+code+"  ")
	require.NoError(t, err)
	assert.Equal(t, "alice", referrer)

	_, err = svc.ClaimReferral(ctx, "bob", code)
	assert.ErrorIs(t, err, ErrAlreadyReferred)

	// games do not pay the referrer
	_, err = svc.GrantXP(ctx, "bob", models.AddXPRequest{XPGained: 10, Type: CategoryGame})
	require.NoError(t, err)
	alice, _ := repo.GetUser(ctx, "alice")
	assert.Equal(t, 0, alice.XP)

	for i := 0; i < 2; i++ {
		_, err = svc.GrantXP(ctx, "bob", models.AddXPRequest{XPGained: 100, Type: CategorySurvey})
		require.NoError(t, err)
	}
	alice, _ = repo.GetUser(ctx, "alice")
	assert.Equal(t, ReferralBonusXP, alice.XP, "bonus paid once")

	ms, _ := svc.GetMilestones(ctx, "alice")
	for _, m := range ms {
		if m.Type == MilestoneReferrals {
			assert.Equal(t, 1, m.Current)
		}
	}

	refs, err := svc.GetReferrals(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "bob", refs[0].ID)
}

func TestReferralBonusOnlyForFirstSurvey(t *testing.T) {
	repo := newFakeRepo()
	repo.addUser("alice", 0, 1)
	repo.addUser("bob", 0, 1)
	svc := newTestService(repo)
	ctx := context.Background()

	code, err := svc.GetOrCreateReferralCode(ctx, "alice")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.GrantXP(ctx, "bob", models.AddXPRequest{XPGained: 40, Type: CategorySurvey})
		require.NoError(t, err)
	}

	// claiming late still records who referred bob
	_, err = svc.ClaimReferral(ctx, "bob", code)
	require.NoError(t, err)

	_, err = svc.GrantXP(ctx, "bob", models.AddXPRequest{XPGained: 40, Type: CategorySurvey})
	require.NoError(t, err)

	alice, _ := repo.GetUser(ctx, "alice")
	assert.Equal(t, 0, alice.XP, "only a first survey pays the referrer")

	refs, err := svc.GetReferrals(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit, def, want int
	}{
		{0, 10, 10},
		{-3, 50, 50},
		{25, 10, 25},
		{500, 50, MaxListLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.limit, tt.def); got != tt.want {
			t.Errorf("clampLimit(%d, %d) = %d, want %d", tt.limit, tt.def, got, tt.want)
		}
	}
}
