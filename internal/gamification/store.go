package gamification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/playvault/backend/internal/database"
	"github.com/playvault/backend/internal/models"
)

// Grant is one XP award and the activity it is recorded as.
type Grant struct {
	Amount      int
	Category    string
	Description string
	Metadata    map[string]any
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ Repository = (*Store)(nil)

type scanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, email, first_name, last_name, profile_image_url,
	xp, level, streak, last_login, referral_code, referred_by, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.ProfileImageURL,
		&u.XP, &u.Level, &u.Streak, &u.LastLogin, &u.ReferralCode, &u.ReferredBy,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ── Users ───────────────────────────────────────────────

func (s *Store) GetUser(ctx context.Context, userID string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UpsertUser creates the user on first sight and refreshes profile fields
// when they change. It reports whether a new row was inserted.
func (s *Store) UpsertUser(ctx context.Context, u models.UpsertUser) (bool, error) {
	var inserted bool
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, first_name, last_name, profile_image_url)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
		 ON CONFLICT (id) DO UPDATE SET
		    email = EXCLUDED.email,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    profile_image_url = EXCLUDED.profile_image_url,
		    updated_at = NOW()
		 WHERE (users.email, users.first_name, users.last_name, users.profile_image_url)
		    IS DISTINCT FROM
		    (EXCLUDED.email, EXCLUDED.first_name, EXCLUDED.last_name, EXCLUDED.profile_image_url)
		 RETURNING (xmax = 0)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.ProfileImageURL,
	).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		// unchanged existing row
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	return inserted, nil
}

// ── XP Operations ───────────────────────────────────────

// GrantXP credits XP, applies the single-step level rule, appends the
// activity and advances the matching milestone in one transaction. A survey
// grant also settles the referral bonus inside that transaction.
func (s *Store) GrantXP(ctx context.Context, userID string, g Grant) (*models.User, error) {
	var user *models.User
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		user, err = grantXP(ctx, tx, userID, g)
		if err != nil || g.Category != CategorySurvey {
			return err
		}
		return payReferralBonus(ctx, tx, userID)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func grantXP(ctx context.Context, q database.DBTX, userID string, g Grant) (*models.User, error) {
	user, err := scanUser(q.QueryRowContext(ctx,
		`UPDATE users SET
		    xp = xp + $2,
		    level = CASE WHEN xp + $2 >= level * $3 THEN level + 1 ELSE level END,
		    updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, g.Amount, LevelXPStep,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("add xp: %w", err)
	}

	if err := insertActivity(ctx, q, userID, g); err != nil {
		return nil, err
	}

	if milestoneType, ok := MilestoneTypeFor(g.Category); ok {
		if _, err := advanceMilestone(ctx, q, userID, milestoneType, 1); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func insertActivity(ctx context.Context, q database.DBTX, userID string, g Grant) error {
	meta, err := marshalMap(g.Metadata)
	if err != nil {
		return fmt.Errorf("encode activity metadata: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO activities (id, user_id, type, description, xp_gained, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), userID, g.Category, g.Description, g.Amount, meta,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ── Streak ──────────────────────────────────────────────

// UpdateStreak increments the streak if the last login is absent or at least
// StreakWindow old. It reports whether the row changed.
func (s *Store) UpdateStreak(ctx context.Context, userID string, now time.Time) (*models.User, bool, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`UPDATE users SET
		    streak = streak + 1,
		    last_login = $2,
		    updated_at = NOW()
		 WHERE id = $1 AND (last_login IS NULL OR last_login <= $3)
		 RETURNING `+userColumns,
		userID, now, now.Add(-StreakWindow),
	))
	if errors.Is(err, sql.ErrNoRows) {
		user, err = s.GetUser(ctx, userID)
		return user, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("update streak: %w", err)
	}
	return user, true, nil
}

// ── Activities ──────────────────────────────────────────

func (s *Store) GetActivities(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, type, description, xp_gained, metadata, created_at
		 FROM activities WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get activities: %w", err)
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		var meta []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.Type, &a.Description, &a.XPGained, &meta, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.Metadata, err = unmarshalMap(meta); err != nil {
			return nil, fmt.Errorf("decode activity metadata: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// ── Leaderboard ─────────────────────────────────────────

const publicUserColumns = `id, first_name, last_name, xp, level, profile_image_url, created_at`

// scanPublicUser reads publicUserColumns. The private fields stay zero.
func scanPublicUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.XP, &u.Level, &u.ProfileImageURL, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetLeaderboard selects only the public columns, so private fields cannot leak.
func (s *Store) GetLeaderboard(ctx context.Context, limit int) ([]models.PublicUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+publicUserColumns+`
		 FROM users
		 ORDER BY xp DESC, created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.PublicUser{}
	for rows.Next() {
		u, err := scanPublicUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, u.Public())
	}
	return entries, rows.Err()
}

// ── Catalog ─────────────────────────────────────────────

const rewardColumns = `id, slug, name, description, xp_cost, type, image_url, is_active, created_at`

func scanReward(row scanner) (*models.Reward, error) {
	var r models.Reward
	if err := row.Scan(&r.ID, &r.Slug, &r.Name, &r.Description, &r.XPCost, &r.Type, &r.ImageURL, &r.IsActive, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetRewards(ctx context.Context) ([]models.Reward, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+rewardColumns+` FROM rewards WHERE is_active ORDER BY xp_cost ASC`)
	if err != nil {
		return nil, fmt.Errorf("get rewards: %w", err)
	}
	defer rows.Close()

	rewards := []models.Reward{}
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *Store) GetActiveReward(ctx context.Context, rewardID string) (*models.Reward, error) {
	r, err := scanReward(s.db.QueryRowContext(ctx,
		`SELECT `+rewardColumns+` FROM rewards WHERE id = $1 AND is_active`, rewardID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRewardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

func (s *Store) GetGameOffers(ctx context.Context) ([]models.GameOffer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, name, description, xp_reward, image_url, affiliate_url, is_active, created_at
		 FROM game_offers WHERE is_active
		 ORDER BY xp_reward DESC`)
	if err != nil {
		return nil, fmt.Errorf("get game offers: %w", err)
	}
	defer rows.Close()

	games := []models.GameOffer{}
	for rows.Next() {
		var g models.GameOffer
		if err := rows.Scan(&g.ID, &g.Slug, &g.Name, &g.Description, &g.XPReward, &g.ImageURL, &g.AffiliateURL, &g.IsActive, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan game offer: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// ── Redemptions ─────────────────────────────────────────

// Redeem debits the reward cost with a conditional update and records the
// redemption in the same transaction. A failed balance check writes nothing.
func (s *Store) Redeem(ctx context.Context, userID string, reward *models.Reward, deliveryInfo map[string]any) (*models.Redemption, error) {
	info, err := marshalMap(deliveryInfo)
	if err != nil {
		return nil, fmt.Errorf("encode delivery info: %w", err)
	}

	var redemption *models.Redemption
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE users SET xp = xp - $2, updated_at = NOW()
			 WHERE id = $1 AND xp >= $2`,
			userID, reward.XPCost,
		)
		if err != nil {
			return fmt.Errorf("debit xp: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("debit xp: %w", err)
		}
		if rows == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID,
			).Scan(&exists); err != nil {
				return fmt.Errorf("check user: %w", err)
			}
			if !exists {
				return ErrUserNotFound
			}
			return ErrInsufficientXP
		}

		redemption, err = scanRedemption(tx.QueryRowContext(ctx,
			`INSERT INTO redemptions (id, user_id, reward_id, status, xp_spent, delivery_info)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, user_id, reward_id, status, xp_spent, delivery_info, created_at, updated_at`,
			uuid.NewString(), userID, reward.ID, models.RedemptionProcessing, reward.XPCost, info,
		))
		if err != nil {
			return fmt.Errorf("insert redemption: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redemption, nil
}

func scanRedemption(row scanner) (*models.Redemption, error) {
	var r models.Redemption
	var info []byte
	if err := row.Scan(&r.ID, &r.UserID, &r.RewardID, &r.Status, &r.XPSpent, &info, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if r.DeliveryInfo, err = unmarshalMap(info); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetRedemptions(ctx context.Context, userID string) ([]models.Redemption, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.reward_id, r.status, r.xp_spent, r.delivery_info,
		        r.created_at, r.updated_at, rw.name, rw.type, rw.image_url
		 FROM redemptions r
		 LEFT JOIN rewards rw ON rw.id = r.reward_id
		 WHERE r.user_id = $1
		 ORDER BY r.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get redemptions: %w", err)
	}
	defer rows.Close()

	redemptions := []models.Redemption{}
	for rows.Next() {
		var r models.Redemption
		var info []byte
		reward := &models.RedemptionReward{}
		if err := rows.Scan(&r.ID, &r.UserID, &r.RewardID, &r.Status, &r.XPSpent, &info,
			&r.CreatedAt, &r.UpdatedAt, &reward.Name, &reward.Type, &reward.ImageURL); err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		if r.DeliveryInfo, err = unmarshalMap(info); err != nil {
			return nil, fmt.Errorf("decode delivery info: %w", err)
		}
		r.Reward = reward
		redemptions = append(redemptions, r)
	}
	return redemptions, rows.Err()
}

// ── Daily Tasks ─────────────────────────────────────────

const dailyTaskColumns = `id, user_id, task_type, completed, date, xp_reward, created_at`

func scanDailyTask(row scanner) (*models.DailyTask, error) {
	var t models.DailyTask
	if err := row.Scan(&t.ID, &t.UserID, &t.TaskType, &t.Completed, &t.Date, &t.XPReward, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// EnsureDailyTasks creates the full task set for date in one statement.
// Existing rows are left untouched.
func (s *Store) EnsureDailyTasks(ctx context.Context, userID, date string) error {
	args := []any{userID, date}
	values := make([]string, 0, len(DailyTasks))
	for _, d := range DailyTasks {
		n := len(args)
		args = append(args, uuid.NewString(), d.Type, d.XPReward)
		values = append(values, fmt.Sprintf("($%d, $1, $%d, $2, $%d)", n+1, n+2, n+3))
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_tasks (id, user_id, task_type, date, xp_reward)
		 VALUES `+strings.Join(values, ", ")+`
		 ON CONFLICT (user_id, date, task_type) DO NOTHING`,
		args...,
	)
	if database.IsForeignKeyViolation(err) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("create daily tasks: %w", err)
	}
	return nil
}

func (s *Store) GetDailyTasks(ctx context.Context, userID, date string) ([]models.DailyTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+dailyTaskColumns+` FROM daily_tasks
		 WHERE user_id = $1 AND date = $2`,
		userID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("get daily tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.DailyTask{}
	for rows.Next() {
		t, err := scanDailyTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// CompleteDailyTask flips a pending task and grants its reward in one
// transaction. It returns nil when there was no pending task to complete.
func (s *Store) CompleteDailyTask(ctx context.Context, userID, taskType, date string) (*models.DailyTask, error) {
	var task *models.DailyTask
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := scanDailyTask(tx.QueryRowContext(ctx,
			`UPDATE daily_tasks SET completed = TRUE
			 WHERE user_id = $1 AND task_type = $2 AND date = $3 AND NOT completed
			 RETURNING `+dailyTaskColumns,
			userID, taskType, date,
		))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("complete daily task: %w", err)
		}

		_, err = grantXP(ctx, tx, userID, Grant{
			Amount:      t.XPReward,
			Category:    CategoryDailyTask,
			Description: "Completed daily task: " + taskType,
			Metadata:    map[string]any{"taskType": taskType},
		})
		if err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ── Milestones ──────────────────────────────────────────

const milestoneColumns = `id, user_id, type, current, target, xp_reward, completed, completed_at, created_at`

func scanMilestone(row scanner) (*models.Milestone, error) {
	var m models.Milestone
	if err := row.Scan(&m.ID, &m.UserID, &m.Type, &m.Current, &m.Target, &m.XPReward, &m.Completed, &m.CompletedAt, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) AdvanceMilestone(ctx context.Context, userID, milestoneType string, delta int) (*models.Milestone, error) {
	return advanceMilestone(ctx, s.db, userID, milestoneType, delta)
}

// advanceMilestone returns nil when the user has no milestone of that type.
func advanceMilestone(ctx context.Context, q database.DBTX, userID, milestoneType string, delta int) (*models.Milestone, error) {
	m, err := scanMilestone(q.QueryRowContext(ctx,
		`UPDATE milestones SET
		    current = current + $3,
		    completed = completed OR current + $3 >= target,
		    completed_at = CASE
		        WHEN NOT completed AND current + $3 >= target THEN NOW()
		        ELSE completed_at
		    END
		 WHERE user_id = $1 AND type = $2
		 RETURNING `+milestoneColumns,
		userID, milestoneType, delta,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("advance milestone: %w", err)
	}
	return m, nil
}

func (s *Store) GetMilestones(ctx context.Context, userID string) ([]models.Milestone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+milestoneColumns+` FROM milestones
		 WHERE user_id = $1
		 ORDER BY created_at, type`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get milestones: %w", err)
	}
	defer rows.Close()

	milestones := []models.Milestone{}
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		milestones = append(milestones, *m)
	}
	return milestones, rows.Err()
}

// ProvisionMilestones gives one user the default milestone set.
func (s *Store) ProvisionMilestones(ctx context.Context, userID string) (int64, error) {
	args := []any{userID}
	values := make([]string, 0, len(DefaultMilestones))
	for _, d := range DefaultMilestones {
		n := len(args)
		args = append(args, uuid.NewString(), d.Type, d.Target, d.XPReward)
		values = append(values, fmt.Sprintf("($%d, $1, $%d, $%d, $%d)", n+1, n+2, n+3, n+4))
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO milestones (id, user_id, type, target, xp_reward)
		 VALUES `+strings.Join(values, ", ")+`
		 ON CONFLICT (user_id, type) DO NOTHING`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("provision milestones: %w", err)
	}
	return result.RowsAffected()
}

// ProvisionAllMilestones backfills the default set for every user missing any of it.
func (s *Store) ProvisionAllMilestones(ctx context.Context) (int64, error) {
	var args []any
	values := make([]string, 0, len(DefaultMilestones))
	for _, d := range DefaultMilestones {
		n := len(args)
		args = append(args, d.Type, d.Target, d.XPReward)
		values = append(values, fmt.Sprintf("($%d, $%d::int, $%d::int)", n+1, n+2, n+3))
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO milestones (id, user_id, type, target, xp_reward)
		 SELECT gen_random_uuid()::text, u.id, d.type, d.target, d.xp_reward
		 FROM users u
		 CROSS JOIN (VALUES `+strings.Join(values, ", ")+`) AS d(type, target, xp_reward)
		 ON CONFLICT (user_id, type) DO NOTHING`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("provision all milestones: %w", err)
	}
	return result.RowsAffected()
}

// ── Referrals ───────────────────────────────────────────

func (s *Store) GetReferralCode(ctx context.Context, userID string) (*string, error) {
	var code *string
	err := s.db.QueryRowContext(ctx,
		`SELECT referral_code FROM users WHERE id = $1`, userID,
	).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get referral code: %w", err)
	}
	return code, nil
}

// SetReferralCode stores code only if the user has none yet. A duplicate code
// surfaces as a unique violation for the caller to retry.
func (s *Store) SetReferralCode(ctx context.Context, userID, code string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET referral_code = $2, updated_at = NOW()
		 WHERE id = $1 AND referral_code IS NULL`,
		userID, code,
	)
	if err != nil {
		return false, fmt.Errorf("set referral code: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set referral code: %w", err)
	}
	return rows == 1, nil
}

func (s *Store) FindUserIDByReferralCode(ctx context.Context, code string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE referral_code = $1`, code,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrReferralCodeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find referral code: %w", err)
	}
	return userID, nil
}

// SetReferredBy attaches a referrer once. Self-referral never matches.
func (s *Store) SetReferredBy(ctx context.Context, userID, referrerID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET referred_by = $2, updated_at = NOW()
		 WHERE id = $1 AND referred_by IS NULL AND id <> $2`,
		userID, referrerID,
	)
	if err != nil {
		return false, fmt.Errorf("set referred by: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set referred by: %w", err)
	}
	return rows == 1, nil
}

// payReferralBonus credits the referrer when the survey just recorded is the
// referred user's only survey activity. referral_rewarded flips at most once.
func payReferralBonus(ctx context.Context, q database.DBTX, userID string) error {
	var referrerID string
	err := q.QueryRowContext(ctx,
		`UPDATE users SET referral_rewarded = TRUE
		 WHERE id = $1 AND referred_by IS NOT NULL AND NOT referral_rewarded
		   AND (SELECT COUNT(*) FROM activities a WHERE a.user_id = $1 AND a.type = $2) = 1
		 RETURNING referred_by`,
		userID, CategorySurvey,
	).Scan(&referrerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim referral reward: %w", err)
	}

	if _, err := grantXP(ctx, q, referrerID, ReferralBonus(userID)); err != nil {
		return fmt.Errorf("pay referral bonus to %s: %w", referrerID, err)
	}
	log.Printf("[gamification] referral bonus paid to %s for %s", referrerID, userID)
	return nil
}

func (s *Store) GetReferrals(ctx context.Context, userID string) ([]models.ReferredUser, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+publicUserColumns+`
		 FROM users WHERE referred_by = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get referrals: %w", err)
	}
	defer rows.Close()

	referrals := []models.ReferredUser{}
	for rows.Next() {
		u, err := scanPublicUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan referral: %w", err)
		}
		referrals = append(referrals, models.ReferredUser{PublicUser: u.Public(), CreatedAt: u.CreatedAt})
	}
	return referrals, rows.Err()
}

// ── Helpers ─────────────────────────────────────────────

func marshalMap(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalMap(b []byte) (map[string]any, error) {
	m := map[string]any{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
