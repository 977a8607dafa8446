package fulfillment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/playvault/backend/internal/models"
)

// ExportRow is one pending redemption as handed to the fulfillment vendor.
type ExportRow struct {
	RedemptionID string
	UserID       string
	Email        *string
	RewardSlug   string
	RewardName   string
	XPSpent      int
	DeliveryInfo map[string]any
	CreatedAt    time.Time
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ Repository = (*Store)(nil)

// UpdateStatus moves a processing redemption to a final status. Final
// redemptions are never changed again.
func (s *Store) UpdateStatus(ctx context.Context, redemptionID, status string) (*models.Redemption, error) {
	var r models.Redemption
	var info []byte
	err := s.db.QueryRowContext(ctx,
		`UPDATE redemptions SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status = $3
		 RETURNING id, user_id, reward_id, status, xp_spent, delivery_info, created_at, updated_at`,
		redemptionID, status, models.RedemptionProcessing,
	).Scan(&r.ID, &r.UserID, &r.RewardID, &r.Status, &r.XPSpent, &info, &r.CreatedAt, &r.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM redemptions WHERE id = $1)`, redemptionID,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check redemption: %w", err)
		}
		if !exists {
			return nil, ErrRedemptionNotFound
		}
		return nil, ErrAlreadyFinal
	}
	if err != nil {
		return nil, fmt.Errorf("update redemption status: %w", err)
	}

	r.DeliveryInfo = map[string]any{}
	if len(info) > 0 {
		if err := json.Unmarshal(info, &r.DeliveryInfo); err != nil {
			return nil, fmt.Errorf("decode delivery info: %w", err)
		}
	}
	return &r, nil
}

// ListProcessing returns every redemption awaiting fulfillment, oldest first.
func (s *Store) ListProcessing(ctx context.Context) ([]ExportRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, u.email, rw.slug, rw.name, r.xp_spent, r.delivery_info, r.created_at
		 FROM redemptions r
		 JOIN users u ON u.id = r.user_id
		 JOIN rewards rw ON rw.id = r.reward_id
		 WHERE r.status = $1
		 ORDER BY r.created_at ASC`,
		models.RedemptionProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("list processing redemptions: %w", err)
	}
	defer rows.Close()

	result := []ExportRow{}
	for rows.Next() {
		var row ExportRow
		var info []byte
		if err := rows.Scan(&row.RedemptionID, &row.UserID, &row.Email, &row.RewardSlug,
			&row.RewardName, &row.XPSpent, &info, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		row.DeliveryInfo = map[string]any{}
		if len(info) > 0 {
			if err := json.Unmarshal(info, &row.DeliveryInfo); err != nil {
				return nil, fmt.Errorf("decode delivery info: %w", err)
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
