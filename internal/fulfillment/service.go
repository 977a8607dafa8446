package fulfillment

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/playvault/backend/internal/models"
)

type Repository interface {
	UpdateStatus(ctx context.Context, redemptionID, status string) (*models.Redemption, error)
	ListProcessing(ctx context.Context) ([]ExportRow, error)
}

type Service struct {
	repo     Repository
	uploader Uploader
	now      func() time.Time
}

// NewService wires fulfillment. uploader may be nil when exports are not configured.
func NewService(repo Repository, uploader Uploader) *Service {
	return &Service{repo: repo, uploader: uploader, now: time.Now}
}

func IsFinalStatus(status string) bool {
	return status == models.RedemptionDelivered || status == models.RedemptionFailed
}

// Transition settles a processing redemption. Failed redemptions are not refunded.
func (s *Service) Transition(ctx context.Context, redemptionID, status string) (*models.Redemption, error) {
	if !IsFinalStatus(status) {
		return nil, ErrInvalidStatus
	}

	r, err := s.repo.UpdateStatus(ctx, redemptionID, status)
	if err != nil {
		return nil, err
	}
	log.Printf("[fulfillment] redemption %s -> %s", redemptionID, status)
	return r, nil
}

// ExportKey is the object key an export taken at t is stored under.
func ExportKey(t time.Time) string {
	return fmt.Sprintf("redemptions/processing-%s.csv", t.UTC().Format("20060102T150405Z"))
}

// Export uploads all processing redemptions as CSV and returns the object key
// and row count. An empty backlog still produces a header-only file.
func (s *Service) Export(ctx context.Context) (string, int, error) {
	if s.uploader == nil {
		return "", 0, ErrExportDisabled
	}

	rows, err := s.repo.ListProcessing(ctx)
	if err != nil {
		return "", 0, err
	}

	body, err := BuildCSV(rows)
	if err != nil {
		return "", 0, err
	}

	key := ExportKey(s.now())
	if err := s.uploader.Upload(ctx, key, body, "text/csv"); err != nil {
		return "", 0, err
	}
	log.Printf("[fulfillment] exported %d redemptions to %s", len(rows), key)
	return key, len(rows), nil
}

var csvHeader = []string{
	"redemption_id", "user_id", "email", "reward_slug", "reward_name",
	"xp_spent", "delivery_info", "created_at",
}

func BuildCSV(rows []ExportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		info, err := json.Marshal(row.DeliveryInfo)
		if err != nil {
			return nil, fmt.Errorf("encode delivery info for %s: %w", row.RedemptionID, err)
		}
		email := ""
		if row.Email != nil {
			email = *row.Email
		}
		record := []string{
			row.RedemptionID,
			row.UserID,
			email,
			row.RewardSlug,
			row.RewardName,
			strconv.Itoa(row.XPSpent),
			string(info),
			row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
