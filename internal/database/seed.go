package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type rewardSeed struct {
	Name        string
	Description string
	XPCost      int
	Type        string
}

type gameSeed struct {
	Name         string
	Description  string
	XPReward     int
	AffiliateURL string
}

// LaunchRewards is the reward catalog shipped with a fresh install.
var LaunchRewards = []rewardSeed{
	{Name: "$5 PayPal", Description: "Instant transfer to your PayPal account", XPCost: 1000, Type: "paypal"},
	{Name: "$10 Amazon", Description: "Amazon gift card code delivered via email", XPCost: 2000, Type: "amazon"},
	{Name: "$25 Google Play", Description: "Google Play store credit", XPCost: 5000, Type: "google_play"},
	{Name: "Spotify Premium", Description: "3 months of Spotify Premium subscription", XPCost: 3500, Type: "spotify"},
	{Name: "$50 Steam", Description: "Steam wallet code for gaming", XPCost: 10000, Type: "steam"},
	{Name: "$100 PayPal", Description: "Large PayPal cash reward", XPCost: 20000, Type: "paypal"},
}

// LaunchGames is the game offer catalog shipped with a fresh install.
var LaunchGames = []gameSeed{
	{Name: "Puzzle Adventures", Description: "Match-3 puzzle game with epic adventures", XPReward: 500, AffiliateURL: "https://example.com/puzzle-adventures"},
	{Name: "Speed Racer 3D", Description: "High-speed racing with realistic physics", XPReward: 750, AffiliateURL: "https://example.com/speed-racer"},
	{Name: "Empire Builder", Description: "Build your empire in this strategy MMO", XPReward: 1000, AffiliateURL: "https://example.com/empire-builder"},
	{Name: "Magic Quest RPG", Description: "Embark on magical adventures in this fantasy RPG", XPReward: 800, AffiliateURL: "https://example.com/magic-quest"},
	{Name: "City Builder Tycoon", Description: "Design and manage your dream city", XPReward: 600, AffiliateURL: "https://example.com/city-builder"},
	{Name: "Battle Arena", Description: "Real-time strategy battles with global players", XPReward: 900, AffiliateURL: "https://example.com/battle-arena"},
}

// CatalogSlug derives the stable key a catalog entry is upserted by.
func CatalogSlug(name string) string {
	return slug.Make(name)
}

// SeedCatalog upserts the launch rewards and game offers, keyed by slug.
// Rerunning it refreshes names, copy and prices without duplicating rows.
func SeedCatalog(ctx context.Context, db *sql.DB) (int, error) {
	seeded := 0
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, r := range LaunchRewards {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO rewards (id, slug, name, description, xp_cost, type)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (slug) DO UPDATE SET
				    name = EXCLUDED.name,
				    description = EXCLUDED.description,
				    xp_cost = EXCLUDED.xp_cost,
				    type = EXCLUDED.type`,
				uuid.NewString(), CatalogSlug(r.Name), r.Name, r.Description, r.XPCost, r.Type,
			)
			if err != nil {
				return fmt.Errorf("seed reward %q: %w", r.Name, err)
			}
			seeded++
		}

		for _, g := range LaunchGames {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO game_offers (id, slug, name, description, xp_reward, affiliate_url)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (slug) DO UPDATE SET
				    name = EXCLUDED.name,
				    description = EXCLUDED.description,
				    xp_reward = EXCLUDED.xp_reward,
				    affiliate_url = EXCLUDED.affiliate_url`,
				uuid.NewString(), CatalogSlug(g.Name), g.Name, g.Description, g.XPReward, g.AffiliateURL,
			)
			if err != nil {
				return fmt.Errorf("seed game offer %q: %w", g.Name, err)
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seeded, nil
}
