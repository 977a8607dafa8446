package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/playvault/backend/internal/app"
	"github.com/playvault/backend/internal/auth"
	"github.com/playvault/backend/internal/config"
	"github.com/playvault/backend/internal/database"
	"github.com/playvault/backend/internal/fulfillment"
	"github.com/playvault/backend/internal/gamification"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg := config.Load()
	container := app.NewContainer(cfg)

	cliApp := &cli.App{
		Name:  "rewardsctl",
		Usage: "operate the rewards backend",
		Commands: []*cli.Command{
			commandMigrate(container),
			commandSeed(container),
			commandProvisionMilestones(container),
			commandExportRedemptions(container),
			commandHashKey(),
			commandToken(cfg),
			commandCron(container),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigrate(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations",
		Action: func(c *cli.Context) error {
			db, err := do.Invoke[*sql.DB](container)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Println("Migrations applied")
			return nil
		},
	}
}

func commandSeed(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "upsert the launch reward catalog and game offers",
		Action: func(c *cli.Context) error {
			db, err := do.Invoke[*sql.DB](container)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := database.SeedCatalog(c.Context, db)
			if err != nil {
				return err
			}
			log.Printf("Seeded %d catalog entries", n)
			return nil
		},
	}
}

func commandProvisionMilestones(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "provision-milestones",
		Usage: "create the default milestone set for every user missing one",
		Action: func(c *cli.Context) error {
			svc, err := do.Invoke[*gamification.Service](container)
			if err != nil {
				return err
			}

			n, err := svc.ProvisionAllMilestones(c.Context)
			if err != nil {
				return err
			}
			log.Printf("Provisioned %d milestones", n)
			return nil
		},
	}
}

func commandExportRedemptions(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "export-redemptions",
		Usage: "upload processing redemptions as CSV to the export bucket",
		Action: func(c *cli.Context) error {
			svc, err := do.Invoke[*fulfillment.Service](container)
			if err != nil {
				return err
			}

			key, n, err := svc.Export(c.Context)
			if err != nil {
				return err
			}
			log.Printf("Exported %d redemptions to %s", n, key)
			return nil
		},
	}
}

func commandHashKey() *cli.Command {
	return &cli.Command{
		Name:      "hash-key",
		Usage:     "print the bcrypt hash of a fulfillment key for FULFILLMENT_KEY_HASH",
		ArgsUsage: "<key>",
		Action: func(c *cli.Context) error {
			hashed, err := auth.HashKey(c.Args().First())
			if err != nil {
				return err
			}
			fmt.Println(hashed)
			return nil
		},
	}
}

func commandToken(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue a session token for local testing",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "sub", Required: true, Usage: "user id"},
			&cli.StringFlag{Name: "email"},
			&cli.StringFlag{Name: "first-name"},
			&cli.StringFlag{Name: "last-name"},
			&cli.DurationFlag{Name: "ttl", Value: 72 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			token, err := auth.IssueToken(cfg.JWTSecret, auth.Identity{
				UserID:    c.String("sub"),
				Email:     c.String("email"),
				FirstName: c.String("first-name"),
				LastName:  c.String("last-name"),
			}, c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
