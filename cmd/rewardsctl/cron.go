package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/playvault/backend/internal/config"
	"github.com/playvault/backend/internal/gamification"
	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const jobTimeout = 5 * time.Minute

func LockKeyCronJob(name string) string {
	return "lock:cron:" + name
}

// lockedJob runs fn on at most one replica per tick. Without a lock
// backend every replica runs it; all jobs are idempotent.
type lockedJob struct {
	name string
	rs   *redsync.Redsync
	fn   func(ctx context.Context) error
}

func (j *lockedJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if j.rs != nil {
		mutex := j.rs.NewMutex(LockKeyCronJob(j.name), redsync.WithExpiry(jobTimeout))
		if err := mutex.TryLockContext(ctx); err != nil {
			log.Printf("[cron] %s skipped, lock held elsewhere: %v", j.name, err)
			return
		}
		//nolint:errcheck
		defer mutex.UnlockContext(context.Background())
	}

	start := time.Now()
	if err := j.fn(ctx); err != nil {
		log.Printf("[cron] %s failed: %v", j.name, err)
		return
	}
	log.Printf("[cron] %s done in %s", j.name, time.Since(start).Round(time.Millisecond))
}

func commandCron(container *do.Injector) *cli.Command {
	return &cli.Command{
		Name:  "cron",
		Usage: "run scheduled maintenance jobs",
		Action: func(c *cli.Context) error {
			cfg := do.MustInvoke[*config.Config](container)
			svc, err := do.Invoke[*gamification.Service](container)
			if err != nil {
				return err
			}
			rs, err := do.Invoke[*redsync.Redsync](container)
			if err != nil {
				return err
			}

			cronRunner := cron.New()

			provision := &lockedJob{name: "provision-milestones", rs: rs, fn: func(ctx context.Context) error {
				_, err := svc.ProvisionAllMilestones(ctx)
				return err
			}}
			if _, err := cronRunner.AddJob(cfg.CronProvisionSpec, provision); err != nil {
				return err
			}

			warm := &lockedJob{name: "warm-catalog", rs: rs, fn: svc.WarmCatalog}
			if _, err := cronRunner.AddJob(cfg.CronWarmCacheSpec, warm); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errWg, errCtx := errgroup.WithContext(ctx)

			errWg.Go(func() error {
				log.Printf("Start cronjob (provision %q, warm %q)", cfg.CronProvisionSpec, cfg.CronWarmCacheSpec)
				cronRunner.Start()
				provision.Run()
				return nil
			})

			errWg.Go(func() error {
				<-errCtx.Done()
				<-cronRunner.Stop().Done()
				log.Println("Cronjob stopped")
				return nil
			})

			return errWg.Wait()
		},
	}
}
