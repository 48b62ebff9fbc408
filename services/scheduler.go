package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartReconcileScheduler runs the ledger check every interval until ctx is
// done. Reports are uploaded when the service has an uploader.
func (s *ReconcileService) StartReconcileScheduler(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithClock(s.Clock))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := s.Run(ctx, true); err != nil {
				log.Printf("[Scheduler] reconcile failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule reconcile: %w", err)
	}

	sched.Start()
	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			log.Printf("[Scheduler] shutdown: %v", err)
		}
	}()
	log.Printf("⏰ Reconciliation scheduled every %s", interval)
	return sched, nil
}
