package rollover

import (
	"context"
	"log"
	"time"

	rcron "github.com/robfig/cron/v3"
)

type sweeper interface {
	Sweep(ctx context.Context, asOf time.Time) error
}

// Scheduler triggers the daily sweep on a cron expression (with seconds).
// It is an alternative entry point to the on-demand endpoint; both are safe
// to mix because idempotency is enforced by the store.
type Scheduler struct {
	cron *rcron.Cron
}

func NewScheduler(schedule string, svc sweeper, timeout time.Duration) (*Scheduler, error) {
	c := rcron.New(rcron.WithSeconds())
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := svc.Sweep(ctx, time.Now()); err != nil {
			log.Printf("rollover schedule: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Print("rollover scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
