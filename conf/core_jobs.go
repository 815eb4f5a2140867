package conf

import (
	"context"
	"log"
	"time"

	"github.com/zeptools/gw-invoice/counter"
	"github.com/zeptools/gw-invoice/metrics"
	"github.com/zeptools/gw-invoice/schedjobs"
)

const (
	JobCounterGauge = "counter-gauge"
	JobJWKSRefresh  = "jwks-refresh"
)

// PrepareScheduler registers the maintenance jobs. Call after PrepareCounter and PrepareAuth.
//   - counter-gauge: every minute, publish the store's last issued number.
//     Other processes may share the store, so the process-local gauge can lag.
//   - jwks-refresh: every auth.refresh_mins, re-fetch keys from the auth server
func (c *Core) PrepareScheduler(m *metrics.Metrics) {
	c.Scheduler = schedjobs.NewScheduler(c.RootCtx)

	if peeker, ok := c.InvoiceCounter.(counter.Peeker); ok && m != nil {
		c.Scheduler.AddCronJob(schedjobs.NewEveryMinCronJob(JobCounterGauge, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			last, err := peeker.Current(ctx)
			if err != nil {
				return err
			}
			m.RaiseLastSequence(last)
			return nil
		}))
	}

	if c.AuthServer != nil && c.BearerAuth != nil {
		every := c.Auth.RefreshMins
		if every <= 0 {
			every = 15
		}
		job := schedjobs.NewEveryMinCronJob(JobJWKSRefresh, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return c.AuthServer.RefreshKeys(ctx, c.BearerAuth.Keys)
		})
		job.Minutes = schedjobs.EveryNMinutes(every)
		c.Scheduler.AddCronJob(job)
	}

	if len(c.Scheduler.CronJobs()) == 0 {
		log.Println("[INFO] no scheduled jobs")
		return
	}
	c.AddService(c.Scheduler)
}
