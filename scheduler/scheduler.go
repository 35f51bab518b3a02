// Package scheduler fires the recurring scan triggers: every alert on a
// cadence gets one scan task enqueued when its cadence comes due.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/jobdeck/alerts.api/data/repos"
	"github.com/jobdeck/alerts.api/enums"
	"github.com/jobdeck/alerts.api/queue"
)

// Morning sends; weekly on Mondays, monthly on the 1st.
const (
	specDaily   = "0 8 * * *"
	specWeekly  = "0 8 * * 1"
	specMonthly = "0 8 1 * *"
)

type Scheduler struct {
	cron   *cron.Cron
	alerts *repos.AlertRepo
	client *queue.Client
}

func New(alerts *repos.AlertRepo, client *queue.Client) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		alerts: alerts,
		client: client,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	entries := map[string]enums.Frequency{
		specDaily:   enums.FrequencyDaily,
		specWeekly:  enums.FrequencyWeekly,
		specMonthly: enums.FrequencyMonthly,
	}

	for spec, frequency := range entries {
		frequency := frequency
		_, err := s.cron.AddFunc(spec, func() {
			s.enqueueDue(ctx, frequency)
		})
		if err != nil {
			return fmt.Errorf("cron.AddFunc(%s): %w", spec, err)
		}
	}

	s.cron.Start()
	slog.Info("alert scan scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("alert scan scheduler stopped")
}

// enqueueDue dispatches one scan task per due alert. Each alert's cycle is
// an isolated unit of work; one bad alert never blocks the rest.
func (s *Scheduler) enqueueDue(ctx context.Context, frequency enums.Frequency) {
	alerts, err := s.alerts.GetDueAlerts(frequency)
	if err != nil {
		slog.Error("enqueue due alerts", "frequency", frequency, "error", err)
		return
	}

	enqueued := 0
	for _, alert := range alerts {
		if err := s.client.EnqueueScan(ctx, alert.ID); err != nil {
			slog.Error("enqueue scan", "alertID", alert.ID, "error", err)
			continue
		}
		enqueued++
	}

	slog.Info("scan cycle triggered", "frequency", frequency, "alerts", enqueued)
}
