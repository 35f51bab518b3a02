package matching

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jobdeck/alerts.api/data"
	"github.com/jobdeck/alerts.api/data/repos"
	"github.com/jobdeck/alerts.api/metrics"
)

type AlertStore interface {
	GetAlert(id int64) (*data.JobAlert, error)
	GetAlertOwner(alertID int64) (*data.AlertOwner, error)
	AdvanceLastSent(id int64, ts time.Time) error
}

// Ledger is the dedup record. UpsertMatch must be backed by an atomic
// insert-if-absent; it is the pipeline's only defense against concurrent
// cycles seeing the same job.
type Ledger interface {
	UpsertMatch(match data.JobAlertMatch) (id int64, alreadySent bool, err error)
	GetUnsentByIDs(ids []int64) ([]data.JobAlertMatch, error)
	MarkSent(ids []int64, sentAt time.Time) error
}

type PreferenceStore interface {
	CanSendEmailType(userID uuid.UUID, emailType string) (bool, error)
}

type Enqueuer interface {
	EnqueueNotification(ctx context.Context, alertID int64, matchIDs []int64, scanStartedAt time.Time) error
}

type Notifier interface {
	SendJobAlertNotification(owner data.AlertOwner, matches []data.JobAlertMatch, total int) error
}

// Pipeline orchestrates one alert's cycle: scan, ledger dedup, enqueue,
// deliver, advance watermark. Steps are strictly sequential; later steps
// depend on earlier ones having succeeded.
type Pipeline struct {
	engine   *Engine
	alerts   AlertStore
	ledger   Ledger
	prefs    PreferenceStore
	enqueuer Enqueuer
	notifier Notifier
	now      func() time.Time
}

func NewPipeline(engine *Engine, alerts AlertStore, ledger Ledger, prefs PreferenceStore, enqueuer Enqueuer, notifier Notifier) *Pipeline {
	return &Pipeline{
		engine:   engine,
		alerts:   alerts,
		ledger:   ledger,
		prefs:    prefs,
		enqueuer: enqueuer,
		notifier: notifier,
		now:      time.Now,
	}
}

// RunCycle executes the scan half of a cycle. Returning an error hands the
// task back to the queue for retry with the watermark untouched, so the
// next attempt covers the same window; the ledger reconciles any overlap.
func (p *Pipeline) RunCycle(ctx context.Context, alertID int64) error {
	alert, err := p.alerts.GetAlert(alertID)
	if err != nil {
		return errors.Wrap(err, "run cycle: load alert")
	}
	if alert == nil {
		slog.Info("run cycle: alert no longer exists", "alertID", alertID)
		return nil
	}

	scanStart := p.now()

	res, err := p.engine.Scan(ctx, *alert)
	if err != nil {
		metrics.ScanCycles.WithLabelValues("error").Inc()
		return errors.Wrap(err, "run cycle")
	}

	if res.Skipped {
		metrics.ScanCycles.WithLabelValues("skipped").Inc()
		slog.Debug("run cycle: alert paused or inactive", "alertID", alertID)
		return nil
	}

	if len(res.Candidates) == 0 {
		metrics.ScanCycles.WithLabelValues("empty").Inc()
		p.advanceWatermark(alertID, scanStart)
		return nil
	}

	deliverable := make([]int64, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		matchID, alreadySent, err := p.ledger.UpsertMatch(data.JobAlertMatch{
			AlertID:    alertID,
			JobID:      c.JobID,
			JobTitle:   c.Title,
			Company:    c.Company,
			Location:   c.Location,
			MatchScore: c.Score,
		})
		if err != nil {
			metrics.ScanCycles.WithLabelValues("error").Inc()
			return errors.Wrap(err, "run cycle: record match")
		}
		if alreadySent {
			continue
		}
		deliverable = append(deliverable, matchID)
	}
	metrics.MatchesRecorded.Add(float64(len(deliverable)))

	if len(deliverable) == 0 {
		// Everything this window produced was delivered in a prior cycle.
		metrics.ScanCycles.WithLabelValues("deduped").Inc()
		p.advanceWatermark(alertID, scanStart)
		return nil
	}

	canSend, err := p.prefs.CanSendEmailType(alert.UserID, repos.EmailTypeJobMatchNotifications)
	if err != nil {
		return errors.Wrap(err, "run cycle: check email preference")
	}
	if !canSend {
		// Matches stay recorded for history; the user opted out of email.
		metrics.ScanCycles.WithLabelValues("suppressed").Inc()
		slog.Info("run cycle: notifications suppressed by preference", "alertID", alertID, "matches", len(deliverable))
		p.advanceWatermark(alertID, scanStart)
		return nil
	}

	if err := p.enqueuer.EnqueueNotification(ctx, alertID, deliverable, scanStart); err != nil {
		return errors.Wrap(err, "run cycle: enqueue notification")
	}

	metrics.ScanCycles.WithLabelValues("enqueued").Inc()
	slog.Info("run cycle: matches enqueued", "alertID", alertID, "matches", len(deliverable))
	return nil
}

// DeliverNotification executes the delivery half. was_sent flips only after
// the mailer confirms dispatch; a dispatch failure leaves the rows eligible
// and the task retried. The watermark advances to the scan start carried in
// the task, never to send time, so the next window has no gap.
func (p *Pipeline) DeliverNotification(ctx context.Context, alertID int64, matchIDs []int64, scanStartedAt time.Time) error {
	owner, err := p.alerts.GetAlertOwner(alertID)
	if err != nil {
		return errors.Wrap(err, "deliver notification: load alert owner")
	}
	if owner == nil {
		slog.Info("deliver notification: alert no longer exists", "alertID", alertID)
		return nil
	}

	matches, err := p.ledger.GetUnsentByIDs(matchIDs)
	if err != nil {
		return errors.Wrap(err, "deliver notification: load matches")
	}
	if len(matches) == 0 {
		// A concurrent attempt already delivered everything.
		p.advanceWatermark(alertID, scanStartedAt)
		return nil
	}

	// Re-check at delivery time; the preference may have flipped since the
	// scan enqueued this task.
	canSend, err := p.prefs.CanSendEmailType(owner.UserID, repos.EmailTypeJobMatchNotifications)
	if err != nil {
		return errors.Wrap(err, "deliver notification: check email preference")
	}
	if !canSend {
		slog.Info("deliver notification: suppressed by preference", "alertID", alertID)
		p.advanceWatermark(alertID, scanStartedAt)
		return nil
	}

	if err := p.notifier.SendJobAlertNotification(*owner, matches, len(matches)); err != nil {
		metrics.EmailsFailed.Inc()
		return errors.Wrap(err, "deliver notification: send email")
	}
	metrics.EmailsSent.Inc()

	sentIDs := make([]int64, 0, len(matches))
	for _, m := range matches {
		sentIDs = append(sentIDs, m.ID)
	}
	if err := p.ledger.MarkSent(sentIDs, p.now()); err != nil {
		// The email went out; failing the task would resend. The rows stay
		// unsent and the ledger absorbs the duplicate on the next cycle.
		slog.Error("deliver notification: mark sent", "alertID", alertID, "error", err)
	}

	p.advanceWatermark(alertID, scanStartedAt)
	slog.Info("deliver notification: sent", "alertID", alertID, "matches", len(matches), "recipient", owner.Email)
	return nil
}

func (p *Pipeline) advanceWatermark(alertID int64, ts time.Time) {
	if err := p.alerts.AdvanceLastSent(alertID, ts); err != nil {
		// Non-fatal: the next cycle re-covers the window and the ledger
		// dedups it.
		slog.Error("advance watermark", "alertID", alertID, "error", err)
	}
}
