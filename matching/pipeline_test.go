package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/alerts.api/data"
	"github.com/jobdeck/alerts.api/search"
)

type fakeAlerts struct {
	alert *data.JobAlert
	owner *data.AlertOwner
}

func (f *fakeAlerts) GetAlert(int64) (*data.JobAlert, error) {
	if f.alert == nil {
		return nil, nil
	}
	copied := *f.alert
	return &copied, nil
}

func (f *fakeAlerts) GetAlertOwner(int64) (*data.AlertOwner, error) {
	return f.owner, nil
}

func (f *fakeAlerts) AdvanceLastSent(_ int64, ts time.Time) error {
	if f.alert.LastSentAt == nil || f.alert.LastSentAt.Before(ts) {
		f.alert.LastSentAt = &ts
	}
	return nil
}

type fakeLedger struct {
	rows   map[[2]int64]*data.JobAlertMatch
	nextID int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: make(map[[2]int64]*data.JobAlertMatch)}
}

func (f *fakeLedger) UpsertMatch(match data.JobAlertMatch) (int64, bool, error) {
	key := [2]int64{match.AlertID, match.JobID}
	if existing, ok := f.rows[key]; ok {
		return existing.ID, existing.WasSent, nil
	}
	f.nextID++
	match.ID = f.nextID
	f.rows[key] = &match
	return match.ID, false, nil
}

func (f *fakeLedger) GetUnsentByIDs(ids []int64) ([]data.JobAlertMatch, error) {
	var out []data.JobAlertMatch
	for _, row := range f.rows {
		for _, id := range ids {
			if row.ID == id && !row.WasSent {
				out = append(out, *row)
			}
		}
	}
	return out, nil
}

func (f *fakeLedger) MarkSent(ids []int64, sentAt time.Time) error {
	for _, row := range f.rows {
		for _, id := range ids {
			if row.ID == id && !row.WasSent {
				row.WasSent = true
				row.SentAt = &sentAt
			}
		}
	}
	return nil
}

type fakePrefs struct {
	canSend bool
}

func (f *fakePrefs) CanSendEmailType(uuid.UUID, string) (bool, error) {
	return f.canSend, nil
}

type enqueuedNotification struct {
	alertID       int64
	matchIDs      []int64
	scanStartedAt time.Time
}

type fakeEnqueuer struct {
	enqueued []enqueuedNotification
}

func (f *fakeEnqueuer) EnqueueNotification(_ context.Context, alertID int64, matchIDs []int64, scanStartedAt time.Time) error {
	f.enqueued = append(f.enqueued, enqueuedNotification{alertID, matchIDs, scanStartedAt})
	return nil
}

type fakeNotifier struct {
	sent []int
	err  error
}

func (f *fakeNotifier) SendJobAlertNotification(_ data.AlertOwner, matches []data.JobAlertMatch, _ int) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, len(matches))
	return nil
}

type fixture struct {
	pipeline *Pipeline
	alerts   *fakeAlerts
	ledger   *fakeLedger
	prefs    *fakePrefs
	enqueuer *fakeEnqueuer
	notifier *fakeNotifier
	searcher *fakeSearcher
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	alert := activeAlert()
	alert.UserID = uuid.New()
	alert.Skills = []string{"TypeScript"}

	f := &fixture{
		alerts: &fakeAlerts{
			alert: &alert,
			owner: &data.AlertOwner{
				AlertID:     alert.ID,
				AlertName:   alert.Name,
				UserID:      alert.UserID,
				Email:       "dev@example.com",
				DisplayName: "Dev",
			},
		},
		ledger:   newFakeLedger(),
		prefs:    &fakePrefs{canSend: true},
		enqueuer: &fakeEnqueuer{},
		notifier: &fakeNotifier{},
		searcher: &fakeSearcher{result: &search.Result{
			Hits: []search.Hit{{JobID: 42, Score: 0, Doc: search.JobDocument{Title: "TypeScript Engineer", Company: "Acme"}}},
		}},
		clock: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	f.pipeline = NewPipeline(NewEngine(f.searcher, 50), f.alerts, f.ledger, f.prefs, f.enqueuer, f.notifier)
	f.pipeline.now = func() time.Time { return f.clock }
	return f
}

// runFullCycle runs the scan and, when a notification was enqueued,
// delivers it — one complete end-to-end cycle.
func (f *fixture) runFullCycle(t *testing.T) {
	t.Helper()

	require.NoError(t, f.pipeline.RunCycle(context.Background(), f.alerts.alert.ID))
	for _, n := range f.enqueuer.enqueued {
		require.NoError(t, f.pipeline.DeliverNotification(context.Background(), n.alertID, n.matchIDs, n.scanStartedAt))
	}
	f.enqueuer.enqueued = nil
}

func TestEndToEnd_SingleMatchDeliveredOnce(t *testing.T) {
	f := newFixture(t)

	f.runFullCycle(t)

	require.Len(t, f.ledger.rows, 1)
	row := f.ledger.rows[[2]int64{7, 42}]
	require.NotNil(t, row)
	assert.True(t, row.WasSent)
	assert.Equal(t, []int{1}, f.notifier.sent)

	require.NotNil(t, f.alerts.alert.LastSentAt)
	assert.Equal(t, f.clock, *f.alerts.alert.LastSentAt)
}

func TestDedup_RepeatedCyclesNotifyAtMostOnce(t *testing.T) {
	f := newFixture(t)

	// The job stays eligible across cycles (watermark fake keeps returning
	// it); the ledger must hold exactly one row and send exactly one email.
	for cycle := 0; cycle < 5; cycle++ {
		f.runFullCycle(t)
	}

	assert.Len(t, f.ledger.rows, 1)
	assert.Equal(t, []int{1}, f.notifier.sent)
	assert.True(t, f.ledger.rows[[2]int64{7, 42}].WasSent)
}

func TestZeroHits_AdvancesWatermarkWithoutEmail(t *testing.T) {
	f := newFixture(t)
	f.searcher.result = &search.Result{}

	require.NoError(t, f.pipeline.RunCycle(context.Background(), 7))

	assert.Empty(t, f.ledger.rows)
	assert.Empty(t, f.enqueuer.enqueued)
	require.NotNil(t, f.alerts.alert.LastSentAt)
	assert.Equal(t, f.clock, *f.alerts.alert.LastSentAt)
}

func TestSearchFailure_LeavesWatermarkUntouched(t *testing.T) {
	f := newFixture(t)
	f.searcher.err = errors.New("index unavailable")

	err := f.pipeline.RunCycle(context.Background(), 7)
	assert.Error(t, err)
	assert.Nil(t, f.alerts.alert.LastSentAt)
	assert.Empty(t, f.ledger.rows)
}

func TestPausedAlert_NoWatermarkAdvance(t *testing.T) {
	f := newFixture(t)
	f.alerts.alert.IsPaused = true

	require.NoError(t, f.pipeline.RunCycle(context.Background(), 7))

	assert.Nil(t, f.alerts.alert.LastSentAt)
	assert.Empty(t, f.ledger.rows)
	assert.Empty(t, f.enqueuer.enqueued)
}

func TestOptedOutUser_RecordsMatchWithoutEmail(t *testing.T) {
	f := newFixture(t)
	f.prefs.canSend = false

	require.NoError(t, f.pipeline.RunCycle(context.Background(), 7))

	require.Len(t, f.ledger.rows, 1)
	assert.False(t, f.ledger.rows[[2]int64{7, 42}].WasSent)
	assert.Empty(t, f.enqueuer.enqueued)
	assert.Empty(t, f.notifier.sent)
	require.NotNil(t, f.alerts.alert.LastSentAt)
}

func TestDeliveryFailure_KeepsMatchEligibleForRetry(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp timeout")

	require.NoError(t, f.pipeline.RunCycle(context.Background(), 7))
	require.Len(t, f.enqueuer.enqueued, 1)

	n := f.enqueuer.enqueued[0]
	err := f.pipeline.DeliverNotification(context.Background(), n.alertID, n.matchIDs, n.scanStartedAt)
	assert.Error(t, err)

	assert.False(t, f.ledger.rows[[2]int64{7, 42}].WasSent)
	assert.Nil(t, f.alerts.alert.LastSentAt, "watermark must not advance on failed delivery")

	// Retry with a working mailer succeeds and flips was_sent once.
	f.notifier.err = nil
	require.NoError(t, f.pipeline.DeliverNotification(context.Background(), n.alertID, n.matchIDs, n.scanStartedAt))
	assert.True(t, f.ledger.rows[[2]int64{7, 42}].WasSent)
	assert.Equal(t, []int{1}, f.notifier.sent)
}

func TestWatermark_AdvancesToScanStartNotSendTime(t *testing.T) {
	f := newFixture(t)

	scanTime := f.clock
	require.NoError(t, f.pipeline.RunCycle(context.Background(), 7))
	require.Len(t, f.enqueuer.enqueued, 1)

	// Delivery happens later; the watermark must still be the scan start.
	f.clock = f.clock.Add(10 * time.Minute)
	n := f.enqueuer.enqueued[0]
	require.NoError(t, f.pipeline.DeliverNotification(context.Background(), n.alertID, n.matchIDs, n.scanStartedAt))

	require.NotNil(t, f.alerts.alert.LastSentAt)
	assert.Equal(t, scanTime, *f.alerts.alert.LastSentAt)
}

func TestWatermark_Monotonic(t *testing.T) {
	f := newFixture(t)
	f.searcher.result = &search.Result{}

	require.NoError(t, f.pipeline.RunCycle(context.Background(), 7))
	first := *f.alerts.alert.LastSentAt

	f.clock = f.clock.Add(time.Hour)
	require.NoError(t, f.pipeline.RunCycle(context.Background(), 7))
	second := *f.alerts.alert.LastSentAt

	assert.True(t, second.After(first) || second.Equal(first))
}

func TestDeletedAlert_CycleIsANoOp(t *testing.T) {
	f := newFixture(t)
	f.alerts.alert = nil
	f.alerts.owner = nil

	require.NoError(t, f.pipeline.RunCycle(context.Background(), 99))
	assert.Empty(t, f.ledger.rows)
}
