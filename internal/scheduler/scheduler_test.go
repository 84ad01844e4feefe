package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felicity-dev/felicity/db"
	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/services"
	"github.com/felicity-dev/felicity/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []services.EmailMessage
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg services.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeWebhooks struct {
	urls []string
}

func (w *fakeWebhooks) Send(_ context.Context, url string, _ services.DiscordWebhookRequest) error {
	w.urls = append(w.urls, url)
	return nil
}

type fakeReporter struct {
	errs []error
}

func (r *fakeReporter) Error(err error, _ map[string]interface{}) { r.errs = append(r.errs, err) }
func (r *fakeReporter) Close()                                    {}

func TestRunOnceDeliversEachChannel(t *testing.T) {
	database := testutil.NewDB(t)
	outbox := services.NewOutbox(database)
	ctx := context.Background()

	require.NoError(t, outbox.EnqueueEmail(ctx, services.EmailMessage{To: "p@example.com", Subject: "Ticket"}))
	require.NoError(t, outbox.EnqueueWebhook(ctx, "https://hooks.example.com/x", services.DiscordWebhookRequest{}))

	mailer := &fakeMailer{}
	hooks := &fakeWebhooks{}
	d := NewDispatcher(database, mailer, hooks, &fakeReporter{}, Options{Interval: time.Second})
	d.now = func() time.Time { return time.Now().Add(time.Second) }

	sent, err := d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Ticket", mailer.sent[0].Subject)
	assert.Equal(t, []string{"https://hooks.example.com/x"}, hooks.urls)

	var rows []models.Notification
	require.NoError(t, database.Find(&rows).Error)
	for _, n := range rows {
		assert.Equal(t, models.NotificationSent, n.Status)
		assert.Equal(t, 1, n.Attempts)
		assert.NotNil(t, n.SentAt)
	}

	// already sent rows are not delivered again
	sent, err = d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestFailedDeliveryRetriesWithBackoffThenFails(t *testing.T) {
	database := testutil.NewDB(t)
	ctx := context.Background()
	require.NoError(t, services.NewOutbox(database).EnqueueEmail(ctx, services.EmailMessage{To: "p@example.com"}))

	mailer := &fakeMailer{err: errors.New("smtp down")}
	reporter := &fakeReporter{}
	d := NewDispatcher(database, mailer, &fakeWebhooks{}, reporter, Options{Interval: time.Second, MaxAttempts: 3})

	clock := time.Now().Add(time.Second)
	d.now = func() time.Time { return clock }

	_, err := d.RunOnce(ctx)
	require.NoError(t, err)

	var n models.Notification
	require.NoError(t, database.First(&n).Error)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, 1, n.Attempts)
	assert.Equal(t, "smtp down", n.LastError)

	// not yet due: the first backoff is one interval
	_, err = d.RunOnce(ctx)
	require.NoError(t, err)
	require.NoError(t, database.First(&n).Error)
	assert.Equal(t, 1, n.Attempts)

	for i := 0; i < 2; i++ {
		clock = clock.Add(time.Hour)
		_, err = d.RunOnce(ctx)
		require.NoError(t, err)
	}

	require.NoError(t, database.First(&n).Error)
	assert.Equal(t, models.NotificationFailed, n.Status)
	assert.Equal(t, 3, n.Attempts)
	assert.Len(t, reporter.errs, 1)

	clock = clock.Add(time.Hour)
	_, err = d.RunOnce(ctx)
	require.NoError(t, err)
	require.NoError(t, database.First(&n).Error)
	assert.Equal(t, 3, n.Attempts, "failed notifications are never retried")
}

// cancellingMailer cancels the dispatch context while a delivery is in
// flight, the way Stop does mid-batch.
type cancellingMailer struct {
	cancel context.CancelFunc
	err    error
	sent   int
}

func (m *cancellingMailer) Send(_ context.Context, _ services.EmailMessage) error {
	m.cancel()
	if m.err != nil {
		return m.err
	}
	m.sent++
	return nil
}

func TestCancelledBatchStillRecordsOutcome(t *testing.T) {
	database := testutil.NewDB(t)
	outbox := services.NewOutbox(database)
	require.NoError(t, outbox.EnqueueEmail(context.Background(), services.EmailMessage{To: "a@example.com"}))
	require.NoError(t, outbox.EnqueueEmail(context.Background(), services.EmailMessage{To: "b@example.com"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := &cancellingMailer{cancel: cancel}
	d := NewDispatcher(database, mailer, &fakeWebhooks{}, &fakeReporter{}, Options{Interval: time.Second})
	d.now = func() time.Time { return time.Now().Add(time.Second) }

	sent, err := d.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, mailer.sent)

	var rows []models.Notification
	require.NoError(t, database.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, models.NotificationSent, rows[0].Status)
	// the rest of the batch is left for the next run, unclaimed
	assert.Equal(t, models.NotificationPending, rows[1].Status)
	assert.Zero(t, rows[1].Attempts)
}

func TestCancelledBatchStillRecordsFailure(t *testing.T) {
	database := testutil.NewDB(t)
	require.NoError(t, services.NewOutbox(database).EnqueueEmail(context.Background(), services.EmailMessage{To: "a@example.com"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mailer := &cancellingMailer{cancel: cancel, err: errors.New("smtp down")}
	d := NewDispatcher(database, mailer, &fakeWebhooks{}, &fakeReporter{}, Options{Interval: time.Second, MaxAttempts: 3})
	d.now = func() time.Time { return time.Now().Add(time.Second) }

	_, err := d.RunOnce(ctx)
	require.NoError(t, err)

	var n models.Notification
	require.NoError(t, database.First(&n).Error)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, 1, n.Attempts)
	assert.Equal(t, "smtp down", n.LastError)
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, nil, Options{Interval: time.Minute})

	assert.Equal(t, time.Minute, d.backoff(1))
	assert.Equal(t, 2*time.Minute, d.backoff(2))
	assert.Equal(t, 4*time.Minute, d.backoff(3))
	assert.Equal(t, maxBackoff, d.backoff(10))
}

func TestStartRecoversInFlightClaimsAndStops(t *testing.T) {
	database := testutil.NewDB(t)

	stuck := models.Notification{
		Channel:       models.ChannelEmail,
		Recipient:     "p@example.com",
		Payload:       []byte(`{"to":"p@example.com"}`),
		Status:        models.NotificationSending,
		NextAttemptAt: time.Now(),
	}
	require.NoError(t, database.Create(&stuck).Error)

	d := NewDispatcher(database, &fakeMailer{}, &fakeWebhooks{}, &fakeReporter{}, Options{Interval: time.Hour})
	require.NoError(t, d.Start())
	require.NoError(t, d.Start())

	var n models.Notification
	require.NoError(t, database.First(&n, stuck.ID).Error)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, true, d.GetStatus()["running"])

	d.Stop()
	d.Stop()
	assert.Equal(t, false, d.GetStatus()["running"])
}

func TestGetStatusReportsCountFailure(t *testing.T) {
	database := testutil.NewDB(t)
	d := NewDispatcher(database, &fakeMailer{}, &fakeWebhooks{}, &fakeReporter{}, Options{})

	status := d.GetStatus()
	assert.EqualValues(t, 0, status["pending"])
	assert.NotContains(t, status, "error")

	require.NoError(t, db.Close(database))

	status = d.GetStatus()
	assert.Contains(t, status, "error")
	assert.NotContains(t, status, "pending")
}
