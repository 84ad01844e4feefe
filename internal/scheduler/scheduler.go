package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/felicity-dev/felicity/internal/models"
	"github.com/felicity-dev/felicity/internal/services"
	"gorm.io/gorm"
)

// maxBackoff caps the delay between delivery attempts.
const maxBackoff = 10 * time.Minute

type Options struct {
	Interval    time.Duration
	Batch       int
	MaxAttempts int
}

// Dispatcher drains the notification outbox on a fixed interval.
type Dispatcher struct {
	db       *gorm.DB
	mailer   services.Mailer
	webhooks services.WebhookSender
	reporter services.Reporter
	opts     Options
	now      func() time.Time

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewDispatcher(database *gorm.DB, mailer services.Mailer, webhooks services.WebhookSender, reporter services.Reporter, opts Options) *Dispatcher {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Batch <= 0 {
		opts.Batch = 20
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}

	return &Dispatcher{
		db:       database,
		mailer:   mailer,
		webhooks: webhooks,
		reporter: reporter,
		opts:     opts,
		now:      time.Now,
	}
}

// Start releases claims left behind by a previous process and begins polling.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return nil
	}

	log.Println("Starting notification dispatcher...")

	res := d.db.Model(&models.Notification{}).
		Where("status = ?", models.NotificationSending).
		Update("status", models.NotificationPending)
	if res.Error != nil {
		return res.Error
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.done = make(chan struct{})
	d.running = true

	go d.run(d.ctx, d.done)

	log.Printf("Notification dispatcher started, recovered %d in-flight notifications", res.RowsAffected)
	return nil
}

// Stop halts polling and waits for the in-progress batch to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	log.Println("Stopping notification dispatcher...")
	d.cancel()
	done := d.done
	d.running = false
	d.mu.Unlock()

	<-done
	log.Println("Notification dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.RunOnce(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Failed to dispatch notifications: %v", err)
			}
		}
	}
}

// RunOnce claims and delivers one batch of due notifications. It returns the
// number delivered successfully.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	var due []models.Notification

	err := d.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.NotificationPending, d.now()).
		Order("id").
		Limit(d.opts.Batch).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	// A claimed row's outcome is written even after ctx is cancelled.
	settle := context.WithoutCancel(ctx)

	sent := 0
	for _, n := range due {
		if ctx.Err() != nil {
			break
		}

		claimed, err := d.claim(ctx, n.ID)
		if err != nil {
			return sent, err
		}
		if !claimed {
			continue
		}
		n.Attempts++

		if deliverErr := d.deliver(ctx, n); deliverErr != nil {
			d.fail(settle, n, deliverErr)
			continue
		}

		sentAt := d.now()
		if err := d.db.WithContext(settle).Model(&models.Notification{}).
			Where("id = ?", n.ID).
			Updates(map[string]interface{}{
				"status":     models.NotificationSent,
				"sent_at":    sentAt,
				"last_error": "",
			}).Error; err != nil {
			log.Printf("Failed to mark notification %d sent: %v", n.ID, err)
			continue
		}
		sent++
	}

	return sent, nil
}

// claim moves a notification from pending to sending. Only one dispatcher
// can win the claim for a given row.
func (d *Dispatcher) claim(ctx context.Context, id uint) (bool, error) {
	res := d.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status = ?", id, models.NotificationPending).
		Updates(map[string]interface{}{
			"status":   models.NotificationSending,
			"attempts": gorm.Expr("attempts + 1"),
		})
	return res.RowsAffected == 1, res.Error
}

func (d *Dispatcher) deliver(ctx context.Context, n models.Notification) error {
	switch n.Channel {
	case models.ChannelEmail:
		var msg services.EmailMessage
		if err := json.Unmarshal(n.Payload, &msg); err != nil {
			return fmt.Errorf("decode email payload: %w", err)
		}
		return d.mailer.Send(ctx, msg)
	case models.ChannelWebhook:
		var payload services.DiscordWebhookRequest
		if err := json.Unmarshal(n.Payload, &payload); err != nil {
			return fmt.Errorf("decode webhook payload: %w", err)
		}
		return d.webhooks.Send(ctx, n.Recipient, payload)
	}
	return fmt.Errorf("unsupported notification channel: %s", n.Channel)
}

func (d *Dispatcher) fail(ctx context.Context, n models.Notification, cause error) {
	updates := map[string]interface{}{"last_error": cause.Error()}

	if n.Attempts >= d.opts.MaxAttempts {
		updates["status"] = models.NotificationFailed
		log.Printf("Notification %d to %s failed permanently after %d attempts: %v", n.ID, n.Recipient, n.Attempts, cause)
		d.reporter.Error(cause, map[string]interface{}{
			"notification_id": n.ID,
			"channel":         n.Channel,
			"attempts":        n.Attempts,
		})
	} else {
		updates["status"] = models.NotificationPending
		updates["next_attempt_at"] = d.now().Add(d.backoff(n.Attempts))
		log.Printf("Notification %d attempt %d failed: %v", n.ID, n.Attempts, cause)
	}

	if err := d.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", n.ID).Updates(updates).Error; err != nil {
		log.Printf("Failed to record delivery failure for notification %d: %v", n.ID, err)
	}
}

func (d *Dispatcher) backoff(attempts int) time.Duration {
	delay := d.opts.Interval
	for i := 1; i < attempts && delay < maxBackoff; i++ {
		delay *= 2
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

// GetStatus returns current dispatcher status
func (d *Dispatcher) GetStatus() map[string]interface{} {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()

	status := map[string]interface{}{"running": running}

	var pending int64
	if err := d.db.Model(&models.Notification{}).Where("status = ?", models.NotificationPending).Count(&pending).Error; err != nil {
		log.Printf("Failed to count pending notifications: %v", err)
		status["error"] = "pending count unavailable"
		return status
	}

	status["pending"] = pending
	return status
}
