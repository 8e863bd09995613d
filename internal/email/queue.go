package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"identityd/internal/i18n"
	"identityd/internal/model"
	"identityd/internal/store"
)

type QueueConfig struct {
	From         string
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryDelay   time.Duration
}

func (c *QueueConfig) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Minute
	}
}

// Queue is the durable, at-least-once delivery path for transactional
// email. Enqueue inserts a pending row and returns immediately; the
// processor drains the queue in the background and retries failures
// with a fixed backoff until the attempt budget runs out. Exhausted
// rows stay in the failed state for operator inspection.
type Queue struct {
	store  store.Store
	sender Sender
	cfg    QueueConfig
	log    *slog.Logger
	now    func() time.Time
}

func NewQueue(st store.Store, sender Sender, cfg QueueConfig, log *slog.Logger) *Queue {
	cfg.applyDefaults()
	return &Queue{
		store:  st,
		sender: sender,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// Enqueue resolves the template for the recipient's locale and inserts
// a pending row. The locale rides in under the "locale" key of data;
// absent that the default locale is used.
func (q *Queue) Enqueue(ctx context.Context, to, templateID string, data map[string]string) error {
	locale := i18n.DefaultLocale
	if data != nil && data["locale"] != "" {
		locale = i18n.NormalizeLocale(data["locale"])
	}

	content, ok := i18n.EmailTemplate(locale, templateID)
	if !ok {
		return fmt.Errorf("unknown email template %q", templateID)
	}

	return q.store.EnqueueEmail(ctx, model.QueuedEmail{
		To:           to,
		From:         q.cfg.From,
		Subject:      content.Subject,
		HTMLBody:     content.HTML,
		TextBody:     content.Text,
		TemplateID:   templateID,
		TemplateData: data,
		Status:       model.EmailStatusPending,
		ScheduledAt:  q.now().UTC(),
	})
}

// ProcessOnce claims one batch of due rows and attempts delivery.
// It returns the number of rows it processed.
func (q *Queue) ProcessOnce(ctx context.Context) (int, error) {
	due, err := q.store.ClaimDueEmails(ctx, q.cfg.BatchSize, q.now().UTC(), q.cfg.MaxAttempts, q.cfg.RetryDelay)
	if err != nil {
		return 0, fmt.Errorf("claim due emails: %w", err)
	}

	for _, e := range due {
		q.deliver(ctx, e)
	}
	return len(due), nil
}

func (q *Queue) deliver(ctx context.Context, e model.QueuedEmail) {
	subject := Render(e.Subject, e.TemplateData, false)
	htmlBody := Render(e.HTMLBody, e.TemplateData, true)
	textBody := Render(e.TextBody, e.TemplateData, false)

	err := q.sender.Send(ctx, e.To, e.From, subject, htmlBody, textBody)
	now := q.now().UTC()
	if err != nil {
		q.log.Warn("email delivery failed", "id", e.ID, "template", e.TemplateID, "attempt", e.Attempts+1, "error", err)
		if markErr := q.store.MarkEmailFailed(ctx, e.ID, now, err.Error()); markErr != nil {
			q.log.Error("mark email failed", "id", e.ID, "error", markErr)
		}
		return
	}

	if markErr := q.store.MarkEmailSent(ctx, e.ID, now); markErr != nil {
		q.log.Error("mark email sent", "id", e.ID, "error", markErr)
	}
}

// Run drains the queue at the configured poll interval until the
// context is cancelled.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.ProcessOnce(ctx); err != nil {
				q.log.Error("queue pass failed", "error", err)
			}
		}
	}
}
