package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"identityd/internal/model"
	"identityd/internal/store"
)

const emailColumns = `id, to_addr, from_addr, subject, html_body, text_body, template_id, template_data, status, attempts, last_attempt_at, scheduled_at, sent_at, error`

func (s *Store) EnqueueEmail(ctx context.Context, e model.QueuedEmail) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = model.EmailStatusPending
	}
	if e.ScheduledAt.IsZero() {
		e.ScheduledAt = time.Now().UTC()
	}

	data, err := json.Marshal(e.TemplateData)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO queued_emails (id, to_addr, from_addr, subject, html_body, text_body, template_id, template_data, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.To, e.From, e.Subject, e.HTMLBody, e.TextBody, e.TemplateID, data, e.Status, e.ScheduledAt)
	return err
}

func (s *Store) GetQueuedEmail(ctx context.Context, id string) (*model.QueuedEmail, error) {
	row := s.db.QueryRow(ctx, `SELECT `+emailColumns+` FROM queued_emails WHERE id = $1`, id)
	e, err := scanQueuedEmail(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return e, err
}

// ClaimDueEmails moves due rows to the sending state and returns them.
// The UPDATE doubles as a lease: SKIP LOCKED plus the status guard keep
// two processors from claiming the same row.
func (s *Store) ClaimDueEmails(ctx context.Context, limit int, now time.Time, maxAttempts int, retryDelay time.Duration) ([]model.QueuedEmail, error) {
	retryBefore := now.Add(-retryDelay)

	rows, err := s.db.Query(ctx, `
		UPDATE queued_emails
		SET status = 'sending'
		WHERE id IN (
			SELECT id FROM queued_emails
			WHERE (status = 'pending' AND scheduled_at <= $1)
			   OR (status = 'failed' AND attempts < $2 AND last_attempt_at <= $3)
			ORDER BY scheduled_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+emailColumns,
		now, maxAttempts, retryBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []model.QueuedEmail
	for rows.Next() {
		e, err := scanQueuedEmail(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, *e)
	}
	return claimed, rows.Err()
}

func (s *Store) MarkEmailSent(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, `
		UPDATE queued_emails
		SET status = 'sent', sent_at = $1, error = NULL
		WHERE id = $2
	`, at, id)
}

func (s *Store) MarkEmailFailed(ctx context.Context, id string, at time.Time, sendErr string) error {
	return s.execOne(ctx, `
		UPDATE queued_emails
		SET status = 'failed', attempts = attempts + 1, last_attempt_at = $1, error = $2
		WHERE id = $3
	`, at, sendErr, id)
}

func scanQueuedEmail(row pgx.Row) (*model.QueuedEmail, error) {
	var (
		e    model.QueuedEmail
		data []byte
	)
	if err := row.Scan(&e.ID, &e.To, &e.From, &e.Subject, &e.HTMLBody, &e.TextBody, &e.TemplateID, &data, &e.Status, &e.Attempts, &e.LastAttemptAt, &e.ScheduledAt, &e.SentAt, &e.Error); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &e.TemplateData); err != nil {
			return nil, err
		}
	}
	return &e, nil
}
