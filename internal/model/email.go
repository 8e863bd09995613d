package model

import "time"

type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSending EmailStatus = "sending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// QueuedEmail is a transactional email awaiting delivery. Rows that
// exhaust their retry budget stay in the failed state so an operator
// can inspect them; they are never deleted automatically.
type QueuedEmail struct {
	ID            string
	To            string
	From          string
	Subject       string
	HTMLBody      string
	TextBody      string
	TemplateID    string
	TemplateData  map[string]string
	Status        EmailStatus
	Attempts      int
	LastAttemptAt *time.Time
	ScheduledAt   time.Time
	SentAt        *time.Time
	Error         *string
}
