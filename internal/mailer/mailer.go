// Package mailer is the outbound-mail collaborator. The core never sends
// mail itself: it publishes events to a durable RabbitMQ queue and moves
// on. A background consumer drains the queue; actual SMTP delivery is out
// of scope, so the consumer appends each message to logs/mail.log.
package mailer

import "time"

const queueName = "mail.outbound"

// Mail kinds carried in Event.Kind.
const (
	KindVerification  = "verification"
	KindPasswordReset = "password_reset"
)

// Event is the message placed on the mail queue. Token is the signed
// one-time token the recipient follows back to the service.
type Event struct {
	Kind      string    `json:"kind"`
	Recipient string    `json:"recipient"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
}
