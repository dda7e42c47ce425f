package mailer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher pushes mail events onto the broker. Each publish opens its own
// connection; errors are logged and returned so callers can ignore them
// without breaking the request flow.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// PublishVerification enqueues a verification mail for recipient.
func (p *Publisher) PublishVerification(ctx context.Context, recipient, token string) error {
	return p.publish(ctx, Event{
		Kind:      KindVerification,
		Recipient: recipient,
		Token:     token,
		IssuedAt:  time.Now().UTC(),
	})
}

// PublishReset enqueues a password-reset mail for recipient.
func (p *Publisher) PublishReset(ctx context.Context, recipient, token string) error {
	return p.publish(ctx, Event{
		Kind:      KindPasswordReset,
		Recipient: recipient,
		Token:     token,
		IssuedAt:  time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, ev Event) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("mailer: dial broker failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("mailer: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so queued mail survives broker restarts. Declaration is
	// idempotent.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("mailer: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("mailer: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.IssuedAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("mailer: publish failed: %v", err)
		return err
	}
	return nil
}
