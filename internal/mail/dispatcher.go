// Package mail hands rendered messages to the outbound mailer.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Dispatcher delivers one message. Callers treat failures as retryable.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Message is the payload the external mailer consumes from the queue.
type Message struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queued_at"`
}

// AMQPDispatcher publishes messages as persistent JSON to a durable queue.
// The connection is opened lazily and reopened after a failure.
type AMQPDispatcher struct {
	url    string
	queue  string
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPDispatcher creates a dispatcher for the given broker and queue.
func NewAMQPDispatcher(url, queue string, logger *zap.Logger) *AMQPDispatcher {
	return &AMQPDispatcher{url: url, queue: queue, logger: logger}
}

// Send publishes the message to the mail queue.
func (d *AMQPDispatcher) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(Message{To: to, Subject: subject, Body: body, QueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ch, err := d.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		d.queue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         payload,
		},
	)
	if err != nil {
		d.reset()
		return fmt.Errorf("publish mail to %s: %w", d.queue, err)
	}

	d.logger.Debug("mail queued", zap.String("queue", d.queue), zap.String("subject", subject))
	return nil
}

// Close releases the broker connection.
func (d *AMQPDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn, d.ch = nil, nil
	return err
}

// channel returns an open channel, dialing when needed. Callers hold mu.
func (d *AMQPDispatcher) channel() (*amqp.Channel, error) {
	if d.ch != nil && !d.ch.IsClosed() {
		return d.ch, nil
	}
	d.reset()

	conn, err := amqp.Dial(d.url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(d.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", d.queue, err)
	}

	d.conn, d.ch = conn, ch
	return ch, nil
}

func (d *AMQPDispatcher) reset() {
	if d.ch != nil {
		_ = d.ch.Close()
	}
	if d.conn != nil {
		_ = d.conn.Close()
	}
	d.conn, d.ch = nil, nil
}

// LogDispatcher writes messages to the log instead of sending them. Used in
// development and when no broker is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a LogDispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Send logs the message and always succeeds.
func (d *LogDispatcher) Send(_ context.Context, to, subject, body string) error {
	d.logger.Info("mail",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
