package kafka

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// HandlerFunc processes one message. Returning an error leaves the offset
// uncommitted so the message is fetched again.
type HandlerFunc func(ctx context.Context, msg kafkago.Message) error

// messageReader is the part of *kafkago.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	reader     messageReader
	logger     *zap.Logger
	retryDelay time.Duration
	maxBackoff time.Duration
}

// NewConsumer creates a consumer group reader for topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:        brokers,
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0,
			StartOffset:    kafkago.FirstOffset,
		}),
		logger:     logger.With(zap.String("topic", topic), zap.String("group_id", groupID)),
		retryDelay: 2 * time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Consume blocks until ctx is cancelled, calling handler for every message.
// Fetch errors are logged and retried with a doubling backoff, so a broker
// outage pauses consumption instead of ending it.
func (c *Consumer) Consume(ctx context.Context, handler HandlerFunc) error {
	backoff := c.retryDelay
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to fetch message, backing off",
				zap.Duration("retry_in", backoff),
				zap.Error(err),
			)
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}
		backoff = c.retryDelay

		if err := c.handleWithRetry(ctx, msg, handler); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to commit message",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// handleWithRetry re-runs the handler until it succeeds or ctx ends. A group
// reader cannot skip past an uncommitted offset, so retrying in place keeps
// ordering on the partition.
func (c *Consumer) handleWithRetry(ctx context.Context, msg kafkago.Message, handler HandlerFunc) error {
	for {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}
		c.logger.Warn("message handler failed, retrying",
			zap.Int64("offset", msg.Offset),
			zap.Duration("retry_in", c.retryDelay),
			zap.Error(err),
		)
		if err := sleep(ctx, c.retryDelay); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
