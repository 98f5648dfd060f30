package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/helsingbuss/service-booking/internal/mail"
	"github.com/helsingbuss/service-booking/internal/notify"
	"github.com/helsingbuss/service-booking/internal/platform/kafka"
)

// NotificationConsumer delivers queued mail tasks through the dispatcher.
type NotificationConsumer struct {
	consumer   *kafka.Consumer
	dispatcher mail.Dispatcher
	logger     *zap.Logger
}

// NewNotificationConsumer creates a new NotificationConsumer.
func NewNotificationConsumer(
	brokers []string,
	groupID string,
	dispatcher mail.Dispatcher,
	logger *zap.Logger,
) *NotificationConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicNotificationTasks, logger)
	return &NotificationConsumer{
		consumer:   consumer,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start begins consuming notification tasks. This blocks until the context is cancelled.
func (c *NotificationConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *NotificationConsumer) Close() error {
	return c.consumer.Close()
}

func (c *NotificationConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from notification topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	if cloudEvent.Type != NotificationTask {
		c.logger.Debug("ignoring unhandled notification event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}

	var task notify.Task
	if err := cloudEvent.ParseData(&task); err != nil {
		c.logger.Error("failed to parse notification task data", zap.Error(err))
		return nil // Don't retry malformed data
	}
	return c.Deliver(ctx, task)
}

// Deliver sends one task. An error leaves the message uncommitted so it is
// delivered again.
func (c *NotificationConsumer) Deliver(ctx context.Context, task notify.Task) error {
	if !task.Deliverable() {
		c.logger.Warn("dropping notification without recipient",
			zap.String("kind", string(task.Kind)),
			zap.String("reference", task.Reference),
		)
		return nil
	}

	if err := c.dispatcher.Send(ctx, task.To, task.Subject, task.Body); err != nil {
		c.logger.Error("failed to dispatch notification",
			zap.String("task_id", task.ID),
			zap.String("kind", string(task.Kind)),
			zap.String("reference", task.Reference),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("notification dispatched",
		zap.String("task_id", task.ID),
		zap.String("kind", string(task.Kind)),
		zap.String("reference", task.Reference),
	)
	return nil
}
