package events

import (
	"context"
	"fmt"

	"github.com/helsingbuss/service-booking/internal/notify"
	"github.com/helsingbuss/service-booking/internal/platform/kafka"
)

// KafkaPublisher wraps domain payloads in CloudEvents and writes them to Kafka.
type KafkaPublisher struct {
	producer *kafka.Producer
}

// NewKafkaPublisher creates a publisher on top of a shared producer.
func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish writes data as eventType to topic, partitioned by key.
func (p *KafkaPublisher) Publish(ctx context.Context, topic, eventType, key string, data interface{}) error {
	ce, err := kafka.NewCloudEvent(Source, eventType, data)
	if err != nil {
		return err
	}
	return p.producer.PublishEventWithKey(ctx, topic, key, ce)
}

// KafkaNotificationQueue puts mail tasks on the notification topic.
type KafkaNotificationQueue struct {
	producer *kafka.Producer
}

// NewKafkaNotificationQueue creates a queue on top of a shared producer.
func NewKafkaNotificationQueue(producer *kafka.Producer) *KafkaNotificationQueue {
	return &KafkaNotificationQueue{producer: producer}
}

// Enqueue writes the task keyed by its reference so mails about one record
// stay ordered.
func (q *KafkaNotificationQueue) Enqueue(ctx context.Context, task notify.Task) error {
	ce, err := kafka.NewCloudEvent(Source, NotificationTask, task)
	if err != nil {
		return err
	}
	if err := q.producer.PublishEventWithKey(ctx, TopicNotificationTasks, task.Reference, ce); err != nil {
		return fmt.Errorf("enqueue %s notification: %w", task.Kind, err)
	}
	return nil
}
