package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helsingbuss/service-booking/internal/notify"
	"github.com/helsingbuss/service-booking/internal/platform/kafka"
)

type sent struct{ to, subject string }

type fakeDispatcher struct {
	err  error
	sent []sent
}

func (f *fakeDispatcher) Send(_ context.Context, to, subject, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{to, subject})
	return nil
}

func newTestConsumer(d *fakeDispatcher) *NotificationConsumer {
	return &NotificationConsumer{dispatcher: d, logger: zap.NewNop()}
}

func taskMessage(t *testing.T, eventType string, task notify.Task) kafkago.Message {
	t.Helper()
	ce, err := kafka.NewCloudEvent(Source, eventType, task)
	require.NoError(t, err)
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	return kafkago.Message{Value: raw}
}

func TestHandleMessage_DispatchesTask(t *testing.T) {
	d := &fakeDispatcher{}
	c := newTestConsumer(d)

	task := notify.NewTask(notify.KindOfferSent, "anna@example.se", "Offert HB25007", "body", "HB25007")
	require.NoError(t, c.handleMessage(context.Background(), taskMessage(t, NotificationTask, task)))

	require.Len(t, d.sent, 1)
	assert.Equal(t, "anna@example.se", d.sent[0].to)
	assert.Equal(t, "Offert HB25007", d.sent[0].subject)
}

func TestHandleMessage_DispatcherFailureIsReturned(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("broker down")}
	c := newTestConsumer(d)

	task := notify.NewTask(notify.KindOfferSent, "anna@example.se", "s", "b", "HB25007")
	err := c.handleMessage(context.Background(), taskMessage(t, NotificationTask, task))
	assert.Error(t, err)
}

func TestHandleMessage_SkipsUnusableMessages(t *testing.T) {
	d := &fakeDispatcher{}
	c := newTestConsumer(d)

	assert.NoError(t, c.handleMessage(context.Background(), kafkago.Message{Value: []byte("{not json")}))
	assert.NoError(t, c.handleMessage(context.Background(),
		taskMessage(t, OfferSent, notify.NewTask(notify.KindOfferSent, "a@b.se", "s", "b", "r"))))
	assert.NoError(t, c.handleMessage(context.Background(),
		taskMessage(t, NotificationTask, notify.NewTask(notify.KindOfferSent, " ", "s", "b", "r"))))
	assert.Empty(t, d.sent)
}
