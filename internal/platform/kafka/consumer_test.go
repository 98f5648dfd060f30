package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedReader returns the queued results in order, then blocks until the
// context ends.
type scriptedReader struct {
	mu        sync.Mutex
	results   []fetchResult
	fetches   int
	committed []int64
}

type fetchResult struct {
	msg kafkago.Message
	err error
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	r.fetches++
	if len(r.results) > 0 {
		next := r.results[0]
		r.results = r.results[1:]
		r.mu.Unlock()
		return next.msg, next.err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error { return nil }

func (r *scriptedReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func newTestConsumer(reader messageReader) *Consumer {
	return &Consumer{
		reader:     reader,
		logger:     zap.NewNop(),
		retryDelay: time.Millisecond,
		maxBackoff: 4 * time.Millisecond,
	}
}

func TestConsume_KeepsRunningAfterFetchErrors(t *testing.T) {
	brokerDown := errors.New("dial tcp: connection refused")
	reader := &scriptedReader{results: []fetchResult{
		{err: brokerDown},
		{err: brokerDown},
		{err: brokerDown},
		{msg: kafkago.Message{Offset: 7, Value: []byte("task")}},
	}}
	c := newTestConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled sync.WaitGroup
	handled.Add(1)
	done := make(chan error, 1)
	go func() {
		done <- c.Consume(ctx, func(_ context.Context, msg kafkago.Message) error {
			assert.Equal(t, int64(7), msg.Offset)
			handled.Done()
			return nil
		})
	}()

	handled.Wait()
	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []int64{7}, reader.commits())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}

func TestConsume_RetriesFailedHandlerBeforeCommit(t *testing.T) {
	reader := &scriptedReader{results: []fetchResult{
		{msg: kafkago.Message{Offset: 3}},
	}}
	c := newTestConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- c.Consume(ctx, func(context.Context, kafkago.Message) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls < 3 {
				return errors.New("smtp relay down")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return len(reader.commits()) == 1 }, time.Second, time.Millisecond)
	mu.Lock()
	assert.Equal(t, 3, calls)
	mu.Unlock()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSleep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
}
