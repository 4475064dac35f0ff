package broker

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richd0tcom/yaku/internal/domain"
)

func TestChannelQueue_PublishConsume(t *testing.T) {
	q := NewChannelQueue(4)
	require.NoError(t, q.Subscribe())

	require.NoError(t, q.Publish(context.Background(), []byte("a")))
	require.NoError(t, q.Publish(context.Background(), []byte("b")))

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 2)
	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, func(b []byte) error {
			got <- string(b)
			return nil
		})
	}()

	assert.Equal(t, "a", <-got)
	assert.Equal(t, "b", <-got)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestChannelQueue_Close(t *testing.T) {
	q := NewChannelQueue(1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Publish(context.Background(), []byte("x")), ErrQueueClosed)
	assert.ErrorIs(t, q.Consume(context.Background(), func([]byte) error { return nil }), ErrQueueClosed)
}

func TestChannelQueue_PublishBlocksUntilDeadline(t *testing.T) {
	q := NewChannelQueue(1)
	require.NoError(t, q.Publish(context.Background(), []byte("fill")))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Publish(ctx, []byte("overflow")), context.DeadlineExceeded)
}

func TestRecordPublisher_Persist(t *testing.T) {
	q := NewChannelQueue(1)
	p := NewRecordPublisher(q)

	require.NoError(t, p.Persist(context.Background(), domain.Record{"Temperature": 22.3, "Date": 1700000000.5}))

	var back domain.Record
	require.NoError(t, json.Unmarshal(<-q.messages, &back))
	assert.Equal(t, domain.Record{"Temperature": 22.3, "Date": 1700000000.5}, back)

	assert.Error(t, p.Persist(context.Background(), domain.Record{"bad": math.NaN()}))
}

func TestChannelQueue_LogsHandlerErrors(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	q := NewChannelQueue(2)
	require.NoError(t, q.Publish(context.Background(), []byte("{bad")))
	require.NoError(t, q.Publish(context.Background(), []byte("ok")))

	ctx, cancel := context.WithCancel(context.Background())
	handled := make(chan string, 2)
	done := make(chan error, 1)
	go func() {
		done <- q.Consume(ctx, func(b []byte) error {
			handled <- string(b)
			if string(b) != "ok" {
				return errors.New("failed to unmarshal record")
			}
			return nil
		})
	}()

	assert.Equal(t, "{bad", <-handled)
	assert.Equal(t, "ok", <-handled)
	cancel()
	<-done

	var warned bool
	for _, e := range hook.AllEntries() {
		err, ok := e.Data["error"].(error)
		if e.Message == "Error processing message" && ok && err.Error() == "failed to unmarshal record" {
			warned = true
		}
	}
	assert.True(t, warned)
}
