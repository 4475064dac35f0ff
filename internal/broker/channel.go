package broker

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrQueueClosed = errors.New("broker: queue closed")

// ChannelQueue is an in-process MessageQueue backed by a buffered channel.
type ChannelQueue struct {
	messages chan []byte

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewChannelQueue(size int) *ChannelQueue {
	if size <= 0 {
		size = 1
	}
	return &ChannelQueue{
		messages: make(chan []byte, size),
		done:     make(chan struct{}),
	}
}

func (c *ChannelQueue) Publish(ctx context.Context, data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrQueueClosed
	}

	select {
	case c.messages <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ChannelQueue) Subscribe() error {
	return nil
}

func (c *ChannelQueue) Consume(ctx context.Context, handler func([]byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return ErrQueueClosed
		case data := <-c.messages:
			if err := handler(data); err != nil {
				logrus.WithError(err).Warn("Error processing message")
			}
		}
	}
}

func (c *ChannelQueue) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	return nil
}

// Pending reports how many published messages have not been consumed yet.
func (c *ChannelQueue) Pending() int {
	return len(c.messages)
}
