package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/richd0tcom/yaku/internal/domain"
)

// RecordPublisher hands records to a queue instead of writing them to the store directly.
type RecordPublisher struct {
	mq MessageQueue
}

func NewRecordPublisher(mq MessageQueue) *RecordPublisher {
	return &RecordPublisher{mq: mq}
}

func (p *RecordPublisher) Persist(ctx context.Context, record domain.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}
	if err := p.mq.Publish(ctx, data); err != nil {
		return fmt.Errorf("failed to publish record: %w", err)
	}
	return nil
}
