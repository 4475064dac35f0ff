package server

import (
	"context"
	"sync"

	"github.com/richd0tcom/yaku/internal/domain"
)

type recordingStore struct {
	mu      sync.Mutex
	records []domain.Record
}

func (r *recordingStore) Insert(ctx context.Context, record domain.Record) error {
	return r.InsertBatch(ctx, []domain.Record{record})
}

func (r *recordingStore) InsertBatch(_ context.Context, records []domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

func (r *recordingStore) Latest(context.Context, int) ([]domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Record(nil), r.records...), nil
}

func (r *recordingStore) Close() error { return nil }

func (r *recordingStore) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
