package domain

import "context"

type RecordStore interface {
	Insert(ctx context.Context, record Record) error
	InsertBatch(ctx context.Context, records []Record) error
	Latest(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// RecordQuery selects the most recent records of the collection.
type RecordQuery struct {
	Limit int `form:"limit" json:"limit"`
}

const (
	DefaultQueryLimit = 10
	MaxQueryLimit     = 100
)

// Normalize clamps the query limit into [1, MaxQueryLimit].
func (q RecordQuery) Normalize() RecordQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultQueryLimit
	}
	if q.Limit > MaxQueryLimit {
		q.Limit = MaxQueryLimit
	}
	return q
}
