package db

import (
	"context"
	"fmt"

	"github.com/richd0tcom/yaku/internal/domain"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// DialingStore opens a fresh client for every Persist call and releases it before
// returning, whether or not the insert succeeded.
type DialingStore struct {
	uri        string
	database   string
	collection string
	connect    func(uri string) (*mongo.Client, error)
}

func NewDialingStore(uri, database, collection string) (*DialingStore, error) {
	if uri == "" {
		return nil, ErrEmptyURI
	}
	return &DialingStore{
		uri:        uri,
		database:   database,
		collection: collection,
		connect:    dialMongo,
	}, nil
}

// Persist connects, inserts one document and disconnects. The insert runs under
// ctx, so the tick's deadline also bounds server selection.
func (d *DialingStore) Persist(ctx context.Context, record domain.Record) (err error) {
	client, err := d.connect(d.uri)
	if err != nil {
		return err
	}

	store := NewMongoRecordStore(client, d.database, d.collection)
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("disconnect: %w", cerr)
		}
	}()

	return store.Insert(ctx, record)
}
