package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richd0tcom/yaku/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	DefaultDatabase   = "Yaku"
	DefaultCollection = "Nodo 1"

	connectTimeout    = 10 * time.Second
	pingTimeout       = 2 * time.Second
	disconnectTimeout = 5 * time.Second
)

var ErrEmptyURI = errors.New("db: empty mongo uri")

// dialMongo builds a client without waiting for the server; the first operation
// does the actual connect under its own context.
func dialMongo(uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, ErrEmptyURI
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetConnectTimeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	return client, nil
}

// MongoRecordStore appends node records to a single collection.
type MongoRecordStore struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
}

// NewMongoConnection returns a long-lived client and checks once that the server answers.
func NewMongoConnection(uri string) (*mongo.Client, error) {
	client, err := dialMongo(uri)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	// the driver connects lazily; a failed ping only means the server is not up yet
	_ = client.Ping(ctx, readpref.Primary())

	return client, nil
}

func NewMongoRecordStore(client *mongo.Client, database, collection string) *MongoRecordStore {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}

	db := client.Database(database)
	return &MongoRecordStore{
		client:     client,
		db:         db,
		collection: db.Collection(collection),
	}
}

// Insert appends one record as a new document. Records are never updated or deduplicated.
func (m *MongoRecordStore) Insert(ctx context.Context, record domain.Record) error {
	_, err := m.collection.InsertOne(ctx, toDocument(record))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (m *MongoRecordStore) InsertBatch(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = toDocument(r)
	}

	opts := options.InsertMany().SetOrdered(false)
	if _, err := m.collection.InsertMany(ctx, docs, opts); err != nil {
		return fmt.Errorf("insert %d records: %w", len(records), err)
	}
	return nil
}

// Latest returns up to limit records, newest Date first.
func (m *MongoRecordStore) Latest(ctx context.Context, limit int) ([]domain.Record, error) {
	q := domain.RecordQuery{Limit: limit}.Normalize()

	opts := options.Find().
		SetSort(bson.D{{Key: domain.DateField, Value: -1}}).
		SetLimit(int64(q.Limit)).
		SetProjection(bson.D{{Key: "_id", Value: 0}})

	cursor, err := m.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	records := make([]domain.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, domain.Record(d))
	}
	return records, nil
}

func (m *MongoRecordStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// toDocument hands the driver a plain map so the record keys become top level fields.
func toDocument(record domain.Record) bson.M {
	return bson.M(record)
}
