package server

import (
	"errors"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/richd0tcom/yaku/internal/broker"
	"github.com/richd0tcom/yaku/internal/db"
	"github.com/richd0tcom/yaku/internal/domain"
	"github.com/richd0tcom/yaku/internal/ingest"
)

type ServerConfig struct {
	Scheduler    *ingest.Scheduler
	MessageQueue broker.MessageQueue
	DataStore    domain.RecordStore
	Consumer     domain.RecordConsumer
	WorkerCount  int
	BatchSize    int
	Port         string
	Logger       logrus.FieldLogger
}

type ConfigOption func(*ServerConfig) error

func WithScheduler(s *ingest.Scheduler) ConfigOption {
	return func(config *ServerConfig) error {
		if s == nil {
			return errors.New("server: nil scheduler")
		}
		config.Scheduler = s
		return nil
	}
}

func WithMessageQueue(mq broker.MessageQueue) ConfigOption {
	return func(config *ServerConfig) error {
		config.MessageQueue = mq
		return nil
	}
}

func WithMongoDB(client *mongo.Client, database, collection string) ConfigOption {
	return func(config *ServerConfig) error {
		if client == nil {
			return errors.New("server: nil mongo client")
		}
		config.DataStore = db.NewMongoRecordStore(client, database, collection)
		return nil
	}
}

func WithDataStore(store domain.RecordStore) ConfigOption {
	return func(config *ServerConfig) error {
		config.DataStore = store
		return nil
	}
}

func WithConsumer(consumer domain.RecordConsumer) ConfigOption {
	return func(config *ServerConfig) error {
		config.Consumer = consumer
		return nil
	}
}

func WithWorkerConfig(workerCount, batchSize int) ConfigOption {
	return func(config *ServerConfig) error {
		config.WorkerCount = workerCount
		config.BatchSize = batchSize
		return nil
	}
}

// WithPort sets the HTTP port. An empty port disables the HTTP server.
func WithPort(port string) ConfigOption {
	return func(config *ServerConfig) error {
		config.Port = port
		return nil
	}
}

func WithLogger(logger logrus.FieldLogger) ConfigOption {
	return func(config *ServerConfig) error {
		if logger != nil {
			config.Logger = logger
		}
		return nil
	}
}
