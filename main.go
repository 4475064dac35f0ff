package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richd0tcom/yaku/core/consumer"
	"github.com/richd0tcom/yaku/core/server"
	"github.com/richd0tcom/yaku/internal/broker"
	"github.com/richd0tcom/yaku/internal/config"
	"github.com/richd0tcom/yaku/internal/db"
	"github.com/richd0tcom/yaku/internal/ingest"
	"github.com/richd0tcom/yaku/internal/logging"
	"github.com/richd0tcom/yaku/internal/metrics"
	"github.com/richd0tcom/yaku/internal/rainmaker"
)

// batches the in-process queue can hold per worker before Publish blocks
const channelQueueDepth = 4

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogJSON)
	metrics.Init()

	client, err := rainmaker.NewClient(cfg.RainMaker.BaseURL, cfg.RainMaker.Credentials, cfg.RainMaker.NodeID,
		rainmaker.WithTimeout(cfg.RainMaker.Timeout),
		rainmaker.WithParamGroup(cfg.RainMaker.ParamGroup),
		rainmaker.WithTokenReuse(cfg.RainMaker.ReuseToken),
	)
	if err != nil {
		logger.Fatalf("Failed to create RainMaker client: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checkNode(ctx, client, logger)

	mongoClient, err := db.NewMongoConnection(cfg.Mongo.URI)
	if err != nil {
		logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	recordConsumer := consumer.NewLogConsumer(cfg.Mongo.Collection, logger)

	options := []server.ConfigOption{
		server.WithMongoDB(mongoClient, cfg.Mongo.Database, cfg.Mongo.Collection),
		server.WithPort(cfg.Port),
		server.WithLogger(logger),
	}

	var persister ingest.Persister
	pipelineOpts := []ingest.PipelineOption{ingest.WithLogger(logger)}

	switch cfg.QueueMode {
	case config.QueueModeKafka:
		mq, err := broker.NewKafkaQueue(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Fatalf("Failed to create Kafka queue: %v", err)
		}
		persister = broker.NewRecordPublisher(mq)
		// the worker prints records once they are stored
		options = append(options,
			server.WithMessageQueue(mq),
			server.WithConsumer(recordConsumer),
			server.WithWorkerConfig(cfg.WorkerCount, cfg.BatchSize),
		)
	case config.QueueModeChannel:
		mq := broker.NewChannelQueue(cfg.BatchSize * cfg.WorkerCount * channelQueueDepth)
		persister = broker.NewRecordPublisher(mq)
		options = append(options,
			server.WithMessageQueue(mq),
			server.WithConsumer(recordConsumer),
			server.WithWorkerConfig(cfg.WorkerCount, cfg.BatchSize),
		)
	default:
		store, err := db.NewDialingStore(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			logger.Fatalf("Failed to create record store: %v", err)
		}
		persister = store
		pipelineOpts = append(pipelineOpts, ingest.WithConsumer(recordConsumer))
	}

	pipeline, err := ingest.NewPipeline(client, client, persister, pipelineOpts...)
	if err != nil {
		logger.Fatalf("Failed to create pipeline: %v", err)
	}
	scheduler := ingest.NewScheduler(pipeline, cfg.PollInterval, cfg.FailFast, logger)

	srv, err := server.NewServer(append(options, server.WithScheduler(scheduler))...)
	if err != nil {
		logger.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received...")
		cancel()
	}()

	runErr := srv.Start(ctx)

	if err := srv.Close(); err != nil {
		logger.WithError(err).Warn("Error during shutdown")
	}
	if runErr != nil {
		logger.Fatalf("Server error: %v", runErr)
	}
	logger.Info("Server shutdown complete")
}

// checkNode warns when the configured node is not associated with the account.
func checkNode(ctx context.Context, client *rainmaker.Client, logger logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	token, err := client.Login(ctx)
	if err != nil {
		logger.WithError(err).Warn("Could not log in to list nodes")
		return
	}
	nodes, err := client.ListNodes(ctx, token)
	if err != nil {
		logger.WithError(err).Warn("Could not list nodes")
		return
	}
	if !slices.Contains(nodes, client.NodeID()) {
		logger.WithField("nodes", nodes).Warnf("Node %s is not associated with this account", client.NodeID())
	}
}
