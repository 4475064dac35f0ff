package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richd0tcom/yaku/internal/broker"
	"github.com/richd0tcom/yaku/internal/domain"
	"github.com/richd0tcom/yaku/internal/metrics"
)

const (
	defaultFlushInterval = 5 * time.Second

	// batches that failed to store are retried until this many records are held
	defaultMaxRetained = 1000
)

// Worker drains records from the message queue into the store in batches.
type Worker struct {
	store         domain.RecordStore
	consumer      domain.RecordConsumer
	workerCount   int
	batchSize     int
	flushInterval time.Duration
	maxRetained   int
	logger        logrus.FieldLogger
}

func NewWorker(store domain.RecordStore, consumer domain.RecordConsumer, workerCount, batchSize int, logger logrus.FieldLogger) *Worker {
	if workerCount <= 0 {
		workerCount = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Worker{
		store:         store,
		consumer:      consumer,
		workerCount:   workerCount,
		batchSize:     batchSize,
		flushInterval: defaultFlushInterval,
		maxRetained:   max(defaultMaxRetained, batchSize),
		logger:        logger,
	}
}

func (w *Worker) Start(ctx context.Context, mq broker.MessageQueue) error {
	if err := mq.Subscribe(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i := range w.workerCount {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.worker(ctx, workerID, mq)
		}(i)
	}

	wg.Wait()
	return nil
}

func (w *Worker) worker(ctx context.Context, workerID int, mq broker.MessageQueue) {
	log := w.logger.WithField("worker", workerID)
	log.Info("Worker started")
	defer log.Info("Worker stopped")

	incoming := make(chan domain.Record)
	handler := func(data []byte) error {
		record, err := domain.DecodeRecord(data)
		if err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		select {
		case incoming <- record:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		if err := mq.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Queue consume error")
		}
	}()

	batch := make([]domain.Record, 0, w.batchSize)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				// the run context is gone; give the final flush its own deadline
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := w.processBatch(flushCtx, batch); err != nil {
					log.Errorf("Dropping %d unstored records on shutdown", len(batch))
				}
				cancel()
			}
			return
		case record := <-incoming:
			metrics.IncRecordsReceived(1)
			batch = w.retain(log, append(batch, record))
			if len(batch) >= w.batchSize {
				batch = w.flush(ctx, batch)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				batch = w.flush(ctx, batch)
			}
		}
	}
}

// flush stores the batch and returns what is left to retry: nothing on success,
// the whole batch on failure.
func (w *Worker) flush(ctx context.Context, batch []domain.Record) []domain.Record {
	if err := w.processBatch(ctx, batch); err != nil {
		return batch
	}
	return batch[:0]
}

// retain drops the oldest records once more than maxRetained are waiting.
func (w *Worker) retain(log logrus.FieldLogger, batch []domain.Record) []domain.Record {
	excess := len(batch) - w.maxRetained
	if excess <= 0 {
		return batch
	}
	log.Errorf("Store unavailable, dropping %d oldest records", excess)
	return append(batch[:0], batch[excess:]...)
}

func (w *Worker) processBatch(ctx context.Context, batch []domain.Record) error {
	start := time.Now()

	if err := w.store.InsertBatch(ctx, batch); err != nil {
		w.logger.WithError(err).Errorf("Failed to store batch of %d records", len(batch))
		return err
	}
	metrics.IncRecordsStored(len(batch))

	if w.consumer != nil {
		if err := w.consumer.Process(batch); err != nil {
			w.logger.WithError(err).Warn("Failed to process batch in consumer")
		}
	}

	w.logger.Infof("Stored batch of %d records in %v", len(batch), time.Since(start))
	return nil
}
