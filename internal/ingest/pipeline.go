package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richd0tcom/yaku/internal/domain"
)

var (
	errNilAuthenticator = errors.New("ingest: nil authenticator")
	errNilFetcher       = errors.New("ingest: nil node fetcher")
	errNilPersister     = errors.New("ingest: nil persister")
)

// Pipeline performs one ingestion pass: login, fetch, stamp, print, persist.
type Pipeline struct {
	auth      Authenticator
	fetcher   NodeFetcher
	persister Persister
	consumer  domain.RecordConsumer
	now       func() time.Time
	logger    logrus.FieldLogger
}

type PipelineOption func(*Pipeline)

// WithConsumer sees each record just before it is persisted.
func WithConsumer(consumer domain.RecordConsumer) PipelineOption {
	return func(p *Pipeline) {
		p.consumer = consumer
	}
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func WithLogger(logger logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPipeline(auth Authenticator, fetcher NodeFetcher, persister Persister, opts ...PipelineOption) (*Pipeline, error) {
	if auth == nil {
		return nil, errNilAuthenticator
	}
	if fetcher == nil {
		return nil, errNilFetcher
	}
	if persister == nil {
		return nil, errNilPersister
	}
	p := &Pipeline{
		auth:      auth,
		fetcher:   fetcher,
		persister: persister,
		now:       time.Now,
		logger:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// RunOnce executes a single tick. Stage failures wrap domain.ErrAuth, domain.ErrFetch
// or domain.ErrPersist; nothing is persisted unless every earlier stage succeeded.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.Record, error) {
	token, err := p.auth.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuth, err)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: empty access token", domain.ErrAuth)
	}

	snapshot, err := p.fetcher.NodeParams(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}

	record := domain.BuildRecord(snapshot, p.now())

	if p.consumer != nil {
		if err := p.consumer.Process([]domain.Record{record}); err != nil {
			p.logger.WithError(err).Warn("record consumer failed")
		}
	}

	if err := p.persister.Persist(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersist, err)
	}
	return record, nil
}
