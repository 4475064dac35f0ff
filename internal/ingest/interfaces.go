package ingest

import (
	"context"

	"github.com/richd0tcom/yaku/internal/domain"
)

//go:generate mockgen -destination=mock_ingest.go -package=ingest github.com/richd0tcom/yaku/internal/ingest Authenticator,NodeFetcher,Persister

// Authenticator exchanges stored credentials for an access token.
type Authenticator interface {
	Login(ctx context.Context) (string, error)
}

// NodeFetcher returns one parameter group of the configured node.
type NodeFetcher interface {
	NodeParams(ctx context.Context, token string) (map[string]any, error)
}

// Persister appends a record to its destination.
type Persister interface {
	Persist(ctx context.Context, record domain.Record) error
}
