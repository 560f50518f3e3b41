package backend

import (
	"context"

	"finledger/internal/amqp"
	"finledger/internal/storage"
)

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

// BackendResult is an opened record store together with the optional event
// publisher. Publisher is nil when AMQP is disabled or unreachable.
type BackendResult struct {
	Store     storage.Store
	Publisher *amqp.Client
	Cleanup   CleanupFunc
}

// Pinger is implemented by SQL-backed stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the store connection. Stores without a connection are always ready.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresDSN  string

	// Empty AMQPURL disables event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
