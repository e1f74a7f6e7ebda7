package backend

import (
	"context"

	"mapesa/internal/amqp"
	"mapesa/internal/auth"
	"mapesa/internal/services"
	"mapesa/internal/storage"
)

// Backend is everything a binary needs once storage is connected
type Backend struct {
	DB           *storage.DB
	Tags         *storage.TagRepository
	Transactions *storage.TransactionRepository
	Users        *storage.UserRepository

	// Events is nil when no broker is configured or reachable
	Events *amqp.Client

	TagService         *services.TagService
	TransactionService *services.TransactionService
	Auth               *auth.Service
}

type CleanupFunc func() error

type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	// AMQP is optional for the API and required by the worker
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	LookupConcurrency int
	MaxLookupIDs      int

	// BcryptCost of zero hashes at bcrypt.DefaultCost
	BcryptCost int
}

type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

func (bt BackendType) dialect() storage.Dialect {
	if bt == PostgresBackend {
		return storage.DialectPostgres
	}
	return storage.DialectSQLite
}
