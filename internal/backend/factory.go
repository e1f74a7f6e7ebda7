package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mapesa/internal/amqp"
	"mapesa/internal/auth"
	"mapesa/internal/services"
	"mapesa/internal/storage"
)

// DefaultFactory implements the Factory interface. Every backend it builds
// shares one TagRepositoryHolder; a new backend replaces the held
// repository.
type DefaultFactory struct {
	logger *slog.Logger
	tags   *storage.TagRepositoryHolder
}

func NewFactory(logger *slog.Logger) *DefaultFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		tags:   &storage.TagRepositoryHolder{},
	}
}

// TagRepository returns the repository of the most recently created backend
func (f *DefaultFactory) TagRepository() (*storage.TagRepository, error) {
	return f.tags.GetOrCreate(nil)
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := storage.Open(ctx, config.Type.dialect(), config.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", config.Type, err)
	}

	tags, err := f.tags.ForceInitialize(db.Provider(), storage.WithLookupConcurrency(config.LookupConcurrency))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tag repository: %w", err)
	}
	transactions, err := storage.NewTransactionRepository(db.Provider())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize transaction repository: %w", err)
	}
	users, err := storage.NewUserRepository(db.Provider())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize user repository: %w", err)
	}

	b := &Backend{
		DB:           db,
		Tags:         tags,
		Transactions: transactions,
		Users:        users,

		TransactionService: services.NewTransactionService(transactions),
		Auth:               auth.NewService(users, config.BcryptCost),
	}

	// AMQP is optional: the API keeps working without events
	var events services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without tag events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			b.Events = client
			events = client
		}
	}

	b.TagService = services.NewTagService(tags, events, config.MaxLookupIDs)

	f.logger.Info("Initialized backend",
		"type", config.Type,
		"amqp_enabled", b.Events != nil)

	cleanup := func() error {
		var errs []error
		if err := b.TagService.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
		return errors.Join(errs...)
	}

	return &BackendResult{Backend: b, Cleanup: cleanup}, nil
}
