package backend

import (
	"context"
	"errors"
	"fmt"

	"tracker/internal/log"
	"tracker/internal/storage"
	"tracker/internal/storage/bolt"
	"tracker/internal/storage/memory"
	"tracker/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case BoltBackend:
		result, err = f.createBoltBackend(config)
	case MemoryBackend:
		result = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.EphemeralSession {
		result.Session = memory.New()
	}

	f.logger.DebugContext(ctx, "Backend ready",
		log.FieldBackend, config.Type.String(),
		"ephemeral_session", config.EphemeralSession)

	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	db, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Debug("Initialized SQLite backend", log.FieldPath, config.SQLiteDBPath)

	return &BackendResult{
		Durable: db.Store(sqlite.NamespaceDurable),
		Session: db.Store(sqlite.NamespaceSession),
		Cleanup: db.Close,
	}, nil
}

func (f *DefaultFactory) createBoltBackend(config Config) (*BackendResult, error) {
	durable, err := bolt.Open(config.BoltDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bolt store: %w", err)
	}
	session, err := bolt.Open(config.BoltDBPath + ".session")
	if err != nil {
		durable.Close()
		return nil, fmt.Errorf("failed to initialize bolt session store: %w", err)
	}

	f.logger.Debug("Initialized bolt backend", log.FieldPath, config.BoltDBPath)

	return &BackendResult{
		Durable: durable,
		Session: session,
		Cleanup: func() error {
			return errors.Join(session.Close(), durable.Close())
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	f.logger.Debug("Initialized memory backend")

	return &BackendResult{
		Durable: memory.New(),
		Session: memory.New(),
	}
}

var (
	_ storage.Store = (*sqlite.Store)(nil)
	_ storage.Store = (*bolt.Store)(nil)
)
