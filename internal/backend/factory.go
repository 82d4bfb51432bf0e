package backend

import (
	"context"
	"fmt"
	"time"

	"custdash/internal/core"
	applog "custdash/internal/log"
	"custdash/internal/sources"
	"custdash/internal/sources/google"
	"custdash/internal/sources/memory"
	"custdash/internal/sources/remote"
	"custdash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
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
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		result, err = f.createSheetsBackend(ctx, config)
	case RemoteBackend:
		result, err = f.createRemoteBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	result.Backend = f.instrument(config.Type, result.Backend)
	return result, nil
}

// instrument logs every snapshot fetch with the backend name and an error
// category matching the backend's failure mode.
func (f *DefaultFactory) instrument(bt BackendType, next Backend) Backend {
	errorType := applog.ErrorTypeNetwork
	if bt == SQLiteBackend || bt == MemoryBackend {
		errorType = applog.ErrorTypeDatabase
	}
	return sources.FetcherFunc(func(ctx context.Context) (*core.Snapshot, error) {
		start := time.Now()
		snap, err := next.FetchSnapshot(ctx)
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			f.logger.ErrorContext(ctx, "Backend fetch failed",
				applog.FieldBackend, bt.String(),
				applog.FieldOperation, applog.OpFetch,
				applog.FieldError, err,
				"error_type", errorType,
				applog.FieldDuration, elapsed)
			return nil, err
		}
		f.logger.DebugContext(ctx, "Backend fetch completed",
			applog.FieldBackend, bt.String(),
			applog.FieldOperation, applog.OpFetch,
			applog.FieldDuration, elapsed)
		return snap, nil
	})
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataFile := config.DataFile
	if dataFile == "" {
		dataFile = "data/db.json"
	}

	store, err := memory.NewFromFile(dataFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend",
		applog.FieldBackend, MemoryBackend.String(),
		"data_file", dataFile)

	return &BackendResult{
		Backend: store,
		Sink:    store,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Sink:    repo,
		Cleanup: repo.Close,
		Check:   repo.Health,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:     config.GoogleSpreadsheetID,
		CustomersSheet:    config.GoogleCustomersSheet,
		TransactionsSheet: config.GoogleTransactionsSheet,
		CredentialsJSON:   config.GoogleServiceAccountJSON,
		CredentialsFile:   config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"customers_sheet", config.GoogleCustomersSheet,
		"transactions_sheet", config.GoogleTransactionsSheet)

	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	cli, err := remote.New(config.RemoteBaseURL, nil, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote backend: %w", err)
	}

	f.logger.Info("Initialized remote backend", "base_url", config.RemoteBaseURL)

	return &BackendResult{Backend: cli}, nil
}
