package backend

import (
	"context"

	"custdash/internal/sources"
)

// Backend supplies the dashboard snapshot.
type Backend interface {
	sources.SnapshotFetcher
}

// Sink accepts ingested records. Only writable backends provide one.
type Sink interface {
	sources.CustomerWriter
	sources.TransactionWriter
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// HealthCheck reports backend details for the readiness endpoint.
type HealthCheck func(ctx context.Context) (map[string]any, error)

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	// Sink is nil for read-only backends.
	Sink    Sink
	Cleanup CleanupFunc
	// Check is nil when the backend has nothing to report.
	Check HealthCheck
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Memory backend specific
	DataFile string

	// SQLite specific
	SQLiteDBPath string

	// Remote specific
	RemoteBaseURL string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleCustomersSheet     string
	GoogleTransactionsSheet  string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	RemoteBackend BackendType = "remote"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, SheetsBackend, RemoteBackend:
		return true
	default:
		return false
	}
}

// Writable reports whether the backend accepts ingested records.
func (bt BackendType) Writable() bool {
	return bt == MemoryBackend || bt == SQLiteBackend
}
