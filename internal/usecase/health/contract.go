package health

import "context"

// DBPinger checks index service availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker reports whether the provider has credentials.
type ProviderChecker interface {
	Name() string
	Configured() bool
}

// IndexCounter reports the document count of an index.
type IndexCounter interface {
	Count(ctx context.Context, name string) (int64, error)
}
