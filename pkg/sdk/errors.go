package hoteldex

import "github.com/kailas-cloud/hoteldex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound       = domain.ErrNotFound
	ErrInvalidRequest = domain.ErrInvalidRequest
	ErrJobInFlight    = domain.ErrJobInFlight
	ErrUnsupported    = domain.ErrUnsupported
	ErrProvider       = domain.ErrProvider
	ErrConfiguration  = domain.ErrConfiguration

	// Stage failures of a sync job.
	ErrFetch      = domain.ErrFetch
	ErrDecompress = domain.ErrDecompress
	ErrFilter     = domain.ErrFilter
	ErrIndex      = domain.ErrIndex
)
