// Package provider defines the booking provider adapter used by the sync
// pipeline (dump URLs) and by the query fallback (live lookups).
package provider

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/document"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
)

// Capability names one provider feature.
type Capability string

// Known capabilities.
const (
	CapHotelDump     Capability = "hotel_dump"
	CapRegionDump    Capability = "region_dump"
	CapLiveHotelName Capability = "live_hotel_name"
	CapLiveRegion    Capability = "live_hotels_by_region"
	CapLiveProvince  Capability = "live_province"
)

// Capabilities is the set of features an adapter offers.
type Capabilities map[Capability]bool

// Has reports whether c is offered.
func (c Capabilities) Has(want Capability) bool { return c[want] }

// DumpCapability maps a dump kind onto its capability.
func DumpCapability(kind job.Kind) Capability {
	if kind == job.KindRegion {
		return CapRegionDump
	}
	return CapHotelDump
}

// DumpRequest asks for the current bulk export of one kind.
type DumpRequest struct {
	Kind     job.Kind
	Country  string
	Language string
}

// Adapter is one booking provider. Methods map to versioned provider
// endpoints; a method whose capability is missing returns *UnsupportedError.
type Adapter interface {
	Name() string
	Capabilities() Capabilities
	// DumpURL resolves the download URL of the current dump.
	DumpURL(ctx context.Context, req DumpRequest) (string, error)
	// HotelsByName is the live name autocomplete.
	HotelsByName(ctx context.Context, name, language string, limit int) ([]document.Document, error)
	// HotelsByRegion lists hotels of one region.
	HotelsByRegion(ctx context.Context, regionID string, limit int) ([]document.Document, error)
	// Provinces looks up state and city regions by name.
	Provinces(ctx context.Context, name, language string, limit int) ([]document.Document, error)
}

// UnsupportedError reports a capability the provider does not offer.
type UnsupportedError struct {
	Provider   string
	Capability Capability
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s not supported", e.Provider, e.Capability)
}

// Unwrap lets errors.Is match domain.ErrUnsupported.
func (e *UnsupportedError) Unwrap() error { return domain.ErrUnsupported }

// Unsupported is a shorthand constructor.
func Unsupported(provider string, c Capability) error {
	return &UnsupportedError{Provider: provider, Capability: c}
}
