package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
)

func TestUnsupportedError(t *testing.T) {
	err := fmt.Errorf("lookup: %w", Unsupported("ratehawk", CapLiveRegion))

	if !errors.Is(err, domain.ErrUnsupported) {
		t.Error("must match ErrUnsupported")
	}
	var ue *UnsupportedError
	if !errors.As(err, &ue) || ue.Provider != "ratehawk" {
		t.Fatalf("errors.As failed: %v", err)
	}
	if ue.Error() != "ratehawk: live_hotels_by_region not supported" {
		t.Errorf("message = %q", ue.Error())
	}
}

func TestDumpCapability(t *testing.T) {
	if DumpCapability(job.KindHotel) != CapHotelDump || DumpCapability(job.KindRegion) != CapRegionDump {
		t.Error("unexpected mapping")
	}
	caps := Capabilities{CapHotelDump: true}
	if !caps.Has(CapHotelDump) || caps.Has(CapRegionDump) {
		t.Error("Has mismatch")
	}
}
