package query

import (
	"context"

	"github.com/kailas-cloud/hoteldex/internal/domain/document"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/request"
	"github.com/kailas-cloud/hoteldex/internal/domain/search/result"
	"github.com/kailas-cloud/hoteldex/internal/provider"
)

// Index is the read side of the index repository.
type Index interface {
	Search(ctx context.Context, req request.Request) ([]result.Hit, error)
	Get(ctx context.Context, name, id string) (document.Document, error)
}

// Live is the provider's live lookup surface.
type Live interface {
	Name() string
	Capabilities() provider.Capabilities
	HotelsByName(ctx context.Context, name, language string, limit int) ([]document.Document, error)
	HotelsByRegion(ctx context.Context, regionID string, limit int) ([]document.Document, error)
	Provinces(ctx context.Context, name, language string, limit int) ([]document.Document, error)
}
