package load

import (
	"context"

	"github.com/kailas-cloud/hoteldex/internal/domain/document"
	domidx "github.com/kailas-cloud/hoteldex/internal/domain/index"
)

// IndexRepository creates indexes and upserts documents.
type IndexRepository interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, desc domidx.Descriptor) error
	// Upsert returns one rejection per document (nil when stored) or a
	// transport error that aborts the load.
	Upsert(ctx context.Context, name string, docs []document.Document) ([]error, error)
}
