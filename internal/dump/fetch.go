// Package dump implements the streaming stages of the sync pipeline:
// download, decompression and country filtering.
package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/domain/job"
	"github.com/kailas-cloud/hoteldex/internal/logger"
	"github.com/kailas-cloud/hoteldex/internal/metrics"
)

// DefaultChunkSize is the copy buffer used by every stage.
const DefaultChunkSize = 32 * 1024

const progressInterval = 5 * time.Second

// Fetcher streams a remote dump to a local file.
type Fetcher struct {
	client    *http.Client
	chunkSize int
}

// NewFetcher creates a fetcher with a client-level timeout. chunkSize <= 0
// selects DefaultChunkSize.
func NewFetcher(timeout time.Duration, chunkSize int) *Fetcher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		chunkSize: chunkSize,
	}
}

// Fetch downloads rawURL into dest and returns the number of bytes written.
// dest is created (or truncated); a partial file is left for the caller to
// clean up. Every failure wraps domain.ErrFetch.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("%w: new request: %w", domain.ErrFetch, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// the error text ends up on the job snapshot
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = job.RedactURL(ue.URL)
		}
		return 0, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("%w: status %d: %s", domain.ErrFetch, resp.StatusCode, string(body))
	}

	out, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return 0, fmt.Errorf("%w: create %s: %w", domain.ErrFetch, dest, err)
	}

	pr := &progressReader{
		reader: resp.Body,
		total:  resp.ContentLength,
		name:   filepath.Base(dest),
		log:    logger.FromContext(ctx),
	}
	written, err := io.CopyBuffer(plainWriter{out}, pr, make([]byte, f.chunkSize))
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return written, fmt.Errorf("%w: write %s after %d bytes: %w", domain.ErrFetch, dest, written, err)
	}

	logger.FromContext(ctx).Info("dump downloaded",
		zap.String("file", filepath.Base(dest)),
		zap.Int64("bytes", written),
	)
	return written, nil
}

// progressReader logs download progress and feeds the byte counter.
type progressReader struct {
	reader  io.Reader
	total   int64
	current int64
	name    string
	log     *zap.Logger
	lastLog time.Time
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	metrics.SyncDownloadBytes.Add(float64(n))

	if time.Since(pr.lastLog) > progressInterval {
		pr.lastLog = time.Now()
		fields := []zap.Field{zap.String("file", pr.name), zap.Int64("mb", pr.current/1024/1024)}
		if pr.total > 0 {
			fields = append(fields, zap.Float64("pct", float64(pr.current)/float64(pr.total)*100))
		}
		pr.log.Debug("download progress", fields...)
	}

	return n, err //nolint:wrapcheck // io.EOF must reach io.Copy unwrapped
}

// plainWriter hides *os.File's ReadFrom so io.CopyBuffer uses the chunk buffer.
type plainWriter struct{ io.Writer }
