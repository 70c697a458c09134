package dump

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	dumprec "github.com/kailas-cloud/hoteldex/internal/domain/dump"
	"github.com/kailas-cloud/hoteldex/internal/logger"
)

// ctxCheckEvery is how many lines pass between context checks.
const ctxCheckEvery = 4096

// FilterStats are the line counters of one filter run.
// Matched + Malformed <= Total, with equality when every line parses.
type FilterStats struct {
	Total     int64 `json:"total"`
	Matched   int64 `json:"matched"`
	Malformed int64 `json:"malformed"`
}

// Filter keeps the dump lines of one country.
type Filter struct {
	chunkSize int
}

// NewFilter creates a filter. chunkSize <= 0 selects DefaultChunkSize.
func NewFilter(chunkSize int) *Filter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Filter{chunkSize: chunkSize}
}

// Filter copies the lines of src whose country code equals country
// (case-insensitive) to dest, byte for byte. Blank lines are ignored; lines
// that are not JSON objects are counted as malformed. Only I/O failures are
// returned, wrapping domain.ErrFilter.
func (f *Filter) Filter(ctx context.Context, src, dest, country string) (FilterStats, error) {
	var stats FilterStats
	if country == "" {
		return stats, fmt.Errorf("%w: country code is required", domain.ErrFilter)
	}

	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return stats, fmt.Errorf("%w: open %s: %w", domain.ErrFilter, src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return stats, fmt.Errorf("%w: create %s: %w", domain.ErrFilter, dest, err)
	}
	w := bufio.NewWriterSize(out, f.chunkSize)

	err = f.scan(ctx, bufio.NewReaderSize(in, f.chunkSize), w, country, &stats)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return stats, fmt.Errorf("%w: %w", domain.ErrFilter, err)
	}

	logger.FromContext(ctx).Info("dump filtered",
		zap.String("country", country),
		zap.Int64("total", stats.Total),
		zap.Int64("matched", stats.Matched),
		zap.Int64("malformed", stats.Malformed),
	)
	return stats, nil
}

func (f *Filter) scan(ctx context.Context, r *bufio.Reader, w io.Writer, country string, stats *FilterStats) error {
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err //nolint:wrapcheck // wrapped by caller
			}
		}

		line, readErr := r.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read: %w", readErr)
		}
		line = bytes.TrimSuffix(line, []byte("\n"))

		if len(bytes.TrimSpace(line)) > 0 {
			stats.Total++
			code, err := dumprec.CountryOf(line)
			switch {
			case err != nil:
				stats.Malformed++
			case dumprec.SameCountry(code, country):
				stats.Matched++
				if _, err := w.Write(append(line, '\n')); err != nil {
					return fmt.Errorf("write: %w", err)
				}
			}
		}

		if readErr != nil { // io.EOF
			return nil
		}
	}
}
