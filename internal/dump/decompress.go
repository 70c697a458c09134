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

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/kailas-cloud/hoteldex/internal/domain"
	"github.com/kailas-cloud/hoteldex/internal/logger"
)

// DefaultMaxWindow caps the zstd window so a hostile frame header cannot
// force a huge allocation.
const DefaultMaxWindow = 128 << 20

// Format is the detected archive format.
type Format string

// Archive formats.
const (
	FormatZstd  Format = "zstd"
	FormatGzip  Format = "gzip"
	FormatPlain Format = "plain"
)

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic = []byte{0x1F, 0x8B}
)

// Sniff detects the archive format from its leading bytes.
func Sniff(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return FormatZstd
	case bytes.HasPrefix(head, gzipMagic):
		return FormatGzip
	default:
		return FormatPlain
	}
}

// Decompressor expands a downloaded archive into a plain JSONL file.
type Decompressor struct {
	chunkSize int
	maxWindow uint64
}

// NewDecompressor creates a decompressor. Zero values select the defaults.
func NewDecompressor(chunkSize int, maxWindow uint64) *Decompressor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if maxWindow == 0 {
		maxWindow = DefaultMaxWindow
	}
	return &Decompressor{chunkSize: chunkSize, maxWindow: maxWindow}
}

// Decompress streams src into dest frame by frame with bounded memory and
// returns the number of decompressed bytes. Every failure wraps domain.ErrDecompress.
func (d *Decompressor) Decompress(ctx context.Context, src, dest string) (int64, error) {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", domain.ErrDecompress, src, err)
	}
	defer func() { _ = in.Close() }()

	br := bufio.NewReaderSize(in, d.chunkSize)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: read header: %w", domain.ErrDecompress, err)
	}
	format := Sniff(head)

	var r io.Reader
	switch format {
	case FormatZstd:
		dec, err := zstd.NewReader(br,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
			zstd.WithDecoderMaxWindow(d.maxWindow),
		)
		if err != nil {
			return 0, fmt.Errorf("%w: zstd: %w", domain.ErrDecompress, err)
		}
		defer dec.Close()
		r = dec
	case FormatGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return 0, fmt.Errorf("%w: gzip: %w", domain.ErrDecompress, err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	default:
		r = br
	}

	out, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return 0, fmt.Errorf("%w: create %s: %w", domain.ErrDecompress, dest, err)
	}

	written, err := io.CopyBuffer(plainWriter{out}, &ctxReader{ctx: ctx, r: r}, make([]byte, d.chunkSize))
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return written, fmt.Errorf("%w: %s after %d bytes: %w", domain.ErrDecompress, format, written, err)
	}

	logger.FromContext(ctx).Info("dump decompressed",
		zap.String("format", string(format)),
		zap.Int64("bytes", written),
	)
	return written, nil
}

// ctxReader stops a copy loop once the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err //nolint:wrapcheck // context error surfaces as-is
	}
	return c.r.Read(p) //nolint:wrapcheck // io.EOF must stay unwrapped
}
