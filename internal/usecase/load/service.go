// Package load writes a filtered dump file into a search index in pipelined batches.
package load

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/hoteldex/internal/domain/batch"
	"github.com/kailas-cloud/hoteldex/internal/domain/document"
	"github.com/kailas-cloud/hoteldex/internal/domain/dump"
	domidx "github.com/kailas-cloud/hoteldex/internal/domain/index"
	"github.com/kailas-cloud/hoteldex/internal/logger"
	"github.com/kailas-cloud/hoteldex/internal/metrics"
)

// Defaults used when the service is built with zero values.
const (
	DefaultBatchSize  = 1000
	DefaultMaxSamples = 10
	defaultLanguage   = "en"
)

// Stats summarises one load.
type Stats struct {
	Loaded  int64    `json:"loaded"`
	Failed  int64    `json:"failed"`
	Samples []string `json:"samples,omitempty"`
}

// Service loads JSONL dump files into an index.
type Service struct {
	repo       IndexRepository
	batchSize  int
	maxSamples int
}

// New creates a load service.
func New(repo IndexRepository) *Service {
	return &Service{repo: repo, batchSize: DefaultBatchSize, maxSamples: DefaultMaxSamples}
}

// WithBatchSize configures the number of documents per pipelined round trip.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// WithMaxSamples configures how many failures are kept as samples.
func (s *Service) WithMaxSamples(n int) *Service {
	if n >= 0 {
		s.maxSamples = n
	}
	return s
}

// EnsureIndex creates the index when it does not exist. An existing index is
// left untouched.
func (s *Service) EnsureIndex(ctx context.Context, desc domidx.Descriptor) error {
	ok, err := s.repo.Exists(ctx, desc.Name)
	if err != nil {
		return fmt.Errorf("ensure index %s: %w", desc.Name, err)
	}
	if ok {
		return nil
	}
	if err := s.repo.Create(ctx, desc); err != nil {
		return fmt.Errorf("ensure index %s: %w", desc.Name, err)
	}
	logger.FromContext(ctx).Info("index created", zap.String("index", desc.Name))
	return nil
}

// LoadOption tunes a single Load call.
type LoadOption func(*loadOptions)

type loadOptions struct {
	language string
}

// WithLanguage selects the display language for per-language names.
func WithLanguage(lang string) LoadOption {
	return func(o *loadOptions) {
		if lang != "" {
			o.language = lang
		}
	}
}

// Load reads path line by line, projects every record for the descriptor
// kind and upserts the documents in batches. Bad lines and rejected records
// are counted and sampled; only an unreadable file or an unreachable index
// is returned as an error.
func (s *Service) Load(ctx context.Context, path string, desc domidx.Descriptor, opts ...LoadOption) (Stats, error) {
	o := loadOptions{language: defaultLanguage}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Stats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	l := &loader{
		svc:    s,
		desc:   desc,
		report: dombatch.NewReport(s.maxSamples),
		docs:   make([]document.Document, 0, s.batchSize),
		lines:  make([]int, 0, s.batchSize),
	}

	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, readErr := r.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return l.stats(), fmt.Errorf("read %s: %w", path, readErr)
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			if err := l.add(ctx, lineNo, line, o.language); err != nil {
				return l.stats(), err
			}
		}
		if readErr != nil {
			break
		}
	}
	if err := l.flush(ctx); err != nil {
		return l.stats(), err
	}

	st := l.stats()
	kind := string(desc.Kind)
	metrics.SyncRecordsTotal.WithLabelValues(kind, "loaded").Add(float64(st.Loaded))
	metrics.SyncRecordsTotal.WithLabelValues(kind, "load_error").Add(float64(st.Failed))
	logger.FromContext(ctx).Info("dump loaded",
		zap.String("index", desc.Name),
		zap.Int64("loaded", st.Loaded),
		zap.Int64("failed", st.Failed),
	)
	return st, nil
}

// loader accumulates one batch at a time.
type loader struct {
	svc    *Service
	desc   domidx.Descriptor
	report *dombatch.Report
	docs   []document.Document
	lines  []int
}

func (l *loader) add(ctx context.Context, lineNo int, line []byte, lang string) error {
	rec, err := dump.Parse(line)
	if err != nil {
		l.report.Add(dombatch.NewError("", lineNo, err))
		return nil
	}
	doc, err := document.Project(l.desc.Kind, rec, lang)
	if err != nil {
		l.report.Add(dombatch.NewError(string(rec.ID), lineNo, err))
		return nil
	}

	l.docs = append(l.docs, doc)
	l.lines = append(l.lines, lineNo)
	if len(l.docs) >= l.svc.batchSize {
		return l.flush(ctx)
	}
	return nil
}

func (l *loader) flush(ctx context.Context) error {
	if len(l.docs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("load %s: %w", l.desc.Name, err)
	}

	start := time.Now()
	rejected, err := l.svc.repo.Upsert(ctx, l.desc.Name, l.docs)
	metrics.SyncBatchDuration.WithLabelValues(l.desc.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("load %s: %w", l.desc.Name, err)
	}

	for i := range l.docs {
		if i < len(rejected) && rejected[i] != nil {
			l.report.Add(dombatch.NewError(l.docs[i].ID, l.lines[i], rejected[i]))
			continue
		}
		l.report.Add(dombatch.NewOK(l.docs[i].ID, l.lines[i]))
	}
	logger.FromContext(ctx).Debug("batch stored",
		zap.String("index", l.desc.Name),
		zap.Int("size", len(l.docs)),
		zap.Duration("took", time.Since(start)),
	)

	l.docs = l.docs[:0]
	l.lines = l.lines[:0]
	return nil
}

func (l *loader) stats() Stats {
	return Stats{Loaded: l.report.Loaded(), Failed: l.report.Failed(), Samples: l.report.Samples()}
}
