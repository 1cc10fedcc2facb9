package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/jobrunner/atlas/internal/domain"
	"github.com/jobrunner/atlas/internal/ports/output"
)

// documentExtensions lists the object suffixes read as result documents.
var documentExtensions = []string{".geojson", ".json"}

// IsResultDocument reports whether key names a result document.
func IsResultDocument(key string) bool {
	ext := strings.ToLower(path.Ext(key))
	for _, e := range documentExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// StorageSource reads result documents from object storage.
type StorageSource struct {
	storage output.ObjectStorage
	decoder output.ResultDecoder
	metrics output.MetricsCollector
	logger  *slog.Logger
}

// NewStorageSource creates a result source over storage.
func NewStorageSource(storage output.ObjectStorage, decoder output.ResultDecoder, metrics output.MetricsCollector, logger *slog.Logger) *StorageSource {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &StorageSource{
		storage: storage,
		decoder: decoder,
		metrics: metrics,
		logger:  logger,
	}
}

// Name implements output.ResultSource.
func (s *StorageSource) Name() string { return "storage" }

// Load implements output.ResultSource. Documents that cannot be read or decoded are logged
// and skipped.
func (s *StorageSource) Load(ctx context.Context) ([]*domain.Result, error) {
	start := time.Now()
	objects, err := s.storage.List(ctx)
	s.metrics.IncStorageOperations("list", err == nil)
	s.metrics.ObserveStorageDuration("list", time.Since(start))
	if err != nil {
		return nil, &domain.StorageError{Operation: "list", Err: err}
	}

	var out []*domain.Result
	for _, obj := range objects {
		if !IsResultDocument(obj.Key) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rs, err := s.readDocument(ctx, obj.Key)
		if errors.Is(err, domain.ErrObjectNotFound) {
			s.logger.Debug("result document vanished before read", "key", obj.Key)
			continue
		}
		if err != nil {
			s.logger.Warn("skipping result document", "key", obj.Key, "error", err)
			continue
		}
		s.logger.Debug("result document loaded", "key", obj.Key, "results", len(rs))
		out = append(out, rs...)
	}
	return out, nil
}

func (s *StorageSource) readDocument(ctx context.Context, key string) ([]*domain.Result, error) {
	start := time.Now()
	rc, err := s.storage.GetReader(ctx, key)
	if err != nil {
		s.metrics.IncStorageOperations("get", false)
		return nil, &domain.StorageError{Operation: "get", Key: key, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	s.metrics.IncStorageOperations("get", err == nil)
	s.metrics.ObserveStorageDuration("get", time.Since(start))
	if err != nil {
		return nil, &domain.StorageError{Operation: "read", Key: key, Err: err}
	}

	return s.decoder.Decode(data)
}

// ResultLoader merges the results of several sources.
type ResultLoader struct {
	sources []output.ResultSource
	metrics output.MetricsCollector
	logger  *slog.Logger
}

// NewResultLoader creates a loader over sources.
func NewResultLoader(sources []output.ResultSource, metrics output.MetricsCollector, logger *slog.Logger) *ResultLoader {
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	return &ResultLoader{
		sources: sources,
		metrics: metrics,
		logger:  logger,
	}
}

// Load reads every source in order. The first result with a given id wins. A failing source
// is skipped; Load only fails when every source failed.
func (l *ResultLoader) Load(ctx context.Context) ([]*domain.Result, error) {
	var (
		out  []*domain.Result
		errs []error
		seen = make(map[string]bool)
	)

	for _, src := range l.sources {
		rs, err := src.Load(ctx)
		l.metrics.IncResultLoads(src.Name(), err == nil)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			l.logger.Warn("result source failed", "source", src.Name(), "error", err)
			errs = append(errs, &domain.SourceError{Source: src.Name(), Err: err})
			continue
		}

		for _, r := range rs {
			if r == nil || r.ID == "" {
				continue
			}
			if seen[r.ID] {
				l.logger.Warn("duplicate result id ignored", "id", r.ID, "source", src.Name())
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}

	if len(l.sources) > 0 && len(errs) == len(l.sources) {
		return nil, fmt.Errorf("loading results: %w", errors.Join(errs...))
	}
	return out, nil
}
