// Package ingest materializes postings produced by the fetchers. Sources are
// read concurrently while their batches are consumed by a single goroutine.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/bioinfo-job-tracker/internal/logger"
	"github.com/spigell/bioinfo-job-tracker/internal/posting"
)

// Source delivers one batch of postings.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]posting.RawPosting, error)
}

// FileSource reads a JSONL dump written by a fetcher. Postings without a
// source tag inherit the source name, and an empty remote flag is derived
// from the location.
type FileSource struct {
	Path   string
	Source string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string {
	if s.Source != "" {
		return s.Source
	}
	return strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
}

func (s *FileSource) Fetch(ctx context.Context) ([]posting.RawPosting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := posting.ReadJSONLFile(s.Path)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].Source == "" {
			items[i].Source = s.Name()
		}
		if items[i].RemoteOrHybrid == "" {
			items[i].RemoteOrHybrid = posting.DetectRemote(items[i].Location)
		}
		if date := posting.ParseDate(items[i].PostingDate); date != "" {
			items[i].PostingDate = date
		}
	}
	return items, nil
}

// Batch is the output of one source.
type Batch struct {
	Source   string
	Postings []posting.RawPosting
	Err      error
}

// Collect fetches sources with at most workers running at once and hands
// every batch to fn from the calling goroutine, in completion order. A failed
// source is logged and reported to fn with Err set, it never stops the others.
// An error returned by fn cancels the remaining sources and is returned.
func Collect(ctx context.Context, log *zap.Logger, sources []Source, workers int, fn func(Batch) error) error {
	log = logger.OrNop(log)
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	batches := make(chan Batch)
	go func() {
		for _, src := range sources {
			src := src
			g.Go(func() error {
				srcLog := logger.WithFields(log, zap.String(logger.FieldSource, src.Name()))
				srcLog.Debug("fetching source")
				items, err := src.Fetch(gctx)
				if err != nil {
					srcLog.Warn("source failed", zap.Error(err))
				}
				select {
				case batches <- Batch{Source: src.Name(), Postings: items, Err: err}:
				case <-gctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
		close(batches)
	}()

	var consumeErr error
	for batch := range batches {
		if consumeErr != nil {
			continue
		}
		if err := fn(batch); err != nil {
			consumeErr = fmt.Errorf("consume %s: %w", batch.Source, err)
			cancel()
		}
	}

	if consumeErr != nil {
		return consumeErr
	}
	return ctx.Err()
}
