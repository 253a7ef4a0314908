// Package pipeline orchestrates a run: postings accumulate from sources, and
// every flush re-filters the whole set, records new sightings in the history
// and rewrites the artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/bioinfo-job-tracker/internal/filtering"
	"github.com/spigell/bioinfo-job-tracker/internal/history"
	"github.com/spigell/bioinfo-job-tracker/internal/identity"
	"github.com/spigell/bioinfo-job-tracker/internal/logger"
	"github.com/spigell/bioinfo-job-tracker/internal/metrics"
	"github.com/spigell/bioinfo-job-tracker/internal/output"
	"github.com/spigell/bioinfo-job-tracker/internal/posting"
	"github.com/spigell/bioinfo-job-tracker/internal/store"
)

// HistoryMode selects which postings are recorded in the history.
type HistoryMode string

const (
	HistoryKept HistoryMode = "kept"
	HistoryAll  HistoryMode = "all"
)

const topReasons = 5

// ParseHistoryMode accepts "kept", "all" or an empty string (kept).
func ParseHistoryMode(s string) (HistoryMode, error) {
	switch HistoryMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", HistoryKept:
		return HistoryKept, nil
	case HistoryAll:
		return HistoryAll, nil
	default:
		return "", fmt.Errorf("unknown history mode %q (expected %q or %q)", s, HistoryKept, HistoryAll)
	}
}

type Config struct {
	HistoryMode HistoryMode
	// BatchInterval is the minimum time between two flushes triggered by
	// MaybeFlush. Zero disables partial flushes.
	BatchInterval time.Duration
	Artifacts     output.Artifacts
	// HistoryPath is where the history is saved after every flush. Empty keeps
	// the history in memory only.
	HistoryPath string
	MetricsFile string
}

type Deps struct {
	Filter  *filtering.Pipeline
	History *history.Store
	DB      *store.DB
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// Summary aggregates a run.
type Summary struct {
	Fetched      int
	Kept         int
	Dropped      int
	Malformed    int
	New          int
	Duplicate    int
	SourceErrors int
	Flushes      int
	BySource     map[string]int
	TopReasons   []filtering.ReasonCount
}

// Runner owns the accumulated postings of one run. It is not safe for
// concurrent use; ingest.Collect already delivers batches from one goroutine.
type Runner struct {
	cfg     Config
	filter  *filtering.Pipeline
	history *history.Store
	db      *store.DB
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	postings posting.Postings
	observed map[int]struct{}
	// ids first seen during this run, in observation order
	fresh []string

	lastFlush    time.Time
	last         *filtering.Outcome
	flushes      int
	newCount     int
	dupCount     int
	sourceErrors int
}

func New(cfg Config, deps Deps) (*Runner, error) {
	if deps.Filter == nil {
		return nil, errors.New("filter pipeline is required")
	}
	if cfg.HistoryMode == "" {
		cfg.HistoryMode = HistoryKept
	}
	if _, err := ParseHistoryMode(string(cfg.HistoryMode)); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:      cfg,
		filter:   deps.Filter,
		history:  deps.History,
		db:       deps.DB,
		metrics:  deps.Metrics,
		logger:   logger.OrNop(deps.Logger),
		now:      deps.Now,
		observed: make(map[int]struct{}),
	}
	if r.history == nil {
		r.history = history.New()
	}
	if r.metrics == nil {
		r.metrics = metrics.New()
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.lastFlush = r.now()
	return r, nil
}

// Add appends a batch delivered by source.
func (r *Runner) Add(source string, items []posting.RawPosting) {
	r.postings.Append(items...)
	r.metrics.RecordFetched(source, len(items))
	r.logger.Info("postings received",
		zap.String(logger.FieldSource, source),
		zap.Int("count", len(items)),
		zap.Int("total", r.postings.Len()),
	)
}

// AddError records a source that failed to deliver.
func (r *Runner) AddError(source string, err error) {
	r.sourceErrors++
	r.metrics.RecordSourceError(source)
	r.logger.Warn("skipping failed source", zap.String(logger.FieldSource, source), zap.Error(err))
}

// Len is the number of accumulated postings.
func (r *Runner) Len() int {
	return r.postings.Len()
}

// History exposes the store the runner records sightings in.
func (r *Runner) History() *history.Store {
	return r.history
}

// MaybeFlush flushes when the batch interval has elapsed since the previous
// flush. It reports whether a flush happened.
func (r *Runner) MaybeFlush(ctx context.Context, now time.Time) (bool, error) {
	if r.cfg.BatchInterval <= 0 || now.Sub(r.lastFlush) < r.cfg.BatchInterval {
		return false, nil
	}
	if _, err := r.Flush(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Flush filters everything accumulated so far and rewrites every artifact,
// including the list of postings first seen during this run.
// Postings already recorded in the history by an earlier flush are not
// observed again, so repeated flushes over the same input leave the history
// unchanged. A history corruption error aborts the flush before any artifact
// is written.
func (r *Runner) Flush(ctx context.Context) (*filtering.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := r.now()
	snapshot := r.postings.Snapshot()
	outcome := r.filter.Run(snapshot)

	if err := r.observe(snapshot, outcome, now); err != nil {
		return nil, err
	}

	filtering.SortByScore(outcome.Kept)
	if err := r.cfg.Artifacts.Write(snapshot, outcome.Kept, outcome.Dropped); err != nil {
		return nil, fmt.Errorf("write artifacts: %w", err)
	}
	if err := r.cfg.Artifacts.WriteNew(r.NewRecords()); err != nil {
		return nil, fmt.Errorf("write artifacts: %w", err)
	}

	if r.cfg.HistoryPath != "" {
		if err := r.history.Save(r.cfg.HistoryPath); err != nil {
			return nil, fmt.Errorf("save history: %w", err)
		}
	}

	if r.db != nil {
		if err := r.db.Sync(ctx, r.history.Records(), verdicts(outcome)); err != nil {
			return nil, fmt.Errorf("sync roles: %w", err)
		}
	}

	r.metrics.RecordFlush(len(outcome.Kept), reasonCounts(outcome.Histogram), now)
	if r.cfg.MetricsFile != "" {
		if err := r.metrics.WriteTextfile(r.cfg.MetricsFile); err != nil {
			return nil, fmt.Errorf("write metrics: %w", err)
		}
	}

	r.last = outcome
	r.lastFlush = now
	r.flushes++

	r.logger.Info("flush",
		zap.Int("postings", len(snapshot)),
		zap.Int("kept", len(outcome.Kept)),
		zap.Int("dropped", len(outcome.Dropped)),
		zap.Int("malformed", outcome.Malformed),
		zap.Int("history", r.history.Len()),
	)
	return outcome, nil
}

func (r *Runner) observe(snapshot []posting.RawPosting, outcome *filtering.Outcome, now time.Time) error {
	var indexes []int
	switch r.cfg.HistoryMode {
	case HistoryAll:
		for i := range snapshot {
			if snapshot[i].Validate() == nil {
				indexes = append(indexes, i)
			}
		}
	default:
		for _, res := range outcome.Kept {
			indexes = append(indexes, res.Index)
		}
	}

	for _, i := range indexes {
		if _, ok := r.observed[i]; ok {
			continue
		}

		p := snapshot[i]
		id := identity.Of(p)
		status, rec, err := r.history.Observe(p, id, now)
		if err != nil {
			return fmt.Errorf("observe %s: %w", p.JobURL, err)
		}
		r.observed[i] = struct{}{}
		r.metrics.RecordHistory(string(status))

		switch status {
		case history.StatusNew:
			r.newCount++
			r.fresh = append(r.fresh, rec.ID)
		case history.StatusDuplicate:
			r.dupCount++
		}

		r.logger.Debug("history observed",
			append(logger.PostingFields(p.Company, p.JobTitle, p.Source),
				logger.IdentityField(id),
				zap.String("status", string(status)),
			)...,
		)
	}
	return nil
}

// NewRecords returns the current history rows of every identity first seen
// during this run.
func (r *Runner) NewRecords() []history.Record {
	out := make([]history.Record, 0, len(r.fresh))
	for _, id := range r.fresh {
		if rec, ok := r.history.Get(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Finish performs the final flush and logs the run summary.
func (r *Runner) Finish(ctx context.Context) (Summary, error) {
	if _, err := r.Flush(ctx); err != nil {
		return Summary{}, err
	}

	s := r.Summary()
	r.logger.Info("run summary",
		zap.Int("fetched", s.Fetched),
		zap.Int("kept", s.Kept),
		zap.Int("dropped", s.Dropped),
		zap.Int("malformed", s.Malformed),
		zap.Int("new", s.New),
		zap.Int("duplicate", s.Duplicate),
		zap.Int("source_errors", s.SourceErrors),
		zap.Any("by_source", s.BySource),
		zap.String("top_drop_reasons", FormatReasons(s.TopReasons)),
	)
	return s, nil
}

// Summary reports the state as of the last flush.
func (r *Runner) Summary() Summary {
	s := Summary{
		Fetched:      r.postings.Len(),
		New:          r.newCount,
		Duplicate:    r.dupCount,
		SourceErrors: r.sourceErrors,
		Flushes:      r.flushes,
		BySource:     r.postings.CountBySource(),
	}
	if r.last != nil {
		s.Kept = len(r.last.Kept)
		s.Dropped = len(r.last.Dropped)
		s.Malformed = r.last.Malformed
		s.TopReasons = r.last.TopReasons(topReasons)
	}
	return s
}

// FormatReasons renders reason counts as "reason=n, reason=n".
func FormatReasons(reasons []filtering.ReasonCount) string {
	parts := make([]string, 0, len(reasons))
	for _, rc := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", rc.Reason, rc.Count))
	}
	return strings.Join(parts, ", ")
}

func verdicts(outcome *filtering.Outcome) map[string]store.Verdict {
	out := make(map[string]store.Verdict, len(outcome.Kept)+len(outcome.Dropped))
	for _, res := range outcome.Dropped {
		out[identity.Of(res.Posting)] = store.Verdict{DropReason: string(res.Stage1DropReason)}
	}
	// the best kept copy wins over any dropped one
	for _, res := range outcome.Kept {
		id := identity.Of(res.Posting)
		if v, ok := out[id]; ok && v.Kept && v.Score >= res.Score {
			continue
		}
		out[id] = store.Verdict{Score: res.Score, Kept: true}
	}
	return out
}

func reasonCounts(hist map[filtering.Reason]int) map[string]int {
	out := make(map[string]int, len(hist))
	for reason, n := range hist {
		out[string(reason)] = n
	}
	return out
}
