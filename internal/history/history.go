// Package history keeps one record per canonical posting identity across
// runs and classifies every sighting as new or duplicate.
package history

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spigell/bioinfo-job-tracker/internal/posting"
	"github.com/spigell/bioinfo-job-tracker/internal/utils"
)

// ErrCorruption reports that the store holds more than one record for an identity.
var ErrCorruption = errors.New("history corruption")

// CorruptionError names the identity whose uniqueness is broken.
type CorruptionError struct {
	ID    string
	Count int
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("history corruption: %d rows for canonical_job_id=%s", e.Count, e.ID)
}

func (e *CorruptionError) Is(target error) bool {
	return target == ErrCorruption
}

type Status string

const (
	StatusNew       Status = "new"
	StatusDuplicate Status = "duplicate"
)

// Columns is the header of the history CSV artifact.
var Columns = []string{
	"canonical_job_id",
	"company",
	"job_title",
	"location",
	"remote_or_hybrid",
	"posting_date",
	"job_url",
	"first_seen",
	"last_seen",
	"sources_seen",
}

const sourcesSeparator = "|"

// Record is one row of the history artifact.
type Record struct {
	ID             string
	Company        string
	JobTitle       string
	Location       string
	RemoteOrHybrid string
	PostingDate    string
	JobURL         string
	FirstSeen      time.Time
	LastSeen       time.Time
	SourcesSeen    []string
}

func (r Record) clone() Record {
	r.SourcesSeen = append([]string(nil), r.SourcesSeen...)
	return r
}

// Store is the in-memory view of the history artifact. It is not safe for
// concurrent use and the caller must guarantee a single writer per artifact.
type Store struct {
	records []*Record
	index   map[string][]*Record
}

// New returns an empty store.
func New() *Store {
	return &Store{index: make(map[string][]*Record)}
}

// Load reads the history artifact at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", path, err)
	}
	return s, nil
}

// Read parses a history CSV. Columns are matched by header name, so extra
// columns are ignored and column order does not matter.
func Read(r io.Reader) (*Store, error) {
	s := New()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := pos["canonical_job_id"]; !ok {
		return nil, fmt.Errorf("missing canonical_job_id column")
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		get := func(col string) string {
			i, ok := pos[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec := &Record{
			ID:             get("canonical_job_id"),
			Company:        get("company"),
			JobTitle:       get("job_title"),
			Location:       get("location"),
			RemoteOrHybrid: get("remote_or_hybrid"),
			PostingDate:    get("posting_date"),
			JobURL:         get("job_url"),
			SourcesSeen:    splitSources(get("sources_seen")),
		}
		if rec.ID == "" {
			return nil, fmt.Errorf("line %d: empty canonical_job_id", line)
		}
		if rec.FirstSeen, err = parseTime(get("first_seen")); err != nil {
			return nil, fmt.Errorf("line %d: first_seen: %w", line, err)
		}
		if rec.LastSeen, err = parseTime(get("last_seen")); err != nil {
			return nil, fmt.Errorf("line %d: last_seen: %w", line, err)
		}
		s.add(rec)
	}
	return s, nil
}

func (s *Store) add(rec *Record) {
	s.records = append(s.records, rec)
	s.index[rec.ID] = append(s.index[rec.ID], rec)
}

// Len returns the number of rows, duplicates included.
func (s *Store) Len() int {
	return len(s.records)
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (Record, bool) {
	recs := s.index[id]
	if len(recs) != 1 {
		return Record{}, false
	}
	return recs[0].clone(), true
}

// Records returns copies of all rows in artifact order.
func (s *Store) Records() []Record {
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.sorted() {
		out = append(out, rec.clone())
	}
	return out
}

// Check reports the first identity with more than one row, if any.
func (s *Store) Check() error {
	ids := make([]string, 0)
	for id, recs := range s.index {
		if len(recs) > 1 {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	return &CorruptionError{ID: ids[0], Count: len(s.index[ids[0]])}
}

// Observe records a sighting of p under id. Unknown identities are inserted
// and returned as new; known ones get last_seen advanced and the source
// merged in. More than one existing row for id is a corruption error and
// leaves the store untouched.
func (s *Store) Observe(p posting.RawPosting, id string, now time.Time) (Status, *Record, error) {
	now = now.UTC().Truncate(time.Second)

	recs := s.index[id]
	switch len(recs) {
	case 0:
		rec := &Record{
			ID:             id,
			Company:        p.Company,
			JobTitle:       p.JobTitle,
			Location:       p.Location,
			RemoteOrHybrid: p.RemoteOrHybrid,
			PostingDate:    p.PostingDate,
			JobURL:         p.JobURL,
			FirstSeen:      now,
			LastSeen:       now,
			SourcesSeen:    mergeSources(nil, p.Source),
		}
		s.add(rec)
		out := rec.clone()
		return StatusNew, &out, nil
	case 1:
		rec := recs[0]
		if now.After(rec.LastSeen) {
			rec.LastSeen = now
		}
		rec.SourcesSeen = mergeSources(rec.SourcesSeen, p.Source)
		return StatusDuplicate, nil, nil
	default:
		return "", nil, &CorruptionError{ID: id, Count: len(recs)}
	}
}

// Write renders the store as CSV ordered by first_seen, then id.
func (s *Store) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, rec := range s.sorted() {
		if err := cw.Write(rec.row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRecords renders records in the history CSV layout, in the given order.
func WriteRecords(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for i := range records {
		if err := cw.Write(records[i].row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r Record) row() []string {
	return []string{
		r.ID,
		r.Company,
		r.JobTitle,
		r.Location,
		r.RemoteOrHybrid,
		r.PostingDate,
		r.JobURL,
		formatTime(r.FirstSeen),
		formatTime(r.LastSeen),
		strings.Join(r.SourcesSeen, sourcesSeparator),
	}
}

// Save atomically replaces the artifact at path.
func (s *Store) Save(path string) error {
	return utils.WriteFileAtomic(path, func(w *bufio.Writer) error {
		return s.Write(w)
	})
}

func (s *Store) sorted() []*Record {
	out := make([]*Record, len(s.records))
	copy(out, s.records)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].FirstSeen.Equal(out[j].FirstSeen) {
			return out[i].FirstSeen.Before(out[j].FirstSeen)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func mergeSources(current []string, source string) []string {
	set := make(map[string]struct{}, len(current)+1)
	for _, s := range current {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}
	if source = strings.TrimSpace(source); source != "" {
		set[source] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func splitSources(value string) []string {
	if value == "" {
		return nil
	}
	return mergeSources(strings.Split(value, sourcesSeparator), "")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
