// Package output renders run artifacts: JSONL dumps of raw, kept and dropped
// postings plus the latest.csv table read by the reporting layer.
package output

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spigell/bioinfo-job-tracker/internal/filtering"
	"github.com/spigell/bioinfo-job-tracker/internal/history"
	"github.com/spigell/bioinfo-job-tracker/internal/posting"
	"github.com/spigell/bioinfo-job-tracker/internal/utils"
)

const notAvailable = "NA"

// Artifacts holds the destination of every file a flush writes. Empty paths
// are skipped.
type Artifacts struct {
	Unfiltered string
	Filtered   string
	Dropped    string
	Latest     string
	// New lists the history records first seen during the current run.
	New string
}

// DefaultArtifacts places every artifact under dir.
func DefaultArtifacts(dir string) Artifacts {
	return Artifacts{
		Unfiltered: filepath.Join(dir, "unfiltered.jsonl"),
		Filtered:   filepath.Join(dir, "filtered.jsonl"),
		Dropped:    filepath.Join(dir, "dropped.jsonl"),
		Latest:     filepath.Join(dir, "latest.csv"),
		New:        filepath.Join(dir, "new.csv"),
	}
}

// Write replaces all artifacts with the given snapshot.
func (a Artifacts) Write(raw []posting.RawPosting, kept, dropped []filtering.Result) error {
	if a.Unfiltered != "" {
		if err := WriteJSONL(a.Unfiltered, raw); err != nil {
			return err
		}
	}
	if a.Filtered != "" {
		if err := WriteJSONL(a.Filtered, kept); err != nil {
			return err
		}
	}
	if a.Dropped != "" {
		if err := WriteJSONL(a.Dropped, dropped); err != nil {
			return err
		}
	}
	if a.Latest != "" {
		if err := WriteResultsCSV(a.Latest, kept); err != nil {
			return err
		}
	}
	return nil
}

// WriteNew replaces the new-postings artifact with records, newest posting
// date first. Undated records go last.
func (a Artifacts) WriteNew(records []history.Record) error {
	if a.New == "" {
		return nil
	}

	sorted := append([]history.Record(nil), records...)
	SortNewest(sorted)

	err := utils.WriteFileAtomic(a.New, func(w *bufio.Writer) error {
		return history.WriteRecords(w, sorted)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", a.New, err)
	}
	return nil
}

// SortNewest orders records by posting date descending, then first_seen
// descending, then id.
func SortNewest(records []history.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		di, dj := posting.ParseDate(records[i].PostingDate), posting.ParseDate(records[j].PostingDate)
		if di != dj {
			if di == "" || dj == "" {
				return dj == ""
			}
			return di > dj
		}
		if !records[i].FirstSeen.Equal(records[j].FirstSeen) {
			return records[i].FirstSeen.After(records[j].FirstSeen)
		}
		return records[i].ID < records[j].ID
	})
}

// WriteJSONL atomically writes one JSON object per line.
func WriteJSONL[T any](path string, records []T) error {
	err := utils.WriteFileAtomic(path, func(w *bufio.Writer) error {
		return EncodeJSONL(w, records)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// EncodeJSONL writes one JSON object per line to w.
func EncodeJSONL[T any](w io.Writer, records []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadResults loads a filtered.jsonl or dropped.jsonl artifact.
func ReadResults(path string) ([]filtering.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []filtering.Result
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var res filtering.Result
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out = append(out, res)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

var baseColumns = []string{
	"company",
	"job_title",
	"location",
	"remote_or_hybrid",
	"posting_date",
	"source",
	"job_url",
	"score",
	"list_source",
}

// WriteResultsCSV atomically writes results as CSV.
func WriteResultsCSV(path string, results []filtering.Result) error {
	err := utils.WriteFileAtomic(path, func(w *bufio.Writer) error {
		return EncodeResultsCSV(w, results)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// EncodeResultsCSV writes results as CSV. The pass reason, drop reason and
// breakdown columns appear only when at least one row carries them; list and
// object values are JSON encoded. Empty locations and dates become "NA".
func EncodeResultsCSV(w io.Writer, results []filtering.Result) error {
	var withPass, withDrop, withBreakdown bool
	for _, r := range results {
		withPass = withPass || len(r.Stage1PassReasons) > 0
		withDrop = withDrop || r.Stage1DropReason != ""
		withBreakdown = withBreakdown || r.ScoreBreakdown != nil
	}

	header := append([]string(nil), baseColumns...)
	if withPass {
		header = append(header, "stage1_pass_reasons")
	}
	if withDrop {
		header = append(header, "stage1_drop_reason")
	}
	if withBreakdown {
		header = append(header, "score_breakdown")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Company,
			r.JobTitle,
			orNA(r.Location),
			r.RemoteOrHybrid,
			orNA(r.PostingDate),
			r.Source,
			r.JobURL,
			strconv.Itoa(r.Score),
			r.ListSource,
		}
		if withPass {
			cell, err := jsonCell(r.Stage1PassReasons, len(r.Stage1PassReasons) > 0)
			if err != nil {
				return err
			}
			row = append(row, cell)
		}
		if withDrop {
			row = append(row, string(r.Stage1DropReason))
		}
		if withBreakdown {
			cell, err := jsonCell(r.ScoreBreakdown, r.ScoreBreakdown != nil)
			if err != nil {
				return err
			}
			row = append(row, cell)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

func jsonCell(v any, present bool) (string, error) {
	if !present {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
