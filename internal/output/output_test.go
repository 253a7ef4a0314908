package output

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spigell/bioinfo-job-tracker/internal/filtering"
	"github.com/spigell/bioinfo-job-tracker/internal/history"
	"github.com/spigell/bioinfo-job-tracker/internal/posting"
)

func keptResult() filtering.Result {
	return filtering.Result{
		Company:           "Acme Bio",
		JobTitle:          "Bioinformatics Scientist",
		Location:          "Boston, MA",
		PostingDate:       "2025-06-08",
		Source:            "greenhouse",
		JobURL:            "https://boards.greenhouse.io/acme/jobs/1",
		Score:             9,
		ListSource:        "priority",
		Stage1PassReasons: []string{filtering.PassTitleMatch},
		ScoreBreakdown:    &filtering.Breakdown{StrongHits: 2, StrongPoints: 6, FreshnessBonus: 3},
	}
}

func TestEncodeResultsCSVKept(t *testing.T) {
	t.Parallel()

	undated := keptResult()
	undated.Location = ""
	undated.PostingDate = ""

	var buf bytes.Buffer
	if err := EncodeResultsCSV(&buf, []filtering.Result{keptResult(), undated}); err != nil {
		t.Fatalf("EncodeResultsCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}

	header := strings.Join(rows[0], ",")
	if header != "company,job_title,location,remote_or_hybrid,posting_date,source,job_url,score,list_source,stage1_pass_reasons,score_breakdown" {
		t.Fatalf("unexpected header: %s", header)
	}
	if rows[1][9] != `["title_match"]` {
		t.Fatalf("pass reasons must be JSON encoded, got %q", rows[1][9])
	}
	if !strings.Contains(rows[1][10], `"strong_points":6`) {
		t.Fatalf("breakdown must be JSON encoded, got %q", rows[1][10])
	}
	if rows[2][2] != "NA" || rows[2][4] != "NA" {
		t.Fatalf("empty location and date must render as NA, got %q and %q", rows[2][2], rows[2][4])
	}
}

func TestEncodeResultsCSVDropped(t *testing.T) {
	t.Parallel()

	dropped := filtering.Result{
		Company:          "Acme Bio",
		JobTitle:         "Director, Commercial Pipeline",
		JobURL:           "https://boards.greenhouse.io/acme/jobs/2",
		Stage1DropReason: filtering.ReasonTitlePipelineBusiness,
	}

	var buf bytes.Buffer
	if err := EncodeResultsCSV(&buf, []filtering.Result{dropped}); err != nil {
		t.Fatalf("EncodeResultsCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if got := rows[0][len(rows[0])-1]; got != "stage1_drop_reason" {
		t.Fatalf("expected drop reason column last, got %q", got)
	}
	if got := rows[1][len(rows[1])-1]; got != string(filtering.ReasonTitlePipelineBusiness) {
		t.Fatalf("unexpected drop reason %q", got)
	}
}

func TestArtifactsWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifacts := DefaultArtifacts(filepath.Join(dir, "out"))

	raw := []posting.RawPosting{
		{Company: "Acme Bio", JobTitle: "Bioinformatics Scientist", JobURL: "https://x/1"},
		{Company: "Acme Bio", JobTitle: "Sales Lead", JobURL: "https://x/2"},
	}
	kept := []filtering.Result{keptResult()}
	dropped := []filtering.Result{{JobTitle: "Sales Lead", Stage1DropReason: filtering.ReasonNoDomainSignal}}

	if err := artifacts.Write(raw, kept, dropped); err != nil {
		t.Fatalf("Write: %v", err)
	}

	unfiltered, err := posting.ReadJSONLFile(artifacts.Unfiltered)
	if err != nil {
		t.Fatalf("read unfiltered: %v", err)
	}
	if len(unfiltered) != 2 || unfiltered[1].JobTitle != "Sales Lead" {
		t.Fatalf("unexpected unfiltered artifact: %+v", unfiltered)
	}

	filtered, err := ReadResults(artifacts.Filtered)
	if err != nil {
		t.Fatalf("read filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Score != 9 || filtered[0].ScoreBreakdown.StrongPoints != 6 {
		t.Fatalf("unexpected filtered artifact: %+v", filtered)
	}

	droppedBack, err := ReadResults(artifacts.Dropped)
	if err != nil {
		t.Fatalf("read dropped: %v", err)
	}
	if len(droppedBack) != 1 || droppedBack[0].Stage1DropReason != filtering.ReasonNoDomainSignal {
		t.Fatalf("unexpected dropped artifact: %+v", droppedBack)
	}

	if _, err := os.Stat(artifacts.Latest); err != nil {
		t.Fatalf("latest.csv missing: %v", err)
	}

	// A second flush with fewer rows fully replaces the previous content.
	if err := artifacts.Write(raw[:1], nil, nil); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	filtered, err = ReadResults(artifacts.Filtered)
	if err != nil {
		t.Fatalf("read filtered: %v", err)
	}
	if len(filtered) != 0 {
		t.Fatalf("expected empty filtered artifact, got %d rows", len(filtered))
	}
}

func TestArtifactsSkipEmptyPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifacts := Artifacts{Latest: filepath.Join(dir, "latest.csv")}
	if err := artifacts.Write(nil, nil, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "latest.csv" {
		t.Fatalf("expected only latest.csv, got %v", entries)
	}
}

func TestWriteNewSortsNewestFirst(t *testing.T) {
	t.Parallel()

	seen := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	records := []history.Record{
		{ID: "undated", FirstSeen: seen},
		{ID: "old", PostingDate: "2025-05-01", FirstSeen: seen},
		{ID: "fresh", PostingDate: "06/09/2025", FirstSeen: seen},
		{ID: "b-tie", PostingDate: "2025-06-05", FirstSeen: seen},
		{ID: "a-tie", PostingDate: "2025-06-05", FirstSeen: seen},
	}

	artifacts := DefaultArtifacts(t.TempDir())
	if err := artifacts.WriteNew(records); err != nil {
		t.Fatalf("WriteNew: %v", err)
	}
	if records[0].ID != "undated" {
		t.Fatalf("WriteNew must not reorder its input")
	}

	loaded, err := os.ReadFile(artifacts.New)
	if err != nil {
		t.Fatalf("read new.csv: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(string(loaded))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}

	var ids []string
	for _, row := range rows[1:] {
		ids = append(ids, row[0])
	}
	want := "fresh,a-tie,b-tie,old,undated"
	if got := strings.Join(ids, ","); got != want {
		t.Fatalf("unexpected order %s, want %s", got, want)
	}
}
