package posting

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		posting RawPosting
		wantErr bool
	}{
		{
			name:    "complete",
			posting: RawPosting{JobTitle: "Bioinformatics Scientist", JobURL: "https://jobs.lever.co/acme/1"},
		},
		{
			name:    "blank title",
			posting: RawPosting{JobTitle: "   ", JobURL: "https://jobs.lever.co/acme/1"},
			wantErr: true,
		},
		{
			name:    "missing url",
			posting: RawPosting{JobTitle: "Scientist"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.posting.Validate()
			if tt.wantErr && !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                          "",
		"2024-03-05":                "2024-03-05",
		"2024-03-05T10:11:12Z":      "2024-03-05",
		"2024-03-05T10:11:12.345Z":  "2024-03-05",
		"2024-03-05T10:11:12+02:00": "2024-03-05",
		"2024-03-05T10:11:12":       "2024-03-05",
		"03/05/2024":                "2024-03-05",
		"Mar 5, 2024":               "2024-03-05",
		"March 5, 2024":             "2024-03-05",
		"last week":                 "",
	}

	for in, want := range tests {
		if got := ParseDate(in); got != want {
			t.Fatalf("ParseDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAgeDays(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)

	days, ok := AgeDays("2025-06-08", now)
	if !ok || days != 2 {
		t.Fatalf("expected 2 days, got %d (ok=%v)", days, ok)
	}

	days, ok = AgeDays("2025-06-10T01:00:00Z", now)
	if !ok || days != 0 {
		t.Fatalf("expected same-day posting to be 0 days old, got %d", days)
	}

	if _, ok := AgeDays("", now); ok {
		t.Fatalf("expected empty date to be unusable")
	}
	if _, ok := AgeDays("soon", now); ok {
		t.Fatalf("expected garbage date to be unusable")
	}
}

func TestDetectRemote(t *testing.T) {
	t.Parallel()

	if got := DetectRemote("Remote - US"); got != RemoteRemote {
		t.Fatalf("expected remote, got %s", got)
	}
	if got := DetectRemote("Boston, MA (Hybrid)"); got != RemoteHybrid {
		t.Fatalf("expected hybrid, got %s", got)
	}
	if got := DetectRemote("Boston, MA"); got != RemoteOnsite {
		t.Fatalf("expected onsite, got %s", got)
	}
}

func TestReadJSONL(t *testing.T) {
	t.Parallel()

	input := `{"company":"Acme","job_title":"Genomics Engineer","job_url":"https://a/1","source":"greenhouse"}

{"company":"Beta","job_title":"Scientist","job_url":"https://b/2","source":"lever"}
`
	items, err := ReadJSONL(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(items))
	}
	if items[1].Source != "lever" {
		t.Fatalf("unexpected source: %s", items[1].Source)
	}

	if _, err := ReadJSONL(strings.NewReader("{not json}\n")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPostingsCountBySource(t *testing.T) {
	t.Parallel()

	p := &Postings{}
	p.Append(RawPosting{Source: "lever"}, RawPosting{Source: "lever"}, RawPosting{Source: "ashby"})

	counts := p.CountBySource()
	if counts["lever"] != 2 || counts["ashby"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	snap := p.Snapshot()
	p.Append(RawPosting{Source: "icims"})
	if len(snap) != 3 || p.Len() != 4 {
		t.Fatalf("snapshot should not observe later appends")
	}
}
