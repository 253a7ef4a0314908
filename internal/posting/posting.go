package posting

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is returned for postings that cannot be filtered or identified.
var ErrMalformed = errors.New("malformed posting")

const (
	RemoteRemote = "remote"
	RemoteHybrid = "hybrid"
	RemoteOnsite = "onsite"
)

// RawPosting is a job posting as delivered by a fetcher. It is never mutated
// after ingestion.
type RawPosting struct {
	Company        string `json:"company"`
	JobTitle       string `json:"job_title"`
	Location       string `json:"location"`
	RemoteOrHybrid string `json:"remote_or_hybrid"`
	PostingDate    string `json:"posting_date"`
	Source         string `json:"source"`
	JobURL         string `json:"job_url"`
	JobID          string `json:"job_id"`
	Description    string `json:"description"`
	ListSource     string `json:"list_source"`
}

// Validate checks the fields every downstream stage depends on.
func (p RawPosting) Validate() error {
	var missing []string
	if strings.TrimSpace(p.JobTitle) == "" {
		missing = append(missing, "job_title")
	}
	if strings.TrimSpace(p.JobURL) == "" {
		missing = append(missing, "job_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformed, strings.Join(missing, ", "))
	}
	return nil
}

// Postings is an ordered collection of raw postings.
type Postings struct {
	Items []RawPosting
}

func (p *Postings) Len() int {
	return len(p.Items)
}

func (p *Postings) Append(items ...RawPosting) {
	p.Items = append(p.Items, items...)
}

// Snapshot returns a copy of the current items so callers can iterate while
// more postings are being appended.
func (p *Postings) Snapshot() []RawPosting {
	out := make([]RawPosting, len(p.Items))
	copy(out, p.Items)
	return out
}

// CountBySource reports how many postings each source tag contributed.
func (p *Postings) CountBySource() map[string]int {
	counts := make(map[string]int)
	for _, item := range p.Items {
		counts[item.Source]++
	}
	return counts
}

// DetectRemote classifies free text as remote, hybrid or onsite.
func DetectRemote(text string) string {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, "remote"):
		return RemoteRemote
	case strings.Contains(text, "hybrid"):
		return RemoteHybrid
	default:
		return RemoteOnsite
	}
}
