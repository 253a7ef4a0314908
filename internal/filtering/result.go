package filtering

import (
	"sort"

	"github.com/spigell/bioinfo-job-tracker/internal/posting"
)

// Reason tags the gate that rejected a posting.
type Reason string

const (
	ReasonMalformed             Reason = "malformed_input"
	ReasonLocationExclude       Reason = "location_exclude"
	ReasonLocationNonUS         Reason = "location_exclude_non_us"
	ReasonTitleExclude          Reason = "title_exclude"
	ReasonTitlePipelineBusiness Reason = "title_exclude_pipeline_business"
	ReasonSeniorityExclude      Reason = "seniority_exclude"
	ReasonExperienceExclude     Reason = "experience_exclude"
	ReasonGlobalExclude         Reason = "global_exclude"
	ReasonEmploymentExclude     Reason = "employment_exclude"
	ReasonNoDomainSignal        Reason = "no_domain_signal"
	ReasonHardGateMissing       Reason = "hard_gate_missing"
	ReasonTooOldHard            Reason = "too_old_hard"
	ReasonTooOld                Reason = "too_old"
	ReasonBelowMinScore         Reason = "below_min_score"
)

// Reasons a posting passed the domain gate.
const (
	PassTitleMatch       = "title_match"
	PassWeakDomainSignal = "weak_domain_signal"
)

// Breakdown lists every contribution to a kept posting's score.
type Breakdown struct {
	StrongHits       int `json:"strong_hits"`
	MediumHits       int `json:"medium_hits"`
	NiceHits         int `json:"nice_hits"`
	StrongPoints     int `json:"strong_points"`
	MediumPoints     int `json:"medium_points"`
	NicePoints       int `json:"nice_points"`
	TitleBonus       int `json:"title_bonus"`
	LocationBonus    int `json:"location_bonus"`
	Penalties        int `json:"penalties"`
	FreshnessBonus   int `json:"freshness_bonus"`
	StrictTitleBonus int `json:"strict_title_bonus"`
}

// Total is the score the breakdown adds up to.
func (b Breakdown) Total() int {
	return b.StrongPoints + b.MediumPoints + b.NicePoints +
		b.TitleBonus + b.LocationBonus + b.Penalties +
		b.FreshnessBonus + b.StrictTitleBonus
}

// Result is the per-posting outcome. Kept results carry a score and its
// breakdown, dropped results carry exactly one drop reason.
type Result struct {
	Company           string     `json:"company"`
	JobTitle          string     `json:"job_title"`
	Location          string     `json:"location"`
	RemoteOrHybrid    string     `json:"remote_or_hybrid"`
	PostingDate       string     `json:"posting_date"`
	Source            string     `json:"source"`
	JobURL            string     `json:"job_url"`
	Score             int        `json:"score"`
	ListSource        string     `json:"list_source"`
	Stage1PassReasons []string   `json:"stage1_pass_reasons,omitempty"`
	ScoreBreakdown    *Breakdown `json:"score_breakdown,omitempty"`
	Stage1DropReason  Reason     `json:"stage1_drop_reason,omitempty"`

	// Posting is the input record and Index its position in the Run input.
	Posting posting.RawPosting `json:"-"`
	Index   int                `json:"-"`
}

func (r Result) Kept() bool {
	return r.Stage1DropReason == ""
}

func newResult(p posting.RawPosting, index int) Result {
	return Result{
		Company:        p.Company,
		JobTitle:       p.JobTitle,
		Location:       p.Location,
		RemoteOrHybrid: p.RemoteOrHybrid,
		PostingDate:    p.PostingDate,
		Source:         p.Source,
		JobURL:         p.JobURL,
		ListSource:     p.ListSource,
		Posting:        p,
		Index:          index,
	}
}

// Step describes the result of executing a single gate.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

// Outcome is everything one pipeline run produces.
type Outcome struct {
	Kept      []Result
	Dropped   []Result
	Histogram map[Reason]int
	Malformed int
	Steps     []Step
}

// ReasonCount pairs a drop reason with its frequency.
type ReasonCount struct {
	Reason Reason
	Count  int
}

// TopReasons returns up to n reasons by descending count, ties broken by name.
// n <= 0 returns all of them.
func TopReasons(hist map[Reason]int, n int) []ReasonCount {
	out := make([]ReasonCount, 0, len(hist))
	for reason, count := range hist {
		out = append(out, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TopReasons is a shortcut for TopReasons(o.Histogram, n).
func (o *Outcome) TopReasons(n int) []ReasonCount {
	return TopReasons(o.Histogram, n)
}

// SortByScore orders kept results by descending score, then company and title.
func SortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Company != results[j].Company {
			return results[i].Company < results[j].Company
		}
		return results[i].JobTitle < results[j].JobTitle
	})
}
