package filtering

import (
	"time"

	"github.com/spigell/bioinfo-job-tracker/internal/matcher"
	"github.com/spigell/bioinfo-job-tracker/internal/posting"
)

// signals are the title and location matches several gates and the scorer
// depend on, computed once per posting.
type signals struct {
	titleInclude    matcher.Set
	titleStrict     matcher.Set
	titleSoft       matcher.Set
	locationInclude matcher.Set
}

func newSignals(cfg Config) signals {
	return signals{
		titleInclude:    matcher.NewSet(cfg.Title.IncludeAny),
		titleStrict:     matcher.NewSet(cfg.Title.StrictIncludeAny),
		titleSoft:       matcher.NewSet(cfg.Title.SoftIncludeAny, builtinSoftTitles),
		locationInclude: matcher.NewSet(cfg.Location.IncludeAny),
	}
}

type candidate struct {
	raw   posting.RawPosting
	index int

	// normalized views
	text        string
	title       string
	location    string
	description string

	age    int
	hasAge bool

	titleMatch        bool
	strictMatch       bool
	locationQualifies bool

	passReasons []string
	keywordHits []string
	breakdown   *Breakdown
}

func newCandidate(raw posting.RawPosting, index int, now time.Time, s signals) *candidate {
	c := &candidate{
		raw:         raw,
		index:       index,
		text:        matcher.Normalize(raw.JobTitle + " " + raw.Location + " " + raw.Description),
		title:       matcher.Normalize(raw.JobTitle),
		location:    matcher.Normalize(raw.Location),
		description: matcher.Normalize(raw.Description),
	}
	c.age, c.hasAge = posting.AgeDays(raw.PostingDate, now)

	c.strictMatch = s.titleStrict.Any(c.title)
	c.titleMatch = c.strictMatch || s.titleInclude.Any(c.title) || s.titleSoft.Any(c.title)

	if c.location != "" {
		c.locationQualifies = isUSLocation(raw.Location) || s.locationInclude.Any(c.location)
	}
	return c
}

func (c *candidate) result() Result {
	res := newResult(c.raw, c.index)
	res.Stage1PassReasons = c.passReasons
	if c.breakdown != nil {
		b := *c.breakdown
		res.ScoreBreakdown = &b
		res.Score = b.Total()
	}
	return res
}
