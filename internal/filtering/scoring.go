package filtering

import (
	"strconv"

	"github.com/spigell/bioinfo-job-tracker/internal/matcher"
)

// locationBonus is added when the location qualifies as US or matches
// location_filter.include_any.
const locationBonus = 1

// scorer never drops anything. It attaches the score breakdown that the
// min-score gate and the outputs read.
type scorer struct {
	gate
	strong, medium, nice matcher.Set
	high, mediumPenalty  matcher.Set

	weights   Weights
	penalties PenaltyWeights
	priority  PriorityLogic
}

func newScorer(cfg Config) *scorer {
	s := cfg.Scoring
	return &scorer{
		gate:          gate{name: "score"},
		strong:        matcher.NewSet(s.Strong),
		medium:        matcher.NewSet(s.Medium),
		nice:          matcher.NewSet(s.NiceToHave),
		high:          matcher.NewSet(s.NegativeKeywords.HighPenalty),
		mediumPenalty: matcher.NewSet(s.NegativeKeywords.MediumPenalty),
		weights:       s.Weights,
		penalties:     s.NegativeKeywords.PenaltyWeights,
		priority:      cfg.Priority,
	}
}

func (s *scorer) Check(c *candidate) (Reason, bool) {
	b := s.score(c)
	c.breakdown = &b
	return "", false
}

func (s *scorer) score(c *candidate) Breakdown {
	strong := s.strong.Hits(c.text)
	medium := s.medium.Hits(c.text)
	nice := s.nice.Hits(c.text)
	c.keywordHits = append(append(append([]string(nil), strong...), medium...), nice...)

	b := Breakdown{
		StrongHits: len(strong),
		MediumHits: len(medium),
		NiceHits:   len(nice),
	}
	b.StrongPoints = b.StrongHits * s.weights.Strong
	b.MediumPoints = b.MediumHits * s.weights.Medium
	b.NicePoints = b.NiceHits * s.weights.NiceToHave

	if c.titleMatch {
		b.TitleBonus = s.weights.Strong
	}
	if c.locationQualifies {
		b.LocationBonus = locationBonus
	}
	if s.high.Any(c.text) {
		b.Penalties += s.penalties.HighPenalty
	}
	if s.mediumPenalty.Any(c.text) {
		b.Penalties += s.penalties.MediumPenalty
	}

	if c.hasAge {
		fresh := s.priority.FreshPostingBonus
		switch {
		case c.age <= 3:
			b.FreshnessBonus = fresh.Days0To3
		case c.age <= 7:
			b.FreshnessBonus = fresh.Days4To7
		default:
			b.FreshnessBonus = fresh.OlderThan7
		}
	}
	if c.strictMatch {
		b.StrictTitleBonus = s.priority.TitleStrictMatchBonus
	}
	return b
}

func (s *scorer) Status() Status {
	return s.status(map[string]string{
		"strong":         strconv.Itoa(s.strong.Len()),
		"medium":         strconv.Itoa(s.medium.Len()),
		"nice_to_have":   strconv.Itoa(s.nice.Len()),
		"high_penalty":   strconv.Itoa(s.high.Len()),
		"medium_penalty": strconv.Itoa(s.mediumPenalty.Len()),
	})
}

// minScoreGate drops survivors scoring below min_total_score_keep. When
// include_title_bypasses_min_score is set, a title keyword match keeps the
// posting regardless of its score.
type minScoreGate struct {
	gate
	min    *int
	bypass bool
}

func newMinScoreGate(cfg Config) *minScoreGate {
	t := cfg.Scoring.Thresholds
	g := &minScoreGate{
		gate:   gate{name: "min_score"},
		min:    t.MinTotalScoreKeep,
		bypass: t.IncludeTitleBypassesMinScore,
	}
	if g.min == nil {
		g.Disable(noRulesReason)
	}
	return g
}

func (g *minScoreGate) Check(c *candidate) (Reason, bool) {
	if c.breakdown == nil {
		return "", false
	}
	if g.bypass && c.titleMatch {
		return "", false
	}
	if c.breakdown.Total() < *g.min {
		return ReasonBelowMinScore, true
	}
	return "", false
}

func (g *minScoreGate) Status() Status {
	details := map[string]string{
		"include_title_bypasses_min_score": strconv.FormatBool(g.bypass),
	}
	if g.min != nil {
		details["min_total_score_keep"] = strconv.Itoa(*g.min)
	}
	return g.status(details)
}
