package filtering

import "strconv"

// temporalGate only judges postings whose age is computable; undated
// postings always pass.
type temporalGate struct {
	gate
	hard *int
	max  *int
}

func newTemporalGate(cfg Config) *temporalGate {
	g := &temporalGate{
		gate: gate{name: "temporal"},
		hard: cfg.Temporal.HardExcludeOlderThanDays,
		max:  cfg.Temporal.MaxPostingAgeDays,
	}
	if g.hard == nil && g.max == nil {
		g.Disable(noRulesReason)
	}
	return g
}

func (g *temporalGate) Check(c *candidate) (Reason, bool) {
	if !c.hasAge {
		return "", false
	}
	if g.hard != nil && c.age > *g.hard {
		return ReasonTooOldHard, true
	}
	if g.max != nil && c.age > *g.max {
		return ReasonTooOld, true
	}
	return "", false
}

func (g *temporalGate) Status() Status {
	details := map[string]string{}
	if g.hard != nil {
		details["hard_exclude_older_than_days"] = strconv.Itoa(*g.hard)
	}
	if g.max != nil {
		details["max_posting_age_days"] = strconv.Itoa(*g.max)
	}
	return g.status(details)
}
