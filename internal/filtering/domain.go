package filtering

import (
	"strconv"

	"github.com/spigell/bioinfo-job-tracker/internal/matcher"
)

var (
	weakSignalSet = matcher.NewSet(weakDomainSignals)
	bioContextSet = matcher.NewSet(bioContextTerms)
)

// domainGate keeps postings with at least one stage-1 signal: a title
// keyword match, a weak domain token in the title, or a weak domain token in
// the description confirmed by a broader biology term.
type domainGate struct {
	gate
}

func newDomainGate() *domainGate {
	return &domainGate{gate: gate{name: "domain"}}
}

func (g *domainGate) Check(c *candidate) (Reason, bool) {
	var reasons []string
	if c.titleMatch {
		reasons = append(reasons, PassTitleMatch)
	}
	weakInTitle := weakSignalSet.Any(c.title)
	weakInDescription := weakSignalSet.Any(c.description) && bioContextSet.Any(c.description)
	if weakInTitle || weakInDescription {
		reasons = append(reasons, PassWeakDomainSignal)
	}
	if len(reasons) == 0 {
		return ReasonNoDomainSignal, true
	}
	c.passReasons = reasons
	return "", false
}

// hardGate enforces hard_gates: the combined text must hit must_have_any
// and at least one domain_gates_any_of group, when those are configured.
type hardGate struct {
	gate
	mustHave matcher.Set
	groups   []matcher.Set
}

func newHardGate(cfg Config) *hardGate {
	g := &hardGate{
		gate:     gate{name: "hard_gates"},
		mustHave: matcher.NewSet(cfg.HardGates.MustHaveAny),
	}
	for _, group := range cfg.HardGates.DomainGatesAnyOf {
		set := matcher.NewSet(group.RequiresAny)
		if !set.Empty() {
			g.groups = append(g.groups, set)
		}
	}
	if g.mustHave.Empty() && len(g.groups) == 0 {
		g.Disable(noRulesReason)
	}
	return g
}

func (g *hardGate) Check(c *candidate) (Reason, bool) {
	if !g.mustHave.Empty() && !g.mustHave.Any(c.text) {
		return ReasonHardGateMissing, true
	}
	if len(g.groups) == 0 {
		return "", false
	}
	for _, group := range g.groups {
		if group.Any(c.text) {
			return "", false
		}
	}
	return ReasonHardGateMissing, true
}

func (g *hardGate) Status() Status {
	return g.status(map[string]string{
		"must_have_any":       strconv.Itoa(g.mustHave.Len()),
		"domain_gates_any_of": strconv.Itoa(len(g.groups)),
	})
}
