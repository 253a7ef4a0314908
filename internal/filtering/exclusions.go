package filtering

import (
	"strconv"

	"github.com/spigell/bioinfo-job-tracker/internal/matcher"
)

// experienceGate applies experience_traps and experience_filter as one list
// over the combined title, location and description text.
type experienceGate struct {
	gate
	traps  matcher.Set
	filter matcher.Set
}

func newExperienceGate(cfg Config) *experienceGate {
	g := &experienceGate{
		gate:   gate{name: "experience"},
		traps:  matcher.NewSet(cfg.ExperienceTraps.ExcludeIfContainsAny),
		filter: matcher.NewSet(cfg.Experience.ExcludeIfContainsAny),
	}
	if g.traps.Empty() && g.filter.Empty() {
		g.Disable(noRulesReason)
	}
	return g
}

func (g *experienceGate) Check(c *candidate) (Reason, bool) {
	if g.traps.Any(c.text) || g.filter.Any(c.text) {
		return ReasonExperienceExclude, true
	}
	return "", false
}

func (g *experienceGate) Status() Status {
	return g.status(map[string]string{
		"experience_traps":  strconv.Itoa(g.traps.Len()),
		"experience_filter": strconv.Itoa(g.filter.Len()),
	})
}

type globalGate struct {
	gate
	exclude    matcher.Set
	employment matcher.Set
}

func newGlobalGate(cfg Config) *globalGate {
	g := &globalGate{
		gate:       gate{name: "global"},
		exclude:    matcher.NewSet(cfg.Global.ExcludeIfContainsAny),
		employment: matcher.NewSet(cfg.Global.EmploymentTypeExcludesAny),
	}
	if g.exclude.Empty() && g.employment.Empty() {
		g.Disable(noRulesReason)
	}
	return g
}

func (g *globalGate) Check(c *candidate) (Reason, bool) {
	if g.exclude.Any(c.text) {
		return ReasonGlobalExclude, true
	}
	if g.employment.Any(c.text) {
		return ReasonEmploymentExclude, true
	}
	return "", false
}

func (g *globalGate) Status() Status {
	return g.status(map[string]string{
		"exclude_if_contains_any":      strconv.Itoa(g.exclude.Len()),
		"employment_type_excludes_any": strconv.Itoa(g.employment.Len()),
	})
}
