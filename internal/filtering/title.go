package filtering

import (
	"strconv"

	"github.com/spigell/bioinfo-job-tracker/internal/matcher"
)

var (
	pipelineSet         = matcher.NewSet(pipelineTokens)
	pipelineBusinessSet = matcher.NewSet(pipelineBusinessTokens)
)

// titleGate drops configured title tokens and commercial "pipeline" roles,
// which are about a drug portfolio rather than data pipelines.
type titleGate struct {
	gate
	exclude matcher.Set
}

func newTitleGate(cfg Config) *titleGate {
	return &titleGate{
		gate:    gate{name: "title"},
		exclude: matcher.NewSet(cfg.Title.ExcludeAny),
	}
}

func (g *titleGate) Check(c *candidate) (Reason, bool) {
	if g.exclude.Any(c.title) {
		return ReasonTitleExclude, true
	}
	if pipelineSet.Any(c.title) && pipelineBusinessSet.Any(c.title) {
		return ReasonTitlePipelineBusiness, true
	}
	return "", false
}

func (g *titleGate) Status() Status {
	return g.status(map[string]string{
		"exclude_any": strconv.Itoa(g.exclude.Len()),
	})
}

type seniorityGate struct {
	gate
	exclude matcher.Set
}

func newSeniorityGate(cfg Config) *seniorityGate {
	g := &seniorityGate{
		gate:    gate{name: "seniority"},
		exclude: matcher.NewSet(cfg.Seniority.ExcludeAny),
	}
	if g.exclude.Empty() {
		g.Disable(noRulesReason)
	}
	return g
}

func (g *seniorityGate) Check(c *candidate) (Reason, bool) {
	if g.exclude.Any(c.title) {
		return ReasonSeniorityExclude, true
	}
	return "", false
}

func (g *seniorityGate) Status() Status {
	return g.status(map[string]string{
		"exclude_any": strconv.Itoa(g.exclude.Len()),
	})
}
