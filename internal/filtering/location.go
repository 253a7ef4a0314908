package filtering

import (
	"strconv"
	"strings"

	"github.com/spigell/bioinfo-job-tracker/internal/matcher"
)

var (
	usCountrySet = matcher.NewSet(usCountryTokens)
	remoteSet    = matcher.NewSet(remoteTokens)
	nonUSSet     = matcher.NewSet(nonUSLocationTokens)
)

// isUSLocation is a best-effort check that a raw location string points at
// the United States.
func isUSLocation(raw string) bool {
	value := matcher.Normalize(raw)
	if value == "" {
		return false
	}
	if usCountrySet.Any(value) {
		return true
	}
	if remoteSet.Any(value) && !nonUSSet.Any(value) {
		return true
	}
	if hasStateSuffix(raw) {
		return true
	}
	return matcher.Match("DC", value)
}

// hasStateSuffix matches "City, ST" where ST is a US state abbreviation,
// tolerating dots and a trailing ZIP code ("Boston, M.A. 02115").
func hasStateSuffix(raw string) bool {
	i := strings.LastIndex(raw, ",")
	if i < 0 {
		return false
	}
	fields := strings.Fields(strings.ReplaceAll(raw[i+1:], ".", ""))
	if len(fields) == 0 {
		return false
	}
	_, ok := usStates[strings.ToUpper(fields[0])]
	return ok
}

type locationGate struct {
	gate
	exclude matcher.Set
}

func newLocationGate(cfg Config) *locationGate {
	return &locationGate{
		gate:    gate{name: "location"},
		exclude: matcher.NewSet(cfg.Location.ExcludeAny),
	}
}

func (g *locationGate) Check(c *candidate) (Reason, bool) {
	if g.exclude.Any(c.text) {
		return ReasonLocationExclude, true
	}
	if c.location != "" && nonUSSet.Any(c.location) && !isUSLocation(c.raw.Location) {
		return ReasonLocationNonUS, true
	}
	return "", false
}

func (g *locationGate) Status() Status {
	return g.status(map[string]string{
		"exclude_any": strconv.Itoa(g.exclude.Len()),
	})
}
