package filtering

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the declarative rule document consumed read-only by the pipeline.
// Every section is optional: an absent or empty section turns the matching
// gate into a pass-through.
type Config struct {
	Location        LocationFilter   `mapstructure:"location_filter" yaml:"location_filter"`
	Title           TitleFilter      `mapstructure:"title_filter" yaml:"title_filter"`
	Seniority       SeniorityFilter  `mapstructure:"seniority_filter" yaml:"seniority_filter"`
	ExperienceTraps ContainsFilter   `mapstructure:"experience_traps" yaml:"experience_traps"`
	Experience      ContainsFilter   `mapstructure:"experience_filter" yaml:"experience_filter"`
	Global          GlobalExclusions `mapstructure:"global_exclusions" yaml:"global_exclusions"`
	HardGates       HardGates        `mapstructure:"hard_gates" yaml:"hard_gates"`
	Scoring         KeywordScoring   `mapstructure:"keyword_scoring" yaml:"keyword_scoring"`
	Temporal        TemporalFilter   `mapstructure:"temporal_filter" yaml:"temporal_filter"`
	Priority        PriorityLogic    `mapstructure:"priority_logic" yaml:"priority_logic"`
}

type LocationFilter struct {
	IncludeAny []string `mapstructure:"include_any" yaml:"include_any,omitempty"`
	ExcludeAny []string `mapstructure:"exclude_any" yaml:"exclude_any,omitempty"`
}

type TitleFilter struct {
	IncludeAny       []string `mapstructure:"include_any" yaml:"include_any,omitempty"`
	StrictIncludeAny []string `mapstructure:"strict_include_any" yaml:"strict_include_any,omitempty"`
	SoftIncludeAny   []string `mapstructure:"soft_include_any" yaml:"soft_include_any,omitempty"`
	ExcludeAny       []string `mapstructure:"exclude_any" yaml:"exclude_any,omitempty"`
}

type SeniorityFilter struct {
	ExcludeAny []string `mapstructure:"exclude_any" yaml:"exclude_any,omitempty"`
}

type ContainsFilter struct {
	ExcludeIfContainsAny []string `mapstructure:"exclude_if_contains_any" yaml:"exclude_if_contains_any,omitempty"`
}

type GlobalExclusions struct {
	ExcludeIfContainsAny      []string `mapstructure:"exclude_if_contains_any" yaml:"exclude_if_contains_any,omitempty"`
	EmploymentTypeExcludesAny []string `mapstructure:"employment_type_excludes_any" yaml:"employment_type_excludes_any,omitempty"`
}

type HardGates struct {
	MustHaveAny      []string     `mapstructure:"must_have_any" yaml:"must_have_any,omitempty"`
	DomainGatesAnyOf []DomainGate `mapstructure:"domain_gates_any_of" yaml:"domain_gates_any_of,omitempty"`
}

type DomainGate struct {
	RequiresAny []string `mapstructure:"requires_any" yaml:"requires_any,omitempty"`
}

type KeywordScoring struct {
	Strong           []string         `mapstructure:"strong" yaml:"strong,omitempty"`
	Medium           []string         `mapstructure:"medium" yaml:"medium,omitempty"`
	NiceToHave       []string         `mapstructure:"nice_to_have" yaml:"nice_to_have,omitempty"`
	Weights          Weights          `mapstructure:"weights" yaml:"weights"`
	NegativeKeywords NegativeKeywords `mapstructure:"negative_keywords" yaml:"negative_keywords"`
	Thresholds       Thresholds       `mapstructure:"thresholds" yaml:"thresholds"`
}

type Weights struct {
	Strong     int `mapstructure:"strong" yaml:"strong"`
	Medium     int `mapstructure:"medium" yaml:"medium"`
	NiceToHave int `mapstructure:"nice_to_have" yaml:"nice_to_have"`
}

type NegativeKeywords struct {
	HighPenalty    []string       `mapstructure:"high_penalty" yaml:"high_penalty,omitempty"`
	MediumPenalty  []string       `mapstructure:"medium_penalty" yaml:"medium_penalty,omitempty"`
	PenaltyWeights PenaltyWeights `mapstructure:"penalty_weights" yaml:"penalty_weights"`
}

// PenaltyWeights are added to the score as-is, so they are normally negative.
type PenaltyWeights struct {
	HighPenalty   int `mapstructure:"high_penalty" yaml:"high_penalty"`
	MediumPenalty int `mapstructure:"medium_penalty" yaml:"medium_penalty"`
}

type Thresholds struct {
	MinTotalScoreKeep *int `mapstructure:"min_total_score_keep" yaml:"min_total_score_keep,omitempty"`
	// IncludeTitleBypassesMinScore keeps postings whose title matched an
	// include keyword even when they score below MinTotalScoreKeep.
	IncludeTitleBypassesMinScore bool `mapstructure:"include_title_bypasses_min_score" yaml:"include_title_bypasses_min_score"`
}

type TemporalFilter struct {
	HardExcludeOlderThanDays *int `mapstructure:"hard_exclude_older_than_days" yaml:"hard_exclude_older_than_days,omitempty"`
	MaxPostingAgeDays        *int `mapstructure:"max_posting_age_days" yaml:"max_posting_age_days,omitempty"`
}

type PriorityLogic struct {
	FreshPostingBonus     FreshPostingBonus `mapstructure:"fresh_posting_bonus" yaml:"fresh_posting_bonus"`
	TitleStrictMatchBonus int               `mapstructure:"title_strict_match_bonus" yaml:"title_strict_match_bonus"`
}

type FreshPostingBonus struct {
	Days0To3   int `mapstructure:"days_0_to_3" yaml:"days_0_to_3"`
	Days4To7   int `mapstructure:"days_4_to_7" yaml:"days_4_to_7"`
	OlderThan7 int `mapstructure:"older_than_7" yaml:"older_than_7"`
}

// LoadConfig reads a JSON or YAML rule document. Keys that do not belong to
// any known section are reported as warnings rather than failing the load.
func LoadConfig(path string) (*Config, []string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("reading filter config %q: %w", path, err)
	}

	cfg, unused, err := DecodeConfig(v.AllSettings())
	if err != nil {
		return nil, nil, fmt.Errorf("decoding filter config %q: %w", path, err)
	}

	warnings := make([]string, 0, len(unused))
	for _, key := range unused {
		warnings = append(warnings, fmt.Sprintf("unknown filter config key %q is ignored", key))
	}
	return cfg, warnings, nil
}

// DecodeConfig decodes an already parsed document and returns the keys it
// did not recognize.
func DecodeConfig(settings map[string]any) (*Config, []string, error) {
	cfg := &Config{}
	var md mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         &md,
		Result:           cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := decoder.Decode(settings); err != nil {
		return nil, nil, err
	}

	sort.Strings(md.Unused)
	return cfg, md.Unused, nil
}

// Normalize returns a copy with every token list trimmed and deduplicated
// case-insensitively.
func (c Config) Normalize() Config {
	out := c
	out.Location.IncludeAny = trimList(c.Location.IncludeAny)
	out.Location.ExcludeAny = trimList(c.Location.ExcludeAny)
	out.Title.IncludeAny = trimList(c.Title.IncludeAny)
	out.Title.StrictIncludeAny = trimList(c.Title.StrictIncludeAny)
	out.Title.SoftIncludeAny = trimList(c.Title.SoftIncludeAny)
	out.Title.ExcludeAny = trimList(c.Title.ExcludeAny)
	out.Seniority.ExcludeAny = trimList(c.Seniority.ExcludeAny)
	out.ExperienceTraps.ExcludeIfContainsAny = trimList(c.ExperienceTraps.ExcludeIfContainsAny)
	out.Experience.ExcludeIfContainsAny = trimList(c.Experience.ExcludeIfContainsAny)
	out.Global.ExcludeIfContainsAny = trimList(c.Global.ExcludeIfContainsAny)
	out.Global.EmploymentTypeExcludesAny = trimList(c.Global.EmploymentTypeExcludesAny)
	out.HardGates.MustHaveAny = trimList(c.HardGates.MustHaveAny)
	out.Scoring.Strong = trimList(c.Scoring.Strong)
	out.Scoring.Medium = trimList(c.Scoring.Medium)
	out.Scoring.NiceToHave = trimList(c.Scoring.NiceToHave)
	out.Scoring.NegativeKeywords.HighPenalty = trimList(c.Scoring.NegativeKeywords.HighPenalty)
	out.Scoring.NegativeKeywords.MediumPenalty = trimList(c.Scoring.NegativeKeywords.MediumPenalty)

	out.HardGates.DomainGatesAnyOf = nil
	for _, g := range c.HardGates.DomainGatesAnyOf {
		tokens := trimList(g.RequiresAny)
		if len(tokens) == 0 {
			continue
		}
		out.HardGates.DomainGatesAnyOf = append(out.HardGates.DomainGatesAnyOf, DomainGate{RequiresAny: tokens})
	}
	return out
}

// Validate returns human readable warnings about settings that are legal but
// probably not what the operator meant.
func (c Config) Validate() []string {
	var warnings []string
	addWarn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	t := c.Temporal
	if t.HardExcludeOlderThanDays != nil && *t.HardExcludeOlderThanDays < 0 {
		addWarn("temporal_filter.hard_exclude_older_than_days is negative (%d); every dated posting will be dropped", *t.HardExcludeOlderThanDays)
	}
	if t.MaxPostingAgeDays != nil && *t.MaxPostingAgeDays < 0 {
		addWarn("temporal_filter.max_posting_age_days is negative (%d); every dated posting will be dropped", *t.MaxPostingAgeDays)
	}
	if t.HardExcludeOlderThanDays != nil && t.MaxPostingAgeDays != nil && *t.MaxPostingAgeDays > *t.HardExcludeOlderThanDays {
		addWarn("temporal_filter.max_posting_age_days (%d) is larger than hard_exclude_older_than_days (%d) and never applies",
			*t.MaxPostingAgeDays, *t.HardExcludeOlderThanDays)
	}

	s := c.Scoring
	if s.Weights.Strong < 0 || s.Weights.Medium < 0 || s.Weights.NiceToHave < 0 {
		addWarn("keyword_scoring.weights contains a negative weight; use negative_keywords for penalties")
	}
	if len(s.Strong)+len(s.Medium)+len(s.NiceToHave) > 0 && s.Weights == (Weights{}) {
		addWarn("keyword_scoring lists keywords but all weights are zero")
	}
	if s.NegativeKeywords.PenaltyWeights.HighPenalty > 0 || s.NegativeKeywords.PenaltyWeights.MediumPenalty > 0 {
		addWarn("keyword_scoring.negative_keywords.penalty_weights are added to the score; positive values reward the keywords")
	}
	if s.Thresholds.IncludeTitleBypassesMinScore && s.Thresholds.MinTotalScoreKeep == nil {
		addWarn("keyword_scoring.thresholds.include_title_bypasses_min_score has no effect without min_total_score_keep")
	}

	exclude := make(map[string]bool)
	for _, token := range c.Title.ExcludeAny {
		exclude[strings.ToLower(token)] = true
	}
	for _, token := range c.Title.IncludeAny {
		if exclude[strings.ToLower(token)] {
			addWarn("title token appears in both include_any and exclude_any: %q", token)
		}
	}

	return warnings
}

func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}
