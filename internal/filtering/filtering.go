package filtering

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/bioinfo-job-tracker/internal/posting"
)

// Gate represents a single step of the relevance pipeline. A gate either
// rejects a candidate with a reason or lets it through, possibly annotating it.
type Gate interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Check(c *candidate) (Reason, bool)
}

// Status represents runtime information about a gate.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by gates that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// gate carries the bookkeeping shared by every Gate implementation.
type gate struct {
	name     string
	disabled bool
	reason   string
}

func (g *gate) Name() string { return g.name }

func (g *gate) Disable(reason string) {
	g.disabled = true
	g.reason = reason
}

func (g *gate) IsEnabled() bool { return !g.disabled }

func (g *gate) status(details map[string]string) Status {
	return Status{Name: g.name, Enabled: !g.disabled, Reason: g.reason, Details: details}
}

const noRulesReason = "no rules configured"

// DisableByName marks a gate with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Gate, name, reason string) bool {
	found := false
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
			found = true
		}
	}
	return found
}

// Describe returns status entries for the provided gates.
func Describe(steps []Gate) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// Pipeline evaluates postings against one FilterConfig. It holds no state
// between runs, so the same Pipeline can re-filter a growing posting set.
type Pipeline struct {
	cfg     Config
	signals signals
	gates   []Gate
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Pipeline)

// WithLogger sets the logger used for per-gate step logs.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the clock used to compute posting age.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New builds the gate sequence for cfg. A nil cfg is the empty document, in
// which case only the built-in rules apply.
func New(cfg *Config, opts ...Option) *Pipeline {
	var c Config
	if cfg != nil {
		c = cfg.Normalize()
	}

	p := &Pipeline{
		cfg:     c,
		signals: newSignals(c),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.gates = []Gate{
		newLocationGate(c),
		newTitleGate(c),
		newSeniorityGate(c),
		newExperienceGate(c),
		newGlobalGate(c),
		newDomainGate(),
		newHardGate(c),
		newTemporalGate(c),
		newScorer(c),
		newMinScoreGate(c),
	}
	return p
}

// Describe reports the status of every gate.
func (p *Pipeline) Describe() []Status {
	return Describe(p.gates)
}

// Disable turns the named gate into a pass-through. It reports whether such a gate exists.
func (p *Pipeline) Disable(name, reason string) bool {
	return DisableByName(p.gates, name, reason)
}

// Run filters postings. Gates are applied in order over the surviving set and
// the first rejecting gate decides the drop reason. Kept and dropped results
// both follow input order. Malformed postings are counted but never reach a
// gate.
func (p *Pipeline) Run(postings []posting.RawPosting) *Outcome {
	out := &Outcome{Histogram: make(map[Reason]int)}
	now := p.now()

	live := make([]*candidate, 0, len(postings))
	for i, raw := range postings {
		if err := raw.Validate(); err != nil {
			out.Malformed++
			out.Histogram[ReasonMalformed]++
			p.logger.Debug("skipping malformed posting",
				zap.String("source", raw.Source),
				zap.String("company", raw.Company),
				zap.Error(err),
			)
			continue
		}
		live = append(live, newCandidate(raw, i, now, p.signals))
	}

	for _, step := range p.gates {
		if !step.IsEnabled() {
			p.logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		initial := len(live)
		next := make([]*candidate, 0, initial)
		for _, c := range live {
			reason, drop := step.Check(c)
			if !drop {
				next = append(next, c)
				continue
			}
			res := newResult(c.raw, c.index)
			res.Stage1DropReason = reason
			out.Dropped = append(out.Dropped, res)
			out.Histogram[reason]++
		}
		live = next

		info := Step{Name: step.Name(), Initial: initial, Dropped: initial - len(live), Left: len(live)}
		out.Steps = append(out.Steps, info)
		p.logger.Info("filter step",
			zap.String("name", info.Name),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
	}

	// report drops in input order, not grouped by gate
	sort.SliceStable(out.Dropped, func(i, j int) bool {
		return out.Dropped[i].Index < out.Dropped[j].Index
	})

	out.Kept = make([]Result, 0, len(live))
	for _, c := range live {
		res := c.result()
		out.Kept = append(out.Kept, res)
		p.logger.Debug("posting scored",
			zap.String("company", res.Company),
			zap.String("job_title", res.JobTitle),
			zap.Int("score", res.Score),
			zap.Strings("keyword_hits", c.keywordHits),
		)
	}
	return out
}
