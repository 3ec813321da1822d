// Package policy chooses skills for computer-controlled participants.
package policy

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/pkg/logger"
	"github.com/okian/xianxia/pkg/metrics"
)

// Default policy configuration constants.
const (
	defaultThinkDelay       = time.Second
	defaultTopN             = 3
	defaultDamageWeight     = 1.5
	defaultEfficiencyWeight = 1.0
	defaultCounterWeight    = 0.8

	lowHealthRatio      = 0.3
	finishingRatio      = 0.2
	counterMultiplier   = 1.5
	finishingMultiplier = 1.2

	// Unusable marks a skill the participant cannot pay for.
	Unusable = -1.0
)

// Context is what the policy sees when choosing.
type Context struct {
	Self     model.Participant
	Opponent model.Participant
}

// Policy selects a skill. Implementations must always return a skill unless
// ctx ends first.
type Policy interface {
	SelectSkill(ctx context.Context, c Context) (model.Skill, error)
}

// Weights tune the scoring terms.
type Weights struct {
	Damage     float64
	Efficiency float64
	Counter    float64
}

// DefaultWeights returns the tuned weights.
func DefaultWeights() Weights {
	return Weights{Damage: defaultDamageWeight, Efficiency: defaultEfficiencyWeight, Counter: defaultCounterWeight}
}

// Scored pairs a skill with its score.
type Scored struct {
	Skill model.Skill
	Score float64
}

// WeightedPolicy scores every skill and picks uniformly among the best few.
type WeightedPolicy struct {
	weights    Weights
	thinkDelay time.Duration
	topN       int

	mu  sync.Mutex
	rng *rand.Rand

	logger logger.Logger
}

// Option applies a configuration option to the WeightedPolicy.
type Option func(*WeightedPolicy)

// WithWeights overrides the scoring weights.
func WithWeights(w Weights) Option {
	return func(p *WeightedPolicy) { p.weights = w }
}

// WithThinkDelay sets the artificial delay before answering. Zero disables it.
func WithThinkDelay(d time.Duration) Option {
	return func(p *WeightedPolicy) {
		if d >= 0 {
			p.thinkDelay = d
		}
	}
}

// WithTopN sets how many of the best skills are candidates.
func WithTopN(n int) Option {
	return func(p *WeightedPolicy) {
		if n > 0 {
			p.topN = n
		}
	}
}

// WithSeed makes choices reproducible. Zero keeps the time-based seed.
func WithSeed(seed int64) Option {
	return func(p *WeightedPolicy) {
		if seed != 0 {
			p.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // gameplay randomness
		}
	}
}

// WithLogger sets a custom logger for the policy.
func WithLogger(l logger.Logger) Option {
	return func(p *WeightedPolicy) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewWeighted creates a WeightedPolicy with defaults.
func NewWeighted(opts ...Option) *WeightedPolicy {
	p := &WeightedPolicy{
		weights:    DefaultWeights(),
		thinkDelay: defaultThinkDelay,
		topN:       defaultTopN,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // gameplay randomness
		logger:     logger.Get().Named("policy"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SelectSkill waits the think delay, then picks one of the top scored skills.
// With no usable candidate it returns Fallback(c.Self.Skills).
func (p *WeightedPolicy) SelectSkill(ctx context.Context, c Context) (model.Skill, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDecisionLatency(float64(time.Since(start).Milliseconds()))
	}()

	if p.thinkDelay > 0 {
		timer := time.NewTimer(p.thinkDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return model.Skill{}, fmt.Errorf("select skill: %w", ctx.Err())
		case <-timer.C:
		}
	}

	ranked := p.Rank(c)
	if len(ranked) == 0 {
		fb := Fallback(c.Self.Skills)
		metrics.RecordDecisionFallback()
		p.logger.Debug(ctx, "no usable skill, falling back",
			logger.String("participant", string(c.Self.ID)),
			logger.String("skill", string(fb.ID)),
		)
		return fb, nil
	}

	n := min(p.topN, len(ranked))
	p.mu.Lock()
	pick := ranked[p.rng.Intn(n)]
	p.mu.Unlock()
	return pick.Skill, nil
}

// Rank returns usable skills with their scores, best first. Ties keep list order.
func (p *WeightedPolicy) Rank(c Context) []Scored {
	out := make([]Scored, 0, len(c.Self.Skills))
	for _, s := range c.Self.Skills {
		score := p.Score(c, s)
		if score >= 0 {
			out = append(out, Scored{Skill: s, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Score rates one skill in context. Unaffordable skills score Unusable; a
// free damaging skill scores +Inf.
func (p *WeightedPolicy) Score(c Context, s model.Skill) float64 {
	if !s.Affordable(c.Self.MP) {
		return Unusable
	}
	var score float64
	if s.HasDamage() {
		if s.Cost == 0 {
			score += math.Inf(1)
		} else {
			score += float64(s.Damage) / float64(s.Cost) * p.weights.Damage
		}
	}
	if c.Self.MaxMP > 0 {
		score += (1 - float64(s.Cost)/float64(c.Self.MaxMP)) * p.weights.Efficiency
	}
	if c.Self.HPRatio() < lowHealthRatio && s.Effect == model.EffectCounter {
		score += p.weights.Counter * counterMultiplier
	}
	if c.Opponent.HPRatio() < finishingRatio && s.HasDamage() {
		score += p.weights.Damage * finishingMultiplier
	}
	return score
}

// Fallback returns the first zero-cost skill in list order, or model.PassSkill
// when the participant has none.
func Fallback(skills []model.Skill) model.Skill {
	for _, s := range skills {
		if s.Cost == 0 {
			return s
		}
	}
	return model.PassSkill
}
