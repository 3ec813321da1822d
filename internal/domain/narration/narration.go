// Package narration turns battle announcements into prose.
//
// The generators only pick and fill templates; typing the text out and
// acknowledging the scheduler is the narrator adapter's job.
package narration

import (
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/okian/xianxia/internal/domain/model"
)

// Style is the tone of a skill-use line.
type Style string

// Skill-use styles.
const (
	StyleNoPower   Style = "no_power"
	StyleNormal    Style = "normal"
	StylePowerful  Style = "powerful"
	StyleDesperate Style = "desperate"
)

// Severity grades a hit relative to the target's maximum HP.
type Severity string

// Damage severities.
const (
	SeverityLight  Severity = "light"
	SeverityMedium Severity = "medium"
	SeverityHeavy  Severity = "heavy"
)

const (
	endVictory = "victory"
	endDraw    = "draw"

	desperateMPRatio = 0.3
	powerfulCost     = 30
	mediumRatio      = 0.15
	heavyRatio       = 0.3

	// EnvironmentJoin separates the weather and time-of-day clauses.
	EnvironmentJoin = ", "
)

// SkillStyle picks the tone for a skill-use line.
func SkillStyle(from model.Participant, skill model.Skill, success bool) Style {
	switch {
	case !success:
		return StyleNoPower
	case from.MPRatio() < desperateMPRatio:
		return StyleDesperate
	case skill.Cost > powerfulCost:
		return StylePowerful
	default:
		return StyleNormal
	}
}

// DamageSeverity grades damage against maxHP.
func DamageSeverity(damage, maxHP int) Severity {
	if maxHP <= 0 {
		return SeverityHeavy
	}
	r := float64(damage) / float64(maxHP)
	switch {
	case r > heavyRatio:
		return SeverityHeavy
	case r > mediumRatio:
		return SeverityMedium
	default:
		return SeverityLight
	}
}

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Generator picks templates at random. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed makes template picks reproducible. Zero keeps the time-based seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		if seed != 0 {
			g.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // flavor text
		}
	}
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))} //nolint:gosec // flavor text
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Environment describes the scene a battle opens in.
func (g *Generator) Environment() string {
	weather := g.pick(weatherTemplates[g.key(weatherTemplates)])
	tod := g.pick(timeOfDayTemplates[g.key(timeOfDayTemplates)])
	return Sentence(weather + EnvironmentJoin + tod)
}

// SkillUse describes an attempt by from.
func (g *Generator) SkillUse(from model.Participant, skill model.Skill, success bool) string {
	t := g.pick(skillTemplates[SkillStyle(from, skill, success)])
	return Sentence(Format(t, map[string]string{
		"characterName": DisplayName(from),
		"skillName":     skill.Name,
	}))
}

// Damage describes a hit on to.
func (g *Generator) Damage(to model.Participant, damage int) string {
	t := g.pick(damageTemplates[DamageSeverity(damage, to.MaxHP)])
	return Sentence(Format(t, map[string]string{
		"targetName": DisplayName(to),
		"damage":     strconv.Itoa(damage),
	}))
}

// BattleEnd describes the end of a battle. A nil winner is a draw.
func (g *Generator) BattleEnd(winner *model.Participant) string {
	if winner == nil {
		return Sentence(g.pick(endTemplates[endDraw]))
	}
	return Sentence(Format(g.pick(endTemplates[endVictory]), map[string]string{
		"winnerName": DisplayName(*winner),
	}))
}

func (g *Generator) pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return pool[g.rng.Intn(len(pool))]
}

// key picks a random key; keys are sorted first so a seed fixes the result.
func (g *Generator) key(m map[string][]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return g.pick(keys)
}

// Format replaces {name} placeholders. Unknown names become empty.
func Format(template string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		return vars[m[1:len(m)-1]]
	})
}
