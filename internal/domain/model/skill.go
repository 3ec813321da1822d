package model

// SkillID identifies a skill in the catalog.
type SkillID string

// Effect tags used by the decision policy.
const (
	EffectCounter = "counter"
	EffectDefense = "defense"
)

// Skill is an action a participant may take. Damage 0 means a utility skill
// that deals no damage. Cooldown is a plain counter decremented on each use.
type Skill struct {
	ID          SkillID `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description"`
	Cost        int     `json:"cost" yaml:"cost"`
	Damage      int     `json:"damage,omitempty" yaml:"damage"`
	Effect      string  `json:"effect,omitempty" yaml:"effect"`
	Cooldown    int     `json:"cooldown,omitempty" yaml:"cooldown"`
	SuccessRate float64 `json:"success_rate,omitempty" yaml:"success_rate"`
	HPRecover   int     `json:"hp_recover,omitempty" yaml:"hp_recover"`
	MPRecover   int     `json:"mp_recover,omitempty" yaml:"mp_recover"`
}

// HasDamage reports whether the skill deals damage.
func (s Skill) HasDamage() bool { return s.Damage > 0 }

// Affordable reports whether mp covers the cost.
func (s Skill) Affordable(mp int) bool { return s.Cost <= mp }

// PassSkill is chosen when a participant has nothing else to do.
var PassSkill = Skill{
	ID:          "pass",
	Name:        "Steady Breath",
	Description: "Holds position and gathers qi.",
}
