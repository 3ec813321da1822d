// Package model holds the combat domain entities shared by the scheduler,
// the decision policy and the narration layer.
package model

// ParticipantID identifies a combatant within one battle.
type ParticipantID string

// Participant is one combatant. HP may go below zero; anything at or under
// zero reads as defeated.
type Participant struct {
	ID      ParticipantID `json:"id" yaml:"id"`
	Name    string        `json:"name" yaml:"name"`
	HP      int           `json:"hp" yaml:"hp"`
	MaxHP   int           `json:"max_hp" yaml:"max_hp"`
	MP      int           `json:"mp" yaml:"mp"`
	MaxMP   int           `json:"max_mp" yaml:"max_mp"`
	Attack  int           `json:"attack" yaml:"attack"`
	Defense int           `json:"defense" yaml:"defense"`
	Agility int           `json:"agility" yaml:"agility"`
	Skills  []Skill       `json:"skills" yaml:"-"`
}

// Defeated reports whether the participant is out of the fight.
func (p *Participant) Defeated() bool { return p.HP <= 0 }

// HPRatio is HP over MaxHP, or 0 when MaxHP is not positive.
func (p *Participant) HPRatio() float64 { return ratio(p.HP, p.MaxHP) }

// MPRatio is MP over MaxMP, or 0 when MaxMP is not positive.
func (p *Participant) MPRatio() float64 { return ratio(p.MP, p.MaxMP) }

// Skill returns the participant's own copy of the skill with id.
func (p *Participant) Skill(id SkillID) (*Skill, bool) {
	for i := range p.Skills {
		if p.Skills[i].ID == id {
			return &p.Skills[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy safe to hand to other goroutines.
func (p *Participant) Clone() Participant {
	c := *p
	c.Skills = append([]Skill(nil), p.Skills...)
	return c
}

func ratio(v, maxV int) float64 {
	if maxV <= 0 {
		return 0
	}
	return float64(v) / float64(maxV)
}

// Outcome is the result of the end-of-battle check. Winner is nil on a draw
// or while the battle is still running.
type Outcome struct {
	Ended  bool
	Winner *Participant
}

// Draw reports an ended battle with no survivor.
func (o Outcome) Draw() bool { return o.Ended && o.Winner == nil }
