// Package catalog holds the skill and character definitions battles are
// built from.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/okian/xianxia/internal/domain/model"
)

// Well-known ids of the built-in catalog.
const (
	PlayerID     model.ParticipantID = "player"
	IronMountain model.ParticipantID = "tie_quan"
)

//go:embed catalog.yaml
var builtin []byte

// Character is the static definition a battle participant is packed from.
type Character struct {
	ID       model.ParticipantID `yaml:"id" json:"id"`
	Name     string              `yaml:"name" json:"name"`
	Age      int                 `yaml:"age" json:"age,omitempty"`
	LifeSpan int                 `yaml:"life_span" json:"life_span,omitempty"`
	HP       int                 `yaml:"hp" json:"hp"`
	MP       int                 `yaml:"mp" json:"mp"`
	Attack   int                 `yaml:"attack" json:"attack"`
	Defense  int                 `yaml:"defense" json:"defense"`
	Agility  int                 `yaml:"agility" json:"agility"`
	Skills   []model.SkillID     `yaml:"skills" json:"skills"`
}

type document struct {
	Skills     []model.Skill `yaml:"skills"`
	Characters []Character   `yaml:"characters"`
}

// Catalog is a validated set of skills and characters. Lookups return
// copies; only Rename mutates it.
type Catalog struct {
	mu         sync.RWMutex
	skills     map[model.SkillID]model.Skill
	characters map[model.ParticipantID]Character
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return c
}

// LoadFile reads a YAML catalog and layers it over the built-in one:
// entries with a known id replace the built-in entry, others are added.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, path, err)
	}

	base := Default()
	for _, s := range doc.Skills {
		base.skills[s.ID] = s
	}
	for _, ch := range doc.Characters {
		base.characters[ch.ID] = ch
	}
	if err := base.validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return base, nil
}

// Parse builds a catalog from YAML alone.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	c := &Catalog{
		skills:     make(map[model.SkillID]model.Skill, len(doc.Skills)),
		characters: make(map[model.ParticipantID]Character, len(doc.Characters)),
	}
	for _, s := range doc.Skills {
		if _, dup := c.skills[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate skill %q", ErrInvalidCatalog, s.ID)
		}
		c.skills[s.ID] = s
	}
	for _, ch := range doc.Characters {
		if _, dup := c.characters[ch.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate character %q", ErrInvalidCatalog, ch.ID)
		}
		c.characters[ch.ID] = ch
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	for id, s := range c.skills {
		if id == "" {
			return fmt.Errorf("%w: skill without id", ErrInvalidCatalog)
		}
		if s.Cost < 0 || s.Damage < 0 {
			return fmt.Errorf("%w: skill %q has negative cost or damage", ErrInvalidCatalog, id)
		}
	}
	for id, ch := range c.characters {
		if id == "" {
			return fmt.Errorf("%w: character without id", ErrInvalidCatalog)
		}
		if ch.HP <= 0 {
			return fmt.Errorf("%w: character %q needs positive hp", ErrInvalidCatalog, id)
		}
		for _, sid := range ch.Skills {
			if _, ok := c.skills[sid]; !ok {
				return fmt.Errorf("character %q: %w: %s", id, ErrUnknownSkill, sid)
			}
		}
	}
	return nil
}

// Skill returns the skill with id.
func (c *Catalog) Skill(id model.SkillID) (model.Skill, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.skills[id]
	if !ok {
		return model.Skill{}, fmt.Errorf("%w: %s", ErrUnknownSkill, id)
	}
	return s, nil
}

// Skills returns every skill ordered by id.
func (c *Catalog) Skills() []model.Skill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Skill, 0, len(c.skills))
	for _, s := range c.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Character returns the definition with id.
func (c *Catalog) Character(id model.ParticipantID) (Character, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.characters[id]
	if !ok {
		return Character{}, fmt.Errorf("%w: %s", ErrUnknownCharacter, id)
	}
	ch.Skills = append([]model.SkillID(nil), ch.Skills...)
	return ch, nil
}

// Participant packs the character with id for battle, pools full.
func (c *Catalog) Participant(id model.ParticipantID) (model.Participant, error) {
	ch, err := c.Character(id)
	if err != nil {
		return model.Participant{}, err
	}
	skills := make([]model.Skill, 0, len(ch.Skills))
	for _, sid := range ch.Skills {
		s, err := c.Skill(sid)
		if err != nil {
			return model.Participant{}, fmt.Errorf("pack %s: %w", id, err)
		}
		skills = append(skills, s)
	}
	return model.Participant{
		ID:      ch.ID,
		Name:    ch.Name,
		HP:      ch.HP,
		MaxHP:   ch.HP,
		MP:      ch.MP,
		MaxMP:   ch.MP,
		Attack:  ch.Attack,
		Defense: ch.Defense,
		Agility: ch.Agility,
		Skills:  skills,
	}, nil
}

// Rename changes the display name of a character.
func (c *Catalog) Rename(id model.ParticipantID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.characters[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCharacter, id)
	}
	ch.Name = name
	c.characters[id] = ch
	return nil
}
