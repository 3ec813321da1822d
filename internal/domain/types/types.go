// Package types contains the JSON views served by the HTTP adapter.
package types

import (
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
)

// Participant is the public view of a combatant.
type Participant struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	HP      int      `json:"hp"`
	MaxHP   int      `json:"max_hp"`
	MP      int      `json:"mp"`
	MaxMP   int      `json:"max_mp"`
	Agility int      `json:"agility"`
	Skills  []string `json:"skills,omitempty"`
}

// TimelineEntry is one row of the timeline view. Progress is the share of
// the action threshold reached, Casting the share of the cast completed.
type TimelineEntry struct {
	Participant Participant `json:"participant"`
	Progress    float64     `json:"progress"`
	Casting     float64     `json:"casting,omitempty"`
}

// Timeline is the latest TIMELINE_UPDATE.
type Timeline struct {
	Paused  bool            `json:"paused"`
	Reason  string          `json:"reason,omitempty"`
	Acting  string          `json:"acting,omitempty"`
	Entries []TimelineEntry `json:"entries"`
}

// SkillChoice is the body of POST /battle/skill.
type SkillChoice struct {
	RequestID string `json:"request_id"`
	SkillID   string `json:"skill_id"`
}

// ChoiceAck answers a skill choice. Duplicate is set when the request id was
// already applied.
type ChoiceAck struct {
	RequestID string `json:"request_id"`
	Duplicate bool   `json:"duplicate"`
}

// FromParticipant builds the public view of p.
func FromParticipant(p model.Participant) Participant {
	v := Participant{
		ID:      string(p.ID),
		Name:    p.Name,
		HP:      p.HP,
		MaxHP:   p.MaxHP,
		MP:      p.MP,
		MaxMP:   p.MaxMP,
		Agility: p.Agility,
	}
	for _, s := range p.Skills {
		v.Skills = append(v.Skills, string(s.ID))
	}
	return v
}

// FromTimeline builds the timeline view of u for the given action threshold.
func FromTimeline(u event.TimelineUpdate, threshold float64) Timeline {
	v := Timeline{
		Paused:  u.Control.Paused,
		Reason:  string(u.Control.Reason),
		Entries: make([]TimelineEntry, 0, len(u.Entries)),
	}
	if u.Control.Acting != nil {
		v.Acting = string(u.Control.Acting.ID)
	}
	for _, e := range u.Entries {
		row := TimelineEntry{Participant: FromParticipant(e.Participant)}
		if threshold > 0 {
			row.Progress = clamp(e.CurrentTime / threshold)
		}
		if e.CastingTotal > 0 {
			row.Casting = clamp(1 - e.CastingTime/e.CastingTotal)
		}
		v.Entries = append(v.Entries, row)
	}
	return v
}

func clamp(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
