package timeline

import (
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/internal/domain/model"
)

// Entry is the scheduler's private state for one participant.
//
// Idle entries accumulate CurrentTime; a ready entry chooses; a casting entry
// has SelectedSkill set and counts CastingTime down; a finished cast resolves
// and the entry is reset to idle.
type Entry struct {
	Participant       *model.Participant
	CurrentTime       float64
	IsActing          bool
	NormalizedAgility float64
	SelectedSkill     *model.Skill
	CastingTime       float64
	CastingTotal      float64
}

func (e *Entry) ready(threshold float64) bool {
	return !e.Participant.Defeated() && e.CurrentTime >= threshold && !e.IsActing && e.SelectedSkill == nil
}

func (e *Entry) castComplete() bool {
	return e.SelectedSkill != nil && !e.Participant.Defeated() && e.CastingTime <= 0
}

// castBroken reports a cast whose caster fell before it completed.
func (e *Entry) castBroken() bool {
	return e.SelectedSkill != nil && e.Participant.Defeated()
}

func (e *Entry) advance(step float64) {
	switch {
	case e.Participant.Defeated():
	case e.SelectedSkill != nil:
		e.CastingTime -= step
		e.CurrentTime += step
	case e.IsActing:
	default:
		e.CurrentTime += step * e.NormalizedAgility
	}
}

func (e *Entry) beginCast(skill model.Skill, threshold, casting float64) {
	e.SelectedSkill = &skill
	e.CastingTime = casting
	e.CastingTotal = casting
	e.CurrentTime = threshold
}

func (e *Entry) reset() {
	e.CurrentTime = 0
	e.IsActing = false
	e.SelectedSkill = nil
	e.CastingTime = 0
	e.CastingTotal = 0
}

func (e *Entry) view() event.TimelineEntry {
	return event.TimelineEntry{
		Participant:  e.Participant.Clone(),
		CurrentTime:  e.CurrentTime,
		CastingTime:  e.CastingTime,
		CastingTotal: e.CastingTotal,
	}
}

func normalizeAgility(entries []*Entry) {
	maxAgility := 1
	for _, e := range entries {
		maxAgility = max(maxAgility, e.Participant.Agility)
	}
	for _, e := range entries {
		e.NormalizedAgility = float64(max(e.Participant.Agility, 1)) / float64(maxAgility)
	}
}
