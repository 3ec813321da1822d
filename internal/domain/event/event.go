// Package event defines the closed vocabulary carried by the coordination bus.
//
// Every kind has exactly one payload struct. The Event interface carries an
// unexported method, so no type outside this package can become an event and
// a type switch over the structs below is exhaustive.
package event

import "github.com/okian/xianxia/internal/domain/model"

// Kind names an event variant on the wire and in logs/metrics.
type Kind string

// Lifecycle and navigation.
const (
	KindUserSetName     Kind = "USER_SET_NAME"
	KindUserSelectSkill Kind = "USER_SELECT_SKILL"
	KindAppendBattleLog Kind = "APPEND_BATTLE_LOG"
	KindStageSwitch     Kind = "STAGE_SWITCH"
)

// Battle lifecycle.
const (
	KindBattleStart        Kind = "BATTLE_START"
	KindSkillUse           Kind = "SKILL_USE"
	KindSkillUseDescEnd    Kind = "SKILL_USE_DESC_END"
	KindDamageDealt        Kind = "DAMAGE_DEALT"
	KindDamageDealtDescEnd Kind = "DAMAGE_DEALT_DESC_END"
	KindBattleEnd          Kind = "BATTLE_END"
	KindBattleEndDescEnd   Kind = "BATTLE_END_DESC_END"
	KindBattleEndResult    Kind = "BATTLE_END_RESULT"
	KindNextActor          Kind = "NEXT_CHARACTER_TO_ACT"
	KindTimelineUpdate     Kind = "TIMELINE_UPDATE"
)

// Request/response handshakes.
const (
	KindRequestCharacterState  Kind = "REQUEST_CHARACTER_STATE"
	KindResponseCharacterState Kind = "RESPONSE_CHARACTER_STATE"
	KindRequestCurrentBattle   Kind = "REQUEST_CURRENT_BATTLE"
	KindResponseCurrentBattle  Kind = "RESPONSE_CURRENT_BATTLE"
)

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindUserSetName, KindUserSelectSkill, KindAppendBattleLog, KindStageSwitch,
		KindBattleStart, KindSkillUse, KindSkillUseDescEnd, KindDamageDealt,
		KindDamageDealtDescEnd, KindBattleEnd, KindBattleEndDescEnd, KindBattleEndResult,
		KindNextActor, KindTimelineUpdate,
		KindRequestCharacterState, KindResponseCharacterState,
		KindRequestCurrentBattle, KindResponseCurrentBattle,
	}
}

// Event is implemented only by the payload structs of this package.
type Event interface {
	Kind() Kind
	isEvent()
}

// closed is embedded by every payload to satisfy the unexported method.
type closed struct{}

func (closed) isEvent() {}

// UserSetName renames the human player.
type UserSetName struct {
	closed
	Name string
}

// UserSelectSkill is the player's choice for the current choice window.
type UserSelectSkill struct {
	closed
	Skill model.Skill
}

// AppendBattleLog carries one typed unit of narration text.
type AppendBattleLog struct {
	closed
	Entry LogEntry
}

// StageSwitch asks the navigation layer to move to Path, correlated by StateID.
type StageSwitch struct {
	closed
	Path    string
	StateID string
}

// BattleStart announces a battle with its enemy roster.
type BattleStart struct {
	closed
	Player  model.Participant
	Enemies []model.Participant
}

// SkillUse announces an attempt. Success is false when the actor cannot pay.
type SkillUse struct {
	closed
	From    model.Participant
	To      model.Participant
	Skill   model.Skill
	Success bool
}

// SkillUseDescEnd signals the skill-use narration finished.
type SkillUseDescEnd struct{ closed }

// DamageDealt announces applied damage. To carries the post-hit state.
type DamageDealt struct {
	closed
	From   model.Participant
	To     model.Participant
	Skill  model.Skill
	Damage int
}

// DamageDealtDescEnd signals the damage narration finished.
type DamageDealtDescEnd struct{ closed }

// BattleEnd announces the narrated end of the battle. Winner is nil on a draw.
type BattleEnd struct {
	closed
	Enemies []model.Participant
	Winner  *model.Participant
}

// BattleEndDescEnd signals the battle-end narration finished.
type BattleEndDescEnd struct{ closed }

// BattleEndResult is the authoritative outcome, published after narration.
type BattleEndResult struct {
	closed
	Enemies []model.Participant
	Winner  *model.Participant
}

// NextActor announces who is choosing. Actor is nil when nobody is.
type NextActor struct {
	closed
	Actor *model.Participant
}

// PauseReason explains why the timeline stopped advancing.
type PauseReason string

// Pause reasons.
const (
	PauseNone      PauseReason = ""
	PauseSelecting PauseReason = "selecting"
	PauseExecuting PauseReason = "executing"
)

// TimelineEntry is the view of one participant on the timeline.
type TimelineEntry struct {
	Participant model.Participant
	CurrentTime float64
	// CastingTime is remaining cast time, CastingTotal its starting value.
	// Both are zero when no skill is selected.
	CastingTime  float64
	CastingTotal float64
}

// TimeControl is the global scheduler state.
type TimeControl struct {
	Paused bool
	Reason PauseReason
	Acting *model.Participant
}

// TimelineUpdate is published every tick for presentation.
type TimelineUpdate struct {
	closed
	Entries []TimelineEntry
	Control TimeControl
}

// RequestCharacterState asks the scheduler for a participant copy.
type RequestCharacterState struct {
	closed
	ID model.ParticipantID
}

// ResponseCharacterState answers RequestCharacterState.
type ResponseCharacterState struct {
	closed
	Participant model.Participant
}

// RequestCurrentBattle asks for the roster stored under StateID.
type RequestCurrentBattle struct {
	closed
	StateID string
}

// ResponseCurrentBattle answers RequestCurrentBattle.
type ResponseCurrentBattle struct {
	closed
	StateID string
	Enemies []model.Participant
}

func (UserSetName) Kind() Kind            { return KindUserSetName }
func (UserSelectSkill) Kind() Kind        { return KindUserSelectSkill }
func (AppendBattleLog) Kind() Kind        { return KindAppendBattleLog }
func (StageSwitch) Kind() Kind            { return KindStageSwitch }
func (BattleStart) Kind() Kind            { return KindBattleStart }
func (SkillUse) Kind() Kind               { return KindSkillUse }
func (SkillUseDescEnd) Kind() Kind        { return KindSkillUseDescEnd }
func (DamageDealt) Kind() Kind            { return KindDamageDealt }
func (DamageDealtDescEnd) Kind() Kind     { return KindDamageDealtDescEnd }
func (BattleEnd) Kind() Kind              { return KindBattleEnd }
func (BattleEndDescEnd) Kind() Kind       { return KindBattleEndDescEnd }
func (BattleEndResult) Kind() Kind        { return KindBattleEndResult }
func (NextActor) Kind() Kind              { return KindNextActor }
func (TimelineUpdate) Kind() Kind         { return KindTimelineUpdate }
func (RequestCharacterState) Kind() Kind  { return KindRequestCharacterState }
func (ResponseCharacterState) Kind() Kind { return KindResponseCharacterState }
func (RequestCurrentBattle) Kind() Kind   { return KindRequestCurrentBattle }
func (ResponseCurrentBattle) Kind() Kind  { return KindResponseCurrentBattle }
