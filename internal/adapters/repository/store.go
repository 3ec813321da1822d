// Package repository stores battle setups and the records of finished battles.
package repository

import (
	"context"
	"time"

	"github.com/okian/xianxia/internal/domain/model"
)

// Setup is a prepared battle, addressed by the state id carried in
// STAGE_SWITCH.
type Setup struct {
	StateID   string              `json:"state_id"`
	Player    model.Participant   `json:"player"`
	Enemies   []model.Participant `json:"enemies"`
	CreatedAt time.Time           `json:"created_at"`
}

// Record is the outcome of a finished battle.
type Record struct {
	StateID   string              `json:"state_id"`
	Result    string              `json:"result"`
	Winner    model.ParticipantID `json:"winner,omitempty"`
	Roster    []model.Participant `json:"roster"`
	StartedAt time.Time           `json:"started_at"`
	EndedAt   time.Time           `json:"ended_at"`
}

// Duration is how long the battle ran.
func (r Record) Duration() time.Duration { return r.EndedAt.Sub(r.StartedAt) }

// Store provides read/write access to battle state.
type Store interface {
	// SaveSetup stores s under s.StateID, replacing any previous setup.
	SaveSetup(ctx context.Context, s Setup) error
	// Setup returns ErrNotFound if stateID is unknown.
	Setup(ctx context.Context, stateID string) (Setup, error)

	// SaveRecord stores the outcome of the battle prepared as r.StateID.
	SaveRecord(ctx context.Context, r Record) error
	// Record returns ErrNotFound if no battle with stateID has finished.
	Record(ctx context.Context, stateID string) (Record, error)
	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) int
}
