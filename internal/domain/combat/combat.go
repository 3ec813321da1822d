// Package combat holds the pure rules of a hit and of the end of a battle.
package combat

import (
	"math"
	"sync"

	"github.com/okian/xianxia/internal/domain/model"
)

const (
	defenseScale = 100.0
	damageFloor  = 0.1
)

// Damage mitigates raw damage by defense with diminishing returns. A landed
// hit always deals at least ceil(raw*0.1).
func Damage(raw, defense int) int {
	if raw <= 0 {
		return 0
	}
	def := math.Max(0, float64(defense))
	reduced := float64(raw) * (1 - def/(def+defenseScale))
	floor := math.Ceil(float64(raw) * damageFloor)
	return int(math.Max(math.Round(reduced), floor))
}

// Judge decides whether a battle is over. Once it reports an ended battle the
// result is cached and later calls return it unchanged.
type Judge struct {
	mu      sync.Mutex
	outcome model.Outcome
}

// Check evaluates the roster. Exactly one participant standing wins; nobody
// standing is a draw; otherwise the battle continues.
func (j *Judge) Check(roster []*model.Participant) model.Outcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.outcome.Ended {
		return j.outcome
	}

	var alive []*model.Participant
	for _, p := range roster {
		if !p.Defeated() {
			alive = append(alive, p)
		}
	}
	switch len(alive) {
	case 0:
		j.outcome = model.Outcome{Ended: true}
	case 1:
		w := alive[0].Clone()
		j.outcome = model.Outcome{Ended: true, Winner: &w}
	}
	return j.outcome
}

// Outcome returns the cached result without evaluating anything.
func (j *Judge) Outcome() model.Outcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outcome
}
