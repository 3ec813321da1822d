package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrBattleRunning = errors.New("a battle is already running")
	ErrNoStage       = errors.New("stage switch not observed")
)
