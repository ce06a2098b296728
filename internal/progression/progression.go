// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

/*
Package progression is the pure experience/level calculator.

Every mutation of a user's exp or level in the whole system flows through
[Apply]: session close, badge reward, manual grant. No other code may set
those fields by any other formula, which is what keeps the global invariant

	level == exp/100 + 1

true after every commit. The package has no dependencies on storage or
transport and is fully deterministic.
*/
package progression

import (
	"github.com/IamPoi/self-craft-back/internal/platform/apperr"
	"github.com/IamPoi/self-craft-back/internal/platform/constants"
)

// Result describes the outcome of applying an experience delta.
type Result struct {
	Level     int  `json:"level"`
	Exp       int  `json:"exp"`
	LeveledUp bool `json:"leveled_up"`
}

// Apply adds delta experience points to the current state.
//
// delta must be positive; non-positive grants are caller errors. The returned
// state is monotonic: exp and level never decrease through this path.
func Apply(currentLevel, currentExp, delta int) (Result, error) {
	if delta <= 0 {
		return Result{}, apperr.ValidationError("Experience delta must be positive")
	}

	newExp := currentExp + delta
	newLevel := LevelFor(newExp)

	return Result{
		Level:     newLevel,
		Exp:       newExp,
		LeveledUp: newLevel > currentLevel,
	}, nil
}

// LevelFor returns the level implied by an experience total.
func LevelFor(exp int) int {
	if exp < 0 {
		return 1
	}
	return exp/constants.ExpPerLevel + 1
}

// AutoExp returns the experience derived solely from elapsed session
// duration: one unit per full 60 seconds.
func AutoExp(durationSeconds int) int {
	if durationSeconds < 0 {
		return 0
	}
	return durationSeconds / 60 * constants.ExpPerMinute
}
