// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package badge

// Snapshot is the aggregate state a rule predicate evaluates against.
// All figures cover closed sessions only.
type Snapshot struct {
	// Level is the user's current level.
	Level int

	// TotalDuration is the lifetime sum of session durations, in seconds.
	TotalDuration int

	// DistinctDays30 counts distinct calendar days with at least one
	// session start within the last 30 days.
	DistinctDays30 int

	// ClosedByCategory counts closed sessions per category name.
	ClosedByCategory map[string]int
}

// Rule is one automatic badge: when Satisfied reports true for a user's
// snapshot and the badge is absent, it is granted with Reward experience.
type Rule struct {
	Type        Type
	Name        string
	Description string
	Reward      int
	Satisfied   func(Snapshot) bool
}

// Rules returns the automatic badge rule set.
//
// The list is evaluated uniformly; adding a rule is additive and requires
// no changes to the evaluator. Names are stable identifiers: together with
// the type they form the idempotence key, so renaming a rule re-grants it.
func Rules() []Rule {
	return []Rule{
		{
			Type:        TypeStreak,
			Name:        "30 Day Streak",
			Description: "Worked on at least 30 distinct days within the last 30 days",
			Reward:      100,
			Satisfied: func(s Snapshot) bool {
				return s.DistinctDays30 >= 30
			},
		},
		{
			Type:        TypeTime,
			Name:        "First 10 Hours",
			Description: "Accumulated 10 hours of tracked work",
			Reward:      30,
			Satisfied: func(s Snapshot) bool {
				return s.TotalDuration >= 10*3600
			},
		},
		{
			Type:        TypeTime,
			Name:        "100 Hour Club",
			Description: "Accumulated 100 hours of tracked work",
			Reward:      200,
			Satisfied: func(s Snapshot) bool {
				return s.TotalDuration >= 100*3600
			},
		},
		{
			Type:        TypeCert,
			Name:        "Certificate Starter",
			Description: "Completed 5 certificate study sessions",
			Reward:      50,
			Satisfied: func(s Snapshot) bool {
				return s.ClosedByCategory["CERTIFICATE"] >= 5
			},
		},
		{
			Type:        TypeLanguage,
			Name:        "Language Learner",
			Description: "Completed 10 language study sessions",
			Reward:      50,
			Satisfied: func(s Snapshot) bool {
				return s.ClosedByCategory["LANGUAGE"] >= 10
			},
		},
		{
			Type:        TypeLevel,
			Name:        "Level 10 Reached",
			Description: "Reached level 10",
			Reward:      0,
			Satisfied: func(s Snapshot) bool {
				return s.Level >= 10
			},
		},
	}
}
