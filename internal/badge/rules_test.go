// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package badge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IamPoi/self-craft-back/internal/badge"
)

func ruleByName(t *testing.T, name string) badge.Rule {
	t.Helper()
	for _, rule := range badge.Rules() {
		if rule.Name == name {
			return rule
		}
	}
	t.Fatalf("no rule named %q", name)
	return badge.Rule{}
}

/*
TestRules_Predicates exercises each rule predicate at, above, and below its
threshold.
*/
func TestRules_Predicates(t *testing.T) {
	tests := []struct {
		name      string
		rule      string
		snapshot  badge.Snapshot
		satisfied bool
	}{
		{"streak_at_threshold", "30 Day Streak", badge.Snapshot{DistinctDays30: 30}, true},
		{"streak_below", "30 Day Streak", badge.Snapshot{DistinctDays30: 29}, false},

		{"ten_hours_at_threshold", "First 10 Hours", badge.Snapshot{TotalDuration: 36000}, true},
		{"ten_hours_below", "First 10 Hours", badge.Snapshot{TotalDuration: 35999}, false},

		{"hundred_hours_at_threshold", "100 Hour Club", badge.Snapshot{TotalDuration: 360000}, true},
		{"hundred_hours_below", "100 Hour Club", badge.Snapshot{TotalDuration: 359999}, false},

		{"cert_at_threshold", "Certificate Starter",
			badge.Snapshot{ClosedByCategory: map[string]int{"CERTIFICATE": 5}}, true},
		{"cert_below", "Certificate Starter",
			badge.Snapshot{ClosedByCategory: map[string]int{"CERTIFICATE": 4}}, false},
		{"cert_other_category", "Certificate Starter",
			badge.Snapshot{ClosedByCategory: map[string]int{"STUDY": 50}}, false},

		{"language_at_threshold", "Language Learner",
			badge.Snapshot{ClosedByCategory: map[string]int{"LANGUAGE": 10}}, true},
		{"language_below", "Language Learner",
			badge.Snapshot{ClosedByCategory: map[string]int{"LANGUAGE": 9}}, false},

		{"level_at_threshold", "Level 10 Reached", badge.Snapshot{Level: 10}, true},
		{"level_below", "Level 10 Reached", badge.Snapshot{Level: 9}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := ruleByName(t, tt.rule)
			assert.Equal(t, tt.satisfied, rule.Satisfied(tt.snapshot))
		})
	}
}

/*
TestRules_Shape guards the rule set's structural invariants: valid types,
unique (type, name) keys, and non-negative rewards.
*/
func TestRules_Shape(t *testing.T) {
	seen := make(map[string]bool)

	for _, rule := range badge.Rules() {
		require.True(t, rule.Type.Valid(), "rule %q has unknown type %q", rule.Name, rule.Type)
		require.NotEmpty(t, rule.Name)
		require.NotNil(t, rule.Satisfied)
		assert.GreaterOrEqual(t, rule.Reward, 0, "rule %q has a negative reward", rule.Name)

		key := string(rule.Type) + "/" + rule.Name
		assert.False(t, seen[key], "duplicate rule key %s", key)
		seen[key] = true
	}
}
