// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package badge

import "time"

// Type classifies what kind of achievement a badge records.
type Type string

const (
	TypeCert     Type = "CERT"
	TypeLanguage Type = "LANGUAGE"
	TypeTime     Type = "TIME"
	TypeStreak   Type = "STREAK"
	TypeLevel    Type = "LEVEL"
)

// Valid reports whether the type is a known value.
func (t Type) Valid() bool {
	switch t {
	case TypeCert, TypeLanguage, TypeTime, TypeStreak, TypeLevel:
		return true
	}
	return false
}

// TypeNames lists the allowed type strings for validation messages.
func TypeNames() []string {
	return []string{
		string(TypeCert),
		string(TypeLanguage),
		string(TypeTime),
		string(TypeStreak),
		string(TypeLevel),
	}
}

// Badge is a permanent achievement record.
//
// At most one badge exists per (uid, type, name); grants are idempotent.
// Only Description and Score are editable after creation; a badge is never
// auto-deleted.
type Badge struct {
	BadgeID     string    `json:"badge_id"`
	UID         string    `json:"uid"`
	Type        Type      `json:"type"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Score       *string   `json:"score,omitempty"`
	AcquiredAt  time.Time `json:"acquired_at"`
	GainedExp   int       `json:"gained_exp"`
	CreatedAt   time.Time `json:"created_at"`
}

// TypeCount is a per-type slice of the badge summary.
type TypeCount struct {
	Type  Type `json:"type"`
	Count int  `json:"count"`
}

// Summary aggregates a user's badge collection.
type Summary struct {
	TotalBadges int         `json:"total_badges"`
	TotalExp    int         `json:"total_exp"`
	ByType      []TypeCount `json:"by_type"`
}
