// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package worklog

import "time"

// Category classifies what kind of work a session tracks.
type Category string

const (
	CategoryStudy       Category = "STUDY"
	CategoryExercise    Category = "EXERCISE"
	CategoryLanguage    Category = "LANGUAGE"
	CategoryCertificate Category = "CERTIFICATE"
)

// Valid reports whether the category is a known value.
func (c Category) Valid() bool {
	switch c {
	case CategoryStudy, CategoryExercise, CategoryLanguage, CategoryCertificate:
		return true
	}
	return false
}

// CategoryNames lists the allowed category strings for validation messages.
func CategoryNames() []string {
	return []string{
		string(CategoryStudy),
		string(CategoryExercise),
		string(CategoryLanguage),
		string(CategoryCertificate),
	}
}

// WorkSession is a single tracked work interval.
//
// A session is open while EndedAt is nil and closes exactly once; Duration
// (seconds) and GainedExp are fixed at close and never rewritten. Each user
// has at most one open session at a time.
type WorkSession struct {
	WorkID    string     `json:"work_id"`
	UID       string     `json:"uid"`
	Category  Category   `json:"category"`
	Title     *string    `json:"title,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Duration  *int       `json:"duration,omitempty"`
	GainedExp *int       `json:"gained_exp,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Active reports whether the session is still open.
func (s *WorkSession) Active() bool {
	return s.EndedAt == nil
}

// CategoryTotals is a per-category aggregate over closed sessions.
type CategoryTotals struct {
	Category      Category `json:"category"`
	TotalSessions int      `json:"total_sessions"`
	TotalDuration int      `json:"total_duration"`
	TotalExp      int      `json:"total_exp"`
}
