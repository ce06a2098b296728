// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package identity

import "time"

// Provider identifies an external identity provider.
type Provider string

const (
	// ProviderGoogle is currently the only supported external provider.
	ProviderGoogle Provider = "GOOGLE"
)

// Valid reports whether the provider is a known value.
func (p Provider) Valid() bool {
	return p == ProviderGoogle
}

// User is a persisted identity record.
//
// uid is immutable for the lifetime of the account; guest-to-external
// migration rewrites the provider linkage in place so every work_log and
// badge row keyed by uid stays valid without rewriting.
//
// The level/exp pair is mutated exclusively through the progression
// calculator, never set directly.
type User struct {
	UID      string    `json:"uid"`
	Provider *Provider `json:"provider"`
	// ExternalID is the provider-side account ID. Never serialized: exposing
	// it would leak a cross-service correlation handle.
	ExternalID *string   `json:"-"`
	Name       string    `json:"name"`
	Email      *string   `json:"email,omitempty"`
	AvatarURL  *string   `json:"avatar_url,omitempty"`
	IsGuest    bool      `json:"is_guest"`
	Level      int       `json:"level"`
	Exp        int       `json:"exp"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// # Aggregate read models

// UserStats is the per-user dashboard aggregate.
type UserStats struct {
	Level          int             `json:"level"`
	Exp            int             `json:"exp"`
	TodaySessions  int             `json:"today_sessions"`
	TodayTotalTime int             `json:"today_total_time"`
	TotalSessions  int             `json:"total_sessions"`
	TotalStudyTime int             `json:"total_study_time"`
	TotalBadges    int             `json:"total_badges"`
	Categories     []CategoryStat  `json:"categories"`
	Weekly         []DailyActivity `json:"weekly"`
}

// CategoryStat summarizes closed sessions of one category.
type CategoryStat struct {
	Category      string `json:"category"`
	Sessions      int    `json:"sessions"`
	TotalTime     int    `json:"total_time"`
	AvgTime       int    `json:"avg_time"`
	TotalExp      int    `json:"total_exp"`
}

// DailyActivity is one day of recent activity.
type DailyActivity struct {
	Date      string `json:"date"`
	Sessions  int    `json:"sessions"`
	TotalTime int    `json:"total_time"`
}
