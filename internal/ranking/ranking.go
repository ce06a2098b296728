// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

package ranking

// Entry is one row of the ranking view.
//
// Rank is assigned by output position, 1-based. Guests never appear.
type Entry struct {
	Rank           int     `json:"rank"`
	UID            string  `json:"uid"`
	Name           string  `json:"name"`
	AvatarURL      *string `json:"avatar_url,omitempty"`
	Level          int     `json:"level"`
	Exp            int     `json:"exp"`
	TotalStudyTime int     `json:"total_study_time"`
	TotalSessions  int     `json:"total_sessions"`
	TotalBadges    int     `json:"total_badges"`
}
