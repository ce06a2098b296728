// Copyright (c) 2026 SelfCraft. All rights reserved.
// Author: dev@selfcraft.app

// Package convert provides fault-tolerant string conversions for query
// parameter parsing. Do not use it where distinguishing malformed data from
// zero values matters; use strconv directly there.
package convert

import "strconv"

// ToInt converts a string to an integer, returning 0 on empty or parse failure.
func ToInt(s string) int {
	if s == "" {
		return 0
	}
	v, _ := strconv.Atoi(s)
	return v
}

// ToIntD converts a string to an int, returning def on empty or parse failure.
func ToIntD(str string, def int) int {
	if str == "" {
		return def
	}
	if v, err := strconv.Atoi(str); err == nil {
		return v
	}
	return def
}
