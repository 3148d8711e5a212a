// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// PowerLevels is a typed view of the Matrix m.room.power_levels state
// event content, limited to the fields Herald reads.
//
// Pointer fields distinguish "not set" (nil, server default applies)
// from "explicitly 0".
type PowerLevels struct {
	Users        map[string]int `json:"users,omitempty"`
	UsersDefault *int           `json:"users_default,omitempty"`
}

// UserLevel returns the power level for a Matrix user ID string: the
// explicit Users entry if present, else UsersDefault, else 0 per the
// Matrix spec default.
func (p *PowerLevels) UserLevel(userID string) int {
	if p.Users != nil {
		if level, ok := p.Users[userID]; ok {
			return level
		}
	}
	if p.UsersDefault != nil {
		return *p.UsersDefault
	}
	return 0
}
