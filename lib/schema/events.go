// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the Matrix event types Herald reads and
// writes, and typed content structs for its custom state events.
//
// Herald's persistent per-room configuration lives in room state:
// a welcome configuration event and ticket-room markers. Using state
// events as the record store means configuration survives restarts,
// is replicated by the homeserver, and is auditable through ordinary
// room state inspection — no separate database.
package schema

import "github.com/herald-project/herald/lib/ref"

// Standard Matrix event types.
const (
	// MatrixEventTypeMessage is m.room.message, the timeline message event.
	MatrixEventTypeMessage ref.EventType = "m.room.message"
	// MatrixEventTypeMember is m.room.member, membership state changes.
	MatrixEventTypeMember ref.EventType = "m.room.member"
	// MatrixEventTypePowerLevels is m.room.power_levels.
	MatrixEventTypePowerLevels ref.EventType = "m.room.power_levels"
	// MatrixEventTypeName is m.room.name.
	MatrixEventTypeName ref.EventType = "m.room.name"
	// MatrixEventTypeCanonicalAlias is m.room.canonical_alias.
	MatrixEventTypeCanonicalAlias ref.EventType = "m.room.canonical_alias"
	// MatrixEventTypeCreate is m.room.create.
	MatrixEventTypeCreate ref.EventType = "m.room.create"
)

// Herald custom event types.
const (
	// EventTypeWelcome holds a room's welcome system configuration
	// (state event, empty state key).
	EventTypeWelcome ref.EventType = "im.herald.welcome"
	// EventTypeTicket marks a room as a Herald support ticket and
	// records its opener and status (state event, empty state key).
	EventTypeTicket ref.EventType = "im.herald.ticket"
)

// WelcomeConfig is the content of an im.herald.welcome state event,
// set in the room whose members should be greeted.
type WelcomeConfig struct {
	// ChannelID is the room welcome and goodbye notices are sent
	// to. Zero means the feature is unconfigured.
	ChannelID ref.RoomID `json:"channel_id,omitempty"`

	// DMEnabled sends each new member a private welcome message.
	DMEnabled bool `json:"dm_enabled"`

	// WelcomeEnabled posts a notice to ChannelID on join.
	WelcomeEnabled bool `json:"welcome_enabled"`

	// GoodbyeEnabled posts a notice to ChannelID on leave.
	GoodbyeEnabled bool `json:"goodbye_enabled"`
}

// DefaultWelcomeConfig returns the configuration applied to rooms with
// no stored welcome event: everything enabled, no channel selected.
func DefaultWelcomeConfig() WelcomeConfig {
	return WelcomeConfig{
		DMEnabled:      true,
		WelcomeEnabled: true,
		GoodbyeEnabled: true,
	}
}

// TicketMarker is the content of an im.herald.ticket state event on a
// ticket room.
type TicketMarker struct {
	// Opener is the user the ticket was opened for.
	Opener ref.UserID `json:"opener"`
	// Status is "open" or "closed".
	Status string `json:"status"`
	// Subject is the opener's stated reason, shown in the room name.
	Subject string `json:"subject,omitempty"`
}

// MemberContent is the content of an m.room.member state event, as
// much of it as Herald inspects.
type MemberContent struct {
	Membership  string `json:"membership"`
	DisplayName string `json:"displayname,omitempty"`
}

// Membership values Herald reacts to.
const (
	MembershipJoin  = "join"
	MembershipLeave = "leave"
)
