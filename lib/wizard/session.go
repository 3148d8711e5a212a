// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

// Package wizard implements the interactive document builder: a
// per-user state machine that collects embed fields over sequential
// private prompts, offers an action menu against a live preview, and
// publishes the finished document through a permission gate.
package wizard

import (
	"github.com/herald-project/herald/lib/clock"
	"github.com/herald-project/herald/lib/embed"
	"github.com/herald-project/herald/lib/ref"
)

type sessionState int

const (
	stateAwaitingBasics sessionState = iota
	stateAwaitingMedia
	statePreview
	stateAwaitingForm
	stateAwaitingRemoval
	stateAwaitingDestination
)

func (s sessionState) String() string {
	switch s {
	case stateAwaitingBasics:
		return "awaiting-basics"
	case stateAwaitingMedia:
		return "awaiting-media"
	case statePreview:
		return "preview"
	case stateAwaitingForm:
		return "awaiting-form"
	case stateAwaitingRemoval:
		return "awaiting-removal"
	case stateAwaitingDestination:
		return "awaiting-destination"
	default:
		return "unknown"
	}
}

// session is one user's live builder. All access goes through the
// registry mutex: the sync loop and timer callbacks run on different
// goroutines.
type session struct {
	user  ref.UserID
	room  ref.RoomID // the user's direct room with the bot
	state sessionState
	draft embed.Embed

	// previewEvent is the currently displayed preview artifact, kept
	// so it can be redacted on cancel, expiry, or re-render.
	previewEvent ref.EventID

	// pendingForm and pendingAction are set while state is
	// stateAwaitingForm: which form the next message answers and
	// which menu action it serves.
	pendingForm   FormSpec
	pendingAction Action

	// destinations caches the publish targets shown to the user while
	// state is stateAwaitingDestination, so the numbered choice maps
	// to the same list it was rendered from.
	destinations []Destination

	// timer is the single idle-eviction timer. timerGen invalidates
	// callbacks from timers that were already replaced: Stop cannot
	// un-run a callback that has begun waiting on the mutex.
	timer    *clock.Timer
	timerGen int
}

// SessionInfo is a read-only snapshot for operator queries.
type SessionInfo struct {
	User       string `cbor:"user" json:"user"`
	State      string `cbor:"state" json:"state"`
	FieldCount int    `cbor:"field_count" json:"field_count"`
	HasPreview bool   `cbor:"has_preview" json:"has_preview"`
}
