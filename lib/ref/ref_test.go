// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"encoding/json"
	"testing"
)

func TestParseUserID(t *testing.T) {
	valid := []string{
		"@alice:example.org",
		"@herald:herald.local",
		"@a:b",
		"@user.name:server.example.com",
	}
	for _, raw := range valid {
		t.Run(raw, func(t *testing.T) {
			userID, err := ParseUserID(raw)
			if err != nil {
				t.Fatalf("ParseUserID(%q) failed: %v", raw, err)
			}
			if userID.String() != raw {
				t.Errorf("String() = %q, want %q", userID.String(), raw)
			}
			if userID.IsZero() {
				t.Error("IsZero() = true for valid user ID")
			}
		})
	}

	invalid := []string{
		"",
		"alice:example.org",
		"@:example.org",
		"@alice",
		"@alice:",
		"!room:example.org",
	}
	for _, raw := range invalid {
		t.Run("invalid/"+raw, func(t *testing.T) {
			if _, err := ParseUserID(raw); err == nil {
				t.Errorf("ParseUserID(%q) succeeded, want error", raw)
			}
		})
	}
}

func TestUserIDLocalpart(t *testing.T) {
	userID := MustParseUserID("@alice:example.org")
	if got := userID.Localpart(); got != "alice" {
		t.Errorf("Localpart() = %q, want %q", got, "alice")
	}
}

func TestParseRoomID(t *testing.T) {
	roomID, err := ParseRoomID("!abc123:example.org")
	if err != nil {
		t.Fatalf("ParseRoomID failed: %v", err)
	}
	if roomID.String() != "!abc123:example.org" {
		t.Errorf("String() = %q", roomID.String())
	}

	for _, raw := range []string{"", "abc:example.org", "!:example.org", "!abc", "!abc:"} {
		if _, err := ParseRoomID(raw); err == nil {
			t.Errorf("ParseRoomID(%q) succeeded, want error", raw)
		}
	}
}

func TestParseRoomAlias(t *testing.T) {
	alias, err := ParseRoomAlias("#general:example.org")
	if err != nil {
		t.Fatalf("ParseRoomAlias failed: %v", err)
	}
	if alias.String() != "#general:example.org" {
		t.Errorf("String() = %q", alias.String())
	}
	if _, err := ParseRoomAlias("general:example.org"); err == nil {
		t.Error("ParseRoomAlias without '#' succeeded, want error")
	}
}

func TestParseEventID(t *testing.T) {
	eventID, err := ParseEventID("$abc123")
	if err != nil {
		t.Fatalf("ParseEventID failed: %v", err)
	}
	if eventID.String() != "$abc123" {
		t.Errorf("String() = %q", eventID.String())
	}

	for _, raw := range []string{"", "$", "abc123"} {
		if _, err := ParseEventID(raw); err == nil {
			t.Errorf("ParseEventID(%q) succeeded, want error", raw)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type wire struct {
		User  UserID  `json:"user"`
		Room  RoomID  `json:"room"`
		Event EventID `json:"event"`
	}
	original := wire{
		User:  MustParseUserID("@alice:example.org"),
		Room:  MustParseRoomID("!room:example.org"),
		Event: MustParseEventID("$ev1"),
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded wire
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip mismatch: %+v != %+v", decoded, original)
	}
}

func TestJSONRejectsMalformed(t *testing.T) {
	var userID UserID
	if err := json.Unmarshal([]byte(`"not-a-user-id"`), &userID); err == nil {
		t.Error("unmarshal of malformed user ID succeeded, want error")
	}
}

func TestRoomIDMapKey(t *testing.T) {
	// Sync responses key the join section by room ID; the text
	// unmarshaler must validate map keys too.
	var section map[RoomID]int
	if err := json.Unmarshal([]byte(`{"!a:b": 1}`), &section); err != nil {
		t.Fatalf("unmarshal map keyed by room ID failed: %v", err)
	}
	if section[MustParseRoomID("!a:b")] != 1 {
		t.Error("map entry missing after unmarshal")
	}
}
