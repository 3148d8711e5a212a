// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"

	"github.com/herald-project/herald/lib/ref"
)

func TestDeterministicEncoding(t *testing.T) {
	value := map[string]any{"zebra": 1, "alpha": 2, "mid": []any{"x", "y"}}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for range 5 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("encoding is not deterministic")
		}
	}
}

func TestRefTypesEncodeAsStrings(t *testing.T) {
	type record struct {
		Room ref.RoomID `cbor:"room"`
		User ref.UserID `cbor:"user"`
	}
	original := record{
		Room: ref.MustParseRoomID("!r:local"),
		User: ref.MustParseUserID("@u:local"),
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded record
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}

	// The encoding must contain the literal identifier text, not an
	// empty struct map.
	if !bytes.Contains(data, []byte("!r:local")) {
		t.Errorf("room ID not encoded as text: %x", data)
	}
}

func TestAnyTargetDecodesStringMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"nested": map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	top, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type %T, want map[string]any", decoded)
	}
	if _, ok := top["nested"].(map[string]any); !ok {
		t.Errorf("nested type %T, want map[string]any", top["nested"])
	}
}
