// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
homeserver: https://matrix.local
user_id: "@herald:local"
token_file: /var/lib/herald/token
community_room: "!community:local"
role_ladder:
  - level: 50
    role: Sales
  - level: 100
    role: Admin
allowed_publisher_roles: [Admin, Sales]
ticket_staff: ["@support:local"]
admin_socket: /run/herald/admin.sock
preview_timeout_minutes: 15
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.CommandPrefix != "!" {
		t.Errorf("default prefix = %q", cfg.CommandPrefix)
	}
	if cfg.PreviewTimeout().Minutes() != 15 {
		t.Errorf("preview timeout = %v", cfg.PreviewTimeout())
	}
	if cfg.FormTimeout() != 0 {
		t.Errorf("form timeout = %v, want 0 (builder default)", cfg.FormTimeout())
	}

	// Ladder sorted highest first.
	if cfg.RoleLadder[0].Role != "Admin" || cfg.RoleLadder[1].Role != "Sales" {
		t.Errorf("ladder order = %+v", cfg.RoleLadder)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing homeserver", "user_id: \"@h:l\"\ntoken_file: /t\n"},
		{"missing user", "homeserver: https://m.local\ntoken_file: /t\n"},
		{"bad user", "homeserver: https://m.local\nuser_id: nonsense\ntoken_file: /t\n"},
		{"missing token file", "homeserver: https://m.local\nuser_id: \"@h:l\"\n"},
		{"bad community room", "homeserver: https://m.local\nuser_id: \"@h:l\"\ntoken_file: /t\ncommunity_room: nope\n"},
		{"bad staff", "homeserver: https://m.local\nuser_id: \"@h:l\"\ntoken_file: /t\nticket_staff: [wrong]\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, test.content)); err == nil {
				t.Error("LoadConfig accepted an invalid config")
			}
		})
	}
}

func TestRolesForLevel(t *testing.T) {
	cfg := &Config{RoleLadder: []RoleRung{
		{Level: 100, Role: "Admin"},
		{Level: 50, Role: "Sales"},
		{Level: 25, Role: "Creative Lead"},
	}}

	tests := []struct {
		level int
		want  []string
	}{
		{100, []string{"Admin", "Sales", "Creative Lead"}},
		{60, []string{"Sales", "Creative Lead"}},
		{25, []string{"Creative Lead"}},
		{0, nil},
	}
	for _, test := range tests {
		got := cfg.RolesForLevel(test.level)
		if len(got) != len(test.want) {
			t.Errorf("RolesForLevel(%d) = %v, want %v", test.level, got, test.want)
			continue
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Errorf("RolesForLevel(%d) = %v, want %v", test.level, got, test.want)
				break
			}
		}
	}
}
