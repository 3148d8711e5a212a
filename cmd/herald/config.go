// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/herald-project/herald/lib/ref"
)

// RoleRung maps a power-level threshold to a role name. The ladder
// translates Matrix power levels into the role names the publication
// allow-list speaks.
type RoleRung struct {
	Level int    `yaml:"level"`
	Role  string `yaml:"role"`
}

// Config is the herald service configuration file.
type Config struct {
	// Homeserver is the Matrix homeserver base URL.
	Homeserver string `yaml:"homeserver"`

	// TokenFile holds the access token, written by "herald login".
	TokenFile string `yaml:"token_file"`

	// UserID is the bot's Matrix user ID.
	UserID string `yaml:"user_id"`

	// CommandPrefix starts every chat command. Default "!".
	CommandPrefix string `yaml:"command_prefix"`

	// CommunityRoom is the room whose power levels define user roles.
	CommunityRoom string `yaml:"community_room"`

	// RoleLadder maps power levels to role names, highest threshold
	// wins. Users get every rung at or below their level.
	RoleLadder []RoleRung `yaml:"role_ladder"`

	// AllowedPublisherRoles gates document publishing. Empty means the
	// built-in default list.
	AllowedPublisherRoles []string `yaml:"allowed_publisher_roles"`

	// PublishRooms restricts publish destinations. Empty means every
	// room the bot has joined.
	PublishRooms []string `yaml:"publish_rooms"`

	// TicketStaff are invited to every support ticket room.
	TicketStaff []string `yaml:"ticket_staff"`

	// AdminSocket is the Unix socket path for operator queries. Empty
	// disables the socket.
	AdminSocket string `yaml:"admin_socket"`

	// PreviewTimeoutMinutes and FormTimeoutMinutes override the idle
	// windows of the builder. Zero keeps the defaults.
	PreviewTimeoutMinutes int `yaml:"preview_timeout_minutes"`
	FormTimeoutMinutes    int `yaml:"form_timeout_minutes"`

	// Fetchers overrides the upstream endpoints of the single-shot
	// commands, mainly for testing.
	Fetchers struct {
		CatURL  string `yaml:"cat_url"`
		DogURL  string `yaml:"dog_url"`
		MemeURL string `yaml:"meme_url"`
	} `yaml:"fetchers"`
}

// LoadConfig reads and validates the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if config.Homeserver == "" {
		return nil, fmt.Errorf("config %s: homeserver is required", path)
	}
	if config.UserID == "" {
		return nil, fmt.Errorf("config %s: user_id is required", path)
	}
	if _, err := ref.ParseUserID(config.UserID); err != nil {
		return nil, fmt.Errorf("config %s: invalid user_id: %w", path, err)
	}
	if config.TokenFile == "" {
		return nil, fmt.Errorf("config %s: token_file is required", path)
	}
	if config.CommandPrefix == "" {
		config.CommandPrefix = "!"
	}
	if config.CommunityRoom != "" {
		if _, err := ref.ParseRoomID(config.CommunityRoom); err != nil {
			return nil, fmt.Errorf("config %s: invalid community_room: %w", path, err)
		}
	}
	for _, raw := range config.PublishRooms {
		if _, err := ref.ParseRoomID(raw); err != nil {
			return nil, fmt.Errorf("config %s: invalid publish room %q: %w", path, raw, err)
		}
	}
	for _, raw := range config.TicketStaff {
		if _, err := ref.ParseUserID(raw); err != nil {
			return nil, fmt.Errorf("config %s: invalid ticket staff %q: %w", path, raw, err)
		}
	}

	// Highest threshold first so role resolution can stop at the first
	// rung the user clears.
	sort.Slice(config.RoleLadder, func(i, j int) bool {
		return config.RoleLadder[i].Level > config.RoleLadder[j].Level
	})
	return &config, nil
}

// PreviewTimeout returns the configured preview idle window, or zero
// for the builder default.
func (c *Config) PreviewTimeout() time.Duration {
	return time.Duration(c.PreviewTimeoutMinutes) * time.Minute
}

// FormTimeout returns the configured form wait budget, or zero for
// the builder default.
func (c *Config) FormTimeout() time.Duration {
	return time.Duration(c.FormTimeoutMinutes) * time.Minute
}

// RolesForLevel returns every ladder role whose threshold the power
// level clears.
func (c *Config) RolesForLevel(level int) []string {
	var roles []string
	for _, rung := range c.RoleLadder {
		if level >= rung.Level {
			roles = append(roles, rung.Role)
		}
	}
	return roles
}
