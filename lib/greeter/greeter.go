// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

// Package greeter posts welcome and goodbye notices when room
// membership changes, driven by a per-room configuration state event.
package greeter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/herald-project/herald/lib/embed"
	"github.com/herald-project/herald/lib/ref"
	"github.com/herald-project/herald/lib/schema"
	"github.com/herald-project/herald/messaging"
)

// minConfigPowerLevel gates the configuration commands: moderators
// and up.
const minConfigPowerLevel = 50

// Client is the slice of the Matrix session the greeter needs.
// *messaging.Session satisfies it.
type Client interface {
	SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error)
	GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string) (json.RawMessage, error)
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error)
	CreateRoom(ctx context.Context, request messaging.CreateRoomRequest) (*messaging.CreateRoomResponse, error)
	RoomName(ctx context.Context, roomID ref.RoomID) (string, error)
}

// Greeter reacts to membership changes and manages welcome
// configuration.
type Greeter struct {
	client Client
	logger *slog.Logger

	// botUser filters out the bot's own membership events.
	botUser ref.UserID
}

// New builds a Greeter.
func New(client Client, botUser ref.UserID, logger *slog.Logger) *Greeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Greeter{client: client, botUser: botUser, logger: logger}
}

// LoadConfig reads a room's welcome configuration, falling back to the
// defaults when none is stored.
func (g *Greeter) LoadConfig(ctx context.Context, roomID ref.RoomID) (schema.WelcomeConfig, error) {
	raw, err := g.client.GetStateEvent(ctx, roomID, schema.EventTypeWelcome, "")
	if err != nil {
		if messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
			return schema.DefaultWelcomeConfig(), nil
		}
		return schema.WelcomeConfig{}, fmt.Errorf("greeter: failed to load welcome config for %s: %w", roomID, err)
	}

	var config schema.WelcomeConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return schema.WelcomeConfig{}, fmt.Errorf("greeter: malformed welcome config in %s: %w", roomID, err)
	}
	return config, nil
}

// SaveConfig writes a room's welcome configuration back to room state.
func (g *Greeter) SaveConfig(ctx context.Context, roomID ref.RoomID, config schema.WelcomeConfig) error {
	if _, err := g.client.SendStateEvent(ctx, roomID, schema.EventTypeWelcome, "", config); err != nil {
		return fmt.Errorf("greeter: failed to save welcome config for %s: %w", roomID, err)
	}
	return nil
}

// Authorized reports whether the user's power level in the room clears
// the configuration threshold.
func (g *Greeter) Authorized(ctx context.Context, roomID ref.RoomID, user ref.UserID) (bool, error) {
	raw, err := g.client.GetStateEvent(ctx, roomID, schema.MatrixEventTypePowerLevels, "")
	if err != nil {
		if messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("greeter: failed to load power levels for %s: %w", roomID, err)
	}

	var levels schema.PowerLevels
	if err := json.Unmarshal(raw, &levels); err != nil {
		return false, fmt.Errorf("greeter: malformed power levels in %s: %w", roomID, err)
	}
	return levels.UserLevel(user.String()) >= minConfigPowerLevel, nil
}

// HandleMembership reacts to an m.room.member state change in a
// greeted room. Best effort: delivery failures are logged, not
// returned, so one broken room cannot stall the sync loop.
func (g *Greeter) HandleMembership(ctx context.Context, roomID ref.RoomID, member ref.UserID, content schema.MemberContent) {
	if member == g.botUser {
		return
	}

	config, err := g.LoadConfig(ctx, roomID)
	if err != nil {
		g.logger.Warn("welcome config load failed", "room", roomID, "error", err)
		return
	}

	name := content.DisplayName
	if name == "" {
		name = member.Localpart()
	}
	roomName, err := g.client.RoomName(ctx, roomID)
	if err != nil || roomName == "" {
		roomName = "the room"
	}

	switch content.Membership {
	case schema.MembershipJoin:
		if config.WelcomeEnabled && !config.ChannelID.IsZero() {
			g.post(ctx, config.ChannelID, welcomeEmbed(name, roomName))
		}
		if config.DMEnabled {
			g.sendDM(ctx, member, welcomeDMEmbed(name, roomName))
		}
	case schema.MembershipLeave:
		if config.GoodbyeEnabled && !config.ChannelID.IsZero() {
			g.post(ctx, config.ChannelID, goodbyeEmbed(name, roomName))
		}
	}
}

// TestGreeting posts the join greeting to the configured channel so an
// operator can check the configuration.
func (g *Greeter) TestGreeting(ctx context.Context, roomID ref.RoomID) error {
	config, err := g.LoadConfig(ctx, roomID)
	if err != nil {
		return err
	}
	if config.ChannelID.IsZero() {
		return fmt.Errorf("greeter: no welcome channel configured for %s", roomID)
	}
	roomName, err := g.client.RoomName(ctx, roomID)
	if err != nil || roomName == "" {
		roomName = "the room"
	}
	g.post(ctx, config.ChannelID, welcomeEmbed("test user", roomName))
	return nil
}

func (g *Greeter) post(ctx context.Context, roomID ref.RoomID, draft embed.Embed) {
	rendered := embed.Render(draft)
	content := messaging.NewHTMLNotice(rendered.Body, rendered.HTMLBody)
	if _, err := g.client.SendMessage(ctx, roomID, content); err != nil {
		g.logger.Warn("greeting delivery failed", "room", roomID, "error", err)
	}
}

// sendDM opens a fresh direct room with the member and greets them
// there.
func (g *Greeter) sendDM(ctx context.Context, member ref.UserID, draft embed.Embed) {
	response, err := g.client.CreateRoom(ctx, messaging.CreateRoomRequest{
		Preset:   "trusted_private_chat",
		IsDirect: true,
		Invite:   []string{member.String()},
	})
	if err != nil {
		g.logger.Warn("welcome DM room creation failed", "member", member, "error", err)
		return
	}
	g.post(ctx, response.RoomID, draft)
}

func welcomeEmbed(name, roomName string) embed.Embed {
	return embed.Embed{
		Title:       "Welcome!",
		Description: fmt.Sprintf("Say hello to **%s**, the newest member of %s.", name, roomName),
		Color:       embed.DefaultColor,
	}
}

func welcomeDMEmbed(name, roomName string) embed.Embed {
	return embed.Embed{
		Title:       fmt.Sprintf("Welcome to %s", roomName),
		Description: fmt.Sprintf("Hi %s! Glad to have you. Say `!help` in any shared room to see what I can do.", name),
		Color:       embed.DefaultColor,
	}
}

func goodbyeEmbed(name, roomName string) embed.Embed {
	return embed.Embed{
		Title:       "Goodbye",
		Description: fmt.Sprintf("**%s** has left %s.", name, roomName),
		Color:       embed.DefaultColor,
	}
}
