// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"

	"github.com/herald-project/herald/lib/adminsock"
	"github.com/herald-project/herald/lib/clock"
	"github.com/herald-project/herald/lib/embed"
	"github.com/herald-project/herald/lib/fetch"
	"github.com/herald-project/herald/lib/greeter"
	"github.com/herald-project/herald/lib/ref"
	"github.com/herald-project/herald/lib/schema"
	"github.com/herald-project/herald/lib/ticketroom"
	"github.com/herald-project/herald/lib/wizard"
	"github.com/herald-project/herald/messaging"
)

// Herald is the running service: the sync event router plus the
// collaborator implementations backing the builder.
type Herald struct {
	cfg      *Config
	session  *messaging.Session
	clk      clock.Clock
	logger   *slog.Logger
	registry *wizard.Registry
	greeter  *greeter.Greeter
	tickets  *ticketroom.Manager
	fetcher  *fetch.Fetcher

	mu          sync.Mutex
	directRooms map[ref.RoomID]bool
}

// NewHerald wires the service together.
func NewHerald(cfg *Config, session *messaging.Session, clk clock.Clock, logger *slog.Logger) (*Herald, error) {
	h := &Herald{
		cfg:         cfg,
		session:     session,
		clk:         clk,
		logger:      logger,
		directRooms: make(map[ref.RoomID]bool),
	}

	registry, err := wizard.NewRegistry(wizard.Config{
		Clock:          clk,
		Notifier:       h,
		Deleter:        h,
		Roles:          h,
		Destinations:   h,
		Publisher:      h,
		AllowedRoles:   cfg.AllowedPublisherRoles,
		PreviewTimeout: cfg.PreviewTimeout(),
		FormTimeout:    cfg.FormTimeout(),
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	h.registry = registry

	h.greeter = greeter.New(session, session.UserID(), logger)

	var staff []ref.UserID
	for _, raw := range cfg.TicketStaff {
		staff = append(staff, ref.MustParseUserID(raw))
	}
	tickets, err := ticketroom.New(ticketroom.Config{
		Client:  session,
		Clock:   clk,
		BotUser: session.UserID(),
		Staff:   staff,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	h.tickets = tickets

	h.fetcher = fetch.New(fetch.Config{
		CatURL:  cfg.Fetchers.CatURL,
		DogURL:  cfg.Fetchers.DogURL,
		MemeURL: cfg.Fetchers.MemeURL,
	})
	return h, nil
}

// syncFilter limits sync responses to the event types Herald routes.
const syncFilter = `{"room":{"timeline":{"types":["m.room.message","m.room.member"],"limit":50},"state":{"types":[]},"ephemeral":{"types":[]}},"presence":{"types":[]}}`

// handleSync routes one incremental sync response.
func (h *Herald) handleSync(ctx context.Context, response *messaging.SyncResponse) {
	messaging.AcceptInvites(ctx, h.session, response.Rooms.Invite, h.logger)

	for roomID, room := range response.Rooms.Join {
		for _, event := range room.Timeline.Events {
			h.routeEvent(ctx, roomID, event)
		}
	}
}

func (h *Herald) routeEvent(ctx context.Context, roomID ref.RoomID, event messaging.Event) {
	if event.Sender == h.session.UserID() {
		return
	}

	switch event.Type {
	case schema.MatrixEventTypeMember:
		if event.StateKey == nil {
			return
		}
		member, err := ref.ParseUserID(*event.StateKey)
		if err != nil {
			return
		}
		membership, _ := event.Content["membership"].(string)
		displayName, _ := event.Content["displayname"].(string)
		h.greeter.HandleMembership(ctx, roomID, member, schema.MemberContent{
			Membership:  membership,
			DisplayName: displayName,
		})

	case schema.MatrixEventTypeMessage:
		body := strings.TrimSpace(event.MessageBody())
		if body == "" {
			return
		}
		if strings.HasPrefix(body, h.cfg.CommandPrefix) {
			h.handleCommand(ctx, roomID, event.Sender, strings.TrimPrefix(body, h.cfg.CommandPrefix))
			return
		}
		consumed, err := h.registry.HandleMessage(ctx, event.Sender, roomID, body)
		if err != nil {
			h.logger.Warn("builder input failed", "user", event.Sender, "room", roomID, "error", err)
		}
		_ = consumed
	}
}

func (h *Herald) handleCommand(ctx context.Context, roomID ref.RoomID, sender ref.UserID, input string) {
	name, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	var err error
	switch strings.ToLower(name) {
	case "embed":
		err = h.commandEmbed(ctx, roomID, sender)
	case "template":
		err = h.commandTemplate(ctx, roomID, sender, args)
	case "cat":
		err = h.commandFetch(ctx, roomID, h.fetcher.CatImage)
	case "dog":
		err = h.commandFetch(ctx, roomID, h.fetcher.DogImage)
	case "meme":
		err = h.commandFetch(ctx, roomID, h.fetcher.RandomMeme)
	case "welcome":
		err = h.commandWelcome(ctx, roomID, sender, args)
	case "ticket":
		err = h.commandTicket(ctx, roomID, sender, args)
	case "help":
		err = h.notify(ctx, roomID, helpText(h.cfg.CommandPrefix))
	default:
		h.logger.Debug("unknown command", "command", name, "sender", sender)
		return
	}
	if err != nil {
		h.logger.Warn("command failed", "command", name, "sender", sender, "room", roomID, "error", err)
	}
}

func (h *Herald) commandEmbed(ctx context.Context, roomID ref.RoomID, sender ref.UserID) error {
	direct, err := h.isDirectRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !direct {
		return h.notify(ctx, roomID, "The builder runs in a direct room — message me privately and run it there.")
	}
	return h.registry.Start(ctx, sender, roomID)
}

func (h *Herald) commandTemplate(ctx context.Context, roomID ref.RoomID, sender ref.UserID, args string) error {
	verb, name, _ := strings.Cut(args, " ")
	name = strings.TrimSpace(name)

	switch verb {
	case "save":
		if err := h.registry.SaveTemplate(sender, name); err != nil {
			return h.notify(ctx, roomID, err.Error())
		}
		return h.notify(ctx, roomID, fmt.Sprintf("Template %q saved.", name))
	case "load":
		direct, err := h.isDirectRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if !direct {
			return h.notify(ctx, roomID, "Templates load in a direct room only.")
		}
		if err := h.registry.StartFromTemplate(ctx, sender, roomID, name); err != nil {
			return h.notify(ctx, roomID, err.Error())
		}
		return nil
	case "list":
		names := h.registry.TemplateNames(sender)
		if len(names) == 0 {
			return h.notify(ctx, roomID, "You have no saved templates.")
		}
		return h.notify(ctx, roomID, "Templates: "+strings.Join(names, ", "))
	default:
		return h.notify(ctx, roomID, "Usage: template save <name> | load <name> | list")
	}
}

func (h *Herald) commandFetch(ctx context.Context, roomID ref.RoomID, fetchFunc func(context.Context) (embed.Embed, error)) error {
	draft, err := fetchFunc(ctx)
	if err != nil {
		h.logger.Warn("fetch failed", "room", roomID, "error", err)
		return h.notify(ctx, roomID, "Could not fetch that right now; try again later.")
	}
	rendered := embed.Render(draft)
	_, err = h.session.SendMessage(ctx, roomID, messaging.NewHTMLNotice(rendered.Body, rendered.HTMLBody))
	return err
}

func (h *Herald) commandWelcome(ctx context.Context, roomID ref.RoomID, sender ref.UserID, args string) error {
	authorized, err := h.greeter.Authorized(ctx, roomID, sender)
	if err != nil {
		return err
	}
	if !authorized {
		return h.notify(ctx, roomID, "Configuring the welcome system needs moderator power.")
	}

	config, err := h.greeter.LoadConfig(ctx, roomID)
	if err != nil {
		return err
	}

	verb, rest, _ := strings.Cut(args, " ")
	switch verb {
	case "channel":
		target, err := ref.ParseRoomID(strings.TrimSpace(rest))
		if err != nil {
			return h.notify(ctx, roomID, "Usage: welcome channel !room:server")
		}
		config.ChannelID = target
	case "toggle":
		switch strings.TrimSpace(rest) {
		case "dm":
			config.DMEnabled = !config.DMEnabled
		case "join":
			config.WelcomeEnabled = !config.WelcomeEnabled
		case "leave":
			config.GoodbyeEnabled = !config.GoodbyeEnabled
		default:
			return h.notify(ctx, roomID, "Usage: welcome toggle dm|join|leave")
		}
	case "test":
		if err := h.greeter.TestGreeting(ctx, roomID); err != nil {
			return h.notify(ctx, roomID, err.Error())
		}
		return nil
	default:
		return h.notify(ctx, roomID, "Usage: welcome channel <room> | toggle dm|join|leave | test")
	}

	if err := h.greeter.SaveConfig(ctx, roomID, config); err != nil {
		return err
	}
	return h.notify(ctx, roomID, fmt.Sprintf(
		"Welcome config updated: channel=%s dm=%t join=%t leave=%t",
		config.ChannelID, config.DMEnabled, config.WelcomeEnabled, config.GoodbyeEnabled))
}

func (h *Herald) commandTicket(ctx context.Context, roomID ref.RoomID, sender ref.UserID, args string) error {
	verb, subject, _ := strings.Cut(args, " ")
	switch verb {
	case "open":
		ticketRoom, err := h.tickets.Open(ctx, sender, strings.TrimSpace(subject))
		if err != nil {
			return h.notify(ctx, roomID, err.Error())
		}
		return h.notify(ctx, roomID, fmt.Sprintf("Ticket opened: %s", ticketRoom))
	case "close":
		if err := h.tickets.Close(ctx, sender); err != nil {
			return h.notify(ctx, roomID, err.Error())
		}
		return h.notify(ctx, roomID, "Ticket closed.")
	default:
		return h.notify(ctx, roomID, "Usage: ticket open <subject> | close")
	}
}

func (h *Herald) notify(ctx context.Context, roomID ref.RoomID, text string) error {
	_, err := h.session.SendMessage(ctx, roomID, messaging.NewNotice(text))
	return err
}

// isDirectRoom treats any room with at most two joined members as a
// direct room. Results are cached; a false cache entry is re-checked
// because group rooms can shrink into DMs.
func (h *Herald) isDirectRoom(ctx context.Context, roomID ref.RoomID) (bool, error) {
	h.mu.Lock()
	if h.directRooms[roomID] {
		h.mu.Unlock()
		return true, nil
	}
	h.mu.Unlock()

	members, err := h.session.GetRoomMembers(ctx, roomID)
	if err != nil {
		return false, fmt.Errorf("failed to inspect room %s: %w", roomID, err)
	}
	joined := 0
	for _, member := range members {
		if member.Membership == schema.MembershipJoin {
			joined++
		}
	}
	direct := joined <= 2

	h.mu.Lock()
	h.directRooms[roomID] = direct
	h.mu.Unlock()
	return direct, nil
}

// Notify implements wizard.Notifier.
func (h *Herald) Notify(ctx context.Context, room ref.RoomID, text string) error {
	return h.notify(ctx, room, text)
}

// SendPreview implements wizard.Notifier: the rendered draft plus the
// action menu as one formatted notice.
func (h *Herald) SendPreview(ctx context.Context, room ref.RoomID, rendered embed.Rendered, menu string) (ref.EventID, error) {
	body := rendered.Body + "\n\n" + menu
	htmlBody := rendered.HTMLBody + "<br/>" +
		strings.ReplaceAll(html.EscapeString(menu), "\n", "<br/>")
	return h.session.SendMessage(ctx, room, messaging.NewHTMLNotice(body, htmlBody))
}

// DeleteArtifact implements wizard.ArtifactDeleter by redacting the
// preview event.
func (h *Herald) DeleteArtifact(ctx context.Context, room ref.RoomID, event ref.EventID) error {
	_, err := h.session.RedactEvent(ctx, room, event, "preview removed")
	return err
}

// Roles implements wizard.RoleSource: the user's power level in the
// community room, mapped through the configured role ladder.
func (h *Herald) Roles(ctx context.Context, user ref.UserID) ([]string, error) {
	if h.cfg.CommunityRoom == "" {
		return nil, nil
	}
	communityRoom := ref.MustParseRoomID(h.cfg.CommunityRoom)

	raw, err := h.session.GetStateEvent(ctx, communityRoom, schema.MatrixEventTypePowerLevels, "")
	if err != nil {
		if messaging.IsMatrixError(err, messaging.ErrCodeNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read community power levels: %w", err)
	}
	var levels schema.PowerLevels
	if err := json.Unmarshal(raw, &levels); err != nil {
		return nil, fmt.Errorf("malformed community power levels: %w", err)
	}
	return h.cfg.RolesForLevel(levels.UserLevel(user.String())), nil
}

// Destinations implements wizard.DestinationSource. Configured publish
// rooms win; otherwise every joined room qualifies.
func (h *Herald) Destinations(ctx context.Context) ([]wizard.Destination, error) {
	var roomIDs []ref.RoomID
	if len(h.cfg.PublishRooms) > 0 {
		for _, raw := range h.cfg.PublishRooms {
			roomIDs = append(roomIDs, ref.MustParseRoomID(raw))
		}
	} else {
		joined, err := h.session.JoinedRooms(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list joined rooms: %w", err)
		}
		roomIDs = joined
	}

	var destinations []wizard.Destination
	for _, roomID := range roomIDs {
		if len(destinations) == wizard.MaxDestinations {
			break
		}
		name, err := h.session.RoomName(ctx, roomID)
		if err != nil {
			h.logger.Debug("room name lookup failed", "room", roomID, "error", err)
		}
		if name == "" {
			name = roomID.String()
		}
		destinations = append(destinations, wizard.Destination{RoomID: roomID, Name: name})
	}
	return destinations, nil
}

// Publish implements wizard.Publisher.
func (h *Herald) Publish(ctx context.Context, destination ref.RoomID, rendered embed.Rendered) error {
	_, err := h.session.SendMessage(ctx, destination, messaging.NewHTMLNotice(rendered.Body, rendered.HTMLBody))
	return err
}

// Status implements adminsock.Reporter.
func (h *Herald) Status() adminsock.Status {
	return adminsock.Status{
		UserID:       h.session.UserID().String(),
		Homeserver:   h.cfg.Homeserver,
		LiveSessions: len(h.registry.Sessions()),
		OpenTickets:  h.tickets.OpenCount(),
	}
}

// Sessions implements adminsock.Reporter.
func (h *Herald) Sessions() []wizard.SessionInfo {
	return h.registry.Sessions()
}

// TemplateCounts implements adminsock.Reporter.
func (h *Herald) TemplateCounts() map[string]int {
	return h.registry.TemplateCounts()
}

func helpText(prefix string) string {
	var b strings.Builder
	b.WriteString("Herald commands:\n")
	fmt.Fprintf(&b, "  %sembed — build a document interactively (direct room)\n", prefix)
	fmt.Fprintf(&b, "  %stemplate save|load|list — reuse finished documents\n", prefix)
	fmt.Fprintf(&b, "  %scat, %sdog, %smeme — fetch a random picture or post\n", prefix, prefix, prefix)
	fmt.Fprintf(&b, "  %swelcome channel|toggle|test — greet new members (moderators)\n", prefix)
	fmt.Fprintf(&b, "  %sticket open|close — private support rooms", prefix)
	return b.String()
}
