// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticketroom opens and tears down private support rooms. A
// ticket is a freshly created room holding the opener and the staff,
// marked by an im.herald.ticket state event; closing posts a notice
// and removes everyone after a grace period.
package ticketroom

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/herald-project/herald/lib/clock"
	"github.com/herald-project/herald/lib/ref"
	"github.com/herald-project/herald/lib/schema"
	"github.com/herald-project/herald/messaging"
)

// closeGrace is how long a closed ticket room stays readable before
// teardown.
const closeGrace = 10 * time.Second

// teardownTimeout bounds the kick-and-leave calls issued from the
// grace timer callback.
const teardownTimeout = time.Minute

// Client is the slice of the Matrix session the ticket manager needs.
// *messaging.Session satisfies it.
type Client interface {
	CreateRoom(ctx context.Context, request messaging.CreateRoomRequest) (*messaging.CreateRoomResponse, error)
	SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error)
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (ref.EventID, error)
	GetRoomMembers(ctx context.Context, roomID ref.RoomID) ([]messaging.RoomMember, error)
	KickUser(ctx context.Context, roomID ref.RoomID, userID ref.UserID, reason string) error
	LeaveRoom(ctx context.Context, roomID ref.RoomID) error
}

// Config wires a Manager.
type Config struct {
	Client Client
	Clock  clock.Clock

	// BotUser is excluded from kicks and leaves last.
	BotUser ref.UserID

	// Staff are invited to every ticket room.
	Staff []ref.UserID

	Logger *slog.Logger
}

// Manager tracks at most one open ticket room per user.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	open map[ref.UserID]ref.RoomID
}

// New validates the configuration and returns an empty Manager.
func New(cfg Config) (*Manager, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("ticketroom: Config.Client is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("ticketroom: Config.Clock is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		cfg:    cfg,
		logger: cfg.Logger,
		open:   make(map[ref.UserID]ref.RoomID),
	}, nil
}

// Open creates a ticket room for the opener, invites the staff, and
// marks the room. One open ticket per user.
func (m *Manager) Open(ctx context.Context, opener ref.UserID, subject string) (ref.RoomID, error) {
	m.mu.Lock()
	if existing, ok := m.open[opener]; ok {
		m.mu.Unlock()
		return ref.RoomID{}, fmt.Errorf("ticketroom: %s already has an open ticket in %s", opener, existing)
	}
	m.mu.Unlock()

	name := "Ticket: " + opener.Localpart()
	if subject != "" {
		name = "Ticket: " + subject
	}
	invite := []string{opener.String()}
	for _, staff := range m.cfg.Staff {
		invite = append(invite, staff.String())
	}

	response, err := m.cfg.Client.CreateRoom(ctx, messaging.CreateRoomRequest{
		Name:   name,
		Preset: "private_chat",
		Invite: invite,
		InitialState: []messaging.StateEvent{{
			Type: schema.EventTypeTicket,
			Content: schema.TicketMarker{
				Opener:  opener,
				Status:  "open",
				Subject: subject,
			},
		}},
	})
	if err != nil {
		return ref.RoomID{}, fmt.Errorf("ticketroom: failed to create ticket room for %s: %w", opener, err)
	}
	roomID := response.RoomID

	m.mu.Lock()
	m.open[opener] = roomID
	m.mu.Unlock()

	greeting := messaging.NewNotice(fmt.Sprintf(
		"Support ticket opened for %s. Describe your issue; staff have been invited.", opener.Localpart()))
	if _, err := m.cfg.Client.SendMessage(ctx, roomID, greeting); err != nil {
		m.logger.Warn("ticket greeting failed", "room", roomID, "error", err)
	}

	m.logger.Info("ticket opened", "opener", opener, "room", roomID)
	return roomID, nil
}

// RoomFor returns the opener's open ticket room, if any.
func (m *Manager) RoomFor(opener ref.UserID) (ref.RoomID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomID, ok := m.open[opener]
	return roomID, ok
}

// Close marks the opener's ticket closed, announces the teardown, and
// schedules it after a grace period.
func (m *Manager) Close(ctx context.Context, opener ref.UserID) error {
	m.mu.Lock()
	roomID, ok := m.open[opener]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("ticketroom: %s has no open ticket", opener)
	}
	delete(m.open, opener)
	m.mu.Unlock()

	marker := schema.TicketMarker{Opener: opener, Status: "closed"}
	if _, err := m.cfg.Client.SendStateEvent(ctx, roomID, schema.EventTypeTicket, "", marker); err != nil {
		m.logger.Warn("ticket close marker failed", "room", roomID, "error", err)
	}

	notice := messaging.NewNotice(fmt.Sprintf(
		"Ticket closed. This room will be removed in %s.", closeGrace))
	if _, err := m.cfg.Client.SendMessage(ctx, roomID, notice); err != nil {
		m.logger.Warn("ticket close notice failed", "room", roomID, "error", err)
	}

	m.cfg.Clock.AfterFunc(closeGrace, func() { m.teardown(roomID) })
	m.logger.Info("ticket closed", "opener", opener, "room", roomID)
	return nil
}

// teardown kicks every remaining member and leaves the room. Best
// effort throughout: a member who already left is not an error worth
// keeping the room alive for.
func (m *Manager) teardown(roomID ref.RoomID) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	members, err := m.cfg.Client.GetRoomMembers(ctx, roomID)
	if err != nil {
		m.logger.Warn("ticket teardown member list failed", "room", roomID, "error", err)
	}
	for _, member := range members {
		if member.UserID == m.cfg.BotUser || member.Membership != "join" {
			continue
		}
		if err := m.cfg.Client.KickUser(ctx, roomID, member.UserID, "ticket closed"); err != nil {
			m.logger.Warn("ticket teardown kick failed", "room", roomID, "member", member.UserID, "error", err)
		}
	}
	if err := m.cfg.Client.LeaveRoom(ctx, roomID); err != nil {
		m.logger.Warn("ticket teardown leave failed", "room", roomID, "error", err)
	}
	m.logger.Info("ticket room removed", "room", roomID)
}

// OpenCount reports how many tickets are open, for operator queries.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}
