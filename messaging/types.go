// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import "github.com/herald-project/herald/lib/ref"

// AuthResponse is returned by the login endpoint.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Type                     string `json:"type"`
	User                     string `json:"user"`
	Password                 string `json:"password"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
}

// MessageContent is the content of an m.room.message event. Formatted
// messages carry an HTML body alongside the plain-text fallback.
type MessageContent struct {
	MsgType       string `json:"msgtype"`
	Body          string `json:"body"`
	Format        string `json:"format,omitempty"`
	FormattedBody string `json:"formatted_body,omitempty"`
}

// Message type values for MessageContent.MsgType.
const (
	MsgText   = "m.text"
	MsgNotice = "m.notice"
)

// formatHTML is the only format value the Matrix spec defines.
const formatHTML = "org.matrix.custom.html"

// NewTextMessage creates a plain text message.
func NewTextMessage(body string) MessageContent {
	return MessageContent{MsgType: MsgText, Body: body}
}

// NewNotice creates an m.notice message. Bots send notices rather
// than text so that other bots do not respond to them.
func NewNotice(body string) MessageContent {
	return MessageContent{MsgType: MsgNotice, Body: body}
}

// NewHTMLNotice creates an m.notice message with an HTML rendering and
// a plain-text fallback body.
func NewHTMLNotice(body, htmlBody string) MessageContent {
	return MessageContent{
		MsgType:       MsgNotice,
		Body:          body,
		Format:        formatHTML,
		FormattedBody: htmlBody,
	}
}

// Event is a Matrix event from the server.
type Event struct {
	EventID        ref.EventID    `json:"event_id"`
	Type           ref.EventType  `json:"type"`
	Sender         ref.UserID     `json:"sender"`
	OriginServerTS int64          `json:"origin_server_ts"`
	Content        map[string]any `json:"content"`
	RoomID         ref.RoomID     `json:"room_id,omitempty"`
	StateKey       *string        `json:"state_key,omitempty"`
}

// MessageBody extracts the body string from an m.room.message event's
// content. Returns "" when absent or not a string.
func (e Event) MessageBody() string {
	body, _ := e.Content["body"].(string)
	return body
}

// CreateRoomRequest holds parameters for creating a room.
type CreateRoomRequest struct {
	Name         string       `json:"name,omitempty"`
	Topic        string       `json:"topic,omitempty"`
	Alias        string       `json:"room_alias_name,omitempty"` // local alias without # or :server
	Visibility   string       `json:"visibility,omitempty"`      // "public" or "private"
	Preset       string       `json:"preset,omitempty"`          // e.g. "private_chat"
	IsDirect     bool         `json:"is_direct,omitempty"`
	Invite       []string     `json:"invite,omitempty"`
	InitialState []StateEvent `json:"initial_state,omitempty"`
}

// StateEvent is a state event included at room creation.
type StateEvent struct {
	Type     ref.EventType `json:"type"`
	StateKey string        `json:"state_key"`
	Content  any           `json:"content"`
}

// CreateRoomResponse is returned by CreateRoom.
type CreateRoomResponse struct {
	RoomID ref.RoomID `json:"room_id"`
}

// InviteRequest is the body for the invite endpoint.
type InviteRequest struct {
	UserID ref.UserID `json:"user_id"`
}

// KickRequest is the body for the kick endpoint.
type KickRequest struct {
	UserID ref.UserID `json:"user_id"`
	Reason string     `json:"reason,omitempty"`
}

// SendEventResponse is returned by event sends and redactions.
type SendEventResponse struct {
	EventID ref.EventID `json:"event_id"`
}

// WhoAmIResponse is returned by WhoAmI.
type WhoAmIResponse struct {
	UserID ref.UserID `json:"user_id"`
}

// ResolveAliasResponse is returned by ResolveAlias.
type ResolveAliasResponse struct {
	RoomID ref.RoomID `json:"room_id"`
}

// JoinedRoomsResponse is returned by JoinedRooms.
type JoinedRoomsResponse struct {
	JoinedRooms []ref.RoomID `json:"joined_rooms"`
}

// RoomMember is a member of a room.
type RoomMember struct {
	UserID      ref.UserID
	DisplayName string
	Membership  string
}

// roomMembersResponse is the wire shape of the /members endpoint.
type roomMembersResponse struct {
	Chunk []struct {
		StateKey ref.UserID `json:"state_key"`
		Content  struct {
			Membership  string `json:"membership"`
			DisplayName string `json:"displayname,omitempty"`
		} `json:"content"`
	} `json:"chunk"`
}

// DisplayNameResponse is returned by the profile displayname endpoint.
type DisplayNameResponse struct {
	DisplayName string `json:"displayname"`
}

// SyncOptions controls the /sync endpoint.
type SyncOptions struct {
	Since      string // next_batch from the previous sync; empty for initial
	Timeout    int    // long-poll timeout in milliseconds
	SetTimeout bool   // send the timeout parameter ("not set" differs from "0")
	Filter     string // filter ID or inline JSON filter
}

// SyncResponse is the top-level /sync response.
type SyncResponse struct {
	NextBatch string       `json:"next_batch"`
	Rooms     RoomsSection `json:"rooms"`
}

// RoomsSection groups per-room sync data by membership state. Map keys
// are validated room IDs via ref.RoomID's TextUnmarshaler.
type RoomsSection struct {
	Join   map[ref.RoomID]JoinedRoom  `json:"join,omitempty"`
	Invite map[ref.RoomID]InvitedRoom `json:"invite,omitempty"`
	Leave  map[ref.RoomID]LeftRoom    `json:"leave,omitempty"`
}

// JoinedRoom is sync data for a joined room.
type JoinedRoom struct {
	Timeline TimelineSection `json:"timeline"`
	State    StateSection    `json:"state"`
}

// InvitedRoom is sync data for a pending invite.
type InvitedRoom struct {
	InviteState StateSection `json:"invite_state"`
}

// LeftRoom is sync data for a room the user has left.
type LeftRoom struct {
	Timeline TimelineSection `json:"timeline"`
}

// TimelineSection holds timeline events from a sync response.
type TimelineSection struct {
	Events    []Event `json:"events"`
	PrevBatch string  `json:"prev_batch"`
	Limited   bool    `json:"limited"`
}

// StateSection holds state events from a sync response.
type StateSection struct {
	Events []Event `json:"events"`
}

// RedactRequest is the body for the redaction endpoint.
type RedactRequest struct {
	Reason string `json:"reason,omitempty"`
}
