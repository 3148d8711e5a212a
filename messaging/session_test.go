// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/herald-project/herald/lib/ref"
)

// newTestSession creates a Client and Session pointing at a test server.
func newTestSession(t *testing.T, handler http.Handler) *Session {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	session, err := client.SessionFromToken(ref.MustParseUserID("@herald:local"), "test-token")
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	return session
}

func assertAuth(t *testing.T, request *http.Request, token string) {
	t.Helper()
	if got := request.Header.Get("Authorization"); got != "Bearer "+token {
		t.Errorf("Authorization header = %q, want %q", got, "Bearer "+token)
	}
}

func writeJSON(writer http.ResponseWriter, v any) {
	writer.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(writer).Encode(v)
}

func TestWhoAmI(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/account/whoami" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, WhoAmIResponse{UserID: ref.MustParseUserID("@herald:local")})
	}))

	userID, err := session.WhoAmI(context.Background())
	if err != nil {
		t.Fatalf("WhoAmI failed: %v", err)
	}
	if userID.String() != "@herald:local" {
		t.Errorf("unexpected user ID: %s", userID)
	}
}

func TestSendMessage(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", request.Method)
		}
		if !strings.Contains(request.URL.Path, "/send/m.room.message/") {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}

		var content MessageContent
		if err := json.NewDecoder(request.Body).Decode(&content); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if content.MsgType != MsgNotice {
			t.Errorf("msgtype = %q, want %q", content.MsgType, MsgNotice)
		}
		if content.Body != "hello" {
			t.Errorf("body = %q, want %q", content.Body, "hello")
		}
		writeJSON(writer, SendEventResponse{EventID: ref.MustParseEventID("$sent1")})
	}))

	eventID, err := session.SendMessage(context.Background(), ref.MustParseRoomID("!room:local"), NewNotice("hello"))
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if eventID.String() != "$sent1" {
		t.Errorf("unexpected event ID: %s", eventID)
	}
}

func TestSendMessageUniqueTransactionIDs(t *testing.T) {
	seen := make(map[string]bool)
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		parts := strings.Split(request.URL.Path, "/")
		transactionID := parts[len(parts)-1]
		if seen[transactionID] {
			t.Errorf("transaction ID %q reused", transactionID)
		}
		seen[transactionID] = true
		writeJSON(writer, SendEventResponse{EventID: ref.MustParseEventID("$e")})
	}))

	roomID := ref.MustParseRoomID("!room:local")
	for range 3 {
		if _, err := session.SendMessage(context.Background(), roomID, NewTextMessage("x")); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}
}

func TestRedactEvent(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if !strings.Contains(request.URL.Path, "/redact/$preview1/") {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		var body RedactRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Reason != "expired" {
			t.Errorf("reason = %q, want %q", body.Reason, "expired")
		}
		writeJSON(writer, SendEventResponse{EventID: ref.MustParseEventID("$redaction1")})
	}))

	_, err := session.RedactEvent(context.Background(),
		ref.MustParseRoomID("!room:local"), ref.MustParseEventID("$preview1"), "expired")
	if err != nil {
		t.Fatalf("RedactEvent failed: %v", err)
	}
}

func TestGetStateEventNotFound(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
		writeJSON(writer, map[string]string{"errcode": "M_NOT_FOUND", "error": "event not found"})
	}))

	_, err := session.GetStateEvent(context.Background(),
		ref.MustParseRoomID("!room:local"), "im.herald.welcome", "")
	if err == nil {
		t.Fatal("GetStateEvent succeeded, want M_NOT_FOUND")
	}
	if !IsMatrixError(err, ErrCodeNotFound) {
		t.Errorf("error = %v, want M_NOT_FOUND matrix error", err)
	}
}

func TestCreateRoom(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/v3/createRoom" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		var body CreateRoomRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Name != "Ticket: login broken" {
			t.Errorf("unexpected name: %s", body.Name)
		}
		if body.Preset != "private_chat" {
			t.Errorf("unexpected preset: %s", body.Preset)
		}
		writeJSON(writer, CreateRoomResponse{RoomID: ref.MustParseRoomID("!ticket:local")})
	}))

	response, err := session.CreateRoom(context.Background(), CreateRoomRequest{
		Name:   "Ticket: login broken",
		Preset: "private_chat",
		Invite: []string{"@alice:local"},
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if response.RoomID.String() != "!ticket:local" {
		t.Errorf("unexpected room ID: %s", response.RoomID)
	}
}

func TestGetRoomMembers(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, map[string]any{
			"chunk": []map[string]any{
				{"state_key": "@alice:local", "content": map[string]any{"membership": "join", "displayname": "Alice"}},
				{"state_key": "@bob:local", "content": map[string]any{"membership": "leave"}},
			},
		})
	}))

	members, err := session.GetRoomMembers(context.Background(), ref.MustParseRoomID("!room:local"))
	if err != nil {
		t.Fatalf("GetRoomMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("len(members) = %d, want 2", len(members))
	}
	if members[0].UserID.String() != "@alice:local" || members[0].DisplayName != "Alice" {
		t.Errorf("unexpected first member: %+v", members[0])
	}
	if members[1].Membership != "leave" {
		t.Errorf("unexpected second membership: %q", members[1].Membership)
	}
}

func TestRoomNameMissing(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
		writeJSON(writer, map[string]string{"errcode": "M_NOT_FOUND", "error": "no name"})
	}))

	name, err := session.RoomName(context.Background(), ref.MustParseRoomID("!room:local"))
	if err != nil {
		t.Fatalf("RoomName failed: %v", err)
	}
	if name != "" {
		t.Errorf("name = %q, want empty", name)
	}
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/_matrix/client/v3/login" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		var body LoginRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Type != "m.login.password" || body.User != "herald" {
			t.Errorf("unexpected login request: %+v", body)
		}
		writeJSON(writer, AuthResponse{
			UserID:      ref.MustParseUserID("@herald:local"),
			AccessToken: "tok123",
		})
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	session, err := client.Login(context.Background(), "herald", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.UserID().String() != "@herald:local" {
		t.Errorf("unexpected user ID: %s", session.UserID())
	}
}

func TestSyncParsesRooms(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if got := request.URL.Query().Get("since"); got != "batch1" {
			t.Errorf("since = %q, want %q", got, "batch1")
		}
		writeJSON(writer, map[string]any{
			"next_batch": "batch2",
			"rooms": map[string]any{
				"join": map[string]any{
					"!room:local": map[string]any{
						"timeline": map[string]any{
							"events": []map[string]any{{
								"event_id": "$m1",
								"type":     "m.room.message",
								"sender":   "@alice:local",
								"content":  map[string]any{"msgtype": "m.text", "body": "!embed"},
							}},
						},
					},
				},
			},
		})
	}))

	response, err := session.Sync(context.Background(), SyncOptions{Since: "batch1"})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if response.NextBatch != "batch2" {
		t.Errorf("next_batch = %q", response.NextBatch)
	}
	room := response.Rooms.Join[ref.MustParseRoomID("!room:local")]
	if len(room.Timeline.Events) != 1 {
		t.Fatalf("timeline events = %d, want 1", len(room.Timeline.Events))
	}
	event := room.Timeline.Events[0]
	if event.MessageBody() != "!embed" {
		t.Errorf("message body = %q, want %q", event.MessageBody(), "!embed")
	}
	if event.Sender.String() != "@alice:local" {
		t.Errorf("sender = %q", event.Sender)
	}
}

func TestMatrixErrorShape(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusForbidden)
		writeJSON(writer, map[string]string{"errcode": "M_FORBIDDEN", "error": "not allowed"})
	}))

	err := session.JoinRoom(context.Background(), ref.MustParseRoomID("!room:local"))
	if err == nil {
		t.Fatal("JoinRoom succeeded, want error")
	}
	var matrixErr *MatrixError
	if !errors.As(err, &matrixErr) {
		t.Fatalf("error %v is not a *MatrixError", err)
	}
	if matrixErr.Code != ErrCodeForbidden || matrixErr.StatusCode != http.StatusForbidden {
		t.Errorf("unexpected matrix error: %+v", matrixErr)
	}
}
