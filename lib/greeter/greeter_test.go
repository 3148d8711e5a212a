// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package greeter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/herald-project/herald/lib/ref"
	"github.com/herald-project/herald/lib/schema"
	"github.com/herald-project/herald/messaging"
)

var (
	botUser     = ref.MustParseUserID("@herald:local")
	joiner      = ref.MustParseUserID("@newbie:local")
	mainRoom    = ref.MustParseRoomID("!main:local")
	greetRoom   = ref.MustParseRoomID("!greetings:local")
	createdRoom = ref.MustParseRoomID("!dm:local")
)

type sentMessage struct {
	room    ref.RoomID
	content messaging.MessageContent
}

// fakeClient backs the greeter with in-memory room state.
type fakeClient struct {
	state    map[string]json.RawMessage // room/type -> content
	sent     []sentMessage
	created  []messaging.CreateRoomRequest
	roomName string
}

func newFakeClient() *fakeClient {
	return &fakeClient{state: make(map[string]json.RawMessage), roomName: "Herald HQ"}
}

func stateKey(roomID ref.RoomID, eventType ref.EventType) string {
	return roomID.String() + "/" + eventType.String()
}

func (f *fakeClient) SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) (ref.EventID, error) {
	f.sent = append(f.sent, sentMessage{room: roomID, content: content})
	return ref.MustParseEventID(fmt.Sprintf("$sent%d", len(f.sent))), nil
}

func (f *fakeClient) GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, _ string) (json.RawMessage, error) {
	raw, ok := f.state[stateKey(roomID, eventType)]
	if !ok {
		return nil, &messaging.MatrixError{
			Code:       messaging.ErrCodeNotFound,
			Message:    "not found",
			StatusCode: http.StatusNotFound,
		}
	}
	return raw, nil
}

func (f *fakeClient) SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, _ string, content any) (ref.EventID, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return ref.EventID{}, err
	}
	f.state[stateKey(roomID, eventType)] = raw
	return ref.MustParseEventID("$state1"), nil
}

func (f *fakeClient) CreateRoom(ctx context.Context, request messaging.CreateRoomRequest) (*messaging.CreateRoomResponse, error) {
	f.created = append(f.created, request)
	return &messaging.CreateRoomResponse{RoomID: createdRoom}, nil
}

func (f *fakeClient) RoomName(ctx context.Context, roomID ref.RoomID) (string, error) {
	return f.roomName, nil
}

func (f *fakeClient) setWelcomeConfig(t *testing.T, roomID ref.RoomID, config schema.WelcomeConfig) {
	t.Helper()
	raw, err := json.Marshal(config)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	f.state[stateKey(roomID, schema.EventTypeWelcome)] = raw
}

func TestLoadConfigDefaults(t *testing.T) {
	client := newFakeClient()
	g := New(client, botUser, nil)

	config, err := g.LoadConfig(context.Background(), mainRoom)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !config.DMEnabled || !config.WelcomeEnabled || !config.GoodbyeEnabled {
		t.Errorf("defaults not applied: %+v", config)
	}
	if !config.ChannelID.IsZero() {
		t.Errorf("default config has a channel: %+v", config)
	}
}

func TestSaveThenLoadConfig(t *testing.T) {
	client := newFakeClient()
	g := New(client, botUser, nil)

	want := schema.WelcomeConfig{ChannelID: greetRoom, WelcomeEnabled: true}
	if err := g.SaveConfig(context.Background(), mainRoom, want); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	got, err := g.LoadConfig(context.Background(), mainRoom)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestJoinPostsWelcomeAndDM(t *testing.T) {
	client := newFakeClient()
	client.setWelcomeConfig(t, mainRoom, schema.WelcomeConfig{
		ChannelID:      greetRoom,
		WelcomeEnabled: true,
		DMEnabled:      true,
	})
	g := New(client, botUser, nil)

	g.HandleMembership(context.Background(), mainRoom, joiner,
		schema.MemberContent{Membership: schema.MembershipJoin, DisplayName: "Newbie"})

	if len(client.sent) != 2 {
		t.Fatalf("sent %d messages, want 2 (channel + DM)", len(client.sent))
	}
	if client.sent[0].room != greetRoom {
		t.Errorf("welcome posted to %s, want %s", client.sent[0].room, greetRoom)
	}
	if !strings.Contains(client.sent[0].content.Body, "Newbie") {
		t.Errorf("welcome body missing display name: %s", client.sent[0].content.Body)
	}
	if len(client.created) != 1 || !client.created[0].IsDirect {
		t.Fatalf("DM room not created as direct: %+v", client.created)
	}
	if client.sent[1].room != createdRoom {
		t.Errorf("DM sent to %s, want %s", client.sent[1].room, createdRoom)
	}
}

func TestLeavePostsGoodbye(t *testing.T) {
	client := newFakeClient()
	client.setWelcomeConfig(t, mainRoom, schema.WelcomeConfig{
		ChannelID:      greetRoom,
		GoodbyeEnabled: true,
	})
	g := New(client, botUser, nil)

	g.HandleMembership(context.Background(), mainRoom, joiner,
		schema.MemberContent{Membership: schema.MembershipLeave})

	if len(client.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(client.sent))
	}
	if !strings.Contains(client.sent[0].content.Body, joiner.Localpart()) {
		t.Errorf("goodbye missing localpart fallback: %s", client.sent[0].content.Body)
	}
}

func TestDisabledFeaturesStaySilent(t *testing.T) {
	client := newFakeClient()
	client.setWelcomeConfig(t, mainRoom, schema.WelcomeConfig{ChannelID: greetRoom})
	g := New(client, botUser, nil)

	g.HandleMembership(context.Background(), mainRoom, joiner,
		schema.MemberContent{Membership: schema.MembershipJoin})
	g.HandleMembership(context.Background(), mainRoom, joiner,
		schema.MemberContent{Membership: schema.MembershipLeave})

	if len(client.sent) != 0 || len(client.created) != 0 {
		t.Errorf("disabled config still sent: %d messages, %d rooms", len(client.sent), len(client.created))
	}
}

func TestBotOwnMembershipIgnored(t *testing.T) {
	client := newFakeClient()
	client.setWelcomeConfig(t, mainRoom, schema.WelcomeConfig{
		ChannelID: greetRoom, WelcomeEnabled: true, DMEnabled: true,
	})
	g := New(client, botUser, nil)

	g.HandleMembership(context.Background(), mainRoom, botUser,
		schema.MemberContent{Membership: schema.MembershipJoin})

	if len(client.sent) != 0 {
		t.Error("bot greeted itself")
	}
}

func TestAuthorized(t *testing.T) {
	client := newFakeClient()
	levels, err := json.Marshal(schema.PowerLevels{
		Users: map[string]int{"@mod:local": 50, "@member:local": 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	client.state[stateKey(mainRoom, schema.MatrixEventTypePowerLevels)] = levels
	g := New(client, botUser, nil)

	tests := []struct {
		user string
		want bool
	}{
		{"@mod:local", true},
		{"@member:local", false},
		{"@nobody:local", false},
	}
	for _, test := range tests {
		got, err := g.Authorized(context.Background(), mainRoom, ref.MustParseUserID(test.user))
		if err != nil {
			t.Fatalf("Authorized(%s) failed: %v", test.user, err)
		}
		if got != test.want {
			t.Errorf("Authorized(%s) = %v, want %v", test.user, got, test.want)
		}
	}
}

func TestTestGreetingRequiresChannel(t *testing.T) {
	client := newFakeClient()
	g := New(client, botUser, nil)
	if err := g.TestGreeting(context.Background(), mainRoom); err == nil {
		t.Error("TestGreeting succeeded with no configured channel")
	}

	client.setWelcomeConfig(t, mainRoom, schema.WelcomeConfig{ChannelID: greetRoom, WelcomeEnabled: true})
	if err := g.TestGreeting(context.Background(), mainRoom); err != nil {
		t.Fatalf("TestGreeting failed: %v", err)
	}
	if len(client.sent) != 1 || client.sent[0].room != greetRoom {
		t.Errorf("test greeting not posted: %+v", client.sent)
	}
}
