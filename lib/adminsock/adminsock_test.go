// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package adminsock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/herald-project/herald/lib/wizard"
)

type fakeReporter struct{}

func (fakeReporter) Status() Status {
	return Status{
		UserID:       "@herald:local",
		Homeserver:   "https://matrix.local",
		LiveSessions: 2,
		OpenTickets:  1,
	}
}

func (fakeReporter) Sessions() []wizard.SessionInfo {
	return []wizard.SessionInfo{
		{User: "@alice:local", State: "preview", FieldCount: 3, HasPreview: true},
	}
}

func (fakeReporter) TemplateCounts() map[string]int {
	return map[string]int{"@alice:local": 2}
}

func startTestServer(t *testing.T) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "admin.sock")

	server, err := Listen(socketPath, fakeReporter{}, nil)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return socketPath
}

func query(t *testing.T, socketPath, action string) *Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	response, err := Query(ctx, socketPath, Request{Action: action})
	if err != nil {
		t.Fatalf("Query(%q) failed: %v", action, err)
	}
	return response
}

func TestStatusQuery(t *testing.T) {
	socketPath := startTestServer(t)

	response := query(t, socketPath, ActionStatus)
	if !response.OK {
		t.Fatalf("response not OK: %s", response.Error)
	}
	if response.Status == nil || response.Status.UserID != "@herald:local" {
		t.Errorf("unexpected status: %+v", response.Status)
	}
	if response.Status.LiveSessions != 2 || response.Status.OpenTickets != 1 {
		t.Errorf("unexpected counters: %+v", response.Status)
	}
}

func TestSessionsQuery(t *testing.T) {
	socketPath := startTestServer(t)

	response := query(t, socketPath, ActionSessions)
	if !response.OK {
		t.Fatalf("response not OK: %s", response.Error)
	}
	if len(response.Sessions) != 1 || response.Sessions[0].User != "@alice:local" {
		t.Errorf("unexpected sessions: %+v", response.Sessions)
	}
	if response.Sessions[0].State != "preview" || response.Sessions[0].FieldCount != 3 {
		t.Errorf("session fields lost in transit: %+v", response.Sessions[0])
	}
}

func TestTemplatesQuery(t *testing.T) {
	socketPath := startTestServer(t)

	response := query(t, socketPath, ActionTemplates)
	if !response.OK {
		t.Fatalf("response not OK: %s", response.Error)
	}
	if response.Templates["@alice:local"] != 2 {
		t.Errorf("unexpected templates: %+v", response.Templates)
	}
}

func TestUnknownAction(t *testing.T) {
	socketPath := startTestServer(t)

	response := query(t, socketPath, "frobnicate")
	if response.OK {
		t.Error("unknown action reported OK")
	}
	if response.Error == "" {
		t.Error("unknown action carried no error message")
	}
}

func TestSequentialQueriesOnOneSocket(t *testing.T) {
	socketPath := startTestServer(t)
	for range 3 {
		if response := query(t, socketPath, ActionStatus); !response.OK {
			t.Fatalf("repeat query failed: %s", response.Error)
		}
	}
}
