// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package wizard

import (
	"context"

	"github.com/herald-project/herald/lib/embed"
	"github.com/herald-project/herald/lib/ref"
)

// Notifier delivers private responses to the requester's direct room:
// plain notices, form prompts, and the rendered preview itself.
type Notifier interface {
	// Notify sends a private plain-text notice or prompt.
	Notify(ctx context.Context, room ref.RoomID, text string) error

	// SendPreview sends the rendered draft plus the action menu and
	// returns the event ID of the preview artifact so it can be
	// redacted later.
	SendPreview(ctx context.Context, room ref.RoomID, rendered embed.Rendered, menu string) (ref.EventID, error)
}

// ArtifactDeleter removes a previously sent preview. Failures are
// ignorable: the artifact may already be gone.
type ArtifactDeleter interface {
	DeleteArtifact(ctx context.Context, room ref.RoomID, event ref.EventID) error
}

// RoleSource resolves the role names held by a user. The publication
// gate intersects the result with its allow-list.
type RoleSource interface {
	Roles(ctx context.Context, user ref.UserID) ([]string, error)
}

// Destination is a room a finished document can be published to.
type Destination struct {
	RoomID ref.RoomID
	Name   string
}

// DestinationSource enumerates the rooms eligible as publish targets.
type DestinationSource interface {
	Destinations(ctx context.Context) ([]Destination, error)
}

// Publisher sends a finished document to its chosen destination.
type Publisher interface {
	Publish(ctx context.Context, destination ref.RoomID, rendered embed.Rendered) error
}
