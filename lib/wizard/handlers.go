// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/herald-project/herald/lib/embed"
	"github.com/herald-project/herald/lib/ref"
)

// All handlers run with the registry mutex held: a session only ever
// has one mutator at a time.

func (r *Registry) handleBasics(ctx context.Context, s *session, body string) error {
	values, err := basicsForm.Parse(body)
	if err != nil {
		// Form submission is single-shot: a rejected basics form ends
		// the wizard rather than re-prompting.
		r.dropLocked(s)
		return r.cfg.Notifier.Notify(ctx, s.room, err.Error()+" — run the builder again to retry.")
	}

	s.draft.Title = values["Title"]
	s.draft.Description = values["Description"]
	s.draft.Color = embed.NormalizeColor(values["Color"])
	s.draft.FooterText = values["Footer text"]
	// The initial acquisition path is lenient on media references:
	// whatever the user typed is carried as-is.
	s.draft.FooterIconURL = values["Footer icon"]

	s.state = stateAwaitingMedia
	r.armTimer(s, r.cfg.FormTimeout)
	return r.cfg.Notifier.Notify(ctx, s.room, mediaForm.Prompt())
}

func (r *Registry) handleMedia(ctx context.Context, s *session, body string) error {
	values, err := mediaForm.Parse(body)
	if err != nil {
		r.dropLocked(s)
		return r.cfg.Notifier.Notify(ctx, s.room, err.Error()+" — run the builder again to retry.")
	}

	s.draft.ThumbnailURL = values["Thumbnail"]
	s.draft.ImageURL = values["Image"]
	s.draft.ShowTimestamp = parseYes(values["Timestamp"])

	return r.renderPreview(ctx, s)
}

func (r *Registry) handleAction(ctx context.Context, s *session, body string) error {
	action, err := parseAction(body)
	if err != nil {
		// Unknown action identifiers are logged, never answered.
		r.logger.Debug("unrecognized action input", "user", s.user, "input", body)
		return nil
	}
	return r.transitions[action](ctx, s)
}

func (r *Registry) actionAddField(ctx context.Context, s *session) error {
	return r.beginForm(ctx, s, ActionAddField, fieldForm)
}

func (r *Registry) actionAddImage(ctx context.Context, s *session) error {
	return r.beginForm(ctx, s, ActionAddImage, imageForm)
}

func (r *Registry) actionAddFooterIcon(ctx context.Context, s *session) error {
	return r.beginForm(ctx, s, ActionAddFooterIcon, footerIconForm)
}

func (r *Registry) beginForm(ctx context.Context, s *session, action Action, form FormSpec) error {
	s.state = stateAwaitingForm
	s.pendingAction = action
	s.pendingForm = form
	r.armTimer(s, r.cfg.FormTimeout)
	return r.cfg.Notifier.Notify(ctx, s.room, form.Prompt())
}

func (r *Registry) actionRemoveField(ctx context.Context, s *session) error {
	if len(s.draft.Fields) == 0 {
		return r.cfg.Notifier.Notify(ctx, s.room, "The draft has no fields to remove.")
	}

	var b strings.Builder
	b.WriteString("Reply with the index of the field to remove:")
	for index, field := range s.draft.Fields {
		fmt.Fprintf(&b, "\n  %d: %s", index, field.Name)
	}
	s.state = stateAwaitingRemoval
	r.armTimer(s, r.cfg.FormTimeout)
	return r.cfg.Notifier.Notify(ctx, s.room, b.String())
}

func (r *Registry) actionListFields(ctx context.Context, s *session) error {
	if len(s.draft.Fields) == 0 {
		return r.cfg.Notifier.Notify(ctx, s.room, "The draft has no fields.")
	}

	var b strings.Builder
	b.WriteString("Fields:")
	for index, field := range s.draft.Fields {
		marker := ""
		if field.Inline {
			marker = " (inline)"
		}
		fmt.Fprintf(&b, "\n  %d: %s%s — %s", index, field.Name, marker, field.Value)
	}
	return r.cfg.Notifier.Notify(ctx, s.room, b.String())
}

func (r *Registry) actionToggleTimestamp(ctx context.Context, s *session) error {
	s.draft.ShowTimestamp = !s.draft.ShowTimestamp
	return r.renderPreview(ctx, s)
}

func (r *Registry) actionPublish(ctx context.Context, s *session) error {
	roles, err := r.cfg.Roles.Roles(ctx, s.user)
	if err != nil {
		r.logger.Warn("role lookup failed", "user", s.user, "error", err)
		return r.cfg.Notifier.Notify(ctx, s.room, "Could not verify your roles; try again.")
	}
	if !anyAllowed(roles, r.cfg.AllowedRoles) {
		return r.cfg.Notifier.Notify(ctx, s.room,
			"You do not have permission to publish. Allowed roles: "+strings.Join(r.cfg.AllowedRoles, ", ")+".")
	}

	destinations, err := r.cfg.Destinations.Destinations(ctx)
	if err != nil {
		r.logger.Warn("destination enumeration failed", "user", s.user, "error", err)
		return r.cfg.Notifier.Notify(ctx, s.room, "Could not list destinations; try again.")
	}
	if len(destinations) == 0 {
		return r.cfg.Notifier.Notify(ctx, s.room, "No destinations are available to publish to.")
	}
	if len(destinations) > MaxDestinations {
		destinations = destinations[:MaxDestinations]
	}

	var b strings.Builder
	b.WriteString("Reply with the number of the destination:")
	for index, destination := range destinations {
		fmt.Fprintf(&b, "\n  %d: %s", index+1, destination.Name)
	}
	s.destinations = destinations
	s.state = stateAwaitingDestination
	r.armTimer(s, r.cfg.FormTimeout)
	return r.cfg.Notifier.Notify(ctx, s.room, b.String())
}

func (r *Registry) actionEdit(ctx context.Context, s *session) error {
	r.dropLocked(s)
	return r.cfg.Notifier.Notify(ctx, s.room, "Session discarded. Start the builder again to edit from scratch.")
}

func (r *Registry) actionCancel(ctx context.Context, s *session) error {
	r.dropLocked(s)
	r.deleteArtifact(ctx, s)
	return r.cfg.Notifier.Notify(ctx, s.room, "Cancelled.")
}

func (r *Registry) handleForm(ctx context.Context, s *session, body string) error {
	form, action := s.pendingForm, s.pendingAction
	s.pendingForm = FormSpec{}
	s.pendingAction = ""

	values, err := form.Parse(body)
	if err != nil {
		return r.rejectToPreview(ctx, s, err.Error())
	}

	switch action {
	case ActionAddField:
		s.draft.AddField(embed.Field{
			Name:   values["Name"],
			Value:  values["Value"],
			Inline: parseYes(values["Inline"]),
		})
	case ActionAddImage:
		// Secondary media entry points validate strictly, unlike the
		// initial acquisition forms.
		if err := embed.ValidateImageURL(values["Image"]); err != nil {
			return r.rejectToPreview(ctx, s, err.Error())
		}
		s.draft.ImageURL = values["Image"]
	case ActionAddFooterIcon:
		if err := embed.ValidateImageURL(values["Icon"]); err != nil {
			return r.rejectToPreview(ctx, s, err.Error())
		}
		s.draft.FooterIconURL = values["Icon"]
	default:
		return fmt.Errorf("wizard: no pending form handler for action %q", action)
	}

	return r.renderPreview(ctx, s)
}

func (r *Registry) handleRemoval(ctx context.Context, s *session, body string) error {
	index, err := strconv.Atoi(strings.TrimSpace(body))
	if err != nil || index < 0 || index >= len(s.draft.Fields) {
		return r.rejectToPreview(ctx, s, fmt.Sprintf("%q is not a listed field index.", strings.TrimSpace(body)))
	}

	removed, err := s.draft.RemoveField(index)
	if err != nil {
		return r.rejectToPreview(ctx, s, err.Error())
	}
	if err := r.cfg.Notifier.Notify(ctx, s.room, fmt.Sprintf("Removed field %q.", removed.Name)); err != nil {
		r.logger.Warn("failed to acknowledge removal", "user", s.user, "error", err)
	}
	return r.renderPreview(ctx, s)
}

func (r *Registry) handleDestination(ctx context.Context, s *session, body string) error {
	destinations := s.destinations
	s.destinations = nil

	choice, err := strconv.Atoi(strings.TrimSpace(body))
	if err != nil || choice < 1 || choice > len(destinations) {
		return r.rejectToPreview(ctx, s, fmt.Sprintf("%q is not a listed destination number.", strings.TrimSpace(body)))
	}
	destination := destinations[choice-1]

	rendered := embed.Render(s.draft)
	if err := r.cfg.Publisher.Publish(ctx, destination.RoomID, rendered); err != nil {
		// The draft survives a failed send so the user can retry.
		r.logger.Warn("publish failed", "user", s.user, "destination", destination.RoomID, "error", err)
		return r.rejectToPreview(ctx, s, fmt.Sprintf("Publishing to %s failed; pick publish to retry.", destination.Name))
	}

	r.lastDraft[s.user] = s.draft.Clone()
	r.dropLocked(s)
	r.deleteArtifact(ctx, s)
	return r.cfg.Notifier.Notify(ctx, s.room, fmt.Sprintf("Published to %s.", destination.Name))
}

// rejectToPreview reports a recoverable failure privately and returns
// the session to the preview state with the draft unchanged.
func (r *Registry) rejectToPreview(ctx context.Context, s *session, reason string) error {
	s.state = statePreview
	r.armTimer(s, r.cfg.PreviewTimeout)
	return r.cfg.Notifier.Notify(ctx, s.room, reason)
}

// renderPreview renders the draft, replaces the displayed preview
// artifact, and re-arms the idle timer.
func (r *Registry) renderPreview(ctx context.Context, s *session) error {
	r.deleteArtifact(ctx, s)

	rendered := embed.Render(s.draft)
	eventID, err := r.cfg.Notifier.SendPreview(ctx, s.room, rendered, renderMenu())
	if err != nil {
		r.dropLocked(s)
		return fmt.Errorf("wizard: failed to send preview for %s: %w", s.user, err)
	}

	s.previewEvent = eventID
	s.state = statePreview
	r.armTimer(s, r.cfg.PreviewTimeout)
	return nil
}

// deleteArtifact best-effort redacts the session's current preview.
// Failure is swallowed: the artifact may already be gone.
func (r *Registry) deleteArtifact(ctx context.Context, s *session) {
	if s.previewEvent.IsZero() {
		return
	}
	if err := r.cfg.Deleter.DeleteArtifact(ctx, s.room, s.previewEvent); err != nil {
		r.logger.Debug("preview delete failed", "user", s.user, "event", s.previewEvent, "error", err)
	}
	s.previewEvent = ref.EventID{}
}

func anyAllowed(roles, allowed []string) bool {
	for _, role := range roles {
		for _, want := range allowed {
			if role == want {
				return true
			}
		}
	}
	return false
}
