// Copyright 2026 The Herald Authors
// SPDX-License-Identifier: Apache-2.0

package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/herald-project/herald/lib/clock"
	"github.com/herald-project/herald/lib/embed"
	"github.com/herald-project/herald/lib/ref"
)

// MaxDestinations caps the publish target menu.
const MaxDestinations = 25

// DefaultAllowedRoles is the publish allow-list applied when the
// configuration names none.
var DefaultAllowedRoles = []string{"Admin", "Sales", "Creative Lead"}

const (
	defaultPreviewTimeout = 10 * time.Minute
	defaultFormTimeout    = 5 * time.Minute

	// cleanupTimeout bounds best-effort redactions issued from timer
	// callbacks, which have no caller context.
	cleanupTimeout = 30 * time.Second
)

// Config wires the registry to its collaborators.
type Config struct {
	Clock        clock.Clock
	Notifier     Notifier
	Deleter      ArtifactDeleter
	Roles        RoleSource
	Destinations DestinationSource
	Publisher    Publisher

	// AllowedRoles gates publishing. Empty means DefaultAllowedRoles.
	AllowedRoles []string

	// PreviewTimeout is the idle window while the action menu is
	// shown; FormTimeout is the wait budget for each form reply.
	// Zero means the defaults (10 and 5 minutes).
	PreviewTimeout time.Duration
	FormTimeout    time.Duration

	Logger *slog.Logger
}

// Registry owns every live builder session, one per user. A mutex
// serializes the sync-loop handlers against timer callbacks.
type Registry struct {
	cfg         Config
	logger      *slog.Logger
	transitions map[Action]func(ctx context.Context, s *session) error

	mu        sync.Mutex
	sessions  map[ref.UserID]*session
	lastDraft map[ref.UserID]embed.Embed
	templates map[ref.UserID]map[string]embed.Embed
}

// NewRegistry validates the configuration and returns an empty
// registry.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("wizard: Config.Clock is required")
	}
	if cfg.Notifier == nil || cfg.Deleter == nil {
		return nil, fmt.Errorf("wizard: Config.Notifier and Config.Deleter are required")
	}
	if cfg.Roles == nil || cfg.Destinations == nil || cfg.Publisher == nil {
		return nil, fmt.Errorf("wizard: Config.Roles, Config.Destinations, and Config.Publisher are required")
	}
	if len(cfg.AllowedRoles) == 0 {
		cfg.AllowedRoles = DefaultAllowedRoles
	}
	if cfg.PreviewTimeout == 0 {
		cfg.PreviewTimeout = defaultPreviewTimeout
	}
	if cfg.FormTimeout == 0 {
		cfg.FormTimeout = defaultFormTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &Registry{
		cfg:       cfg,
		logger:    cfg.Logger,
		sessions:  make(map[ref.UserID]*session),
		lastDraft: make(map[ref.UserID]embed.Embed),
		templates: make(map[ref.UserID]map[string]embed.Embed),
	}
	r.transitions = map[Action]func(ctx context.Context, s *session) error{
		ActionAddField:        r.actionAddField,
		ActionRemoveField:     r.actionRemoveField,
		ActionListFields:      r.actionListFields,
		ActionAddImage:        r.actionAddImage,
		ActionAddFooterIcon:   r.actionAddFooterIcon,
		ActionToggleTimestamp: r.actionToggleTimestamp,
		ActionPublish:         r.actionPublish,
		ActionEdit:            r.actionEdit,
		ActionCancel:          r.actionCancel,
	}
	return r, nil
}

// Start begins a new builder session for the user in the given direct
// room, replacing any prior session. The replaced session's timer is
// always cancelled; its preview artifact is left in place.
func (r *Registry) Start(ctx context.Context, user ref.UserID, room ref.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.sessions[user]; ok {
		r.dropLocked(prior)
		r.logger.Info("replacing live session", "user", user, "prior_state", prior.state.String())
	}

	s := &session{user: user, room: room, state: stateAwaitingBasics}
	r.sessions[user] = s
	r.armTimer(s, r.cfg.FormTimeout)

	if err := r.cfg.Notifier.Notify(ctx, room, basicsForm.Prompt()); err != nil {
		r.dropLocked(s)
		return fmt.Errorf("wizard: failed to prompt basics form: %w", err)
	}
	return nil
}

// StartFromTemplate begins a session whose draft is a previously saved
// template, skipping straight to the preview.
func (r *Registry) StartFromTemplate(ctx context.Context, user ref.UserID, room ref.RoomID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved, ok := r.templates[user][name]
	if !ok {
		return fmt.Errorf("wizard: no template %q saved for %s", name, user)
	}
	if prior, ok := r.sessions[user]; ok {
		r.dropLocked(prior)
	}

	s := &session{user: user, room: room, draft: saved.Clone()}
	r.sessions[user] = s
	return r.renderPreview(ctx, s)
}

// HandleMessage routes a direct-room message to the user's live
// session. The boolean reports whether the message was consumed as
// wizard input; false means the caller should treat it as ordinary
// chat.
func (r *Registry) HandleMessage(ctx context.Context, user ref.UserID, room ref.RoomID, body string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[user]
	if !ok || s.room != room {
		return false, nil
	}

	switch s.state {
	case stateAwaitingBasics:
		return true, r.handleBasics(ctx, s, body)
	case stateAwaitingMedia:
		return true, r.handleMedia(ctx, s, body)
	case statePreview:
		return true, r.handleAction(ctx, s, body)
	case stateAwaitingForm:
		return true, r.handleForm(ctx, s, body)
	case stateAwaitingRemoval:
		return true, r.handleRemoval(ctx, s, body)
	case stateAwaitingDestination:
		return true, r.handleDestination(ctx, s, body)
	default:
		return false, nil
	}
}

// Active reports whether the user has a live session.
func (r *Registry) Active(user ref.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[user]
	return ok
}

// Sessions snapshots every live session for operator queries, sorted
// by user ID.
func (r *Registry) Sessions() []SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, SessionInfo{
			User:       s.user.String(),
			State:      s.state.String(),
			FieldCount: len(s.draft.Fields),
			HasPreview: !s.previewEvent.IsZero(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].User < infos[j].User })
	return infos
}

// SaveTemplate stores the user's last completed draft under a name.
// Templates live in memory only.
func (r *Registry) SaveTemplate(user ref.UserID, name string) error {
	if name == "" {
		return fmt.Errorf("wizard: template name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	draft, ok := r.lastDraft[user]
	if !ok {
		return fmt.Errorf("wizard: %s has no published draft to save", user)
	}
	if r.templates[user] == nil {
		r.templates[user] = make(map[string]embed.Embed)
	}
	r.templates[user][name] = draft.Clone()
	return nil
}

// TemplateNames lists the user's saved template names, sorted.
func (r *Registry) TemplateNames(user ref.UserID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.templates[user]))
	for name := range r.templates[user] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TemplateCounts reports how many templates each user has saved,
// keyed by user ID string.
func (r *Registry) TemplateCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int, len(r.templates))
	for user, saved := range r.templates {
		if len(saved) > 0 {
			counts[user.String()] = len(saved)
		}
	}
	return counts
}

// armTimer replaces the session's idle timer. Callers hold the mutex.
func (r *Registry) armTimer(s *session, d time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerGen++
	generation := s.timerGen
	s.timer = r.cfg.Clock.AfterFunc(d, func() { r.expire(s, generation) })
}

// expire is the idle timer callback. A lapsed form wait silently
// returns the session to the preview; a lapsed preview (or a wizard
// abandoned before its first render) evicts the session and
// best-effort deletes its artifact.
func (r *Registry) expire(s *session, generation int) {
	r.mu.Lock()

	live, ok := r.sessions[s.user]
	if !ok || live != s || s.timerGen != generation {
		// The session was destroyed or the timer re-armed while this
		// callback waited on the mutex.
		r.mu.Unlock()
		return
	}

	switch s.state {
	case stateAwaitingForm, stateAwaitingRemoval, stateAwaitingDestination:
		s.state = statePreview
		s.pendingForm = FormSpec{}
		s.pendingAction = ""
		s.destinations = nil
		r.armTimer(s, r.cfg.PreviewTimeout)
		r.mu.Unlock()
		r.logger.Info("form wait lapsed", "user", s.user)
		return
	}

	delete(r.sessions, s.user)
	preview, room, user := s.previewEvent, s.room, s.user
	r.mu.Unlock()

	if !preview.IsZero() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if err := r.cfg.Deleter.DeleteArtifact(ctx, room, preview); err != nil {
			r.logger.Warn("failed to delete expired preview", "user", user, "error", err)
		}
	}
	r.logger.Info("session expired", "user", user)
}

// dropLocked removes a session and cancels its timer without touching
// its preview artifact. Callers hold the mutex.
func (r *Registry) dropLocked(s *session) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerGen++
	delete(r.sessions, s.user)
}
