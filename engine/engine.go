package engine

import (
	"context"
	"sync"
	"time"

	"reelfeed/feed"
	"reelfeed/gesture"
	"reelfeed/interactions"
	"reelfeed/models"
	"reelfeed/playback"
)

// Config wires one screen's collaborators into an engine instance. The
// reels, explore and posts screens each construct one with their own feed
// source; the state machines are shared.
type Config struct {
	Name            string
	Source          feed.Source
	Backend         interactions.Backend
	Factory         playback.HandleFactory
	AutoAdvance     bool
	DoubleTapWindow time.Duration
	// OnFirstPlay fires the first time an item starts playing.
	OnFirstPlay func(itemID string)
}

// State is the full observable state a UI shell renders from. The
// interaction error is consumed by the read that returns it.
type State struct {
	Feed             string            `json:"feed"`
	Page             feed.PageState    `json:"page"`
	Playback         playback.Snapshot `json:"playback"`
	InteractionError string            `json:"interaction_error,omitempty"`
}

// Engine composes the pager, playback controller, interaction store and
// gesture classifier behind the contract the screen UI consumes.
type Engine struct {
	name     string
	pager    *feed.Pager
	store    *interactions.Store
	player   *playback.Controller
	gestures *gesture.Classifier

	mu        sync.Mutex
	lastError string
	focused   bool
}

func New(cfg Config) *Engine {
	e := &Engine{
		name:     cfg.Name,
		gestures: gesture.NewClassifier(cfg.DoubleTapWindow),
		focused:  true,
	}
	e.pager = feed.NewPager(cfg.Source)
	e.store = interactions.NewStore(cfg.Backend, e.recordInteractionError)
	e.player = playback.NewController(playback.Options{
		Factory:     cfg.Factory,
		AutoAdvance: cfg.AutoAdvance,
		OnFirstPlay: cfg.OnFirstPlay,
		Advance: func(after string) (string, bool) {
			next, ok := e.pager.ItemAfter(after)
			if !ok {
				return "", false
			}
			return next.ID, true
		},
	})
	return e
}

func (e *Engine) Name() string { return e.name }

// Refresh pulls page 1. Confirmed optimistic overrides are dropped on
// success because the fresh items are authoritative.
func (e *Engine) Refresh(ctx context.Context) {
	e.pager.Refresh(ctx)
	if e.pager.State().ErrorMessage == "" {
		e.store.Rebase()
	}
}

func (e *Engine) LoadMore(ctx context.Context) {
	e.pager.LoadMore(ctx)
}

// Prime seeds the feed from a cached snapshot before the first refresh.
func (e *Engine) Prime(items []models.FeedItem) {
	e.pager.Prime(items)
}

// Viewable reports that an item crossed the viewability threshold. Video
// items start playing (pausing whatever played before); items without a
// video just silence the feed. Signals arriving while the screen is
// unfocused are dropped; playback resumes only when the list re-fires
// viewability after refocus.
func (e *Engine) Viewable(itemID string) bool {
	item, ok := e.pager.Item(itemID)
	if !ok {
		return false
	}

	e.mu.Lock()
	focused := e.focused
	e.mu.Unlock()
	if !focused {
		return true
	}

	if video, hasVideo := item.FirstVideo(); hasVideo {
		e.player.SetViewable(itemID, video.URL)
	} else {
		e.player.PauseAll()
	}
	return true
}

// Offscreen releases the item's playback resources.
func (e *Engine) Offscreen(itemID string) {
	e.player.SetOffscreen(itemID)
}

// Press feeds one raw press through the gesture classifier: a tap toggles
// play/pause, a double tap likes (and never unlikes) the item.
func (e *Engine) Press(itemID string, at time.Time) (gesture.Result, bool) {
	item, ok := e.pager.Item(itemID)
	if !ok {
		return gesture.Tap, false
	}

	e.mu.Lock()
	result := e.gestures.Press(itemID, at)
	e.mu.Unlock()

	switch result {
	case gesture.DoubleTap:
		e.store.Like(item)
	default:
		e.player.Toggle(itemID)
	}
	return result, true
}

// ToggleInteraction runs an explicit like/save/follow toggle from a button.
func (e *Engine) ToggleInteraction(itemID string, kind models.InteractionKind) bool {
	item, ok := e.pager.Item(itemID)
	if !ok {
		return false
	}
	e.store.Toggle(item, kind)
	return true
}

// Focus marks the screen focused again. Nothing resumes here.
func (e *Engine) Focus() {
	e.mu.Lock()
	e.focused = true
	e.gestures.Reset()
	e.mu.Unlock()
}

// Blur pauses all playback when the screen loses focus or a zoom modal
// opens. Handles stay mounted for a cheap resume.
func (e *Engine) Blur() {
	e.mu.Lock()
	e.focused = false
	e.gestures.Reset()
	e.mu.Unlock()
	e.player.PauseAll()
}

// ToggleMute flips the feed-wide mute flag.
func (e *Engine) ToggleMute() bool {
	return e.player.ToggleMute()
}

// State snapshots everything the UI renders: the page state with optimistic
// interaction values overlaid, the playback slot, and the latest
// interaction error (cleared by this read).
func (e *Engine) State() State {
	page := e.pager.State()
	for i := range page.Items {
		page.Items[i] = e.store.Apply(page.Items[i])
	}

	e.mu.Lock()
	msg := e.lastError
	e.lastError = ""
	e.mu.Unlock()

	return State{
		Feed:             e.name,
		Page:             page,
		Playback:         e.player.Snapshot(),
		InteractionError: msg,
	}
}

// Playing exposes the currently playing item for tests and diagnostics.
func (e *Engine) Playing() (string, bool) {
	return e.player.PlayingItem()
}

func (e *Engine) recordInteractionError(message string) {
	e.mu.Lock()
	e.lastError = message
	e.mu.Unlock()
}

// Close tears the screen down. In-flight interaction mutations complete and
// are discarded; playback handles are released.
func (e *Engine) Close() {
	e.store.Close()
	e.player.Close()
}
