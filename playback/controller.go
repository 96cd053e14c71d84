package playback

import (
	"sort"
	"sync"
)

// ItemState is the playback lifecycle state of one feed item.
type ItemState int

const (
	StateIdle ItemState = iota
	StateVisiblePaused
	StateVisiblePlaying
	StateOffscreen
)

func (s ItemState) String() string {
	switch s {
	case StateVisiblePaused:
		return "visible_paused"
	case StateVisiblePlaying:
		return "visible_playing"
	case StateOffscreen:
		return "offscreen"
	}
	return "idle"
}

// AdvanceFunc resolves the item that follows afterItemID in display order.
type AdvanceFunc func(afterItemID string) (string, bool)

// slot tracks one item's playback lifecycle. An offscreen slot keeps its
// bookkeeping (failed, played) but its handle is released and nil until the
// item scrolls back in.
type slot struct {
	handle     Handle
	state      ItemState
	failed     bool
	played     bool
	lastStatus Status
}

// Snapshot is the controller's observable state.
type Snapshot struct {
	CurrentItemID string   `json:"current_item_id,omitempty"`
	IsPlaying     bool     `json:"is_playing"`
	IsMuted       bool     `json:"is_muted"`
	PositionMs    int64    `json:"position_ms"`
	DurationMs    int64    `json:"duration_ms"`
	DegradedItems []string `json:"degraded_items,omitempty"`
}

// Controller owns the single-playing-item invariant for one feed: at most
// one slot is ever in StateVisiblePlaying, and the previous item is always
// paused before the next one starts. All handle calls happen under the
// controller lock, so the invariant holds at the handle level too; the
// Handle contract forbids delivering status callbacks while holding handle
// locks, which keeps this free of lock cycles.
type Controller struct {
	mu          sync.Mutex
	factory     HandleFactory
	slots       map[string]*slot
	current     string
	muted       bool
	autoAdvance bool
	advance     AdvanceFunc
	onFirstPlay func(itemID string)
}

// Options configures a Controller.
type Options struct {
	Factory HandleFactory
	// AutoAdvance moves playback to the next mounted item when a clip
	// finishes (the reels behavior). Without it, finished clips loop.
	AutoAdvance bool
	Advance     AdvanceFunc
	// OnFirstPlay fires the first time an item starts playing, outside the
	// controller lock.
	OnFirstPlay func(itemID string)
}

func NewController(opts Options) *Controller {
	return &Controller{
		factory:     opts.Factory,
		slots:       make(map[string]*slot),
		autoAdvance: opts.AutoAdvance,
		advance:     opts.Advance,
		onFirstPlay: opts.OnFirstPlay,
	}
}

// SetViewable reports that the item crossed the viewability threshold and
// becomes the current item. Whatever was playing is paused before the new
// item starts, in that order, under one critical section.
func (c *Controller) SetViewable(itemID, mediaURL string) {
	c.mu.Lock()

	if cur, ok := c.slots[c.current]; ok && c.current == itemID && cur.state == StateVisiblePlaying {
		c.mu.Unlock()
		return
	}

	if c.current != "" && c.current != itemID {
		if prev, ok := c.slots[c.current]; ok && prev.state == StateVisiblePlaying {
			prev.state = StateVisiblePaused
			prev.handle.Pause()
		}
	}

	s, ok := c.slots[itemID]
	if !ok {
		s = &slot{state: StateVisiblePaused}
		c.slots[itemID] = s
	}
	if s.handle == nil && !s.failed {
		h := c.factory(mediaURL)
		s.handle = h
		h.OnStatus(func(st Status) { c.handleStatus(itemID, h, st) })
	}

	c.current = itemID

	firstPlay := false
	if s.failed {
		// Degraded items stay a muted placeholder.
		s.state = StateVisiblePaused
	} else {
		s.state = StateVisiblePlaying
		firstPlay = !s.played
		s.played = true
		s.handle.Play()
	}
	cb := c.onFirstPlay
	c.mu.Unlock()

	if firstPlay && cb != nil {
		cb(itemID)
	}
}

// Toggle flips play/pause on a visible item. Toggling a paused item makes
// it the current one.
func (c *Controller) Toggle(itemID string) {
	c.mu.Lock()
	s, ok := c.slots[itemID]
	if !ok || s.failed || s.handle == nil {
		c.mu.Unlock()
		return
	}

	if s.state == StateVisiblePlaying {
		s.state = StateVisiblePaused
		s.handle.Pause()
		c.mu.Unlock()
		return
	}

	if prev, okPrev := c.slots[c.current]; okPrev && c.current != itemID && prev.state == StateVisiblePlaying {
		prev.state = StateVisiblePaused
		prev.handle.Pause()
	}
	s.state = StateVisiblePlaying
	firstPlay := !s.played
	s.played = true
	c.current = itemID
	s.handle.Play()
	cb := c.onFirstPlay
	c.mu.Unlock()

	if firstPlay && cb != nil {
		cb(itemID)
	}
}

// PauseAll pauses everything: the screen lost focus, a zoom modal opened,
// or a non-video item took the viewport. Handles stay mounted; playback
// resumes only through a new viewability signal, never automatically on
// refocus.
func (c *Controller) PauseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.slots {
		if s.state == StateVisiblePlaying {
			s.state = StateVisiblePaused
			s.handle.Pause()
		}
	}
}

// SetOffscreen releases the item's handle once it scrolls fully out of the
// viewability window. The slot moves to StateOffscreen and remounts with a
// fresh handle on the next viewability signal.
func (c *Controller) SetOffscreen(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[itemID]
	if !ok || s.handle == nil {
		return
	}
	if c.current == itemID {
		c.current = ""
	}
	s.handle.Pause()
	s.handle.Release()
	s.handle = nil
	s.state = StateOffscreen
}

// ToggleMute flips the feed-wide mute flag and returns the new value.
func (c *Controller) ToggleMute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = !c.muted
	return c.muted
}

// handleStatus is the status callback shared by every mounted handle. A
// callback from a handle that is no longer the slot's handle is stale and
// discarded.
func (c *Controller) handleStatus(itemID string, h Handle, st Status) {
	c.mu.Lock()
	s, ok := c.slots[itemID]
	if !ok || s.handle != h {
		c.mu.Unlock()
		return
	}

	if st.Err != "" {
		s.failed = true
		s.state = StateVisiblePaused
		s.handle.Pause()
		c.mu.Unlock()
		return
	}

	s.lastStatus = st
	if !st.DidFinish || s.state != StateVisiblePlaying {
		c.mu.Unlock()
		return
	}

	if c.autoAdvance && c.advance != nil {
		if nextID, found := c.advance(itemID); found {
			if next, mounted := c.slots[nextID]; mounted && !next.failed && next.handle != nil {
				s.state = StateVisiblePaused
				s.handle.Pause()
				next.state = StateVisiblePlaying
				firstPlay := !next.played
				next.played = true
				c.current = nextID
				next.handle.Play()
				cb := c.onFirstPlay
				c.mu.Unlock()

				if firstPlay && cb != nil {
					cb(nextID)
				}
				return
			}
		}
	}

	// No mounted successor: loop the clip.
	s.handle.Seek(0)
	s.handle.Play()
	c.mu.Unlock()
}

// MarkFailed degrades an item to a muted placeholder without touching any
// other item's playback.
func (c *Controller) MarkFailed(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[itemID]
	if !ok {
		return
	}
	s.failed = true
	if s.state == StateVisiblePlaying {
		s.handle.Pause()
	}
	if s.state != StateOffscreen {
		s.state = StateVisiblePaused
	}
}

// States reports the state of every tracked slot, offscreen ones included.
func (c *Controller) States() map[string]ItemState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]ItemState, len(c.slots))
	for id, s := range c.slots {
		out[id] = s.state
	}
	return out
}

// PlayingItem returns the id of the item currently playing, if any.
func (c *Controller) PlayingItem() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[c.current]; ok && s.state == StateVisiblePlaying {
		return c.current, true
	}
	return "", false
}

// Snapshot returns the controller's observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{IsMuted: c.muted}
	var degraded []string
	for id, s := range c.slots {
		if s.failed {
			degraded = append(degraded, id)
		}
	}
	sort.Strings(degraded)
	snap.DegradedItems = degraded

	if s, ok := c.slots[c.current]; ok {
		snap.CurrentItemID = c.current
		snap.IsPlaying = s.state == StateVisiblePlaying
		snap.PositionMs = s.lastStatus.PositionMs
		snap.DurationMs = s.lastStatus.DurationMs
	}
	return snap
}

// Close releases every mounted handle.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.slots {
		if s.handle != nil {
			s.handle.Pause()
			s.handle.Release()
		}
	}
	c.slots = make(map[string]*slot)
	c.current = ""
}
