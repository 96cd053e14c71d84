package playback

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"
)

// recorder collects handle operations across all fake handles in the order
// they happened, so tests can assert cross-handle ordering.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) indexOf(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e == event {
			return i
		}
	}
	return -1
}

type fakeHandle struct {
	rec      *recorder
	url      string
	mu       sync.Mutex
	cb       func(Status)
	released bool
}

func (h *fakeHandle) Play()  { h.rec.add("play:" + h.url) }
func (h *fakeHandle) Pause() { h.rec.add("pause:" + h.url) }
func (h *fakeHandle) Seek(positionMs int64) {
	h.rec.add(fmt.Sprintf("seek:%s:%d", h.url, positionMs))
}
func (h *fakeHandle) OnStatus(cb func(Status)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cb = cb
}
func (h *fakeHandle) Release() {
	h.rec.add("release:" + h.url)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
}

// emit delivers a status the way a real handle would: from outside the
// controller, without any lock held.
func (h *fakeHandle) emit(st Status) {
	h.mu.Lock()
	cb := h.cb
	h.mu.Unlock()
	if cb != nil {
		cb(st)
	}
}

type fakeFactory struct {
	rec     *recorder
	mu      sync.Mutex
	handles map[string]*fakeHandle
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{rec: &recorder{}, handles: make(map[string]*fakeHandle)}
}

func (f *fakeFactory) create(url string) Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &fakeHandle{rec: f.rec, url: url}
	f.handles[url] = h
	return h
}

func (f *fakeFactory) handle(url string) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[url]
}

func playingCount(states map[string]ItemState) int {
	n := 0
	for _, s := range states {
		if s == StateVisiblePlaying {
			n++
		}
	}
	return n
}

func TestController_ViewableStartsPlayback(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{Factory: f.create})

	c.SetViewable("a", "a.mp4")

	if id, ok := c.PlayingItem(); !ok || id != "a" {
		t.Fatalf("expected a playing, got %q %v", id, ok)
	}
	if got := c.States()["a"]; got != StateVisiblePlaying {
		t.Errorf("expected visible_playing, got %v", got)
	}
}

func TestController_PauseBeforePlayOnTransition(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{Factory: f.create})

	c.SetViewable("a", "a.mp4")
	c.SetViewable("b", "b.mp4")

	pauseA := f.rec.indexOf("pause:a.mp4")
	playB := f.rec.indexOf("play:b.mp4")
	if pauseA == -1 || playB == -1 {
		t.Fatalf("missing events, got %v", f.rec.all())
	}
	if pauseA > playB {
		t.Errorf("previous item must pause before the next plays: %v", f.rec.all())
	}

	if got := c.States()["a"]; got != StateVisiblePaused {
		t.Errorf("expected a visible_paused, got %v", got)
	}
	if id, _ := c.PlayingItem(); id != "b" {
		t.Errorf("expected b playing, got %q", id)
	}
}

func TestController_SinglePlayingInvariantUnderRandomEvents(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{Factory: f.create})

	rng := rand.New(rand.NewSource(1))
	items := []string{"a", "b", "c", "d", "e"}

	for i := 0; i < 500; i++ {
		id := items[rng.Intn(len(items))]
		switch rng.Intn(4) {
		case 0, 1:
			c.SetViewable(id, id+".mp4")
		case 2:
			c.Toggle(id)
		case 3:
			c.SetOffscreen(id)
		}

		if n := playingCount(c.States()); n > 1 {
			t.Fatalf("invariant broken after %d events: %d items playing", i+1, n)
		}
	}
}

// maxSimultaneousPlaying replays an ordered handle-event log and reports
// the largest number of handles playing at any instant.
func maxSimultaneousPlaying(events []string) int {
	playing := make(map[string]bool)
	most := 0
	for _, e := range events {
		parts := strings.SplitN(e, ":", 2)
		switch parts[0] {
		case "play":
			playing[parts[1]] = true
		case "pause", "release":
			delete(playing, parts[1])
		}
		if len(playing) > most {
			most = len(playing)
		}
	}
	return most
}

func TestController_SinglePlayingInvariantUnderConcurrentEvents(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{Factory: f.create})
	items := []string{"a", "b", "c", "d", "e"}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				id := items[rng.Intn(len(items))]
				switch rng.Intn(4) {
				case 0, 1:
					c.SetViewable(id, id+".mp4")
				case 2:
					c.Toggle(id)
				case 3:
					c.SetOffscreen(id)
				}
			}
		}(int64(g))
	}
	wg.Wait()

	// The ordered handle-call log is the ground truth: at no point may two
	// handles have been playing, and every play must follow the previous
	// item's pause.
	if got := maxSimultaneousPlaying(f.rec.all()); got > 1 {
		t.Fatalf("handle-level invariant broken: %d handles playing at once", got)
	}
	if n := playingCount(c.States()); n > 1 {
		t.Fatalf("state-level invariant broken: %d items playing", n)
	}
}

func TestController_ToggledPauseAndResume(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{Factory: f.create})
	c.SetViewable("a", "a.mp4")

	c.Toggle("a")
	if _, ok := c.PlayingItem(); ok {
		t.Fatal("tap on playing item should pause it")
	}

	c.Toggle("a")
	if id, ok := c.PlayingItem(); !ok || id != "a" {
		t.Fatal("tap on paused item should resume it")
	}
}

func TestController_PauseAllKeepsHandlesMounted(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{Factory: f.create})
	c.SetViewable("a", "a.mp4")

	c.PauseAll()

	if _, ok := c.PlayingItem(); ok {
		t.Fatal("nothing should play after PauseAll")
	}
	if f.handle("a.mp4").released {
		t.Error("PauseAll must not release handles")
	}
	// Resume is not automatic; only a fresh viewability signal plays again.
	if got := c.States()["a"]; got != StateVisiblePaused {
		t.Errorf("expected visible_paused, got %v", got)
	}
	c.SetViewable("a", "a.mp4")
	if id, _ := c.PlayingItem(); id != "a" {
		t.Error("viewability signal should resume playback")
	}
}

func TestController_OffscreenReleasesHandle(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{Factory: f.create})
	c.SetViewable("a", "a.mp4")

	c.SetOffscreen("a")

	if !f.handle("a.mp4").released {
		t.Error("offscreen item's handle must be released")
	}
	if got := c.States()["a"]; got != StateOffscreen {
		t.Errorf("expected offscreen state, got %v", got)
	}

	// Stale status callbacks from the released handle are discarded.
	f.handle("a.mp4").emit(Status{DidFinish: true})
	if n := playingCount(c.States()); n != 0 {
		t.Errorf("stale callback restarted playback: %d playing", n)
	}

	// Scrolling back in mounts a fresh handle and plays again.
	c.SetViewable("a", "a.mp4")
	if id, ok := c.PlayingItem(); !ok || id != "a" {
		t.Errorf("remounted item should play, got %q %v", id, ok)
	}
}

func TestController_AutoAdvanceToMountedNext(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{
		Factory:     f.create,
		AutoAdvance: true,
		Advance: func(after string) (string, bool) {
			if after == "a" {
				return "b", true
			}
			return "", false
		},
	})

	// Mount b first, then bring a into view: a plays, b is mounted paused.
	c.SetViewable("b", "b.mp4")
	c.SetViewable("a", "a.mp4")

	f.handle("a.mp4").emit(Status{DidFinish: true, DurationMs: 15000, PositionMs: 15000})

	if id, ok := c.PlayingItem(); !ok || id != "b" {
		t.Fatalf("expected auto-advance to b, got %q %v", id, ok)
	}
	if n := playingCount(c.States()); n != 1 {
		t.Errorf("expected exactly one playing item, got %d", n)
	}
}

func TestController_LoopsWhenNextNotMounted(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{
		Factory:     f.create,
		AutoAdvance: true,
		Advance: func(after string) (string, bool) {
			return "zz", true // never mounted
		},
	})
	c.SetViewable("a", "a.mp4")

	f.handle("a.mp4").emit(Status{DidFinish: true})

	if f.rec.indexOf("seek:a.mp4:0") == -1 {
		t.Errorf("expected loop seek to 0, got %v", f.rec.all())
	}
	if id, _ := c.PlayingItem(); id != "a" {
		t.Errorf("expected a still playing after loop, got %q", id)
	}
}

func TestController_LoopsWithoutAutoAdvance(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{Factory: f.create})
	c.SetViewable("a", "a.mp4")

	f.handle("a.mp4").emit(Status{DidFinish: true})

	if f.rec.indexOf("seek:a.mp4:0") == -1 {
		t.Errorf("expected loop seek, got %v", f.rec.all())
	}
}

func TestController_LoadErrorDegradesItemOnly(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{Factory: f.create})
	c.SetViewable("a", "a.mp4")
	c.SetViewable("b", "b.mp4")

	f.handle("b.mp4").emit(Status{Err: "media load failed"})

	if _, ok := c.PlayingItem(); ok {
		t.Fatal("failed item must stop playing")
	}

	snap := c.Snapshot()
	if len(snap.DegradedItems) != 1 || snap.DegradedItems[0] != "b" {
		t.Errorf("expected b degraded, got %v", snap.DegradedItems)
	}

	// The failed item never plays again; other items are unaffected.
	c.SetViewable("b", "b.mp4")
	if _, ok := c.PlayingItem(); ok {
		t.Error("degraded item must stay a placeholder")
	}
	c.SetViewable("a", "a.mp4")
	if id, _ := c.PlayingItem(); id != "a" {
		t.Error("healthy items must keep playing")
	}
}

func TestController_MarkFailedDegradesWithoutRelease(t *testing.T) {
	f := newFakeFactory()
	c := NewController(Options{Factory: f.create})
	c.SetViewable("a", "a.mp4")

	c.MarkFailed("a")

	if _, ok := c.PlayingItem(); ok {
		t.Fatal("failed item must stop playing")
	}
	if f.handle("a.mp4").released {
		t.Error("degrading must keep the placeholder mounted")
	}
	c.SetViewable("a", "a.mp4")
	if _, ok := c.PlayingItem(); ok {
		t.Error("degraded item must not play again")
	}
}

func TestController_FirstPlayHookFiresOnce(t *testing.T) {
	f := newFakeFactory()
	var mu sync.Mutex
	fired := map[string]int{}
	c := NewController(Options{
		Factory: f.create,
		OnFirstPlay: func(itemID string) {
			mu.Lock()
			fired[itemID]++
			mu.Unlock()
		},
	})

	c.SetViewable("a", "a.mp4")
	c.Toggle("a") // pause
	c.Toggle("a") // resume
	c.SetViewable("b", "b.mp4")
	c.SetViewable("a", "a.mp4")

	mu.Lock()
	defer mu.Unlock()
	if fired["a"] != 1 {
		t.Errorf("expected one first-play for a, got %d", fired["a"])
	}
	if fired["b"] != 1 {
		t.Errorf("expected one first-play for b, got %d", fired["b"])
	}
}

func TestController_ToggleMute(t *testing.T) {
	c := NewController(Options{Factory: newFakeFactory().create})
	if !c.ToggleMute() {
		t.Error("first toggle should mute")
	}
	if c.ToggleMute() {
		t.Error("second toggle should unmute")
	}
}

func TestSimHandle_FinishesOnce(t *testing.T) {
	h := NewSimHandle(40*time.Millisecond, 10*time.Millisecond)
	defer h.Release()

	finished := make(chan Status, 16)
	h.OnStatus(func(st Status) {
		if st.DidFinish {
			finished <- st
		}
	})

	h.Play()

	select {
	case st := <-finished:
		if st.PositionMs != st.DurationMs {
			t.Errorf("finish should land at the end: pos=%d dur=%d", st.PositionMs, st.DurationMs)
		}
		if st.IsPlaying {
			t.Error("handle should stop at the end of the clip")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for finish status")
	}

	select {
	case <-finished:
		t.Error("finish status must fire only once")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSimHandle_PlayAfterFinishRestarts(t *testing.T) {
	h := NewSimHandle(30*time.Millisecond, 10*time.Millisecond)
	defer h.Release()

	statuses := make(chan Status, 64)
	h.OnStatus(func(st Status) { statuses <- st })

	h.Play()
	waitForFinish(t, statuses)

	h.Play()
	for {
		select {
		case st := <-statuses:
			if st.IsPlaying {
				return // restarted from the top
			}
		case <-time.After(2 * time.Second):
			t.Fatal("handle did not restart after finish")
		}
	}
}

func waitForFinish(t *testing.T, statuses chan Status) {
	t.Helper()
	for {
		select {
		case st := <-statuses:
			if st.DidFinish {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for finish")
		}
	}
}
