package playback

import (
	"sync"
	"time"
)

// Status is one playback status report from a media handle.
type Status struct {
	PositionMs int64  `json:"position_ms"`
	DurationMs int64  `json:"duration_ms"`
	IsPlaying  bool   `json:"is_playing"`
	DidFinish  bool   `json:"did_finish"`
	Err        string `json:"err,omitempty"`
}

// Handle wraps one platform player instance. Implementations must deliver
// status callbacks from their own goroutine without holding internal locks,
// so a callback may call back into the handle.
type Handle interface {
	Play()
	Pause()
	Seek(positionMs int64)
	OnStatus(cb func(Status))
	Release()
}

// HandleFactory creates a handle for a media URL.
type HandleFactory func(url string) Handle

// SimHandle simulates a platform player: while playing, its position
// advances on a ticker and a finish status fires once at the end of the
// clip. The daemon runs on it in place of a real decoder.
type SimHandle struct {
	mu       sync.Mutex
	position time.Duration
	duration time.Duration
	playing  bool
	finished bool
	cb       func(Status)
	done     chan struct{}
	once     sync.Once
}

// NewSimHandle creates a simulated handle with the given clip duration,
// emitting a status every interval while playing.
func NewSimHandle(duration, interval time.Duration) *SimHandle {
	h := &SimHandle{
		duration: duration,
		done:     make(chan struct{}),
	}
	go h.run(interval)
	return h
}

// NewSimFactory returns a HandleFactory producing SimHandles. The media URL
// is ignored; every clip gets the same simulated duration.
func NewSimFactory(duration, interval time.Duration) HandleFactory {
	return func(url string) Handle {
		return NewSimHandle(duration, interval)
	}
}

func (h *SimHandle) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		h.mu.Lock()
		if !h.playing {
			h.mu.Unlock()
			continue
		}

		h.position += interval
		finished := false
		if h.position >= h.duration {
			h.position = h.duration
			h.playing = false
			if !h.finished {
				h.finished = true
				finished = true
			}
		}
		status := h.statusLocked()
		status.DidFinish = finished
		cb := h.cb
		h.mu.Unlock()

		if cb != nil {
			cb(status)
		}
	}
}

func (h *SimHandle) statusLocked() Status {
	return Status{
		PositionMs: h.position.Milliseconds(),
		DurationMs: h.duration.Milliseconds(),
		IsPlaying:  h.playing,
	}
}

func (h *SimHandle) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.position >= h.duration {
		h.position = 0
		h.finished = false
	}
	h.playing = true
}

func (h *SimHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
}

func (h *SimHandle) Seek(positionMs int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.position = time.Duration(positionMs) * time.Millisecond
	if h.position < h.duration {
		h.finished = false
	}
}

func (h *SimHandle) OnStatus(cb func(Status)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cb = cb
}

// Release stops the ticker goroutine and detaches the status listener.
func (h *SimHandle) Release() {
	h.once.Do(func() { close(h.done) })
	h.mu.Lock()
	h.playing = false
	h.cb = nil
	h.mu.Unlock()
}
