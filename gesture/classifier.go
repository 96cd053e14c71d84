package gesture

import (
	"time"
)

// DefaultDoubleTapWindow is how close two presses on the same entity must
// land to count as a double tap.
const DefaultDoubleTapWindow = 300 * time.Millisecond

// Result is the semantic reading of a press.
type Result int

const (
	Tap Result = iota
	DoubleTap
)

func (r Result) String() string {
	if r == DoubleTap {
		return "double_tap"
	}
	return "tap"
}

// Classifier turns raw press events into Tap / DoubleTap results. A Tap is
// emitted immediately rather than held back waiting for a possible second
// press, so single-tap play/pause stays responsive; the second press of a
// pair upgrades to DoubleTap on its own.
//
// Classifier is not safe for concurrent use; the engine serializes presses.
type Classifier struct {
	window     time.Duration
	lastAt     time.Time
	lastEntity string
	windowOpen bool
}

func NewClassifier(window time.Duration) *Classifier {
	if window <= 0 {
		window = DefaultDoubleTapWindow
	}
	return &Classifier{window: window}
}

// Press classifies one press on an entity at the given time. The pending
// window is consumed by a DoubleTap and restarted by anything else.
func (c *Classifier) Press(entityID string, at time.Time) Result {
	if c.windowOpen && c.lastEntity == entityID && at.Sub(c.lastAt) < c.window {
		c.windowOpen = false
		c.lastEntity = ""
		return DoubleTap
	}

	c.windowOpen = true
	c.lastEntity = entityID
	c.lastAt = at
	return Tap
}

// Reset clears the pending tap window.
func (c *Classifier) Reset() {
	c.windowOpen = false
	c.lastEntity = ""
}
