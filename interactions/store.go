package interactions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"reelfeed/api"
	"reelfeed/models"
)

// Backend performs one interaction mutation against the server.
type Backend interface {
	SetInteraction(ctx context.Context, entityID string, kind models.InteractionKind, enabled bool) error
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, entityID string, kind models.InteractionKind, enabled bool) error

func (f BackendFunc) SetInteraction(ctx context.Context, entityID string, kind models.InteractionKind, enabled bool) error {
	return f(ctx, entityID, kind, enabled)
}

type key struct {
	entity string
	kind   models.InteractionKind
}

// pendingMutation is one in-flight, not-yet-confirmed toggle. Previous holds
// the value restored on failure; RequestToken guards against a completion
// landing after the key was rebased or the store closed.
type pendingMutation struct {
	EntityID     string
	Kind         models.InteractionKind
	Previous     bool
	RequestToken string
}

// Store holds per-entity optimistic interaction state. A toggle flips the
// displayed value immediately, issues the network call in the background,
// and rolls back on failure. At most one mutation per (entity, kind) is in
// flight; a second toggle while one is pending is dropped, which is expected
// rapid input rather than an error.
type Store struct {
	mu        sync.Mutex
	backend   Backend
	overrides map[key]bool
	deltas    map[key]int
	pending   map[key]pendingMutation
	onError   func(message string)
	timeout   time.Duration
	closed    bool
}

func NewStore(backend Backend, onError func(message string)) *Store {
	return &Store{
		backend:   backend,
		overrides: make(map[key]bool),
		deltas:    make(map[key]int),
		pending:   make(map[key]pendingMutation),
		onError:   onError,
		timeout:   30 * time.Second,
	}
}

// Displayed returns the viewer-facing value for the item and kind: the
// optimistic override when one exists, the fetched value otherwise.
func (s *Store) Displayed(item models.FeedItem, kind models.InteractionKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayedLocked(item, kind)
}

func (s *Store) displayedLocked(item models.FeedItem, kind models.InteractionKind) bool {
	if v, ok := s.overrides[key{item.ID, kind}]; ok {
		return v
	}
	return item.Viewer.Interaction(kind)
}

// Toggle flips the interaction, fire-and-forget. The UI observes the result
// through Apply; failures surface through the onError callback after the
// displayed value has been rolled back.
func (s *Store) Toggle(item models.FeedItem, kind models.InteractionKind) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	k := key{item.ID, kind}
	if _, inFlight := s.pending[k]; inFlight {
		// Debounce: the outstanding mutation wins.
		s.mu.Unlock()
		return
	}

	current := s.displayedLocked(item, kind)
	next := !current
	s.overrides[k] = next
	if next {
		s.deltas[k]++
	} else {
		s.deltas[k]--
	}

	pm := pendingMutation{
		EntityID:     item.ID,
		Kind:         kind,
		Previous:     current,
		RequestToken: uuid.NewString(),
	}
	s.pending[k] = pm
	s.mu.Unlock()

	go s.commit(k, pm, next)
}

// Like applies the double-tap semantics: it likes an un-liked item and does
// nothing when the item is already liked. A double tap never unlikes.
func (s *Store) Like(item models.FeedItem) {
	if s.Displayed(item, models.InteractionLike) {
		return
	}
	s.Toggle(item, models.InteractionLike)
}

func (s *Store) commit(k key, pm pendingMutation, next bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := s.backend.SetInteraction(ctx, pm.EntityID, pm.Kind, next)

	s.mu.Lock()
	if s.closed {
		// The screen was torn down; the server result is discarded.
		s.mu.Unlock()
		return
	}
	got, ok := s.pending[k]
	if !ok || got.RequestToken != pm.RequestToken {
		s.mu.Unlock()
		return
	}
	delete(s.pending, k)

	if err == nil {
		s.mu.Unlock()
		return
	}

	s.overrides[k] = pm.Previous
	if next {
		s.deltas[k]--
	} else {
		s.deltas[k]++
	}
	cb := s.onError
	s.mu.Unlock()

	if cb != nil {
		cb(userMessage(err, pm.Kind))
	}
}

func userMessage(err error, kind models.InteractionKind) string {
	if errors.Is(err, api.ErrAuthRequired) {
		return api.ErrAuthRequired.Error()
	}
	return fmt.Sprintf("Could not update %s, please try again", kind)
}

// Apply overlays the store's optimistic state onto a fetched item: viewer
// flags and the like/save counters the flags feed.
func (s *Store) Apply(item models.FeedItem) models.FeedItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, kind := range models.Kinds {
		k := key{item.ID, kind}
		if v, ok := s.overrides[k]; ok {
			item.Viewer.SetInteraction(kind, v)
		}
		if d := s.deltas[k]; d != 0 {
			switch kind {
			case models.InteractionLike:
				item.Counts.Likes = clampCount(item.Counts.Likes + d)
			case models.InteractionSave:
				item.Counts.Saves = clampCount(item.Counts.Saves + d)
			}
		}
	}
	return item
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// HasPending reports whether a mutation is in flight for the key.
func (s *Store) HasPending(entityID string, kind models.InteractionKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key{entityID, kind}]
	return ok
}

// Rebase drops confirmed overrides after a successful refresh: the freshly
// fetched items are authoritative for everything not still in flight.
func (s *Store) Rebase() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.overrides {
		if _, inFlight := s.pending[k]; !inFlight {
			delete(s.overrides, k)
			delete(s.deltas, k)
		}
	}
}

// Close marks the store dead. In-flight mutations still complete on the
// wire but their results are discarded here.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
