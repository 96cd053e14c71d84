package models

// MediaKind discriminates the two media types a feed item can carry.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaImage MediaKind = "image"
)

// MediaRef is one playable or displayable asset on a feed item. Immutable
// once fetched.
type MediaRef struct {
	URL  string    `json:"url"`
	Kind MediaKind `json:"kind"`
	// CreatedAtHumanized is a backend-rendered age string ("2 days ago")
	// passed through to the UI untouched.
	CreatedAtHumanized string `json:"created_at_humanized,omitempty"`
}

// InteractionKind identifies one of the three toggleable viewer interactions.
type InteractionKind string

const (
	InteractionLike   InteractionKind = "like"
	InteractionSave   InteractionKind = "save"
	InteractionFollow InteractionKind = "follow"
)

// Kinds lists every interaction kind, in display order.
var Kinds = []InteractionKind{InteractionLike, InteractionSave, InteractionFollow}

// ValidKind reports whether k names a known interaction.
func ValidKind(k InteractionKind) bool {
	switch k {
	case InteractionLike, InteractionSave, InteractionFollow:
		return true
	}
	return false
}

// InteractionCounts holds the public counters shown under a feed item.
type InteractionCounts struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Saves    int `json:"saves"`
}

// ViewerState holds the authenticated viewer's relationship to a feed item.
type ViewerState struct {
	Liked     bool `json:"liked"`
	Saved     bool `json:"saved"`
	Following bool `json:"following"`
}

// FeedItem is one post/reel as displayed in a feed. Identity is ID; a feed
// never holds two items with the same ID.
type FeedItem struct {
	ID          string            `json:"id"`
	AuthorID    string            `json:"author_id"`
	Description string            `json:"description"`
	Media       []MediaRef        `json:"media"`
	Counts      InteractionCounts `json:"counts"`
	Viewer      ViewerState       `json:"viewer"`
}

// FirstVideo returns the first video asset of the item, if any.
func (f FeedItem) FirstVideo() (MediaRef, bool) {
	for _, m := range f.Media {
		if m.Kind == MediaVideo {
			return m, true
		}
	}
	return MediaRef{}, false
}

// Interaction returns the viewer-facing boolean for the given kind.
func (v ViewerState) Interaction(kind InteractionKind) bool {
	switch kind {
	case InteractionLike:
		return v.Liked
	case InteractionSave:
		return v.Saved
	case InteractionFollow:
		return v.Following
	}
	return false
}

// SetInteraction sets the viewer-facing boolean for the given kind.
func (v *ViewerState) SetInteraction(kind InteractionKind, value bool) {
	switch kind {
	case InteractionLike:
		v.Liked = value
	case InteractionSave:
		v.Saved = value
	case InteractionFollow:
		v.Following = value
	}
}
