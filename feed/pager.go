package feed

import (
	"context"
	"sync"

	"reelfeed/models"
)

// Source fetches one page of feed items. Implementations wrap the backend
// client bound to a concrete resource.
type Source interface {
	FetchPage(ctx context.Context, page int) (items []models.FeedItem, hasNext bool, err error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, page int) ([]models.FeedItem, bool, error)

func (f SourceFunc) FetchPage(ctx context.Context, page int) ([]models.FeedItem, bool, error) {
	return f(ctx, page)
}

// PageState is the pager's observable state. Items is a copy; callers never
// see the pager's internal slice.
type PageState struct {
	Items         []models.FeedItem `json:"items"`
	PageNumber    int               `json:"page_number"`
	HasNextPage   bool              `json:"has_next_page"`
	IsRefreshing  bool              `json:"is_refreshing"`
	IsLoadingMore bool              `json:"is_loading_more"`
	ErrorMessage  string            `json:"error_message,omitempty"`
}

// Pager owns a paginated, id-deduplicated item collection. Items are only
// mutated through Refresh, LoadMore and Prime; fetch failures leave the
// collection untouched and park a retryable error message instead.
type Pager struct {
	mu         sync.Mutex
	source     Source
	items      []models.FeedItem
	index      map[string]int
	page       int
	hasNext    bool
	refreshing bool
	loading    bool
	errMsg     string
	generation int
}

func NewPager(source Source) *Pager {
	return &Pager{
		source:  source,
		index:   make(map[string]int),
		hasNext: true,
	}
}

// Refresh replaces the collection with page 1. The refreshing flag is
// cleared on every exit path, success or not. Concurrent refreshes collapse
// into one.
func (p *Pager) Refresh(ctx context.Context) {
	p.mu.Lock()
	if p.refreshing {
		p.mu.Unlock()
		return
	}
	p.refreshing = true
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	items, hasNext, err := p.source.FetchPage(ctx, 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshing = false

	if gen != p.generation {
		// A newer replace superseded this fetch; discard it.
		return
	}

	if err != nil {
		p.errMsg = err.Error()
		return
	}

	p.replaceLocked(items, hasNext)
}

// LoadMore fetches the next page and appends it, skipping any item whose id
// is already present. It is a no-op while a load is in flight or when the
// backend reported no further pages.
func (p *Pager) LoadMore(ctx context.Context) {
	p.mu.Lock()
	if p.loading || !p.hasNext {
		p.mu.Unlock()
		return
	}
	p.loading = true
	target := p.page + 1
	gen := p.generation
	p.mu.Unlock()

	items, hasNext, err := p.source.FetchPage(ctx, target)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false

	if gen != p.generation {
		// The collection was replaced while this page was in flight.
		return
	}

	if err != nil {
		p.errMsg = err.Error()
		return
	}

	for _, item := range items {
		if _, exists := p.index[item.ID]; exists {
			continue
		}
		p.index[item.ID] = len(p.items)
		p.items = append(p.items, item)
	}
	p.page = target
	p.hasNext = hasNext
	p.errMsg = ""
}

// Prime seeds the collection without a network call, used to restore a
// cached snapshot at startup. The next refresh overwrites it.
func (p *Pager) Prime(items []models.FeedItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.replaceLocked(items, true)
}

func (p *Pager) replaceLocked(items []models.FeedItem, hasNext bool) {
	p.items = p.items[:0]
	p.index = make(map[string]int, len(items))
	for _, item := range items {
		if _, exists := p.index[item.ID]; exists {
			continue
		}
		p.index[item.ID] = len(p.items)
		p.items = append(p.items, item)
	}
	p.page = 1
	p.hasNext = hasNext
	p.errMsg = ""
}

// Item returns the item with the given id.
func (p *Pager) Item(id string) (models.FeedItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i, ok := p.index[id]
	if !ok {
		return models.FeedItem{}, false
	}
	return p.items[i], true
}

// ItemAfter returns the item that follows id in display order.
func (p *Pager) ItemAfter(id string) (models.FeedItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i, ok := p.index[id]
	if !ok || i+1 >= len(p.items) {
		return models.FeedItem{}, false
	}
	return p.items[i+1], true
}

// Items returns a copy of the collection in display order.
func (p *Pager) Items() []models.FeedItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.FeedItem, len(p.items))
	copy(out, p.items)
	return out
}

// State returns a snapshot of the pager's observable state.
func (p *Pager) State() PageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]models.FeedItem, len(p.items))
	copy(items, p.items)
	return PageState{
		Items:         items,
		PageNumber:    p.page,
		HasNextPage:   p.hasNext,
		IsRefreshing:  p.refreshing,
		IsLoadingMore: p.loading,
		ErrorMessage:  p.errMsg,
	}
}

// PageNumber reports the last fully merged page.
func (p *Pager) PageNumber() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}
