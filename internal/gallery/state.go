package gallery

import (
	"sync"

	"github.com/xwurfel/gallerykit/internal/media"
)

// StateKind names the screen the gallery is showing.
type StateKind string

const (
	StateLoading      StateKind = "loading"
	StateAlbums       StateKind = "albums"
	StateItems        StateKind = "items"
	StateEmpty        StateKind = "empty"
	StateError        StateKind = "error"
	StateNoPermission StateKind = "no_permission"
)

// State is the whole observable gallery state, published as a single value so
// observers never see a half-applied transition.
type State struct {
	Kind StateKind `json:"kind"`

	Albums []media.Album `json:"albums,omitempty"`
	Items  []media.Item  `json:"items,omitempty"`

	Selected         []media.Item `json:"selected"`
	ViewMode         ViewMode     `json:"view_mode"`
	GridColumns      int          `json:"grid_columns"`
	CurrentAlbumID   string       `json:"current_album_id,omitempty"`
	CurrentAlbumName string       `json:"current_album_name,omitempty"`
	Filter           media.Filter `json:"filter"`

	Message string `json:"message,omitempty"`
}

// SelectionContains reports whether an equal item is already selected.
func (s State) SelectionContains(item media.Item) bool {
	for _, sel := range s.Selected {
		if sel.Equal(item) {
			return true
		}
	}
	return false
}

const subscriberBuffer = 8

// StateCell holds the current State and fans every update out to its
// subscribers. Slow subscribers drop intermediate states instead of blocking
// the publisher; the latest state is always available through Get.
type StateCell struct {
	mu     sync.RWMutex
	state  State
	subs   map[int]chan State
	nextID int
}

func NewStateCell(initial State) *StateCell {
	return &StateCell{
		state: initial,
		subs:  make(map[int]chan State),
	}
}

func (c *StateCell) Get() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Set publishes a new state. The sends happen under the lock and never block,
// so a concurrent unsubscribe (which closes its channel under the same lock)
// can never race a send on the closed channel.
func (c *StateCell) Set(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	for _, ch := range c.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Subscribe registers an observer. The current state is delivered first, so
// a late subscriber does not wait for the next transition. The returned
// function removes the subscription and closes the channel.
func (c *StateCell) Subscribe() (<-chan State, func()) {
	ch := make(chan State, subscriberBuffer)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	current := c.state
	c.mu.Unlock()

	ch <- current

	unsubscribe := func() {
		c.mu.Lock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, unsubscribe
}
