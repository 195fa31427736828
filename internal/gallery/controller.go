package gallery

import (
	"context"
	"sync"

	"github.com/xwurfel/gallerykit/internal/media"
	"github.com/xwurfel/gallerykit/internal/source"
)

const (
	minGridColumns = 1
	maxGridColumns = 5
)

// Controller owns all gallery view state and drives it from one repository.
// Every mutation happens under one mutex and publishes a full state snapshot,
// so observers always see a consistent picture.
//
// Fetches are tagged with a generation number taken when the fetch starts.
// A result whose generation is stale, or whose album no longer matches the
// current navigation target, is discarded. Late responses from an abandoned
// album can therefore never overwrite the current screen.
type Controller struct {
	repo      source.Repository
	cfg       Config
	callbacks Callbacks
	cell      *StateCell

	mu             sync.Mutex
	loadSeq        int
	kind           StateKind
	albums         []media.Album
	items          []media.Item
	selected       []media.Item
	viewMode       ViewMode
	gridColumns    int
	currentAlbumID string
	currentAlbum   string
	filter         media.Filter
	message        string
}

func NewController(repo source.Repository, cfg Config, callbacks Callbacks) *Controller {
	filter := media.NewFilter()
	filter.IncludeCloud = cfg.EnableCloud
	filter.CloudProviders = cfg.CloudProviders

	c := &Controller{
		repo:        repo,
		cfg:         cfg,
		callbacks:   callbacks,
		kind:        StateLoading,
		viewMode:    cfg.ViewMode,
		gridColumns: cfg.DefaultGridColumns,
		filter:      filter,
	}
	if c.gridColumns < minGridColumns || c.gridColumns > maxGridColumns {
		c.gridColumns = 3
	}
	c.cell = NewStateCell(c.snapshotLocked())
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	return c.cell.Get()
}

// Subscribe observes every published state, starting with the current one.
func (c *Controller) Subscribe() (<-chan State, func()) {
	return c.cell.Subscribe()
}

// Start checks storage permission and loads the initial collection. A denied
// permission parks the gallery in the no-permission state; there is no retry
// loop, the host re-triggers Start after granting access.
func (c *Controller) Start(ctx context.Context) {
	if !c.repo.HasPermission() {
		c.mu.Lock()
		c.kind = StateNoPermission
		c.message = "storage permission not granted"
		c.publishLocked()
		c.mu.Unlock()

		granted, err := c.repo.RequestPermission(ctx)
		if err != nil || !granted {
			return
		}
		c.mu.Lock()
		c.message = ""
		c.mu.Unlock()
	}

	if c.cfg.DefaultOpenAlbum != "" {
		c.OpenAlbum(ctx, c.cfg.DefaultOpenAlbum)
		return
	}
	if c.cfg.GroupByAlbum {
		c.loadAlbums(ctx)
		return
	}
	c.loadAll(ctx)
}

// OpenAlbum navigates into an album. The empty id navigates back to the
// album list. Navigation always drops the active selection.
func (c *Controller) OpenAlbum(ctx context.Context, albumID string) {
	if albumID == "" {
		c.mu.Lock()
		c.currentAlbumID = ""
		c.currentAlbum = ""
		c.items = nil
		c.selected = nil
		c.mu.Unlock()
		if c.cfg.GroupByAlbum {
			c.loadAlbums(ctx)
		} else {
			c.loadAll(ctx)
		}
		return
	}

	c.mu.Lock()
	c.currentAlbumID = albumID
	c.currentAlbum = c.albumNameLocked(albumID)
	c.selected = nil
	c.loadSeq++
	seq := c.loadSeq
	filter := c.filter.WithoutAlbums()
	c.kind = StateLoading
	c.message = ""
	c.publishLocked()
	c.mu.Unlock()

	go c.consume(ctx, seq, albumID, c.repo.FetchAlbumItems(ctx, albumID, filter))
}

// UpdateFilter replaces the active filter and reloads the current view. While
// drilled into an album the filter is stored without its album restriction;
// album scoping is owned by navigation.
func (c *Controller) UpdateFilter(ctx context.Context, filter media.Filter) {
	c.mu.Lock()
	albumID := c.currentAlbumID
	if albumID != "" {
		filter = filter.WithoutAlbums()
	}
	c.filter = filter
	c.mu.Unlock()

	if albumID != "" {
		c.mu.Lock()
		c.loadSeq++
		seq := c.loadSeq
		c.kind = StateLoading
		c.message = ""
		c.publishLocked()
		c.mu.Unlock()
		go c.consume(ctx, seq, albumID, c.repo.FetchAlbumItems(ctx, albumID, filter))
		return
	}
	if c.cfg.GroupByAlbum {
		c.loadAlbums(ctx)
		return
	}
	c.loadAll(ctx)
}

// Filter returns the active filter.
func (c *Controller) Filter() media.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// ToggleSelection flips one item's membership in the selection set. In
// single mode a different item replaces the selection; in multiple mode a
// full selection ignores further additions. Every applied toggle reports the
// new full selection to the host synchronously.
func (c *Controller) ToggleSelection(item media.Item) {
	c.mu.Lock()

	idx := -1
	for i, sel := range c.selected {
		if sel.Equal(item) {
			idx = i
			break
		}
	}

	switch c.cfg.SelectionMode {
	case SelectionSingle:
		if idx >= 0 {
			c.selected = nil
		} else {
			c.selected = []media.Item{item}
		}
	default:
		if idx >= 0 {
			c.selected = append(c.selected[:idx], c.selected[idx+1:]...)
		} else if len(c.selected) < c.cfg.MaxSelectionCount {
			c.selected = append(c.selected, item)
		} else {
			c.mu.Unlock()
			return
		}
	}
	c.publishLocked()
	selected := make([]media.Item, len(c.selected))
	copy(selected, c.selected)
	c.mu.Unlock()

	if c.callbacks.OnMediaSelected != nil {
		c.callbacks.OnMediaSelected(selected)
	}
}

// ClearSelection empties the selection set.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.selected) == 0 {
		return
	}
	c.selected = nil
	c.publishLocked()
}

// ConfirmSelection hands the current selection to the host, empty or not.
func (c *Controller) ConfirmSelection() {
	c.mu.Lock()
	selected := make([]media.Item, len(c.selected))
	copy(selected, c.selected)
	c.mu.Unlock()

	if c.callbacks.OnMediaSelected != nil {
		c.callbacks.OnMediaSelected(selected)
	}
}

// MediaClicked reports a plain activation tap to the host.
func (c *Controller) MediaClicked(item media.Item) {
	if c.callbacks.OnMediaClicked != nil {
		c.callbacks.OnMediaClicked(item)
	}
}

// BackPressed pops navigation: inside an album with grouping enabled it
// returns to the album list, anywhere else it defers to the host.
func (c *Controller) BackPressed(ctx context.Context) {
	c.mu.Lock()
	inAlbum := c.currentAlbumID != ""
	c.mu.Unlock()

	if inAlbum && c.cfg.GroupByAlbum {
		c.OpenAlbum(ctx, "")
		return
	}
	if c.callbacks.OnBackPressed != nil {
		c.callbacks.OnBackPressed()
	}
}

// ToggleViewMode switches between grid and list when the config allows it.
func (c *Controller) ToggleViewMode() {
	if !c.cfg.AllowViewModeToggle {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewMode == ViewGrid {
		c.viewMode = ViewList
	} else {
		c.viewMode = ViewGrid
	}
	c.publishLocked()
}

// SetGridColumns applies a column count between 1 and 5. Out-of-range values
// are ignored.
func (c *Controller) SetGridColumns(n int) {
	if n < minGridColumns || n > maxGridColumns {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gridColumns = n
	c.publishLocked()
}

// Refresh refetches the collection currently showing.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	albumID := c.currentAlbumID
	c.mu.Unlock()

	if albumID != "" {
		c.OpenAlbum(ctx, albumID)
		return
	}
	if c.cfg.GroupByAlbum {
		c.loadAlbums(ctx)
		return
	}
	c.loadAll(ctx)
}

func (c *Controller) loadAlbums(ctx context.Context) {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.kind = StateLoading
	c.message = ""
	c.publishLocked()
	c.mu.Unlock()

	go c.consume(ctx, seq, "", c.repo.FetchAlbums(ctx))
}

func (c *Controller) loadAll(ctx context.Context) {
	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.kind = StateLoading
	c.message = ""
	filter := c.filter
	c.publishLocked()
	c.mu.Unlock()

	go c.consume(ctx, seq, "", c.repo.FetchItems(ctx, filter))
}

// consume drains one fetch and applies each result that is still current.
func (c *Controller) consume(ctx context.Context, seq int, albumID string, in <-chan media.Result) {
	for {
		select {
		case r, ok := <-in:
			if !ok {
				return
			}
			c.apply(ctx, seq, albumID, r)
			if r.IsTerminal() {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) apply(ctx context.Context, seq int, albumID string, r media.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.loadSeq || albumID != c.currentAlbumID {
		return
	}

	switch r.Kind {
	case media.KindLoading:
		c.kind = StateLoading
		c.message = ""
	case media.KindSuccess:
		// A drill straight into an album from a cold start has no album list
		// behind the back navigation; fetch one before showing the items so
		// the Success snapshot is already complete.
		if albumID != "" && len(c.albums) == 0 && c.cfg.GroupByAlbum {
			c.mu.Unlock()
			albums := c.fetchAlbumList(ctx)
			c.mu.Lock()
			if seq != c.loadSeq || albumID != c.currentAlbumID {
				return
			}
			if len(c.albums) == 0 && len(albums) > 0 {
				c.albums = albums
				c.currentAlbum = c.albumNameLocked(albumID)
			}
		}
		c.kind = StateItems
		c.items = r.Items
		c.message = ""
	case media.KindAlbums:
		c.kind = StateAlbums
		c.albums = r.Albums
		c.message = ""
	case media.KindEmpty:
		c.kind = StateEmpty
		c.items = nil
		c.message = ""
	case media.KindError:
		c.kind = StateError
		c.message = r.Message
	}
	c.publishLocked()
}

// fetchAlbumList drains one album fetch and returns its list, or nil when
// the fetch failed, came back empty, or was cancelled.
func (c *Controller) fetchAlbumList(ctx context.Context) []media.Album {
	in := c.repo.FetchAlbums(ctx)
	for {
		select {
		case r, ok := <-in:
			if !ok {
				return nil
			}
			if !r.IsTerminal() {
				continue
			}
			if r.Kind != media.KindAlbums {
				return nil
			}
			return r.Albums
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Controller) albumNameLocked(albumID string) string {
	for _, a := range c.albums {
		if a.ID == albumID {
			return a.Name
		}
	}
	return ""
}

func (c *Controller) snapshotLocked() State {
	selected := make([]media.Item, len(c.selected))
	copy(selected, c.selected)

	return State{
		Kind:             c.kind,
		Albums:           c.albums,
		Items:            c.items,
		Selected:         selected,
		ViewMode:         c.viewMode,
		GridColumns:      c.gridColumns,
		CurrentAlbumID:   c.currentAlbumID,
		CurrentAlbumName: c.currentAlbum,
		Filter:           c.filter,
		Message:          c.message,
	}
}

func (c *Controller) publishLocked() {
	c.cell.Set(c.snapshotLocked())
}
