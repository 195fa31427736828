package gallery

import (
	"github.com/xwurfel/gallerykit/internal/cloud"
	"github.com/xwurfel/gallerykit/internal/media"
)

// SelectionMode controls how many items may be selected at once.
type SelectionMode string

const (
	SelectionSingle   SelectionMode = "SINGLE"
	SelectionMultiple SelectionMode = "MULTIPLE"
)

// ViewMode is the grid/list presentation toggle.
type ViewMode string

const (
	ViewGrid ViewMode = "GRID"
	ViewList ViewMode = "LIST"
)

// Config is the embedding contract: pure data, safe to serialize and hand
// across a process boundary. Behavior hooks live in Callbacks, which is a
// separate struct precisely because function values do not serialize.
type Config struct {
	SelectionMode       SelectionMode    `json:"selection_mode"`
	MaxSelectionCount   int              `json:"max_selection_count"`
	ViewMode            ViewMode         `json:"view_mode"`
	DefaultGridColumns  int              `json:"default_grid_columns"`
	AllowViewModeToggle bool             `json:"allow_view_mode_toggle"`
	GroupByAlbum        bool             `json:"group_by_album"`
	ShowAlbumTitles     bool             `json:"show_album_titles"`
	DefaultOpenAlbum    string           `json:"default_open_album,omitempty"`
	ShowVideoDuration   bool             `json:"show_video_duration"`
	EnableSearch        bool             `json:"enable_search"`
	EnableFiltering     bool             `json:"enable_filtering"`
	EnableCloud         bool             `json:"enable_cloud"`
	CloudProviders      []cloud.Provider `json:"cloud_providers,omitempty"`
}

// Callbacks are the host's hooks. Any of them may be nil; the controller
// invokes them synchronously on the goroutine that triggered the event.
type Callbacks struct {
	OnMediaSelected func(items []media.Item)
	OnMediaClicked  func(item media.Item)
	OnBackPressed   func()
}

// DefaultConfig mirrors the zero-configuration embedding: single selection,
// a three-column grid grouped by album, no cloud integration.
func DefaultConfig() Config {
	return Config{
		SelectionMode:       SelectionSingle,
		MaxSelectionCount:   1,
		ViewMode:            ViewGrid,
		DefaultGridColumns:  3,
		AllowViewModeToggle: true,
		GroupByAlbum:        true,
		ShowAlbumTitles:     true,
		ShowVideoDuration:   true,
		EnableSearch:        true,
		EnableFiltering:     true,
	}
}

// Builder assembles a Config fluently. Zero or negative numeric inputs fall
// back to the defaults.
type Builder struct {
	cfg Config
}

func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

func (b *Builder) SelectionMode(mode SelectionMode) *Builder {
	b.cfg.SelectionMode = mode
	return b
}

func (b *Builder) MaxSelectionCount(n int) *Builder {
	if n > 0 {
		b.cfg.MaxSelectionCount = n
	}
	return b
}

func (b *Builder) ViewMode(mode ViewMode) *Builder {
	b.cfg.ViewMode = mode
	return b
}

func (b *Builder) GridColumns(n int) *Builder {
	if n >= minGridColumns && n <= maxGridColumns {
		b.cfg.DefaultGridColumns = n
	}
	return b
}

func (b *Builder) AllowViewModeToggle(allow bool) *Builder {
	b.cfg.AllowViewModeToggle = allow
	return b
}

func (b *Builder) GroupByAlbum(group bool) *Builder {
	b.cfg.GroupByAlbum = group
	return b
}

func (b *Builder) ShowAlbumTitles(show bool) *Builder {
	b.cfg.ShowAlbumTitles = show
	return b
}

func (b *Builder) DefaultOpenAlbum(albumID string) *Builder {
	b.cfg.DefaultOpenAlbum = albumID
	return b
}

func (b *Builder) ShowVideoDuration(show bool) *Builder {
	b.cfg.ShowVideoDuration = show
	return b
}

func (b *Builder) EnableSearch(enable bool) *Builder {
	b.cfg.EnableSearch = enable
	return b
}

func (b *Builder) EnableFiltering(enable bool) *Builder {
	b.cfg.EnableFiltering = enable
	return b
}

func (b *Builder) EnableCloud(providers ...cloud.Provider) *Builder {
	b.cfg.EnableCloud = len(providers) > 0
	b.cfg.CloudProviders = providers
	return b
}

func (b *Builder) Build() Config {
	cfg := b.cfg
	if cfg.SelectionMode == SelectionSingle {
		cfg.MaxSelectionCount = 1
	}
	return cfg
}
