package media

import (
	"sort"
	"strings"
	"time"

	"github.com/xwurfel/gallerykit/internal/cloud"
)

// SortOption is the total order requested for a fetch.
type SortOption string

const (
	SortNameAsc          SortOption = "name_asc"
	SortNameDesc         SortOption = "name_desc"
	SortDateCreatedAsc   SortOption = "date_created_asc"
	SortDateCreatedDesc  SortOption = "date_created_desc"
	SortDateModifiedAsc  SortOption = "date_modified_asc"
	SortDateModifiedDesc SortOption = "date_modified_desc"
	SortSizeAsc          SortOption = "size_asc"
	SortSizeDesc         SortOption = "size_desc"
)

// DateRange is an inclusive window; a nil side is unbounded.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Filter describes one query. It is a pure value: every change builds a new
// filter, nothing mutates one in place.
type Filter struct {
	MediaTypes     []Type           `json:"media_types"`
	DateRange      *DateRange       `json:"date_range,omitempty"`
	AlbumIDs       []string         `json:"album_ids,omitempty"`
	SearchQuery    string           `json:"search_query,omitempty"`
	MinSize        *int64           `json:"min_size,omitempty"`
	MaxSize        *int64           `json:"max_size,omitempty"`
	IncludeCloud   bool             `json:"include_cloud"`
	CloudProviders []cloud.Provider `json:"cloud_providers,omitempty"`
	SortBy         SortOption       `json:"sort_by"`
}

// NewFilter returns the default query: both media types, sorted by date
// modified descending.
func NewFilter() Filter {
	return Filter{
		MediaTypes: []Type{TypeImage, TypeVideo},
		SortBy:     SortDateModifiedDesc,
	}
}

// HasType reports whether t is in the filter's type set.
func (f Filter) HasType(t Type) bool {
	for _, mt := range f.MediaTypes {
		if mt == t {
			return true
		}
	}
	return false
}

// WithoutAlbums returns a copy with the album restriction stripped. Album
// scoping is expressed through navigation, not through this field, so the
// controller strips it before any drill-down fetch.
func (f Filter) WithoutAlbums() Filter {
	f.AlbumIDs = nil
	return f
}

// Matches applies the client-side constraints: type, name search, size
// bounds, modification-date window and album restriction.
func (f Filter) Matches(it Item) bool {
	if !f.HasType(it.Type) {
		return false
	}

	if f.SearchQuery != "" &&
		!strings.Contains(strings.ToLower(it.Name), strings.ToLower(f.SearchQuery)) {
		return false
	}

	if f.MinSize != nil && it.Size < *f.MinSize {
		return false
	}
	if f.MaxSize != nil && it.Size > *f.MaxSize {
		return false
	}

	if f.DateRange != nil {
		if f.DateRange.Start != nil && it.DateModified.Before(*f.DateRange.Start) {
			return false
		}
		if f.DateRange.End != nil && it.DateModified.After(*f.DateRange.End) {
			return false
		}
	}

	if len(f.AlbumIDs) > 0 {
		found := false
		for _, id := range f.AlbumIDs {
			if it.AlbumID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// SortItems orders items by the requested option. Ties break on item id so
// repeated identical queries produce identical output.
func SortItems(items []Item, by SortOption) {
	sort.SliceStable(items, func(i, j int) bool {
		return lessItem(items[i], items[j], by)
	})
}

func lessItem(a, b Item, by SortOption) bool {
	switch by {
	case SortNameAsc:
		if a.Name != b.Name {
			return a.Name < b.Name
		}
	case SortNameDesc:
		if a.Name != b.Name {
			return a.Name > b.Name
		}
	case SortDateCreatedAsc:
		if !a.DateCreated.Equal(b.DateCreated) {
			return a.DateCreated.Before(b.DateCreated)
		}
	case SortDateCreatedDesc:
		if !a.DateCreated.Equal(b.DateCreated) {
			return a.DateCreated.After(b.DateCreated)
		}
	case SortDateModifiedAsc:
		if !a.DateModified.Equal(b.DateModified) {
			return a.DateModified.Before(b.DateModified)
		}
	case SortDateModifiedDesc:
		if !a.DateModified.Equal(b.DateModified) {
			return a.DateModified.After(b.DateModified)
		}
	case SortSizeAsc:
		if a.Size != b.Size {
			return a.Size < b.Size
		}
	case SortSizeDesc:
		if a.Size != b.Size {
			return a.Size > b.Size
		}
	default:
		if !a.DateModified.Equal(b.DateModified) {
			return a.DateModified.After(b.DateModified)
		}
	}
	return a.ID < b.ID
}

// SortItemsByDateModifiedDesc is the fixed aggregator-level merge order.
func SortItemsByDateModifiedDesc(items []Item) {
	SortItems(items, SortDateModifiedDesc)
}
