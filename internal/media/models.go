package media

import (
	"errors"
	"strings"
	"time"

	"github.com/xwurfel/gallerykit/internal/cloud"
)

// Common errors
var (
	ErrNotFound     = errors.New("media not found")
	ErrNoPermission = errors.New("storage permission not granted")
	ErrInvalidID    = errors.New("invalid media id")
)

// Type tags a media item as an image or a video.
type Type string

const (
	TypeImage Type = "image"
	TypeVideo Type = "video"
)

// TypeFromMime maps a MIME type to a media type.
func TypeFromMime(mimeType string) (Type, bool) {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return TypeImage, true
	case strings.HasPrefix(mimeType, "video/"):
		return TypeVideo, true
	}
	return "", false
}

// Item is one media entry in the composite catalog. Items are values:
// sources build them once and nobody mutates them afterwards. A cloud item
// always carries a provider tag and IsLocal=false; a local item never does.
type Item struct {
	ID           string    `json:"id"`
	URI          string    `json:"uri"`
	Name         string    `json:"name"`
	Path         string    `json:"path,omitempty"` // empty for cloud items
	Type         Type      `json:"type"`
	AlbumID      string    `json:"album_id"`
	AlbumName    string    `json:"album_name"`
	DateCreated  time.Time `json:"date_created"`
	DateModified time.Time `json:"date_modified"`
	Size         int64     `json:"size"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	MimeType     string    `json:"mime_type"`
	IsLocal      bool      `json:"is_local"`

	// Video only; zero when unknown or not a video.
	Duration   time.Duration `json:"duration,omitempty"`
	Resolution string        `json:"resolution,omitempty"`

	// Cloud only; empty for local items.
	CloudProvider cloud.Provider `json:"cloud_provider,omitempty"`
	CloudID       string         `json:"cloud_id,omitempty"`
	DownloadURL   string         `json:"download_url,omitempty"`
}

func (it Item) IsVideo() bool { return it.Type == TypeVideo }
func (it Item) IsImage() bool { return it.Type == TypeImage }

// Equal compares all fields structurally. Dates compare by instant so items
// rebuilt from a fresh fetch still match selection-set members.
func (it Item) Equal(other Item) bool {
	return it.ID == other.ID &&
		it.URI == other.URI &&
		it.Name == other.Name &&
		it.Path == other.Path &&
		it.Type == other.Type &&
		it.AlbumID == other.AlbumID &&
		it.AlbumName == other.AlbumName &&
		it.DateCreated.Equal(other.DateCreated) &&
		it.DateModified.Equal(other.DateModified) &&
		it.Size == other.Size &&
		it.Width == other.Width &&
		it.Height == other.Height &&
		it.MimeType == other.MimeType &&
		it.IsLocal == other.IsLocal &&
		it.Duration == other.Duration &&
		it.Resolution == other.Resolution &&
		it.CloudProvider == other.CloudProvider &&
		it.CloudID == other.CloudID &&
		it.DownloadURL == other.DownloadURL
}

// Album groups items sharing a folder-like origin: a device storage bucket
// or a cloud folder. Albums from different sources are never merged; the
// aggregator keys them by id at fetch time.
type Album struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CoverURI    string    `json:"cover_uri"`
	ItemCount   int       `json:"item_count"`
	DateCreated time.Time `json:"date_created"`
	Path        string    `json:"path,omitempty"`
}

// LocalID builds the two-part id used for device items: "image:<locator>" or
// "video:<locator>". The tags are disjoint from every cloud provider tag.
func LocalID(t Type, locator string) string {
	return string(t) + ":" + locator
}

// ParseLocalID splits a two-part local id. ok is false when the id has no
// tag or the tag is not a local media type; the locator may contain colons.
func ParseLocalID(id string) (Type, string, bool) {
	tag, locator, found := strings.Cut(id, ":")
	if !found {
		return "", "", false
	}
	switch strings.ToLower(tag) {
	case string(TypeImage):
		return TypeImage, locator, true
	case string(TypeVideo):
		return TypeVideo, locator, true
	}
	return "", "", false
}

// PlaceholderCoverURI is the fallback cover locator for albums whose backing
// store has no thumbnail for the first child.
const PlaceholderCoverURI = "gallery://placeholder/folder"
