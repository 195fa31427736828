package source

import (
	"context"
	"fmt"
	"image"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/xwurfel/gallerykit/internal/media"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

var photoExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".tiff": true, ".tif": true,
	".heic": true, ".heif": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
	".webm": true, ".m4v": true, ".3gp": true, ".mpg": true,
	".mpeg": true, ".wmv": true, ".flv": true,
}

// PermissionChecker abstracts the host platform's storage permission. The
// default implementation treats a readable root directory as granted.
type PermissionChecker interface {
	HasStoragePermission() bool
	RequestStoragePermission(ctx context.Context) (bool, error)
}

type dirPermissionChecker struct {
	root string
}

func (c dirPermissionChecker) HasStoragePermission() bool {
	f, err := os.Open(c.root)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func (c dirPermissionChecker) RequestStoragePermission(ctx context.Context) (bool, error) {
	return c.HasStoragePermission(), nil
}

// LocalSource reads media from a directory tree on device storage. Albums are
// the directories that directly contain at least one media file; an album id
// is the directory's slash-separated path relative to the root.
type LocalSource struct {
	root  string
	perms PermissionChecker
}

func NewLocalSource(root string) *LocalSource {
	return &LocalSource{
		root:  root,
		perms: dirPermissionChecker{root: root},
	}
}

// NewLocalSourceWithPermissions lets the host supply its own permission flow.
func NewLocalSourceWithPermissions(root string, perms PermissionChecker) *LocalSource {
	return &LocalSource{root: root, perms: perms}
}

func (s *LocalSource) HasPermission() bool {
	return s.perms.HasStoragePermission()
}

func (s *LocalSource) RequestPermission(ctx context.Context) (bool, error) {
	return s.perms.RequestStoragePermission(ctx)
}

func (s *LocalSource) FetchItems(ctx context.Context, filter media.Filter) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		if !s.HasPermission() {
			deliver(ctx, out, media.Errorf("storage permission not granted"))
			return
		}

		items, err := s.scanTree(ctx, filter)
		if err != nil {
			deliver(ctx, out, media.Errorf("failed to scan local media: %v", err))
			return
		}

		media.SortItems(items, filter.SortBy)
		deliver(ctx, out, terminal(items))
	})(ctx)
}

func (s *LocalSource) FetchAlbums(ctx context.Context) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		if !s.HasPermission() {
			deliver(ctx, out, media.Errorf("storage permission not granted"))
			return
		}

		albums, err := s.scanAlbums(ctx)
		if err != nil {
			deliver(ctx, out, media.Errorf("failed to scan local albums: %v", err))
			return
		}

		sort.SliceStable(albums, func(i, j int) bool {
			if albums[i].ItemCount != albums[j].ItemCount {
				return albums[i].ItemCount > albums[j].ItemCount
			}
			return albums[i].ID < albums[j].ID
		})
		deliver(ctx, out, terminalAlbums(albums))
	})(ctx)
}

func (s *LocalSource) FetchAlbumItems(ctx context.Context, albumID string, filter media.Filter) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		if !s.HasPermission() {
			deliver(ctx, out, media.Errorf("storage permission not granted"))
			return
		}

		deliver(ctx, out, media.Loading())

		dir, err := s.albumDir(albumID)
		if err != nil {
			deliver(ctx, out, media.Errorf("album %s not found", albumID))
			return
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			deliver(ctx, out, media.Errorf("album %s not found", albumID))
			return
		}

		var items []media.Item
		for _, entry := range entries {
			if ctx.Err() != nil {
				return
			}
			if entry.IsDir() {
				continue
			}
			item, ok := s.buildItem(filepath.Join(dir, entry.Name()))
			if !ok || !filter.Matches(item) {
				continue
			}
			items = append(items, item)
		}

		media.SortItems(items, filter.SortBy)
		deliver(ctx, out, terminal(items))
	})(ctx)
}

func (s *LocalSource) FetchItem(ctx context.Context, id string) (*media.Item, error) {
	t, locator, ok := media.ParseLocalID(id)
	if !ok {
		return nil, nil
	}

	path, err := s.resolve(locator)
	if err != nil {
		return nil, nil
	}

	item, found := s.buildItem(path)
	if !found || item.Type != t {
		return nil, nil
	}
	return &item, nil
}

func (s *LocalSource) scanTree(ctx context.Context, filter media.Filter) ([]media.Item, error) {
	var items []media.Item
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		item, ok := s.buildItem(path)
		if !ok || !filter.Matches(item) {
			return nil
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *LocalSource) scanAlbums(ctx context.Context) ([]media.Album, error) {
	type bucket struct {
		album media.Album
		seen  bool
	}
	buckets := make(map[string]*bucket)

	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !photoExtensions[ext] && !videoExtensions[ext] {
			return nil
		}

		dir := filepath.Dir(path)
		id, relErr := s.relativeID(dir)
		if relErr != nil {
			return nil
		}

		b, ok := buckets[id]
		if !ok {
			dirInfo, statErr := os.Stat(dir)
			created := time.Time{}
			if statErr == nil {
				created = dirInfo.ModTime()
			}
			b = &bucket{album: media.Album{
				ID:          id,
				Name:        filepath.Base(dir),
				CoverURI:    fileURI(path),
				DateCreated: created,
				Path:        dir,
			}}
			buckets[id] = b
		}
		b.album.ItemCount++
		return nil
	})
	if err != nil {
		return nil, err
	}

	albums := make([]media.Album, 0, len(buckets))
	for _, b := range buckets {
		albums = append(albums, b.album)
	}
	return albums, nil
}

// albumDir resolves an album id back to an absolute directory, rejecting
// paths that escape the root.
func (s *LocalSource) albumDir(albumID string) (string, error) {
	dir, err := s.resolve(albumID)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", albumID)
	}
	return dir, nil
}

func (s *LocalSource) resolve(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", media.ErrInvalidID
	}
	if filepath.IsAbs(cleaned) {
		return "", media.ErrInvalidID
	}
	return filepath.Join(s.root, cleaned), nil
}

func (s *LocalSource) relativeID(path string) (string, error) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// buildItem reads file metadata for one media file. EXIF data supplies the
// capture date and pixel dimensions when present; file times and an image
// header decode fill the gaps.
func (s *LocalSource) buildItem(path string) (media.Item, bool) {
	ext := strings.ToLower(filepath.Ext(path))

	var t media.Type
	switch {
	case photoExtensions[ext]:
		t = media.TypeImage
	case videoExtensions[ext]:
		t = media.TypeVideo
	default:
		return media.Item{}, false
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return media.Item{}, false
	}

	rel, err := s.relativeID(path)
	if err != nil {
		return media.Item{}, false
	}

	albumID, err := s.relativeID(filepath.Dir(path))
	if err != nil {
		return media.Item{}, false
	}

	item := media.Item{
		ID:           media.LocalID(t, rel),
		URI:          fileURI(path),
		Name:         info.Name(),
		Path:         path,
		Type:         t,
		AlbumID:      albumID,
		AlbumName:    filepath.Base(filepath.Dir(path)),
		DateCreated:  info.ModTime(),
		DateModified: info.ModTime(),
		Size:         info.Size(),
		MimeType:     mimeByExtension(ext, t),
		IsLocal:      true,
	}

	if t == media.TypeImage {
		s.enrichImage(&item, path)
	}
	if t == media.TypeVideo && item.Width > 0 && item.Height > 0 {
		item.Resolution = fmt.Sprintf("%dx%d", item.Width, item.Height)
	}
	return item, true
}

func (s *LocalSource) enrichImage(item *media.Item, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	if x, err := exif.Decode(f); err == nil {
		if taken, err := x.DateTime(); err == nil {
			item.DateCreated = taken
		}
		if w, err := exifInt(x, exif.PixelXDimension); err == nil {
			item.Width = w
		}
		if h, err := exifInt(x, exif.PixelYDimension); err == nil {
			item.Height = h
		}
	}

	if item.Width == 0 || item.Height == 0 {
		if _, err := f.Seek(0, 0); err != nil {
			return
		}
		if cfg, _, err := image.DecodeConfig(f); err == nil {
			item.Width = cfg.Width
			item.Height = cfg.Height
		}
	}
}

func exifInt(x *exif.Exif, field exif.FieldName) (int, error) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, err
	}
	return tag.Int(0)
}

func mimeByExtension(ext string, t media.Type) string {
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return string(t) + "/" + strings.TrimPrefix(ext, ".")
}

func fileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}
