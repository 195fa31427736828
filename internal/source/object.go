package source

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/xwurfel/gallerykit/internal/cloud"
	"github.com/xwurfel/gallerykit/internal/media"
)

const presignExpiry = time.Hour

// ObjectSource serves media from one bucket of an S3-compatible object store.
// Every id it emits carries the provider namespace tag, so the same object
// key can coexist with a local file of the same name in a merged collection.
// Top-level key prefixes act as albums.
type ObjectSource struct {
	provider cloud.Provider
	client   *minio.Client
	bucket   string
	auth     cloud.Authenticator
}

func NewObjectSource(provider cloud.Provider, client *minio.Client, bucket string, auth cloud.Authenticator) *ObjectSource {
	return &ObjectSource{
		provider: provider,
		client:   client,
		bucket:   bucket,
		auth:     auth,
	}
}

func (s *ObjectSource) Provider() cloud.Provider { return s.provider }

func (s *ObjectSource) HasPermission() bool {
	return s.auth.IsAuthenticated()
}

func (s *ObjectSource) RequestPermission(ctx context.Context) (bool, error) {
	return s.auth.Authenticate(ctx)
}

func (s *ObjectSource) FetchItems(ctx context.Context, filter media.Filter) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		if !s.auth.IsAuthenticated() {
			deliver(ctx, out, media.Errorf("not authenticated with %s", s.provider.Label()))
			return
		}

		items, err := s.listItems(ctx, "", filter)
		if err != nil {
			deliver(ctx, out, media.Errorf("failed to list %s objects: %v", s.provider.Label(), err))
			return
		}

		media.SortItems(items, filter.SortBy)
		deliver(ctx, out, terminal(items))
	})(ctx)
}

func (s *ObjectSource) FetchAlbums(ctx context.Context) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		if !s.auth.IsAuthenticated() {
			deliver(ctx, out, media.Errorf("not authenticated with %s", s.provider.Label()))
			return
		}

		albums, err := s.listAlbums(ctx)
		if err != nil {
			deliver(ctx, out, media.Errorf("failed to list %s albums: %v", s.provider.Label(), err))
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

func (s *ObjectSource) FetchAlbumItems(ctx context.Context, albumID string, filter media.Filter) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		if !s.auth.IsAuthenticated() {
			deliver(ctx, out, media.Errorf("not authenticated with %s", s.provider.Label()))
			return
		}

		prefix, ok := cloud.DecodeID(s.provider, albumID)
		if !ok {
			// An id namespaced for another provider is a caller bug, not an
			// empty album.
			if tag, _, found := cloud.SplitID(albumID); found {
				if other, err := cloud.ParseProvider(tag); err == nil && other != s.provider {
					deliver(ctx, out, media.Errorf("album %s does not belong to %s", albumID, s.provider.Label()))
					return
				}
			}
			prefix = albumID
		}
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}

		items, err := s.listItems(ctx, prefix, filter.WithoutAlbums())
		if err != nil {
			deliver(ctx, out, media.Errorf("failed to list %s objects: %v", s.provider.Label(), err))
			return
		}

		media.SortItems(items, filter.SortBy)
		deliver(ctx, out, terminal(items))
	})(ctx)
}

func (s *ObjectSource) FetchItem(ctx context.Context, id string) (*media.Item, error) {
	key, ok := cloud.DecodeID(s.provider, id)
	if !ok {
		return nil, nil
	}
	if !s.auth.IsAuthenticated() {
		return nil, nil
	}

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, nil
		}
		return nil, err
	}

	item, ok := s.buildItem(ctx, key, info.Size, info.LastModified, info.ContentType)
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *ObjectSource) listItems(ctx context.Context, prefix string, filter media.Filter) ([]media.Item, error) {
	var items []media.Item

	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		item, ok := s.buildItem(ctx, obj.Key, obj.Size, obj.LastModified, obj.ContentType)
		if !ok || !filter.Matches(item) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *ObjectSource) listAlbums(ctx context.Context) ([]media.Album, error) {
	type bucket struct {
		album media.Album
		cover string
	}
	buckets := make(map[string]*bucket)

	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Recursive: true})
	for obj := range objects {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		ext := strings.ToLower(path.Ext(obj.Key))
		if !photoExtensions[ext] && !videoExtensions[ext] {
			continue
		}

		prefix, _, found := strings.Cut(obj.Key, "/")
		if !found {
			// Objects at the bucket root form no album.
			continue
		}

		b, ok := buckets[prefix]
		if !ok {
			b = &bucket{
				album: media.Album{
					ID:          cloud.EncodeID(s.provider, prefix),
					Name:        prefix,
					CoverURI:    media.PlaceholderCoverURI,
					DateCreated: obj.LastModified,
				},
				cover: obj.Key,
			}
			buckets[prefix] = b
		}
		b.album.ItemCount++
		if obj.LastModified.Before(b.album.DateCreated) {
			b.album.DateCreated = obj.LastModified
		}
	}

	albums := make([]media.Album, 0, len(buckets))
	for _, b := range buckets {
		if uri, err := s.presign(ctx, b.cover); err == nil {
			b.album.CoverURI = uri
		}
		albums = append(albums, b.album)
	}
	return albums, nil
}

func (s *ObjectSource) buildItem(ctx context.Context, key string, size int64, modified time.Time, contentType string) (media.Item, bool) {
	ext := strings.ToLower(path.Ext(key))

	var t media.Type
	switch {
	case photoExtensions[ext]:
		t = media.TypeImage
	case videoExtensions[ext]:
		t = media.TypeVideo
	default:
		if parsed, ok := media.TypeFromMime(contentType); ok {
			t = parsed
		} else {
			return media.Item{}, false
		}
	}

	albumID := ""
	albumName := ""
	if prefix, _, found := strings.Cut(key, "/"); found {
		albumID = cloud.EncodeID(s.provider, prefix)
		albumName = prefix
	}

	uri := ""
	if signed, err := s.presign(ctx, key); err == nil {
		uri = signed
	}

	if contentType == "" {
		contentType = mimeByExtension(ext, t)
	}

	return media.Item{
		ID:            cloud.EncodeID(s.provider, key),
		URI:           uri,
		Name:          path.Base(key),
		Type:          t,
		AlbumID:       albumID,
		AlbumName:     albumName,
		DateCreated:   modified,
		DateModified:  modified,
		Size:          size,
		MimeType:      contentType,
		IsLocal:       false,
		CloudProvider: s.provider,
		CloudID:       key,
		DownloadURL:   uri,
	}, true
}

// presign builds a time-limited GET URL. Signing happens locally, so listing
// a large bucket does not fan out extra requests.
func (s *ObjectSource) presign(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, presignExpiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
