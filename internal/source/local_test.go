package source

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/xwurfel/gallerykit/internal/media"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func newTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "beach", "a.png"))
	writePNG(t, filepath.Join(root, "beach", "b.png"))
	writePNG(t, filepath.Join(root, "city", "c.png"))
	if err := os.WriteFile(filepath.Join(root, "beach", "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return root
}

func TestLocalSourceFetchItems(t *testing.T) {
	s := NewLocalSource(newTestTree(t))

	last := terminalOf(t, s.FetchItems(context.Background(), media.NewFilter()))
	if last.Kind != media.KindSuccess {
		t.Fatalf("got %v (%s)", last.Kind, last.Message)
	}
	if len(last.Items) != 3 {
		t.Fatalf("scanned %d items, want 3", len(last.Items))
	}

	seen := make(map[string]media.Item)
	for _, it := range last.Items {
		seen[it.ID] = it
	}
	it, ok := seen["image:beach/a.png"]
	if !ok {
		t.Fatalf("missing item, got ids %v", keysOf(seen))
	}
	if !it.IsLocal || it.Type != media.TypeImage {
		t.Fatalf("item misclassified: %+v", it)
	}
	if it.AlbumID != "beach" || it.AlbumName != "beach" {
		t.Fatalf("album fields: %q %q", it.AlbumID, it.AlbumName)
	}
	if it.Width != 2 || it.Height != 2 {
		t.Fatalf("dimensions: %dx%d", it.Width, it.Height)
	}
	if it.Size == 0 {
		t.Fatal("size not populated")
	}
}

func TestLocalSourceIgnoresNonMedia(t *testing.T) {
	s := NewLocalSource(newTestTree(t))

	last := terminalOf(t, s.FetchItems(context.Background(), media.NewFilter()))
	for _, it := range last.Items {
		if filepath.Ext(it.Name) == ".txt" {
			t.Fatalf("non-media file scanned: %s", it.ID)
		}
	}
}

func TestLocalSourceFetchAlbums(t *testing.T) {
	s := NewLocalSource(newTestTree(t))

	last := terminalOf(t, s.FetchAlbums(context.Background()))
	if last.Kind != media.KindAlbums {
		t.Fatalf("got %v (%s)", last.Kind, last.Message)
	}
	if len(last.Albums) != 2 {
		t.Fatalf("found %d albums, want 2", len(last.Albums))
	}

	// Larger album first.
	if last.Albums[0].ID != "beach" || last.Albums[0].ItemCount != 2 {
		t.Fatalf("first album: %+v", last.Albums[0])
	}
	if last.Albums[1].ID != "city" || last.Albums[1].ItemCount != 1 {
		t.Fatalf("second album: %+v", last.Albums[1])
	}
	if last.Albums[0].CoverURI == "" {
		t.Fatal("album cover missing")
	}
}

func TestLocalSourceFetchAlbumItems(t *testing.T) {
	s := NewLocalSource(newTestTree(t))

	results := drain(t, s.FetchAlbumItems(context.Background(), "beach", media.NewFilter()))
	if results[0].Kind != media.KindLoading {
		t.Fatalf("first result = %v, want loading", results[0].Kind)
	}
	last := results[len(results)-1]
	if last.Kind != media.KindSuccess || len(last.Items) != 2 {
		t.Fatalf("got %v with %d items", last.Kind, len(last.Items))
	}
}

func TestLocalSourceFetchAlbumItemsMissingAlbum(t *testing.T) {
	s := NewLocalSource(newTestTree(t))

	last := terminalOf(t, s.FetchAlbumItems(context.Background(), "missing", media.NewFilter()))
	if last.Kind != media.KindError {
		t.Fatalf("got %v, want error", last.Kind)
	}
}

func TestLocalSourceFetchItem(t *testing.T) {
	s := NewLocalSource(newTestTree(t))

	it, err := s.FetchItem(context.Background(), "image:beach/a.png")
	if err != nil {
		t.Fatalf("FetchItem: %v", err)
	}
	if it == nil || it.Name != "a.png" {
		t.Fatalf("got %+v", it)
	}

	for _, id := range []string{
		"image:missing.png",
		"minio:beach/a.png",
		"video:beach/a.png",
		"image:../outside.png",
	} {
		got, err := s.FetchItem(context.Background(), id)
		if err != nil {
			t.Fatalf("FetchItem(%q): %v", id, err)
		}
		if got != nil {
			t.Fatalf("FetchItem(%q) resolved unexpectedly", id)
		}
	}
}

func TestLocalSourceAppliesFilter(t *testing.T) {
	s := NewLocalSource(newTestTree(t))

	f := media.NewFilter()
	f.SearchQuery = "a.png"
	last := terminalOf(t, s.FetchItems(context.Background(), f))
	if last.Kind != media.KindSuccess || len(last.Items) != 1 {
		t.Fatalf("got %v with %d items", last.Kind, len(last.Items))
	}

	f = media.NewFilter()
	f.MediaTypes = []media.Type{media.TypeVideo}
	last = terminalOf(t, s.FetchItems(context.Background(), f))
	if last.Kind != media.KindEmpty {
		t.Fatalf("got %v, want empty for a video-only filter", last.Kind)
	}
}

func TestLocalSourcePermissionDenied(t *testing.T) {
	s := NewLocalSource(filepath.Join(t.TempDir(), "does-not-exist"))

	if s.HasPermission() {
		t.Fatal("missing root should deny permission")
	}
	last := terminalOf(t, s.FetchItems(context.Background(), media.NewFilter()))
	if last.Kind != media.KindError {
		t.Fatalf("got %v, want error", last.Kind)
	}
}

func keysOf(m map[string]media.Item) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
