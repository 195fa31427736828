package media

import (
	"testing"
	"time"
)

func TestLocalIDRoundTrip(t *testing.T) {
	id := LocalID(TypeImage, "photos/2024/beach.jpg")
	typ, locator, ok := ParseLocalID(id)
	if !ok {
		t.Fatalf("ParseLocalID(%q) not ok", id)
	}
	if typ != TypeImage || locator != "photos/2024/beach.jpg" {
		t.Fatalf("got %s %q", typ, locator)
	}
}

func TestParseLocalIDLocatorKeepsColons(t *testing.T) {
	_, locator, ok := ParseLocalID("video:clips:v1:final.mp4")
	if !ok || locator != "clips:v1:final.mp4" {
		t.Fatalf("got %q, ok=%v", locator, ok)
	}
}

func TestParseLocalIDRejectsForeignTags(t *testing.T) {
	for _, id := range []string{"minio:key.jpg", "s3:key.jpg", "untagged", ""} {
		if _, _, ok := ParseLocalID(id); ok {
			t.Fatalf("ParseLocalID(%q) should not succeed", id)
		}
	}
}

func TestParseLocalIDCaseInsensitive(t *testing.T) {
	typ, _, ok := ParseLocalID("IMAGE:a.jpg")
	if !ok || typ != TypeImage {
		t.Fatalf("got %s, ok=%v", typ, ok)
	}
}

func TestTypeFromMime(t *testing.T) {
	if typ, ok := TypeFromMime("image/jpeg"); !ok || typ != TypeImage {
		t.Fatalf("image/jpeg: got %s, ok=%v", typ, ok)
	}
	if typ, ok := TypeFromMime("video/mp4"); !ok || typ != TypeVideo {
		t.Fatalf("video/mp4: got %s, ok=%v", typ, ok)
	}
	if _, ok := TypeFromMime("application/pdf"); ok {
		t.Fatal("application/pdf should not map to a media type")
	}
}

func TestItemEqualComparesInstants(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	base := Item{
		ID:           "image:a.jpg",
		Name:         "a.jpg",
		Type:         TypeImage,
		DateModified: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		IsLocal:      true,
	}
	same := base
	same.DateModified = base.DateModified.In(loc)

	if !base.Equal(same) {
		t.Fatal("items with the same instant in different zones should be equal")
	}

	other := base
	other.Size = 1
	if base.Equal(other) {
		t.Fatal("items differing in size should not be equal")
	}
}
