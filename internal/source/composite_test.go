package source

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/xwurfel/gallerykit/internal/cloud"
	"github.com/xwurfel/gallerykit/internal/media"
)

// fakeSource is a scripted Repository for aggregator tests.
type fakeSource struct {
	items      media.Result
	albums     media.Result
	albumItems map[string]media.Result
	item       *media.Item

	perm    bool
	permErr error

	gotAlbumID string
	gotItemID  string
}

func (f *fakeSource) FetchItems(ctx context.Context, filter media.Filter) <-chan media.Result {
	return f.respond(f.items)
}

func (f *fakeSource) FetchAlbums(ctx context.Context) <-chan media.Result {
	return f.respond(f.albums)
}

func (f *fakeSource) FetchAlbumItems(ctx context.Context, albumID string, filter media.Filter) <-chan media.Result {
	f.gotAlbumID = albumID
	if r, ok := f.albumItems[albumID]; ok {
		return f.respond(r)
	}
	return f.respond(media.Errorf("album %s not found", albumID))
}

func (f *fakeSource) FetchItem(ctx context.Context, id string) (*media.Item, error) {
	f.gotItemID = id
	return f.item, nil
}

func (f *fakeSource) HasPermission() bool { return f.perm }

func (f *fakeSource) RequestPermission(ctx context.Context) (bool, error) {
	if f.permErr != nil {
		return false, f.permErr
	}
	return f.perm, nil
}

func (f *fakeSource) respond(r media.Result) <-chan media.Result {
	out := make(chan media.Result, 1)
	out <- r
	close(out)
	return out
}

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func localItem(id string, d int) media.Item {
	return media.Item{ID: id, Type: media.TypeImage, IsLocal: true, DateModified: day(d)}
}

func cloudItem(p cloud.Provider, key string, d int) media.Item {
	return media.Item{
		ID:            cloud.EncodeID(p, key),
		Type:          media.TypeImage,
		CloudProvider: p,
		CloudID:       key,
		DateModified:  day(d),
	}
}

// drain collects results until the channel closes.
func drain(t *testing.T, ch <-chan media.Result) []media.Result {
	t.Helper()
	var results []media.Result
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return results
			}
			results = append(results, r)
		case <-time.After(2 * time.Second):
			t.Fatal("fetch did not complete")
		}
	}
}

// terminalOf returns the last result, which must be terminal.
func terminalOf(t *testing.T, ch <-chan media.Result) media.Result {
	t.Helper()
	results := drain(t, ch)
	if len(results) == 0 {
		t.Fatal("fetch emitted nothing")
	}
	last := results[len(results)-1]
	if !last.IsTerminal() {
		t.Fatalf("last result is not terminal: %v", last.Kind)
	}
	return last
}

func cloudFilter() media.Filter {
	f := media.NewFilter()
	f.IncludeCloud = true
	return f
}

func TestBuildCompositeRequiresRegisteredSources(t *testing.T) {
	local := &fakeSource{perm: true}
	_, err := BuildComposite(local, nil, []cloud.Provider{cloud.ProviderMinIO})
	if err == nil {
		t.Fatal("expected an error for an enabled provider with no source")
	}
}

func TestFetchItemsMergesLocalAndCloud(t *testing.T) {
	local := &fakeSource{
		perm: true,
		items: media.Success([]media.Item{
			localItem("image:a.jpg", 1),
			localItem("image:b.jpg", 3),
			localItem("video:c.mp4", 5),
		}),
	}
	remote := &fakeSource{
		perm: true,
		items: media.Success([]media.Item{
			cloudItem(cloud.ProviderMinIO, "k1.jpg", 2),
			cloudItem(cloud.ProviderMinIO, "k2.jpg", 4),
		}),
	}

	c, err := BuildComposite(local,
		map[cloud.Provider]Repository{cloud.ProviderMinIO: remote},
		[]cloud.Provider{cloud.ProviderMinIO})
	if err != nil {
		t.Fatalf("BuildComposite: %v", err)
	}

	results := drain(t, c.FetchItems(context.Background(), cloudFilter()))
	if results[0].Kind != media.KindLoading {
		t.Fatalf("first result = %v, want loading", results[0].Kind)
	}
	last := results[len(results)-1]
	if last.Kind != media.KindSuccess {
		t.Fatalf("terminal = %v (%s)", last.Kind, last.Message)
	}
	if len(last.Items) != 5 {
		t.Fatalf("merged %d items, want 5", len(last.Items))
	}

	// Two contributors: merged order is newest first.
	wantOrder := []string{"video:c.mp4", "minio:minio:k2.jpg", "image:b.jpg", "minio:minio:k1.jpg", "image:a.jpg"}
	for i, want := range wantOrder {
		if last.Items[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, last.Items[i].ID, want)
		}
	}

	for _, it := range last.Items {
		if it.CloudProvider != "" && it.IsLocal {
			t.Fatalf("cloud item %s marked local", it.ID)
		}
	}
}

func TestFetchItemsSkipsUnpermittedClouds(t *testing.T) {
	local := &fakeSource{
		perm:  true,
		items: media.Success([]media.Item{localItem("image:a.jpg", 1)}),
	}
	remote := &fakeSource{
		perm:  false,
		items: media.Errorf("must not be called"),
	}

	c, _ := BuildComposite(local,
		map[cloud.Provider]Repository{cloud.ProviderMinIO: remote},
		[]cloud.Provider{cloud.ProviderMinIO})

	last := terminalOf(t, c.FetchItems(context.Background(), cloudFilter()))
	if last.Kind != media.KindSuccess || len(last.Items) != 1 {
		t.Fatalf("got %v with %d items", last.Kind, len(last.Items))
	}
}

func TestFetchItemsRespectsIncludeCloud(t *testing.T) {
	local := &fakeSource{
		perm:  true,
		items: media.Success([]media.Item{localItem("image:a.jpg", 1)}),
	}
	remote := &fakeSource{
		perm:  true,
		items: media.Success([]media.Item{cloudItem(cloud.ProviderMinIO, "k.jpg", 2)}),
	}

	c, _ := BuildComposite(local,
		map[cloud.Provider]Repository{cloud.ProviderMinIO: remote},
		[]cloud.Provider{cloud.ProviderMinIO})

	last := terminalOf(t, c.FetchItems(context.Background(), media.NewFilter()))
	if len(last.Items) != 1 || last.Items[0].ID != "image:a.jpg" {
		t.Fatalf("cloud items leaked into a local-only fetch: %+v", last.Items)
	}
}

func TestFetchItemsErrorOnlyWhenNothingMerged(t *testing.T) {
	local := &fakeSource{perm: true, items: media.Errorf("disk on fire")}
	remote := &fakeSource{
		perm:  true,
		items: media.Success([]media.Item{cloudItem(cloud.ProviderMinIO, "k.jpg", 1)}),
	}

	c, _ := BuildComposite(local,
		map[cloud.Provider]Repository{cloud.ProviderMinIO: remote},
		[]cloud.Provider{cloud.ProviderMinIO})

	// One source still answered: partial success wins over the error.
	last := terminalOf(t, c.FetchItems(context.Background(), cloudFilter()))
	if last.Kind != media.KindSuccess || len(last.Items) != 1 {
		t.Fatalf("got %v with %d items", last.Kind, len(last.Items))
	}

	// Nothing merged: the first error surfaces.
	remote.items = media.Empty()
	last = terminalOf(t, c.FetchItems(context.Background(), cloudFilter()))
	if last.Kind != media.KindError || last.Message != "disk on fire" {
		t.Fatalf("got %v (%q)", last.Kind, last.Message)
	}
}

func TestFetchItemsAllEmpty(t *testing.T) {
	local := &fakeSource{perm: true, items: media.Empty()}
	c, _ := BuildComposite(local, nil, nil)

	last := terminalOf(t, c.FetchItems(context.Background(), media.NewFilter()))
	if last.Kind != media.KindEmpty {
		t.Fatalf("got %v, want empty", last.Kind)
	}
}

func TestFetchItemsSingleSourcePreservesOrder(t *testing.T) {
	// Name order from the only contributor must survive the merge.
	local := &fakeSource{
		perm: true,
		items: media.Success([]media.Item{
			localItem("image:a.jpg", 1),
			localItem("image:b.jpg", 3),
			localItem("image:c.jpg", 2),
		}),
	}
	c, _ := BuildComposite(local, nil, nil)

	f := media.NewFilter()
	f.SortBy = media.SortNameAsc
	last := terminalOf(t, c.FetchItems(context.Background(), f))

	want := []string{"image:a.jpg", "image:b.jpg", "image:c.jpg"}
	for i, id := range want {
		if last.Items[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, last.Items[i].ID, id)
		}
	}
}

func TestFetchAlbumsMergesAndRelabels(t *testing.T) {
	local := &fakeSource{
		perm: true,
		albums: media.Albums([]media.Album{
			{ID: "vacation", Name: "Vacation", ItemCount: 3},
		}),
	}
	remote := &fakeSource{
		perm: true,
		albums: media.Albums([]media.Album{
			{ID: "minio:photos", Name: "photos", ItemCount: 5},
		}),
	}

	c, _ := BuildComposite(local,
		map[cloud.Provider]Repository{cloud.ProviderMinIO: remote},
		[]cloud.Provider{cloud.ProviderMinIO})

	last := terminalOf(t, c.FetchAlbums(context.Background()))
	if last.Kind != media.KindAlbums || len(last.Albums) != 2 {
		t.Fatalf("got %v with %d albums", last.Kind, len(last.Albums))
	}

	// Ordered by item count descending, cloud album re-tagged and labeled.
	first := last.Albums[0]
	if first.ID != "minio:minio:photos" {
		t.Fatalf("cloud album id = %s", first.ID)
	}
	if first.Name != "photos (MinIO)" {
		t.Fatalf("cloud album name = %s", first.Name)
	}
	if last.Albums[1].ID != "vacation" {
		t.Fatalf("second album = %s", last.Albums[1].ID)
	}
}

func TestFetchAlbumItemsDispatchesToCloud(t *testing.T) {
	local := &fakeSource{perm: true}
	remote := &fakeSource{
		perm: true,
		albumItems: map[string]media.Result{
			"minio:photos": media.Success([]media.Item{
				cloudItem(cloud.ProviderMinIO, "photos/a.jpg", 1),
			}),
		},
	}

	c, _ := BuildComposite(local,
		map[cloud.Provider]Repository{cloud.ProviderMinIO: remote},
		[]cloud.Provider{cloud.ProviderMinIO})

	last := terminalOf(t, c.FetchAlbumItems(context.Background(), "minio:minio:photos", cloudFilter()))
	if remote.gotAlbumID != "minio:photos" {
		t.Fatalf("cloud source received album id %q", remote.gotAlbumID)
	}
	if last.Kind != media.KindSuccess {
		t.Fatalf("got %v (%s)", last.Kind, last.Message)
	}
	if last.Items[0].ID != "minio:minio:photos/a.jpg" {
		t.Fatalf("item id = %s", last.Items[0].ID)
	}
}

func TestFetchAlbumItemsUnknownTagGoesLocal(t *testing.T) {
	local := &fakeSource{
		perm: true,
		albumItems: map[string]media.Result{
			"trips:2024": media.Success([]media.Item{localItem("image:trips:2024/a.jpg", 1)}),
		},
	}
	c, _ := BuildComposite(local, nil, nil)

	last := terminalOf(t, c.FetchAlbumItems(context.Background(), "trips:2024", media.NewFilter()))
	if local.gotAlbumID != "trips:2024" {
		t.Fatalf("local source received album id %q", local.gotAlbumID)
	}
	if last.Kind != media.KindSuccess {
		t.Fatalf("got %v", last.Kind)
	}
}

func TestFetchAlbumItemsUnconfiguredProvider(t *testing.T) {
	local := &fakeSource{perm: true}
	c, _ := BuildComposite(local, nil, nil)

	last := terminalOf(t, c.FetchAlbumItems(context.Background(), "s3:bucket-a", media.NewFilter()))
	if last.Kind != media.KindError {
		t.Fatalf("got %v, want error", last.Kind)
	}
}

func TestFetchAlbumItemsRequiresCloudPermission(t *testing.T) {
	local := &fakeSource{perm: true}
	// The cloud source would happily answer despite its lost session; the
	// aggregator gates on permission itself instead of trusting it to.
	minioSrc := &fakeSource{
		albumItems: map[string]media.Result{
			"minio:photos": media.Success([]media.Item{cloudItem(cloud.ProviderMinIO, "photos/a.jpg", 1)}),
		},
	}
	c, err := BuildComposite(local, map[cloud.Provider]Repository{cloud.ProviderMinIO: minioSrc}, []cloud.Provider{cloud.ProviderMinIO})
	if err != nil {
		t.Fatalf("BuildComposite: %v", err)
	}

	last := terminalOf(t, c.FetchAlbumItems(context.Background(), "minio:minio:photos", cloudFilter()))
	if last.Kind != media.KindError {
		t.Fatalf("got %v, want error", last.Kind)
	}
	if !strings.Contains(last.Message, "not authenticated") {
		t.Fatalf("message = %q", last.Message)
	}
	if minioSrc.gotAlbumID != "" {
		t.Fatalf("unauthenticated source was still queried for %q", minioSrc.gotAlbumID)
	}
}

func TestFetchItemDispatch(t *testing.T) {
	localIt := localItem("image:a.jpg", 1)
	local := &fakeSource{perm: true, item: &localIt}

	remoteIt := cloudItem(cloud.ProviderMinIO, "k.jpg", 2)
	remote := &fakeSource{perm: true, item: &remoteIt}

	c, _ := BuildComposite(local,
		map[cloud.Provider]Repository{cloud.ProviderMinIO: remote},
		[]cloud.Provider{cloud.ProviderMinIO})

	got, err := c.FetchItem(context.Background(), "image:a.jpg")
	if err != nil || got == nil || got.ID != "image:a.jpg" {
		t.Fatalf("local lookup: %+v, %v", got, err)
	}
	if local.gotItemID != "image:a.jpg" {
		t.Fatalf("local source received id %q", local.gotItemID)
	}

	got, err = c.FetchItem(context.Background(), "minio:minio:k.jpg")
	if err != nil || got == nil {
		t.Fatalf("cloud lookup: %+v, %v", got, err)
	}
	if remote.gotItemID != "minio:k.jpg" {
		t.Fatalf("cloud source received id %q", remote.gotItemID)
	}
	if got.ID != "minio:minio:k.jpg" {
		t.Fatalf("cloud item id = %s, want composite form", got.ID)
	}
}

func TestFetchItemAbsence(t *testing.T) {
	local := &fakeSource{perm: true}
	c, _ := BuildComposite(local, nil, nil)

	for _, id := range []string{"dropbox:x", "untagged", "s3:unregistered"} {
		got, err := c.FetchItem(context.Background(), id)
		if err != nil {
			t.Fatalf("FetchItem(%q): %v", id, err)
		}
		if got != nil {
			t.Fatalf("FetchItem(%q) resolved unexpectedly", id)
		}
	}
}

func TestFetchItemUnpermittedCloudReadsAsAbsence(t *testing.T) {
	it := cloudItem(cloud.ProviderMinIO, "k.jpg", 1)
	local := &fakeSource{perm: true}
	remote := &fakeSource{perm: false, item: &it}

	c, _ := BuildComposite(local,
		map[cloud.Provider]Repository{cloud.ProviderMinIO: remote},
		[]cloud.Provider{cloud.ProviderMinIO})

	got, err := c.FetchItem(context.Background(), "minio:minio:k.jpg")
	if err != nil || got != nil {
		t.Fatalf("got %+v, %v", got, err)
	}
}

func TestHasPermission(t *testing.T) {
	local := &fakeSource{perm: true}
	cloudA := &fakeSource{perm: false}
	cloudB := &fakeSource{perm: true}

	noClouds, _ := BuildComposite(local, nil, nil)
	if !noClouds.HasPermission() {
		t.Fatal("local-only composite should report permission")
	}

	mixed, _ := BuildComposite(local,
		map[cloud.Provider]Repository{
			cloud.ProviderMinIO: cloudA,
			cloud.ProviderS3:    cloudB,
		},
		[]cloud.Provider{cloud.ProviderMinIO, cloud.ProviderS3})
	if !mixed.HasPermission() {
		t.Fatal("one authenticated cloud should be enough")
	}

	allDenied, _ := BuildComposite(local,
		map[cloud.Provider]Repository{cloud.ProviderMinIO: cloudA},
		[]cloud.Provider{cloud.ProviderMinIO})
	if allDenied.HasPermission() {
		t.Fatal("no authenticated cloud should fail the check")
	}

	localDenied, _ := BuildComposite(&fakeSource{perm: false}, nil, nil)
	if localDenied.HasPermission() {
		t.Fatal("a denied local source should fail the check")
	}
}

func TestRequestPermission(t *testing.T) {
	local := &fakeSource{perm: true}
	remote := &fakeSource{perm: true}

	c, _ := BuildComposite(local,
		map[cloud.Provider]Repository{cloud.ProviderMinIO: remote},
		[]cloud.Provider{cloud.ProviderMinIO})

	ok, err := c.RequestPermission(context.Background())
	if err != nil || !ok {
		t.Fatalf("RequestPermission: ok=%v err=%v", ok, err)
	}

	denied, _ := BuildComposite(&fakeSource{perm: false}, nil, nil)
	ok, err = denied.RequestPermission(context.Background())
	if err != nil {
		t.Fatalf("RequestPermission: %v", err)
	}
	if ok {
		t.Fatal("denied local permission should fail the request")
	}
}
