package source

import (
	"context"

	"github.com/xwurfel/gallerykit/internal/media"
)

// Repository is the contract every media source satisfies: device storage,
// object storage, an indexed catalog, or the composite over all of them.
//
// Fetch channels emit at most one Loading result, then exactly one terminal
// result, then close. FetchItem returns (nil, nil) when the id resolves to
// nothing; absence is not an error.
type Repository interface {
	FetchItems(ctx context.Context, filter media.Filter) <-chan media.Result
	FetchAlbums(ctx context.Context) <-chan media.Result
	FetchAlbumItems(ctx context.Context, albumID string, filter media.Filter) <-chan media.Result
	FetchItem(ctx context.Context, id string) (*media.Item, error)

	HasPermission() bool
	RequestPermission(ctx context.Context) (bool, error)
}

// emit runs fn on its own goroutine and delivers the results it produces.
// The channel is buffered so a caller that only wants the terminal result
// never blocks the producer.
func emit(fn func(ctx context.Context, out chan<- media.Result)) func(ctx context.Context) <-chan media.Result {
	return func(ctx context.Context) <-chan media.Result {
		out := make(chan media.Result, 2)
		go func() {
			defer close(out)
			fn(ctx, out)
		}()
		return out
	}
}

// deliver sends one result unless the context is already done.
func deliver(ctx context.Context, out chan<- media.Result, r media.Result) {
	select {
	case out <- r:
	case <-ctx.Done():
	}
}

// terminal wraps an item slice in the right terminal result.
func terminal(items []media.Item) media.Result {
	if len(items) == 0 {
		return media.Empty()
	}
	return media.Success(items)
}

// terminalAlbums wraps an album slice in the right terminal result.
func terminalAlbums(albums []media.Album) media.Result {
	if len(albums) == 0 {
		return media.Empty()
	}
	return media.Albums(albums)
}
