package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xwurfel/gallerykit/internal/cloud"
	"github.com/xwurfel/gallerykit/internal/media"
)

type cloudEntry struct {
	provider cloud.Provider
	repo     Repository
}

// Composite merges one local source with any number of cloud sources behind
// the plain Repository contract. Cloud item and album ids gain one extra
// provider tag at this boundary, so a merged id is "<provider>:<source id>"
// and dispatch can strip exactly one level and forward the remainder.
type Composite struct {
	local  Repository
	clouds []cloudEntry
}

// BuildComposite wires the aggregator. Every enabled provider must have a
// registered source; a missing one fails here rather than surfacing later as
// a confusing fetch error.
func BuildComposite(local Repository, sources map[cloud.Provider]Repository, enabled []cloud.Provider) (*Composite, error) {
	c := &Composite{local: local}
	for _, p := range enabled {
		repo, ok := sources[p]
		if !ok {
			return nil, fmt.Errorf("cloud provider %s enabled but no source registered", p)
		}
		c.clouds = append(c.clouds, cloudEntry{provider: p, repo: repo})
	}
	return c, nil
}

func (c *Composite) HasPermission() bool {
	if !c.local.HasPermission() {
		return false
	}
	if len(c.clouds) == 0 {
		return true
	}
	for _, entry := range c.clouds {
		if entry.repo.HasPermission() {
			return true
		}
	}
	return false
}

func (c *Composite) RequestPermission(ctx context.Context) (bool, error) {
	granted, err := c.local.RequestPermission(ctx)
	if err != nil {
		return false, err
	}
	if !granted {
		return false, nil
	}
	if len(c.clouds) == 0 {
		return true, nil
	}
	// Every cloud source gets its auth attempt; one success is enough.
	anyCloud := false
	for _, entry := range c.clouds {
		if ok, err := entry.repo.RequestPermission(ctx); err == nil && ok {
			anyCloud = true
		}
	}
	return anyCloud, nil
}

func (c *Composite) FetchItems(ctx context.Context, filter media.Filter) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		deliver(ctx, out, media.Loading())

		type outcome struct {
			provider cloud.Provider // empty for the local source
			result   media.Result
		}

		participants := c.participants(filter)
		outcomes := make([]outcome, len(participants)+1)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[0] = outcome{result: awaitTerminal(ctx, c.local.FetchItems(ctx, filter))}
		}()
		for i, entry := range participants {
			wg.Add(1)
			go func(i int, entry cloudEntry) {
				defer wg.Done()
				outcomes[i+1] = outcome{
					provider: entry.provider,
					result:   awaitTerminal(ctx, entry.repo.FetchItems(ctx, filter)),
				}
			}(i, entry)
		}
		wg.Wait()

		var (
			merged       []media.Item
			contributors int
			firstError   string
		)
		for _, o := range outcomes {
			switch o.result.Kind {
			case media.KindSuccess:
				items := o.result.Items
				if o.provider != "" {
					items = retagItems(o.provider, items)
				}
				merged = append(merged, items...)
				contributors++
			case media.KindError:
				if firstError == "" {
					firstError = o.result.Message
				}
			}
		}

		if len(merged) == 0 {
			if firstError != "" {
				deliver(ctx, out, media.Errorf("%s", firstError))
				return
			}
			deliver(ctx, out, media.Empty())
			return
		}

		// Per-source order only survives when one source answered; a merged
		// view is always newest first.
		if contributors >= 2 {
			media.SortItemsByDateModifiedDesc(merged)
		}
		deliver(ctx, out, media.Success(merged))
	})(ctx)
}

func (c *Composite) FetchAlbums(ctx context.Context) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		deliver(ctx, out, media.Loading())

		type outcome struct {
			provider cloud.Provider
			result   media.Result
		}

		var participants []cloudEntry
		for _, entry := range c.clouds {
			if entry.repo.HasPermission() {
				participants = append(participants, entry)
			}
		}
		outcomes := make([]outcome, len(participants)+1)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[0] = outcome{result: awaitTerminal(ctx, c.local.FetchAlbums(ctx))}
		}()
		for i, entry := range participants {
			wg.Add(1)
			go func(i int, entry cloudEntry) {
				defer wg.Done()
				outcomes[i+1] = outcome{
					provider: entry.provider,
					result:   awaitTerminal(ctx, entry.repo.FetchAlbums(ctx)),
				}
			}(i, entry)
		}
		wg.Wait()

		byID := make(map[string]media.Album)
		firstError := ""
		for _, o := range outcomes {
			switch o.result.Kind {
			case media.KindAlbums:
				for _, album := range o.result.Albums {
					if o.provider != "" {
						album.ID = cloud.EncodeID(o.provider, album.ID)
						album.Name = fmt.Sprintf("%s (%s)", album.Name, o.provider.Label())
					}
					byID[album.ID] = album
				}
			case media.KindError:
				if firstError == "" {
					firstError = o.result.Message
				}
			}
		}

		if len(byID) == 0 {
			if firstError != "" {
				deliver(ctx, out, media.Errorf("%s", firstError))
				return
			}
			deliver(ctx, out, media.Empty())
			return
		}

		albums := make([]media.Album, 0, len(byID))
		for _, album := range byID {
			albums = append(albums, album)
		}
		sort.SliceStable(albums, func(i, j int) bool {
			if albums[i].ItemCount != albums[j].ItemCount {
				return albums[i].ItemCount > albums[j].ItemCount
			}
			return albums[i].ID < albums[j].ID
		})
		deliver(ctx, out, media.Albums(albums))
	})(ctx)
}

// FetchAlbumItems routes to the album's owning source. An album id whose tag
// is a known provider goes to that cloud source with the tag stripped; every
// other id, tagged or not, belongs to local storage.
func (c *Composite) FetchAlbumItems(ctx context.Context, albumID string, filter media.Filter) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		tag, rest, found := cloud.SplitID(albumID)
		if found {
			if provider, err := cloud.ParseProvider(tag); err == nil {
				entry, ok := c.cloudFor(provider)
				if !ok {
					deliver(ctx, out, media.Errorf("cloud provider %s is not configured", provider))
					return
				}
				if !entry.repo.HasPermission() {
					deliver(ctx, out, media.Errorf("not authenticated with %s", provider.Label()))
					return
				}
				c.forward(ctx, out, provider, entry.repo.FetchAlbumItems(ctx, rest, filter))
				return
			}
		}
		c.forward(ctx, out, "", c.local.FetchAlbumItems(ctx, albumID, filter))
	})(ctx)
}

// FetchItem resolves one merged id. Unknown tags, unregistered providers and
// missing objects all read as absence, not errors.
func (c *Composite) FetchItem(ctx context.Context, id string) (*media.Item, error) {
	if _, _, ok := media.ParseLocalID(id); ok {
		return c.local.FetchItem(ctx, id)
	}

	tag, rest, found := cloud.SplitID(id)
	if !found {
		return nil, nil
	}
	provider, err := cloud.ParseProvider(tag)
	if err != nil {
		return nil, nil
	}
	entry, ok := c.cloudFor(provider)
	if !ok {
		return nil, nil
	}
	if !entry.repo.HasPermission() {
		return nil, nil
	}

	item, err := entry.repo.FetchItem(ctx, rest)
	if err != nil || item == nil {
		return item, err
	}
	retagged := retagItem(provider, *item)
	return &retagged, nil
}

func (c *Composite) participants(filter media.Filter) []cloudEntry {
	if !filter.IncludeCloud {
		return nil
	}
	var entries []cloudEntry
	for _, entry := range c.clouds {
		if len(filter.CloudProviders) > 0 && !containsProvider(filter.CloudProviders, entry.provider) {
			continue
		}
		if !entry.repo.HasPermission() {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func (c *Composite) cloudFor(p cloud.Provider) (cloudEntry, bool) {
	for _, entry := range c.clouds {
		if entry.provider == p {
			return entry, true
		}
	}
	return cloudEntry{}, false
}

// forward relays a source's results, re-tagging item ids when they came from
// a cloud source.
func (c *Composite) forward(ctx context.Context, out chan<- media.Result, provider cloud.Provider, in <-chan media.Result) {
	for {
		select {
		case r, ok := <-in:
			if !ok {
				return
			}
			if provider != "" && r.Kind == media.KindSuccess {
				r.Items = retagItems(provider, r.Items)
			}
			deliver(ctx, out, r)
			if r.IsTerminal() {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func retagItems(p cloud.Provider, items []media.Item) []media.Item {
	retagged := make([]media.Item, len(items))
	for i, item := range items {
		retagged[i] = retagItem(p, item)
	}
	return retagged
}

func retagItem(p cloud.Provider, item media.Item) media.Item {
	item.ID = cloud.EncodeID(p, item.ID)
	item.IsLocal = false
	item.CloudProvider = p
	return item
}

// awaitTerminal drains one fetch channel and returns its terminal result.
func awaitTerminal(ctx context.Context, in <-chan media.Result) media.Result {
	for {
		select {
		case r, ok := <-in:
			if !ok {
				return media.Errorf("source closed without a result")
			}
			if r.IsTerminal() {
				return r
			}
		case <-ctx.Done():
			return media.Errorf("fetch cancelled: %v", ctx.Err())
		}
	}
}

func containsProvider(list []cloud.Provider, p cloud.Provider) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}
