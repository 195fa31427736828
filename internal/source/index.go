package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/xwurfel/gallerykit/internal/media"
)

// IndexSource serves media from a pre-built catalog table instead of walking
// storage on every fetch. A background indexer owns writes; this source only
// reads. Filtering and ordering are pushed down into SQL.
type IndexSource struct {
	db *sql.DB
}

func NewIndexSource(db *sql.DB) *IndexSource {
	return &IndexSource{db: db}
}

func (s *IndexSource) HasPermission() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx) == nil
}

func (s *IndexSource) RequestPermission(ctx context.Context) (bool, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return false, fmt.Errorf("media index unreachable: %w", err)
	}
	return true, nil
}

// ready probes the index connection. Fetches gate on it so a dead database
// reads as one readiness Error instead of a per-query failure.
func (s *IndexSource) ready(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

func (s *IndexSource) FetchItems(ctx context.Context, filter media.Filter) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		if err := s.ready(ctx); err != nil {
			deliver(ctx, out, media.Errorf("media index unreachable: %v", err))
			return
		}

		items, err := s.queryItems(ctx, filter, "")
		if err != nil {
			deliver(ctx, out, media.Errorf("failed to query media index: %v", err))
			return
		}
		deliver(ctx, out, terminal(items))
	})(ctx)
}

func (s *IndexSource) FetchAlbums(ctx context.Context) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		if err := s.ready(ctx); err != nil {
			deliver(ctx, out, media.Errorf("media index unreachable: %v", err))
			return
		}

		query := `
			SELECT album_id, album_name, MIN(uri), COUNT(*), MIN(date_created)
			FROM media_index
			GROUP BY album_id, album_name
			ORDER BY COUNT(*) DESC, album_id ASC`

		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			deliver(ctx, out, media.Errorf("failed to query media index: %v", err))
			return
		}
		defer rows.Close()

		var albums []media.Album
		for rows.Next() {
			var a media.Album
			if err := rows.Scan(&a.ID, &a.Name, &a.CoverURI, &a.ItemCount, &a.DateCreated); err != nil {
				deliver(ctx, out, media.Errorf("failed to scan album row: %v", err))
				return
			}
			albums = append(albums, a)
		}
		if err := rows.Err(); err != nil {
			deliver(ctx, out, media.Errorf("failed to read album rows: %v", err))
			return
		}

		deliver(ctx, out, terminalAlbums(albums))
	})(ctx)
}

func (s *IndexSource) FetchAlbumItems(ctx context.Context, albumID string, filter media.Filter) <-chan media.Result {
	return emit(func(ctx context.Context, out chan<- media.Result) {
		if err := s.ready(ctx); err != nil {
			deliver(ctx, out, media.Errorf("media index unreachable: %v", err))
			return
		}
		deliver(ctx, out, media.Loading())

		items, err := s.queryItems(ctx, filter.WithoutAlbums(), albumID)
		if err != nil {
			deliver(ctx, out, media.Errorf("failed to query media index: %v", err))
			return
		}
		deliver(ctx, out, terminal(items))
	})(ctx)
}

func (s *IndexSource) FetchItem(ctx context.Context, id string) (*media.Item, error) {
	query := selectColumns + ` FROM media_index WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query media index: %w", err)
	}
	return &item, nil
}

const selectColumns = `
	SELECT id, uri, name, path, media_type, album_id, album_name,
	       date_created, date_modified, size, width, height, mime_type,
	       duration_ms, resolution`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (media.Item, error) {
	var (
		item       media.Item
		durationMS int64
	)
	err := row.Scan(
		&item.ID, &item.URI, &item.Name, &item.Path, &item.Type,
		&item.AlbumID, &item.AlbumName, &item.DateCreated, &item.DateModified,
		&item.Size, &item.Width, &item.Height, &item.MimeType,
		&durationMS, &item.Resolution,
	)
	if err != nil {
		return media.Item{}, err
	}
	item.Duration = time.Duration(durationMS) * time.Millisecond
	item.IsLocal = true
	return item, nil
}

func (s *IndexSource) queryItems(ctx context.Context, filter media.Filter, albumID string) ([]media.Item, error) {
	query := selectColumns + ` FROM media_index WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if len(filter.MediaTypes) > 0 {
		placeholders := make([]string, 0, len(filter.MediaTypes))
		for _, t := range filter.MediaTypes {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argCount))
			args = append(args, string(t))
			argCount++
		}
		query += fmt.Sprintf(" AND media_type IN (%s)", strings.Join(placeholders, ", "))
	}

	if albumID != "" {
		query += fmt.Sprintf(" AND album_id = $%d", argCount)
		args = append(args, albumID)
		argCount++
	} else if len(filter.AlbumIDs) > 0 {
		placeholders := make([]string, 0, len(filter.AlbumIDs))
		for _, id := range filter.AlbumIDs {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argCount))
			args = append(args, id)
			argCount++
		}
		query += fmt.Sprintf(" AND album_id IN (%s)", strings.Join(placeholders, ", "))
	}

	if filter.SearchQuery != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", argCount)
		args = append(args, "%"+filter.SearchQuery+"%")
		argCount++
	}

	if filter.MinSize != nil {
		query += fmt.Sprintf(" AND size >= $%d", argCount)
		args = append(args, *filter.MinSize)
		argCount++
	}
	if filter.MaxSize != nil {
		query += fmt.Sprintf(" AND size <= $%d", argCount)
		args = append(args, *filter.MaxSize)
		argCount++
	}

	if filter.DateRange != nil {
		if filter.DateRange.Start != nil {
			query += fmt.Sprintf(" AND date_modified >= $%d", argCount)
			args = append(args, *filter.DateRange.Start)
			argCount++
		}
		if filter.DateRange.End != nil {
			query += fmt.Sprintf(" AND date_modified <= $%d", argCount)
			args = append(args, *filter.DateRange.End)
			argCount++
		}
	}

	query += " ORDER BY " + orderClause(filter.SortBy)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []media.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// orderClause maps a sort option to SQL, always with an id tie-break so
// pagination over identical values stays stable.
func orderClause(by media.SortOption) string {
	switch by {
	case media.SortNameAsc:
		return "name ASC, id ASC"
	case media.SortNameDesc:
		return "name DESC, id ASC"
	case media.SortDateCreatedAsc:
		return "date_created ASC, id ASC"
	case media.SortDateCreatedDesc:
		return "date_created DESC, id ASC"
	case media.SortDateModifiedAsc:
		return "date_modified ASC, id ASC"
	case media.SortSizeAsc:
		return "size ASC, id ASC"
	case media.SortSizeDesc:
		return "size DESC, id ASC"
	default:
		return "date_modified DESC, id ASC"
	}
}
