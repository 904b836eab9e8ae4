package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediavault/internal/media"
	"mediavault/internal/services"
)

// Record is an Item plus the bookkeeping the store keeps for it.
type Record struct {
	media.Item
	SizeBytes int64
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Kind           media.FileKind
	Query          string
	DownloadedOnly bool
}

const itemColumns = "id, title, url, thumbnail, kind, downloaded, size_bytes, file_size, source, created_at, updated_at"

// Upsert inserts or replaces items. Ids are unique across kinds, so an item
// arriving with an existing id replaces the stored row. The downloaded flag
// and known size of an existing row are preserved.
func (s *Store) Upsert(ctx context.Context, items []media.Item, source string) (int, error) {
	ctx = ensureContext(ctx)
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return 0, err
		}
	}
	if len(items) == 0 {
		return 0, nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	var count int
	err := retryOnBusy(ctx, func() error {
		count = 0
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO items (
                id, title, title_key, url, thumbnail, kind, downloaded, size_bytes, file_size, source, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, -1, '', ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                title = excluded.title,
                title_key = excluded.title_key,
                url = excluded.url,
                thumbnail = excluded.thumbnail,
                kind = excluded.kind,
                downloaded = CASE WHEN items.kind = excluded.kind THEN items.downloaded ELSE excluded.downloaded END,
                size_bytes = CASE WHEN items.url = excluded.url THEN items.size_bytes ELSE -1 END,
                file_size = CASE WHEN items.url = excluded.url THEN items.file_size ELSE '' END,
                source = excluded.source,
                updated_at = excluded.updated_at`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, item := range items {
			title := normalizeTitle(item.Title)
			if _, err := stmt.ExecContext(ctx,
				item.ID,
				title,
				titleKey(title),
				strings.TrimSpace(item.URL),
				strings.TrimSpace(item.Thumbnail),
				string(item.Kind),
				boolToInt(item.Downloaded),
				source,
				now,
				now,
			); err != nil {
				return err
			}
			count++
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("upsert items: %w", err)
	}
	return count, nil
}

// Get returns the item with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get", fmt.Sprintf("item %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get item %d: %w", id, err)
	}
	return rec, nil
}

// List returns items matching filter ordered by id.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Record, error) {
	ctx = ensureContext(ctx)
	var (
		clauses []string
		args    []any
	)
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		clauses = append(clauses, `title_key LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(q))
	}
	if filter.DownloadedOnly {
		clauses = append(clauses, "downloaded = 1")
	}

	query := "SELECT " + itemColumns + " FROM items"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return records, nil
}

// Count returns the number of items per kind.
func (s *Store) Count(ctx context.Context) (map[media.FileKind]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(1) FROM items GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}
	defer rows.Close()

	counts := make(map[media.FileKind]int)
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[media.FileKind(kind)] = count
	}
	return counts, rows.Err()
}

// SetDownloaded updates the downloaded flag of an item.
func (s *Store) SetDownloaded(ctx context.Context, id int64, downloaded bool) error {
	res, err := s.execWithRetry(ctx,
		"UPDATE items SET downloaded = ?, updated_at = ? WHERE id = ?",
		boolToInt(downloaded), time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("set downloaded %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// SetSize records a probed remote size. Negative sizes clear the display
// string.
func (s *Store) SetSize(ctx context.Context, id int64, size int64) error {
	if size < 0 {
		size = -1
	}
	res, err := s.execWithRetry(ctx,
		"UPDATE items SET size_bytes = ?, file_size = ?, updated_at = ? WHERE id = ?",
		size, media.DisplaySize(size), time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("set size %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// Remove deletes an item from the catalog.
func (s *Store) Remove(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("remove item %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// Reconcile sets the downloaded flag from a listing of stored file names
// (e.g. "7.mp4"). It returns the number of rows whose flag changed.
func (s *Store) Reconcile(ctx context.Context, storedNames map[string]struct{}) (int, error) {
	records, err := s.List(ctx, Filter{})
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, rec := range records {
		_, present := storedNames[rec.FileName()]
		if present == rec.Downloaded {
			continue
		}
		if err := s.SetDownloaded(ctx, rec.ID, present); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec        Record
		kind       string
		downloaded int
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Title,
		&rec.URL,
		&rec.Thumbnail,
		&kind,
		&downloaded,
		&rec.SizeBytes,
		&rec.FileSize,
		&rec.Source,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	rec.Kind = media.FileKind(kind)
	rec.Downloaded = downloaded != 0
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &rec, nil
}

func requireAffected(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "catalog", "update", fmt.Sprintf("item %d", id), nil)
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
